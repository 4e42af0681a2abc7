package explain

import (
	"context"
	"fmt"
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Scorer produces the approve probability for a feature vector.
type Scorer interface {
	Score(ctx context.Context, features domain.ApplicationFeatures) (float64, error)
}

// SensitivityExplainer derives local attributions by leave-one-out scoring:
// each numeric feature is removed from a copy of the input and the vector is
// re-scored; the attribution is the approve-probability drop caused by the
// removal. Positive weights help approval, negative weights hurt it, matching
// the attribution sign convention downstream.
//
// This costs one scorer call per feature, so it is only suitable for models
// with cheap inference.
type SensitivityExplainer struct {
	scorer Scorer
}

// NewSensitivityExplainer creates a leave-one-out explainer over the scorer.
func NewSensitivityExplainer(scorer Scorer) *SensitivityExplainer {
	return &SensitivityExplainer{scorer: scorer}
}

// Explain scores the input once, then once per numeric feature with that
// feature removed. Features the model ignores come out with zero weight and
// are dropped. The descriptor carries the observed value ("credit_score:620")
// so downstream name recovery is exercised the same way as with an external
// explainer.
func (e *SensitivityExplainer) Explain(ctx context.Context, features domain.ApplicationFeatures, numFeatures int) ([]domain.RawAttribution, error) {
	base, err := e.scorer.Score(ctx, features)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(features))
	for name, v := range features {
		if isNumeric(v) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var raw []domain.RawAttribution
	for _, name := range names {
		reduced := features.Clone()
		delete(reduced, name)

		p, err := e.scorer.Score(ctx, reduced)
		if err != nil {
			return nil, fmt.Errorf("leave-one-out scoring of %s: %w", name, err)
		}

		weight := base - p
		if weight == 0 {
			continue
		}
		raw = append(raw, domain.RawAttribution{
			Descriptor: fmt.Sprintf("%s:%v", name, features[name]),
			Weight:     weight,
		})
	}

	sort.SliceStable(raw, func(i, j int) bool {
		return abs(raw[i].Weight) > abs(raw[j].Weight)
	})
	if numFeatures > 0 && len(raw) > numFeatures {
		raw = raw[:numFeatures]
	}

	return raw, nil
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, bool:
		return true
	default:
		return false
	}
}
