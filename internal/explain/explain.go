// Package explain normalizes raw explainer output into ordered feature
// attributions. The explainer is treated as untrusted: failures and timeouts
// degrade to an empty attribution list instead of failing the analysis.
package explain

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Adapter wraps the injected explainer with a timeout and converts its
// (descriptor, weight) pairs into FeatureAttribution records.
type Adapter struct {
	explainer   domain.Explainer
	numFeatures int
	timeout     time.Duration
	logger      *slog.Logger
}

// NewAdapter creates an explanation adapter. A nil explainer is allowed and
// always yields an empty attribution list.
func NewAdapter(explainer domain.Explainer, cfg domain.ExplainConfig, logger *slog.Logger) *Adapter {
	numFeatures := cfg.NumFeatures
	if numFeatures <= 0 {
		numFeatures = 10
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{
		explainer:   explainer,
		numFeatures: numFeatures,
		timeout:     timeout,
		logger:      logger,
	}
}

// Explain returns the normalized attribution list, sorted descending by
// absolute contribution. Ties keep the explainer's original order (the sort
// is stable). Any explainer failure returns an empty list; downstream
// consumers are required to handle that without error.
func (a *Adapter) Explain(ctx context.Context, features domain.ApplicationFeatures) []domain.FeatureAttribution {
	if a.explainer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.explainer.Explain(ctx, features, a.numFeatures)
	if err != nil {
		if a.logger != nil {
			a.logger.Warn("explainer failed, continuing without attributions", "error", err)
		}
		return nil
	}

	attrs := make([]domain.FeatureAttribution, 0, len(raw))
	for _, r := range raw {
		attrs = append(attrs, domain.FeatureAttribution{
			Feature:      FeatureName(r.Descriptor),
			Contribution: r.Weight,
			Description:  r.Descriptor,
		})
	}

	sort.SliceStable(attrs, func(i, j int) bool {
		return abs(attrs[i].Contribution) > abs(attrs[j].Contribution)
	})

	return attrs
}

// FeatureName recovers the bare feature name from an explainer descriptor.
// Descriptors carry qualifier text like "num__monthly_income <= 50000.00" or
// "credit_score:680"; everything from the first separator on is dropped and
// encoder prefixes are stripped.
func FeatureName(descriptor string) string {
	name := descriptor
	if i := strings.IndexAny(name, " :<>="); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimPrefix(name, "num__")
	name = strings.TrimPrefix(name, "cat__")
	return name
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
