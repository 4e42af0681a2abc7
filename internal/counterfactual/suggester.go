// Package counterfactual runs single-feature what-if analysis: each feature
// in a fixed tweak catalog is perturbed on a copy of the input, re-scored,
// and ranked by how much the perturbation lowers the default probability.
package counterfactual

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Scorer produces the approve probability for a feature vector.
type Scorer interface {
	Score(ctx context.Context, features domain.ApplicationFeatures) (float64, error)
}

// tweak is one catalog entry: the fixed transform applied to the feature and
// the template for the human-readable suggestion.
type tweak struct {
	feature     string
	apply       func(v float64) float64
	suggestion  func(v float64) string
	feasibility domain.Feasibility
}

// catalog is the fixed set of tunable features, evaluated in this order.
var catalog = []tweak{
	{
		feature:     domain.FeatureMonthlyIncome,
		apply:       func(v float64) float64 { return v * 1.15 },
		suggestion:  func(v float64) string { return fmt.Sprintf("Increase verified monthly income by %d USD", int(v*0.15)) },
		feasibility: domain.FeasibilityLongTerm,
	},
	{
		feature:     domain.FeatureFixedExpenses,
		apply:       func(v float64) float64 { return v * 0.80 },
		suggestion:  func(v float64) string { return fmt.Sprintf("Reduce monthly expenses by %d USD", int(v*0.20)) },
		feasibility: domain.FeasibilityShortTerm,
	},
	{
		feature:     domain.FeatureSavingsBalance,
		apply:       func(v float64) float64 { return v * 1.25 },
		suggestion:  func(v float64) string { return fmt.Sprintf("Increase savings balance by %d USD", int(v*0.25)) },
		feasibility: domain.FeasibilityLongTerm,
	},
	{
		feature:     domain.FeatureEmploymentYears,
		apply:       func(v float64) float64 { return v + 2 },
		suggestion:  func(v float64) string { return "Maintain stable employment for 2 more years" },
		feasibility: domain.FeasibilityLongTerm,
	},
	{
		feature:     domain.FeatureCreditScore,
		apply:       func(v float64) float64 { return v + 50 },
		suggestion:  func(v float64) string { return "Improve credit score by 50 points" },
		feasibility: domain.FeasibilityShortTerm,
	},
	{
		feature: domain.FeatureUtilityOnTimeRatio,
		apply:   func(v float64) float64 { return 0.98 },
		suggestion: func(v float64) string {
			return fmt.Sprintf("Ensure 98%% of utility bills are paid on time (currently %d%%)", int(v*100))
		},
		feasibility: domain.FeasibilityShortTerm,
	},
	{
		feature:     domain.FeatureLoanAmount,
		apply:       func(v float64) float64 { return v * 0.85 },
		suggestion:  func(v float64) string { return fmt.Sprintf("Reduce loan request by %d USD", int(v*0.15)) },
		feasibility: domain.FeasibilityImmediate,
	},
	{
		feature: domain.FeatureLoanDuration,
		apply:   func(v float64) float64 { return v * 0.80 },
		suggestion: func(v float64) string {
			return fmt.Sprintf("Choose a shorter loan term (reduce by %d months)", int(v*0.20))
		},
		feasibility: domain.FeasibilityImmediate,
	},
	{
		feature: domain.FeatureDebtToIncome,
		apply:   func(v float64) float64 { return v * 0.85 },
		suggestion: func(v float64) string {
			return fmt.Sprintf("Reduce debt-to-income ratio by %d%% points", int(v*100*0.15))
		},
		feasibility: domain.FeasibilityShortTerm,
	},
}

// Suggester runs the what-if catalog against an injected scorer.
type Suggester struct {
	scorer Scorer
	cfg    domain.CounterfactualConfig
	logger *slog.Logger
}

// NewSuggester creates a counterfactual suggester.
func NewSuggester(scorer Scorer, cfg domain.CounterfactualConfig, logger *slog.Logger) *Suggester {
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = 5
	}
	if cfg.MinReduction <= 0 {
		cfg.MinReduction = 0.001
	}
	return &Suggester{scorer: scorer, cfg: cfg, logger: logger}
}

// Suggest perturbs each catalog feature present in the input, one at a time,
// and returns the suggestions whose relative PD improvement exceeds the
// threshold, sorted descending by impact and capped. A scoring failure on
// one feature skips only that feature; the batch never aborts.
func (s *Suggester) Suggest(ctx context.Context, features domain.ApplicationFeatures) []domain.ImprovementSuggestion {
	baseApprove, err := s.scorer.Score(ctx, features)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("counterfactual baseline scoring failed", "error", err)
		}
		return nil
	}
	basePD := 1 - baseApprove

	var suggestions []domain.ImprovementSuggestion

	for _, tw := range catalog {
		if !features.Has(tw.feature) {
			continue
		}

		original := features.Float(tw.feature, 0)
		modified := features.With(tw.feature, tw.apply(original))

		approve, err := s.scorer.Score(ctx, modified)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("counterfactual scoring failed", "feature", tw.feature, "error", err)
			}
			continue
		}
		modifiedPD := 1 - approve

		improvement := basePD - modifiedPD
		improvementPercent := 0.0
		if basePD > 0 {
			improvementPercent = improvement / basePD * 100
		}

		// Below the relative threshold the change is noise, not advice.
		if improvementPercent <= s.cfg.MinReduction*100 {
			continue
		}

		suggestions = append(suggestions, domain.ImprovementSuggestion{
			Feature:      tw.feature,
			CurrentValue: original,
			Suggestion:   tw.suggestion(original),
			ProjectedPD:  domain.Round2(modifiedPD * 100),
			PDReduction:  domain.Round2(improvementPercent),
			Feasibility:  tw.feasibility,
			ImpactScore:  improvementPercent,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].ImpactScore > suggestions[j].ImpactScore
	})

	if len(suggestions) > s.cfg.MaxSuggestions {
		suggestions = suggestions[:s.cfg.MaxSuggestions]
	}

	return suggestions
}
