// Package fraud provides rule-based fraud detection over loan application
// features: a fixed builtin catalog of hard and soft flags, plus optional
// tenant-defined CEL rules.
package fraud

import (
	"context"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Detector evaluates the builtin fraud rule catalog and, when configured,
// tenant custom rules. Hard flags block; soft flags only raise the score.
type Detector struct {
	cfg    domain.FraudConfig
	engine *Engine
}

// NewDetector creates a detector with the given weights and cutoffs.
// The custom rule engine is optional.
func NewDetector(cfg domain.FraudConfig, engine *Engine) *Detector {
	return &Detector{cfg: cfg, engine: engine}
}

// Check evaluates all fraud rules against the application. Rules are applied
// in a fixed order: hard flags first, then soft flags, so that the flag list
// in the assessment is deterministic for a given input. The fraud score is
// the sum of matched weights capped at 1.0, rounded to 3 decimals. Decision
// is BLOCK iff at least one hard flag matched, regardless of the score.
func (d *Detector) Check(ctx context.Context, app *domain.Application) *domain.FraudAssessment {
	f := app.Features
	var flags []domain.FraudFlag
	score := 0.0

	add := func(name string, sev domain.Severity, weight float64) {
		flags = append(flags, domain.FraudFlag{Name: name, Severity: sev})
		score += weight
	}

	// Hard flags
	if f.Int(domain.FeatureIsFraud, 0) == 1 {
		add("explicit_fraud_label", domain.SeverityHard, d.cfg.ExplicitLabelWeight)
	}
	if f.Int(domain.FeatureDocumentMismatch, 0) == 1 {
		add("document_mismatch", domain.SeverityHard, d.cfg.DocMismatchWeight)
	}
	if f.Float(domain.FeatureMetadataAnomaly, 0.0) >= d.cfg.MetadataRiskCutoff {
		add("metadata_anomaly_high", domain.SeverityHard, d.cfg.MetadataRiskWeight)
	}
	if f.Float(domain.FeatureIncomeInflation, 1.0) >= d.cfg.SevereInflationCutoff {
		add("income_inflation_extreme", domain.SeverityHard, d.cfg.SevereInflationWeight)
	}

	// Soft flags
	if f.Int(domain.FeatureGeoLocationMismatch, 0) == 1 {
		add("geo_location_mismatch", domain.SeveritySoft, d.cfg.GeoMismatchWeight)
	}
	if d.expensesExceedIncome(f) {
		add("expenses_gt_income", domain.SeveritySoft, d.cfg.ExpensesExceedWeight)
	}
	if f.Int(domain.FeatureApplicationVelocity, 0) >= d.cfg.VelocityCutoff {
		add("rapid_multiple_applications", domain.SeveritySoft, d.cfg.VelocityWeight)
	}
	if f.Int(domain.FeatureMissedPayments12m, 0) >= d.cfg.MissedPaymentsCutoff {
		add("many_missed_payments_12m", domain.SeveritySoft, d.cfg.MissedPaymentsWeight)
	}
	if f.Float(domain.FeatureUtilityOnTimeRatio, 1.0) < d.cfg.LowUtilityCutoff {
		add("low_utility_on_time_ratio", domain.SeveritySoft, d.cfg.LowUtilityWeight)
	}
	if infl := f.Float(domain.FeatureIncomeInflation, 1.0); infl >= d.cfg.MildInflationCutoff && infl < d.cfg.SevereInflationCutoff {
		add("income_inflation_moderate", domain.SeveritySoft, d.cfg.MildInflationWeight)
	}

	// Tenant custom rules
	if d.cfg.CustomRulesEnabled && d.engine != nil {
		results, err := d.engine.EvaluateAll(ctx, app)
		if err == nil {
			for _, r := range results {
				switch r.Outcome {
				case domain.RuleOutcomeHard:
					add(r.RuleID, domain.SeverityHard, r.Weight)
				case domain.RuleOutcomeSoft:
					add(r.RuleID, domain.SeveritySoft, r.Weight)
				}
			}
		}
	}

	if score > 1.0 {
		score = 1.0
	}

	decision := domain.FraudPass
	for _, fl := range flags {
		if fl.Severity == domain.SeverityHard {
			decision = domain.FraudBlock
			break
		}
	}

	return &domain.FraudAssessment{
		Decision:   decision,
		FraudScore: round3(score),
		Flags:      flags,
	}
}

// expensesExceedIncome flags only when both fields are present and income is
// positive. Absent or malformed fields never trigger the rule.
func (d *Detector) expensesExceedIncome(f domain.ApplicationFeatures) bool {
	if !f.Has(domain.FeatureMonthlyIncome) || !f.Has(domain.FeatureFixedExpenses) {
		return false
	}
	income := f.Float(domain.FeatureMonthlyIncome, 0)
	expenses := f.Float(domain.FeatureFixedExpenses, 0)
	return income > 0 && expenses > income
}

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}
