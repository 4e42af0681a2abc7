package domain

import (
	"strconv"
	"time"
)

// Canonical feature names used across the pipeline.
// The fraud engine, the counterfactual catalog and the advisory knowledge
// base all key on these names.
const (
	FeatureAge                 = "age"
	FeatureEducationLevel      = "education_level"
	FeatureEmploymentType      = "employment_type"
	FeatureEmploymentYears     = "employment_years"
	FeatureMonthlyIncome       = "monthly_income"
	FeatureFixedExpenses       = "fixed_monthly_expenses"
	FeatureDebtToIncome        = "debt_to_income_ratio"
	FeatureSavingsBalance      = "savings_balance"
	FeatureLoanAmount          = "loan_amount"
	FeatureLoanDuration        = "loan_duration_months"
	FeatureLoanPurpose         = "loan_purpose"
	FeatureCreditScore         = "credit_score"
	FeatureLatePayments12m     = "late_payments_12m"
	FeatureMissedPayments12m   = "missed_payments_12m"
	FeatureUtilityOnTimeRatio  = "utility_bill_on_time_ratio"
	FeatureIsFraud             = "is_fraud"
	FeatureDocumentMismatch    = "document_mismatch_flag"
	FeatureMetadataAnomaly     = "metadata_anomaly_score"
	FeatureIncomeInflation     = "income_inflation_ratio"
	FeatureGeoLocationMismatch = "geo_location_mismatch"
	FeatureApplicationVelocity = "application_velocity"
)

// SnapshotFeatures are the fields echoed back in the analysis result so a
// reviewer sees the numbers the decision was based on.
var SnapshotFeatures = []string{
	FeatureMonthlyIncome,
	FeatureFixedExpenses,
	FeatureDebtToIncome,
	FeatureEmploymentYears,
	FeatureEmploymentType,
	FeatureLoanAmount,
	FeatureLoanDuration,
	FeatureUtilityOnTimeRatio,
}

// ApplicationFeatures is one applicant's raw feature vector. Values arrive
// loosely typed from JSON; all numeric access goes through Float/Int so
// missing or malformed fields coerce to a caller-chosen default instead of
// aborting the pipeline. The pipeline never mutates a feature set it was
// given; counterfactual perturbations work on copies via With.
type ApplicationFeatures map[string]any

// Float returns the named feature as a float64, or def when the field is
// missing or not coercible to a number.
func (f ApplicationFeatures) Float(name string, def float64) float64 {
	v, ok := f[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// Int returns the named feature as an int, or def when missing or malformed.
func (f ApplicationFeatures) Int(name string, def int) int {
	return int(f.Float(name, float64(def)))
}

// Has reports whether the feature is present at all.
func (f ApplicationFeatures) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Clone returns a shallow copy of the feature set.
func (f ApplicationFeatures) Clone() ApplicationFeatures {
	out := make(ApplicationFeatures, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// With returns a copy of the feature set with a single value replaced.
func (f ApplicationFeatures) With(name string, value float64) ApplicationFeatures {
	out := f.Clone()
	out[name] = value
	return out
}

// Snapshot extracts the named features that are present, for echoing in the
// analysis result.
func (f ApplicationFeatures) Snapshot(names []string) map[string]any {
	snap := make(map[string]any, len(names))
	for _, name := range names {
		if v, ok := f[name]; ok {
			snap[name] = v
		}
	}
	return snap
}

// Application is a stored loan application.
type Application struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	ApplicantID string `json:"applicantId"`

	Features ApplicationFeatures `json:"features"`

	SubmittedAt time.Time `json:"submittedAt"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ApplicationRequest is the API request payload for application analysis.
type ApplicationRequest struct {
	ApplicantID string              `json:"applicantId"`
	Features    ApplicationFeatures `json:"features"`
}

// ToApplication converts a request to an Application domain object.
func (r *ApplicationRequest) ToApplication(tenantID string) *Application {
	now := time.Now().UTC()
	return &Application{
		TenantID:    tenantID,
		ApplicantID: r.ApplicantID,
		Features:    r.Features,
		SubmittedAt: now,
		CreatedAt:   now,
	}
}
