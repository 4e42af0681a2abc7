package domain

// Severity classifies a matched fraud flag.
type Severity string

const (
	// SeverityHard forces an unconditional fraud block.
	SeverityHard Severity = "hard"

	// SeveritySoft contributes to the fraud score and review need only.
	SeveritySoft Severity = "soft"
)

// Fraud decision constants.
const (
	FraudPass  = "PASS"
	FraudBlock = "BLOCK"
)

// FraudFlag is one matched fraud rule.
type FraudFlag struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
}

// FraudAssessment is the output of the fraud rule engine.
// FraudScore is the clamped sum of matched rule weights; Decision is BLOCK
// iff any matched flag is hard, independent of the score.
type FraudAssessment struct {
	Decision   string      `json:"decision"` // "PASS" or "BLOCK"
	FraudScore float64     `json:"fraudScore"`
	Flags      []FraudFlag `json:"flags"`
}

// Blocked reports whether the assessment forces a fraud block.
func (a *FraudAssessment) Blocked() bool {
	return a.Decision == FraudBlock
}

// HasSoftFlag reports whether any soft flag matched.
func (a *FraudAssessment) HasSoftFlag() bool {
	for _, f := range a.Flags {
		if f.Severity == SeveritySoft {
			return true
		}
	}
	return false
}

// FlagNames returns the names of all matched flags in evaluation order.
func (a *FraudAssessment) FlagNames() []string {
	names := make([]string, 0, len(a.Flags))
	for _, f := range a.Flags {
		names = append(names, f.Name)
	}
	return names
}

// RiskBand partitions the approve-probability axis.
type RiskBand string

const (
	BandApproved RiskBand = "APPROVED"
	BandMiddle   RiskBand = "MIDDLE"
	BandRejected RiskBand = "REJECTED"
)

// Decision is the final verdict for an application.
type Decision string

const (
	DecisionApproved     Decision = "APPROVED"
	DecisionRejected     Decision = "REJECTED"
	DecisionManualReview Decision = "MANUAL_REVIEW"
	DecisionBlockedFraud Decision = "BLOCKED_FRAUD"
)

// RiskAssessment is the classifier adapter's output for one application.
type RiskAssessment struct {
	ApproveProbability float64  `json:"approveProbability"`
	DefaultProbability float64  `json:"defaultProbability"` // 1 - ApproveProbability
	Band               RiskBand `json:"riskBand"`
}

// FeatureAttribution is one normalized explainer contribution.
// Negative contributions increase risk, positive decrease it.
type FeatureAttribution struct {
	Feature      string  `json:"feature"`
	Contribution float64 `json:"contribution"`
	Description  string  `json:"description"`
}

// NegativeAttributions filters the risk-increasing attributions, preserving
// order (the list is already sorted by descending |contribution|).
func NegativeAttributions(attrs []FeatureAttribution) []FeatureAttribution {
	var out []FeatureAttribution
	for _, a := range attrs {
		if a.Contribution < 0 {
			out = append(out, a)
		}
	}
	return out
}
