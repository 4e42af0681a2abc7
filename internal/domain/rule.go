package domain

// RuleConfig defines a custom fraud rule evaluated alongside the builtin
// catalog. The CEL expression is evaluated over the raw feature vector; the
// resulting score is mapped through bands to a flag severity.
type RuleConfig struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// CEL expression over the application features.
	Expression string `json:"expression"`

	// Outcome bands for score-to-severity mapping.
	Bands []RuleBand `json:"bands"`

	// Weight added to the fraud score when the rule flags.
	Weight float64 `json:"weight"`

	// Whether rule is active.
	Enabled bool `json:"enabled"`
}

// RuleBand maps a score range to an outcome.
type RuleBand struct {
	LowerLimit *float64 `json:"lowerLimit,omitempty"`
	UpperLimit *float64 `json:"upperLimit,omitempty"`
	Outcome    string   `json:"outcome"` // ".pass", ".soft", ".hard"
	Reason     string   `json:"reason"`
}

// RuleResult is the output of one custom rule evaluation.
type RuleResult struct {
	RuleID    string  `json:"ruleId"`
	TenantID  string  `json:"tenantId"`
	Outcome   string  `json:"outcome"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason"`
	Weight    float64 `json:"weight"`
	ProcessMs int64   `json:"processMs"`
}

// Predefined rule outcomes. A ".soft" outcome adds a soft flag; ".hard"
// adds a hard flag and therefore blocks.
const (
	RuleOutcomePass  = ".pass"
	RuleOutcomeSoft  = ".soft"
	RuleOutcomeHard  = ".hard"
	RuleOutcomeError = ".err"
)
