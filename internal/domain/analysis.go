package domain

import (
	"math"
	"time"
)

// InterviewQuestion is one generated loan-officer question.
type InterviewQuestion struct {
	Order        int     `json:"order"`
	Question     string  `json:"question"`
	Feature      string  `json:"feature"`
	FollowUp     string  `json:"followUp,omitempty"`
	Category     string  `json:"category,omitempty"`
	Priority     string  `json:"priority,omitempty"`
	Contribution float64 `json:"contribution,omitempty"`
}

// ImprovementAction is one knowledge-base action the applicant can take.
type ImprovementAction struct {
	Action      string      `json:"action"`
	Feasibility Feasibility `json:"feasibility"`
	Feature     string      `json:"feature"`
	Impact      float64     `json:"impact"` // originating attribution contribution
}

// PDImprovementEstimate is the knowledge-base aggregate estimate: summed
// static per-feature weights over the top negative attributions. It is
// reported alongside, and independently of, the counterfactual suggestions.
type PDImprovementEstimate struct {
	CurrentPD   float64 `json:"currentPd"`
	PotentialPD float64 `json:"potentialPd"`
	Improvement float64 `json:"improvement"`
	Note        string  `json:"note"`
}

// ImprovementSuggestion is one counterfactual what-if result: a single
// feature perturbed per the fixed catalog, re-scored, and kept only when the
// PD improvement is material.
type ImprovementSuggestion struct {
	Feature      string      `json:"feature"`
	CurrentValue float64     `json:"currentValue"`
	Suggestion   string      `json:"suggestion"`
	ProjectedPD  float64     `json:"projectedPd"`
	PDReduction  float64     `json:"pdReduction"` // percent of baseline PD
	Feasibility  Feasibility `json:"feasibility"`
	ImpactScore  float64     `json:"impactScore"`
}

// AdvisoryBundle holds everything the borderline advisor produces.
type AdvisoryBundle struct {
	Explanation        string                `json:"explanation"`
	InterviewQuestions []InterviewQuestion   `json:"interviewQuestions"`
	DocumentsNeeded    []string              `json:"documentsNeeded"`
	ImprovementActions []ImprovementAction   `json:"improvementActions"`
	PDEstimate         PDImprovementEstimate `json:"pdImprovementEstimate"`
}

// AnalysisMetadata carries processing information for auditability.
type AnalysisMetadata struct {
	TraceID       string `json:"traceId"`
	FraudMs       int64  `json:"fraudMs"`
	ScoringMs     int64  `json:"scoringMs"`
	ExplainMs     int64  `json:"explainMs"`
	AdvisoryMs    int64  `json:"advisoryMs"`
	TotalMs       int64  `json:"totalMs"`
	EngineVersion string `json:"engineVersion"`
}

// AnalysisResult is the complete, auditable outcome for one application.
type AnalysisResult struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenantId"`
	ApplicationID string `json:"applicationId"`

	Decision Decision `json:"decision"`
	RiskBand RiskBand `json:"riskBand"`

	// PD as a percentage, rounded to 2 decimals.
	PDPercent float64 `json:"pdPercent"`

	// Approve probability as a percentage, with the thresholds it was
	// banded against.
	ApproveProbabilityPercent float64 `json:"approveProbabilityPercent"`
	ApproveThreshold          float64 `json:"approveThreshold"`
	RejectThreshold           float64 `json:"rejectThreshold"`

	Fraud        FraudAssessment      `json:"fraud"`
	Attributions []FeatureAttribution `json:"attributions"`

	Summary  string         `json:"summary"`
	Advisory AdvisoryBundle `json:"advisory"`

	// Counterfactual what-if results, independent of Advisory.PDEstimate.
	Suggestions []ImprovementSuggestion `json:"improvementSuggestions"`

	FeatureSnapshot map[string]any `json:"featureSnapshot,omitempty"`

	Timestamp time.Time        `json:"timestamp"`
	Metadata  AnalysisMetadata `json:"metadata"`
}

// Round2 rounds to 2 decimal places, for percentage reporting.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
