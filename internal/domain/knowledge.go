package domain

// Feasibility buckets an improvement action by how quickly an applicant can
// complete it. Stored explicitly per action in the knowledge base rather
// than derived from the action text.
type Feasibility string

const (
	FeasibilityImmediate Feasibility = "immediate"
	FeasibilityShortTerm Feasibility = "short-term"
	FeasibilityLongTerm  Feasibility = "long-term"
)

// KnowledgeAction is one candidate improvement action with its feasibility.
type KnowledgeAction struct {
	Text        string      `json:"text"`
	Feasibility Feasibility `json:"feasibility"`
}

// FeatureKnowledgeEntry is the static advisory knowledge for one feature:
// interview templates, document requests, candidate actions, the phrase used
// in explanation text, and the approximate PD improvement if the underlying
// issue is fixed. Loaded once at process start, never mutated.
type FeatureKnowledgeEntry struct {
	Question    string            `json:"question"`
	FollowUp    string            `json:"followUp"`
	Category    string            `json:"category"`
	Documents   []string          `json:"documents"`
	Actions     []KnowledgeAction `json:"actions"`
	Explanation string            `json:"explanation"`

	// PDImprovement is the static percentage-point improvement estimate
	// (0.025 = 2.5 points) used by the advisory aggregate.
	PDImprovement float64 `json:"pdImprovement"`
}

// KnowledgeBase maps feature names to their advisory knowledge.
type KnowledgeBase map[string]FeatureKnowledgeEntry

// Lookup returns the entry for a feature, if present.
func (kb KnowledgeBase) Lookup(feature string) (FeatureKnowledgeEntry, bool) {
	e, ok := kb[feature]
	return e, ok
}
