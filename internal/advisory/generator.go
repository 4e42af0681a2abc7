package advisory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

const pdEstimateNote = "Estimate assumes all recommended actions are completed. Actual improvement may vary."

// Generator derives the advisory bundle from the attribution list, the fraud
// assessment and the static knowledge base. It holds no mutable state and is
// safe for concurrent use.
type Generator struct {
	kb  domain.KnowledgeBase
	cfg domain.AdvisoryConfig
}

// NewGenerator creates an advisory generator.
func NewGenerator(kb domain.KnowledgeBase, cfg domain.AdvisoryConfig) *Generator {
	if cfg.MaxNegativeQuestions <= 0 {
		cfg.MaxNegativeQuestions = 7
	}
	if cfg.MaxTotalQuestions <= 0 {
		cfg.MaxTotalQuestions = 10
	}
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = 6
	}
	if cfg.MaxActions <= 0 {
		cfg.MaxActions = 6
	}
	if cfg.DocumentSourceDepth <= 0 {
		cfg.DocumentSourceDepth = 4
	}
	return &Generator{kb: kb, cfg: cfg}
}

// Generate builds the full advisory bundle. Works off an empty attribution
// list without error: explanation degrades to a generic message and the
// question/document/action lists come out empty.
func (g *Generator) Generate(features domain.ApplicationFeatures, attrs []domain.FeatureAttribution, fraud *domain.FraudAssessment, currentPD float64) *domain.AdvisoryBundle {
	negative := domain.NegativeAttributions(attrs)
	softFraud := fraud != nil && fraud.HasSoftFlag()

	return &domain.AdvisoryBundle{
		Explanation:        g.explanation(negative, softFraud),
		InterviewQuestions: g.questions(features, negative, fraud, currentPD),
		DocumentsNeeded:    g.documents(negative),
		ImprovementActions: g.actions(negative),
		PDEstimate:         g.estimatePDImprovement(negative, currentPD),
	}
}

// MinimalBundle is the short-circuit output for fraud-blocked applications:
// the explanation names the blocking flags, everything else is empty.
func (g *Generator) MinimalBundle(fraud *domain.FraudAssessment) *domain.AdvisoryBundle {
	names := "inconsistency"
	if fraud != nil && len(fraud.Flags) > 0 {
		names = strings.Join(fraud.FlagNames(), ", ")
	}
	return &domain.AdvisoryBundle{
		Explanation:        fmt.Sprintf("Application blocked due to fraud signal: %s.", names),
		InterviewQuestions: []domain.InterviewQuestion{},
		DocumentsNeeded:    []string{},
		ImprovementActions: []domain.ImprovementAction{},
	}
}

func (g *Generator) explanation(negative []domain.FeatureAttribution, softFraud bool) string {
	if softFraud {
		return "This application requires verification due to document inconsistencies and credit risk factors."
	}

	phrase := func(a domain.FeatureAttribution) string {
		if entry, ok := g.kb.Lookup(a.Feature); ok {
			return entry.Explanation
		}
		return a.Feature
	}

	switch {
	case len(negative) >= 2:
		return fmt.Sprintf("This application is borderline because %s and %s.", phrase(negative[0]), phrase(negative[1]))
	case len(negative) == 1:
		return fmt.Sprintf("This application is borderline primarily because %s.", phrase(negative[0]))
	default:
		return "This application is borderline and requires manual review."
	}
}

func (g *Generator) documents(negative []domain.FeatureAttribution) []string {
	top := negative
	if len(top) > g.cfg.DocumentSourceDepth {
		top = top[:g.cfg.DocumentSourceDepth]
	}

	seen := make(map[string]bool)
	docs := []string{}
	for _, a := range top {
		entry, ok := g.kb.Lookup(a.Feature)
		if !ok {
			continue
		}
		for _, doc := range entry.Documents {
			if seen[doc] {
				continue
			}
			seen[doc] = true
			docs = append(docs, doc)
		}
	}

	if len(docs) > g.cfg.MaxDocuments {
		docs = docs[:g.cfg.MaxDocuments]
	}
	return docs
}

func (g *Generator) actions(negative []domain.FeatureAttribution) []domain.ImprovementAction {
	top := negative
	if len(top) > g.cfg.DocumentSourceDepth {
		top = top[:g.cfg.DocumentSourceDepth]
	}

	seen := make(map[string]bool)
	actions := []domain.ImprovementAction{}
	for _, a := range top {
		entry, ok := g.kb.Lookup(a.Feature)
		if !ok {
			continue
		}
		for _, act := range entry.Actions {
			if seen[act.Text] {
				continue
			}
			seen[act.Text] = true
			actions = append(actions, domain.ImprovementAction{
				Action:      act.Text,
				Feasibility: act.Feasibility,
				Feature:     a.Feature,
				Impact:      a.Contribution,
			})
		}
	}

	// Most risk-increasing contribution first.
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Impact < actions[j].Impact
	})

	if len(actions) > g.cfg.MaxActions {
		actions = actions[:g.cfg.MaxActions]
	}
	return actions
}

// estimatePDImprovement sums the static per-feature weights over the top 5
// negative attributions. The floor keeps the projected PD from dropping
// below a plausible minimum. All figures are percentages.
func (g *Generator) estimatePDImprovement(negative []domain.FeatureAttribution, currentPD float64) domain.PDImprovementEstimate {
	top := negative
	if len(top) > 5 {
		top = top[:5]
	}

	total := 0.0
	for _, a := range top {
		if entry, ok := g.kb.Lookup(a.Feature); ok {
			total += entry.PDImprovement
		}
	}

	potential := currentPD - total
	if potential < 0.03 {
		potential = 0.03
	}

	return domain.PDImprovementEstimate{
		CurrentPD:   domain.Round2(currentPD * 100),
		PotentialPD: domain.Round2(potential * 100),
		Improvement: domain.Round2(total * 100),
		Note:        pdEstimateNote,
	}
}
