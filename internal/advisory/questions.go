package advisory

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Question priorities.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
)

// highImpactCutoff separates HIGH from MEDIUM priority questions by the
// absolute attribution contribution.
const highImpactCutoff = 0.05

// questionRule is one entry in the rule-driven question engine: a predicate
// over the request state and a builder for the question it contributes.
// Rules are evaluated in order; each fires at most once.
type questionRule struct {
	feature string
	match   func(q *questionContext) bool
	build   func(q *questionContext) domain.InterviewQuestion
}

// questionContext is the read-only state the rules evaluate against.
type questionContext struct {
	features domain.ApplicationFeatures
	negative []domain.FeatureAttribution
	fraud    *domain.FraudAssessment
	pd       float64
	asked    map[string]bool
}

// supplementalRules are the context-sensitive questions appended after the
// attribution-driven ones, filling the list up to the total cap.
var supplementalRules = []questionRule{
	{
		feature: "loan_affordability",
		match: func(q *questionContext) bool {
			return q.features.Has(domain.FeatureLoanAmount) &&
				q.features.Has(domain.FeatureLoanDuration) &&
				q.features.Float(domain.FeatureLoanDuration, 0) > 0 &&
				q.features.Float(domain.FeatureMonthlyIncome, 0) > 0 &&
				!q.asked[domain.FeatureLoanDuration]
		},
		build: func(q *questionContext) domain.InterviewQuestion {
			amount := q.features.Float(domain.FeatureLoanAmount, 0)
			duration := q.features.Float(domain.FeatureLoanDuration, 1)
			income := q.features.Float(domain.FeatureMonthlyIncome, 1)
			payment := amount / duration
			ratio := payment / income * 100
			return domain.InterviewQuestion{
				Feature:  "loan_affordability",
				Category: "Loan Terms",
				Priority: PriorityHigh,
				Question: fmt.Sprintf("With a %d-month loan term, your estimated monthly payment would be %.0f, which is %.0f%% of your income. Can you comfortably afford this payment?",
					int(duration), payment, ratio),
				FollowUp: "Confirm payment affordability and commitment",
			}
		},
	},
	{
		feature: "risk_mitigation",
		match: func(q *questionContext) bool {
			return q.pd > 0.25
		},
		build: func(q *questionContext) domain.InterviewQuestion {
			return domain.InterviewQuestion{
				Feature:  "risk_mitigation",
				Category: "Risk Mitigation",
				Priority: PriorityHigh,
				Question: "Based on our analysis, there are some financial risks we've identified. What would make you feel confident about taking on this loan? Are there any co-signers or collateral options you'd consider?",
				FollowUp: "Assess willingness to mitigate identified risks",
			}
		},
	},
	{
		feature: "closing",
		match:   func(q *questionContext) bool { return true },
		build: func(q *questionContext) domain.InterviewQuestion {
			return domain.InterviewQuestion{
				Feature:  "closing",
				Category: "Additional Information",
				Priority: PriorityMedium,
				Question: "Is there anything else about your financial situation, employment, or personal circumstances that we should know about? Any changes coming up in the next 12 months?",
				FollowUp: "Uncover additional context or upcoming changes",
			}
		},
	},
}

// questions runs the consolidated question engine: a fraud-clarification
// question first when a soft flag exists, then knowledge-base questions for
// the negative attributions up to the negative cap, then supplemental rules
// up to the total cap.
func (g *Generator) questions(features domain.ApplicationFeatures, negative []domain.FeatureAttribution, fraud *domain.FraudAssessment, currentPD float64) []domain.InterviewQuestion {
	qc := &questionContext{
		features: features,
		negative: negative,
		fraud:    fraud,
		pd:       currentPD,
		asked:    make(map[string]bool),
	}

	questions := []domain.InterviewQuestion{}
	order := 1

	add := func(q domain.InterviewQuestion) {
		q.Order = order
		order++
		qc.asked[q.Feature] = true
		questions = append(questions, q)
	}

	if fraud != nil && fraud.HasSoftFlag() {
		var soft []string
		for _, f := range fraud.Flags {
			if f.Severity == domain.SeveritySoft {
				soft = append(soft, f.Name)
			}
		}
		add(domain.InterviewQuestion{
			Feature:  "fraud_verification",
			Category: "Verification",
			Priority: PriorityHigh,
			Question: fmt.Sprintf("We noticed some inconsistencies in your application: %s. Can you clarify these?", strings.Join(soft, ", ")),
			FollowUp: "Please provide original or certified documents for verification.",
		})
	}

	for _, a := range negative {
		if len(questions) >= g.cfg.MaxNegativeQuestions {
			break
		}
		entry, ok := g.kb.Lookup(a.Feature)
		if !ok || qc.asked[a.Feature] {
			continue
		}
		priority := PriorityMedium
		if a.Contribution < -highImpactCutoff {
			priority = PriorityHigh
		}
		add(domain.InterviewQuestion{
			Feature:      a.Feature,
			Category:     entry.Category,
			Priority:     priority,
			Question:     entry.Question,
			FollowUp:     entry.FollowUp,
			Contribution: a.Contribution,
		})
	}

	for _, rule := range supplementalRules {
		if len(questions) >= g.cfg.MaxTotalQuestions {
			break
		}
		if qc.asked[rule.feature] || !rule.match(qc) {
			continue
		}
		add(rule.build(qc))
	}

	return questions
}
