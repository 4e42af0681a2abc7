// Package advisory generates the reviewer-facing artifacts for borderline
// applications: narrative explanation, interview questions, document
// requests, improvement actions, and an aggregate PD-improvement estimate.
package advisory

import "github.com/opensource-finance/harrier/internal/domain"

// DefaultKnowledgeBase returns the static per-feature advisory table. Each
// action carries its feasibility explicitly; the generator never derives
// feasibility from the action text.
func DefaultKnowledgeBase() domain.KnowledgeBase {
	return domain.KnowledgeBase{
		domain.FeatureAge: {
			Question:  "You're quite young for this loan amount. Do you have family support or additional assets?",
			FollowUp:  "Can you provide proof of additional financial support?",
			Category:  "Applicant Profile",
			Documents: []string{"Parent/guardian letter of support", "Asset documentation"},
			Actions: []domain.KnowledgeAction{
				{Text: "Add co-signer", Feasibility: domain.FeasibilityImmediate},
				{Text: "Provide proof of assets", Feasibility: domain.FeasibilityImmediate},
				{Text: "Reduce loan amount", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "age is lower than typical approved applicants",
			PDImprovement: 0.005,
		},
		domain.FeatureEducationLevel: {
			Question:  "Your education level may affect income stability. Do you have specialized training or certifications?",
			FollowUp:  "Can you provide certificates or proof of specialized skills?",
			Category:  "Applicant Profile",
			Documents: []string{"Education certificates", "Professional certifications", "Training records"},
			Actions: []domain.KnowledgeAction{
				{Text: "Provide proof of additional qualifications", Feasibility: domain.FeasibilityImmediate},
				{Text: "Show stable employment despite education level", Feasibility: domain.FeasibilityShortTerm},
			},
			Explanation:   "education level is below preferred range",
			PDImprovement: 0.008,
		},
		domain.FeatureEmploymentType: {
			Question:  "Your employment type shows some instability risk. Can you provide more details about job security?",
			FollowUp:  "Do you have an employment contract or letter from employer?",
			Category:  "Employment",
			Documents: []string{"Employment contract", "Employer verification letter", "Pay stubs"},
			Actions: []domain.KnowledgeAction{
				{Text: "Provide employment contract", Feasibility: domain.FeasibilityImmediate},
				{Text: "Add employed co-applicant", Feasibility: domain.FeasibilityImmediate},
				{Text: "Show consistent work history", Feasibility: domain.FeasibilityShortTerm},
			},
			Explanation:   "employment type carries higher risk",
			PDImprovement: 0.012,
		},
		domain.FeatureEmploymentYears: {
			Question:  "You've been in your current job for a short time. Have you had consistent employment before?",
			FollowUp:  "Can you provide proof of previous stable employment?",
			Category:  "Employment",
			Documents: []string{"Previous employment letters", "HR verification", "Work history"},
			Actions: []domain.KnowledgeAction{
				{Text: "Provide industry experience proof", Feasibility: domain.FeasibilityImmediate},
				{Text: "Wait 6 months and reapply", Feasibility: domain.FeasibilityLongTerm},
				{Text: "Add co-applicant", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "employment duration is shorter than preferred",
			PDImprovement: 0.015,
		},
		domain.FeatureMonthlyIncome: {
			Question:  "Your monthly income appears low relative to the loan request. Do you have additional income sources?",
			FollowUp:  "Can you provide proof of additional income?",
			Category:  "Income",
			Documents: []string{"Bank statements (3 months)", "Tax returns", "Side income proof", "Investment income"},
			Actions: []domain.KnowledgeAction{
				{Text: "Document all income sources", Feasibility: domain.FeasibilityImmediate},
				{Text: "Add co-applicant with income", Feasibility: domain.FeasibilityImmediate},
				{Text: "Reduce loan amount by 25%", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "monthly income is below typical range for this loan",
			PDImprovement: 0.020,
		},
		domain.FeatureFixedExpenses: {
			Question:  "Your fixed expenses are high. Can you reduce any recurring costs?",
			FollowUp:  "Are there any expenses you can cut or debts to consolidate?",
			Category:  "Expenses",
			Documents: []string{"Expense breakdown", "Budget plan", "Debt consolidation plan"},
			Actions: []domain.KnowledgeAction{
				{Text: "Reduce discretionary spending", Feasibility: domain.FeasibilityShortTerm},
				{Text: "Consolidate debts", Feasibility: domain.FeasibilityShortTerm},
				{Text: "Cancel unused subscriptions", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "monthly fixed expenses are high relative to income",
			PDImprovement: 0.010,
		},
		domain.FeatureDebtToIncome: {
			Question:  "Your debt-to-income ratio is high. Are any debts close to being paid off?",
			FollowUp:  "Can you provide payoff letters or consolidation plan?",
			Category:  "Debt",
			Documents: []string{"Current debt statements", "Payoff letters", "Debt consolidation plan"},
			Actions: []domain.KnowledgeAction{
				{Text: "Pay down credit card debt", Feasibility: domain.FeasibilityShortTerm},
				{Text: "Consolidate high-interest debt", Feasibility: domain.FeasibilityShortTerm},
				{Text: "Reduce loan amount by 20%", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "monthly debt obligations are high relative to income",
			PDImprovement: 0.025,
		},
		domain.FeatureSavingsBalance: {
			Question:  "Your savings are lower than recommended. Do you have other assets or emergency funds?",
			FollowUp:  "Can you show other financial reserves or assets?",
			Category:  "Financial Stability",
			Documents: []string{"Additional bank statements", "Investment account statements", "Asset documentation"},
			Actions: []domain.KnowledgeAction{
				{Text: "Build savings for 3 months", Feasibility: domain.FeasibilityLongTerm},
				{Text: "Provide proof of other assets", Feasibility: domain.FeasibilityImmediate},
				{Text: "Add co-applicant with savings", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "savings cushion is below recommended level",
			PDImprovement: 0.015,
		},
		domain.FeatureLoanAmount: {
			Question:  "The requested loan amount is high relative to your income. Can you reduce it?",
			FollowUp:  "What is the minimum amount you actually need?",
			Category:  "Loan Purpose",
			Documents: []string{"Revised loan application", "Detailed budget showing necessity"},
			Actions: []domain.KnowledgeAction{
				{Text: "Reduce loan by 20-30%", Feasibility: domain.FeasibilityImmediate},
				{Text: "Provide collateral", Feasibility: domain.FeasibilityShortTerm},
				{Text: "Add co-borrower with income", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "requested loan amount is high relative to financial capacity",
			PDImprovement: 0.020,
		},
		domain.FeatureLoanDuration: {
			Question:  "The loan duration you've requested may strain your budget. Can you extend or shorten it?",
			FollowUp:  "Have you calculated different payment scenarios?",
			Category:  "Loan Terms",
			Documents: []string{"Budget projection", "Payment schedule analysis"},
			Actions: []domain.KnowledgeAction{
				{Text: "Adjust loan term for lower payments", Feasibility: domain.FeasibilityImmediate},
				{Text: "Reduce loan amount instead", Feasibility: domain.FeasibilityImmediate},
				{Text: "Show ability to handle payments", Feasibility: domain.FeasibilityShortTerm},
			},
			Explanation:   "loan duration may not align optimally with financial capacity",
			PDImprovement: 0.008,
		},
		domain.FeatureLoanPurpose: {
			Question:  "Can you provide more details about how you'll use this loan?",
			FollowUp:  "Do you have documentation supporting this purpose?",
			Category:  "Loan Purpose",
			Documents: []string{"Invoices", "Quotes", "Business plan", "Purchase agreement"},
			Actions: []domain.KnowledgeAction{
				{Text: "Provide detailed purpose documentation", Feasibility: domain.FeasibilityImmediate},
				{Text: "Show how loan improves income", Feasibility: domain.FeasibilityShortTerm},
				{Text: "Demonstrate ROI", Feasibility: domain.FeasibilityShortTerm},
			},
			Explanation:   "loan purpose carries higher risk",
			PDImprovement: 0.010,
		},
		domain.FeatureCreditScore: {
			Question:  "Your credit score is below preferred levels. Have you had recent financial difficulties?",
			FollowUp:  "Can you explain any negative items on your credit report?",
			Category:  "Credit History",
			Documents: []string{"Credit report", "Explanation letter", "Proof of resolved debts", "Payment plans"},
			Actions: []domain.KnowledgeAction{
				{Text: "Dispute credit report errors", Feasibility: domain.FeasibilityShortTerm},
				{Text: "Pay off collections", Feasibility: domain.FeasibilityShortTerm},
				{Text: "Show recent on-time payments", Feasibility: domain.FeasibilityShortTerm},
			},
			Explanation:   "credit score is below the preferred threshold",
			PDImprovement: 0.020,
		},
		domain.FeatureLatePayments12m: {
			Question:  "You have some late payments in the last 12 months. What caused these delays?",
			FollowUp:  "Have your circumstances improved since then?",
			Category:  "Payment History",
			Documents: []string{"Explanation letter", "Recent on-time payment proof", "Employment verification"},
			Actions: []domain.KnowledgeAction{
				{Text: "Show 6 months of on-time payments", Feasibility: domain.FeasibilityLongTerm},
				{Text: "Set up autopay", Feasibility: domain.FeasibilityImmediate},
				{Text: "Provide circumstantial explanation", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "recent payment history shows some delays",
			PDImprovement: 0.015,
		},
		domain.FeatureMissedPayments12m: {
			Question:  "You missed some payments recently. Were these due to temporary circumstances?",
			FollowUp:  "Can you demonstrate improved payment behavior?",
			Category:  "Payment History",
			Documents: []string{"Explanation letter", "Proof of resolved situation", "Recent payment history"},
			Actions: []domain.KnowledgeAction{
				{Text: "Show improved payment pattern", Feasibility: domain.FeasibilityLongTerm},
				{Text: "Explain one-time circumstances", Feasibility: domain.FeasibilityImmediate},
				{Text: "Provide guarantor", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "missed payments in the last year raise concerns",
			PDImprovement: 0.020,
		},
		domain.FeatureUtilityOnTimeRatio: {
			Question:  "Your utility payment history shows some delays. Were there specific circumstances?",
			FollowUp:  "Can you show recent on-time payments?",
			Category:  "Payment History",
			Documents: []string{"Recent utility bills (3 months)", "Payment receipts", "Autopay setup confirmation"},
			Actions: []domain.KnowledgeAction{
				{Text: "Set up autopay for all utilities", Feasibility: domain.FeasibilityImmediate},
				{Text: "Show 3 months on-time payments", Feasibility: domain.FeasibilityShortTerm},
				{Text: "Provide explanation", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "utility payment history shows inconsistency",
			PDImprovement: 0.010,
		},
		domain.FeatureIncomeInflation: {
			Question:  "There's a discrepancy between your stated and expected income. Can you clarify?",
			FollowUp:  "Do you have official documentation of your actual income?",
			Category:  "Verification",
			Documents: []string{"Official pay stubs", "Tax returns", "Employer letter", "Bank statements"},
			Actions: []domain.KnowledgeAction{
				{Text: "Provide official income documentation", Feasibility: domain.FeasibilityImmediate},
				{Text: "Explain income variations", Feasibility: domain.FeasibilityImmediate},
				{Text: "Correct any errors", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "declared income differs from expected income patterns",
			PDImprovement: 0.015,
		},
		domain.FeatureDocumentMismatch: {
			Question:  "We noticed some inconsistencies in your submitted documents. Can you clarify these?",
			FollowUp:  "Can you provide original or certified copies?",
			Category:  "Verification",
			Documents: []string{"Original documents", "Certified copies", "Additional verification"},
			Actions: []domain.KnowledgeAction{
				{Text: "Resubmit documents", Feasibility: domain.FeasibilityImmediate},
				{Text: "Provide additional verification", Feasibility: domain.FeasibilityImmediate},
				{Text: "Explain discrepancies", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "submitted documents show some inconsistencies",
			PDImprovement: 0.015,
		},
		domain.FeatureApplicationVelocity: {
			Question:  "You've applied for multiple loans recently. Why do you need multiple loans?",
			FollowUp:  "Are you in financial distress?",
			Category:  "Verification",
			Documents: []string{"Explanation letter", "Financial situation overview", "Debt management plan"},
			Actions: []domain.KnowledgeAction{
				{Text: "Explain multiple applications", Feasibility: domain.FeasibilityImmediate},
				{Text: "Consolidate loan requests", Feasibility: domain.FeasibilityShortTerm},
				{Text: "Wait before reapplying", Feasibility: domain.FeasibilityLongTerm},
			},
			Explanation:   "high number of recent applications raises concerns",
			PDImprovement: 0.010,
		},
		domain.FeatureGeoLocationMismatch: {
			Question:  "Your location information shows inconsistencies. Can you clarify your current address?",
			FollowUp:  "Do you have utility bills or proof of current residence?",
			Category:  "Verification",
			Documents: []string{"Utility bill with current address", "Rental agreement", "ID with current address"},
			Actions: []domain.KnowledgeAction{
				{Text: "Update address information", Feasibility: domain.FeasibilityImmediate},
				{Text: "Provide residence proof", Feasibility: domain.FeasibilityImmediate},
				{Text: "Explain relocations", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "location information shows inconsistencies",
			PDImprovement: 0.012,
		},
		domain.FeatureMetadataAnomaly: {
			Question:  "We detected some unusual patterns in your application. Can you provide additional verification?",
			FollowUp:  "Can you come in person for verification?",
			Category:  "Verification",
			Documents: []string{"Government ID", "Additional verification documents", "In-person verification"},
			Actions: []domain.KnowledgeAction{
				{Text: "Visit branch for verification", Feasibility: domain.FeasibilityShortTerm},
				{Text: "Provide additional documents", Feasibility: domain.FeasibilityImmediate},
				{Text: "Verify identity", Feasibility: domain.FeasibilityImmediate},
			},
			Explanation:   "application metadata shows unusual patterns",
			PDImprovement: 0.015,
		},
	}
}
