package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opensource-finance/harrier/internal/advisory"
	"github.com/opensource-finance/harrier/internal/counterfactual"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/explain"
	"github.com/opensource-finance/harrier/internal/fraud"
	"github.com/opensource-finance/harrier/internal/policy"
)

// fixedScorer returns a fixed approve probability regardless of features.
type fixedScorer struct {
	p   float64
	err error
}

func (s *fixedScorer) Score(ctx context.Context, f domain.ApplicationFeatures) (float64, error) {
	return s.p, s.err
}

// fixedExplainer returns a fixed raw attribution list.
type fixedExplainer struct {
	raw []domain.RawAttribution
}

func (e *fixedExplainer) Explain(ctx context.Context, f domain.ApplicationFeatures, n int) ([]domain.RawAttribution, error) {
	return e.raw, nil
}

func newTestPipeline(scorer Scorer, explainer domain.Explainer) *Pipeline {
	cfg := domain.DefaultConfig()
	return New(
		fraud.NewDetector(cfg.Fraud, nil),
		scorer,
		explain.NewAdapter(explainer, cfg.Explain, nil),
		policy.New(cfg.Policy),
		advisory.NewGenerator(advisory.DefaultKnowledgeBase(), cfg.Advisory),
		counterfactual.NewSuggester(scorer, cfg.Counterfactual, nil),
	)
}

func analyze(t *testing.T, p *Pipeline, features domain.ApplicationFeatures) *domain.AnalysisResult {
	t.Helper()
	result, err := p.Analyze(context.Background(), &AnalyzeInput{
		Application: &domain.Application{
			ID:          "app-001",
			TenantID:    "tenant-001",
			ApplicantID: "applicant-001",
			Features:    features,
		},
		TraceID: "trace-001",
	})
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return result
}

func TestFraudBlockOverridesHighApproveProbability(t *testing.T) {
	p := newTestPipeline(&fixedScorer{p: 0.90}, &fixedExplainer{})

	result := analyze(t, p, domain.ApplicationFeatures{
		"document_mismatch_flag": 1,
		"monthly_income":         5000.0,
	})

	if result.Decision != domain.DecisionBlockedFraud {
		t.Errorf("expected BLOCKED_FRAUD, got %s", result.Decision)
	}
	if len(result.Advisory.InterviewQuestions) != 0 {
		t.Errorf("expected no questions for blocked application, got %d", len(result.Advisory.InterviewQuestions))
	}
	if len(result.Advisory.DocumentsNeeded) != 0 {
		t.Errorf("expected no documents for blocked application, got %d", len(result.Advisory.DocumentsNeeded))
	}
	if len(result.Attributions) != 0 {
		t.Errorf("expected no attributions for blocked application, got %d", len(result.Attributions))
	}
	if len(result.Suggestions) != 0 {
		t.Errorf("expected no suggestions for blocked application, got %d", len(result.Suggestions))
	}
}

func TestCleanHighProbabilityApproved(t *testing.T) {
	p := newTestPipeline(&fixedScorer{p: 0.85}, &fixedExplainer{})

	result := analyze(t, p, domain.ApplicationFeatures{
		"monthly_income":         5000.0,
		"fixed_monthly_expenses": 2000.0,
	})

	if result.Decision != domain.DecisionApproved {
		t.Errorf("expected APPROVED, got %s", result.Decision)
	}
	if result.RiskBand != domain.BandApproved {
		t.Errorf("expected APPROVED band, got %s", result.RiskBand)
	}
	if result.PDPercent != 15.0 {
		t.Errorf("expected PD 15%%, got %f", result.PDPercent)
	}
	if result.Fraud.Decision != domain.FraudPass {
		t.Errorf("expected fraud PASS, got %s", result.Fraud.Decision)
	}
}

func TestMiddleBandManualReviewWithAdvisory(t *testing.T) {
	explainer := &fixedExplainer{raw: []domain.RawAttribution{
		{Descriptor: "debt_to_income_ratio > 0.5", Weight: -0.08},
		{Descriptor: "credit_score <= 620", Weight: -0.05},
		{Descriptor: "monthly_income <= 3000", Weight: 0.03},
	}}
	p := newTestPipeline(&fixedScorer{p: 0.55}, explainer)

	result := analyze(t, p, domain.ApplicationFeatures{
		"monthly_income":       3000.0,
		"debt_to_income_ratio": 0.55,
		"credit_score":         610.0,
	})

	if result.Decision != domain.DecisionManualReview {
		t.Errorf("expected MANUAL_REVIEW, got %s", result.Decision)
	}
	if result.RiskBand != domain.BandMiddle {
		t.Errorf("expected MIDDLE band, got %s", result.RiskBand)
	}

	// Explanation references the top negative attributions.
	expl := result.Advisory.Explanation
	if expl == "" {
		t.Fatal("expected explanation for borderline application")
	}

	qs := result.Advisory.InterviewQuestions
	if len(qs) == 0 || len(qs) > 10 {
		t.Errorf("expected 1..10 questions, got %d", len(qs))
	}

	if len(result.Attributions) != 3 {
		t.Fatalf("expected 3 attributions, got %d", len(result.Attributions))
	}
	if result.Attributions[0].Feature != "debt_to_income_ratio" {
		t.Errorf("expected strongest attribution first, got %s", result.Attributions[0].Feature)
	}
}

func TestLowProbabilityRejected(t *testing.T) {
	p := newTestPipeline(&fixedScorer{p: 0.30}, &fixedExplainer{})

	result := analyze(t, p, domain.ApplicationFeatures{"monthly_income": 2000.0})

	if result.Decision != domain.DecisionRejected {
		t.Errorf("expected REJECTED, got %s", result.Decision)
	}
	if result.RiskBand != domain.BandRejected {
		t.Errorf("expected REJECTED band, got %s", result.RiskBand)
	}
}

func TestClassifierFailureIsHard(t *testing.T) {
	p := newTestPipeline(&fixedScorer{err: &domain.ClassifierError{Err: errors.New("model unavailable")}}, &fixedExplainer{})

	_, err := p.Analyze(context.Background(), &AnalyzeInput{
		Application: &domain.Application{ID: "app-001", TenantID: "t1", Features: domain.ApplicationFeatures{}},
	})
	if err == nil {
		t.Fatal("expected hard failure when classifier errors")
	}

	var clfErr *domain.ClassifierError
	if !errors.As(err, &clfErr) {
		t.Errorf("expected ClassifierError, got %T", err)
	}
}

func TestResultMetadataAndSnapshot(t *testing.T) {
	p := newTestPipeline(&fixedScorer{p: 0.55}, &fixedExplainer{})

	result := analyze(t, p, domain.ApplicationFeatures{
		"monthly_income":       3200.0,
		"loan_amount":          15000.0,
		"loan_duration_months": 24.0,
	})

	if result.ID == "" {
		t.Error("expected generated analysis ID")
	}
	if result.Metadata.EngineVersion != EngineVersion {
		t.Errorf("unexpected engine version %q", result.Metadata.EngineVersion)
	}
	if result.Metadata.TraceID != "trace-001" {
		t.Errorf("expected trace ID propagated, got %q", result.Metadata.TraceID)
	}

	snap := result.FeatureSnapshot
	if snap["monthly_income"] != 3200.0 {
		t.Errorf("expected income in snapshot, got %v", snap["monthly_income"])
	}
	if _, ok := snap["loan_purpose"]; ok {
		t.Error("absent features must not appear in snapshot")
	}

	if result.ApproveThreshold != 0.70 || result.RejectThreshold != 0.40 {
		t.Errorf("expected thresholds echoed, got %f/%f", result.ApproveThreshold, result.RejectThreshold)
	}
}

func TestSummaryNamesBlockingFlags(t *testing.T) {
	p := newTestPipeline(&fixedScorer{p: 0.90}, &fixedExplainer{})

	result := analyze(t, p, domain.ApplicationFeatures{"is_fraud": 1})

	if result.Summary == "" {
		t.Fatal("expected summary")
	}
	if result.Decision != domain.DecisionBlockedFraud {
		t.Fatalf("expected BLOCKED_FRAUD, got %s", result.Decision)
	}
	if want := "explicit_fraud_label"; !strings.Contains(result.Summary, want) {
		t.Errorf("summary %q does not name flag %s", result.Summary, want)
	}
}
