package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "harrier-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetApplication", func(t *testing.T) {
		app := &domain.Application{
			ID:          "app-001",
			ApplicantID: "applicant-001",
			Features: domain.ApplicationFeatures{
				"monthly_income": 4200.0,
				"credit_score":   710.0,
				"loan_purpose":   "home_improvement",
			},
			SubmittedAt: time.Now().UTC(),
			CreatedAt:   time.Now().UTC(),
		}

		if err := repo.SaveApplication(ctx, tenantID, app); err != nil {
			t.Fatalf("SaveApplication failed: %v", err)
		}

		retrieved, err := repo.GetApplication(ctx, tenantID, app.ID)
		if err != nil {
			t.Fatalf("GetApplication failed: %v", err)
		}

		if retrieved.ID != app.ID {
			t.Errorf("expected ID %s, got %s", app.ID, retrieved.ID)
		}
		if retrieved.ApplicantID != app.ApplicantID {
			t.Errorf("expected ApplicantID %s, got %s", app.ApplicantID, retrieved.ApplicantID)
		}
		if retrieved.TenantID != tenantID {
			t.Errorf("expected TenantID %s, got %s", tenantID, retrieved.TenantID)
		}
		if got := retrieved.Features.Float("monthly_income", 0); got != 4200.0 {
			t.Errorf("expected monthly_income 4200, got %.2f", got)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		otherTenant := "tenant-002"

		// Try to get an application from a different tenant
		_, err := repo.GetApplication(ctx, otherTenant, "app-001")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound for different tenant, got: %v", err)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		app := &domain.Application{ID: "app-test"}

		err := repo.SaveApplication(ctx, "", app)
		if err == nil {
			t.Error("expected error for empty tenantID")
		}

		_, err = repo.GetApplication(ctx, "", "app-001")
		if err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("CountApplicationsByApplicant", func(t *testing.T) {
		// A second application for the same applicant
		app2 := &domain.Application{
			ID:          "app-002",
			ApplicantID: "applicant-001",
			Features:    domain.ApplicationFeatures{"monthly_income": 4200.0},
			SubmittedAt: time.Now().UTC(),
			CreatedAt:   time.Now().UTC(),
		}

		if err := repo.SaveApplication(ctx, tenantID, app2); err != nil {
			t.Fatalf("SaveApplication failed: %v", err)
		}

		since := time.Now().Add(-1 * time.Hour)
		count, err := repo.CountApplicationsByApplicant(ctx, tenantID, "applicant-001", since)
		if err != nil {
			t.Fatalf("CountApplicationsByApplicant failed: %v", err)
		}

		if count != 2 {
			t.Errorf("expected 2 applications, got %d", count)
		}

		// A window starting in the future matches nothing
		count, err = repo.CountApplicationsByApplicant(ctx, tenantID, "applicant-001", time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("CountApplicationsByApplicant failed: %v", err)
		}
		if count != 0 {
			t.Errorf("expected 0 applications for future window, got %d", count)
		}
	})

	t.Run("SaveAndGetAnalysis", func(t *testing.T) {
		result := &domain.AnalysisResult{
			ID:            "analysis-001",
			ApplicationID: "app-001",
			Decision:      domain.DecisionManualReview,
			RiskBand:      domain.BandMiddle,
			PDPercent:     45.0,
			Fraud: domain.FraudAssessment{
				Decision:   domain.FraudPass,
				FraudScore: 0.15,
				Flags: []domain.FraudFlag{
					{Name: "geo_location_mismatch", Severity: domain.SeveritySoft},
				},
			},
			Timestamp: time.Now().UTC(),
			Metadata:  domain.AnalysisMetadata{TraceID: "trace-001"},
		}

		if err := repo.SaveAnalysis(ctx, tenantID, result); err != nil {
			t.Fatalf("SaveAnalysis failed: %v", err)
		}

		retrieved, err := repo.GetAnalysis(ctx, tenantID, result.ID)
		if err != nil {
			t.Fatalf("GetAnalysis failed: %v", err)
		}

		if retrieved.ID != result.ID {
			t.Errorf("expected ID %s, got %s", result.ID, retrieved.ID)
		}
		if retrieved.Decision != result.Decision {
			t.Errorf("expected Decision %s, got %s", result.Decision, retrieved.Decision)
		}
		if retrieved.PDPercent != result.PDPercent {
			t.Errorf("expected PDPercent %.2f, got %.2f", result.PDPercent, retrieved.PDPercent)
		}
		if len(retrieved.Fraud.Flags) != 1 {
			t.Errorf("expected 1 fraud flag, got %d", len(retrieved.Fraud.Flags))
		}
	})

	t.Run("SaveAndGetRuleConfig", func(t *testing.T) {
		upper := 1.0
		rule := &domain.RuleConfig{
			ID:         "rule-001",
			Name:       "stated income ceiling",
			Version:    "1.0",
			Expression: "monthly_income > 50000.0 ? 1.0 : 0.0",
			Bands: []domain.RuleBand{
				{UpperLimit: &upper, Outcome: domain.RuleOutcomePass, Reason: "income plausible"},
				{LowerLimit: &upper, Outcome: domain.RuleOutcomeSoft, Reason: "implausible stated income"},
			},
			Weight:  0.15,
			Enabled: true,
		}

		if err := repo.SaveRuleConfig(ctx, tenantID, rule); err != nil {
			t.Fatalf("SaveRuleConfig failed: %v", err)
		}

		retrieved, err := repo.GetRuleConfig(ctx, tenantID, rule.ID)
		if err != nil {
			t.Fatalf("GetRuleConfig failed: %v", err)
		}

		if retrieved.Expression != rule.Expression {
			t.Errorf("expected Expression %q, got %q", rule.Expression, retrieved.Expression)
		}
		if len(retrieved.Bands) != 2 {
			t.Errorf("expected 2 bands, got %d", len(retrieved.Bands))
		}
		if retrieved.Weight != rule.Weight {
			t.Errorf("expected Weight %.2f, got %.2f", rule.Weight, retrieved.Weight)
		}

		configs, err := repo.ListRuleConfigs(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListRuleConfigs failed: %v", err)
		}
		if len(configs) != 1 {
			t.Errorf("expected 1 rule config, got %d", len(configs))
		}
	})

	t.Run("DisabledRuleNotReturned", func(t *testing.T) {
		rule := &domain.RuleConfig{
			ID:         "rule-002",
			Name:       "disabled rule",
			Version:    "1.0",
			Expression: "0.0",
			Enabled:    false,
		}

		if err := repo.SaveRuleConfig(ctx, tenantID, rule); err != nil {
			t.Fatalf("SaveRuleConfig failed: %v", err)
		}

		if _, err := repo.GetRuleConfig(ctx, tenantID, rule.ID); err != ErrNotFound {
			t.Errorf("expected ErrNotFound for disabled rule, got: %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetApplication(ctx, tenantID, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}

		_, err = repo.GetAnalysis(ctx, tenantID, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
