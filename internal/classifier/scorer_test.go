package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

type fakeClassifier struct {
	classes []int
	proba   []float64
	err     error
}

func (f *fakeClassifier) PredictProba(ctx context.Context, features domain.ApplicationFeatures) ([]float64, error) {
	return f.proba, f.err
}

func (f *fakeClassifier) Classes() []int { return f.classes }

func TestApproveIndexResolution(t *testing.T) {
	tests := []struct {
		name    string
		classes []int
		proba   []float64
		want    float64
	}{
		{"approve class last", []int{0, 1}, []float64{0.3, 0.7}, 0.7},
		{"approve class first", []int{1, 0}, []float64{0.8, 0.2}, 0.8},
		{"no label one falls back to index 1", []int{2, 3}, []float64{0.4, 0.6}, 0.6},
		{"no labels falls back to index 1", nil, []float64{0.1, 0.9}, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScorer(&fakeClassifier{classes: tt.classes, proba: tt.proba})

			got, err := s.Score(context.Background(), domain.ApplicationFeatures{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestScoreWrapsModelError(t *testing.T) {
	s := NewScorer(&fakeClassifier{classes: []int{0, 1}, err: errors.New("inference failed")})

	_, err := s.Score(context.Background(), domain.ApplicationFeatures{})
	if err == nil {
		t.Fatal("expected error")
	}

	var clfErr *domain.ClassifierError
	if !errors.As(err, &clfErr) {
		t.Errorf("expected ClassifierError, got %T", err)
	}
}

func TestScoreShortProbabilityVector(t *testing.T) {
	s := NewScorer(&fakeClassifier{classes: []int{0, 1}, proba: []float64{1.0}})

	_, err := s.Score(context.Background(), domain.ApplicationFeatures{})
	if err == nil {
		t.Fatal("expected error for short probability vector")
	}

	var clfErr *domain.ClassifierError
	if !errors.As(err, &clfErr) {
		t.Errorf("expected ClassifierError, got %T", err)
	}
}

func TestScoreClampsProbability(t *testing.T) {
	s := NewScorer(&fakeClassifier{classes: []int{0, 1}, proba: []float64{-0.1, 1.1}})

	got, err := s.Score(context.Background(), domain.ApplicationFeatures{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1.0 {
		t.Errorf("expected clamp to 1.0, got %f", got)
	}
}

func TestScorecardMonotonicity(t *testing.T) {
	base := domain.ApplicationFeatures{
		"monthly_income":         4000.0,
		"fixed_monthly_expenses": 2000.0,
		"debt_to_income_ratio":   0.35,
		"credit_score":           650,
		"savings_balance":        5000.0,
		"employment_years":       3,
		"loan_amount":            20000.0,
		"loan_duration_months":   36,
	}

	pBase := scorecard(base)

	// Higher income must not lower the approve probability.
	if p := scorecard(base.With("monthly_income", 6000.0)); p < pBase {
		t.Errorf("income increase lowered approve probability: %f < %f", p, pBase)
	}

	// Higher DTI must not raise it.
	if p := scorecard(base.With("debt_to_income_ratio", 0.60)); p > pBase {
		t.Errorf("DTI increase raised approve probability: %f > %f", p, pBase)
	}

	// Better credit must not lower it.
	if p := scorecard(base.With("credit_score", 750)); p < pBase {
		t.Errorf("credit increase lowered approve probability: %f < %f", p, pBase)
	}
}
