// Package classifier adapts an approval model to the decision pipeline:
// it resolves the approve-class index from the model's class labels and
// turns the probability vector into approve/default probabilities.
package classifier

import (
	"context"
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Scorer wraps a Classifier and knows which probability column is the
// approve class. The index is resolved once at construction: the position
// of label 1 in Classes(), falling back to index 1 when the labels do not
// contain it or the model exposes no labels.
type Scorer struct {
	clf        domain.Classifier
	approveIdx int
}

// NewScorer creates a scorer for the given classifier.
func NewScorer(clf domain.Classifier) *Scorer {
	idx := 1
	if classes := clf.Classes(); len(classes) > 0 {
		for i, c := range classes {
			if c == 1 {
				idx = i
				break
			}
		}
	}
	return &Scorer{clf: clf, approveIdx: idx}
}

// Score returns the approve probability for one feature vector. Any model
// failure, including a probability vector too short to contain the approve
// class, is returned as a ClassifierError: without a probability there is
// no decision to make.
func (s *Scorer) Score(ctx context.Context, features domain.ApplicationFeatures) (float64, error) {
	proba, err := s.clf.PredictProba(ctx, features)
	if err != nil {
		return 0, &domain.ClassifierError{Err: err}
	}
	if s.approveIdx >= len(proba) {
		return 0, &domain.ClassifierError{
			Err: fmt.Errorf("probability vector has %d classes, approve index is %d", len(proba), s.approveIdx),
		}
	}

	p := proba[s.approveIdx]
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p, nil
}
