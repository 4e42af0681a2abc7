package domain

import (
	"context"
	"fmt"
)

// Classifier is the injected approval model. Implementations must be safe
// for concurrent read-only use; the host owns the lifecycle.
type Classifier interface {
	// PredictProba returns the per-class probability mass for one feature
	// vector, in the classifier's fixed class order.
	PredictProba(ctx context.Context, features ApplicationFeatures) ([]float64, error)

	// Classes returns the class labels in probability order. The adapter
	// resolves the approve-class index from this once.
	Classes() []int
}

// RawAttribution is one (descriptor, weight) pair straight from the
// explainer, before normalization.
type RawAttribution struct {
	Descriptor string
	Weight     float64
}

// Explainer is the injected local-explanation method. Implementations must
// be safe for concurrent read-only use. Sampling-based explainers are
// allowed; tests inject a seeded fake under the same contract.
type Explainer interface {
	Explain(ctx context.Context, features ApplicationFeatures, numFeatures int) ([]RawAttribution, error)
}

// ClassifierError marks a hard scoring failure: without a probability there
// is no decision, so this is surfaced to the caller rather than defaulted.
type ClassifierError struct {
	Err error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier: %v", e.Err)
}

func (e *ClassifierError) Unwrap() error {
	return e.Err
}
