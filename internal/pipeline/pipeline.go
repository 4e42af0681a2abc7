// Package pipeline wires fraud detection, risk scoring, explanation and
// advisory generation into one analysis pass per loan application.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/advisory"
	"github.com/opensource-finance/harrier/internal/counterfactual"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/explain"
	"github.com/opensource-finance/harrier/internal/fraud"
	"github.com/opensource-finance/harrier/internal/policy"
)

// EngineVersion is stamped into every analysis result.
const EngineVersion = "harrier-1.0"

// Scorer produces the approve probability for a feature vector.
type Scorer interface {
	Score(ctx context.Context, features domain.ApplicationFeatures) (float64, error)
}

// Pipeline runs the full decision intelligence analysis. It is stateless
// across requests; everything shared (knowledge base, model handles) is
// read-only, so one instance serves all goroutines.
type Pipeline struct {
	detector  *fraud.Detector
	scorer    Scorer
	explainer *explain.Adapter
	policy    *policy.Policy
	advisor   *advisory.Generator
	suggester *counterfactual.Suggester
}

// New creates a pipeline from its stages.
func New(detector *fraud.Detector, scorer Scorer, explainer *explain.Adapter, pol *policy.Policy, advisor *advisory.Generator, suggester *counterfactual.Suggester) *Pipeline {
	return &Pipeline{
		detector:  detector,
		scorer:    scorer,
		explainer: explainer,
		policy:    pol,
		advisor:   advisor,
		suggester: suggester,
	}
}

// AnalyzeInput carries one application through the pipeline.
type AnalyzeInput struct {
	Application *domain.Application
	TraceID     string
	StartTime   time.Time
}

// Analyze produces the complete analysis result for one application.
//
// Fraud detection and risk scoring have no data dependency and run
// concurrently. A fraud BLOCK short-circuits everything downstream of the
// decision: no explanation, no advisory, no counterfactuals. Otherwise the
// explainer runs off the scored features, and advisory generation and
// counterfactual analysis consume its output concurrently.
//
// A scoring failure is the only hard error: without a probability there is
// no decision.
func (p *Pipeline) Analyze(ctx context.Context, input *AnalyzeInput) (*domain.AnalysisResult, error) {
	app := input.Application
	startTime := input.StartTime
	if startTime.IsZero() {
		startTime = time.Now()
	}

	var (
		wg        sync.WaitGroup
		fraudRes  *domain.FraudAssessment
		fraudMs   int64
		pApprove  float64
		scoreErr  error
		scoringMs int64
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		fraudRes = p.detector.Check(ctx, app)
		fraudMs = time.Since(start).Milliseconds()
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		pApprove, scoreErr = p.scorer.Score(ctx, app.Features)
		scoringMs = time.Since(start).Milliseconds()
	}()
	wg.Wait()

	if scoreErr != nil {
		return nil, scoreErr
	}

	pdScore := 1 - pApprove
	band := p.policy.Band(pApprove)
	decision := p.policy.Decide(band, fraudRes)
	pdPercent := domain.Round2(pdScore * 100)

	var (
		attrs       []domain.FeatureAttribution
		bundle      *domain.AdvisoryBundle
		suggestions []domain.ImprovementSuggestion
		explainMs   int64
		advisoryMs  int64
	)

	if decision == domain.DecisionBlockedFraud {
		bundle = p.advisor.MinimalBundle(fraudRes)
	} else {
		start := time.Now()
		attrs = p.explainer.Explain(ctx, app.Features)
		explainMs = time.Since(start).Milliseconds()

		advisoryStart := time.Now()
		var advisoryWg sync.WaitGroup
		advisoryWg.Add(2)
		go func() {
			defer advisoryWg.Done()
			bundle = p.advisor.Generate(app.Features, attrs, fraudRes, pdScore)
		}()
		go func() {
			defer advisoryWg.Done()
			suggestions = p.suggester.Suggest(ctx, app.Features)
		}()
		advisoryWg.Wait()
		advisoryMs = time.Since(advisoryStart).Milliseconds()
	}

	approveThreshold, rejectThreshold := p.policy.Thresholds()

	result := &domain.AnalysisResult{
		ID:            uuid.New().String(),
		TenantID:      app.TenantID,
		ApplicationID: app.ID,

		Decision: decision,
		RiskBand: band,

		PDPercent:                 pdPercent,
		ApproveProbabilityPercent: domain.Round2(pApprove * 100),
		ApproveThreshold:          approveThreshold,
		RejectThreshold:           rejectThreshold,

		Fraud:        *fraudRes,
		Attributions: attrs,

		Summary:  policy.Summary(decision, pdPercent, fraudRes, attrs),
		Advisory: *bundle,

		Suggestions: suggestions,

		FeatureSnapshot: app.Features.Snapshot(domain.SnapshotFeatures),

		Timestamp: time.Now().UTC(),
		Metadata: domain.AnalysisMetadata{
			TraceID:       input.TraceID,
			FraudMs:       fraudMs,
			ScoringMs:     scoringMs,
			ExplainMs:     explainMs,
			AdvisoryMs:    advisoryMs,
			TotalMs:       time.Since(startTime).Milliseconds(),
			EngineVersion: EngineVersion,
		},
	}

	return result, nil
}
