// Package worker provides async application processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/velocity"
)

// Worker processes loan applications asynchronously from the EventBus.
type Worker struct {
	bus      domain.EventBus
	repo     domain.Repository
	pipeline *pipeline.Pipeline
	velocity *velocity.Service

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string

	// WorkerCount is the number of concurrent workers per tenant
	WorkerCount int
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, pl *pipeline.Pipeline, vel *velocity.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		repo:     repo,
		pipeline: pl,
		velocity: vel,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing messages for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	// Subscribe using a special "global" tenant ID
	// In production, you'd want to subscribe with wildcards or JetStream
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicApplicationReceived, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicApplicationReceived, func(ctx context.Context, msg *domain.Message) error {
		return w.processApplication(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicApplicationReceived,
	)

	return nil
}

// handleMessage handles messages from global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processApplication(ctx, msg.TenantID, msg)
}

// ApplicationMessage is the message payload for application processing.
type ApplicationMessage struct {
	ApplicationID string                     `json:"applicationId"`
	TenantID      string                     `json:"tenantId"`
	TraceID       string                     `json:"traceId"`
	ApplicantID   string                     `json:"applicantId"`
	Features      domain.ApplicationFeatures `json:"features"`
}

// processApplication runs one application through the analysis pipeline.
func (w *Worker) processApplication(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var appMsg ApplicationMessage
	if err := json.Unmarshal(msg.Payload, &appMsg); err != nil {
		slog.Error("failed to parse application message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if appMsg.TenantID != "" {
		tenantID = appMsg.TenantID
	}

	traceID := appMsg.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	now := time.Now().UTC()
	app := &domain.Application{
		ID:          appMsg.ApplicationID,
		TenantID:    tenantID,
		ApplicantID: appMsg.ApplicantID,
		Features:    appMsg.Features,
		SubmittedAt: now,
		CreatedAt:   now,
	}
	if app.ID == "" {
		app.ID = uuid.New().String()
	}

	slog.Debug("processing application",
		"application_id", app.ID,
		"tenant_id", tenantID,
		"trace_id", traceID,
	)

	// 1. Persist the application so the velocity count includes it
	if w.repo != nil {
		if err := w.repo.SaveApplication(ctx, tenantID, app); err != nil {
			slog.Error("failed to save application",
				"application_id", app.ID,
				"error", err,
			)
		}
	}

	// 2. Record velocity and expose it as a feature when the applicant is known
	if w.velocity != nil && app.ApplicantID != "" && !app.Features.Has(domain.FeatureApplicationVelocity) {
		count, err := w.velocity.Record(ctx, tenantID, app.ApplicantID)
		if err != nil {
			slog.Warn("velocity lookup failed",
				"applicant_id", app.ApplicantID,
				"error", err,
			)
		} else {
			app.Features = app.Features.With(domain.FeatureApplicationVelocity, float64(count))
		}
	}

	// 3. Run the analysis pipeline
	result, err := w.pipeline.Analyze(ctx, &pipeline.AnalyzeInput{
		Application: app,
		TraceID:     traceID,
		StartTime:   start,
	})
	if err != nil {
		slog.Error("analysis failed",
			"application_id", app.ID,
			"error", err,
		)
		return err
	}

	// 4. Save the analysis
	if w.repo != nil {
		if err := w.repo.SaveAnalysis(ctx, tenantID, result); err != nil {
			slog.Error("failed to save analysis",
				"analysis_id", result.ID,
				"error", err,
			)
		}
	}

	// 5. Publish the decision
	resultPayload, _ := json.Marshal(result)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicDecision, resultPayload); err != nil {
		slog.Error("failed to publish decision",
			"application_id", app.ID,
			"error", err,
		)
	}

	// 6. Route fraud blocks and manual reviews to their own topics
	switch result.Decision {
	case domain.DecisionBlockedFraud:
		if err := w.bus.Publish(ctx, tenantID, domain.TopicFraudBlocked, resultPayload); err != nil {
			slog.Error("failed to publish fraud block",
				"application_id", app.ID,
				"error", err,
			)
		}
	case domain.DecisionManualReview:
		if err := w.bus.Publish(ctx, tenantID, domain.TopicManualReview, resultPayload); err != nil {
			slog.Error("failed to publish manual review",
				"application_id", app.ID,
				"error", err,
			)
		}
	}

	slog.Info("application processed",
		"application_id", app.ID,
		"tenant_id", tenantID,
		"decision", result.Decision,
		"pd_percent", result.PDPercent,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
