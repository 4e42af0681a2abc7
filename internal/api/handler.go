package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/fraud"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/policy"
	"github.com/opensource-finance/harrier/internal/velocity"
)

// GlobalTenantID is used for fraud rules that apply to all tenants.
const GlobalTenantID = "*"

// analysisCacheTTL is how long completed analyses stay in the cache.
const analysisCacheTTL = 15 * time.Minute

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	pipeline *pipeline.Pipeline
	engine   *fraud.Engine
	policy   *policy.Policy
	velocity *velocity.Service
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, pl *pipeline.Pipeline, engine *fraud.Engine, pol *policy.Policy, vel *velocity.Service, version string) *Handler {
	return &Handler{
		repo:     repo,
		cache:    cache,
		bus:      bus,
		pipeline: pl,
		engine:   engine,
		policy:   pol,
		velocity: vel,
		version:  version,
	}
}

// Analyze handles POST /analyze requests: one full synchronous analysis pass.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)

	var req domain.ApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if len(req.Features) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "features are required",
		})
		return
	}

	app := req.ToApplication(tenantID)
	app.ID = uuid.New().String()

	// Persist the application first so the velocity count includes it.
	if h.repo != nil {
		if err := h.repo.SaveApplication(ctx, tenantID, app); err != nil {
			slog.Error("failed to save application", "error", err)
		}
	}

	// Record velocity and expose it as a feature unless the caller supplied
	// its own value.
	if h.velocity != nil && app.ApplicantID != "" && !app.Features.Has(domain.FeatureApplicationVelocity) {
		count, err := h.velocity.Record(ctx, tenantID, app.ApplicantID)
		if err != nil {
			slog.Warn("velocity lookup failed", "applicant_id", app.ApplicantID, "error", err)
		} else {
			app.Features = app.Features.With(domain.FeatureApplicationVelocity, float64(count))
		}
	}

	result, err := h.pipeline.Analyze(ctx, &pipeline.AnalyzeInput{
		Application: app,
		TraceID:     traceID,
		StartTime:   start,
	})
	if err != nil {
		var clfErr *domain.ClassifierError
		if errors.As(err, &clfErr) {
			slog.Error("classifier failure", "application_id", app.ID, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "risk scoring unavailable",
			})
			return
		}
		slog.Error("analysis failed", "application_id", app.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "analysis failed",
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveAnalysis(ctx, tenantID, result); err != nil {
			slog.Error("failed to save analysis", "analysis_id", result.ID, "error", err)
		}
	}
	if h.cache != nil {
		if err := h.cache.SetAnalysis(ctx, tenantID, result.ID, result, analysisCacheTTL); err != nil {
			slog.Warn("failed to cache analysis", "analysis_id", result.ID, "error", err)
		}
	}

	// Publish the decision for downstream consumers.
	if h.bus != nil {
		payload, _ := json.Marshal(result)
		if err := h.bus.Publish(ctx, tenantID, domain.TopicDecision, payload); err != nil {
			slog.Error("failed to publish decision", "analysis_id", result.ID, "error", err)
		}
		switch result.Decision {
		case domain.DecisionBlockedFraud:
			_ = h.bus.Publish(ctx, tenantID, domain.TopicFraudBlocked, payload)
		case domain.DecisionManualReview:
			_ = h.bus.Publish(ctx, tenantID, domain.TopicManualReview, payload)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// GetAnalysis retrieves an analysis by ID, cache first.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	analysisID := chi.URLParam(r, "id")

	if analysisID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "analysis id is required",
		})
		return
	}

	if h.cache != nil {
		if result, err := h.cache.GetAnalysis(ctx, tenantID, analysisID); err == nil && result != nil {
			writeJSON(w, http.StatusOK, result)
			return
		}
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	result, err := h.repo.GetAnalysis(ctx, tenantID, analysisID)
	if err != nil {
		slog.Error("failed to get analysis", "id", analysisID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "analysis not found",
		})
		return
	}

	if h.cache != nil {
		_ = h.cache.SetAnalysis(ctx, tenantID, analysisID, result, analysisCacheTTL)
	}

	writeJSON(w, http.StatusOK, result)
}

// GetApplication retrieves a stored application by ID.
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	appID := chi.URLParam(r, "id")

	if appID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "application id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	app, err := h.repo.GetApplication(ctx, tenantID, appID)
	if err != nil {
		slog.Error("failed to get application", "id", appID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "application not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, app)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListRules returns all custom fraud rules loaded in the engine.
// Rules are loaded from the database at startup and can be reloaded via POST /rules/reload.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "rule engine not available",
		})
		return
	}

	loadedRules := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  loadedRules,
		"count":  len(loadedRules),
		"source": "database",
	})
}

// GetRule retrieves a custom fraud rule by ID from the loaded engine rules.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	if h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "rule engine not available",
		})
		return
	}

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating a custom fraud rule.
type CreateRuleRequest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Expression  string            `json:"expression"`
	Bands       []domain.RuleBand `json:"bands"`
	Weight      float64           `json:"weight"`
	Enabled     bool              `json:"enabled"`
}

// CreateRule creates a new custom fraud rule and saves it to the database.
// Rules are saved globally (tenant_id = "*") so they apply to all tenants.
// After saving, call POST /rules/reload to hot-reload into the engine.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	// Validate
	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	// Create rule config (global tenant)
	ruleConfig := &domain.RuleConfig{
		ID:          req.ID,
		TenantID:    GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Bands:       req.Bands,
		Weight:      req.Weight,
		Enabled:     req.Enabled,
	}

	// Validate CEL expression by attempting to load
	if h.engine != nil {
		if err := h.engine.LoadRule(ruleConfig); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid CEL expression: " + err.Error(),
			})
			return
		}
	}

	// Persist to repository (global tenant ID)
	if h.repo != nil {
		if err := h.repo.SaveRuleConfig(ctx, GlobalTenantID, ruleConfig); err != nil {
			slog.Error("failed to save rule config", "id", ruleConfig.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("fraud rule created", "id", ruleConfig.ID, "name", ruleConfig.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    ruleConfig,
		"message": "Rule created. Call POST /rules/reload to apply changes.",
	})
}

// ReloadRules reloads all custom fraud rules from the database into the engine.
// This enables hot-reloading without server restart.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}
	if h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "rule engine not available",
		})
		return
	}

	// Load rules from database (global rules)
	dbRules, err := h.repo.ListRuleConfigs(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	// Reload into engine
	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("fraud rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// GetThresholds returns the active policy thresholds.
func (h *Handler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	approve, reject := h.policy.Thresholds()
	writeJSON(w, http.StatusOK, domain.PolicyConfig{
		ApproveThreshold: approve,
		RejectThreshold:  reject,
	})
}

// UpdateThresholds replaces the policy thresholds at runtime.
func (h *Handler) UpdateThresholds(w http.ResponseWriter, r *http.Request) {
	var req domain.PolicyConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := h.policy.Update(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}

	slog.Info("policy thresholds updated",
		"approve_threshold", req.ApproveThreshold,
		"reject_threshold", req.RejectThreshold,
	)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "thresholds updated",
		"thresholds": req,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
