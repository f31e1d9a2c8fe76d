package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"grimoire-editor/internal/contextutil"
)

// RetrievalPinger checks that the retrieval backend is reachable.
// *retrieval.Client satisfies it.
type RetrievalPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	db                 *sql.DB
	retrieval          RetrievalPinger
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. retrieval may be nil when no
// backend is configured.
func NewHealthHandler(db *sql.DB, retrieval RetrievalPinger) *HealthHandler {
	return &HealthHandler{
		db:                 db,
		retrieval:          retrieval,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles GET /api/health. The database is the critical
// dependency; an unreachable retrieval backend only degrades the status,
// since editing works without context queries.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	status := "healthy"
	httpStatus := http.StatusOK

	if h.checkDatabase(checkCtx, logger) {
		checks["database"] = "ok"
	} else {
		checks["database"] = "error"
		issues = append(issues, "database_unavailable")
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	if h.retrieval != nil {
		if err := h.retrieval.Ping(checkCtx); err != nil {
			logger.WarnContext(ctx, "retrieval backend health check failed", "error", err)
			checks["retrieval"] = "error"
			issues = append(issues, "retrieval_unavailable")
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["retrieval"] = "ok"
		}
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if len(issues) > 0 {
		response.Issues = issues
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}

// checkDatabase checks if the database is accessible.
func (h *HealthHandler) checkDatabase(ctx context.Context, logger *slog.Logger) bool {
	if err := h.db.PingContext(ctx); err != nil {
		logger.WarnContext(ctx, "database health check failed", "error", err)
		return false
	}
	return true
}
