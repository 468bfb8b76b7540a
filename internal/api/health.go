package api

import (
	"context"
	"net/http"
)

// Health returns the health status of the API and its dependencies. The
// warehouse is required; an unreachable analyst only degrades the service
// since data queries fall back to direct templates.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.deps.HealthTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.deps.Port.Ping(ctx); err != nil {
		h.logger.Error("Health check failed", "component", "warehouse", "error", err)
		status["status"] = "unhealthy"
		checks["warehouse"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["warehouse"] = "ok"
	}

	switch {
	case h.deps.Analyst == nil:
		checks["analyst"] = "disabled"
	default:
		if err := h.deps.Analyst.Health(ctx); err != nil {
			h.logger.Warn("Health check failed", "component", "analyst", "addr", h.deps.Analyst.Addr(), "error", err)
			checks["analyst"] = "unreachable"
			if statusCode == http.StatusOK {
				status["status"] = "degraded"
			}
		} else {
			checks["analyst"] = "ok"
		}
	}

	if h.deps.Sessions != nil {
		status["sessions"] = h.deps.Sessions()
	}

	JSON(w, statusCode, status)
}
