// Package api provides the REST handlers of the VIGIL risk planning service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/vigil/internal/domain"
	"github.com/ashureev/vigil/internal/reports"
	"github.com/ashureev/vigil/internal/season"
	"github.com/ashureev/vigil/internal/warehouse"
)

// AnalystChecker reports on the external SQL generator.
type AnalystChecker interface {
	Health(ctx context.Context) error
	Addr() string
}

// Deps are the collaborators of the REST handlers.
type Deps struct {
	Port     warehouse.Port
	Suite    *reports.Suite
	Personas *domain.Personas
	// Analyst is nil when generated SQL is disabled.
	Analyst AnalystChecker
	// Sessions reports the live session count for the health endpoint.
	Sessions      func() int
	Clock         season.Clock
	Logger        *slog.Logger
	HealthTimeout time.Duration
}

// Handler serves the REST endpoints.
type Handler struct {
	deps   Deps
	logger *slog.Logger
}

// NewHandler creates the REST handler.
func NewHandler(d Deps) *Handler {
	if d.Clock == nil {
		d.Clock = season.SystemClock
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.HealthTimeout <= 0 {
		d.HealthTimeout = 5 * time.Second
	}
	return &Handler{deps: d, logger: d.Logger}
}

// RegisterRoutes registers the REST routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/fire-season", h.FireSeason)
		r.Get("/personas", h.ListPersonas)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/vegetation/clearance", h.Clearance)
		r.Get("/reports", h.ListReports)
		r.Get("/reports/{generator}/{operation}", h.RunReport)
		r.Get("/work-orders", h.ListWorkOrders)
		r.Post("/work-orders", h.CreateWorkOrder)
		h.registerPredictionRoutes(r)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// statusFor maps domain and warehouse errors to HTTP status codes.
func statusFor(err error) int {
	var unknownClearance *reports.UnknownClearanceError
	switch {
	case errors.Is(err, reports.ErrUnknownReport):
		return http.StatusNotFound
	case errors.Is(err, reports.ErrAssetRequired), errors.As(err, &unknownClearance):
		return http.StatusBadRequest
	case warehouse.IsConnectivity(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail logs err and writes it with the mapped status. Server-side failures
// hide the underlying message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "op", op, "path", r.URL.Path, "error", err)
		Error(w, status, op+" failed")
		return
	}
	Error(w, status, err.Error())
}

// FireSeason returns the countdown and the season phase.
func (h *Handler) FireSeason(w http.ResponseWriter, _ *http.Request) {
	now := h.deps.Clock()
	JSON(w, http.StatusOK, map[string]any{
		"countdown": season.CountdownAt(now),
		"season":    season.StatusAt(now),
	})
}

// ListPersonas returns the persona registry in display order.
func (h *Handler) ListPersonas(w http.ResponseWriter, _ *http.Request) {
	out := make([]domain.PersonaDescriptor, 0)
	for _, id := range h.deps.Personas.IDs() {
		p, _ := h.deps.Personas.Get(id)
		out = append(out, p)
	}
	JSON(w, http.StatusOK, map[string]any{
		"personas": out,
		"default":  h.deps.Personas.Default().ID,
	})
}
