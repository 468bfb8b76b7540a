package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/vigil/internal/reports"
)

// predictionsGenerator is the suite generator behind /api/ml.
const predictionsGenerator = "predictions"

// limitParam reads ?limit=. Absent means zero, which the generator treats
// as its default.
func limitParam(r *http.Request, ceiling int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > ceiling {
		return 0, fmt.Errorf("limit must be an integer between 1 and %d", ceiling)
	}
	return n, nil
}

// Prediction serves one predictions operation as its bare data payload.
// ceiling bounds ?limit=; zero means the operation takes no limit.
func (h *Handler) Prediction(op string, ceiling int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params reports.Params
		if ceiling > 0 {
			limit, err := limitParam(r, ceiling)
			if err != nil {
				Error(w, http.StatusBadRequest, err.Error())
				return
			}
			params.Limit = limit
		}

		rep, err := h.deps.Suite.Run(r.Context(), predictionsGenerator, op, params)
		if err != nil {
			h.fail(w, r, "ml "+op, err)
			return
		}
		JSON(w, http.StatusOK, rep.Data)
	}
}

// RiskMap handles GET /api/dashboard/map.
func (h *Handler) RiskMap(w http.ResponseWriter, r *http.Request) {
	rep, err := h.deps.Suite.Assets.RiskMap(r.Context())
	if err != nil {
		h.fail(w, r, "risk map", err)
		return
	}
	JSON(w, http.StatusOK, rep.Data)
}

type assetForecastRequest struct {
	AssetIDs []string `json:"asset_ids"`
}

// AssetForecasts handles POST /api/ml/asset-predictions with a body of
// {"asset_ids": [...]}. Ids beyond the listing ceiling are ignored.
func (h *Handler) AssetForecasts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req assetForecastRequest
	if err := decodeJSON(r, &req); err != nil || req.AssetIDs == nil {
		Error(w, http.StatusBadRequest, "asset_ids is required")
		return
	}
	ids := make([]string, 0, len(req.AssetIDs))
	for _, id := range req.AssetIDs {
		if id = strings.ToUpper(strings.TrimSpace(id)); id != "" {
			ids = append(ids, id)
		}
	}

	rep, err := h.deps.Suite.Predictions.ForAssets(r.Context(), ids)
	if err != nil {
		h.fail(w, r, "asset forecasts", err)
		return
	}
	JSON(w, http.StatusOK, rep.Data)
}

func (h *Handler) registerPredictionRoutes(r chi.Router) {
	r.Get("/ml/asset-health", h.Prediction("asset-health", reports.MaxPredictionLimit))
	r.Get("/ml/vegetation-growth", h.Prediction("vegetation-growth", reports.MaxPredictionLimit))
	r.Get("/ml/ignition-risk", h.Prediction("ignition-risk", reports.MaxPredictionLimit))
	r.Get("/ml/cable-failure", h.Prediction("cable-failure", reports.MaxPredictionLimit))
	r.Get("/ml/summary", h.Prediction("summary", 0))
	r.Get("/ml/combined-risk", h.Prediction("combined-risk", reports.MaxPredictionLimit))
	r.Get("/ml/combined-risk/by-region", h.Prediction("combined-risk-by-region", 0))
	r.Get("/ml/urgent-actions", h.Prediction("urgent-actions", reports.MaxUrgentLimit))
	r.Post("/ml/asset-predictions", h.AssetForecasts)
	r.Get("/dashboard/map", h.RiskMap)
}
