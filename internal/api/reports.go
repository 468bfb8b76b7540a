package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/vigil/internal/domain"
	"github.com/ashureev/vigil/internal/reports"
	"github.com/ashureev/vigil/internal/season"
)

// ListReports returns the available generator operations.
func (h *Handler) ListReports(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.deps.Suite.Operations())
}

// RunReport handles GET /api/reports/{generator}/{operation}. The region
// and asset_id query parameters feed the operations that take them.
func (h *Handler) RunReport(w http.ResponseWriter, r *http.Request) {
	generator := chi.URLParam(r, "generator")
	operation := chi.URLParam(r, "operation")
	params := reports.Params{
		Region:  r.URL.Query().Get("region"),
		AssetID: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("asset_id"))),
	}

	rep, err := h.deps.Suite.Run(r.Context(), generator, operation, params)
	if err != nil {
		h.fail(w, r, generator+"/"+operation, err)
		return
	}
	JSON(w, http.StatusOK, rep)
}

// Dashboard is the landing view: season status, asset summary, compliance
// and work order backlog, fetched concurrently.
type Dashboard struct {
	FireSeason season.Countdown `json:"fire_season"`
	Season     season.Status    `json:"season"`
	Assets     reports.Report   `json:"assets"`
	Compliance reports.Report   `json:"compliance"`
	Backlog    reports.Report   `json:"backlog"`
}

// Dashboard handles GET /api/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	now := h.deps.Clock()
	out := Dashboard{
		FireSeason: season.CountdownAt(now),
		Season:     season.StatusAt(now),
	}
	region := r.URL.Query().Get("region")

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		rep, err := h.deps.Suite.Assets.Overview(ctx, region)
		out.Assets = rep
		return err
	})
	g.Go(func() error {
		rep, err := h.deps.Suite.Vegetation.ComplianceSummary(ctx)
		out.Compliance = rep
		return err
	})
	g.Go(func() error {
		rep, err := h.deps.Suite.Vegetation.WorkOrderBacklog(ctx)
		out.Backlog = rep
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, r, "dashboard", err)
		return
	}
	JSON(w, http.StatusOK, out)
}

// Clearance handles GET /api/vegetation/clearance. voltage_class and
// fire_tier select the GO95 requirement; current_ft adds a gap analysis and
// species adds growth guidance.
func (h *Handler) Clearance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	voltage, tier := q.Get("voltage_class"), q.Get("fire_tier")
	if voltage == "" || tier == "" {
		Error(w, http.StatusBadRequest, "voltage_class and fire_tier are required")
		return
	}

	out := map[string]any{}
	if raw := q.Get("current_ft"); raw != "" {
		current, err := strconv.ParseFloat(raw, 64)
		if err != nil || current < 0 {
			Error(w, http.StatusBadRequest, "current_ft must be a non-negative number")
			return
		}
		gap, err := reports.AnalyzeComplianceGap(current, voltage, tier)
		if err != nil {
			h.fail(w, r, "clearance", err)
			return
		}
		out["requirement"] = gap.Clearance
		out["gap"] = gap
	} else {
		req, err := reports.ClearanceRequirement(voltage, tier)
		if err != nil {
			h.fail(w, r, "clearance", err)
			return
		}
		out["requirement"] = req
	}
	if sp := q.Get("species"); sp != "" {
		out["species"] = reports.SpeciesGrowth(sp)
	}
	JSON(w, http.StatusOK, out)
}

// ListWorkOrders handles GET /api/work-orders?status=&limit=.
func (h *Handler) ListWorkOrders(w http.ResponseWriter, r *http.Request) {
	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	orders, err := h.deps.Suite.WorkOrders.List(r.Context(), status, limit)
	if err != nil {
		h.fail(w, r, "list work orders", err)
		return
	}
	var total float64
	for _, wo := range orders {
		total += wo.EstimatedCost
	}
	JSON(w, http.StatusOK, map[string]any{
		"work_orders":    orders,
		"count":          len(orders),
		"total_cost":     total,
		"total_cost_fmt": "$" + humanize.CommafWithDigits(total, 0),
	})
}

// CreateWorkOrder handles POST /api/work-orders.
func (h *Handler) CreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req domain.WorkOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.AssetID = strings.ToUpper(strings.TrimSpace(req.AssetID))
	if req.Priority != "" && !slices.Contains(domain.WorkOrderPriorities, req.Priority) {
		Error(w, http.StatusBadRequest, "priority must be one of "+strings.Join(domain.WorkOrderPriorities, ", "))
		return
	}

	wo, err := h.deps.Suite.WorkOrders.Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, "create work order", err)
		return
	}
	h.logger.Info("Work order created", "work_order_id", wo.ID, "asset_id", wo.AssetID, "priority", wo.Priority)
	JSON(w, http.StatusCreated, wo)
}
