package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/vigil/internal/domain"
	"github.com/ashureev/vigil/internal/season"
	"github.com/ashureev/vigil/internal/warehouse"
)

// ErrAssetRequired is returned when a work order names no asset.
var ErrAssetRequired = errors.New("asset_id is required")

const workOrderIDLayout = "20060102150405"

// WorkOrders issues and lists work orders.
type WorkOrders struct {
	port  warehouse.Port
	clock season.Clock
}

// NewWorkOrders creates a work order service. A nil clock uses wall time.
func NewWorkOrders(port warehouse.Port, clock season.Clock) *WorkOrders {
	if clock == nil {
		clock = season.SystemClock
	}
	return &WorkOrders{port: port, clock: clock}
}

// Create inserts a PENDING work order with a second-resolution timestamp id.
//
// There is no idempotency guard: a retried submission creates a second
// order, and two creations within the same second share an id.
func (w *WorkOrders) Create(ctx context.Context, req domain.WorkOrderRequest) (domain.WorkOrder, error) {
	if strings.TrimSpace(req.AssetID) == "" {
		return domain.WorkOrder{}, ErrAssetRequired
	}

	now := w.clock()
	wo := domain.WorkOrder{
		ID:            "WO-" + now.Format(workOrderIDLayout),
		AssetID:       req.AssetID,
		WorkType:      req.WorkType,
		Priority:      req.Priority,
		Status:        domain.WorkOrderPending,
		Description:   req.Description,
		EstimatedCost: req.EstimatedCost,
		ScheduledDate: req.ScheduledDate,
		CreatedAt:     now.UTC().Format(time.RFC3339),
	}
	if wo.WorkType == "" {
		wo.WorkType = domain.WorkTypeVegetationTrim
	}
	if wo.Priority == "" {
		wo.Priority = domain.PriorityStandard
	}
	if wo.ScheduledDate == "" {
		wo.ScheduledDate = now.Format(time.DateOnly)
	}

	if _, err := w.port.Exec(ctx, insertWorkOrderQuery,
		wo.ID, wo.AssetID, wo.WorkType, wo.Priority, wo.Status, wo.Description,
		wo.EstimatedCost, wo.ScheduledDate, wo.CreatedAt,
	); err != nil {
		return domain.WorkOrder{}, fmt.Errorf("create work order: %w", err)
	}
	return wo, nil
}

// List returns the newest work orders, optionally filtered by status.
func (w *WorkOrders) List(ctx context.Context, status string, limit int) ([]domain.WorkOrder, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := w.port.Query(ctx, listWorkOrdersQuery, status, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list work orders: %w", err)
	}

	out := make([]domain.WorkOrder, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.WorkOrder{
			ID:            r.String("WORK_ORDER_ID"),
			AssetID:       r.String("ASSET_ID"),
			WorkType:      r.String("WORK_TYPE"),
			Priority:      r.String("PRIORITY"),
			Status:        r.String("STATUS"),
			Description:   r.String("DESCRIPTION"),
			EstimatedCost: r.FloatOr("ESTIMATED_COST", 0),
			ScheduledDate: r.String("SCHEDULED_DATE"),
			CreatedAt:     r.String("CREATED_AT"),
		})
	}
	return out, nil
}
