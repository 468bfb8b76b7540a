package domain

// Work order priorities.
const (
	PriorityEmergency = "P1_EMERGENCY"
	PriorityUrgent    = "P2_URGENT"
	PriorityStandard  = "P3_STANDARD"
	PriorityRoutine   = "P4_ROUTINE"
)

// Work order statuses.
const (
	WorkOrderPending    = "PENDING"
	WorkOrderScheduled  = "SCHEDULED"
	WorkOrderInProgress = "IN_PROGRESS"
	WorkOrderCompleted  = "COMPLETED"
)

// WorkTypeVegetationTrim is the work type issued from vegetation reports.
const WorkTypeVegetationTrim = "VEGETATION_TRIM"

// WorkOrderPriorities lists priorities from most to least urgent.
var WorkOrderPriorities = []string{PriorityEmergency, PriorityUrgent, PriorityStandard, PriorityRoutine}

// WorkOrderRequest is the input for issuing a work order.
type WorkOrderRequest struct {
	AssetID       string  `json:"asset_id"`
	WorkType      string  `json:"work_type,omitempty"`
	Priority      string  `json:"priority,omitempty"`
	Description   string  `json:"description,omitempty"`
	EstimatedCost float64 `json:"estimated_cost,omitempty"`
	ScheduledDate string  `json:"scheduled_date,omitempty"`
}

// WorkOrder is a stored work order.
type WorkOrder struct {
	ID            string  `json:"work_order_id"`
	AssetID       string  `json:"asset_id"`
	WorkType      string  `json:"work_type"`
	Priority      string  `json:"priority"`
	Status        string  `json:"status"`
	Description   string  `json:"description"`
	EstimatedCost float64 `json:"estimated_cost"`
	ScheduledDate string  `json:"scheduled_date"`
	CreatedAt     string  `json:"created_at"`
}

// WorkOrderDraft is a prepared but unissued vegetation work order.
type WorkOrderDraft struct {
	AssetID       string  `json:"asset_id"`
	WorkType      string  `json:"work_type"`
	Priority      string  `json:"priority"`
	EstimatedCost float64 `json:"estimated_cost"`
}
