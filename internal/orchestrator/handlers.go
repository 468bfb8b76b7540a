package orchestrator

import (
	"context"
	"strings"

	"github.com/ashureev/vigil/internal/domain"
	"github.com/ashureev/vigil/internal/reports"
	"github.com/ashureev/vigil/internal/resolver"
	"github.com/ashureev/vigil/internal/season"
)

// Agent names.
const (
	AgentWaterTreeing = "Water Treeing Detective"
	AgentVegetation   = "Vegetation Guardian"
	AgentFireRisk     = "Fire Risk Analyst"
	AgentAsset        = "Asset Inspector"
)

// Visualization hints for the client.
const (
	VizWaterTreeingMap = "water_treeing_map"
	VizCableAnalysis   = "cable_analysis"
	VizVegetationMap   = "vegetation_map"
	VizFireRisk        = "fire_risk_dashboard"
	VizAssetHealth     = "asset_health_dashboard"
	VizWorkOrders      = "work_order_list"
	VizCompliance      = "compliance_dashboard"
)

const sourceSystem = "VIGIL System"

// QueryData is the structured data of a resolved data query.
type QueryData struct {
	SQL      string `json:"sql"`
	RowCount int    `json:"row_count"`
}

type turn struct {
	message   string
	lower     string
	countdown season.Countdown
}

func (t turn) mentions(words ...string) bool {
	for _, w := range words {
		if strings.Contains(t.lower, w) {
			return true
		}
	}
	return false
}

type handler func(ctx context.Context, t turn) (domain.AgentResponse, error)

func fromReport(rep reports.Report, agent, viz string) domain.AgentResponse {
	return domain.AgentResponse{
		Narrative:         rep.Narrative,
		AgentName:         agent,
		Sources:           rep.Sources,
		StructuredData:    rep.Data,
		VisualizationHint: viz,
		AlertLevel:        rep.AlertLevel,
		ActionRequired:    rep.ActionRequired,
	}
}

func (o *Orchestrator) handleHiddenDiscovery(ctx context.Context, _ turn) (domain.AgentResponse, error) {
	rep, err := o.deps.Suite.Discovery.WaterTreeingPattern(ctx)
	if err != nil {
		return domain.AgentResponse{}, err
	}
	resp := fromReport(rep, AgentWaterTreeing, VizWaterTreeingMap)
	resp.AlertLevel = reports.AlertHigh
	return resp, nil
}

func (o *Orchestrator) handleWaterTreeing(ctx context.Context, _ turn) (domain.AgentResponse, error) {
	rep, err := o.deps.Suite.Discovery.CableHealth(ctx)
	if err != nil {
		return domain.AgentResponse{}, err
	}
	return fromReport(rep, AgentWaterTreeing, VizCableAnalysis), nil
}

func (o *Orchestrator) handleVegetation(ctx context.Context, t turn) (domain.AgentResponse, error) {
	veg := o.deps.Suite.Vegetation
	var rep reports.Report
	var err error
	switch {
	case t.mentions("compliance", "go95"):
		rep, err = veg.ComplianceSummary(ctx)
	case t.mentions("priority", "urgent"):
		rep, err = veg.TrimPriorities(ctx)
	default:
		rep, err = veg.Overview(ctx, o.session.FocusedRegion)
	}
	if err != nil {
		return domain.AgentResponse{}, err
	}
	return fromReport(rep, AgentVegetation, VizVegetationMap), nil
}

func (o *Orchestrator) handleFireRisk(ctx context.Context, _ turn) (domain.AgentResponse, error) {
	rep, err := o.deps.Suite.FireRisk.Overview(ctx)
	if err != nil {
		return domain.AgentResponse{}, err
	}
	return fromReport(rep, AgentFireRisk, VizFireRisk), nil
}

func (o *Orchestrator) handleAssetHealth(ctx context.Context, t turn) (domain.AgentResponse, error) {
	assets := o.deps.Suite.Assets
	var rep reports.Report
	var err error
	focused := o.session.FocusedEntityID
	if focused != "" && (t.mentions(strings.ToLower(focused)) || t.mentions("detail")) {
		rep, err = assets.Detail(ctx, focused)
	} else {
		rep, err = assets.Overview(ctx, o.session.FocusedRegion)
	}
	if err != nil {
		return domain.AgentResponse{}, err
	}
	return fromReport(rep, AgentAsset, VizAssetHealth), nil
}

func (o *Orchestrator) handleWorkOrder(ctx context.Context, t turn) (domain.AgentResponse, error) {
	veg := o.deps.Suite.Vegetation
	var rep reports.Report
	var err error
	if t.mentions("issue", "create") {
		rep, err = veg.PrepareWorkOrder(ctx, o.session.FocusedEntityID)
	} else {
		rep, err = veg.WorkOrderBacklog(ctx)
	}
	if err != nil {
		return domain.AgentResponse{}, err
	}
	return fromReport(rep, AgentVegetation, VizWorkOrders), nil
}

func (o *Orchestrator) handleCompliance(ctx context.Context, _ turn) (domain.AgentResponse, error) {
	rep, err := o.deps.Suite.Vegetation.ComplianceSummary(ctx)
	if err != nil {
		return domain.AgentResponse{}, err
	}
	return fromReport(rep, AgentVegetation, VizCompliance), nil
}

func (o *Orchestrator) handleDataQuery(ctx context.Context, t turn) (domain.AgentResponse, error) {
	out := o.deps.Resolver.Resolve(ctx, t.message)
	if out.Strategy == resolver.StrategyNone {
		return domain.AgentResponse{
			Narrative:      resolver.Help(t.countdown.DaysRemaining),
			AgentName:      resolver.AgentHelp,
			Sources:        []string{sourceSystem},
			StructuredData: map[string]any{},
		}, nil
	}
	return domain.AgentResponse{
		Narrative:      resolver.Format(out, o.persona().EmojiTag),
		AgentName:      resolver.AgentDataAnalyst,
		Sources:        []string{out.Source(), resolver.SourceRiskPlanning},
		StructuredData: QueryData{SQL: out.SQL, RowCount: len(out.Rows)},
	}, nil
}
