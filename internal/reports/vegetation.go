package reports

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/vigil/internal/domain"
	"github.com/ashureev/vigil/internal/season"
	"github.com/ashureev/vigil/internal/warehouse"
)

const (
	vegetationEmoji       = "🌲"
	vegetationCatchphrase = "Every clearance deficit is a potential ignition source."
)

// Vegetation reports on GO95 clearance compliance and trim work.
type Vegetation struct {
	port  warehouse.Port
	clock season.Clock
}

// NewVegetation creates a vegetation generator. A nil clock uses wall time.
func NewVegetation(port warehouse.Port, clock season.Clock) *Vegetation {
	if clock == nil {
		clock = season.SystemClock
	}
	return &Vegetation{port: port, clock: clock}
}

// VegetationOverview is the data of Vegetation.Overview.
type VegetationOverview struct {
	Region             string          `json:"region,omitempty"`
	TotalEncroachments int             `json:"total_encroachments"`
	NonCompliant       int             `json:"non_compliant"`
	Critical           int             `json:"critical"`
	AtRisk             int             `json:"at_risk"`
	Tier3Count         int             `json:"tier_3_count"`
	Tier3NonCompliant  int             `json:"tier_3_non_compliant"`
	DaysToFireSeason   int             `json:"days_to_fire_season"`
	Encroachments      []warehouse.Row `json:"encroachments"`
}

var nonCompliant = is("COMPLIANCE_STATUS", "NON_COMPLIANT", "CRITICAL")

// Overview summarizes encroachments, optionally scoped to a region.
func (v *Vegetation) Overview(ctx context.Context, region string) (Report, error) {
	rows, err := v.port.Query(ctx, encroachmentsQuery, region, region)
	if err != nil {
		return Report{}, fmt.Errorf("vegetation overview: %w", err)
	}

	tier3 := is("FIRE_THREAT_DISTRICT", "TIER_3")
	d := VegetationOverview{
		Region:             region,
		TotalEncroachments: len(rows),
		NonCompliant:       countIf(rows, nonCompliant),
		Critical:           countIf(rows, is("COMPLIANCE_STATUS", "CRITICAL")),
		AtRisk:             countIf(rows, is("COMPLIANCE_STATUS", "AT_RISK")),
		Tier3Count:         countIf(rows, tier3),
		Tier3NonCompliant: countIf(rows, func(r warehouse.Row) bool {
			return tier3(r) && nonCompliant(r)
		}),
		DaysToFireSeason: season.CountdownAt(v.clock()).DaysRemaining,
		Encroachments:    head(rows, 50),
	}
	compliant := d.TotalEncroachments - d.NonCompliant - d.AtRisk

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Vegetation Management Overview - %s\n\n", vegetationEmoji, scope(region))
	fmt.Fprintf(&b, "### 🔥 Fire Season Alert\n**%d days** until fire season (June 1)\n", d.DaysToFireSeason)
	if d.DaysToFireSeason < 60 {
		b.WriteString("⚠️ **URGENT**: Prioritize Tier 3 work immediately!\n")
	}
	b.WriteString("\n### Compliance Status\n| Status | Count | % of Total |\n|--------|-------|------------|\n")
	fmt.Fprintf(&b, "| 🔴 Critical | %d | %.1f%% |\n", d.Critical, pct(d.Critical, d.TotalEncroachments))
	fmt.Fprintf(&b, "| 🟠 Non-Compliant | %d | %.1f%% |\n", d.NonCompliant-d.Critical, pct(d.NonCompliant-d.Critical, d.TotalEncroachments))
	fmt.Fprintf(&b, "| 🟡 At Risk | %d | %.1f%% |\n", d.AtRisk, pct(d.AtRisk, d.TotalEncroachments))
	fmt.Fprintf(&b, "| 🟢 Compliant | %d | %.1f%% |\n", compliant, pct(compliant, d.TotalEncroachments))
	b.WriteString("\n### Fire Threat District Analysis\n")
	fmt.Fprintf(&b, "- **Tier 3 (Extreme)**: %d encroachments requiring priority attention\n", d.Tier3Count)
	fmt.Fprintf(&b, "- Non-compliant in Tier 3: %d\n", d.Tier3NonCompliant)
	b.WriteString(quote(vegetationCatchphrase))

	critical := head(filter(rows, is("COMPLIANCE_STATUS", "CRITICAL")), 5)
	if len(critical) > 0 {
		b.WriteString("\n### ⚠️ Immediate Action Required\n")
		for _, r := range critical {
			fmt.Fprintf(&b, "- **%s**: %s - %.1fft clearance (requires %.1fft)\n",
				r.String("ASSET_ID"), r.String("SPECIES"),
				r.FloatOr("CURRENT_CLEARANCE_FT", 0), r.FloatOr("REQUIRED_CLEARANCE_FT", 0))
		}
	}

	return Report{
		Narrative: b.String(),
		Data:      d,
		Sources:   []string{SourceVegetation, SourceAsset},
	}, nil
}

// RegionCompliance is one row of the compliance summary.
type RegionCompliance struct {
	Region       string  `json:"region"`
	Total        int     `json:"total"`
	Compliant    int     `json:"compliant"`
	NonCompliant int     `json:"non_compliant"`
	Percent      float64 `json:"compliance_pct"`
}

// ComplianceSummary is the data of Vegetation.ComplianceSummary.
type ComplianceSummary struct {
	Regions        []RegionCompliance `json:"compliance_by_region"`
	OverallPercent float64            `json:"overall_compliance_pct"`
}

// ComplianceSummary reports GO95 compliance per region.
func (v *Vegetation) ComplianceSummary(ctx context.Context) (Report, error) {
	rows, err := v.port.Query(ctx, complianceByRegionQuery)
	if err != nil {
		return Report{}, fmt.Errorf("compliance summary: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s CPUC GO95 Compliance Summary\n\n", vegetationEmoji)
	b.WriteString("### Regional Compliance Status\n")
	b.WriteString("| Region | Total | Compliant | Non-Compliant | Compliance % |\n")
	b.WriteString("|--------|-------|-----------|---------------|--------------|\n")

	d := ComplianceSummary{Regions: []RegionCompliance{}}
	totalCompliant, totalAll := 0, 0
	for _, r := range rows {
		rc := RegionCompliance{
			Region:       r.String("REGION"),
			Total:        r.IntOr("TOTAL", 0),
			Compliant:    r.IntOr("COMPLIANT", 0),
			NonCompliant: r.IntOr("NON_COMPLIANT", 0),
		}
		if rc.Region == "" {
			rc.Region = "Unknown"
		}
		rc.Percent = pct(rc.Compliant, rc.Total)
		d.Regions = append(d.Regions, rc)

		fmt.Fprintf(&b, "| %s %s | %d | %d | %d | %.1f%% |\n",
			complianceEmoji(rc.Percent), rc.Region, rc.Total, rc.Compliant, rc.NonCompliant, rc.Percent)
		totalCompliant += rc.Compliant
		totalAll += rc.Total
	}
	d.OverallPercent = pct(totalCompliant, totalAll)

	fmt.Fprintf(&b, "\n### Overall Portfolio: **%.1f%%** Compliant\n\n", d.OverallPercent)
	b.WriteString("### GO95 Requirements Reference\n")
	b.WriteString("- **Tier 3 (Extreme Fire)**: 12ft radial clearance minimum\n")
	b.WriteString("- **Tier 2 (Elevated Fire)**: 10ft radial clearance minimum\n")
	b.WriteString("- **Tier 1 / Non-HFTD**: 4-6ft depending on voltage class\n\n")
	b.WriteString("> Per CPUC General Order 95, Rule 35, utilities must maintain adequate clearances\n")
	b.WriteString("> to prevent contact with vegetation that could cause ignition.\n")

	return Report{
		Narrative: b.String(),
		Data:      d,
		Sources:   []string{SourceVegetation, SourceGO95},
	}, nil
}

func complianceEmoji(p float64) string {
	switch {
	case p >= 95:
		return "🟢"
	case p >= 85:
		return "🟡"
	default:
		return "🔴"
	}
}

// TrimPriorities is the data of Vegetation.TrimPriorities.
type TrimPriorities struct {
	Priorities []warehouse.Row `json:"priorities"`
	Counts     map[string]int  `json:"counts"`
	TotalCost  float64         `json:"total_cost"`
	P1Cost     float64         `json:"p1_cost"`
	P1Count    int             `json:"p1_count"`
}

var trimSLA = map[string]string{
	domain.PriorityEmergency: "Same Day",
	domain.PriorityUrgent:    "7 Days",
	domain.PriorityStandard:  "30 Days",
	domain.PriorityRoutine:   "90 Days",
}

// TrimPriorities ranks open trim work by priority and days to contact.
func (v *Vegetation) TrimPriorities(ctx context.Context) (Report, error) {
	rows, err := v.port.Query(ctx, trimPrioritiesQuery)
	if err != nil {
		return Report{}, fmt.Errorf("trim priorities: %w", err)
	}

	p1 := filter(rows, is("PRIORITY", domain.PriorityEmergency))
	d := TrimPriorities{
		Priorities: head(rows, 50),
		Counts:     map[string]int{},
		TotalCost:  sum(rows, "ESTIMATED_TRIM_COST"),
		P1Cost:     sum(p1, "ESTIMATED_TRIM_COST"),
		P1Count:    len(p1),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Vegetation Trim Priorities\n\n", vegetationEmoji)
	b.WriteString("### Priority Breakdown\n| Priority | Count | Est. Cost | Target SLA |\n|----------|-------|-----------|------------|\n")
	for _, p := range domain.WorkOrderPriorities {
		group := filter(rows, is("PRIORITY", p))
		d.Counts[p] = len(group)
		fmt.Fprintf(&b, "| %s %s | %d | %s | %s |\n",
			priorityEmoji(p), humanizeKey(p), len(group), money(sum(group, "ESTIMATED_TRIM_COST")), trimSLA[p])
	}
	fmt.Fprintf(&b, "\n**Total Estimated Cost**: %s\n\n### Top Priority Work Items\n", money(d.TotalCost))

	for _, r := range head(rows, 10) {
		days := r.FloatOr("DAYS_TO_CONTACT", 999)
		urgency := "🟡"
		switch {
		case days < 30:
			urgency = "🔴"
		case days < 90:
			urgency = "🟠"
		}
		fmt.Fprintf(&b, "- %s **%s** (%s): %.0f days to contact, %s\n",
			urgency, r.String("ASSET_ID"), r.String("SPECIES"), days, r.String("FIRE_THREAT_DISTRICT"))
	}

	return Report{
		Narrative: b.String(),
		Data:      d,
		Sources:   []string{SourceVegetation, SourceCircuit},
	}, nil
}

// PriorityBacklog totals open work for one priority.
type PriorityBacklog struct {
	Priority string  `json:"priority"`
	Count    int     `json:"count"`
	Hours    float64 `json:"hours"`
	Cost     float64 `json:"cost"`
}

// WorkOrderBacklog is the data of Vegetation.WorkOrderBacklog.
type WorkOrderBacklog struct {
	ByPriority []PriorityBacklog `json:"by_priority"`
	WorkOrders []warehouse.Row   `json:"work_orders"`
	TotalCount int               `json:"total_count"`
	TotalHours float64           `json:"total_hours"`
	TotalCost  float64           `json:"total_cost"`
}

// WorkOrderBacklog summarizes open work orders by priority.
func (v *Vegetation) WorkOrderBacklog(ctx context.Context) (Report, error) {
	rows, err := v.port.Query(ctx, openWorkOrdersQuery)
	if err != nil {
		return Report{}, fmt.Errorf("work order backlog: %w", err)
	}

	d := WorkOrderBacklog{
		WorkOrders: head(rows, 100),
		TotalCount: len(rows),
	}

	var b strings.Builder
	b.WriteString("## 📋 Work Order Backlog\n\n### Summary by Priority\n")
	b.WriteString("| Priority | Count | Est. Hours | Est. Cost |\n|----------|-------|------------|-----------|\n")
	for _, p := range domain.WorkOrderPriorities {
		group := filter(rows, func(r warehouse.Row) bool {
			got := r.String("PRIORITY")
			if got == "" {
				got = domain.PriorityRoutine
			}
			return got == p
		})
		pb := PriorityBacklog{
			Priority: p,
			Count:    len(group),
			Hours:    sum(group, "ESTIMATED_HOURS"),
			Cost:     sum(group, "ESTIMATED_COST"),
		}
		d.ByPriority = append(d.ByPriority, pb)
		d.TotalHours += pb.Hours
		d.TotalCost += pb.Cost
		fmt.Fprintf(&b, "| %s %s | %d | %.0f | %s |\n", priorityEmoji(p), humanizeKey(p), pb.Count, pb.Hours, money(pb.Cost))
	}

	fmt.Fprintf(&b, "\n**Total**: %d work orders | %.0f hours | %s\n\n### Vegetation Work Orders\n",
		d.TotalCount, d.TotalHours, money(d.TotalCost))
	for _, r := range head(filter(rows, is("WORK_TYPE", domain.WorkTypeVegetationTrim)), 10) {
		fmt.Fprintf(&b, "- **%s**: %s - %s - %s\n",
			r.String("WORK_ORDER_ID"), r.String("ASSET_ID"), r.String("PRIORITY"), money(r.FloatOr("ESTIMATED_COST", 0)))
	}

	return Report{
		Narrative: b.String(),
		Data:      d,
		Sources:   []string{SourceWorkOrder},
	}, nil
}

// PreparedWorkOrder is the data of Vegetation.PrepareWorkOrder.
type PreparedWorkOrder struct {
	Asset        warehouse.Row         `json:"asset"`
	Encroachment warehouse.Row         `json:"encroachment"`
	Draft        domain.WorkOrderDraft `json:"work_order_draft"`
}

// ActionConfirmWorkOrder asks the client to confirm a prepared draft.
const ActionConfirmWorkOrder = "confirm_work_order"

const (
	defaultDraftPriority = domain.PriorityStandard
	defaultDraftCost     = 500.0
)

// PrepareWorkOrder drafts a vegetation trim order for an asset without
// issuing it.
func (v *Vegetation) PrepareWorkOrder(ctx context.Context, assetID string) (Report, error) {
	if strings.TrimSpace(assetID) == "" {
		return Report{
			Narrative: "Please specify an asset ID to create a work order. For example: 'Issue work order for AST-00123'",
			Data:      NoData{},
			Sources:   []string{},
		}, nil
	}

	assets, err := v.port.Query(ctx, assetDetailQuery, assetID)
	if err != nil {
		return Report{}, fmt.Errorf("prepare work order: %w", err)
	}
	if len(assets) == 0 {
		return notFound(assetID), nil
	}
	asset := assets[0]

	enc, err := v.port.Query(ctx, encroachmentForAssetQuery, assetID)
	if err != nil {
		return Report{}, fmt.Errorf("prepare work order: %w", err)
	}

	draft := domain.WorkOrderDraft{
		AssetID:       assetID,
		WorkType:      domain.WorkTypeVegetationTrim,
		Priority:      defaultDraftPriority,
		EstimatedCost: defaultDraftCost,
	}
	var encroachment warehouse.Row
	if len(enc) > 0 {
		encroachment = enc[0]
		if p := encroachment.String("PRIORITY"); p != "" {
			draft.Priority = p
		}
		draft.EstimatedCost = encroachment.FloatOr("ESTIMATED_TRIM_COST", defaultDraftCost)
	}

	na := func(col string) string {
		if s := encroachment.String(col); s != "" {
			return s
		}
		return "N/A"
	}

	var b strings.Builder
	b.WriteString("## 📝 Work Order Prepared\n\n### Asset Details\n")
	fmt.Fprintf(&b, "- **Asset ID**: %s\n- **Type**: %s\n- **Region**: %s\n- **Fire District**: %s\n\n",
		assetID, asset.String("ASSET_TYPE"), asset.String("REGION"), asset.String("FIRE_THREAT_DISTRICT"))
	b.WriteString("### Encroachment Details\n")
	fmt.Fprintf(&b, "- **Species**: %s\n- **Current Clearance**: %s ft\n- **Required Clearance**: %s ft\n- **Days to Contact**: %s\n\n",
		na("SPECIES"), na("CURRENT_CLEARANCE_FT"), na("REQUIRED_CLEARANCE_FT"), na("DAYS_TO_CONTACT"))
	b.WriteString("### Recommended Work Order\n")
	fmt.Fprintf(&b, "- **Type**: %s\n- **Priority**: %s\n- **Estimated Cost**: %s\n\n",
		draft.WorkType, draft.Priority, money(draft.EstimatedCost))
	b.WriteString(`Click "Confirm" to issue this work order.` + "\n")

	return Report{
		Narrative:      b.String(),
		Data:           PreparedWorkOrder{Asset: asset, Encroachment: encroachment, Draft: draft},
		Sources:        []string{SourceAsset, SourceVegetation},
		ActionRequired: ActionConfirmWorkOrder,
	}, nil
}
