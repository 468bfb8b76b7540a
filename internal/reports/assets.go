package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ashureev/vigil/internal/season"
	"github.com/ashureev/vigil/internal/warehouse"
)

const (
	assetEmoji       = "🔧"
	assetCatchphrase = "A healthy grid starts with healthy assets."
)

// Assets reports on asset health, replacement and inspections.
type Assets struct {
	port  warehouse.Port
	clock season.Clock
}

// NewAssets creates an asset generator. A nil clock uses wall time.
func NewAssets(port warehouse.Port, clock season.Clock) *Assets {
	if clock == nil {
		clock = season.SystemClock
	}
	return &Assets{port: port, clock: clock}
}

// HealthBands counts assets per health band.
type HealthBands struct {
	Critical int `json:"critical"`
	Poor     int `json:"poor"`
	Fair     int `json:"fair"`
	Good     int `json:"good"`
}

// TypeSummary aggregates one asset type.
type TypeSummary struct {
	AssetType string  `json:"asset_type"`
	Count     int     `json:"count"`
	AvgHealth float64 `json:"avg_health"`
	AvgAge    float64 `json:"avg_age"`
}

// AssetOverview is the data of Assets.Overview.
type AssetOverview struct {
	Region        string             `json:"region,omitempty"`
	TotalAssets   int                `json:"total_assets"`
	Health        HealthBands        `json:"health_distribution"`
	HealthPercent map[string]float64 `json:"health_pct"`
	HighRiskCount int                `json:"high_risk_count"`
	OldAssetCount int                `json:"old_asset_count"`
	AvgAge        float64            `json:"avg_age"`
	TotalValue    float64            `json:"total_value"`
	AtRiskValue   float64            `json:"at_risk_value"`
	CriticalValue float64            `json:"critical_value"`
	ByType        []TypeSummary      `json:"by_type"`
	Assets        []warehouse.Row    `json:"assets"`
}

func healthBand(h float64) string {
	switch {
	case h < 40:
		return "critical"
	case h < 60:
		return "poor"
	case h < 80:
		return "fair"
	default:
		return "good"
	}
}

func highRisk(r warehouse.Row) bool { return risk(r) > 70 }

// Overview summarizes the asset portfolio, optionally scoped to a region.
func (a *Assets) Overview(ctx context.Context, region string) (Report, error) {
	rows, err := a.port.Query(ctx, assetsQuery, region, region)
	if err != nil {
		return Report{}, fmt.Errorf("asset overview: %w", err)
	}

	d := AssetOverview{
		Region:        region,
		TotalAssets:   len(rows),
		HighRiskCount: countIf(rows, highRisk),
		OldAssetCount: countIf(rows, func(r warehouse.Row) bool { return r.FloatOr("ASSET_AGE_YEARS", 0) > 30 }),
		AvgAge:        ratio(sum(rows, "ASSET_AGE_YEARS"), len(rows)),
		TotalValue:    sum(rows, "REPLACEMENT_COST"),
		AtRiskValue:   sum(filter(rows, highRisk), "REPLACEMENT_COST"),
		ByType:        []TypeSummary{},
		Assets:        head(rows, 100),
	}

	byType := map[string][]warehouse.Row{}
	var order []string
	for _, r := range rows {
		switch healthBand(health(r)) {
		case "critical":
			d.Health.Critical++
			d.CriticalValue += r.FloatOr("REPLACEMENT_COST", 0)
		case "poor":
			d.Health.Poor++
		case "fair":
			d.Health.Fair++
		default:
			d.Health.Good++
		}

		t := r.String("ASSET_TYPE")
		if t == "" {
			t = "UNKNOWN"
		}
		if _, ok := byType[t]; !ok {
			order = append(order, t)
		}
		byType[t] = append(byType[t], r)
	}
	d.HealthPercent = map[string]float64{
		"critical": pct(d.Health.Critical, d.TotalAssets),
		"poor":     pct(d.Health.Poor, d.TotalAssets),
		"fair":     pct(d.Health.Fair, d.TotalAssets),
		"good":     pct(d.Health.Good, d.TotalAssets),
	}

	sort.SliceStable(order, func(i, j int) bool { return len(byType[order[i]]) > len(byType[order[j]]) })
	for _, t := range order {
		group := byType[t]
		healthSum := 0.0
		for _, r := range group {
			healthSum += health(r)
		}
		d.ByType = append(d.ByType, TypeSummary{
			AssetType: t,
			Count:     len(group),
			AvgHealth: ratio(healthSum, len(group)),
			AvgAge:    ratio(sum(group, "ASSET_AGE_YEARS"), len(group)),
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Asset Health Overview - %s\n\n", assetEmoji, scope(region))
	b.WriteString("### Portfolio Summary\n")
	fmt.Fprintf(&b, "- **Total Assets**: %s\n- **Average Age**: %.1f years\n- **Total Replacement Value**: %s\n\n",
		count(d.TotalAssets), d.AvgAge, millions(d.TotalValue))
	b.WriteString("### Health Distribution\n| Condition | Count | % | Value at Risk |\n|-----------|-------|---|---------------|\n")
	fmt.Fprintf(&b, "| 🔴 Critical (<40) | %d | %.1f%% | %s |\n", d.Health.Critical, d.HealthPercent["critical"], millions(d.CriticalValue))
	fmt.Fprintf(&b, "| 🟠 Poor (40-60) | %d | %.1f%% | - |\n", d.Health.Poor, d.HealthPercent["poor"])
	fmt.Fprintf(&b, "| 🟡 Fair (60-80) | %d | %.1f%% | - |\n", d.Health.Fair, d.HealthPercent["fair"])
	fmt.Fprintf(&b, "| 🟢 Good (80+) | %d | %.1f%% | - |\n\n", d.Health.Good, d.HealthPercent["good"])
	b.WriteString("### Risk Summary\n")
	fmt.Fprintf(&b, "- **High Risk Assets** (score >70): %d\n- **Value at Risk**: %s\n- **Assets >30 years old**: %d\n\n",
		d.HighRiskCount, millions(d.AtRiskValue), d.OldAssetCount)
	b.WriteString("### Asset Type Breakdown\n| Type | Count | Avg Health | Avg Age |\n|------|-------|------------|---------|\n")
	for _, ts := range d.ByType {
		fmt.Fprintf(&b, "| %s | %d | %.1f | %.1f |\n", ts.AssetType, ts.Count, ts.AvgHealth, ts.AvgAge)
	}
	b.WriteString(quote(assetCatchphrase))

	return Report{
		Narrative: b.String(),
		Data:      d,
		Sources:   []string{SourceAsset, SourceRisk},
	}, nil
}

// ReplacementPriorities is the data of Assets.ReplacementPriorities.
type ReplacementPriorities struct {
	Candidates []warehouse.Row `json:"replacement_candidates"`
	Count      int             `json:"count"`
	TotalCost  float64         `json:"total_cost"`
}

// ReplacementPriorities lists assets with health under 50 or risk over 75,
// riskiest first.
func (a *Assets) ReplacementPriorities(ctx context.Context) (Report, error) {
	rows, err := a.port.Query(ctx, assetsQuery, "", "")
	if err != nil {
		return Report{}, fmt.Errorf("replacement priorities: %w", err)
	}

	candidates := filter(rows, func(r warehouse.Row) bool { return health(r) < 50 || risk(r) > 75 })
	sort.SliceStable(candidates, func(i, j int) bool { return risk(candidates[i]) > risk(candidates[j]) })
	d := ReplacementPriorities{
		Candidates: head(candidates, 50),
		Count:      len(candidates),
		TotalCost:  sum(candidates, "REPLACEMENT_COST"),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Asset Replacement Priorities\n\n", assetEmoji)
	fmt.Fprintf(&b, "### Summary\n- **Assets Requiring Attention**: %d\n- **Total Replacement Cost**: %s\n\n", d.Count, millions(d.TotalCost))
	b.WriteString("### Top 15 Priority Replacements\n")
	b.WriteString("| Asset ID | Type | Age | Health | Risk | Est. Cost |\n|----------|------|-----|--------|------|-----------|\n")
	for _, r := range head(candidates, 15) {
		fmt.Fprintf(&b, "| %s | %s | %.0fy | %.0f | %.0f | $%.0fK |\n",
			r.String("ASSET_ID"), r.String("ASSET_TYPE"), r.FloatOr("ASSET_AGE_YEARS", 0),
			health(r), risk(r), r.FloatOr("REPLACEMENT_COST", 0)/1e3)
	}
	b.WriteString("\n### Recommendation\nPrioritize assets with:\n")
	b.WriteString("1. Risk score > 80 in Tier 3 fire districts\n")
	b.WriteString("2. Health score < 40 with high criticality\n")
	b.WriteString("3. Age > 40 years with declining performance\n")

	return Report{
		Narrative: b.String(),
		Data:      d,
		Sources:   []string{SourceAsset, SourceRisk},
	}, nil
}

// AssetDetail is the data of Assets.Detail.
type AssetDetail struct {
	Asset          warehouse.Row   `json:"asset"`
	WorkOrders     []warehouse.Row `json:"work_orders"`
	RiskAssessment warehouse.Row   `json:"risk_assessment"`
}

// Detail reports everything known about one asset.
func (a *Assets) Detail(ctx context.Context, assetID string) (Report, error) {
	rows, err := a.port.Query(ctx, assetDetailQuery, assetID)
	if err != nil {
		return Report{}, fmt.Errorf("asset detail: %w", err)
	}
	if len(rows) == 0 {
		return notFound(assetID), nil
	}
	asset := rows[0]

	orders, err := a.port.Query(ctx, workOrdersForAssetQuery, assetID)
	if err != nil {
		return Report{}, fmt.Errorf("asset work orders: %w", err)
	}
	assessments, err := a.port.Query(ctx, riskForAssetQuery, assetID)
	if err != nil {
		return Report{}, fmt.Errorf("asset risk assessment: %w", err)
	}
	var assessment warehouse.Row
	if len(assessments) > 0 {
		assessment = assessments[0]
	}

	h := health(asset)
	statuses := map[string]string{"critical": "🔴 Critical", "poor": "🟠 Poor", "fair": "🟡 Fair", "good": "🟢 Good"}
	riskStatus := "🟢 Normal"
	if highRisk(asset) {
		riskStatus = "🔴 High"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Asset Detail: %s\n\n", assetEmoji, assetID)
	b.WriteString("### Basic Information\n| Property | Value |\n|----------|-------|\n")
	fmt.Fprintf(&b, "| Type | %s |\n| Material | %s |\n| Region | %s |\n| Circuit | %s |\n| Install Date | %s |\n| Age | %.0f years |\n\n",
		asset.String("ASSET_TYPE"), asset.String("MATERIAL"), asset.String("REGION"),
		asset.String("CIRCUIT_ID"), asset.String("INSTALL_DATE"), asset.FloatOr("ASSET_AGE_YEARS", 0))
	b.WriteString("### Health & Risk\n| Metric | Value | Status |\n|--------|-------|--------|\n")
	fmt.Fprintf(&b, "| Health Score | %.0f/100 | %s |\n", h, statuses[healthBand(h)])
	fmt.Fprintf(&b, "| Risk Score | %.0f/100 | %s |\n", risk(asset), riskStatus)
	fmt.Fprintf(&b, "| Fire District | %s | - |\n", asset.String("FIRE_THREAT_DISTRICT"))
	fmt.Fprintf(&b, "| Criticality | %.1fx | - |\n\n", asset.FloatOr("CRITICALITY_FACTOR", 1))
	fmt.Fprintf(&b, "### Replacement\n- **Estimated Cost**: %s\n- **Last Inspection**: %s\n- **Next Due**: %s\n\n",
		money(asset.FloatOr("REPLACEMENT_COST", 0)), asset.String("LAST_INSPECTION_DATE"), asset.String("NEXT_INSPECTION_DUE"))
	if assessment != nil {
		fmt.Fprintf(&b, "### Latest Risk Assessment\n- **Tier**: %s\n- **Ignition Probability**: %.0f%%\n- **Composite Score**: %.1f\n\n",
			assessment.String("RISK_TIER"), assessment.FloatOr("IGNITION_PROBABILITY", 0)*100, assessment.FloatOr("COMPOSITE_RISK_SCORE", 0))
	}
	b.WriteString("### Work Order History\n")
	if len(orders) == 0 {
		b.WriteString("No recent work orders.\n")
	}
	for _, wo := range head(orders, 5) {
		fmt.Fprintf(&b, "- %s: %s - %s\n", wo.String("WORK_ORDER_ID"), wo.String("WORK_TYPE"), wo.String("STATUS"))
	}

	return Report{
		Narrative: b.String(),
		Data:      AssetDetail{Asset: asset, WorkOrders: head(orders, 20), RiskAssessment: assessment},
		Sources:   []string{SourceAsset, SourceWorkOrder, SourceRisk},
	}, nil
}

// InspectionSchedule is the data of Assets.InspectionSchedule.
type InspectionSchedule struct {
	Overdue  []warehouse.Row `json:"overdue"`
	Upcoming []warehouse.Row `json:"upcoming"`
}

// InspectionSchedule lists overdue inspections and those due within 30
// days of the generator's clock.
func (a *Assets) InspectionSchedule(ctx context.Context) (Report, error) {
	rows, err := a.port.Query(ctx, assetsQuery, "", "")
	if err != nil {
		return Report{}, fmt.Errorf("inspection schedule: %w", err)
	}

	now := a.clock().UTC()
	today := now.Format(time.DateOnly)
	horizon := now.AddDate(0, 0, 30).Format(time.DateOnly)

	// ISO dates compare correctly as strings.
	due := func(r warehouse.Row) string { return dateOnly(r.String("NEXT_INSPECTION_DUE")) }
	upcoming := filter(rows, func(r warehouse.Row) bool { return due(r) != "" && due(r) <= horizon })
	overdue := filter(rows, func(r warehouse.Row) bool { return due(r) != "" && due(r) < today })
	sort.SliceStable(overdue, func(i, j int) bool { return due(overdue[i]) < due(overdue[j]) })

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Inspection Schedule\n\n", assetEmoji)
	fmt.Fprintf(&b, "### Summary\n- **Overdue Inspections**: %d ⚠️\n- **Due in Next 30 Days**: %d\n\n", len(overdue), len(upcoming))
	b.WriteString("### Overdue - Immediate Attention Required\n")
	b.WriteString("| Asset ID | Type | Last Inspection | Days Overdue |\n|----------|------|-----------------|--------------|\n")
	for _, r := range head(overdue, 10) {
		days := 0
		if t, err := time.Parse(time.DateOnly, due(r)); err == nil {
			days = int(now.Truncate(24*time.Hour).Sub(t).Hours() / 24)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %d |\n",
			r.String("ASSET_ID"), r.String("ASSET_TYPE"), r.String("LAST_INSPECTION_DATE"), days)
	}

	return Report{
		Narrative: b.String(),
		Data:      InspectionSchedule{Overdue: head(overdue, 50), Upcoming: head(upcoming, 50)},
		Sources:   []string{SourceAsset},
	}, nil
}

func dateOnly(s string) string {
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}
