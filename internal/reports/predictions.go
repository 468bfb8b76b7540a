package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ashureev/vigil/internal/season"
	"github.com/ashureev/vigil/internal/warehouse"
)

const (
	predictionEmoji = "🤖"

	// DefaultPredictionLimit and MaxPredictionLimit bound the per-model
	// listings. Urgent actions use the smaller pair.
	DefaultPredictionLimit = 100
	MaxPredictionLimit     = 500
	DefaultUrgentLimit     = 50
	MaxUrgentLimit         = 200

	// A vegetation contact without a projection counts as far away.
	unknownDaysToContact = 999
)

const (
	sourceHealthPrediction   = "ASSET_HEALTH_PREDICTION"
	sourceGrowthPrediction   = "VEGETATION_GROWTH_PREDICTION"
	sourceIgnitionPrediction = "IGNITION_RISK_PREDICTION"
	sourceCableForecast      = "CABLE_FAILURE_FORECAST"
	sourceCombinedRisk       = "COMBINED_RISK_SUMMARY"
)

// Predictions serves the model outputs: per-asset health, vegetation
// growth, ignition risk and water treeing forecasts plus the combined
// maintenance ranking built from them.
type Predictions struct {
	port  warehouse.Port
	clock season.Clock
}

// NewPredictions creates a predictions generator. A nil clock uses wall time.
func NewPredictions(port warehouse.Port, clock season.Clock) *Predictions {
	if clock == nil {
		clock = season.SystemClock
	}
	return &Predictions{port: port, clock: clock}
}

func clampLimit(limit, def, ceiling int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, ceiling)
}

// avg divides by at least one so an empty set averages to 0.
func avg(total float64, n int) float64 {
	return total / float64(max(n, 1))
}

func (p *Predictions) list(ctx context.Context, query string, limit int) ([]warehouse.Row, error) {
	rows, err := p.port.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return head(rows, len(rows)), nil
}

// HealthSummary summarizes AssetHealth.
type HealthSummary struct {
	TotalPredictions  int     `json:"total_predictions"`
	CriticalCondition int     `json:"critical_condition"`
	AvgHealthScore    float64 `json:"avg_health_score"`
}

// HealthForecast is the data of Predictions.AssetHealth.
type HealthForecast struct {
	Predictions []warehouse.Row  `json:"predictions"`
	Summary     HealthSummary    `json:"summary"`
	FireSeason  season.Countdown `json:"fire_season"`
}

// AssetHealth lists the projected health scores, worst first.
func (p *Predictions) AssetHealth(ctx context.Context, limit int) (Report, error) {
	rows, err := p.list(ctx, assetHealthPredictionsQuery, clampLimit(limit, DefaultPredictionLimit, MaxPredictionLimit))
	if err != nil {
		return Report{}, fmt.Errorf("asset health predictions: %w", err)
	}

	d := HealthForecast{
		Predictions: rows,
		Summary: HealthSummary{
			TotalPredictions:  len(rows),
			CriticalCondition: countIf(rows, is("PREDICTED_CONDITION", "CRITICAL")),
			AvgHealthScore:    avg(sum(rows, "PREDICTED_HEALTH_SCORE"), len(rows)),
		},
		FireSeason: season.CountdownAt(p.clock()),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Asset Health Forecast\n\n", predictionEmoji)
	fmt.Fprintf(&b, "- Assets projected: **%d**\n", d.Summary.TotalPredictions)
	fmt.Fprintf(&b, "- Projected critical: **%d**\n", d.Summary.CriticalCondition)
	fmt.Fprintf(&b, "- Average projected health: **%.1f**\n", d.Summary.AvgHealthScore)
	writePredictionRows(&b, rows, 5, func(r warehouse.Row) string {
		return fmt.Sprintf("%s (%s): %.1f → %.1f, %s", r.String("ASSET_ID"), r.String("ASSET_TYPE"),
			r.FloatOr("ACTUAL_HEALTH_SCORE", 0), r.FloatOr("PREDICTED_HEALTH_SCORE", 0), r.String("PREDICTED_CONDITION"))
	})

	rep := Report{Narrative: b.String(), Data: d, Sources: []string{sourceHealthPrediction, SourceAsset}}
	if d.Summary.CriticalCondition > 0 {
		rep.AlertLevel = "high"
	}
	return rep, nil
}

// GrowthSummary summarizes VegetationGrowth.
type GrowthSummary struct {
	TotalPredictions int     `json:"total_predictions"`
	HighGrowthRisk   int     `json:"high_growth_risk"`
	UrgentTrimNeeded int     `json:"urgent_trim_needed"`
	AvgDaysToContact float64 `json:"avg_days_to_contact"`
}

// GrowthForecast is the data of Predictions.VegetationGrowth.
type GrowthForecast struct {
	Predictions []warehouse.Row  `json:"predictions"`
	Summary     GrowthSummary    `json:"summary"`
	FireSeason  season.Countdown `json:"fire_season"`
}

// VegetationGrowth lists projected days to line contact, soonest first.
func (p *Predictions) VegetationGrowth(ctx context.Context, limit int) (Report, error) {
	rows, err := p.list(ctx, growthPredictionsQuery, clampLimit(limit, DefaultPredictionLimit, MaxPredictionLimit))
	if err != nil {
		return Report{}, fmt.Errorf("vegetation growth predictions: %w", err)
	}

	urgent := func(r warehouse.Row) bool {
		return r.FloatOr("PREDICTED_DAYS_TO_CONTACT", unknownDaysToContact) < 30
	}
	d := GrowthForecast{
		Predictions: rows,
		Summary: GrowthSummary{
			TotalPredictions: len(rows),
			HighGrowthRisk:   countIf(rows, is("GROWTH_RISK", "HIGH")),
			UrgentTrimNeeded: countIf(rows, urgent),
			AvgDaysToContact: avg(sum(rows, "PREDICTED_DAYS_TO_CONTACT"), len(rows)),
		},
		FireSeason: season.CountdownAt(p.clock()),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Vegetation Growth Forecast\n\n", predictionEmoji)
	fmt.Fprintf(&b, "- Encroachments projected: **%d**\n", d.Summary.TotalPredictions)
	fmt.Fprintf(&b, "- High growth risk: **%d**\n", d.Summary.HighGrowthRisk)
	fmt.Fprintf(&b, "- Contact within 30 days: **%d**\n", d.Summary.UrgentTrimNeeded)
	fmt.Fprintf(&b, "- Average days to contact: **%.0f**\n", d.Summary.AvgDaysToContact)
	writePredictionRows(&b, rows, 5, func(r warehouse.Row) string {
		return fmt.Sprintf("%s %s: %d days at %.2f ft/yr", r.String("ASSET_ID"), r.String("SPECIES"),
			r.IntOr("PREDICTED_DAYS_TO_CONTACT", unknownDaysToContact), r.FloatOr("PREDICTED_GROWTH_RATE", 0))
	})

	rep := Report{Narrative: b.String(), Data: d, Sources: []string{sourceGrowthPrediction, SourceVegetation}}
	if d.Summary.UrgentTrimNeeded > 0 {
		rep.AlertLevel = "high"
		rep.ActionRequired = fmt.Sprintf("Schedule trims for %d spans projected to contact within 30 days", d.Summary.UrgentTrimNeeded)
	}
	return rep, nil
}

// IgnitionSummary summarizes IgnitionRisk. ByAssetType counts the high
// risk rows only.
type IgnitionSummary struct {
	TotalPredictions int            `json:"total_predictions"`
	HighRiskAssets   int            `json:"high_risk_assets"`
	ByAssetType      map[string]int `json:"by_asset_type"`
}

// IgnitionForecast is the data of Predictions.IgnitionRisk.
type IgnitionForecast struct {
	Predictions []warehouse.Row  `json:"predictions"`
	Summary     IgnitionSummary  `json:"summary"`
	FireSeason  season.Countdown `json:"fire_season"`
}

// IgnitionRisk lists ignition risk bands, high first and worst condition
// first within a band.
func (p *Predictions) IgnitionRisk(ctx context.Context, limit int) (Report, error) {
	rows, err := p.list(ctx, ignitionPredictionsQuery, clampLimit(limit, DefaultPredictionLimit, MaxPredictionLimit))
	if err != nil {
		return Report{}, fmt.Errorf("ignition risk predictions: %w", err)
	}

	high := filter(rows, is("RISK_LEVEL", "HIGH"))
	d := IgnitionForecast{
		Predictions: rows,
		Summary: IgnitionSummary{
			TotalPredictions: len(rows),
			HighRiskAssets:   len(high),
			ByAssetType:      tally(high, "ASSET_TYPE"),
		},
		FireSeason: season.CountdownAt(p.clock()),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Ignition Risk Forecast\n\n", fireEmoji)
	fmt.Fprintf(&b, "- Assets classified: **%d**\n", d.Summary.TotalPredictions)
	fmt.Fprintf(&b, "- High ignition risk: **%d**\n", d.Summary.HighRiskAssets)
	for _, k := range sortedKeys(d.Summary.ByAssetType) {
		fmt.Fprintf(&b, "  - %s: %d\n", humanizeKey(k), d.Summary.ByAssetType[k])
	}

	rep := Report{Narrative: b.String(), Data: d, Sources: []string{sourceIgnitionPrediction, SourceRisk}}
	if d.Summary.HighRiskAssets > 0 {
		rep.AlertLevel = "high"
	}
	return rep, nil
}

// CableSummary summarizes CableFailure.
type CableSummary struct {
	TotalCablesAnalyzed int     `json:"total_cables_analyzed"`
	AtRiskCables        int     `json:"at_risk_cables"`
	AvgAgeAtRisk        float64 `json:"avg_age_at_risk"`
}

// DiscoveryInfo explains the water treeing signal.
type DiscoveryInfo struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	BusinessValue string `json:"business_value"`
}

// CableForecast is the data of Predictions.CableFailure.
type CableForecast struct {
	Predictions   []warehouse.Row  `json:"predictions"`
	Summary       CableSummary     `json:"summary"`
	DiscoveryInfo DiscoveryInfo    `json:"discovery_info"`
	FireSeason    season.Countdown `json:"fire_season"`
}

var waterTreeingInfo = DiscoveryInfo{
	Name:          "Water Treeing Detection",
	Description:   "Hidden pattern: Rain-correlated voltage dips indicate moisture intrusion",
	BusinessValue: "Predict failures 6-12 months early, prevent outages",
}

// CableFailure lists the water treeing forecast, flagged cables first.
func (p *Predictions) CableFailure(ctx context.Context, limit int) (Report, error) {
	rows, err := p.list(ctx, cableForecastQuery, clampLimit(limit, DefaultPredictionLimit, MaxPredictionLimit))
	if err != nil {
		return Report{}, fmt.Errorf("cable failure predictions: %w", err)
	}

	atRisk := filter(rows, func(r warehouse.Row) bool { return r.IntOr("PREDICTED_WATER_TREEING", 0) == 1 })
	d := CableForecast{
		Predictions: rows,
		Summary: CableSummary{
			TotalCablesAnalyzed: len(rows),
			AtRiskCables:        len(atRisk),
			AvgAgeAtRisk:        avg(sum(atRisk, "ASSET_AGE_YEARS"), len(atRisk)),
		},
		DiscoveryInfo: waterTreeingInfo,
		FireSeason:    season.CountdownAt(p.clock()),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s %s\n\n", discoveryEmoji, waterTreeingInfo.Name)
	fmt.Fprintf(&b, "_%s_\n\n", waterTreeingInfo.Description)
	fmt.Fprintf(&b, "- Cables analyzed: **%d**\n", d.Summary.TotalCablesAnalyzed)
	fmt.Fprintf(&b, "- Predicted water treeing: **%d**\n", d.Summary.AtRiskCables)
	fmt.Fprintf(&b, "- Average age at risk: **%.1f years**\n", d.Summary.AvgAgeAtRisk)

	rep := Report{Narrative: b.String(), Data: d, Sources: []string{sourceCableForecast, SourceCable, SourceAMI}}
	if d.Summary.AtRiskCables > 0 {
		rep.AlertLevel = "high"
	}
	return rep, nil
}

// ModelCard describes one forecast model. Counts holds the model's flagged
// totals, e.g. critical_count or at_risk_count.
type ModelCard struct {
	Name             string         `json:"name"`
	Icon             string         `json:"icon"`
	Algorithm        string         `json:"algorithm"`
	Status           string         `json:"status"`
	TotalPredictions int            `json:"total_predictions"`
	Counts           map[string]int `json:"counts"`
	HiddenDiscovery  bool           `json:"hidden_discovery,omitempty"`
}

// ModelOverview is the data of Predictions.Summary.
type ModelOverview struct {
	Models     map[string]ModelCard `json:"models"`
	FireSeason season.Countdown     `json:"fire_season"`
}

var modelCards = []struct {
	key     string
	card    ModelCard
	flagged string
	urgent  string
}{
	{"asset_health", ModelCard{Name: "Asset Health Predictor", Icon: "activity", Algorithm: "Age and moisture degradation"}, "critical_count", ""},
	{"vegetation_growth", ModelCard{Name: "Vegetation Growth", Icon: "tree-pine", Algorithm: "Species growth projection"}, "high_risk_count", "urgent_count"},
	{"ignition_risk", ModelCard{Name: "Ignition Risk", Icon: "flame", Algorithm: "Ignition probability banding"}, "high_risk_count", ""},
	{"cable_failure", ModelCard{Name: "Water Treeing", Icon: "zap", Algorithm: "Correlation Analysis", HiddenDiscovery: true}, "at_risk_count", ""},
}

// Summary reports each model's prediction and flagged counts.
func (p *Predictions) Summary(ctx context.Context) (Report, error) {
	rows, err := p.port.Query(ctx, modelCountsQuery)
	if err != nil {
		return Report{}, fmt.Errorf("model summary: %w", err)
	}
	byModel := make(map[string]warehouse.Row, len(rows))
	for _, r := range rows {
		byModel[r.String("MODEL")] = r
	}

	d := ModelOverview{Models: make(map[string]ModelCard, len(modelCards)), FireSeason: season.CountdownAt(p.clock())}
	var b strings.Builder
	fmt.Fprintf(&b, "## %s Forecast Models\n\n", predictionEmoji)
	for _, m := range modelCards {
		r := byModel[m.key]
		card := m.card
		card.Status = "active"
		card.TotalPredictions = r.IntOr("TOTAL", 0)
		card.Counts = map[string]int{m.flagged: r.IntOr("FLAGGED", 0)}
		if m.urgent != "" {
			card.Counts[m.urgent] = r.IntOr("URGENT", 0)
		}
		d.Models[m.key] = card
		fmt.Fprintf(&b, "- **%s**: %s predictions, %d %s\n", card.Name, count(card.TotalPredictions),
			card.Counts[m.flagged], humanizeKey(strings.TrimSuffix(m.flagged, "_count")))
	}

	sources := []string{sourceHealthPrediction, sourceGrowthPrediction, sourceIgnitionPrediction, sourceCableForecast}
	return Report{Narrative: b.String(), Data: d, Sources: sources}, nil
}

// CombinedSummary summarizes CombinedRisk.
type CombinedSummary struct {
	TotalAssets  int            `json:"total_assets"`
	ByPriority   map[string]int `json:"by_priority"`
	ByRegion     map[string]int `json:"by_region"`
	AvgRiskScore float64        `json:"avg_risk_score"`
}

// CombinedForecast is the data of Predictions.CombinedRisk.
type CombinedForecast struct {
	Assets     []warehouse.Row  `json:"assets"`
	Summary    CombinedSummary  `json:"summary"`
	FireSeason season.Countdown `json:"fire_season"`
}

// CombinedRisk ranks assets by the composite of all forecasts.
func (p *Predictions) CombinedRisk(ctx context.Context, limit int) (Report, error) {
	rows, err := p.list(ctx, combinedRiskQuery, clampLimit(limit, DefaultPredictionLimit, MaxPredictionLimit))
	if err != nil {
		return Report{}, fmt.Errorf("combined risk: %w", err)
	}

	d := CombinedForecast{
		Assets: rows,
		Summary: CombinedSummary{
			TotalAssets:  len(rows),
			ByPriority:   tally(rows, "MAINTENANCE_PRIORITY"),
			ByRegion:     tally(rows, "REGION"),
			AvgRiskScore: avg(sum(rows, "COMPOSITE_ML_RISK_SCORE"), len(rows)),
		},
		FireSeason: season.CountdownAt(p.clock()),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Combined Risk Ranking\n\n", predictionEmoji)
	fmt.Fprintf(&b, "- Assets ranked: **%d**\n", d.Summary.TotalAssets)
	fmt.Fprintf(&b, "- Average composite score: **%.1f**\n", d.Summary.AvgRiskScore)
	for _, k := range sortedKeys(d.Summary.ByPriority) {
		fmt.Fprintf(&b, "  - %s: %d\n", k, d.Summary.ByPriority[k])
	}

	return Report{Narrative: b.String(), Data: d, Sources: []string{sourceCombinedRisk}}, nil
}

// RegionalRisk is the data of Predictions.CombinedRiskByRegion.
type RegionalRisk struct {
	Regions    []warehouse.Row  `json:"regions"`
	FireSeason season.Countdown `json:"fire_season"`
}

// CombinedRiskByRegion aggregates the composite ranking per region,
// riskiest region first.
func (p *Predictions) CombinedRiskByRegion(ctx context.Context) (Report, error) {
	rows, err := p.port.Query(ctx, combinedRiskByRegionQuery)
	if err != nil {
		return Report{}, fmt.Errorf("combined risk by region: %w", err)
	}
	d := RegionalRisk{Regions: head(rows, len(rows)), FireSeason: season.CountdownAt(p.clock())}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Combined Risk by Region\n\n", predictionEmoji)
	if len(rows) == 0 {
		b.WriteString("No assets have been ranked yet.\n")
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "- **%s**: %d assets, avg %.1f, %d emergency, %d high\n", r.String("REGION"),
			r.IntOr("ASSET_COUNT", 0), r.FloatOr("AVG_RISK_SCORE", 0),
			r.IntOr("EMERGENCY_COUNT", 0), r.IntOr("HIGH_PRIORITY_COUNT", 0))
	}
	return Report{Narrative: b.String(), Data: d, Sources: []string{sourceCombinedRisk}}, nil
}

// UrgentSummary summarizes UrgentActions. Customers are counted for
// emergency rows only.
type UrgentSummary struct {
	EmergencyCount         int `json:"emergency_count"`
	HighPriorityCount      int `json:"high_priority_count"`
	TotalCustomersAffected int `json:"total_customers_affected"`
}

// UrgentPlan is the data of Predictions.UrgentActions.
type UrgentPlan struct {
	UrgentAssets []warehouse.Row  `json:"urgent_assets"`
	Summary      UrgentSummary    `json:"summary"`
	FireSeason   season.Countdown `json:"fire_season"`
}

// UrgentActions lists EMERGENCY then HIGH maintenance priorities.
func (p *Predictions) UrgentActions(ctx context.Context, limit int) (Report, error) {
	rows, err := p.list(ctx, urgentActionsQuery, clampLimit(limit, DefaultUrgentLimit, MaxUrgentLimit))
	if err != nil {
		return Report{}, fmt.Errorf("urgent actions: %w", err)
	}

	emergency := filter(rows, is("MAINTENANCE_PRIORITY", "EMERGENCY"))
	d := UrgentPlan{
		UrgentAssets: rows,
		Summary: UrgentSummary{
			EmergencyCount:         len(emergency),
			HighPriorityCount:      countIf(rows, is("MAINTENANCE_PRIORITY", "HIGH")),
			TotalCustomersAffected: int(sum(emergency, "TOTAL_CUSTOMERS")),
		},
		FireSeason: season.CountdownAt(p.clock()),
	}

	var b strings.Builder
	b.WriteString("## 🚨 Urgent Maintenance Actions\n\n")
	fmt.Fprintf(&b, "- Emergency: **%d** (%s customers)\n", d.Summary.EmergencyCount, count(d.Summary.TotalCustomersAffected))
	fmt.Fprintf(&b, "- High priority: **%d**\n", d.Summary.HighPriorityCount)
	writePredictionRows(&b, rows, 10, func(r warehouse.Row) string {
		return fmt.Sprintf("%s %s (%s, %s): score %.1f", r.String("MAINTENANCE_PRIORITY"), r.String("ASSET_ID"),
			r.String("ASSET_TYPE"), r.String("REGION"), r.FloatOr("COMPOSITE_ML_RISK_SCORE", 0))
	})

	rep := Report{Narrative: b.String(), Data: d, Sources: []string{sourceCombinedRisk}}
	switch {
	case d.Summary.EmergencyCount > 0:
		rep.AlertLevel = "critical"
		rep.ActionRequired = fmt.Sprintf("Dispatch crews to %d emergency assets", d.Summary.EmergencyCount)
	case d.Summary.HighPriorityCount > 0:
		rep.AlertLevel = "high"
	}
	return rep, nil
}

// AssetForecast holds each model's row for one asset. A model without a
// row for the asset is null.
type AssetForecast struct {
	Health     *warehouse.Row `json:"health"`
	Vegetation *warehouse.Row `json:"vegetation"`
	Ignition   *warehouse.Row `json:"ignition"`
	Cable      *warehouse.Row `json:"cable"`
	Combined   *warehouse.Row `json:"combined"`
}

// AssetForecasts is the data of Predictions.ForAssets. Coverage counts the
// rows each model returned.
type AssetForecasts struct {
	Predictions map[string]AssetForecast `json:"predictions"`
	TotalAssets int                      `json:"total_assets"`
	Coverage    map[string]int           `json:"coverage"`
}

// ForAssets gathers every model's forecast for up to MaxPredictionLimit
// assets. The five lookups run concurrently.
func (p *Predictions) ForAssets(ctx context.Context, assetIDs []string) (Report, error) {
	if len(assetIDs) > MaxPredictionLimit {
		assetIDs = assetIDs[:MaxPredictionLimit]
	}
	d := AssetForecasts{Predictions: map[string]AssetForecast{}, TotalAssets: len(assetIDs), Coverage: map[string]int{}}
	if len(assetIDs) == 0 {
		return Report{Narrative: "No assets requested.", Data: d, Sources: []string{}}, nil
	}

	args := make([]any, len(assetIDs))
	for i, id := range assetIDs {
		args[i] = id
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(assetIDs)), ",")

	lookups := []struct {
		model string
		query string
	}{
		{"health", healthForAssetsQuery},
		{"vegetation", growthForAssetsQuery},
		{"ignition", ignitionForAssetsQuery},
		{"cable", cableForAssetsQuery},
		{"combined", combinedForAssetsQuery},
	}
	results := make([][]warehouse.Row, len(lookups))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range lookups {
		g.Go(func() error {
			rows, err := p.port.Query(gctx, fmt.Sprintf(l.query, marks), args...)
			if err != nil {
				return fmt.Errorf("load %s forecasts: %w", l.model, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("asset forecasts: %w", err)
	}

	// The first row per asset wins; vegetation rows arrive soonest contact first.
	firstByAsset := func(rows []warehouse.Row) map[string]*warehouse.Row {
		out := make(map[string]*warehouse.Row, len(rows))
		for i := range rows {
			id := rows[i].String("ASSET_ID")
			if _, seen := out[id]; !seen {
				out[id] = &rows[i]
			}
		}
		return out
	}
	byModel := make([]map[string]*warehouse.Row, len(lookups))
	for i, l := range lookups {
		byModel[i] = firstByAsset(results[i])
		d.Coverage[l.model] = len(results[i])
	}
	for _, id := range assetIDs {
		d.Predictions[id] = AssetForecast{
			Health:     byModel[0][id],
			Vegetation: byModel[1][id],
			Ignition:   byModel[2][id],
			Cable:      byModel[3][id],
			Combined:   byModel[4][id],
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Asset Forecasts\n\n- Assets requested: **%d**\n", predictionEmoji, d.TotalAssets)
	for _, l := range lookups {
		fmt.Fprintf(&b, "- %s rows: %d\n", l.model, d.Coverage[l.model])
	}
	sources := []string{sourceHealthPrediction, sourceGrowthPrediction, sourceIgnitionPrediction, sourceCableForecast, sourceCombinedRisk}
	return Report{Narrative: b.String(), Data: d, Sources: sources}, nil
}

// tally counts rows per value of col. Null values count as UNKNOWN.
func tally(rows []warehouse.Row, col string) map[string]int {
	out := map[string]int{}
	for _, r := range rows {
		k := r.String(col)
		if k == "" {
			k = "UNKNOWN"
		}
		out[k]++
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writePredictionRows(b *strings.Builder, rows []warehouse.Row, n int, line func(warehouse.Row) string) {
	if len(rows) == 0 {
		b.WriteString("\nNo predictions available.\n")
		return
	}
	b.WriteString("\n### Top entries\n")
	for _, r := range head(rows, n) {
		fmt.Fprintf(b, "- %s\n", line(r))
	}
}
