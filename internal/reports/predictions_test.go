package reports

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/vigil/internal/warehouse"
)

func TestAssetHealthSummary(t *testing.T) {
	port := newFakePort()
	port.results[assetHealthPredictionsQuery] = []warehouse.Row{
		warehouse.NewRow("ASSET_ID", "AST-00001", "PREDICTED_HEALTH_SCORE", 20.0, "PREDICTED_CONDITION", "CRITICAL"),
		warehouse.NewRow("ASSET_ID", "AST-00002", "PREDICTED_HEALTH_SCORE", 70.0, "PREDICTED_CONDITION", "FAIR"),
		warehouse.NewRow("ASSET_ID", "AST-00003", "PREDICTED_HEALTH_SCORE", nil, "PREDICTED_CONDITION", "GOOD"),
	}

	rep, err := NewPredictions(port, fixedClock(may1)).AssetHealth(context.Background(), 0)
	require.NoError(t, err)

	d := rep.Data.(HealthForecast)
	assert.Equal(t, 3, d.Summary.TotalPredictions)
	assert.Equal(t, 1, d.Summary.CriticalCondition)
	assert.InDelta(t, 30.0, d.Summary.AvgHealthScore, 0.001)
	assert.Equal(t, 31, d.FireSeason.DaysRemaining)
	assert.Equal(t, "high", rep.AlertLevel)
}

func TestVegetationGrowthTreatsMissingContactAsFar(t *testing.T) {
	port := newFakePort()
	port.results[growthPredictionsQuery] = []warehouse.Row{
		warehouse.NewRow("ASSET_ID", "AST-00001", "PREDICTED_DAYS_TO_CONTACT", int64(10), "GROWTH_RISK", "HIGH"),
		warehouse.NewRow("ASSET_ID", "AST-00002", "PREDICTED_DAYS_TO_CONTACT", int64(29), "GROWTH_RISK", "MEDIUM"),
		warehouse.NewRow("ASSET_ID", "AST-00003", "PREDICTED_DAYS_TO_CONTACT", int64(30), "GROWTH_RISK", "LOW"),
		warehouse.NewRow("ASSET_ID", "AST-00004", "PREDICTED_DAYS_TO_CONTACT", nil, "GROWTH_RISK", "LOW"),
	}

	rep, err := NewPredictions(port, fixedClock(may1)).VegetationGrowth(context.Background(), 0)
	require.NoError(t, err)

	d := rep.Data.(GrowthForecast)
	assert.Equal(t, 4, d.Summary.TotalPredictions)
	assert.Equal(t, 1, d.Summary.HighGrowthRisk)
	assert.Equal(t, 2, d.Summary.UrgentTrimNeeded)
	// Nulls add nothing to the average but still count in the divisor.
	assert.InDelta(t, 17.25, d.Summary.AvgDaysToContact, 0.001)
	assert.Contains(t, rep.ActionRequired, "2 spans")
}

func TestIgnitionRiskCountsHighRiskByType(t *testing.T) {
	port := newFakePort()
	port.results[ignitionPredictionsQuery] = []warehouse.Row{
		warehouse.NewRow("ASSET_TYPE", "POLE", "RISK_LEVEL", "HIGH"),
		warehouse.NewRow("ASSET_TYPE", "POLE", "RISK_LEVEL", "HIGH"),
		warehouse.NewRow("ASSET_TYPE", nil, "RISK_LEVEL", "HIGH"),
		warehouse.NewRow("ASSET_TYPE", "SWITCH", "RISK_LEVEL", "LOW"),
	}

	rep, err := NewPredictions(port, fixedClock(may1)).IgnitionRisk(context.Background(), 0)
	require.NoError(t, err)

	d := rep.Data.(IgnitionForecast)
	assert.Equal(t, 4, d.Summary.TotalPredictions)
	assert.Equal(t, 3, d.Summary.HighRiskAssets)
	assert.Equal(t, map[string]int{"POLE": 2, "UNKNOWN": 1}, d.Summary.ByAssetType)
}

func TestCableFailureAveragesAtRiskAgeOnly(t *testing.T) {
	port := newFakePort()
	port.results[cableForecastQuery] = []warehouse.Row{
		warehouse.NewRow("ASSET_ID", "AST-00001", "ASSET_AGE_YEARS", 20.0, "PREDICTED_WATER_TREEING", int64(1)),
		warehouse.NewRow("ASSET_ID", "AST-00002", "ASSET_AGE_YEARS", 30.0, "PREDICTED_WATER_TREEING", int64(1)),
		warehouse.NewRow("ASSET_ID", "AST-00003", "ASSET_AGE_YEARS", 5.0, "PREDICTED_WATER_TREEING", int64(0)),
	}

	rep, err := NewPredictions(port, fixedClock(may1)).CableFailure(context.Background(), 0)
	require.NoError(t, err)

	d := rep.Data.(CableForecast)
	assert.Equal(t, 3, d.Summary.TotalCablesAnalyzed)
	assert.Equal(t, 2, d.Summary.AtRiskCables)
	assert.InDelta(t, 25.0, d.Summary.AvgAgeAtRisk, 0.001)
	assert.Equal(t, "Water Treeing Detection", d.DiscoveryInfo.Name)
}

func TestPredictionSummariesOnEmptyResults(t *testing.T) {
	p := NewPredictions(newFakePort(), fixedClock(may1))
	ctx := context.Background()

	rep, err := p.CableFailure(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, rep.Data.(CableForecast).Summary.AvgAgeAtRisk)
	assert.NotNil(t, rep.Data.(CableForecast).Predictions)

	rep, err = p.CombinedRisk(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, rep.Data.(CombinedForecast).Summary.AvgRiskScore)
	assert.Empty(t, rep.AlertLevel)

	rep, err = p.Summary(ctx)
	require.NoError(t, err)
	models := rep.Data.(ModelOverview).Models
	require.Len(t, models, 4)
	assert.Equal(t, map[string]int{"high_risk_count": 0, "urgent_count": 0}, models["vegetation_growth"].Counts)
	assert.True(t, models["cable_failure"].HiddenDiscovery)
}

func TestModelSummaryCounts(t *testing.T) {
	port := newFakePort()
	port.results[modelCountsQuery] = []warehouse.Row{
		warehouse.NewRow("MODEL", "asset_health", "TOTAL", int64(150), "FLAGGED", int64(12), "URGENT", int64(0)),
		warehouse.NewRow("MODEL", "vegetation_growth", "TOTAL", int64(40), "FLAGGED", int64(9), "URGENT", int64(3)),
		warehouse.NewRow("MODEL", "cable_failure", "TOTAL", int64(30), "FLAGGED", nil, "URGENT", int64(0)),
	}

	rep, err := NewPredictions(port, fixedClock(may1)).Summary(context.Background())
	require.NoError(t, err)

	models := rep.Data.(ModelOverview).Models
	assert.Equal(t, 150, models["asset_health"].TotalPredictions)
	assert.Equal(t, map[string]int{"critical_count": 12}, models["asset_health"].Counts)
	assert.Equal(t, map[string]int{"high_risk_count": 9, "urgent_count": 3}, models["vegetation_growth"].Counts)
	assert.Equal(t, map[string]int{"at_risk_count": 0}, models["cable_failure"].Counts)
	assert.Zero(t, models["ignition_risk"].TotalPredictions)
	assert.Equal(t, "active", models["ignition_risk"].Status)
}

func TestCombinedRiskGroups(t *testing.T) {
	port := newFakePort()
	port.results[combinedRiskQuery] = []warehouse.Row{
		warehouse.NewRow("REGION", "Bay Area", "MAINTENANCE_PRIORITY", "EMERGENCY", "COMPOSITE_ML_RISK_SCORE", 60.0),
		warehouse.NewRow("REGION", "Bay Area", "MAINTENANCE_PRIORITY", "HIGH", "COMPOSITE_ML_RISK_SCORE", 45.0),
		warehouse.NewRow("REGION", "Southern", "MAINTENANCE_PRIORITY", "HIGH", "COMPOSITE_ML_RISK_SCORE", 42.0),
	}

	rep, err := NewPredictions(port, fixedClock(may1)).CombinedRisk(context.Background(), 0)
	require.NoError(t, err)

	s := rep.Data.(CombinedForecast).Summary
	assert.Equal(t, 3, s.TotalAssets)
	assert.Equal(t, map[string]int{"EMERGENCY": 1, "HIGH": 2}, s.ByPriority)
	assert.Equal(t, map[string]int{"Bay Area": 2, "Southern": 1}, s.ByRegion)
	assert.InDelta(t, 49.0, s.AvgRiskScore, 0.001)
}

func TestUrgentActionsCountsEmergencyCustomers(t *testing.T) {
	port := newFakePort()
	port.results[urgentActionsQuery] = []warehouse.Row{
		warehouse.NewRow("ASSET_ID", "AST-00001", "MAINTENANCE_PRIORITY", "EMERGENCY", "TOTAL_CUSTOMERS", int64(1200)),
		warehouse.NewRow("ASSET_ID", "AST-00002", "MAINTENANCE_PRIORITY", "EMERGENCY", "TOTAL_CUSTOMERS", nil),
		warehouse.NewRow("ASSET_ID", "AST-00003", "MAINTENANCE_PRIORITY", "HIGH", "TOTAL_CUSTOMERS", int64(5000)),
	}

	rep, err := NewPredictions(port, fixedClock(may1)).UrgentActions(context.Background(), 0)
	require.NoError(t, err)

	s := rep.Data.(UrgentPlan).Summary
	assert.Equal(t, 2, s.EmergencyCount)
	assert.Equal(t, 1, s.HighPriorityCount)
	assert.Equal(t, 1200, s.TotalCustomersAffected)
	assert.Equal(t, "critical", rep.AlertLevel)
	assert.Contains(t, rep.ActionRequired, "2 emergency assets")
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultPredictionLimit, clampLimit(0, DefaultPredictionLimit, MaxPredictionLimit))
	assert.Equal(t, DefaultUrgentLimit, clampLimit(-3, DefaultUrgentLimit, MaxUrgentLimit))
	assert.Equal(t, 25, clampLimit(25, DefaultPredictionLimit, MaxPredictionLimit))
	assert.Equal(t, MaxUrgentLimit, clampLimit(1000, DefaultUrgentLimit, MaxUrgentLimit))
}

func TestPredictionErrorsWrap(t *testing.T) {
	port := newFakePort()
	boom := errors.New("boom")
	port.errs[combinedRiskByRegionQuery] = boom

	_, err := NewPredictions(port, fixedClock(may1)).CombinedRiskByRegion(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "combined risk by region")
}

func TestRiskMapSkipsUnlocatedAssets(t *testing.T) {
	port := newFakePort()
	port.results[riskMapQuery] = []warehouse.Row{
		warehouse.NewRow("ASSET_ID", "AST-00001", "ASSET_TYPE", "POLE", "HEALTH_SCORE", 55.0,
			"COMPOSITE_RISK_SCORE", 72.5, "RISK_TIER", "HIGH", "FIRE_THREAT_DISTRICT", "TIER_3",
			"REGION", "North Coast", "LATITUDE", 38.44, "LONGITUDE", -122.71),
		warehouse.NewRow("ASSET_ID", "AST-00002", "ASSET_TYPE", "SWITCH", "HEALTH_SCORE", nil,
			"COMPOSITE_RISK_SCORE", nil, "RISK_TIER", nil, "LATITUDE", 37.8, "LONGITUDE", -122.27),
		warehouse.NewRow("ASSET_ID", "AST-00003", "LATITUDE", nil, "LONGITUDE", -120.0),
	}

	rep, err := NewAssets(port, fixedClock(may1)).RiskMap(context.Background())
	require.NoError(t, err)

	d := rep.Data.(RiskMapData)
	assert.Equal(t, "FeatureCollection", d.Type)
	require.Len(t, d.Features, 2)

	f := d.Features[0]
	assert.Equal(t, "Point", f.Geometry.Type)
	assert.Equal(t, [2]float64{-122.71, 38.44}, f.Geometry.Coordinates)
	require.NotNil(t, f.Properties.RiskScore)
	assert.InDelta(t, 72.5, *f.Properties.RiskScore, 0.001)
	assert.Equal(t, "TIER_3", f.Properties.FireDistrict)

	assert.Nil(t, d.Features[1].Properties.ConditionScore)
	assert.Nil(t, d.Features[1].Properties.RiskScore)
	assert.Equal(t, 31, d.FireSeason.DaysRemaining)
}

func TestForAssetsKeepsFirstRowPerAsset(t *testing.T) {
	port := newFakePort()
	marks := "?,?"
	port.results[fmt.Sprintf(growthForAssetsQuery, marks)] = []warehouse.Row{
		warehouse.NewRow("ASSET_ID", "AST-00001", "PREDICTED_DAYS_TO_CONTACT", int64(12)),
		warehouse.NewRow("ASSET_ID", "AST-00001", "PREDICTED_DAYS_TO_CONTACT", int64(200)),
	}
	port.results[fmt.Sprintf(combinedForAssetsQuery, marks)] = []warehouse.Row{
		warehouse.NewRow("ASSET_ID", "AST-00001", "MAINTENANCE_PRIORITY", "HIGH"),
		warehouse.NewRow("ASSET_ID", "AST-00002", "MAINTENANCE_PRIORITY", "LOW"),
	}

	rep, err := NewPredictions(port, fixedClock(may1)).ForAssets(context.Background(), []string{"AST-00001", "AST-00002"})
	require.NoError(t, err)

	d := rep.Data.(AssetForecasts)
	assert.Equal(t, 2, d.TotalAssets)
	assert.Equal(t, map[string]int{"health": 0, "vegetation": 2, "ignition": 0, "cable": 0, "combined": 2}, d.Coverage)

	first := d.Predictions["AST-00001"]
	require.NotNil(t, first.Vegetation)
	assert.Equal(t, 12, first.Vegetation.IntOr("PREDICTED_DAYS_TO_CONTACT", 0))
	assert.Nil(t, first.Health)
	assert.Nil(t, d.Predictions["AST-00002"].Vegetation)
	assert.Equal(t, "LOW", d.Predictions["AST-00002"].Combined.String("MAINTENANCE_PRIORITY"))
}

func TestForAssetsWithoutIDs(t *testing.T) {
	rep, err := NewPredictions(newFakePort(), fixedClock(may1)).ForAssets(context.Background(), nil)
	require.NoError(t, err)
	d := rep.Data.(AssetForecasts)
	assert.Zero(t, d.TotalAssets)
	assert.Empty(t, d.Predictions)
	assert.NotNil(t, rep.Sources)
}
