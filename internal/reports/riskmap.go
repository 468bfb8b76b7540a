package reports

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashureev/vigil/internal/season"
	"github.com/ashureev/vigil/internal/warehouse"
)

// PointGeometry is a GeoJSON point in [longitude, latitude] order.
type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// AssetProperties are the per-asset map attributes. Unscored assets carry
// null scores.
type AssetProperties struct {
	AssetID        string   `json:"asset_id"`
	AssetType      string   `json:"asset_type"`
	ConditionScore *float64 `json:"condition_score"`
	RiskScore      *float64 `json:"risk_score"`
	RiskTier       string   `json:"risk_tier"`
	FireDistrict   string   `json:"fire_district"`
	Region         string   `json:"region"`
}

// Feature is one mapped asset.
type Feature struct {
	Type       string          `json:"type"`
	Geometry   PointGeometry   `json:"geometry"`
	Properties AssetProperties `json:"properties"`
}

// RiskMapData is a GeoJSON FeatureCollection plus the season countdown.
type RiskMapData struct {
	Type       string           `json:"type"`
	Features   []Feature        `json:"features"`
	FireSeason season.Countdown `json:"fire_season"`
}

func optionalFloat(r warehouse.Row, col string) *float64 {
	if f, ok := r.Float(col); ok {
		return &f
	}
	return nil
}

// RiskMap places every located asset with its condition and risk tier.
func (a *Assets) RiskMap(ctx context.Context) (Report, error) {
	rows, err := a.port.Query(ctx, riskMapQuery)
	if err != nil {
		return Report{}, fmt.Errorf("risk map: %w", err)
	}

	d := RiskMapData{
		Type:       "FeatureCollection",
		Features:   make([]Feature, 0, len(rows)),
		FireSeason: season.CountdownAt(a.clock()),
	}
	tiers := map[string]int{}
	for _, r := range rows {
		lat, latOK := r.Float("LATITUDE")
		lon, lonOK := r.Float("LONGITUDE")
		if !latOK || !lonOK {
			continue
		}
		tier := r.String("RISK_TIER")
		tiers[tier]++
		d.Features = append(d.Features, Feature{
			Type:     "Feature",
			Geometry: PointGeometry{Type: "Point", Coordinates: [2]float64{lon, lat}},
			Properties: AssetProperties{
				AssetID:        r.String("ASSET_ID"),
				AssetType:      r.String("ASSET_TYPE"),
				ConditionScore: optionalFloat(r, "HEALTH_SCORE"),
				RiskScore:      optionalFloat(r, "COMPOSITE_RISK_SCORE"),
				RiskTier:       tier,
				FireDistrict:   r.String("FIRE_THREAT_DISTRICT"),
				Region:         r.String("REGION"),
			},
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## 🗺️ Asset Risk Map\n\n- Assets mapped: **%s**\n", count(len(d.Features)))
	for _, k := range sortedKeys(tiers) {
		if k == "" {
			continue
		}
		fmt.Fprintf(&b, "  - %s: %d\n", k, tiers[k])
	}
	return Report{Narrative: b.String(), Data: d, Sources: []string{SourceAsset, SourceRisk, SourceCircuit}}, nil
}
