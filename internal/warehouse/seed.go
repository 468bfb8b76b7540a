package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

type seedLocation struct {
	id, region, county, city string
	lat, lon                 float64
	fireProne                bool
}

var seedLocations = []seedLocation{
	{"LOC-001", "Bay Area", "Alameda", "Oakland", 37.80, -122.27, false},
	{"LOC-002", "Bay Area", "Marin", "San Rafael", 37.97, -122.53, true},
	{"LOC-003", "Central Valley", "Fresno", "Fresno", 36.74, -119.79, false},
	{"LOC-004", "Sierra Foothills", "El Dorado", "Placerville", 38.73, -120.80, true},
	{"LOC-005", "Sierra Foothills", "Nevada", "Grass Valley", 39.22, -121.06, true},
	{"LOC-006", "North Coast", "Sonoma", "Santa Rosa", 38.44, -122.71, true},
	{"LOC-007", "Southern", "San Diego", "Ramona", 33.04, -116.87, true},
}

var (
	seedSpecies = []struct {
		name   string
		growth float64
	}{
		{"EUCALYPTUS", 6.0}, {"OAK", 2.0}, {"PINE", 3.0},
		{"PALM", 1.5}, {"WILLOW", 4.0}, {"MANZANITA", 1.0},
	}
	seedAssetTypes = []string{"POLE", "POLE", "POLE", "TRANSFORMER", "CONDUCTOR", "CONDUCTOR", "CABLE_UNDERGROUND", "CABLE_UNDERGROUND", "SWITCH"}
	seedWorkTypes  = []string{"VEGETATION_TRIM", "VEGETATION_TRIM", "POLE_REPLACEMENT", "INSPECTION", "CABLE_REPLACEMENT"}
	seedStatuses   = []string{"PENDING", "PENDING", "SCHEDULED", "IN_PROGRESS", "COMPLETED"}
)

const seedAssetCount = 160

// Seed fills an empty warehouse with a deterministic demo portfolio whose
// dates are relative to now. It reports false when data already exists.
func (s *SQLite) Seed(ctx context.Context, now time.Time) (bool, error) {
	rows, err := s.Query(ctx, "SELECT COUNT(*) AS N FROM asset")
	if err != nil {
		return false, fmt.Errorf("count assets: %w", err)
	}
	if len(rows) > 0 && rows[0].IntOr("N", 0) > 0 {
		return false, nil
	}

	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	g := newSeedGen(now)
	for _, t := range g.tables() {
		if err := insertAll(ctx, tx, t.name, t.cols, t.rows); err != nil {
			return false, fmt.Errorf("seed %s: %w", t.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}

	s.logger.Info("Warehouse seeded", "assets", seedAssetCount)
	return true, nil
}

type seedTable struct {
	name string
	cols []string
	rows [][]any
}

type seedGen struct {
	rng *rand.Rand
	now time.Time
}

func newSeedGen(now time.Time) *seedGen {
	return &seedGen{rng: rand.New(rand.NewPCG(2024, 601)), now: now.UTC()}
}

func (g *seedGen) between(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *seedGen) pick(options []string) string {
	return options[g.rng.IntN(len(options))]
}

func (g *seedGen) day(offset int) string {
	return g.now.AddDate(0, 0, offset).Format(time.DateOnly)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

//nolint:gocyclo // Generation is a straight-line walk over every table.
func (g *seedGen) tables() []seedTable {
	locations := seedTable{name: "location", cols: []string{"LOCATION_ID", "REGION", "COUNTY", "CITY", "LATITUDE", "LONGITUDE"}}
	for _, l := range seedLocations {
		locations.rows = append(locations.rows, []any{l.id, l.region, l.county, l.city, l.lat, l.lon})
	}

	circuits := seedTable{name: "circuit", cols: []string{
		"CIRCUIT_ID", "CIRCUIT_NAME", "SUBSTATION_NAME", "VOLTAGE_CLASS", "FIRE_THREAT_DISTRICT",
		"PRIMARY_LOCATION_ID", "CUSTOMERS_SERVED", "CRITICAL_FACILITIES_COUNT", "CIRCUIT_MILES", "PSPS_ELIGIBLE",
	}}
	type circuitInfo struct {
		id, tier, voltage string
		loc               seedLocation
	}
	var circuitList []circuitInfo
	for i, l := range seedLocations {
		for j := 0; j < 2; j++ {
			tier := g.pick([]string{"TIER_1", "NON_HFTD", "TIER_2"})
			if l.fireProne {
				tier = g.pick([]string{"TIER_3", "TIER_3", "TIER_2"})
			}
			voltage := g.pick([]string{"12KV", "21KV", "33KV"})
			id := fmt.Sprintf("CKT-%03d", i*2+j+1)
			psps := 0
			if tier == "TIER_3" || tier == "TIER_2" {
				psps = 1
			}
			circuits.rows = append(circuits.rows, []any{
				id, fmt.Sprintf("%s %d", strings.ToUpper(l.city), 1100+i*10+j),
				l.city + " Substation", voltage, tier, l.id,
				500 + g.rng.IntN(9500), g.rng.IntN(8), round(g.between(5, 60), 1), psps,
			})
			circuitList = append(circuitList, circuitInfo{id: id, tier: tier, voltage: voltage, loc: l})
		}
	}

	assets := seedTable{name: "asset", cols: []string{
		"ASSET_ID", "CIRCUIT_ID", "LOCATION_ID", "ASSET_TYPE", "ASSET_SUBTYPE", "MATERIAL", "VOLTAGE_CLASS",
		"INSTALL_DATE", "ASSET_AGE_YEARS", "HEALTH_SCORE", "RISK_SCORE", "CRITICALITY_FACTOR",
		"REPLACEMENT_COST", "MOISTURE_EXPOSURE", "LAST_INSPECTION_DATE", "NEXT_INSPECTION_DUE",
	}}
	veg := seedTable{name: "vegetation_encroachment", cols: []string{
		"ENCROACHMENT_ID", "ASSET_ID", "SPECIES", "TREE_HEIGHT_FT", "CURRENT_CLEARANCE_FT",
		"REQUIRED_CLEARANCE_FT", "DAYS_TO_CONTACT", "GROWTH_RATE_FT_YEAR", "COMPLIANCE_STATUS",
		"PRIORITY", "ESTIMATED_TRIM_COST",
	}}
	risk := seedTable{name: "risk_assessment", cols: []string{
		"ASSESSMENT_ID", "ASSET_ID", "ASSESSMENT_DATE", "FIRE_RISK_SCORE", "IGNITION_PROBABILITY",
		"CONSEQUENCE_SCORE", "COMPOSITE_RISK_SCORE", "RISK_TIER",
	}}
	cables := seedTable{name: "cable_failure_prediction", cols: []string{
		"ASSET_ID", "RAIN_CORRELATION_SCORE", "FAILURE_PROBABILITY", "CUSTOMER_IMPACT_COUNT",
		"ESTIMATED_REPLACEMENT_COST", "RISK_TIER",
	}}
	ami := seedTable{name: "ami_reading", cols: []string{
		"READING_ID", "ASSET_ID", "METER_ID", "READING_TIMESTAMP", "VOLTAGE", "RAINFALL_MM",
		"VOLTAGE_DIP_FLAG", "RAIN_CORRELATED_DIP",
	}}
	var assetIDs []string

	for i := 0; i < seedAssetCount; i++ {
		c := circuitList[g.rng.IntN(len(circuitList))]
		assetType := g.pick(seedAssetTypes)
		id := fmt.Sprintf("AST-%05d", i+1)
		assetIDs = append(assetIDs, id)

		age := round(g.between(1, 60), 1)
		material, subtype := "STEEL", "STANDARD"
		moisture := g.pick([]string{"LOW", "MEDIUM", "HIGH"})
		cost := g.between(5_000, 40_000)
		switch assetType {
		case "POLE":
			material = g.pick([]string{"WOOD", "WOOD", "STEEL", "CONCRETE"})
			subtype = "DISTRIBUTION_POLE"
		case "TRANSFORMER":
			material, subtype = "OIL_FILLED", "PAD_MOUNT"
			cost = g.between(20_000, 120_000)
		case "CONDUCTOR":
			material, subtype = g.pick([]string{"ACSR", "AAC", "COPPER"}), "OVERHEAD"
		case "CABLE_UNDERGROUND":
			material, subtype = g.pick([]string{"XLPE", "XLPE", "EPR", "PILC"}), "PRIMARY"
			age = round(g.between(5, 35), 1)
			cost = g.between(80_000, 600_000)
		case "SWITCH":
			material, subtype = "STEEL", "RECLOSER"
		}

		tierWeight := map[string]float64{"TIER_3": 30, "TIER_2": 18, "TIER_1": 8}[c.tier]
		health := math.Max(5, math.Min(100, 100-age*1.3+g.between(-10, 10)))
		riskScore := math.Max(0, math.Min(100, (100-health)*0.6+tierWeight+g.between(-5, 10)))

		var healthVal, riskVal any = round(health, 1), round(riskScore, 1)
		// A slice of the portfolio has never been scored.
		if i%23 == 7 {
			healthVal = nil
		}
		if i%29 == 11 {
			riskVal = nil
		}

		lastInspection := -g.rng.IntN(900) - 30
		nextDue := lastInspection + 365

		assets.rows = append(assets.rows, []any{
			id, c.id, c.loc.id, assetType, subtype, material, c.voltage,
			g.day(-int(age * 365)), age, healthVal, riskVal, round(g.between(0.8, 2.5), 2),
			round(cost, 0), moisture, g.day(lastInspection), g.day(nextDue),
		})

		ignition := math.Min(0.99, riskScore/100*0.6+g.between(0, 0.2))
		risk.rows = append(risk.rows, []any{
			fmt.Sprintf("RA-%05d", i+1), id, g.day(-g.rng.IntN(120)),
			round(riskScore*0.9, 1), round(ignition, 3), round(g.between(10, 90), 1),
			round(riskScore, 1), riskTier(riskScore),
		})

		if (assetType == "POLE" || assetType == "CONDUCTOR") && g.rng.Float64() < 0.55 {
			veg.rows = append(veg.rows, g.encroachment(len(veg.rows)+1, id, c.tier))
		}

		if assetType == "CABLE_UNDERGROUND" {
			base := g.between(0.05, 0.45)
			if material == "XLPE" && moisture == "HIGH" {
				base = g.between(0.55, 0.95)
			}
			failure := math.Min(0.98, base*0.7+age/100+g.between(0, 0.1))
			tier := "LOW"
			switch {
			case failure >= 0.7:
				tier = "CRITICAL"
			case failure >= 0.5:
				tier = "HIGH"
			case failure >= 0.3:
				tier = "MEDIUM"
			}
			cables.rows = append(cables.rows, []any{
				id, round(base, 2), round(failure, 3), 50 + g.rng.IntN(2450), round(cost*1.2, 0), tier,
			})

			for r := 0; r < 12; r++ {
				rain := 0.0
				if g.rng.Float64() < 0.4 {
					rain = round(g.between(2, 40), 1)
				}
				dip := g.rng.Float64() < base*0.8
				rainDip := dip && rain > 0 && g.rng.Float64() < base+0.2
				voltage := 240 + g.between(-3, 3)
				if dip {
					voltage -= g.between(8, 25)
				}
				ami.rows = append(ami.rows, []any{
					fmt.Sprintf("AMI-%05d-%02d", i+1, r), id, fmt.Sprintf("MTR-%05d", i+1),
					g.now.Add(-time.Duration(r*48) * time.Hour).Format(time.RFC3339),
					round(voltage, 1), rain, boolInt(dip), boolInt(rainDip),
				})
			}
		}
	}

	weather := seedTable{name: "weather_forecast", cols: []string{
		"FORECAST_ID", "REGION", "FORECAST_DATE", "WIND_SPEED_MPH", "HUMIDITY_PCT", "RED_FLAG_WARNING",
	}}
	seenRegion := map[string]bool{}
	n := 0
	for _, l := range seedLocations {
		if seenRegion[l.region] {
			continue
		}
		seenRegion[l.region] = true
		for d := 0; d < 3; d++ {
			n++
			wind := round(g.between(4, 40), 0)
			humidity := round(g.between(8, 60), 0)
			weather.rows = append(weather.rows, []any{
				fmt.Sprintf("WX-%03d", n), l.region, g.day(d), wind, humidity, boolInt(wind > 25 && humidity < 20),
			})
		}
	}

	orders := seedTable{name: "work_order", cols: []string{
		"WORK_ORDER_ID", "ASSET_ID", "WORK_TYPE", "PRIORITY", "STATUS", "DESCRIPTION",
		"ESTIMATED_HOURS", "ESTIMATED_COST", "SCHEDULED_DATE", "CREATED_AT",
	}}
	for i := 0; i < 40; i++ {
		workType := g.pick(seedWorkTypes)
		orders.rows = append(orders.rows, []any{
			fmt.Sprintf("WO-SEED-%04d", i+1), assetIDs[g.rng.IntN(len(assetIDs))], workType,
			g.pick([]string{"P1_EMERGENCY", "P2_URGENT", "P2_URGENT", "P3_STANDARD", "P3_STANDARD", "P4_ROUTINE"}),
			g.pick(seedStatuses), strings.ReplaceAll(strings.ToLower(workType), "_", " "),
			round(g.between(2, 40), 0), round(g.between(500, 50_000), 0),
			g.day(g.rng.IntN(70) - 10), g.now.AddDate(0, 0, -g.rng.IntN(60)).Format(time.RFC3339),
		})
	}

	return []seedTable{locations, circuits, assets, veg, risk, cables, ami, weather, orders}
}

func (g *seedGen) encroachment(n int, assetID, tier string) []any {
	sp := seedSpecies[g.rng.IntN(len(seedSpecies))]
	required := 4.0
	switch tier {
	case "TIER_3":
		required = 12
	case "TIER_2":
		required = 10
	}
	current := required * g.between(0.2, 1.6)
	ratio := current / required

	status, priority := "COMPLIANT", "P4_ROUTINE"
	switch {
	case ratio < 0.5:
		status, priority = "CRITICAL", "P1_EMERGENCY"
	case ratio < 1:
		status, priority = "NON_COMPLIANT", "P2_URGENT"
	case ratio < 1.2:
		status, priority = "AT_RISK", "P3_STANDARD"
	}

	return []any{
		fmt.Sprintf("VEG-%05d", n), assetID, sp.name, round(g.between(15, 120), 0),
		round(current, 1), required, round(math.Max(1, current/sp.growth*365), 0),
		sp.growth, status, priority, round(g.between(300, 4_000), 0),
	}
}

func riskTier(score float64) string {
	switch {
	case score >= 80:
		return "CRITICAL"
	case score >= 60:
		return "HIGH"
	case score >= 35:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func insertAll(ctx context.Context, tx *sql.Tx, table string, cols []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r...); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}
	return nil
}
