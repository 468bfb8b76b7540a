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
	fireEmoji       = "🔥"
	fireCatchphrase = "Fire season waits for no one."
)

// FireRisk reports on fire season readiness, ignition risk, PSPS exposure
// and fire weather.
type FireRisk struct {
	port  warehouse.Port
	clock season.Clock
}

// NewFireRisk creates a fire risk generator. A nil clock uses wall time.
func NewFireRisk(port warehouse.Port, clock season.Clock) *FireRisk {
	if clock == nil {
		clock = season.SystemClock
	}
	return &FireRisk{port: port, clock: clock}
}

// Readiness is the fire season countdown on the four-band urgency scale.
type Readiness struct {
	DaysRemaining int            `json:"days_remaining"`
	StartDate     string         `json:"start_date"`
	Urgency       season.Urgency `json:"urgency"`
}

// FireRiskOverview is the data of FireRisk.Overview.
type FireRiskOverview struct {
	FireSeason        Readiness       `json:"fire_season"`
	Tier3Count        int             `json:"tier_3_count"`
	Tier3HighRisk     int             `json:"tier_3_high_risk"`
	Tier3NonCompliant int             `json:"tier_3_non_compliant"`
	ReadinessScore    float64         `json:"readiness_score"`
	CriticalAssets    []warehouse.Row `json:"critical_assets"`
}

// Overview is the fire season readiness dashboard. Assets and
// encroachments are fetched concurrently.
func (f *FireRisk) Overview(ctx context.Context) (Report, error) {
	var assets, encroachments []warehouse.Row
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := f.port.Query(gctx, assetsQuery, "", "")
		if err != nil {
			return fmt.Errorf("load assets: %w", err)
		}
		assets = rows
		return nil
	})
	g.Go(func() error {
		rows, err := f.port.Query(gctx, encroachmentsQuery, "", "")
		if err != nil {
			return fmt.Errorf("load encroachments: %w", err)
		}
		encroachments = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("fire risk overview: %w", err)
	}

	cd := season.CountdownAt(f.clock())
	fs := Readiness{
		DaysRemaining: cd.DaysRemaining,
		StartDate:     cd.StartDate,
		Urgency:       season.ReadinessUrgency(cd.DaysRemaining),
	}

	inTier := func(tier string) func(warehouse.Row) bool { return is("FIRE_THREAT_DISTRICT", tier) }
	tier3 := filter(assets, inTier("TIER_3"))
	tier2 := filter(assets, inTier("TIER_2"))
	tier1 := filter(assets, inTier("TIER_1"))
	tier3HighRisk := filter(tier3, highRisk)
	tier3Veg := filter(encroachments, inTier("TIER_3"))

	critical := append([]warehouse.Row(nil), tier3HighRisk...)
	sort.SliceStable(critical, func(i, j int) bool { return risk(critical[i]) > risk(critical[j]) })
	critical = head(critical, 10)

	// No tier 3 vegetation means nothing is out of compliance.
	readiness := 100.0
	if len(tier3Veg) > 0 {
		readiness = pct(countIf(tier3Veg, is("COMPLIANCE_STATUS", "COMPLIANT")), len(tier3Veg))
	}

	d := FireRiskOverview{
		FireSeason:        fs,
		Tier3Count:        len(tier3),
		Tier3HighRisk:     len(tier3HighRisk),
		Tier3NonCompliant: countIf(tier3Veg, nonCompliant),
		ReadinessScore:    readiness,
		CriticalAssets:    critical,
	}

	urgencyEmoji := "🟡"
	switch {
	case fs.DaysRemaining < 30:
		urgencyEmoji = "🔴"
	case fs.DaysRemaining < 60:
		urgencyEmoji = "🟠"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Fire Risk Dashboard\n\n", fireEmoji)
	fmt.Fprintf(&b, "### %s Fire Season Countdown\n# **%d DAYS** until June 1\n", urgencyEmoji, fs.DaysRemaining)
	if fs.DaysRemaining < 30 {
		b.WriteString("**⚠️ CRITICAL: Accelerate all Tier 3 work immediately!**\n")
	}
	b.WriteString("\n### Fire Threat District Summary\n")
	b.WriteString("| District | Assets | High Risk | Non-Compliant Veg |\n|----------|--------|-----------|-------------------|\n")
	fmt.Fprintf(&b, "| 🔴 Tier 3 (Extreme) | %d | %d | %d |\n", len(tier3), len(tier3HighRisk), d.Tier3NonCompliant)
	fmt.Fprintf(&b, "| 🟠 Tier 2 (Elevated) | %d | %d | - |\n", len(tier2), countIf(tier2, highRisk))
	fmt.Fprintf(&b, "| 🟡 Tier 1 (Moderate) | %d | - | - |\n", len(tier1))
	fmt.Fprintf(&b, "| ⚪ Non-HFTD | %d | - | - |\n", len(assets)-len(tier3)-len(tier2)-len(tier1))
	b.WriteString("\n### Tier 3 Immediate Action Required\n")
	if len(critical) == 0 {
		b.WriteString("_No critical Tier 3 items requiring immediate action._\n")
	}
	for _, r := range critical {
		fmt.Fprintf(&b, "- **%s** (%s): Risk %.0f, Health %.0f\n", r.String("ASSET_ID"), r.String("ASSET_TYPE"), risk(r), health(r))
	}
	b.WriteString("\n### Fire Season Readiness\n| Metric | Value | Target |\n|--------|-------|--------|\n")
	fmt.Fprintf(&b, "| Tier 3 Vegetation Compliance | %.1f%% | 100%% |\n", readiness)
	fmt.Fprintf(&b, "| Tier 3 High-Risk Assets Mitigated | %d/%d | 100%% |\n", len(tier3)-len(tier3HighRisk), len(tier3))
	fmt.Fprintf(&b, "| Days Remaining | %d | - |\n", fs.DaysRemaining)
	b.WriteString(quote(fireCatchphrase))

	return Report{
		Narrative: b.String(),
		Data:      d,
		Sources:   []string{SourceAsset, SourceVegetation, SourceRisk},
	}, nil
}

// IgnitionRisk is the data of FireRisk.IgnitionRisk.
type IgnitionRisk struct {
	Predictions   []warehouse.Row `json:"predictions"`
	CriticalCount int             `json:"critical_count"`
	HighCount     int             `json:"high_count"`
	MediumCount   int             `json:"medium_count"`
	LowCount      int             `json:"low_count"`
}

// IgnitionRisk groups assessed assets by risk tier.
func (f *FireRisk) IgnitionRisk(ctx context.Context) (Report, error) {
	rows, err := f.port.Query(ctx, ignitionRiskQuery)
	if err != nil {
		return Report{}, fmt.Errorf("ignition risk: %w", err)
	}

	critical := filter(rows, is("RISK_TIER", "CRITICAL"))
	d := IgnitionRisk{
		Predictions:   head(rows, 100),
		CriticalCount: len(critical),
		HighCount:     countIf(rows, is("RISK_TIER", "HIGH")),
		MediumCount:   countIf(rows, is("RISK_TIER", "MEDIUM")),
	}
	d.LowCount = len(rows) - d.CriticalCount - d.HighCount - d.MediumCount

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Ignition Risk Predictions\n\n", fireEmoji)
	b.WriteString("### Risk Distribution\n| Risk Tier | Count | Immediate Action |\n|-----------|-------|------------------|\n")
	fmt.Fprintf(&b, "| 🔴 Critical | %d | Yes - Same Day |\n", d.CriticalCount)
	fmt.Fprintf(&b, "| 🟠 High | %d | Yes - 7 Days |\n", d.HighCount)
	fmt.Fprintf(&b, "| 🟡 Medium | %d | Monitor |\n", d.MediumCount)
	fmt.Fprintf(&b, "| 🟢 Low | %d | Routine |\n", d.LowCount)
	b.WriteString("\n### Critical Risk Assets (Immediate Action Required)\n")
	for _, r := range head(critical, 10) {
		fmt.Fprintf(&b, "- **%s**: %s - Probability %.0f%%\n",
			r.String("ASSET_ID"), r.String("FIRE_THREAT_DISTRICT"), r.FloatOr("IGNITION_PROBABILITY", 0)*100)
	}
	b.WriteString("\n### Key Risk Factors\n")
	b.WriteString("1. **Fire Threat District** - Tier 3 locations\n")
	b.WriteString("2. **Vegetation Clearance Deficit** - Non-compliant clearances\n")
	b.WriteString("3. **Weather Conditions** - Wind speed, humidity\n")
	b.WriteString("4. **Equipment Age** - Assets >30 years\n")

	return Report{
		Narrative: b.String(),
		Data:      d,
		Sources:   []string{SourceRisk, SourceAsset},
	}, nil
}

// PSPSCircuits is the data of FireRisk.PSPSCircuits.
type PSPSCircuits struct {
	Circuits       []warehouse.Row `json:"psps_circuits"`
	Count          int             `json:"count"`
	Tier3Count     int             `json:"tier_3_count"`
	TotalCustomers int             `json:"total_customers"`
}

// PSPSCircuits lists tier 2 and tier 3 circuits by customers served.
func (f *FireRisk) PSPSCircuits(ctx context.Context) (Report, error) {
	rows, err := f.port.Query(ctx, circuitsQuery)
	if err != nil {
		return Report{}, fmt.Errorf("psps circuits: %w", err)
	}

	candidates := filter(rows, is("FIRE_THREAT_DISTRICT", "TIER_3", "TIER_2"))
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FloatOr("CUSTOMERS_SERVED", 0) > candidates[j].FloatOr("CUSTOMERS_SERVED", 0)
	})
	d := PSPSCircuits{
		Circuits:       head(candidates, 50),
		Count:          len(candidates),
		Tier3Count:     countIf(candidates, is("FIRE_THREAT_DISTRICT", "TIER_3")),
		TotalCustomers: int(sum(candidates, "CUSTOMERS_SERVED")),
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s PSPS Circuit Analysis\n\n", fireEmoji)
	fmt.Fprintf(&b, "### Summary\n- **Total Circuits in Fire Districts**: %d\n- **Tier 3 Circuits**: %d\n- **Customers Potentially Affected**: %s\n\n",
		d.Count, d.Tier3Count, count(d.TotalCustomers))
	b.WriteString("### High-Priority PSPS Circuits\n")
	b.WriteString("| Circuit | District | Customers | Critical Facilities |\n|---------|----------|-----------|---------------------|\n")
	for _, r := range head(candidates, 15) {
		fmt.Fprintf(&b, "| %s | %s | %s | %d |\n", r.String("CIRCUIT_NAME"), r.String("FIRE_THREAT_DISTRICT"),
			count(r.IntOr("CUSTOMERS_SERVED", 0)), r.IntOr("CRITICAL_FACILITIES_COUNT", 0))
	}

	return Report{
		Narrative: b.String(),
		Data:      d,
		Sources:   []string{SourceCircuit},
	}, nil
}

// RegionWeather is the worst forecast conditions for one region.
type RegionWeather struct {
	Region      string  `json:"region"`
	MaxWind     float64 `json:"max_wind_mph"`
	MinHumidity float64 `json:"min_humidity_pct"`
	RedFlag     bool    `json:"red_flag"`
	FireWeather string  `json:"fire_weather"`
}

// WeatherRisk is the data of FireRisk.WeatherRisk.
type WeatherRisk struct {
	Forecasts        []warehouse.Row `json:"forecasts"`
	Regions          []RegionWeather `json:"regions"`
	RedFlagCount     int             `json:"red_flag_count"`
	HighWindCount    int             `json:"high_wind_count"`
	LowHumidityCount int             `json:"low_humidity_count"`
}

func humidity(r warehouse.Row) float64 { return r.FloatOr("HUMIDITY_PCT", 100) }

// WeatherRisk flags red flag, high wind and low humidity forecasts.
func (f *FireRisk) WeatherRisk(ctx context.Context) (Report, error) {
	rows, err := f.port.Query(ctx, weatherQuery)
	if err != nil {
		return Report{}, fmt.Errorf("weather risk: %w", err)
	}

	redFlag := func(r warehouse.Row) bool { return r.Bool("RED_FLAG_WARNING") }
	highWind := func(r warehouse.Row) bool { return r.FloatOr("WIND_SPEED_MPH", 0) > 25 }
	lowHumidity := func(r warehouse.Row) bool { return humidity(r) < 20 }

	d := WeatherRisk{
		Forecasts:        head(rows, 50),
		Regions:          []RegionWeather{},
		RedFlagCount:     countIf(rows, redFlag),
		HighWindCount:    countIf(rows, highWind),
		LowHumidityCount: countIf(rows, lowHumidity),
	}

	index := map[string]int{}
	for _, r := range rows {
		region := r.String("REGION")
		if region == "" {
			region = "Unknown"
		}
		i, ok := index[region]
		if !ok {
			i = len(d.Regions)
			index[region] = i
			d.Regions = append(d.Regions, RegionWeather{Region: region, MinHumidity: 100})
		}
		rw := &d.Regions[i]
		rw.MaxWind = max(rw.MaxWind, r.FloatOr("WIND_SPEED_MPH", 0))
		rw.MinHumidity = min(rw.MinHumidity, humidity(r))
		rw.RedFlag = rw.RedFlag || redFlag(r)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s Weather Risk Conditions\n\n", fireEmoji)
	fmt.Fprintf(&b, "### Current Alerts\n- **Red Flag Warnings**: %d locations\n- **High Wind (>25 mph)**: %d locations\n- **Low Humidity (<20%%)**: %d locations\n\n",
		d.RedFlagCount, d.HighWindCount, d.LowHumidityCount)
	b.WriteString("### Regional Forecast Summary\n")
	b.WriteString("| Region | Wind (mph) | Humidity | Fire Weather | Alert |\n|--------|------------|----------|--------------|-------|\n")
	for i := range d.Regions {
		rw := &d.Regions[i]
		alert := "-"
		switch {
		case rw.RedFlag:
			rw.FireWeather, alert = "🔴 Extreme", "⚠️ RED FLAG"
		case rw.MaxWind > 25 || rw.MinHumidity < 20:
			rw.FireWeather = "🟠 High"
		default:
			rw.FireWeather = "🟢 Normal"
		}
		fmt.Fprintf(&b, "| %s | %.0f | %.0f%% | %s | %s |\n", rw.Region, rw.MaxWind, rw.MinHumidity, rw.FireWeather, alert)
	}

	return Report{
		Narrative: b.String(),
		Data:      d,
		Sources:   []string{SourceWeather},
	}, nil
}
