// Package reports holds the read-only report generators behind each chat
// intent. Generators are stateless: every operation queries the warehouse
// port and renders a markdown narrative plus typed data.
package reports

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ashureev/vigil/internal/warehouse"
)

// Report is the envelope every operation returns.
type Report struct {
	Narrative      string   `json:"narrative"`
	Data           any      `json:"data"`
	Sources        []string `json:"sources"`
	AlertLevel     string   `json:"alert_level,omitempty"`
	ActionRequired string   `json:"action_required,omitempty"`
}

// NoData is the empty payload of not-found and prompt-only reports.
type NoData struct{}

// Warehouse tables and references cited in report sources.
const (
	SourceAsset        = "ASSET"
	SourceCircuit      = "CIRCUIT"
	SourceVegetation   = "VEGETATION_ENCROACHMENT"
	SourceRisk         = "RISK_ASSESSMENT"
	SourceCable        = "CABLE_FAILURE_PREDICTION"
	SourceAMI          = "AMI_READING"
	SourceWeather      = "WEATHER_FORECAST"
	SourceWorkOrder    = "WORK_ORDER"
	SourceGO95         = "CPUC GO95 Rule 35"
	SourceRiskPlanning = "RISK_PLANNING_DB"
)

// Null scores fall back to these values. A missing health score reads as
// healthy and a missing risk score as no risk.
const (
	DefaultHealthScore = 100.0
	DefaultRiskScore   = 0.0
)

func notFound(assetID string) Report {
	return Report{
		Narrative: fmt.Sprintf("Asset %s not found.", assetID),
		Data:      NoData{},
		Sources:   []string{},
	}
}

// pct is part/total as a percentage, 0 when total is 0.
func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func ratio(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func money(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}

func millions(v float64) string {
	return fmt.Sprintf("$%.1fM", v/1e6)
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func health(r warehouse.Row) float64 { return r.FloatOr("HEALTH_SCORE", DefaultHealthScore) }
func risk(r warehouse.Row) float64   { return r.FloatOr("RISK_SCORE", DefaultRiskScore) }

func filter(rows []warehouse.Row, keep func(warehouse.Row) bool) []warehouse.Row {
	out := []warehouse.Row{}
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func countIf(rows []warehouse.Row, keep func(warehouse.Row) bool) int {
	n := 0
	for _, r := range rows {
		if keep(r) {
			n++
		}
	}
	return n
}

func sum(rows []warehouse.Row, col string) float64 {
	total := 0.0
	for _, r := range rows {
		total += r.FloatOr(col, 0)
	}
	return total
}

// head returns at most n rows and never nil, so JSON renders [].
func head(rows []warehouse.Row, n int) []warehouse.Row {
	if len(rows) > n {
		rows = rows[:n]
	}
	if rows == nil {
		return []warehouse.Row{}
	}
	return rows
}

func is(col string, values ...string) func(warehouse.Row) bool {
	return func(r warehouse.Row) bool {
		v := r.String(col)
		for _, want := range values {
			if v == want {
				return true
			}
		}
		return false
	}
}

func scope(region string) string {
	if region == "" {
		return "All Regions"
	}
	return "Region: " + region
}

func priorityEmoji(p string) string {
	switch p {
	case "P1_EMERGENCY":
		return "🔴"
	case "P2_URGENT":
		return "🟠"
	case "P3_STANDARD":
		return "🟡"
	case "P4_ROUTINE":
		return "🟢"
	default:
		return "⚪"
	}
}

func quote(catchphrase string) string {
	return "\n> _" + catchphrase + "_\n"
}

func humanizeKey(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
