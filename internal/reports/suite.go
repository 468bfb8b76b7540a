package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ashureev/vigil/internal/season"
	"github.com/ashureev/vigil/internal/warehouse"
)

// ErrUnknownReport is returned by Suite.Run for an unknown generator or
// operation.
var ErrUnknownReport = errors.New("unknown report")

// Params are the optional filters a report operation may read.
type Params struct {
	Region  string
	AssetID string
	// Limit caps listing operations; zero selects their default.
	Limit int
}

type operation func(ctx context.Context, p Params) (Report, error)

// Suite bundles the generators over one port.
type Suite struct {
	Vegetation  *Vegetation
	Assets      *Assets
	FireRisk    *FireRisk
	Discovery   *Discovery
	WorkOrders  *WorkOrders
	Predictions *Predictions

	ops map[string]map[string]operation
}

// NewSuite wires every generator to port and clock.
func NewSuite(port warehouse.Port, clock season.Clock) *Suite {
	s := &Suite{
		Vegetation:  NewVegetation(port, clock),
		Assets:      NewAssets(port, clock),
		FireRisk:    NewFireRisk(port, clock),
		Discovery:   NewDiscovery(port),
		WorkOrders:  NewWorkOrders(port, clock),
		Predictions: NewPredictions(port, clock),
	}

	noArgs := func(fn func(context.Context) (Report, error)) operation {
		return func(ctx context.Context, _ Params) (Report, error) { return fn(ctx) }
	}
	limited := func(fn func(context.Context, int) (Report, error)) operation {
		return func(ctx context.Context, p Params) (Report, error) { return fn(ctx, p.Limit) }
	}
	s.ops = map[string]map[string]operation{
		"vegetation": {
			"overview":           func(ctx context.Context, p Params) (Report, error) { return s.Vegetation.Overview(ctx, p.Region) },
			"compliance":         noArgs(s.Vegetation.ComplianceSummary),
			"trim-priorities":    noArgs(s.Vegetation.TrimPriorities),
			"backlog":            noArgs(s.Vegetation.WorkOrderBacklog),
			"prepare-work-order": func(ctx context.Context, p Params) (Report, error) { return s.Vegetation.PrepareWorkOrder(ctx, p.AssetID) },
		},
		"assets": {
			"overview":    func(ctx context.Context, p Params) (Report, error) { return s.Assets.Overview(ctx, p.Region) },
			"replacement": noArgs(s.Assets.ReplacementPriorities),
			"detail":      func(ctx context.Context, p Params) (Report, error) { return s.Assets.Detail(ctx, p.AssetID) },
			"inspections": noArgs(s.Assets.InspectionSchedule),
			"map":         noArgs(s.Assets.RiskMap),
		},
		"fire-risk": {
			"overview": noArgs(s.FireRisk.Overview),
			"ignition": noArgs(s.FireRisk.IgnitionRisk),
			"psps":     noArgs(s.FireRisk.PSPSCircuits),
			"weather":  noArgs(s.FireRisk.WeatherRisk),
		},
		"discovery": {
			"water-treeing":   noArgs(s.Discovery.WaterTreeingPattern),
			"cable-health":    noArgs(s.Discovery.CableHealth),
			"ami-correlation": noArgs(s.Discovery.AMICorrelation),
		},
		"predictions": {
			"asset-health":            limited(s.Predictions.AssetHealth),
			"vegetation-growth":       limited(s.Predictions.VegetationGrowth),
			"ignition-risk":           limited(s.Predictions.IgnitionRisk),
			"cable-failure":           limited(s.Predictions.CableFailure),
			"summary":                 noArgs(s.Predictions.Summary),
			"combined-risk":           limited(s.Predictions.CombinedRisk),
			"combined-risk-by-region": noArgs(s.Predictions.CombinedRiskByRegion),
			"urgent-actions":          limited(s.Predictions.UrgentActions),
		},
	}
	return s
}

// Run executes a named report operation, e.g. ("fire-risk", "psps").
func (s *Suite) Run(ctx context.Context, generator, op string, p Params) (Report, error) {
	fn, ok := s.ops[generator][op]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s/%s", ErrUnknownReport, generator, op)
	}
	return fn(ctx, p)
}

// Operations lists the operation names of every generator, sorted.
func (s *Suite) Operations() map[string][]string {
	out := make(map[string][]string, len(s.ops))
	for gen, ops := range s.ops {
		names := make([]string, 0, len(ops))
		for name := range ops {
			names = append(names, name)
		}
		sort.Strings(names)
		out[gen] = names
	}
	return out
}
