// Package domain defines the request, response and persona types shared by
// the orchestrator, report generators and transports.
package domain

// Intent is the category a chat message is routed by.
type Intent string

// Intents in routing priority order; DataQuery is the fallback.
const (
	IntentHiddenDiscovery Intent = "hidden_discovery"
	IntentWaterTreeing    Intent = "water_treeing"
	IntentFireRisk        Intent = "fire_risk"
	IntentVegetation      Intent = "vegetation"
	IntentAssetHealth     Intent = "asset_health"
	IntentWorkOrder       Intent = "work_order"
	IntentCompliance      Intent = "compliance"
	IntentDataQuery       Intent = "data_query"
)

// Intents lists every intent value.
var Intents = []Intent{
	IntentHiddenDiscovery,
	IntentWaterTreeing,
	IntentFireRisk,
	IntentVegetation,
	IntentAssetHealth,
	IntentWorkOrder,
	IntentCompliance,
	IntentDataQuery,
}

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

func (i Intent) String() string { return string(i) }
