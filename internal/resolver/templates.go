package resolver

import "strings"

// Template is one keyword-matched query. Match receives the lower-cased
// message.
type Template struct {
	Name        string
	Match       func(msg string) bool
	SQL         string
	Explanation string
}

func containsAny(msg string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(msg, w) {
			return true
		}
	}
	return false
}

func and(preds ...func(string) bool) func(string) bool {
	return func(msg string) bool {
		for _, p := range preds {
			if !p(msg) {
				return false
			}
		}
		return true
	}
}

func anyOf(words ...string) func(string) bool {
	return func(msg string) bool { return containsAny(msg, words...) }
}

// DefaultTemplates is evaluated in order; the first match wins.
var DefaultTemplates = []Template{
	{
		Name:  "list-assets",
		Match: and(anyOf("list", "name", "what are", "show me", "give me"), anyOf("asset")),
		SQL: `SELECT ASSET_ID, ASSET_TYPE, ASSET_SUBTYPE, VOLTAGE_CLASS, ASSET_AGE_YEARS, HEALTH_SCORE, MATERIAL
FROM asset
ORDER BY HEALTH_SCORE IS NULL, HEALTH_SCORE ASC
LIMIT 50`,
		Explanation: "Listing assets with key metrics",
	},
	{
		Name:        "count-assets",
		Match:       and(anyOf("how many"), anyOf("asset")),
		SQL:         `SELECT COUNT(*) AS ASSET_COUNT FROM asset`,
		Explanation: "Counting total assets",
	},
	{
		Name:  "list-circuits",
		Match: and(anyOf("list", "show", "what are"), anyOf("circuit")),
		SQL: `SELECT CIRCUIT_ID, CIRCUIT_NAME, SUBSTATION_NAME, VOLTAGE_CLASS, CIRCUIT_MILES, CUSTOMERS_SERVED, FIRE_THREAT_DISTRICT
FROM circuit
ORDER BY CUSTOMERS_SERVED DESC
LIMIT 50`,
		Explanation: "Listing circuits with details",
	},
	{
		Name:  "high-risk-assets",
		Match: and(anyOf("high risk", "critical", "risk"), anyOf("asset")),
		SQL: `SELECT a.ASSET_ID, a.ASSET_TYPE, a.ASSET_AGE_YEARS, r.COMPOSITE_RISK_SCORE, r.RISK_TIER,
	r.IGNITION_PROBABILITY, c.CIRCUIT_NAME, c.FIRE_THREAT_DISTRICT
FROM asset a
JOIN risk_assessment r ON a.ASSET_ID = r.ASSET_ID
JOIN circuit c ON a.CIRCUIT_ID = c.CIRCUIT_ID
WHERE r.RISK_TIER IN ('CRITICAL', 'HIGH')
ORDER BY r.COMPOSITE_RISK_SCORE DESC
LIMIT 50`,
		Explanation: "High-risk assets requiring attention",
	},
	{
		Name:  "encroachments",
		Match: anyOf("vegetation", "encroachment", "clearance"),
		SQL: `SELECT v.ENCROACHMENT_ID, a.ASSET_ID, v.SPECIES, v.CURRENT_CLEARANCE_FT, v.REQUIRED_CLEARANCE_FT,
	v.COMPLIANCE_STATUS, v.DAYS_TO_CONTACT, c.CIRCUIT_NAME, c.FIRE_THREAT_DISTRICT
FROM vegetation_encroachment v
JOIN asset a ON v.ASSET_ID = a.ASSET_ID
JOIN circuit c ON a.CIRCUIT_ID = c.CIRCUIT_ID
WHERE v.COMPLIANCE_STATUS IN ('NON_COMPLIANT', 'CRITICAL', 'AT_RISK')
ORDER BY v.DAYS_TO_CONTACT IS NULL, v.DAYS_TO_CONTACT ASC
LIMIT 50`,
		Explanation: "Vegetation encroachments requiring trim",
	},
	{
		Name:  "open-work-orders",
		Match: anyOf("work order", "backlog"),
		SQL: `SELECT WORK_ORDER_ID, WORK_TYPE, PRIORITY, STATUS, ESTIMATED_COST, SCHEDULED_DATE, DESCRIPTION
FROM work_order
WHERE STATUS IN ('PENDING', 'SCHEDULED', 'IN_PROGRESS')
ORDER BY PRIORITY ASC, SCHEDULED_DATE ASC
LIMIT 50`,
		Explanation: "Open work orders by priority",
	},
	{
		Name:  "fire-districts",
		Match: and(anyOf("fire"), anyOf("tier", "threat", "district")),
		SQL: `SELECT c.FIRE_THREAT_DISTRICT, l.REGION, l.COUNTY,
	COUNT(DISTINCT c.CIRCUIT_ID) AS CIRCUIT_COUNT,
	COUNT(DISTINCT a.ASSET_ID) AS ASSET_COUNT
FROM circuit c
JOIN asset a ON c.CIRCUIT_ID = a.CIRCUIT_ID
JOIN location l ON a.LOCATION_ID = l.LOCATION_ID
GROUP BY c.FIRE_THREAT_DISTRICT, l.REGION, l.COUNTY
ORDER BY c.FIRE_THREAT_DISTRICT DESC
LIMIT 50`,
		Explanation: "Fire threat district summary",
	},
	{
		Name:  "portfolio-summary",
		Match: anyOf("summary", "overview", "dashboard", "kpi"),
		SQL: `SELECT
	(SELECT COUNT(*) FROM asset) AS TOTAL_ASSETS,
	(SELECT COUNT(*) FROM circuit) AS TOTAL_CIRCUITS,
	(SELECT COUNT(*) FROM risk_assessment WHERE RISK_TIER = 'CRITICAL') AS CRITICAL_RISKS,
	(SELECT COUNT(*) FROM vegetation_encroachment WHERE COMPLIANCE_STATUS IN ('NON_COMPLIANT', 'CRITICAL')) AS VEG_VIOLATIONS,
	(SELECT COUNT(*) FROM work_order WHERE STATUS IN ('SCHEDULED', 'IN_PROGRESS')) AS ACTIVE_WORK_ORDERS`,
		Explanation: "Portfolio summary metrics",
	},
}

// MatchTemplate returns the first template matching msg.
func MatchTemplate(templates []Template, msg string) (Template, bool) {
	lower := strings.ToLower(msg)
	for _, t := range templates {
		if t.Match(lower) {
			return t, true
		}
	}
	return Template{}, false
}
