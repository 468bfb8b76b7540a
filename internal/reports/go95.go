package reports

import (
	"fmt"
	"sort"
	"strings"
)

// GO95 Rule 35 minimum vegetation clearances in feet, by fire threat tier
// and voltage class.
var go95Clearances = map[string]map[string]float64{
	"TIER_3": {
		"4KV": 4.0, "12KV": 6.0, "21KV": 8.0, "33KV": 10.0, "69KV": 12.0,
		"LOW_VOLTAGE": 4.0, "MEDIUM_VOLTAGE": 6.0, "HIGH_VOLTAGE": 12.0, "TRANSMISSION": 15.0,
	},
	"TIER_2": {
		"4KV": 4.0, "12KV": 4.0, "21KV": 4.0, "33KV": 6.0, "69KV": 8.0,
		"LOW_VOLTAGE": 4.0, "MEDIUM_VOLTAGE": 4.0, "HIGH_VOLTAGE": 6.0, "TRANSMISSION": 10.0,
	},
	"TIER_1": {
		"4KV": 2.5, "12KV": 4.0, "21KV": 4.0, "33KV": 4.0, "69KV": 6.0,
		"LOW_VOLTAGE": 2.5, "MEDIUM_VOLTAGE": 4.0, "HIGH_VOLTAGE": 6.0, "TRANSMISSION": 10.0,
	},
	"NON_HFTD": {
		"4KV": 2.5, "12KV": 4.0, "21KV": 4.0, "33KV": 4.0, "69KV": 4.0,
		"LOW_VOLTAGE": 2.5, "MEDIUM_VOLTAGE": 4.0, "HIGH_VOLTAGE": 4.0, "TRANSMISSION": 10.0,
	},
}

// Clearance is one GO95 requirement.
type Clearance struct {
	VoltageClass string  `json:"voltage_class"`
	FireTier     string  `json:"fire_threat_tier"`
	RequiredFt   float64 `json:"required_clearance_ft"`
	Regulation   string  `json:"regulation"`
	Description  string  `json:"description"`
}

// UnknownClearanceError names a voltage/tier pair missing from the table.
type UnknownClearanceError struct {
	VoltageClass string
	FireTier     string
}

func (e *UnknownClearanceError) Error() string {
	return fmt.Sprintf("no clearance requirement found for %s in %s (tiers: %s)",
		e.VoltageClass, e.FireTier, strings.Join(FireTiers(), ", "))
}

// FireTiers lists the tiers with clearance requirements.
func FireTiers() []string {
	tiers := make([]string, 0, len(go95Clearances))
	for t := range go95Clearances {
		tiers = append(tiers, t)
	}
	sort.Strings(tiers)
	return tiers
}

func normalizeKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

func normalizeTier(s string) string {
	t := normalizeKey(s)
	if strings.Contains(t, "TIER") && !strings.Contains(t, "_") {
		t = strings.Replace(t, "TIER", "TIER_", 1)
	}
	return t
}

// ClearanceRequirement looks up the GO95 minimum clearance. Inputs are
// case-insensitive and accept "tier 3", "TIER3" or "TIER_3".
func ClearanceRequirement(voltageClass, fireTier string) (Clearance, error) {
	vc, ftd := normalizeKey(voltageClass), normalizeTier(fireTier)
	ft, ok := go95Clearances[ftd][vc]
	if !ok {
		return Clearance{}, &UnknownClearanceError{VoltageClass: voltageClass, FireTier: fireTier}
	}
	return Clearance{
		VoltageClass: vc,
		FireTier:     ftd,
		RequiredFt:   ft,
		Regulation:   SourceGO95,
		Description:  fmt.Sprintf("Minimum vegetation clearance of %g feet required for %s lines in %s areas.", ft, vc, ftd),
	}, nil
}

// ComplianceGap compares a measured clearance with its requirement.
type ComplianceGap struct {
	Clearance
	CurrentFt      float64 `json:"current_clearance_ft"`
	DeficitFt      float64 `json:"deficit_ft"`
	Status         string  `json:"compliance_status"`
	Urgency        string  `json:"urgency"`
	Recommendation string  `json:"recommendation"`
}

// AnalyzeComplianceGap grades the clearance deficit. Urgency thresholds
// tighten with the fire threat tier.
func AnalyzeComplianceGap(currentFt float64, voltageClass, fireTier string) (ComplianceGap, error) {
	req, err := ClearanceRequirement(voltageClass, fireTier)
	if err != nil {
		return ComplianceGap{}, err
	}

	deficit := req.RequiredFt - currentFt
	gap := ComplianceGap{
		Clearance: req,
		CurrentFt: currentFt,
		DeficitFt: max(0, deficit),
		Status:    "COMPLIANT",
		Urgency:   "NONE",
	}
	if deficit > 0 {
		gap.Status = "VIOLATION"
		switch req.FireTier {
		case "TIER_3":
			gap.Urgency = pick(deficit > 6, "CRITICAL", "HIGH")
		case "TIER_2":
			gap.Urgency = pick(deficit > 4, "HIGH", "MEDIUM")
		default:
			gap.Urgency = pick(deficit > 2, "MEDIUM", "LOW")
		}
	}

	switch gap.Urgency {
	case "CRITICAL":
		gap.Recommendation = fmt.Sprintf("IMMEDIATE ACTION REQUIRED: %.1fft deficit in Tier 3 fire area. Schedule emergency trim within 7 days.", deficit)
	case "HIGH":
		gap.Recommendation = fmt.Sprintf("Priority trim required: %.1fft deficit. Schedule vegetation management within 30 days.", deficit)
	case "MEDIUM":
		gap.Recommendation = fmt.Sprintf("Standard trim needed: %.1fft deficit. Include in next quarterly trim cycle.", deficit)
	case "LOW":
		gap.Recommendation = fmt.Sprintf("Minor deficit of %.1fft. Address during routine maintenance.", deficit)
	default:
		gap.Recommendation = "Clearance meets GO95 requirements. Continue routine monitoring."
	}
	return gap, nil
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

// SpeciesInfo is growth and management guidance for a tree species.
type SpeciesInfo struct {
	Species         string  `json:"species"`
	GrowthRateFtYr  float64 `json:"growth_rate_ft_year"`
	MaxHeightFt     float64 `json:"max_height_ft"`
	FireRisk        string  `json:"fire_risk"`
	ManagementNotes string  `json:"management_notes"`
	Estimated       bool    `json:"is_estimated,omitempty"`
}

var species = map[string]SpeciesInfo{
	"EUCALYPTUS": {GrowthRateFtYr: 6.0, MaxHeightFt: 150, FireRisk: "EXTREME",
		ManagementNotes: "Highly flammable bark shreds. Requires aggressive management in HFTD areas."},
	"OAK": {GrowthRateFtYr: 2.0, MaxHeightFt: 80, FireRisk: "MODERATE",
		ManagementNotes: "Protected species in many areas. Coordinate with arborist for trimming."},
	"PINE": {GrowthRateFtYr: 3.0, MaxHeightFt: 100, FireRisk: "HIGH",
		ManagementNotes: "Resinous, burns readily. Monitor for beetle kill which increases fire risk."},
	"PALM": {GrowthRateFtYr: 1.5, MaxHeightFt: 60, FireRisk: "HIGH",
		ManagementNotes: "Dead fronds are extremely flammable. Remove dead material annually."},
	"WILLOW": {GrowthRateFtYr: 4.0, MaxHeightFt: 50, FireRisk: "LOW",
		ManagementNotes: "Fast growing near waterways. Typically lower fire risk due to moisture."},
	"MANZANITA": {GrowthRateFtYr: 1.0, MaxHeightFt: 20, FireRisk: "EXTREME",
		ManagementNotes: "Highly flammable native shrub. Critical to maintain clearance in HFTD."},
}

// SpeciesGrowth returns guidance for a species, falling back to generic
// estimates for species without data.
func SpeciesGrowth(name string) SpeciesInfo {
	key := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(name)), " ", "_")
	if info, ok := species[key]; ok {
		info.Species = key
		return info
	}
	return SpeciesInfo{
		Species:         key,
		GrowthRateFtYr:  2.5,
		MaxHeightFt:     60,
		FireRisk:        "MODERATE",
		ManagementNotes: fmt.Sprintf("Limited data for %s. Using default growth assumptions.", name),
		Estimated:       true,
	}
}
