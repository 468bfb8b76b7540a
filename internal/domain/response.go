package domain

import (
	"time"

	"github.com/ashureev/vigil/internal/season"
)

// ContextHint carries optional scoping values a client sends with a message.
type ContextHint struct {
	AssetID string `json:"asset_id,omitempty"`
	Region  string `json:"region,omitempty"`
}

// ChatRequest is an inbound message for the orchestrator. AssetID and
// Region take precedence over the same keys in Context.
type ChatRequest struct {
	Message string       `json:"message"`
	Persona string       `json:"persona,omitempty"`
	Context *ContextHint `json:"context,omitempty"`
	AssetID string       `json:"asset_id,omitempty"`
	Region  string       `json:"region,omitempty"`
}

// AgentResponse is the single response shape every chat path produces,
// including the error path.
type AgentResponse struct {
	Narrative         string            `json:"narrative"`
	AgentName         string            `json:"agent"`
	Persona           PersonaDescriptor `json:"persona"`
	Sources           []string          `json:"sources"`
	StructuredData    any               `json:"data"`
	Intent            Intent            `json:"intent"`
	VisualizationHint string            `json:"visualization,omitempty"`
	AlertLevel        string            `json:"alert_level,omitempty"`
	ActionRequired    string            `json:"action_required,omitempty"`
	FireSeason        season.Countdown  `json:"fire_season"`
	Timestamp         time.Time         `json:"timestamp"`
}
