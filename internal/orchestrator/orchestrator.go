// Package orchestrator routes chat messages to report generators and keeps
// the per-session conversation context.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/ashureev/vigil/internal/classifier"
	"github.com/ashureev/vigil/internal/domain"
	"github.com/ashureev/vigil/internal/reports"
	"github.com/ashureev/vigil/internal/resolver"
	"github.com/ashureev/vigil/internal/season"
)

// AgentOrchestrator names responses produced by the orchestrator itself.
const AgentOrchestrator = "VIGIL Orchestrator"

// Resolver answers data queries no report handles.
type Resolver interface {
	Resolve(ctx context.Context, msg string) resolver.Outcome
}

// SessionContext is the conversation state of one session.
type SessionContext struct {
	ActivePersona   string
	FocusedEntityID string
	FocusedRegion   string
	LastIntent      domain.Intent
	LastResult      *domain.AgentResponse
}

// Deps are the collaborators an Orchestrator routes to.
type Deps struct {
	Suite          *reports.Suite
	Resolver       Resolver
	Classifier     *classifier.Classifier
	Personas       *domain.Personas
	DefaultPersona string
	Clock          season.Clock
	Logger         *slog.Logger
}

// Orchestrator serves one session. ProcessMessage calls are serialized.
type Orchestrator struct {
	mu       sync.Mutex
	session  SessionContext
	deps     Deps
	handlers map[domain.Intent]handler
	logger   *slog.Logger
}

// New creates an orchestrator with a fresh session context.
func New(d Deps) *Orchestrator {
	if d.Clock == nil {
		d.Clock = season.SystemClock
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Classifier == nil {
		d.Classifier = classifier.Default()
	}
	persona := d.Personas.Default().ID
	if _, ok := d.Personas.Get(d.DefaultPersona); ok {
		persona = d.DefaultPersona
	}

	o := &Orchestrator{
		session: SessionContext{ActivePersona: persona},
		deps:    d,
		logger:  d.Logger,
	}
	o.handlers = map[domain.Intent]handler{
		domain.IntentHiddenDiscovery: o.handleHiddenDiscovery,
		domain.IntentWaterTreeing:    o.handleWaterTreeing,
		domain.IntentVegetation:      o.handleVegetation,
		domain.IntentFireRisk:        o.handleFireRisk,
		domain.IntentAssetHealth:     o.handleAssetHealth,
		domain.IntentWorkOrder:       o.handleWorkOrder,
		domain.IntentCompliance:      o.handleCompliance,
		domain.IntentDataQuery:       o.handleDataQuery,
	}
	return o
}

// Context returns a copy of the session context.
func (o *Orchestrator) Context() SessionContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

var assetIDPattern = regexp.MustCompile(`(?i)\bAST-\d+\b`)

// ProcessMessage handles one chat message. It never fails: errors and
// panics while building the answer become an apology response.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req domain.ChatRequest) domain.AgentResponse {
	o.mu.Lock()
	defer o.mu.Unlock()

	if req.Persona != "" {
		if _, ok := o.deps.Personas.Get(req.Persona); ok {
			o.session.ActivePersona = req.Persona
		} else {
			o.logger.Debug("Ignoring unknown persona", "persona", req.Persona)
		}
	}
	o.mergeFocus(req)

	intent := o.deps.Classifier.Classify(req.Message)
	o.session.LastIntent = intent
	o.logger.Info("Dispatching message", "intent", intent, "persona", o.session.ActivePersona)

	now := o.deps.Clock()
	t := turn{
		message:   req.Message,
		lower:     strings.ToLower(req.Message),
		countdown: season.CountdownAt(now),
	}

	resp, err := o.dispatch(ctx, intent, t)
	if err != nil {
		o.logger.Error("Error processing message", "intent", intent, "error", err)
		resp = domain.AgentResponse{
			Narrative:      fmt.Sprintf("I encountered an error: %s. Please try rephrasing your question.", err),
			AgentName:      AgentOrchestrator,
			Sources:        []string{},
			StructuredData: map[string]any{},
		}
	}
	resp.Intent = intent
	resp.Persona = o.persona()
	resp.FireSeason = t.countdown
	resp.Timestamp = now.UTC()
	if resp.Sources == nil {
		resp.Sources = []string{}
	}

	stored := resp
	o.session.LastResult = &stored
	return resp
}

// mergeFocus applies entity and region hints: explicit fields win over the
// context map, which wins over what is already stored. An asset id named
// in the message replaces the stored one when no hint is given.
func (o *Orchestrator) mergeFocus(req domain.ChatRequest) {
	var hint domain.ContextHint
	if req.Context != nil {
		hint = *req.Context
	}

	switch {
	case req.AssetID != "":
		o.session.FocusedEntityID = req.AssetID
	case hint.AssetID != "":
		o.session.FocusedEntityID = hint.AssetID
	default:
		if id := assetIDPattern.FindString(req.Message); id != "" {
			o.session.FocusedEntityID = strings.ToUpper(id)
		}
	}

	switch {
	case req.Region != "":
		o.session.FocusedRegion = req.Region
	case hint.Region != "":
		o.session.FocusedRegion = hint.Region
	}
}

func (o *Orchestrator) persona() domain.PersonaDescriptor {
	if p, ok := o.deps.Personas.Get(o.session.ActivePersona); ok {
		return p
	}
	return o.deps.Personas.Default()
}

func (o *Orchestrator) dispatch(ctx context.Context, intent domain.Intent, t turn) (resp domain.AgentResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Handler panicked", "intent", intent, "panic", r)
			err = fmt.Errorf("%v", r)
		}
	}()

	h, ok := o.handlers[intent]
	if !ok {
		h = o.handleDataQuery
	}
	return h(ctx, t)
}
