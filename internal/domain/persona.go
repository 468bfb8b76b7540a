package domain

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed personas.yaml
var personasYAML []byte

var errNoPersonas = errors.New("persona registry is empty")

// PersonaDescriptor is the voice a response is written in.
type PersonaDescriptor struct {
	ID             string `yaml:"id" json:"id"`
	DisplayName    string `yaml:"name" json:"name"`
	StyleTag       string `yaml:"style" json:"style"`
	GreetingPrefix string `yaml:"prefix" json:"prefix"`
	EmojiTag       string `yaml:"emoji" json:"emoji"`
}

// Personas is the immutable persona registry.
type Personas struct {
	byID      map[string]PersonaDescriptor
	order     []string
	defaultID string
}

type personaFile struct {
	Default  string              `yaml:"default"`
	Personas []PersonaDescriptor `yaml:"personas"`
}

// LoadPersonas parses the built-in registry.
func LoadPersonas() (*Personas, error) {
	return ParsePersonas(personasYAML)
}

// ParsePersonas builds a registry from YAML. The default id must name one of
// the listed personas; when omitted the first entry is the default.
func ParsePersonas(data []byte) (*Personas, error) {
	var f personaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse personas: %w", err)
	}
	if len(f.Personas) == 0 {
		return nil, errNoPersonas
	}

	p := &Personas{byID: make(map[string]PersonaDescriptor, len(f.Personas))}
	for _, d := range f.Personas {
		if d.ID == "" {
			return nil, fmt.Errorf("persona %q has no id", d.DisplayName)
		}
		if _, dup := p.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %q", d.ID)
		}
		p.byID[d.ID] = d
		p.order = append(p.order, d.ID)
	}

	p.defaultID = f.Default
	if p.defaultID == "" {
		p.defaultID = p.order[0]
	}
	if _, ok := p.byID[p.defaultID]; !ok {
		return nil, fmt.Errorf("default persona %q is not registered", p.defaultID)
	}
	return p, nil
}

// Get looks up a persona by id.
func (p *Personas) Get(id string) (PersonaDescriptor, bool) {
	d, ok := p.byID[id]
	return d, ok
}

// Default returns the registry's default persona.
func (p *Personas) Default() PersonaDescriptor {
	return p.byID[p.defaultID]
}

// IDs returns persona ids in registry order.
func (p *Personas) IDs() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}
