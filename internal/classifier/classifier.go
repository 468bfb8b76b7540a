// Package classifier maps free-text questions to an intent with an ordered,
// case-insensitive pattern table.
package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ashureev/vigil/internal/domain"
)

// Rule ties an intent to the patterns that select it.
type Rule struct {
	Intent   domain.Intent
	Patterns []string
}

// DefaultRules is the routing table. Earlier rules win.
//
// Cable failure questions share the hidden discovery rule: the water treeing
// inference is the answer to them. IntentWaterTreeing (the cable health
// report) is only reachable through a custom table.
var DefaultRules = []Rule{
	{domain.IntentHiddenDiscovery, []string{
		`hidden`, `discovery`, `water\s*tree`, `rain.*voltage`, `voltage.*rain`, `ami.*correlat`,
		`underground\s*cable`, `xlpe.*fail`, `cable.*fail`, `moisture.*degrad`,
	}},
	{domain.IntentFireRisk, []string{`fire\s*season`, `fire\s*risk`, `ignition`, `tier\s*3`, `hftd`, `fire\s*district`, `wildfire`, `psps`, `red\s*flag`}},
	{domain.IntentVegetation, []string{`vegetation`, `clearance`, `encroach`, `trim`, `go\s*95`, `tree`, `eucalyptus`, `species`, `growth\s*rate`}},
	{domain.IntentAssetHealth, []string{`asset\s*health`, `pole`, `transformer`, `conductor`, `equipment`, `condition`, `replace`, `inspection`, `age`}},
	{domain.IntentWorkOrder, []string{`work\s*order`, `priority`, `backlog`, `schedule`, `crew`, `issue.*order`, `create.*order`}},
	{domain.IntentCompliance, []string{`compliance`, `violation`, `cpuc`, `regulat`, `standard`}},
}

type compiledRule struct {
	intent   domain.Intent
	patterns []*regexp.Regexp
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules    []compiledRule
	fallback domain.Intent
}

// New compiles rules in order. Messages matching none of them classify as
// data_query.
func New(rules []Rule) (*Classifier, error) {
	c := &Classifier{fallback: domain.IntentDataQuery}
	for _, r := range rules {
		if !r.Intent.Valid() {
			return nil, fmt.Errorf("unknown intent %q", r.Intent)
		}
		cr := compiledRule{intent: r.Intent}
		for _, p := range r.Patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, fmt.Errorf("compile pattern %q for %s: %w", p, r.Intent, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		c.rules = append(c.rules, cr)
	}
	return c, nil
}

// Default returns a classifier over DefaultRules.
func Default() *Classifier {
	c, err := New(DefaultRules)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the first intent whose pattern matches message.
func (c *Classifier) Classify(message string) domain.Intent {
	intent, _ := c.Match(message)
	return intent
}

// Match is Classify plus the pattern that decided it ("" for the fallback).
func (c *Classifier) Match(message string) (domain.Intent, string) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return c.fallback, ""
	}
	for _, r := range c.rules {
		for _, re := range r.patterns {
			if re.MatchString(msg) {
				return r.intent, strings.TrimPrefix(re.String(), `(?i)`)
			}
		}
	}
	return c.fallback, ""
}
