// Package resolver answers free-form data questions that no report
// handles: keyword templates first, then SQL from the analyst service,
// then static help text.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ashureev/vigil/internal/analyst"
	"github.com/ashureev/vigil/internal/warehouse"
)

// Strategy names which step produced an Outcome.
type Strategy string

// Strategies, in the order they are tried.
const (
	StrategyDirect    Strategy = "DirectPattern"
	StrategyGenerated Strategy = "GeneratedSQL"
	StrategyNone      Strategy = "None"
)

// Source labels shown in the formatted footer.
var sourceLabels = map[Strategy]string{
	StrategyDirect:    "Direct SQL",
	StrategyGenerated: "SQL Analyst",
}

// Outcome is what the resolver found for a question.
type Outcome struct {
	Rows        []warehouse.Row
	SQL         string
	Explanation string
	Strategy    Strategy
}

// Source is the footer label for the outcome's strategy.
func (o Outcome) Source() string { return sourceLabels[o.Strategy] }

// Result is the value of one strategy attempt. A failed attempt carries
// Err; an attempt that ran but found nothing has no rows.
type Result struct {
	Outcome Outcome
	Err     error
}

// HasRows reports whether the attempt succeeded with at least one row.
func (r Result) HasRows() bool { return r.Err == nil && len(r.Outcome.Rows) > 0 }

// Attempt is one resolution strategy.
type Attempt func(ctx context.Context, msg string) Result

var (
	errNoTemplate = errors.New("no matching template")
	errDisabled   = errors.New("analyst disabled")
	errNoSQL      = errors.New("analyst returned no sql")
)

// FirstWithRows runs attempts in order and returns the first result with
// rows. Failures are logged and treated as no rows.
func FirstWithRows(ctx context.Context, logger *slog.Logger, msg string, attempts ...Attempt) (Outcome, bool) {
	for _, attempt := range attempts {
		res := attempt(ctx, msg)
		if res.HasRows() {
			return res.Outcome, true
		}
		if res.Err != nil && !errors.Is(res.Err, errNoTemplate) && !errors.Is(res.Err, errDisabled) {
			logger.Warn("Resolver strategy failed", "strategy", res.Outcome.Strategy, "error", res.Err)
		}
	}
	return Outcome{Strategy: StrategyNone}, false
}

// SQLGenerator produces SQL for a question. analyst.Client implements it.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, question string) (analyst.Answer, error)
}

// Resolver runs the fallback strategies against a warehouse port.
type Resolver struct {
	port      warehouse.Port
	generator SQLGenerator
	templates []Template
	logger    *slog.Logger
}

// New creates a resolver. A nil generator disables the analyst step.
func New(port warehouse.Port, generator SQLGenerator, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		port:      port,
		generator: generator,
		templates: DefaultTemplates,
		logger:    logger,
	}
}

// Resolve tries the direct templates, then the analyst. When neither
// yields rows the outcome has StrategyNone.
func (r *Resolver) Resolve(ctx context.Context, msg string) Outcome {
	out, _ := FirstWithRows(ctx, r.logger, msg, r.direct, r.generated)
	return out
}

func (r *Resolver) direct(ctx context.Context, msg string) Result {
	t, ok := MatchTemplate(r.templates, msg)
	if !ok {
		return Result{Outcome: Outcome{Strategy: StrategyDirect}, Err: errNoTemplate}
	}
	out := Outcome{SQL: t.SQL, Explanation: t.Explanation, Strategy: StrategyDirect}
	rows, err := r.port.Query(ctx, t.SQL)
	if err != nil {
		return Result{Outcome: out, Err: fmt.Errorf("template %s: %w", t.Name, err)}
	}
	out.Rows = rows
	return Result{Outcome: out}
}

func (r *Resolver) generated(ctx context.Context, msg string) Result {
	out := Outcome{Strategy: StrategyGenerated}
	if r.generator == nil {
		return Result{Outcome: out, Err: errDisabled}
	}
	ans, err := r.generator.GenerateSQL(ctx, msg)
	if err != nil {
		return Result{Outcome: out, Err: err}
	}
	out.SQL = analyst.StripCodeFence(ans.SQL)
	out.Explanation = ans.Explanation
	if rows := slices.DeleteFunc(slices.Clone(ans.Rows), emptyRow); len(rows) > 0 {
		out.Rows = rows
		return Result{Outcome: out}
	}
	if out.SQL == "" {
		return Result{Outcome: out, Err: errNoSQL}
	}
	rows, err := r.port.Query(ctx, out.SQL)
	if err != nil {
		return Result{Outcome: out, Err: fmt.Errorf("generated sql: %w", err)}
	}
	out.Rows = rows
	return Result{Outcome: out}
}

func emptyRow(r warehouse.Row) bool { return len(r) == 0 }
