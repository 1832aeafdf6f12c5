// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package subst drives variable substitution to a fixed point.
//
// Each round hands every non-literal segment of a variable's cooked value
// to a Substituter and writes the result back. Rounds repeat until one
// makes no substitutions, after which metacharacter sequences are expanded
// once and the variable is marked resolved.
package subst

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/z5labs/cooked/internal/try"
	"github.com/z5labs/cooked/pkg/logging"
	"github.com/z5labs/cooked/variable"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// DefaultMaxRounds bounds resolution when no other limit is configured.
const DefaultMaxRounds = 64

const instrumentationName = "github.com/z5labs/cooked/subst"

// Substituter replaces references in the text of a single non-literal
// segment of v. It returns the new text and the number of replacements made.
type Substituter interface {
	Substitute(ctx context.Context, v *variable.Variable, text string) (string, int, error)
}

// SubstituterFunc is a func which implements the Substituter interface.
type SubstituterFunc func(context.Context, *variable.Variable, string) (string, int, error)

// Substitute implements the Substituter interface.
func (f SubstituterFunc) Substitute(ctx context.Context, v *variable.Variable, text string) (string, int, error) {
	return f(ctx, v, text)
}

// Expander expands metacharacter sequences.
type Expander interface {
	Expand(string) string
}

type identity struct{}

func (identity) Expand(s string) string { return s }

// RoundResult reports the outcome of a single substitution round.
type RoundResult struct {
	// Cooked is the reassembled cooked value after the round.
	Cooked string

	// Substitutions is the number of references replaced during the round.
	Substitutions int
}

// RunawaySubstitutionError occurs when a variable is still changing after
// the maximum number of rounds, typically because of a reference cycle.
type RunawaySubstitutionError struct {
	Variable string
	Section  string
	Line     int
	Rounds   int
}

// Error implements the error interface.
func (e RunawaySubstitutionError) Error() string {
	if e.Line == variable.UnknownLine {
		return fmt.Sprintf("variable %q in section %q: still substituting after %d rounds, check for a reference cycle", e.Variable, e.Section, e.Rounds)
	}
	return fmt.Sprintf("variable %q in section %q (line %d): still substituting after %d rounds, check for a reference cycle", e.Variable, e.Section, e.Line, e.Rounds)
}

type options struct {
	maxRounds     int
	expander      Expander
	logHandler    slog.Handler
	meterProvider metric.MeterProvider
}

// Option configures a Controller.
type Option func(*options)

// MaxRounds sets the number of rounds after which resolution is abandoned.
// Values below one are ignored.
func MaxRounds(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRounds = n
		}
	}
}

// Metachars sets the Expander applied once a variable stops changing.
// By default no expansion takes place.
func Metachars(e Expander) Option {
	return func(o *options) {
		o.expander = e
	}
}

// LogHandler sets the slog.Handler used by the Controller.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// MeterProvider sets the metric.MeterProvider used to record round and
// substitution counts. Defaults to the global provider.
func MeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// Controller runs substitution rounds.
type Controller struct {
	subst     Substituter
	expander  Expander
	maxRounds int
	log       *slog.Logger

	rounds        metric.Int64Counter
	substitutions metric.Int64Counter
}

// New returns a Controller which uses s to replace references.
func New(s Substituter, opts ...Option) *Controller {
	o := options{
		maxRounds:  DefaultMaxRounds,
		expander:   identity{},
		logHandler: slog.DiscardHandler,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	c := &Controller{
		subst:     s,
		expander:  o.expander,
		maxRounds: o.maxRounds,
		log:       logging.New(o.logHandler),
	}

	meter := o.meterProvider.Meter(instrumentationName)
	var err error
	c.rounds, err = meter.Int64Counter(
		"cooked.subst.rounds",
		metric.WithDescription("Number of substitution rounds run."),
	)
	if err != nil {
		c.log.Warn("failed to create rounds counter", logging.Error(err))
		c.rounds = noop.Int64Counter{}
	}
	c.substitutions, err = meter.Int64Counter(
		"cooked.subst.substitutions",
		metric.WithDescription("Number of references replaced."),
	)
	if err != nil {
		c.log.Warn("failed to create substitutions counter", logging.Error(err))
		c.substitutions = noop.Int64Counter{}
	}
	return c
}

// Round performs a single substitution round on v. The raw value of v is
// never modified. Literal segments are never handed to the Substituter.
func (c *Controller) Round(ctx context.Context, v *variable.Variable) (res RoundResult, err error) {
	defer try.Recover(&err)

	segs, err := v.CookedSegments()
	if err != nil {
		return RoundResult{}, err
	}

	texts := make(map[int]string)
	for i := range segs {
		if segs[i].Literal {
			continue
		}

		text, n, serr := c.subst.Substitute(ctx, v, segs[i].String())
		if serr != nil {
			return RoundResult{}, serr
		}
		if n == 0 {
			continue
		}
		texts[i] = text
		res.Substitutions += n
	}

	// segments are only rewritten once every substitution succeeded
	for i, text := range texts {
		segs[i].Set(text)
	}
	res.Cooked = v.Reassemble()
	return res, nil
}

// Resolve runs rounds on v until one makes no substitutions, then expands
// metacharacters and marks v resolved. Resolving a resolved variable does
// nothing. On failure the cooked value of v is reset to its raw value.
func (c *Controller) Resolve(ctx context.Context, v *variable.Variable) (err error) {
	if v.Resolved() {
		return nil
	}
	defer func() {
		if err != nil {
			v.Reset()
		}
	}()
	defer try.Recover(&err)

	log := c.log.With(
		logging.Section(v.Section()),
		logging.Variable(v.Name()),
	)

	for round := 1; round <= c.maxRounds; round++ {
		res, err := c.Round(ctx, v)
		if err != nil {
			log.ErrorContext(ctx, "substitution failed", logging.Round(round), logging.Error(err))
			return err
		}
		c.rounds.Add(ctx, 1)
		c.substitutions.Add(ctx, int64(res.Substitutions))

		log.DebugContext(
			ctx,
			"finished substitution round",
			logging.Round(round),
			logging.Substitutions(res.Substitutions),
		)
		if res.Substitutions == 0 {
			return v.Finish(c.expander.Expand)
		}
	}

	err = RunawaySubstitutionError{
		Variable: v.Name(),
		Section:  v.Section(),
		Line:     v.Line(),
		Rounds:   c.maxRounds,
	}
	log.ErrorContext(ctx, "substitution did not settle", logging.Error(err))
	return err
}
