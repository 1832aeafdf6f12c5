// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cooked

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/z5labs/cooked/config"
	"github.com/z5labs/cooked/config/key"
	"github.com/z5labs/cooked/metachar"
	"github.com/z5labs/cooked/pkg/logging"
	"github.com/z5labs/cooked/reference"
	"github.com/z5labs/cooked/section"
	"github.com/z5labs/cooked/segment"
	"github.com/z5labs/cooked/subst"
	"github.com/z5labs/cooked/variable"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "github.com/z5labs/cooked"

type options struct {
	maxRounds      int
	quote          rune
	escape         rune
	logHandler     slog.Handler
	envSection     string
	programSection string
	lookupEnv      func(string) (string, bool)
	clock          func() time.Time
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures a Configuration.
type Option func(*options)

// MaxRounds bounds the number of substitution rounds spent on a single
// variable. By default the bound is the number of variables in the
// configuration plus one, which any chain of references without a cycle
// settles within.
func MaxRounds(n int) Option {
	return func(o *options) {
		o.maxRounds = n
	}
}

// Quote sets the character which encloses literal text.
func Quote(r rune) Option {
	return func(o *options) {
		o.quote = r
	}
}

// Escape sets the escape introducer.
func Escape(r rune) Option {
	return func(o *options) {
		o.escape = r
	}
}

// LogHandler sets the slog.Handler used by the Configuration.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// EnvSection renames the special section holding environment variables.
func EnvSection(name string) Option {
	return func(o *options) {
		o.envSection = name
	}
}

// ProgramSection renames the special section holding program information.
func ProgramSection(name string) Option {
	return func(o *options) {
		o.programSection = name
	}
}

// LookupEnv replaces os.LookupEnv when resolving environment references.
func LookupEnv(f func(string) (string, bool)) Option {
	return func(o *options) {
		o.lookupEnv = f
	}
}

// Clock replaces time.Now when resolving ${program:now}.
func Clock(f func() time.Time) Option {
	return func(o *options) {
		o.clock = f
	}
}

// TracerProvider sets the trace.TracerProvider. Defaults to the global provider.
func TracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// MeterProvider sets the metric.MeterProvider. Defaults to the global provider.
func MeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// Configuration is a set of sections holding variables whose values may
// reference one another. It is safe for concurrent use.
type Configuration struct {
	mu sync.Mutex

	opts     options
	scanner  *segment.Scanner
	expander *metachar.Expander
	resolver *reference.Resolver
	log      *slog.Logger
	tracer   trace.Tracer

	sections map[string]*section.Section
	order    []string
	count    int

	// rebuilt whenever the number of variables changes
	ctrl *subst.Controller
}

// New returns an empty Configuration.
func New(opts ...Option) *Configuration {
	o := options{
		quote:          segment.DefaultQuote,
		escape:         segment.DefaultEscape,
		logHandler:     slog.DiscardHandler,
		envSection:     reference.DefaultEnvSection,
		programSection: reference.DefaultProgramSection,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	c := &Configuration{
		opts:     o,
		scanner:  segment.NewScanner(segment.Quote(o.quote), segment.Escape(o.escape)),
		expander: metachar.New(metachar.Escape(o.escape), metachar.Sequence(o.quote, string(o.quote))),
		log:      logging.New(o.logHandler),
		tracer:   o.tracerProvider.Tracer(instrumentationName),
		sections: make(map[string]*section.Section),
	}

	resolverOpts := []reference.Option{
		reference.Scanner(c.scanner),
		reference.Expander(c.expander),
		reference.EnvSection(o.envSection),
		reference.ProgramSection(o.programSection),
	}
	if o.lookupEnv != nil {
		resolverOpts = append(resolverOpts, reference.LookupEnv(o.lookupEnv))
	}
	if o.clock != nil {
		resolverOpts = append(resolverOpts, reference.Clock(o.clock))
	}
	c.resolver = reference.New(lookup{c: c}, resolverOpts...)
	return c
}

// lookup gives the reference.Resolver access to the sections while the
// Configuration's lock is already held.
type lookup struct {
	c *Configuration
}

func (l lookup) HasSection(name string) bool {
	_, ok := l.c.sections[name]
	return ok
}

func (l lookup) LookupVariable(sectionName, name string) (*variable.Variable, bool) {
	s, ok := l.c.sections[sectionName]
	if !ok {
		return nil, false
	}
	return s.Lookup(name)
}

// Set defines, or redefines, the variable name in the given section with
// a raw value. Line is where the definition was found, or 0 when unknown.
// Every variable of the configuration is reset so that cooked values are
// recomputed on the next lookup.
func (c *Configuration) Set(sectionName, name, raw string, line int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.set(sectionName, name, raw, line)
	c.resetAll()
}

func (c *Configuration) set(sectionName, name, raw string, line int) {
	s, ok := c.sections[sectionName]
	if !ok {
		s = section.New(sectionName, variable.Scanner(c.scanner))
		c.sections[sectionName] = s
		c.order = append(c.order, sectionName)
	}

	n := s.Len()
	s.Add(name, raw, line)
	if s.Len() != n {
		c.count++
		c.ctrl = nil
	}
}

func (c *Configuration) resetAll() {
	for _, name := range c.order {
		for v := range c.sections[name].All() {
			v.Reset()
		}
	}
}

func (c *Configuration) controller() *subst.Controller {
	if c.ctrl != nil {
		return c.ctrl
	}

	maxRounds := c.opts.maxRounds
	if maxRounds <= 0 {
		maxRounds = c.count + 1
	}
	c.ctrl = subst.New(
		c.resolver,
		subst.MaxRounds(maxRounds),
		subst.Metachars(c.expander),
		subst.LogHandler(c.opts.logHandler),
		subst.MeterProvider(c.opts.meterProvider),
	)
	return c.ctrl
}

// Load applies every source to the configuration. Sources are read
// concurrently but applied in the given order, so a variable defined by a
// later source replaces the same variable defined by an earlier one.
// Nothing is applied unless every source is read successfully.
func (c *Configuration) Load(ctx context.Context, srcs ...config.Source) (err error) {
	ctx, span := c.tracer.Start(ctx, "Load", trace.WithAttributes(
		attribute.Int("cooked.sources", len(srcs)),
	))
	defer func() { endSpan(span, err) }()

	reads := make([][]definition, len(srcs))
	var g errgroup.Group
	for i, src := range srcs {
		g.Go(func() error {
			defs, err := read(src)
			if err != nil {
				return SourceError{Index: i, Cause: err}
			}
			reads[i] = defs
			return nil
		})
	}
	err = g.Wait()
	if err != nil {
		c.log.ErrorContext(ctx, "failed to read configuration source", logging.Error(err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, defs := range reads {
		for _, d := range defs {
			c.set(d.section, d.name, d.value.Raw, d.value.Line)
		}
		c.log.DebugContext(ctx, "applied configuration source", logging.Source(i), slog.Int("variables", len(defs)))
	}
	c.resetAll()
	return nil
}

type definition struct {
	section string
	name    string
	value   config.Value
}

func read(src config.Source) ([]definition, error) {
	var defs []definition
	err := src.Apply(config.StoreFunc(func(k key.Keyer, v config.Value) error {
		sectionName, name, err := config.Locate(k)
		if err != nil {
			return err
		}
		defs = append(defs, definition{section: sectionName, name: name, value: v})
		return nil
	}))
	return defs, err
}

// Resolve cooks every variable of every section, in definition order.
func (c *Configuration) Resolve(ctx context.Context) (err error) {
	ctx, span := c.tracer.Start(ctx, "Resolve")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resolveAll(ctx)
}

func (c *Configuration) resolveAll(ctx context.Context) error {
	ctrl := c.controller()
	for _, name := range c.order {
		for v := range c.sections[name].All() {
			err := ctrl.Resolve(ctx, v)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Get returns the cooked value of a variable, resolving it first if needed.
func (c *Configuration) Get(ctx context.Context, sectionName, name string) (val string, err error) {
	ctx, span := c.tracer.Start(ctx, "Get", trace.WithAttributes(
		attribute.String("cooked.section", sectionName),
		attribute.String("cooked.variable", name),
	))
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.variable(sectionName, name)
	if err != nil {
		return "", err
	}
	err = c.controller().Resolve(ctx, v)
	if err != nil {
		return "", err
	}
	return v.Cooked(), nil
}

// Raw returns the value of a variable as it was defined.
func (c *Configuration) Raw(sectionName, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.variable(sectionName, name)
	if err != nil {
		return "", err
	}
	return v.Raw(), nil
}

func (c *Configuration) variable(sectionName, name string) (*variable.Variable, error) {
	s, ok := c.sections[sectionName]
	if !ok {
		return nil, NoSectionError{Section: sectionName}
	}
	v, ok := s.Lookup(name)
	if !ok {
		return nil, NoVariableError{Section: sectionName, Variable: name}
	}
	return v, nil
}

// Sections iterates over the section names in the order they were first defined.
func (c *Configuration) Sections() iter.Seq[string] {
	c.mu.Lock()
	names := make([]string, len(c.order))
	copy(names, c.order)
	c.mu.Unlock()

	return func(yield func(string) bool) {
		for _, name := range names {
			if !yield(name) {
				return
			}
		}
	}
}

// Variables iterates over the names and raw values of the variables of
// a section, in definition order. An unknown section yields nothing.
func (c *Configuration) Variables(sectionName string) iter.Seq2[string, string] {
	type pair struct{ name, raw string }

	c.mu.Lock()
	var pairs []pair
	if s, ok := c.sections[sectionName]; ok {
		for v := range s.All() {
			pairs = append(pairs, pair{name: v.Name(), raw: v.Raw()})
		}
	}
	c.mu.Unlock()

	return func(yield func(string, string) bool) {
		for _, p := range pairs {
			if !yield(p.name, p.raw) {
				return
			}
		}
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
