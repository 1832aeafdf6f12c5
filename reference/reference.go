// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package reference replaces variable references in non-literal configuration text.
//
// Two reference forms are understood:
//
//	${name}          a variable in the same section as the referring variable
//	${section:name}  a variable in another section
//
// When no section with the given name exists, two special sections are consulted:
// "env" for environment variables and "program" for cwd, pid, hostname and now.
// Placing the escape introducer in front of the dollar sign disables a reference.
package reference

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/z5labs/cooked/metachar"
	"github.com/z5labs/cooked/segment"
	"github.com/z5labs/cooked/variable"
)

const (
	// DefaultEnvSection is the name of the special section holding environment variables.
	DefaultEnvSection = "env"

	// DefaultProgramSection is the name of the special section holding program information.
	DefaultProgramSection = "program"
)

// Lookup gives the Resolver read access to the variables of a configuration.
type Lookup interface {
	HasSection(section string) bool
	LookupVariable(section, name string) (*variable.Variable, bool)
}

// UnresolvedReferenceError occurs when a reference names a variable or
// section which does not exist.
type UnresolvedReferenceError struct {
	Variable  string
	Section   string
	Line      int
	Reference string
	Cause     error
}

// Error implements the error interface.
func (e UnresolvedReferenceError) Error() string {
	msg := fmt.Sprintf("variable %q in section %q", e.Variable, e.Section)
	if e.Line != variable.UnknownLine {
		msg += fmt.Sprintf(" (line %d)", e.Line)
	}
	msg += fmt.Sprintf(" references undefined variable %q", e.Reference)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e UnresolvedReferenceError) Unwrap() error {
	return e.Cause
}

// SyntaxError occurs when a reference is malformed.
type SyntaxError struct {
	Variable string
	Section  string
	Line     int
	Text     string
	Reason   string
}

// Error implements the error interface.
func (e SyntaxError) Error() string {
	if e.Line == variable.UnknownLine {
		return fmt.Sprintf("variable %q in section %q: bad reference %q: %s", e.Variable, e.Section, e.Text, e.Reason)
	}
	return fmt.Sprintf("variable %q in section %q (line %d): bad reference %q: %s", e.Variable, e.Section, e.Line, e.Text, e.Reason)
}

type options struct {
	scanner        *segment.Scanner
	expander       *metachar.Expander
	envSection     string
	programSection string
	lookupEnv      func(string) (string, bool)
	now            func() time.Time
}

// Option configures a Resolver.
type Option func(*options)

// Scanner sets the segment.Scanner used to qualify references copied
// from other sections. Its escape introducer also disables references.
func Scanner(s *segment.Scanner) Option {
	return func(o *options) {
		o.scanner = s
	}
}

// Expander sets the metachar.Expander used to escape values inserted
// from the special sections.
func Expander(e *metachar.Expander) Option {
	return func(o *options) {
		o.expander = e
	}
}

// EnvSection renames the special environment section.
func EnvSection(name string) Option {
	return func(o *options) {
		o.envSection = name
	}
}

// ProgramSection renames the special program section.
func ProgramSection(name string) Option {
	return func(o *options) {
		o.programSection = name
	}
}

// LookupEnv replaces os.LookupEnv as the source of environment variables.
func LookupEnv(f func(string) (string, bool)) Option {
	return func(o *options) {
		o.lookupEnv = f
	}
}

// Clock replaces time.Now as the source of ${program:now}.
func Clock(f func() time.Time) Option {
	return func(o *options) {
		o.now = f
	}
}

// Resolver replaces references with the values they name.
type Resolver struct {
	lookup Lookup
	opts   options
	escape rune
}

// New returns a Resolver reading variables from lookup.
func New(lookup Lookup, opts ...Option) *Resolver {
	o := options{
		envSection:     DefaultEnvSection,
		programSection: DefaultProgramSection,
		lookupEnv:      os.LookupEnv,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scanner == nil {
		o.scanner = segment.NewScanner()
	}
	if o.expander == nil {
		o.expander = metachar.New(
			metachar.Escape(o.scanner.EscapeChar()),
			metachar.Sequence(o.scanner.QuoteChar(), string(o.scanner.QuoteChar())),
		)
	}
	return &Resolver{
		lookup: lookup,
		opts:   o,
		escape: o.scanner.EscapeChar(),
	}
}

// Substitute replaces every reference in text, which must be the content of
// a non-literal segment of v. It returns the new text and the number of
// references replaced.
func (r *Resolver) Substitute(ctx context.Context, v *variable.Variable, text string) (string, int, error) {
	var (
		sb strings.Builder
		n  int
	)
	err := r.scan(text, func(s string) {
		sb.WriteString(s)
	}, func(ref string) error {
		val, err := r.value(v, ref)
		if err != nil {
			return err
		}
		sb.WriteString(val)
		n++
		return nil
	})
	if err != nil {
		if serr, ok := err.(SyntaxError); ok {
			serr.Variable = v.Name()
			serr.Section = v.Section()
			serr.Line = v.Line()
			return "", 0, serr
		}
		return "", 0, err
	}
	return sb.String(), n, nil
}

// scan walks text, passing plain text to emit and the body of each
// ${...} reference to ref.
func (r *Resolver) scan(text string, emit func(string), ref func(string) error) error {
	start := 0
	for i := 0; i < len(text); {
		ch, size := utf8.DecodeRuneInString(text[i:])
		if ch == r.escape && i+size < len(text) {
			_, nsize := utf8.DecodeRuneInString(text[i+size:])
			i += size + nsize
			continue
		}
		if ch != '$' || i+1 >= len(text) || text[i+1] != '{' {
			i += size
			continue
		}

		end := strings.IndexByte(text[i+2:], '}')
		if end < 0 {
			return SyntaxError{Text: text[i:], Reason: "missing closing brace"}
		}
		emit(text[start:i])
		err := ref(text[i+2 : i+2+end])
		if err != nil {
			return err
		}
		i += 2 + end + 1
		start = i
	}
	emit(text[start:])
	return nil
}

func (r *Resolver) value(v *variable.Variable, ref string) (string, error) {
	sec, name, qualified := strings.Cut(ref, ":")
	if !qualified {
		sec, name = v.Section(), ref
	}
	if strings.Contains(name, ":") {
		return "", SyntaxError{Text: "${" + ref + "}", Reason: "more than one ':'"}
	}
	if strings.TrimSpace(name) == "" {
		return "", SyntaxError{Text: "${" + ref + "}", Reason: "empty variable name"}
	}

	unresolved := func(cause error) error {
		return UnresolvedReferenceError{
			Variable:  v.Name(),
			Section:   v.Section(),
			Line:      v.Line(),
			Reference: ref,
			Cause:     cause,
		}
	}

	if r.lookup.HasSection(sec) {
		target, ok := r.lookup.LookupVariable(sec, name)
		if !ok {
			return "", unresolved(nil)
		}
		if sec == v.Section() {
			return r.guardTail(target.Raw()), nil
		}
		val, err := r.qualify(target, sec)
		if err != nil {
			return "", err
		}
		return r.guardTail(val), nil
	}

	switch {
	case qualified && sec == r.opts.envSection:
		val, _ := r.opts.lookupEnv(name)
		return r.inert(val), nil
	case qualified && sec == r.opts.programSection:
		val, err := r.program(name)
		if err != nil {
			return "", unresolved(err)
		}
		return r.inert(val), nil
	default:
		return "", unresolved(nil)
	}
}

// qualify returns the raw value of target with every unqualified reference
// in its non-literal segments rewritten to name home explicitly.
func (r *Resolver) qualify(target *variable.Variable, home string) (string, error) {
	segs, err := r.opts.scanner.Split(target.Raw())
	if err != nil {
		return "", variable.SegmentError{
			Variable: target.Name(),
			Section:  target.Section(),
			Line:     target.Line(),
			Cause:    err,
		}
	}

	for i := range segs {
		if segs[i].Literal {
			continue
		}

		var sb strings.Builder
		err := r.scan(segs[i].String(), func(s string) {
			sb.WriteString(s)
		}, func(ref string) error {
			if !strings.Contains(ref, ":") {
				ref = home + ":" + ref
			}
			sb.WriteString("${" + ref + "}")
			return nil
		})
		if err != nil {
			// leave malformed text for the referring variable to report
			continue
		}
		segs[i].Set(sb.String())
	}
	return r.opts.scanner.Join(segs), nil
}

// inert escapes externally sourced text so it is neither split, nor
// substituted again, until metacharacter expansion restores it.
func (r *Resolver) inert(s string) string {
	return r.guardTail(r.opts.expander.Escape(s, r.opts.scanner.QuoteChar(), '$'))
}

// guardTail rewrites a trailing escape introducer as its \uXXXX form, which
// expands to the same text, so that inserted text never escapes the
// character following the reference.
func (r *Resolver) guardTail(s string) string {
	if r.escape > 0xFFFF {
		return s
	}

	var (
		n    int
		rest = s
	)
	for {
		ch, size := utf8.DecodeLastRuneInString(rest)
		if size == 0 || ch != r.escape {
			break
		}
		n++
		rest = rest[:len(rest)-size]
	}
	if n == 0 {
		return s
	}
	if n%2 == 0 {
		// the last pair already stands for a single escape introducer
		s = s[:len(s)-utf8.RuneLen(r.escape)]
	}
	return s + fmt.Sprintf("u%04X", r.escape)
}

// UnknownProgramVariableError occurs when a reference names a program
// variable which does not exist.
type UnknownProgramVariableError struct {
	Name string
}

// Error implements the error interface.
func (e UnknownProgramVariableError) Error() string {
	return fmt.Sprintf("unknown program variable: %s", e.Name)
}

func (r *Resolver) program(name string) (string, error) {
	switch name {
	case "cwd":
		return os.Getwd()
	case "pid":
		return strconv.Itoa(os.Getpid()), nil
	case "hostname":
		return os.Hostname()
	case "now":
		return r.opts.now().UTC().Format(time.RFC3339), nil
	default:
		return "", UnknownProgramVariableError{Name: name}
	}
}
