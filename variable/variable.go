// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package variable provides the per-variable state used while cooking configuration values.
package variable

import (
	"fmt"

	"github.com/z5labs/cooked/segment"
)

// UnknownLine is the line number recorded for variables whose
// definition site is unknown.
const UnknownLine = 0

// Option configures a Variable.
type Option func(*Variable)

// Scanner sets the segment.Scanner used to split the cooked value.
func Scanner(s *segment.Scanner) Option {
	return func(v *Variable) {
		v.scanner = s
	}
}

// Variable holds the raw and cooked value of a single named configuration variable.
//
// A Variable is not safe for concurrent use.
type Variable struct {
	name    string
	section string
	line    int

	raw      string
	cooked   string
	resolved bool

	scanner       *segment.Scanner
	segments      []segment.Segment
	segmentsValid bool
}

// New returns a Variable whose raw and cooked values are both value.
// The section is a handle only, a Variable does not own or reference
// its section's storage.
func New(section, name, value string, line int, opts ...Option) *Variable {
	v := &Variable{
		name:    name,
		section: section,
		line:    line,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.scanner == nil {
		v.scanner = segment.NewScanner()
	}
	v.SetValue(value)
	return v
}

// Name returns the variable name.
func (v *Variable) Name() string {
	return v.name
}

// Section returns the name of the section which defines the variable.
func (v *Variable) Section() string {
	return v.section
}

// Raw returns the value as it was defined, before any substitution.
func (v *Variable) Raw() string {
	return v.raw
}

// Cooked returns the current cooked value.
func (v *Variable) Cooked() string {
	return v.cooked
}

// Resolved reports whether the cooked value has reached its final form.
func (v *Variable) Resolved() bool {
	return v.resolved
}

// SetCooked replaces the cooked value, leaving the raw value untouched.
// Any cached segments are discarded.
func (v *Variable) SetCooked(value string) {
	v.cooked = value
	v.resolved = false
	v.invalidate()
}

// SetValue sets both the raw and the cooked value, discarding any
// substitution progress.
func (v *Variable) SetValue(value string) {
	v.raw = value
	v.SetCooked(value)
}

// Reset discards substitution progress by restoring the cooked value
// from the raw value.
func (v *Variable) Reset() {
	v.SetCooked(v.raw)
}

// Line returns the line where the variable was defined, or UnknownLine.
func (v *Variable) Line() int {
	return v.line
}

// SetLine records the line where the variable was defined.
func (v *Variable) SetLine(line int) {
	v.line = line
}

// String returns a human readable reference to the variable, including its
// definition line when known.
func (v *Variable) String() string {
	if v.line == UnknownLine {
		return fmt.Sprintf("%s:%s", v.section, v.name)
	}
	return fmt.Sprintf("%s:%s (line %d)", v.section, v.name, v.line)
}

// SegmentError occurs when the cooked value of a variable cannot be segmented.
type SegmentError struct {
	Variable string
	Section  string
	Line     int
	Cause    error
}

// Error implements the error interface.
func (e SegmentError) Error() string {
	if e.Line == UnknownLine {
		return fmt.Sprintf("variable %q in section %q: %s", e.Variable, e.Section, e.Cause)
	}
	return fmt.Sprintf("variable %q in section %q (line %d): %s", e.Variable, e.Section, e.Line, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e SegmentError) Unwrap() error {
	return e.Cause
}

// CookedSegments returns the cooked value split into literal and non-literal
// segments. The segments are cached until Reassemble, Finish, SetCooked or
// SetValue is called, so repeated calls return the same slice. Callers may
// rewrite the returned segments in place.
func (v *Variable) CookedSegments() ([]segment.Segment, error) {
	if v.segmentsValid {
		return v.segments, nil
	}

	segs, err := v.scanner.Split(v.cooked)
	if err != nil {
		return nil, SegmentError{
			Variable: v.name,
			Section:  v.section,
			Line:     v.line,
			Cause:    err,
		}
	}
	v.segments = segs
	v.segmentsValid = true
	return v.segments, nil
}

// Reassemble rebuilds the cooked value from the cached segments and
// discards them. Literal segments keep their quotes so that a later call
// to CookedSegments splits the value the same way again. Reassemble is a
// no-op if no segments are cached.
func (v *Variable) Reassemble() string {
	if !v.segmentsValid {
		return v.cooked
	}
	v.cooked = v.scanner.Join(v.segments)
	v.invalidate()
	return v.cooked
}

// Finish produces the final cooked value: the cached (or freshly split)
// segments have expand applied to each non-literal segment and are then
// concatenated without quotes. The variable is marked resolved.
func (v *Variable) Finish(expand func(string) string) error {
	segs, err := v.CookedSegments()
	if err != nil {
		return err
	}
	for i := range segs {
		if segs[i].Literal {
			continue
		}
		segs[i].Set(expand(segs[i].String()))
	}
	v.cooked = segment.Flatten(segs)
	v.resolved = true
	v.invalidate()
	return nil
}

func (v *Variable) invalidate() {
	v.segments = nil
	v.segmentsValid = false
}
