// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package section provides an ordered store of configuration variables.
package section

import (
	"iter"

	"github.com/z5labs/cooked/variable"
)

// Section owns the variables defined under a single section name.
// Variables are kept in definition order.
type Section struct {
	name  string
	opts  []variable.Option
	index map[string]int
	vars  []*variable.Variable
}

// New returns an empty Section. The given options are applied to
// every variable the Section creates.
func New(name string, opts ...variable.Option) *Section {
	return &Section{
		name:  name,
		opts:  opts,
		index: make(map[string]int),
	}
}

// Name returns the section name.
func (s *Section) Name() string {
	return s.name
}

// Add defines the variable name with the given raw value. Redefining an
// existing variable replaces its value and line but keeps its position.
func (s *Section) Add(name, value string, line int) *variable.Variable {
	if i, ok := s.index[name]; ok {
		v := s.vars[i]
		v.SetValue(value)
		v.SetLine(line)
		return v
	}

	v := variable.New(s.name, name, value, line, s.opts...)
	s.index[name] = len(s.vars)
	s.vars = append(s.vars, v)
	return v
}

// Lookup returns the variable with the given name.
func (s *Section) Lookup(name string) (*variable.Variable, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.vars[i], true
}

// Len returns the number of variables in the section.
func (s *Section) Len() int {
	return len(s.vars)
}

// All iterates over the variables in definition order.
func (s *Section) All() iter.Seq[*variable.Variable] {
	return func(yield func(*variable.Variable) bool) {
		for _, v := range s.vars {
			if !yield(v) {
				return
			}
		}
	}
}
