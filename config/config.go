// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"strings"

	"github.com/z5labs/cooked/config/key"
)

// UnknownLine is recorded for values whose definition line is unknown.
const UnknownLine = 0

// Value is a raw, unresolved configuration value.
type Value struct {
	Raw string

	// Line is where the value was defined, or UnknownLine.
	Line int
}

// Store receives the variables read by a Source.
type Store interface {
	Set(key.Keyer, Value) error
}

// StoreFunc is a func which implements the Store interface.
type StoreFunc func(key.Keyer, Value) error

// Set implements the Store interface.
func (f StoreFunc) Set(k key.Keyer, v Value) error {
	return f(k, v)
}

// Source defines valid config sources as those who can
// serialize themselves into a key value like structure.
type Source interface {
	Apply(Store) error
}

// SourceFunc is a func which implements the Source interface.
type SourceFunc func(Store) error

// Apply implements the Source interface.
func (f SourceFunc) Apply(store Store) error {
	return f(store)
}

// UnknownKeyerError occurs when a key.Keyer cannot be mapped to a variable.
type UnknownKeyerError struct {
	Key key.Keyer
}

// Error implements the error interface.
func (e UnknownKeyerError) Error() string {
	return fmt.Sprintf("config source tried setting config value with unknown key.Keyer: %T", e.Key)
}

// EmptyKeyChainError occurs when a variable is addressed with an empty key.Chain.
type EmptyKeyChainError struct{}

// Error implements the error interface.
func (e EmptyKeyChainError) Error() string {
	return "attempted to set value to an empty key chain"
}

// Locate maps k to the section and name of the variable it addresses.
//
// A key.Name addresses a variable in the root section "". For a key.Chain
// the last link is the variable name and the preceding links, joined with
// ".", form the section name.
func Locate(k key.Keyer) (section, name string, err error) {
	switch x := k.(type) {
	case key.Name:
		return "", string(x), nil
	case key.Variable:
		return x.Section, x.Name, nil
	case key.Chain:
		links, err := flatten(nil, x)
		if err != nil {
			return "", "", err
		}
		if len(links) == 0 {
			return "", "", EmptyKeyChainError{}
		}
		last := len(links) - 1
		return strings.Join(links[:last], "."), links[last], nil
	default:
		return "", "", UnknownKeyerError{Key: k}
	}
}

func flatten(links []string, chain key.Chain) ([]string, error) {
	for _, k := range chain {
		switch x := k.(type) {
		case key.Name:
			links = append(links, string(x))
		case key.Chain:
			var err error
			links, err = flatten(links, x)
			if err != nil {
				return nil, err
			}
		default:
			return nil, UnknownKeyerError{Key: k}
		}
	}
	return links, nil
}
