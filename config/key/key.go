// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package key provides types for addressing configuration variables.
package key

import (
	"strings"
)

// Keyer is a common interface all value key types must implement.
type Keyer interface {
	Key() string
}

// Chain represents nested keys. The last link names a variable and the
// links before it name its section.
type Chain []Keyer

// Key implements the [Keyer] interface.
func (k Chain) Key() string {
	ss := make([]string, len(k))
	for i := range len(k) {
		ss[i] = k[i].Key()
	}
	return strings.Join(ss, ".")
}

// Name represents a single key. A Name on its own addresses a variable
// in the root section.
type Name string

// Key implements the [Keyer] interface.
func (k Name) Key() string {
	return string(k)
}

// Variable addresses a variable by section and name. Unlike a Chain, the
// section may itself contain dots.
type Variable struct {
	Section string
	Name    string
}

// Key implements the [Keyer] interface.
func (k Variable) Key() string {
	if k.Section == "" {
		return k.Name
	}
	return k.Section + ":" + k.Name
}
