// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cooked

import "fmt"

// NoSectionError occurs when a section does not exist.
type NoSectionError struct {
	Section string
}

// Error implements the [builtin.error] interface.
func (e NoSectionError) Error() string {
	return fmt.Sprintf("no such section: %q", e.Section)
}

// NoVariableError occurs when a section has no variable with the requested name.
type NoVariableError struct {
	Section  string
	Variable string
}

// Error implements the [builtin.error] interface.
func (e NoVariableError) Error() string {
	return fmt.Sprintf("section %q has no variable %q", e.Section, e.Variable)
}

// SourceError occurs when a config.Source passed to [Configuration.Load] fails.
type SourceError struct {
	// Index is the position of the source in the arguments to Load.
	Index int
	Cause error
}

// Error implements the [builtin.error] interface.
func (e SourceError) Error() string {
	return fmt.Sprintf("failed to read config source %d: %s", e.Index, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e SourceError) Unwrap() error {
	return e.Cause
}

// UnmarshalError occurs when the cooked values cannot be decoded into the
// value passed to [Configuration.Unmarshal].
type UnmarshalError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e UnmarshalError) Error() string {
	return fmt.Sprintf("failed to unmarshal cooked config into custom type: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e UnmarshalError) Unwrap() error {
	return e.Cause
}

// ConflictError occurs during [Configuration.Unmarshal] when a variable
// has the same name as a nested section.
type ConflictError struct {
	Key string
}

// Error implements the [builtin.error] interface.
func (e ConflictError) Error() string {
	return fmt.Sprintf("%q is both a variable and a section", e.Key)
}
