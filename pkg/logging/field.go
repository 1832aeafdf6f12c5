// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package logging

import "log/slog"

// Section returns an slog.Attr for a section name.
func Section(name string) slog.Attr {
	return slog.String("section", name)
}

// Variable returns an slog.Attr for a variable name.
func Variable(name string) slog.Attr {
	return slog.String("variable", name)
}

// Line returns an slog.Attr for the line a variable was defined on.
func Line(n int) slog.Attr {
	return slog.Int("line", n)
}

// Round returns an slog.Attr for a substitution round number.
func Round(n int) slog.Attr {
	return slog.Int("round", n)
}

// Substitutions returns an slog.Attr for a substitution count.
func Substitutions(n int) slog.Attr {
	return slog.Int("substitutions", n)
}

// Source returns an slog.Attr for the position of a configuration source.
func Source(i int) slog.Attr {
	return slog.Int("source", i)
}

// Error returns an slog.Attr for a error.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}
