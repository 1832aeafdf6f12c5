// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Levels below slog.LevelDebug and above slog.LevelError.
const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// UnknownLevelError occurs when a level name is not recognised.
type UnknownLevelError struct {
	Name string
}

// Error implements the error interface.
func (e UnknownLevelError) Error() string {
	return fmt.Sprintf("unknown log level: %s", e.Name)
}

// ParseLevel maps a level name to a slog.Level. Names are case insensitive.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARNING", "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return slog.LevelInfo, UnknownLevelError{Name: name}
	}
}

// Format selects the encoding of log records.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// NewHandlerFor returns a trace correlated handler writing records at or
// above level to w.
func NewHandlerFor(w io.Writer, level slog.Leveler, format Format) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	}

	var h slog.Handler
	if format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return NewHandler(h)
}

// NewLogger returns a logger built on NewHandlerFor.
func NewLogger(w io.Writer, level slog.Leveler, format Format) *slog.Logger {
	return slog.New(NewHandlerFor(w, level, format))
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}
	lvl, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch lvl {
	case LevelTrace:
		a.Value = slog.StringValue("TRACE")
	case LevelFatal:
		a.Value = slog.StringValue("FATAL")
	}
	return a
}
