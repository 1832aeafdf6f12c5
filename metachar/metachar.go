// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package metachar expands escape sequences found in non-literal configuration text.
package metachar

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultEscape is the default escape introducer.
const DefaultEscape = '\\'

var defaultTable = map[rune]string{
	'n':  "\n",
	't':  "\t",
	'r':  "\r",
	'f':  "\f",
	'b':  "\b",
	'a':  "\a",
	'v':  "\v",
	'\'': "'",
	'"':  "\"",
	'$':  "$",
}

// Option configures an Expander.
type Option func(*Expander)

// Escape sets the escape introducer.
func Escape(r rune) Option {
	return func(e *Expander) {
		e.escape = r
	}
}

// Sequence registers (or overrides) the expansion of escape followed by r.
func Sequence(r rune, expansion string) Option {
	return func(e *Expander) {
		e.table[r] = expansion
	}
}

// Expander expands metacharacter sequences.
type Expander struct {
	escape rune
	table  map[rune]string
}

// New returns an Expander which understands \n, \t, \r, \f, \b, \a, \v,
// \', \", \$, a doubled escape introducer and \uXXXX.
func New(opts ...Option) *Expander {
	e := &Expander{
		escape: DefaultEscape,
		table:  make(map[rune]string, len(defaultTable)+1),
	}
	for r, s := range defaultTable {
		e.table[r] = s
	}
	for _, opt := range opts {
		opt(e)
	}
	e.table[e.escape] = string(e.escape)
	return e
}

// Expand returns s with every known escape sequence replaced by its expansion.
// Unknown sequences, malformed \u sequences and a trailing escape introducer
// are left untouched.
func (e *Expander) Expand(s string) string {
	if !strings.ContainsRune(s, e.escape) {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		ch, size := utf8.DecodeRuneInString(s[i:])
		if ch != e.escape || i+size >= len(s) {
			sb.WriteString(s[i : i+size])
			i += size
			continue
		}

		next, nsize := utf8.DecodeRuneInString(s[i+size:])
		if next == 'u' {
			r, ok := decodeUnicode(s[i+size+nsize:])
			if ok {
				sb.WriteRune(r)
				i += size + nsize + 4
				continue
			}
		}

		expansion, ok := e.table[next]
		if !ok {
			sb.WriteString(s[i : i+size+nsize])
			i += size + nsize
			continue
		}
		sb.WriteString(expansion)
		i += size + nsize
	}
	return sb.String()
}

func decodeUnicode(s string) (rune, bool) {
	if len(s) < 4 {
		return 0, false
	}
	n, err := strconv.ParseUint(s[:4], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}

// Escape returns s with the escape introducer placed in front of every
// occurrence of the escape introducer itself and of each rune in specials,
// so that Expand(Escape(s, specials...)) == s for specials which expand to
// themselves (such as ' " and $).
func (e *Expander) Escape(s string, specials ...rune) string {
	needs := func(r rune) bool {
		if r == e.escape {
			return true
		}
		for _, sp := range specials {
			if r == sp {
				return true
			}
		}
		return false
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		ch, size := utf8.DecodeRuneInString(s[i:])
		if needs(ch) {
			sb.WriteRune(e.escape)
		}
		sb.WriteString(s[i : i+size])
		i += size
	}
	return sb.String()
}

// EscapeChar returns the escape introducer.
func (e *Expander) EscapeChar() rune {
	return e.escape
}
