// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package segment splits configuration values into literal and non-literal spans.
//
// A literal span is text enclosed in the quote character (by default a single quote).
// Literal spans are exempt from variable substitution and metacharacter expansion.
// Everything else is non-literal and may be rewritten by a substituter.
//
// Segmentation is a single left to right scan with one character of lookback:
//
//	abc'lit eral'def  =>  [abc] ['lit eral'] [def]
//
// A quote preceded by the escape introducer (by default a backslash) is data, not
// a delimiter, and is kept together with its escape introducer.
package segment

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultQuote is the character which opens and closes a literal span.
	DefaultQuote = '\''

	// DefaultEscape is the character which, when directly preceding a quote,
	// turns that quote into ordinary data.
	DefaultEscape = '\\'
)

// Segment is a homogeneous span of a value, either all literal or all substitutable.
type Segment struct {
	// Literal reports whether the span was quote-protected.
	Literal bool

	buf []byte
}

// Literal returns a literal Segment containing s.
func Literal(s string) Segment {
	return Segment{Literal: true, buf: []byte(s)}
}

// Text returns a non-literal Segment containing s.
func Text(s string) Segment {
	return Segment{buf: []byte(s)}
}

// Append adds the UTF-8 encoding of r to the end of the span.
func (s *Segment) Append(r rune) {
	s.buf = utf8.AppendRune(s.buf, r)
}

func (s *Segment) appendString(str string) {
	s.buf = append(s.buf, str...)
}

// Len returns the number of bytes currently buffered.
func (s Segment) Len() int {
	return len(s.buf)
}

// String returns the span content.
func (s Segment) String() string {
	return string(s.buf)
}

// Set replaces the span content. Substituters use it to rewrite
// non-literal segments in place.
func (s *Segment) Set(str string) {
	s.buf = []byte(str)
}

// UnterminatedLiteralError occurs when a value ends while still inside a literal span.
type UnterminatedLiteralError struct {
	// Offset is the byte offset of the quote which opened the literal span.
	Offset int
	Quote  rune
}

// Error implements the error interface.
func (e UnterminatedLiteralError) Error() string {
	return fmt.Sprintf("unterminated %c quoted string starting at offset %d", e.Quote, e.Offset)
}

// Option configures a Scanner.
type Option func(*Scanner)

// Quote sets the literal quote character.
func Quote(r rune) Option {
	return func(s *Scanner) {
		s.quote = r
	}
}

// Escape sets the escape introducer.
func Escape(r rune) Option {
	return func(s *Scanner) {
		s.escape = r
	}
}

// Scanner splits values into segments and joins them back together.
// The zero value is not usable, use NewScanner.
type Scanner struct {
	quote  rune
	escape rune
}

// NewScanner returns a Scanner using DefaultQuote and DefaultEscape
// unless overridden by opts.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		quote:  DefaultQuote,
		escape: DefaultEscape,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QuoteChar returns the literal quote character.
func (s *Scanner) QuoteChar() rune {
	return s.quote
}

// EscapeChar returns the escape introducer.
func (s *Scanner) EscapeChar() rune {
	return s.escape
}

// Split segments value into an ordered sequence of literal and non-literal spans.
// Empty spans are never emitted, so an empty value yields no segments and a value
// without quotes yields exactly one non-literal segment.
func (s *Scanner) Split(value string) ([]Segment, error) {
	var (
		segs   []Segment
		cur    Segment
		lastCh rune = -1
		opened int
	)

	flush := func(literal bool) {
		if cur.Len() > 0 {
			segs = append(segs, cur)
		}
		cur = Segment{Literal: literal}
	}

	for i := 0; i < len(value); {
		ch, size := utf8.DecodeRuneInString(value[i:])
		raw := value[i : i+size]

		switch {
		case ch != s.quote:
			cur.appendString(raw)
		case lastCh == s.escape:
			cur.appendString(raw)
		case cur.Literal:
			flush(false)
		default:
			flush(true)
			opened = i
		}

		lastCh = ch
		i += size
	}

	if cur.Literal {
		return nil, UnterminatedLiteralError{Offset: opened, Quote: s.quote}
	}
	if cur.Len() > 0 {
		segs = append(segs, cur)
	}
	return segs, nil
}

// Join reassembles segs into the string they were split from. Literal segments
// are wrapped in the quote character again so Split(Join(segs)) reproduces segs.
func (s *Scanner) Join(segs []Segment) string {
	var sb strings.Builder
	for _, seg := range segs {
		if seg.Literal {
			sb.WriteRune(s.quote)
			sb.Write(seg.buf)
			sb.WriteRune(s.quote)
			continue
		}
		sb.Write(seg.buf)
	}
	return sb.String()
}

// Flatten concatenates the content of segs in order, without any quoting.
func Flatten(segs []Segment) string {
	var sb strings.Builder
	for _, seg := range segs {
		sb.Write(seg.buf)
	}
	return sb.String()
}

var defaultScanner = NewScanner()

// Split segments value using DefaultQuote and DefaultEscape.
func Split(value string) ([]Segment, error) {
	return defaultScanner.Split(value)
}

// Join reassembles segs using DefaultQuote.
func Join(segs []Segment) string {
	return defaultScanner.Join(segs)
}
