// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"os"
	"strings"

	"github.com/z5labs/cooked/config/key"
	"github.com/z5labs/cooked/metachar"
	"github.com/z5labs/cooked/segment"
)

// Env represents a Source where its underlying values
// are extracted from environment variables.
//
// Environment values are escaped before being stored so that quotes,
// escape introducers and references inside them are taken literally.
type Env struct {
	section  string
	environ  func() []string
	escaper  *metachar.Expander
	specials []rune
}

// FromEnv returns a Source which defines every environment variable
// available to the current process as a variable of the given section.
func FromEnv(section string) Env {
	return Env{
		section:  section,
		environ:  os.Environ,
		escaper:  metachar.New(),
		specials: []rune{segment.DefaultQuote, '$'},
	}
}

// WithEscaper returns a copy of src which escapes values with e,
// additionally escaping every rune in specials. It must match the
// quote and escape characters of the configuration being loaded.
func (src Env) WithEscaper(e *metachar.Expander, specials ...rune) Env {
	src.escaper = e
	src.specials = specials
	return src
}

// Apply implements the Source interface.
func (src Env) Apply(store Store) error {
	for _, pair := range src.environ() {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		val := Value{Raw: src.escaper.Escape(v, src.specials...)}
		err := store.Set(key.Variable{Section: src.section, Name: k}, val)
		if err != nil {
			return err
		}
	}
	return nil
}
