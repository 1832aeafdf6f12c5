// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"io"

	"github.com/z5labs/cooked/config/key"
	"github.com/z5labs/cooked/internal/try"

	"gopkg.in/ini.v1"
)

// Ini represents a Source where its underlying format is INI.
//
// Each INI section becomes a section of the same name and keys outside
// of any section belong to the root section. Values are taken verbatim:
// surrounding quotes are preserved and ';' or '#' inside a value do not
// start a comment.
type Ini struct {
	r io.Reader
}

// FromIni returns a source which will apply its config
// from INI values parsed from the given io.Reader.
func FromIni(r io.Reader) Ini {
	return Ini{r: r}
}

// InvalidIniError occurs if the underlying io.Reader contains invalid INI.
type InvalidIniError struct {
	Cause error
}

// Error implements the error interface.
func (e InvalidIniError) Error() string {
	return fmt.Sprintf("invalid ini: %s", e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e InvalidIniError) Unwrap() error {
	return e.Cause
}

// Apply implements the Source interface.
func (src Ini) Apply(store Store) (err error) {
	defer try.Close(&err, src.r)

	b, err := io.ReadAll(src.r)
	if err != nil {
		return err
	}

	f, err := ini.LoadSources(ini.LoadOptions{
		PreserveSurroundedQuote: true,
		IgnoreInlineComment:     true,
	}, b)
	if err != nil {
		return InvalidIniError{Cause: err}
	}

	for _, sec := range f.Sections() {
		name := sec.Name()
		if name == ini.DefaultSection {
			name = ""
		}
		for _, k := range sec.Keys() {
			err := store.Set(key.Variable{Section: name, Name: k.Name()}, Value{Raw: k.Value()})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
