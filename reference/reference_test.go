// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package reference

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/z5labs/cooked/segment"
	"github.com/z5labs/cooked/variable"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapLookup map[string]map[string]*variable.Variable

func (m mapLookup) HasSection(section string) bool {
	_, ok := m[section]
	return ok
}

func (m mapLookup) LookupVariable(section, name string) (*variable.Variable, bool) {
	v, ok := m[section][name]
	return v, ok
}

func (m mapLookup) add(section, name, value string) *variable.Variable {
	if m[section] == nil {
		m[section] = make(map[string]*variable.Variable)
	}
	v := variable.New(section, name, value, variable.UnknownLine)
	m[section][name] = v
	return v
}

func TestResolver_Substitute(t *testing.T) {
	lookup := mapLookup{}
	lookup.add("app", "name", "cooked")
	lookup.add("app", "greeting", "hello ${name}")
	lookup.add("db", "host", "localhost")
	lookup.add("db", "url", "postgres://${host}/'${literal}'")
	lookup.add("", "root", "top")
	lookup.add("app", "dir", `C:\`)
	lookup.add("app", "escaped", `C:\\`)
	self := lookup.add("app", "self", "")

	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.FixedZone("x", 3600))
	r := New(
		lookup,
		LookupEnv(func(name string) (string, bool) {
			switch name {
			case "HOME":
				return "/home/it's me", true
			case "PRICE":
				return `$5 \ each`, true
			case "DIR":
				return `C:\`, true
			}
			return "", false
		}),
		Clock(func() time.Time { return now }),
	)

	testCases := []struct {
		name          string
		text          string
		expected      string
		substitutions int
	}{
		{
			name:     "no references",
			text:     "plain text",
			expected: "plain text",
		},
		{
			name:          "same section reference inserts the raw value",
			text:          "${greeting}!",
			expected:      "hello ${name}!",
			substitutions: 1,
		},
		{
			name:          "qualified reference",
			text:          "${db:host}:5432",
			expected:      "localhost:5432",
			substitutions: 1,
		},
		{
			name:          "references from other sections are qualified",
			text:          "${db:url}",
			expected:      "postgres://${db:host}/'${literal}'",
			substitutions: 1,
		},
		{
			name:          "root section reference",
			text:          "${:root}",
			expected:      "top",
			substitutions: 1,
		},
		{
			name:          "several references",
			text:          "${name}-${name}-${db:host}",
			expected:      "cooked-cooked-localhost",
			substitutions: 3,
		},
		{
			name:     "escaped reference is left alone",
			text:     `\${name}`,
			expected: `\${name}`,
		},
		{
			name:          "escaped escape introducer does not disable a reference",
			text:          `\\${name}`,
			expected:      `\\cooked`,
			substitutions: 1,
		},
		{
			name:          "environment values are inserted inert",
			text:          "${env:HOME}",
			expected:      `/home/it\'s me`,
			substitutions: 1,
		},
		{
			name:          "environment values with metacharacters",
			text:          "${env:PRICE}",
			expected:      `\$5 \\ each`,
			substitutions: 1,
		},
		{
			name:          "missing environment variables are empty",
			text:          "[${env:NOPE}]",
			expected:      "[]",
			substitutions: 1,
		},
		{
			name:          "program now",
			text:          "${program:now}",
			expected:      "2024-03-01T11:30:00Z",
			substitutions: 1,
		},
		{
			name:          "program pid",
			text:          "${program:pid}",
			expected:      strconv.Itoa(os.Getpid()),
			substitutions: 1,
		},
		{
			name:          "trailing escape introducer does not escape what follows",
			text:          "${dir}'x'",
			expected:      `C:\u005C'x'`,
			substitutions: 1,
		},
		{
			name:          "trailing escaped escape introducer",
			text:          "${escaped}'x'",
			expected:      `C:\u005C'x'`,
			substitutions: 1,
		},
		{
			name:          "environment value ending in the escape introducer",
			text:          "${env:DIR}'x'",
			expected:      `C:\u005C'x'`,
			substitutions: 1,
		},
		{
			name:     "dollar without brace",
			text:     "costs $5",
			expected: "costs $5",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, n, err := r.Substitute(context.Background(), self, tc.text)
			require.NoError(t, err)
			require.Equal(t, tc.expected, out)
			require.Equal(t, tc.substitutions, n)
		})
	}
}

func TestResolver_Substitute_Errors(t *testing.T) {
	lookup := mapLookup{}
	v := lookup.add("app", "x", "")
	v.SetLine(42)
	lookup.add("other", "broken", "'unterminated")

	r := New(lookup, LookupEnv(func(string) (string, bool) { return "", false }))

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the variable does not exist", func(t *testing.T) {
			_, _, err := r.Substitute(context.Background(), v, "${missing}")

			var uerr UnresolvedReferenceError
			if !assert.ErrorAs(t, err, &uerr) {
				return
			}
			if !assert.Equal(t, "missing", uerr.Reference) {
				return
			}
			if !assert.Equal(t, "x", uerr.Variable) {
				return
			}
			if !assert.Contains(t, uerr.Error(), "line 42") {
				return
			}
		})

		t.Run("if the section does not exist", func(t *testing.T) {
			_, _, err := r.Substitute(context.Background(), v, "${nowhere:thing}")

			var uerr UnresolvedReferenceError
			if !assert.ErrorAs(t, err, &uerr) {
				return
			}
			if !assert.Equal(t, "nowhere:thing", uerr.Reference) {
				return
			}
		})

		t.Run("if the program variable does not exist", func(t *testing.T) {
			_, _, err := r.Substitute(context.Background(), v, "${program:color}")

			var perr UnknownProgramVariableError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, "color", perr.Name) {
				return
			}
		})

		t.Run("if the closing brace is missing", func(t *testing.T) {
			_, _, err := r.Substitute(context.Background(), v, "${oops")

			var serr SyntaxError
			if !assert.ErrorAs(t, err, &serr) {
				return
			}
			if !assert.Equal(t, "x", serr.Variable) {
				return
			}
			if !assert.Equal(t, 42, serr.Line) {
				return
			}
		})

		t.Run("if the reference has too many colons", func(t *testing.T) {
			_, _, err := r.Substitute(context.Background(), v, "${a:b:c}")

			var serr SyntaxError
			if !assert.ErrorAs(t, err, &serr) {
				return
			}
			if !assert.NotEmpty(t, serr.Error()) {
				return
			}
		})

		t.Run("if the reference has no name", func(t *testing.T) {
			_, _, err := r.Substitute(context.Background(), v, "${}")

			var serr SyntaxError
			if !assert.ErrorAs(t, err, &serr) {
				return
			}
		})

		t.Run("if a referenced variable from another section cannot be segmented", func(t *testing.T) {
			_, _, err := r.Substitute(context.Background(), v, "${other:broken}")

			var serr variable.SegmentError
			if !assert.ErrorAs(t, err, &serr) {
				return
			}
			if !assert.Equal(t, "broken", serr.Variable) {
				return
			}

			var uerr segment.UnterminatedLiteralError
			if !assert.ErrorAs(t, err, &uerr) {
				return
			}
		})
	})
}

func TestResolver_SpecialSections(t *testing.T) {
	t.Run("will prefer a real section over a special one", func(t *testing.T) {
		lookup := mapLookup{}
		lookup.add("env", "HOME", "from config")
		v := lookup.add("app", "x", "")

		r := New(lookup, LookupEnv(func(string) (string, bool) { return "from env", true }))
		out, _, err := r.Substitute(context.Background(), v, "${env:HOME}")
		require.NoError(t, err)
		require.Equal(t, "from config", out)
	})

	t.Run("will honour renamed special sections", func(t *testing.T) {
		lookup := mapLookup{}
		v := lookup.add("app", "x", "")

		r := New(
			lookup,
			EnvSection("environment"),
			LookupEnv(func(string) (string, bool) { return "value", true }),
		)
		out, _, err := r.Substitute(context.Background(), v, "${environment:ANY}")
		require.NoError(t, err)
		require.Equal(t, "value", out)

		_, _, err = r.Substitute(context.Background(), v, "${env:ANY}")
		require.ErrorAs(t, err, &UnresolvedReferenceError{})
	})

	t.Run("will use the scanner escape introducer", func(t *testing.T) {
		lookup := mapLookup{}
		v := lookup.add("app", "x", "")
		lookup.add("app", "y", "Y")

		r := New(lookup, Scanner(segment.NewScanner(segment.Escape('^'))))
		out, n, err := r.Substitute(context.Background(), v, "^${y} ${y}")
		require.NoError(t, err)
		require.Equal(t, "^${y} Y", out)
		require.Equal(t, 1, n)
	})
}
