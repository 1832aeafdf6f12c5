// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/z5labs/cooked/config/key"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYaml_Apply(t *testing.T) {
	t.Run("will keep document order and lines", func(t *testing.T) {
		r := strings.NewReader(`name: cooked
server:
  port: 8080
  host: localhost
  url: "http://${host}:${port}"
  tls:
    cert: '''/etc/${name}.pem'''
empty:
list: [a, b]
`)

		entries := collect(t, FromYaml(r))
		require.Equal(t, []entry{
			{Name: "name", Raw: "cooked", Line: 1},
			{Section: "server", Name: "port", Raw: "8080", Line: 3},
			{Section: "server", Name: "host", Raw: "localhost", Line: 4},
			{Section: "server", Name: "url", Raw: "http://${host}:${port}", Line: 5},
			{Section: "server.tls", Name: "cert", Raw: "'/etc/${name}.pem'", Line: 7},
			{Name: "empty", Raw: "", Line: 8},
			{Name: "list", Raw: "a, b", Line: 9},
		}, entries)
	})

	t.Run("will follow aliases", func(t *testing.T) {
		r := strings.NewReader(`base: &base
  host: localhost
copy: *base
`)

		entries := collect(t, FromYaml(r))
		require.Equal(t, []entry{
			{Section: "base", Name: "host", Raw: "localhost", Line: 2},
			{Section: "copy", Name: "host", Raw: "localhost", Line: 2},
		}, entries)
	})

	t.Run("will do nothing", func(t *testing.T) {
		t.Run("if the document is empty", func(t *testing.T) {
			entries := collect(t, FromYaml(strings.NewReader("")))
			require.Empty(t, entries)
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the underlying io.Reader fails", func(t *testing.T) {
			readErr := errors.New("failed to read")
			r := readFunc(func(b []byte) (int, error) {
				return 0, readErr
			})

			store := StoreFunc(func(k key.Keyer, v Value) error {
				return nil
			})

			src := FromYaml(r)
			err := src.Apply(store)
			if !assert.ErrorIs(t, err, readErr) {
				return
			}
		})

		t.Run("if the io.Reader contains invalid YAML", func(t *testing.T) {
			r := strings.NewReader("a: [b")

			store := StoreFunc(func(k key.Keyer, v Value) error {
				return nil
			})

			src := FromYaml(r)
			err := src.Apply(store)

			var ierr InvalidYamlError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.NotEmpty(t, ierr.Error()) {
				return
			}
			if !assert.NotNil(t, ierr.Unwrap()) {
				return
			}
		})

		t.Run("if the top level is not a mapping", func(t *testing.T) {
			r := strings.NewReader("- a\n- b\n")

			store := StoreFunc(func(k key.Keyer, v Value) error {
				return nil
			})

			err := FromYaml(r).Apply(store)

			var ierr InvalidYamlError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.Equal(t, 1, ierr.Line) {
				return
			}
		})

		t.Run("if a list contains a mapping", func(t *testing.T) {
			r := strings.NewReader("xs:\n  - a: b\n")

			store := StoreFunc(func(k key.Keyer, v Value) error {
				return nil
			})

			err := FromYaml(r).Apply(store)
			if !assert.ErrorAs(t, err, &InvalidYamlError{}) {
				return
			}
		})

		t.Run("if the underlying store fails to set a key", func(t *testing.T) {
			r := strings.NewReader(`hello: world`)

			storeErr := errors.New("failed to set key")
			store := StoreFunc(func(k key.Keyer, v Value) error {
				return storeErr
			})

			err := FromYaml(r).Apply(store)
			if !assert.ErrorIs(t, err, storeErr) {
				return
			}
		})
	})
}
