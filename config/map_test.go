// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"testing"

	"github.com/z5labs/cooked/config/key"

	"github.com/stretchr/testify/assert"
)

func TestMap_Apply(t *testing.T) {
	t.Run("will properly construct key.Chain for", func(t *testing.T) {
		testCases := []struct {
			Name    string
			M       Map
			Entries []entry
		}{
			{
				Name: "single top level key",
				M: Map{
					"hello": "world",
				},
				Entries: []entry{
					{Name: "hello", Raw: "world"},
				},
			},
			{
				Name: "multiple top level keys in sorted order",
				M: Map{
					"one":   1,
					"hello": "world",
				},
				Entries: []entry{
					{Name: "hello", Raw: "world"},
					{Name: "one", Raw: "1"},
				},
			},
			{
				Name: "single nested key",
				M: Map{
					"hello": map[string]any{
						"good": "bye",
					},
				},
				Entries: []entry{
					{Section: "hello", Name: "good", Raw: "bye"},
				},
			},
			{
				Name: "deeply nested keys",
				M: Map{
					"a": Map{
						"b": map[string]any{
							"c": true,
						},
						"d": nil,
					},
				},
				Entries: []entry{
					{Section: "a.b", Name: "c", Raw: "true"},
					{Section: "a", Name: "d", Raw: ""},
				},
			},
			{
				Name: "lists are joined",
				M: Map{
					"xs": []any{1, "two", 3.5},
				},
				Entries: []entry{
					{Name: "xs", Raw: "1, two, 3.5"},
				},
			},
			{
				Name: "values are not interpreted",
				M: Map{
					"url": "http://${host}:'${port}'",
				},
				Entries: []entry{
					{Name: "url", Raw: "http://${host}:'${port}'"},
				},
			},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				entries := collect(t, testCase.M)
				if !assert.Equal(t, testCase.Entries, entries) {
					return
				}
			})
		}
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the given Store fails to set key", func(t *testing.T) {
			setErr := errors.New("failed to set key")
			store := StoreFunc(func(k key.Keyer, v Value) error {
				return setErr
			})

			m := Map{"hello": "world"}
			err := m.Apply(store)
			if !assert.ErrorIs(t, err, setErr) {
				return
			}
		})

		t.Run("if the given Store fails to set a nested key", func(t *testing.T) {
			setErr := errors.New("failed to set key")
			store := StoreFunc(func(k key.Keyer, v Value) error {
				return setErr
			})

			m := Map{
				"hello": map[string]any{
					"bob": "how are you?",
				},
			}
			err := m.Apply(store)
			if !assert.ErrorIs(t, err, setErr) {
				return
			}
		})
	})
}
