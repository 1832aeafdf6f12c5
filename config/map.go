// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/z5labs/cooked/config/key"
)

// Map is an ordinary map[string]any but implements the Source interface.
// Nested maps become sections. Since map iteration order is random, keys
// are applied in sorted order.
type Map map[string]any

// Apply implements the Source interface. It recursively walks the underlying
// map to find key value pairs to set on the given store.
func (m Map) Apply(store Store) error {
	return walkMap(m, store, nil)
}

func walkMap(m map[string]any, store Store, chain key.Chain) error {
	for _, k := range slices.Sorted(maps.Keys(m)) {
		link := append(slices.Clip(chain), key.Name(k))

		switch x := m[k].(type) {
		case map[string]any:
			err := walkMap(x, store, link)
			if err != nil {
				return err
			}
		case Map:
			err := walkMap(x, store, link)
			if err != nil {
				return err
			}
		default:
			err := store.Set(link, Value{Raw: stringify(x)})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// stringify renders a scalar, or a list of scalars, as raw configuration text.
// Lists are joined with ", ".
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []any:
		ss := make([]string, len(x))
		for i := range x {
			ss[i] = stringify(x[i])
		}
		return strings.Join(ss, ", ")
	case []string:
		return strings.Join(x, ", ")
	default:
		return fmt.Sprint(x)
	}
}
