// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"slices"
	"strings"

	"github.com/z5labs/cooked/config/key"

	"github.com/spf13/viper"
)

// Viper represents a Source backed by an already loaded *viper.Viper, which
// lets any format or remote provider viper supports feed a configuration.
//
// Viper flattens keys with "." and lower cases them, so the last
// segment of a key becomes the variable name and the rest its section.
type Viper struct {
	v *viper.Viper
}

// FromViper returns a source which will apply every key known to v.
func FromViper(v *viper.Viper) Viper {
	return Viper{v: v}
}

// Apply implements the Source interface.
func (src Viper) Apply(store Store) error {
	keys := src.v.AllKeys()
	slices.Sort(keys)

	for _, k := range keys {
		parts := strings.Split(k, ".")
		chain := make(key.Chain, len(parts))
		for i, p := range parts {
			chain[i] = key.Name(p)
		}

		err := store.Set(chain, Value{Raw: stringify(src.v.Get(k))})
		if err != nil {
			return err
		}
	}
	return nil
}
