// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config provides the sources raw configuration variables are read from.
//
// A Source walks a document and hands every variable it finds to a Store,
// addressed by a key.Keyer and carrying the variable's raw text together
// with the line it was defined on, when the format makes that available.
// Values are never interpreted here: references and quotes are left for
// the resolver.
//
// Sources are provided for nested maps, YAML, JSON, INI, Viper and the
// process environment. Documents may be read from any io.Reader; FileReader
// and HTTPReader open theirs lazily on first read.
package config
