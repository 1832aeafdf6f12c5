// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package cooked resolves configuration values which reference one another.
//
// A Configuration holds variables grouped into sections. Every variable has
// a raw value, exactly as it was read, and a cooked value, which is the raw
// value after references have been substituted and metacharacter sequences
// expanded.
//
// # References
//
// A reference names another variable:
//
//	${name}          a variable in the same section
//	${section:name}  a variable in another section
//	${env:HOME}      an environment variable
//	${program:now}   the current time, also cwd, pid and hostname
//
// Substitution repeats until a value stops changing, so references may
// produce further references. A chain of references which never settles,
// such as two variables referring to each other, is reported as a
// subst.RunawaySubstitutionError.
//
// # Literals
//
// Text enclosed in single quotes is taken literally: no references are
// substituted and no metacharacters are expanded inside it. The quotes
// themselves are removed from the cooked value. A quote preceded by the
// escape introducer, a backslash by default, does not start or end a
// literal, and an escaped dollar sign does not start a reference.
//
// # Metacharacters
//
// Outside of literals the usual escape sequences are expanded once a value
// has settled: \n, \t, \r, \f, \b, \a, \v, \\, \', \", \$ and \uXXXX.
//
// # Sources
//
// Variables are read from config.Source implementations for YAML, JSON, INI,
// Viper, the environment or plain maps. See [Configuration.Load].
package cooked
