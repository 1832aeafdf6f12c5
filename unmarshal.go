// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cooked

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Unmarshal resolves the configuration and decodes the cooked values into v,
// which must be a pointer to a struct or map. Struct fields are matched
// using the "config" tag. Variables of the root section are top level keys
// and a section named "a.b" becomes the nested key a, then b.
//
// Cooked values are strings. They are converted to the field type where
// possible, including time.Duration and any encoding.TextUnmarshaler.
func (c *Configuration) Unmarshal(ctx context.Context, v any) (err error) {
	ctx, span := c.tracer.Start(ctx, "Unmarshal")
	defer func() { endSpan(span, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.resolveAll(ctx)
	if err != nil {
		return err
	}

	m, err := c.tree()
	if err != nil {
		return UnmarshalError{Cause: err}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "config",
		Result:           v,
		WeaklyTypedInput: true,
		DecodeHook: composeDecodeHooks(
			textUnmarshalerHookFunc(),
			timeDurationHookFunc(),
		),
	})
	if err != nil {
		return UnmarshalError{Cause: err}
	}

	err = dec.Decode(m)
	if err != nil {
		return UnmarshalError{Cause: err}
	}
	return nil
}

// tree nests the cooked values by section.
func (c *Configuration) tree() (map[string]any, error) {
	root := make(map[string]any)
	for _, name := range c.order {
		m := root
		if name != "" {
			for _, part := range strings.Split(name, ".") {
				next, ok := m[part]
				if !ok {
					sub := make(map[string]any)
					m[part] = sub
					m = sub
					continue
				}
				sub, ok := next.(map[string]any)
				if !ok {
					return nil, ConflictError{Key: part}
				}
				m = sub
			}
		}

		for v := range c.sections[name].All() {
			if _, ok := m[v.Name()].(map[string]any); ok {
				return nil, ConflictError{Key: v.Name()}
			}
			m[v.Name()] = v.Cooked()
		}
	}
	return root, nil
}

var errInvalidDecodeCondition = errors.New("invalid decode condition")

// TypeCoercionError occurs when attempting to unmarshal a config
// value to a struct field whose type does not match the config
// value type, up to, coercion.
type TypeCoercionError struct {
	from  reflect.Value
	to    reflect.Value
	Cause error
}

// Error implements the [builtin.error] interface.
func (e TypeCoercionError) Error() string {
	return fmt.Sprintf("failed to coerce value from %s to %s: %s", e.from.Type(), e.to.Type(), e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e TypeCoercionError) Unwrap() error {
	return e.Cause
}

func composeDecodeHooks(hs ...mapstructure.DecodeHookFunc) mapstructure.DecodeHookFuncValue {
	return func(f, t reflect.Value) (any, error) {
		for _, h := range hs {
			v, err := mapstructure.DecodeHookExec(h, f, t)
			if err == nil {
				return v, nil
			}
			if err == errInvalidDecodeCondition {
				continue
			}
			return nil, TypeCoercionError{
				from:  f,
				to:    t,
				Cause: err,
			}
		}
		return f.Interface(), nil
	}
}

func textUnmarshalerHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return nil, errInvalidDecodeCondition
		}
		result := reflect.New(t).Interface()
		u, ok := result.(encoding.TextUnmarshaler)
		if !ok {
			return nil, errInvalidDecodeCondition
		}
		err := u.UnmarshalText([]byte(data.(string)))
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

func timeDurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != reflect.TypeOf(time.Duration(0)) {
			return nil, errInvalidDecodeCondition
		}

		switch f.Kind() {
		case reflect.String:
			return time.ParseDuration(data.(string))
		case reflect.Int:
			return time.Duration(int64(data.(int))), nil
		default:
			return nil, errInvalidDecodeCondition
		}
	}
}
