// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package cooked

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/z5labs/cooked/reference"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguration_Unmarshal(t *testing.T) {
	t.Run("will decode nested sections", func(t *testing.T) {
		type Config struct {
			Name string `config:"name"`
			Log  struct {
				Level slog.Level `config:"level"`
			} `config:"log"`
			Http struct {
				Server struct {
					Port    int           `config:"port"`
					Timeout time.Duration `config:"timeout"`
					Debug   bool          `config:"debug"`
				} `config:"server"`
			} `config:"http"`
		}

		c := New()
		c.Set("", "name", "svc", 1)
		c.Set("log", "level", "WARN", 2)
		c.Set("http.server", "port", "${base}1", 3)
		c.Set("http.server", "base", "808", 4)
		c.Set("http.server", "timeout", "1m30s", 5)
		c.Set("http.server", "debug", "true", 6)

		var cfg Config
		err := c.Unmarshal(context.Background(), &cfg)
		require.NoError(t, err)

		require.Equal(t, "svc", cfg.Name)
		require.Equal(t, slog.LevelWarn, cfg.Log.Level)
		require.Equal(t, 8081, cfg.Http.Server.Port)
		require.Equal(t, 90*time.Second, cfg.Http.Server.Timeout)
		require.True(t, cfg.Http.Server.Debug)
	})

	t.Run("will decode into a map", func(t *testing.T) {
		c := New()
		c.Set("a", "x", "1", 1)
		c.Set("a", "y", "${x}2", 2)

		var m map[string]any
		err := c.Unmarshal(context.Background(), &m)
		require.NoError(t, err)
		require.Equal(t, map[string]any{
			"a": map[string]any{"x": "1", "y": "12"},
		}, m)
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if a variable and a section share a name", func(t *testing.T) {
			c := New()
			c.Set("", "http", "yes", 1)
			c.Set("http", "port", "80", 2)

			var m map[string]any
			err := c.Unmarshal(context.Background(), &m)

			var cerr ConflictError
			if !assert.ErrorAs(t, err, &cerr) {
				return
			}
			if !assert.Equal(t, "http", cerr.Key) {
				return
			}
		})

		t.Run("if a value can not be converted", func(t *testing.T) {
			type Config struct {
				Timeout time.Duration `config:"timeout"`
			}

			c := New()
			c.Set("", "timeout", "soon", 1)

			var cfg Config
			err := c.Unmarshal(context.Background(), &cfg)

			var uerr UnmarshalError
			if !assert.ErrorAs(t, err, &uerr) {
				return
			}
		})

		t.Run("if a value does not resolve", func(t *testing.T) {
			c := New()
			c.Set("", "a", "${b}", 1)

			var m map[string]any
			err := c.Unmarshal(context.Background(), &m)
			if !assert.ErrorAs(t, err, &reference.UnresolvedReferenceError{}) {
				return
			}
		})
	})
}
