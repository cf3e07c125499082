package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/pkg/config"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("reads a toml file", func(t *testing.T) {
		path := writeConfig(t, "relay.toml", `
debug = true
propagate_exceptions = false
address = ":9090"
middleware = ["requestid", "csrf"]

[extra]
"cache.ttl" = 300
"csrf.cookie_name" = "xsrf"
`)

		s, err := config.Load(path)
		require.NoError(t, err)
		require.True(t, s.Debug)
		require.False(t, s.PropagateExceptions)
		require.Equal(t, ":9090", s.Address)
		require.Equal(t, []string{"requestid", "csrf"}, s.Middleware)
		require.Equal(t, "xsrf", s.String("csrf.cookie_name", ""))
	})

	t.Run("defaults apply when the file is missing", func(t *testing.T) {
		s, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
		require.NoError(t, err)
		require.False(t, s.Debug)
		require.Equal(t, ":8080", s.Address)
		require.Empty(t, s.Middleware)
		require.NotNil(t, s.Extra)
	})

	t.Run("missing file is fatal without defaults", func(t *testing.T) {
		_, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"), config.WithoutDefaults())
		require.Error(t, err)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		path := writeConfig(t, "relay.toml", "debug = false\n")
		t.Setenv("RELAY_DEBUG", "true")

		s, err := config.Load(path)
		require.NoError(t, err)
		require.True(t, s.Debug)
	})

	t.Run("custom env prefix", func(t *testing.T) {
		path := writeConfig(t, "relay.toml", "debug = false\n")
		t.Setenv("MYAPP_DEBUG", "true")

		s, err := config.Load(path, config.WithEnvPrefix("MYAPP"))
		require.NoError(t, err)
		require.True(t, s.Debug)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := writeConfig(t, "relay.toml", "debug = [[[\n")
		_, err := config.Load(path)
		require.Error(t, err)
	})
}

func TestSettingsHelpers(t *testing.T) {
	t.Parallel()

	t.Run("duration accepts seconds and duration strings", func(t *testing.T) {
		t.Parallel()

		s := &config.Settings{Extra: map[string]any{
			"int_seconds": 90,
			"string_dur":  "2m",
			"bad":         "not a duration",
		}}
		require.Equal(t, 90*time.Second, s.Duration("int_seconds", 0))
		require.Equal(t, 2*time.Minute, s.Duration("string_dur", 0))
		require.Equal(t, time.Second, s.Duration("bad", time.Second))
		require.Equal(t, time.Second, s.Duration("absent", time.Second))
	})

	t.Run("string and bool fall back on absence or wrong type", func(t *testing.T) {
		t.Parallel()

		s := &config.Settings{Extra: map[string]any{
			"name": "value",
			"flag": true,
		}}
		require.Equal(t, "value", s.String("name", "def"))
		require.Equal(t, "def", s.String("absent", "def"))
		require.True(t, s.Bool("flag", false))
		require.False(t, s.Bool("name", false))
	})
}
