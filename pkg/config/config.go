// Package config loads pipeline configuration from a file with
// environment variable overrides.
//
// Configuration files may be TOML, YAML or JSON; the format is inferred
// from the file extension. Every key can also be supplied through the
// environment with the RELAY_ prefix (RELAY_DEBUG=true overrides the
// debug key). Missing files are not an error when UseDefaults is set, so
// a zero-config local run works out of the box.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings is the decoded configuration tree.
type Settings struct {
	// Debug enables technical error pages and failure detail exposure.
	Debug bool `mapstructure:"debug"`
	// PropagateExceptions disables uncaught-failure translation so
	// failures surface to the caller, usually a test harness.
	PropagateExceptions bool `mapstructure:"propagate_exceptions"`
	// Address is the listen address for the HTTP runtime.
	Address string `mapstructure:"address"`
	// Middleware lists middleware identifiers in configuration order.
	Middleware []string `mapstructure:"middleware"`
	// Extra carries free-form keys consumed by individual middleware.
	Extra map[string]any `mapstructure:"extra"`
}

// Option adjusts loader behavior.
type Option func(*loader)

type loader struct {
	envPrefix   string
	useDefaults bool
}

// WithEnvPrefix overrides the RELAY_ environment prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *loader) {
		if prefix != "" {
			l.envPrefix = prefix
		}
	}
}

// WithoutDefaults makes a missing config file a hard error.
func WithoutDefaults() Option {
	return func(l *loader) {
		l.useDefaults = false
	}
}

// Load reads the configuration file at path and applies environment
// overrides. An empty path loads "relay.toml" from the working
// directory.
func Load(path string, opts ...Option) (*Settings, error) {
	l := &loader{envPrefix: "RELAY", useDefaults: true}
	for _, opt := range opts {
		opt(l)
	}

	if path == "" {
		path = "relay.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(l.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) && l.useDefaults {
			// Env-only configuration is fine.
		} else {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if s.Extra == nil {
		s.Extra = map[string]any{}
	}
	return &s, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("propagate_exceptions", false)
	v.SetDefault("address", ":8080")
	v.SetDefault("middleware", []string{})
}

// Duration reads a duration-valued key from Extra. Integers count
// seconds; strings go through time.ParseDuration. Returns fallback when
// the key is absent or malformed.
func (s *Settings) Duration(key string, fallback time.Duration) time.Duration {
	raw, ok := s.Extra[key]
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case time.Duration:
		return v
	}
	return fallback
}

// String reads a string-valued key from Extra.
func (s *Settings) String(key, fallback string) string {
	if v, ok := s.Extra[key].(string); ok {
		return v
	}
	return fallback
}

// Bool reads a bool-valued key from Extra.
func (s *Settings) Bool(key string, fallback bool) bool {
	if v, ok := s.Extra[key].(bool); ok {
		return v
	}
	return fallback
}
