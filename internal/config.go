package internal

import "time"

// Config is the pipeline configuration, constructed once at process
// start and passed by reference into NewEngine. There is no lazy global
// settings object: everything the engine and its middleware need is
// bound here before the first request.
type Config struct {
	// Debug trades information disclosure for diagnostics: technical
	// error pages with failure details instead of project error views.
	Debug bool

	// PropagateExceptions makes Handle return uncaught failures to the
	// caller instead of translating them. Diagnostic tooling mode.
	PropagateExceptions bool

	// Middleware is the ordered list of middleware identifiers resolved
	// against a Registry at startup.
	Middleware []string

	// Settings carries middleware-specific values keyed by name,
	// e.g. "csrf.cookie_name" or "cache.ttl".
	Settings map[string]any
}

// Value returns the raw setting for key, or nil.
func (c *Config) Value(key string) any {
	if c.Settings == nil {
		return nil
	}
	return c.Settings[key]
}

// String returns the setting as a string, or def.
func (c *Config) String(key, def string) string {
	if v, ok := c.Value(key).(string); ok {
		return v
	}
	return def
}

// Bool returns the setting as a bool, or def.
func (c *Config) Bool(key string, def bool) bool {
	if v, ok := c.Value(key).(bool); ok {
		return v
	}
	return def
}

// Int returns the setting as an int, or def.
func (c *Config) Int(key string, def int) int {
	switch v := c.Value(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// Duration returns the setting as a duration. Integer values are
// seconds; strings are parsed with time.ParseDuration.
func (c *Config) Duration(key string, def time.Duration) time.Duration {
	switch v := c.Value(key).(type) {
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v) * time.Second
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
