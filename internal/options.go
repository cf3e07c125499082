package internal

import (
	"log/slog"

	"github.com/dmitrymomot/relay/pkg/logger"
)

// engineOptions collects constructor-time configuration for NewEngine.
type engineOptions struct {
	resolver    Resolver
	registry    *Registry
	instances   []any
	isolators   []Isolator
	fixes       []ResponseFix
	log         *slog.Logger
	securityLog *slog.Logger
}

// Option configures the dispatch engine.
type Option func(*engineOptions)

// WithResolver sets the default routing table. Required.
func WithResolver(res Resolver) Option {
	return func(o *engineOptions) {
		o.resolver = res
	}
}

// WithRegistry sets the registry used to resolve the middleware
// identifiers named in Config.Middleware.
func WithRegistry(reg *Registry) Option {
	return func(o *engineOptions) {
		o.registry = reg
	}
}

// WithMiddleware appends middleware instances directly, in order, after
// any registry-loaded middleware. Each instance must implement at least
// one of the five hook interfaces.
func WithMiddleware(instances ...any) Option {
	return func(o *engineOptions) {
		o.instances = append(o.instances, instances...)
	}
}

// WithIsolation registers resource-transaction boundaries. Every view
// runs inside each boundary it did not opt out of via NonAtomic.
func WithIsolation(isolators ...Isolator) Option {
	return func(o *engineOptions) {
		o.isolators = append(o.isolators, isolators...)
	}
}

// WithResponseFix appends a post-processing transform after the default
// fix sequence. The sequence is fixed once the engine is built.
func WithResponseFix(fix ResponseFix) Option {
	return func(o *engineOptions) {
		if fix != nil {
			o.fixes = append(o.fixes, fix)
		}
	}
}

// WithLogger sets the engine's logger. Defaults to a noop logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSecurityLogger sets the logger suspicious-operation events go to.
// Defaults to the engine logger tagged with a security channel
// attribute.
func WithSecurityLogger(l *slog.Logger) Option {
	return func(o *engineOptions) {
		if l != nil {
			o.securityLog = l
		}
	}
}

func nopLogger() *slog.Logger {
	return logger.NewNope()
}
