package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
)

// New creates a JSON-formatted logger with optional context extractors.
func New(extractors ...ContextExtractor) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(NewDecorator(h, extractors...))
}

// NewNope creates a no-op logger that discards all output.
// Use this as a default when logging is not configured.
func NewNope() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Security derives the security-channel logger from a base logger.
// Suspicious-operation events land here so they can be routed and
// alerted on independently of ordinary request logs.
func Security(base *slog.Logger) *slog.Logger {
	if base == nil {
		return NewNope()
	}
	return base.With(slog.String("channel", "security"))
}

// ContextExtractor extracts a slog attribute from context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// Decorator injects context-extracted attributes into each record and
// forwards it to one or more destination handlers. Extraction occurs
// per-log-call to capture fresh request-scoped values (e.g., request
// IDs); the same enriched record reaches every destination, which is
// how a pipeline log lands on stdout and Sentry at once.
type Decorator struct {
	targets    []slog.Handler
	extractors []ContextExtractor
}

// NewDecorator creates a decorated handler with context extractors.
// Nil extractors are filtered out.
func NewDecorator(next slog.Handler, extractors ...ContextExtractor) slog.Handler {
	return NewFanout([]slog.Handler{next}, extractors...)
}

// NewFanout creates a decorated handler writing to every target.
// Nil targets and nil extractors are filtered out.
func NewFanout(targets []slog.Handler, extractors ...ContextExtractor) slog.Handler {
	cleanTargets := make([]slog.Handler, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			cleanTargets = append(cleanTargets, t)
		}
	}
	clean := make([]ContextExtractor, 0, len(extractors))
	for _, ex := range extractors {
		if ex != nil {
			clean = append(clean, ex)
		}
	}
	return &Decorator{targets: cleanTargets, extractors: clean}
}

// Enabled reports whether any destination accepts the level.
func (h *Decorator) Enabled(ctx context.Context, level slog.Level) bool {
	for _, t := range h.targets {
		if t.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle extracts context attributes and forwards the record to every
// destination that accepts its level.
func (h *Decorator) Handle(ctx context.Context, rec slog.Record) error {
	for _, ex := range h.extractors {
		if attr, ok := ex(ctx); ok {
			rec.AddAttrs(attr)
		}
	}

	var errs []error
	for _, t := range h.targets {
		if !t.Enabled(ctx, rec.Level) {
			continue
		}
		if err := t.Handle(ctx, rec.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Decorator) WithAttrs(attrs []slog.Attr) slog.Handler {
	targets := make([]slog.Handler, len(h.targets))
	for i, t := range h.targets {
		targets[i] = t.WithAttrs(attrs)
	}
	return &Decorator{targets: targets, extractors: h.extractors}
}

func (h *Decorator) WithGroup(name string) slog.Handler {
	targets := make([]slog.Handler, len(h.targets))
	for i, t := range h.targets {
		targets[i] = t.WithGroup(name)
	}
	return &Decorator{targets: targets, extractors: h.extractors}
}
