package logger_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/pkg/logger"
)

// captureHandler records every slog.Record it receives. Handlers
// derived via WithAttrs fold the bound attrs into each record and share
// the original's record list, so assertions always go through the root.
type captureHandler struct {
	mu      sync.Mutex
	level   slog.Level
	bound   []slog.Attr
	records []slog.Record
	root    *captureHandler
}

func (h *captureHandler) target() *captureHandler {
	if h.root != nil {
		return h.root
	}
	return h
}

func (h *captureHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *captureHandler) Handle(_ context.Context, rec slog.Record) error {
	rec.AddAttrs(h.bound...)
	root := h.target()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.records = append(root.records, rec)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := append(append([]slog.Attr(nil), h.bound...), attrs...)
	return &captureHandler{level: h.level, bound: bound, root: h.target()}
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) attrs(t *testing.T, i int) map[string]slog.Value {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	require.Less(t, i, len(h.records))
	out := make(map[string]slog.Value)
	h.records[i].Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value
		return true
	})
	return out
}

type ctxKey struct{}

func TestDecorator(t *testing.T) {
	t.Parallel()

	t.Run("injects context attributes per call", func(t *testing.T) {
		t.Parallel()

		capture := &captureHandler{}
		extractor := func(ctx context.Context) (slog.Attr, bool) {
			v, ok := ctx.Value(ctxKey{}).(string)
			if !ok {
				return slog.Attr{}, false
			}
			return slog.String("request_id", v), true
		}
		log := slog.New(logger.NewDecorator(capture, extractor))

		ctx := context.WithValue(context.Background(), ctxKey{}, "req-123")
		log.InfoContext(ctx, "with value")
		log.InfoContext(context.Background(), "without value")

		first := capture.attrs(t, 0)
		require.Equal(t, "req-123", first["request_id"].String())

		second := capture.attrs(t, 1)
		require.NotContains(t, second, "request_id")
	})

	t.Run("nil extractors are ignored", func(t *testing.T) {
		t.Parallel()

		capture := &captureHandler{}
		log := slog.New(logger.NewDecorator(capture, nil, nil))

		log.Info("message")
		require.Len(t, capture.records, 1)
	})

	t.Run("extractors survive WithAttrs and WithGroup", func(t *testing.T) {
		t.Parallel()

		capture := &captureHandler{}
		extractor := func(ctx context.Context) (slog.Attr, bool) {
			return slog.String("always", "present"), true
		}
		log := slog.New(logger.NewDecorator(capture, extractor)).
			With(slog.String("component", "dispatch"))

		log.Info("message")

		attrs := capture.attrs(t, 0)
		require.Equal(t, "present", attrs["always"].String())
		require.Equal(t, "dispatch", attrs["component"].String())
	})
}

func TestFanout(t *testing.T) {
	t.Parallel()

	t.Run("every enabled destination receives the record", func(t *testing.T) {
		t.Parallel()

		all := &captureHandler{level: slog.LevelInfo}
		errOnly := &captureHandler{level: slog.LevelError}
		log := slog.New(logger.NewFanout([]slog.Handler{all, errOnly}))

		log.Info("routine")
		log.Error("broken")

		require.Len(t, all.records, 2)
		require.Len(t, errOnly.records, 1)
	})

	t.Run("enabled when any destination is enabled", func(t *testing.T) {
		t.Parallel()

		h := logger.NewFanout([]slog.Handler{
			&captureHandler{level: slog.LevelError},
			&captureHandler{level: slog.LevelDebug},
		})
		require.True(t, h.Enabled(context.Background(), slog.LevelDebug))

		strict := logger.NewFanout([]slog.Handler{&captureHandler{level: slog.LevelError}})
		require.False(t, strict.Enabled(context.Background(), slog.LevelInfo))
	})

	t.Run("extracted attributes reach every destination", func(t *testing.T) {
		t.Parallel()

		first := &captureHandler{}
		second := &captureHandler{}
		extractor := func(ctx context.Context) (slog.Attr, bool) {
			v, ok := ctx.Value(ctxKey{}).(string)
			if !ok {
				return slog.Attr{}, false
			}
			return slog.String("request_id", v), true
		}
		log := slog.New(logger.NewFanout([]slog.Handler{first, second}, extractor))

		ctx := context.WithValue(context.Background(), ctxKey{}, "req-9")
		log.InfoContext(ctx, "fanned out")

		require.Equal(t, "req-9", first.attrs(t, 0)["request_id"].String())
		require.Equal(t, "req-9", second.attrs(t, 0)["request_id"].String())
	})

	t.Run("nil targets are ignored", func(t *testing.T) {
		t.Parallel()

		capture := &captureHandler{}
		log := slog.New(logger.NewFanout([]slog.Handler{nil, capture}))
		log.Info("message")
		require.Len(t, capture.records, 1)
	})
}

func TestSecurity(t *testing.T) {
	t.Parallel()

	t.Run("tags records with the security channel", func(t *testing.T) {
		t.Parallel()

		capture := &captureHandler{}
		sec := logger.Security(slog.New(capture))
		sec.Warn("disallowed host")

		attrs := capture.attrs(t, 0)
		require.Equal(t, "security", attrs["channel"].String())
	})

	t.Run("nil base falls back to a no-op logger", func(t *testing.T) {
		t.Parallel()

		sec := logger.Security(nil)
		require.NotNil(t, sec)
		sec.Warn("goes nowhere")
	})
}

func TestNewNope(t *testing.T) {
	t.Parallel()

	log := logger.NewNope()
	require.NotNil(t, log)
	log.Info("discarded")
	log.Error("also discarded")
}

func TestNewWithSentry(t *testing.T) {
	t.Parallel()

	t.Run("empty DSN falls back to stdout only", func(t *testing.T) {
		t.Parallel()

		log := logger.NewWithSentry(logger.SentryConfig{})
		require.NotNil(t, log)
		require.True(t, log.Enabled(context.Background(), slog.LevelInfo))
		require.False(t, log.Enabled(context.Background(), slog.LevelDebug))
	})
}
