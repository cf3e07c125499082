package internal_test

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/dmitrymomot/relay/internal"
)

// textView returns a view rendering a fixed body.
func textView(status int, body string) internal.ViewFunc {
	return func(r *internal.Request) (*internal.Response, error) {
		return internal.NewTextResponse(status, body), nil
	}
}

// failingView returns a view that always fails with err.
func failingView(err error) internal.ViewFunc {
	return func(r *internal.Request) (*internal.Response, error) {
		return nil, err
	}
}

// tracer appends pipeline events to a shared slice so tests can assert
// traversal order.
type tracer struct {
	mu     sync.Mutex
	events []string
}

func (tr *tracer) add(event string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.events = append(tr.events, event)
}

func (tr *tracer) list() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.events...)
}

// tracingMiddleware records every hook invocation under its name. Hook
// return values are passthrough unless overridden per field.
type tracingMiddleware struct {
	name string
	tr   *tracer

	onRequest   func(r *internal.Request) (*internal.Response, error)
	onView      func(r *internal.Request, m *internal.RouteMatch) (*internal.Response, error)
	onTemplate  func(r *internal.Request, resp *internal.Response) (*internal.Response, error)
	onResponse  func(r *internal.Request, resp *internal.Response) (*internal.Response, error)
	onException func(r *internal.Request, cause error) (*internal.Response, error)
}

func (m *tracingMiddleware) ProcessRequest(r *internal.Request) (*internal.Response, error) {
	m.tr.add(m.name + ".request")
	if m.onRequest != nil {
		return m.onRequest(r)
	}
	return nil, nil
}

func (m *tracingMiddleware) ProcessView(r *internal.Request, match *internal.RouteMatch) (*internal.Response, error) {
	m.tr.add(m.name + ".view")
	if m.onView != nil {
		return m.onView(r, match)
	}
	return nil, nil
}

func (m *tracingMiddleware) ProcessTemplateResponse(r *internal.Request, resp *internal.Response) (*internal.Response, error) {
	m.tr.add(m.name + ".template_response")
	if m.onTemplate != nil {
		return m.onTemplate(r, resp)
	}
	return resp, nil
}

func (m *tracingMiddleware) ProcessResponse(r *internal.Request, resp *internal.Response) (*internal.Response, error) {
	m.tr.add(m.name + ".response")
	if m.onResponse != nil {
		return m.onResponse(r, resp)
	}
	return resp, nil
}

func (m *tracingMiddleware) ProcessException(r *internal.Request, cause error) (*internal.Response, error) {
	m.tr.add(m.name + ".exception")
	if m.onException != nil {
		return m.onException(r, cause)
	}
	return nil, nil
}

// countingResolver wraps a Resolver and counts Resolve calls.
type countingResolver struct {
	inner    internal.Resolver
	resolves int
}

func (c *countingResolver) Resolve(path string) (*internal.RouteMatch, error) {
	c.resolves++
	return c.inner.Resolve(path)
}

func (c *countingResolver) ResolveErrorHandler(status int) (internal.ViewFunc, map[string]string) {
	return c.inner.ResolveErrorHandler(status)
}

// bareResolver resolves a single view and reports no error-handler
// table, like a project without error views configured.
type bareResolver struct {
	view internal.ViewFunc
}

func (b *bareResolver) Resolve(path string) (*internal.RouteMatch, error) {
	return &internal.RouteMatch{View: b.view, Pattern: path}, nil
}

func (b *bareResolver) ResolveErrorHandler(status int) (internal.ViewFunc, map[string]string) {
	return textView(status, http.StatusText(status)), nil
}

func (b *bareResolver) HasErrorHandlers() bool {
	return false
}

// paramResolver attaches keyword arguments to its error handlers.
type paramResolver struct {
	inner  internal.Resolver
	params map[string]string
}

func (p *paramResolver) Resolve(path string) (*internal.RouteMatch, error) {
	return p.inner.Resolve(path)
}

func (p *paramResolver) ResolveErrorHandler(status int) (internal.ViewFunc, map[string]string) {
	view, _ := p.inner.ResolveErrorHandler(status)
	return view, p.params
}

// newTestLogger builds a logger over a capturing handler.
func newTestLogger(h slog.Handler) *slog.Logger {
	return slog.New(h)
}

// recordHandler captures slog records for assertions.
type recordHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *recordHandler) Handle(_ context.Context, rec slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return nil
}

func (h *recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.records))
	for _, rec := range h.records {
		out = append(out, rec.Message)
	}
	return out
}
