package internal

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Resolver maps a request path to a route match. Resolution is pure and
// side-effect-free given a fixed table, so a resolver may be shared by
// concurrent requests without synchronization.
type Resolver interface {
	// Resolve returns the match for path, or a *NotFoundError when no
	// pattern matches.
	Resolve(path string) (*RouteMatch, error)

	// ResolveErrorHandler returns the view that renders the given error
	// status, plus its keyword arguments. It always succeeds: resolvers
	// fall back to a generic view when no handler is registered.
	ResolveErrorHandler(status int) (ViewFunc, map[string]string)
}

// ErrorHandlerTable is an optional Resolver extension. A resolver
// reporting false here has no error-handler table at all, which makes
// uncaught failures propagate instead of rendering a 500 view.
type ErrorHandlerTable interface {
	HasErrorHandlers() bool
}

// RouteOption configures a single route registration.
type RouteOption func(*routeEntry)

// NonAtomic opts the view out of the named isolation boundaries. The
// view runs outside those resource transactions.
func NonAtomic(aliases ...string) RouteOption {
	return func(e *routeEntry) {
		for _, a := range aliases {
			e.nonAtomic[a] = struct{}{}
		}
	}
}

type routeEntry struct {
	view      ViewFunc
	nonAtomic map[string]struct{}
}

// RouteTable is the default Resolver. It matches chi-style patterns
// ("/users/{id}", "/files/*") against request paths; named placeholders
// become keyword arguments and the wildcard tail becomes positional
// arguments. Registration must finish before the first request is
// served: the table is read-only afterward.
type RouteTable struct {
	mux      *chi.Mux
	entries  map[string]*routeEntry
	errViews map[int]ViewFunc
	patterns []string
}

// NewRouteTable creates an empty routing table.
func NewRouteTable() *RouteTable {
	return &RouteTable{
		mux:      chi.NewMux(),
		entries:  make(map[string]*routeEntry),
		errViews: make(map[int]ViewFunc),
	}
}

// Handle registers a view under a pattern. Invalid or duplicate patterns
// panic, so misconfiguration surfaces at startup, not per request.
func (t *RouteTable) Handle(pattern string, view ViewFunc, opts ...RouteOption) {
	if view == nil {
		panic(fmt.Sprintf("route table: nil view for pattern %q", pattern))
	}
	entry := &routeEntry{
		view:      view,
		nonAtomic: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(entry)
	}
	// The mux is used purely as the pattern-matching trie; the view is
	// looked up in the side table by the matched pattern.
	t.mux.Handle(pattern, http.NotFoundHandler())
	t.entries[pattern] = entry
	t.patterns = append(t.patterns, pattern)
}

// ErrorHandler registers a view to render the given error status
// (404, 403, 400, 500). Error views must return materialized responses.
func (t *RouteTable) ErrorHandler(status int, view ViewFunc) {
	if view == nil {
		panic(fmt.Sprintf("route table: nil error handler for status %d", status))
	}
	t.errViews[status] = view
}

// Resolve matches path against the registered patterns.
func (t *RouteTable) Resolve(path string) (*RouteMatch, error) {
	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, http.MethodGet, path) {
		return nil, &NotFoundError{Path: path, Tried: append([]string(nil), t.patterns...)}
	}

	pattern := rctx.RoutePattern()
	entry, ok := t.entries[pattern]
	if !ok {
		return nil, &NotFoundError{Path: path, Tried: append([]string(nil), t.patterns...)}
	}

	match := &RouteMatch{
		View:      entry.view,
		Pattern:   pattern,
		Params:    make(map[string]string, len(rctx.URLParams.Keys)),
		nonAtomic: entry.nonAtomic,
	}
	for i, key := range rctx.URLParams.Keys {
		value := rctx.URLParams.Values[i]
		if key == "*" {
			for _, seg := range strings.Split(value, "/") {
				if seg != "" {
					match.Args = append(match.Args, seg)
				}
			}
			continue
		}
		match.Params[key] = value
	}
	return match, nil
}

// ResolveErrorHandler returns the registered error view for status, or a
// generic plain-text view so every failure category stays renderable.
func (t *RouteTable) ResolveErrorHandler(status int) (ViewFunc, map[string]string) {
	if view, ok := t.errViews[status]; ok {
		return view, nil
	}
	return genericErrorView(status), nil
}

// HasErrorHandlers reports true: a RouteTable always has at least the
// generic fallback views.
func (t *RouteTable) HasErrorHandlers() bool {
	return true
}

// genericErrorView renders the bare status text, the last-resort body
// when a project supplies no handler of its own.
func genericErrorView(status int) ViewFunc {
	return func(r *Request) (*Response, error) {
		body := fmt.Sprintf("%d %s", status, http.StatusText(status))
		return NewTextResponse(status, body), nil
	}
}
