package internal

import (
	"context"
	"errors"
	"io"
	"net/http"
)

// ErrBodyConsumed is returned by Request.Body after the stream has been
// handed out once.
var ErrBodyConsumed = errors.New("request: body already consumed")

// Request represents one inbound call travelling through the pipeline.
// It is created at ingress, passed by reference through every stage, and
// owned by a single worker; none of its methods are safe for concurrent
// use. The body stream is single-consumption and is released when the
// Response produced for this request is closed.
type Request struct {
	Method string
	Path   string
	Host   string
	Secure bool

	// Header holds the inbound headers (case-insensitive keys).
	Header http.Header

	// Cookies holds the inbound cookie values by name.
	Cookies map[string]string

	ctx          context.Context
	body         io.ReadCloser
	bodyConsumed bool

	route    *RouteMatch
	override Resolver
	attrs    map[any]any
}

// NewRequest creates a request with an empty header map and a background
// context. The transport adapter populates the remaining fields.
func NewRequest(method, path string) *Request {
	return &Request{
		Method:  method,
		Path:    path,
		Header:  make(http.Header),
		Cookies: make(map[string]string),
		ctx:     context.Background(),
	}
}

// Context returns the request's context. It is never nil.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// SetContext replaces the request's context in place. Middleware uses
// this to bind request-scoped values (request IDs, trace data) that
// context extractors pick up during logging.
func (r *Request) SetContext(ctx context.Context) {
	if ctx != nil {
		r.ctx = ctx
	}
}

// WithContext returns a shallow copy of the request with its context
// replaced. The attribute bag and body stream are shared with the
// original, so annotations made through the copy remain visible.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		return r
	}
	nr := *r
	nr.ctx = ctx
	return &nr
}

// SetBody attaches the body stream. The stream is owned by the request
// until the response takes it over during post-processing.
func (r *Request) SetBody(body io.ReadCloser) {
	r.body = body
	r.bodyConsumed = false
}

// Body hands out the body stream exactly once. Subsequent calls return
// ErrBodyConsumed so that two consumers can never race on one stream.
func (r *Request) Body() (io.ReadCloser, error) {
	if r.body == nil {
		return nil, ErrBodyConsumed
	}
	if r.bodyConsumed {
		return nil, ErrBodyConsumed
	}
	r.bodyConsumed = true
	return r.body, nil
}

// Close releases the body stream. It is safe to call on a request that
// never had a body, and safe to call more than once.
func (r *Request) Close() error {
	if r.body == nil {
		return nil
	}
	body := r.body
	r.body = nil
	return body.Close()
}

// Set stores a per-request annotation. Keys follow the context.Context
// convention: packages use unexported key types to avoid collisions.
func (r *Request) Set(key, value any) {
	if r.attrs == nil {
		r.attrs = make(map[any]any)
	}
	r.attrs[key] = value
}

// Get retrieves a per-request annotation, or nil if absent.
func (r *Request) Get(key any) any {
	if r.attrs == nil {
		return nil
	}
	return r.attrs[key]
}

// Route returns the route match attached during resolution, or nil if
// resolution has not happened (or a request hook short-circuited).
func (r *Request) Route() *RouteMatch {
	return r.route
}

func (r *Request) setRoute(m *RouteMatch) {
	r.route = m
}

// OverrideResolver replaces the routing table for this request only.
// It must be called before resolution, i.e. from a request hook.
func (r *Request) OverrideResolver(res Resolver) {
	r.override = res
}

// Cookie returns the named cookie value.
func (r *Request) Cookie(name string) (string, bool) {
	v, ok := r.Cookies[name]
	return v, ok
}
