package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
)

// ErrAlreadyRendered is returned by Response.OnRender once the response
// content has been materialized.
var ErrAlreadyRendered = errors.New("response: already rendered")

// Renderer produces response content on demand. A response constructed
// with a Renderer defers materialization until Render is called, which
// lets template-response hooks inspect or replace it first. The
// interface is satisfied structurally by templ components among others.
type Renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, w io.Writer) error

func (f RendererFunc) Render(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

// Response is the pipeline's response object: status, headers, cookie
// directives, and either materialized content or a deferred renderer.
// It is mutated by hooks and post-processing while the request's worker
// owns it, and owned by the caller once Handle returns it.
type Response struct {
	StatusCode int

	// Header holds outbound headers (case-insensitive keys).
	Header http.Header

	content    []byte
	renderer   Renderer
	rendered   bool
	postRender []func(*Response) error

	cookies []*http.Cookie
	closers []io.Closer
}

// NewResponse creates a materialized response.
func NewResponse(status int, content []byte) *Response {
	return &Response{
		StatusCode: status,
		Header:     make(http.Header),
		content:    content,
		rendered:   true,
	}
}

// NewTextResponse creates a materialized text/plain response.
func NewTextResponse(status int, body string) *Response {
	resp := NewResponse(status, []byte(body))
	resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return resp
}

// NewDeferred creates a response whose content is produced by the
// renderer when Render is called.
func NewDeferred(status int, r Renderer) *Response {
	return &Response{
		StatusCode: status,
		Header:     make(http.Header),
		renderer:   r,
	}
}

// Deferred reports whether the response still has a pending render step.
func (r *Response) Deferred() bool {
	return r.renderer != nil && !r.rendered
}

// Rendered reports whether the content has been materialized.
func (r *Response) Rendered() bool {
	return r.rendered
}

// OnRender registers a callback to run after the content is
// materialized. Once the response is finalized no further callbacks may
// be appended; ErrAlreadyRendered is returned instead.
func (r *Response) OnRender(fn func(*Response) error) error {
	if r.rendered {
		return ErrAlreadyRendered
	}
	r.postRender = append(r.postRender, fn)
	return nil
}

// Render materializes the content via the renderer and runs post-render
// callbacks in registration order. Rendering twice is an error.
func (r *Response) Render(ctx context.Context) error {
	if r.rendered {
		return ErrAlreadyRendered
	}
	if r.renderer != nil {
		var buf bytes.Buffer
		if err := r.renderer.Render(ctx, &buf); err != nil {
			return err
		}
		r.content = buf.Bytes()
	}
	r.rendered = true
	callbacks := r.postRender
	r.postRender = nil
	for _, fn := range callbacks {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Content returns the materialized content. It is empty until Render has
// been called on a deferred response.
func (r *Response) Content() []byte {
	return r.content
}

// SetContent replaces the materialized content.
func (r *Response) SetContent(content []byte) {
	r.content = content
}

// SetCookie appends an outbound cookie directive.
func (r *Response) SetCookie(c *http.Cookie) {
	r.cookies = append(r.cookies, c)
}

// Cookies returns the outbound cookie directives.
func (r *Response) Cookies() []*http.Cookie {
	return r.cookies
}

// AddCloser ties a resource's lifetime to the response. Closers run when
// Close is called, after the response has been fully sent.
func (r *Response) AddCloser(c io.Closer) {
	if c != nil {
		r.closers = append(r.closers, c)
	}
}

// Close releases every attached resource. Errors are joined; each closer
// runs even if an earlier one fails.
func (r *Response) Close() error {
	closers := r.closers
	r.closers = nil
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
