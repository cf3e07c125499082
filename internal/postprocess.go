package internal

import (
	"net/http"
	"net/url"
)

// ResponseFix is one post-processing transform. Fixes receive and
// return a response; the sequence is fixed at engine construction and
// runs after the response hooks, never per-request configurable. Every
// fix must be idempotent: running it on an already-fixed response is a
// no-op.
type ResponseFix func(r *Request, resp *Response) *Response

// defaultResponseFixes returns the fixed sequence applied to every
// response, in order.
func defaultResponseFixes() []ResponseFix {
	return []ResponseFix{
		FixLocationHeader,
		ConditionalContentRemoval,
	}
}

// FixLocationHeader rewrites a relative Location header into an
// absolute URI using the request's scheme and host, as redirects on the
// wire are expected to be absolute.
func FixLocationHeader(r *Request, resp *Response) *Response {
	location := resp.Header.Get("Location")
	if location == "" || r.Host == "" {
		return resp
	}

	u, err := url.Parse(location)
	if err != nil || u.IsAbs() {
		return resp
	}

	scheme := "http"
	if r.Secure {
		scheme = "https"
	}
	base := &url.URL{Scheme: scheme, Host: r.Host, Path: r.Path}
	resp.Header.Set("Location", base.ResolveReference(u).String())
	return resp
}

// ConditionalContentRemoval strips the body from responses that must
// not carry one: 1xx, 204 and 304 statuses, and any response to a HEAD
// request.
func ConditionalContentRemoval(r *Request, resp *Response) *Response {
	status := resp.StatusCode
	if (status >= 100 && status < 200) || status == http.StatusNoContent || status == http.StatusNotModified {
		resp.SetContent(nil)
	}
	if r.Method == http.MethodHead {
		resp.SetContent(nil)
	}
	return resp
}
