package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/relay/internal"
)

// ConditionalGetMiddleware stamps Date and Content-Length on outgoing
// responses and converts them to 304 Not Modified when the client's
// ETag or modification-time precondition holds.
type ConditionalGetMiddleware struct{}

// ConditionalGet creates the conditional GET middleware.
func ConditionalGet() *ConditionalGetMiddleware {
	return &ConditionalGetMiddleware{}
}

// ConditionalGetConstructor adapts ConditionalGet for registry loading
// under the "conditional_get" identifier.
func ConditionalGetConstructor(_ *internal.Config) (any, error) {
	return ConditionalGet(), nil
}

func (m *ConditionalGetMiddleware) ProcessResponse(r *internal.Request, resp *internal.Response) (*internal.Response, error) {
	if resp.Header.Get("Date") == "" {
		resp.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}
	if resp.Header.Get("Content-Length") == "" {
		resp.Header.Set("Content-Length", strconv.Itoa(len(resp.Content())))
	}

	if etag := resp.Header.Get("ETag"); etag != "" {
		if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
			return notModified(resp), nil
		}
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		lastModified, err := http.ParseTime(lm)
		if err != nil {
			return resp, nil
		}
		if ims := r.Header.Get("If-Modified-Since"); ims != "" {
			modifiedSince, err := http.ParseTime(ims)
			if err == nil && !lastModified.After(modifiedSince) {
				return notModified(resp), nil
			}
		}
	}

	return resp, nil
}

// notModified replaces the response with an empty 304, carrying over the
// validator headers the client needs to keep its cache entry fresh.
func notModified(resp *internal.Response) *internal.Response {
	nm := internal.NewResponse(http.StatusNotModified, nil)
	for _, h := range []string{"Date", "ETag", "Last-Modified", "Cache-Control", "Expires", "Vary"} {
		if v := resp.Header.Get(h); v != "" {
			nm.Header.Set(h, v)
		}
	}
	return nm
}
