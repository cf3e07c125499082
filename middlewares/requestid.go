package middlewares

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/relay/internal"
	"github.com/dmitrymomot/relay/pkg/logger"
)

// requestIDKey is the context key for storing the request ID.
type requestIDKey struct{}

// DefaultRequestIDHeaders are the headers checked (in order) for an
// existing request ID.
var DefaultRequestIDHeaders = []string{"X-Request-ID", "X-Request-Id", "X-Correlation-ID"}

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	Generator      func() string // ID generator function
	ResponseHeader string        // Response header name
	Headers        []string      // Headers to check for existing ID (in order)
}

// RequestIDOption configures RequestIDConfig.
type RequestIDOption func(*RequestIDConfig)

// WithRequestIDHeaders sets the headers to check for existing request IDs.
func WithRequestIDHeaders(headers ...string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.Headers = headers
	}
}

// WithRequestIDGenerator sets a custom ID generator function.
func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.Generator = gen
	}
}

// WithRequestIDResponseHeader sets the response header name.
func WithRequestIDResponseHeader(header string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.ResponseHeader = header
	}
}

// RequestIDMiddleware assigns a unique ID to each request. The ID is
// taken from the first matching inbound header to preserve upstream
// tracing IDs, or generated. It is bound to the request context for log
// extraction and echoed on the outgoing response.
type RequestIDMiddleware struct {
	cfg RequestIDConfig
}

// RequestID creates the request ID middleware.
func RequestID(opts ...RequestIDOption) *RequestIDMiddleware {
	cfg := RequestIDConfig{
		Headers:        DefaultRequestIDHeaders,
		Generator:      uuid.NewString,
		ResponseHeader: "X-Request-ID",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RequestIDMiddleware{cfg: cfg}
}

// RequestIDConstructor adapts RequestID for registry loading under the
// "requestid" identifier.
func RequestIDConstructor(_ *internal.Config) (any, error) {
	return RequestID(), nil
}

func (m *RequestIDMiddleware) ProcessRequest(r *internal.Request) (*internal.Response, error) {
	var reqID string
	for _, header := range m.cfg.Headers {
		if v := r.Header.Get(header); v != "" {
			reqID = v
			break
		}
	}
	if reqID == "" {
		reqID = m.cfg.Generator()
	}

	r.Set(requestIDKey{}, reqID)
	r.SetContext(context.WithValue(r.Context(), requestIDKey{}, reqID))
	return nil, nil
}

func (m *RequestIDMiddleware) ProcessResponse(r *internal.Request, resp *internal.Response) (*internal.Response, error) {
	if id := GetRequestID(r); id != "" && resp.Header.Get(m.cfg.ResponseHeader) == "" {
		resp.Header.Set(m.cfg.ResponseHeader, id)
	}
	return resp, nil
}

// GetRequestID extracts the request ID from the request.
// Returns an empty string if no request ID is set.
func GetRequestID(r *internal.Request) string {
	if v, ok := r.Get(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// RequestIDExtractor returns a ContextExtractor for use with logger.New.
// Automatically adds "request_id" to all log entries.
func RequestIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v, ok := ctx.Value(requestIDKey{}).(string); ok && v != "" {
			return slog.String("request_id", v), true
		}
		return slog.Attr{}, false
	}
}
