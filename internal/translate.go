package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
)

type errorParamsKey struct{}

// ErrorParams returns the keyword arguments the resolver attached to
// the current error view invocation, if any.
func ErrorParams(r *Request) map[string]string {
	params, _ := r.Get(errorParamsKey{}).(map[string]string)
	return params
}

// translate maps a classified failure to a response. Exit requests pass
// through untranslated; everything else produces exactly one response,
// except uncaught failures in propagate mode.
func (e *Engine) translate(r *Request, resolver Resolver, err error) (*Response, error) {
	switch Classify(err) {
	case FailureExit:
		return nil, err

	case FailureNotFound:
		e.log.Warn("not found",
			slog.String("path", r.Path),
			slog.Int("status", http.StatusNotFound))
		if e.cfg.Debug {
			var nf *NotFoundError
			errors.As(err, &nf)
			return technicalNotFound(r, nf), nil
		}
		return e.errorResponse(r, resolver, http.StatusNotFound, err)

	case FailurePermissionDenied:
		e.log.Warn("forbidden",
			slog.String("path", r.Path),
			slog.Int("status", http.StatusForbidden),
			slog.String("reason", err.Error()))
		return e.errorResponse(r, resolver, http.StatusForbidden, err)

	case FailureMalformedBody:
		e.log.Warn("bad request: unable to parse request body",
			slog.String("path", r.Path),
			slog.Int("status", http.StatusBadRequest))
		return e.errorResponse(r, resolver, http.StatusBadRequest, err)

	case FailureSuspicious:
		var se *SuspiciousError
		errors.As(err, &se)
		e.securityLog.Error(se.Reason,
			slog.String("kind", se.Kind),
			slog.String("path", r.Path),
			slog.Int("status", http.StatusBadRequest))
		if e.cfg.Debug {
			return technicalResponse(r, err, http.StatusBadRequest), nil
		}
		return e.errorResponse(r, resolver, http.StatusBadRequest, err)

	default:
		return e.translateUncaught(r, resolver, err)
	}
}

// translateUncaught handles failures without a dedicated category:
// programming errors, recovered panics, and plain view errors.
func (e *Engine) translateUncaught(r *Request, resolver Resolver, err error) (*Response, error) {
	if e.cfg.PropagateExceptions {
		return nil, err
	}

	attrs := []any{
		slog.String("path", r.Path),
		slog.Int("status", http.StatusInternalServerError),
		slog.String("error", err.Error()),
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		attrs = append(attrs, slog.String("stack", string(pe.Stack)))
	}
	e.log.Error("internal server error", attrs...)

	if e.cfg.Debug {
		return technicalResponse(r, err, http.StatusInternalServerError), nil
	}

	// With no error-handler table there is nothing recoverable left.
	if t, ok := resolver.(ErrorHandlerTable); ok && !t.HasErrorHandlers() {
		return nil, err
	}
	return e.errorResponse(r, resolver, http.StatusInternalServerError, err)
}

// errorResponse renders the project-supplied handler for status. A
// handler failing is itself unrecoverable: the engine logs it and falls
// back to the generic last-resort body rather than re-entering
// translation.
func (e *Engine) errorResponse(r *Request, resolver Resolver, status int, cause error) (*Response, error) {
	view, params := resolver.ResolveErrorHandler(status)
	if len(params) > 0 {
		r.Set(errorParamsKey{}, params)
	}

	resp, err := captureHook(func() (*Response, error) { return view(r) })
	if err != nil {
		if Classify(err) == FailureExit {
			return nil, err
		}
		e.log.Error("error handler failed",
			slog.Int("handler_status", status),
			slog.String("path", r.Path),
			slog.String("error", err.Error()))
		resp = nil
	}
	if resp == nil {
		body := fmt.Sprintf("%d %s", status, http.StatusText(status))
		return NewTextResponse(status, body), nil
	}
	return resp, nil
}

// technicalNotFound is the developer-facing 404 page: the failure
// message plus every pattern the resolver tried. Debug mode only.
func technicalNotFound(r *Request, nf *NotFoundError) *Response {
	var b strings.Builder
	fmt.Fprintf(&b, "Page not found (404)\n\n")
	fmt.Fprintf(&b, "Request method: %s\nRequest path:   %s\n\n", r.Method, r.Path)
	if nf != nil {
		fmt.Fprintf(&b, "Tried these patterns, in this order:\n%s\n", triedList(nf.Tried))
	}
	b.WriteString("\nYou're seeing this page because debug mode is on.\n")
	return NewTextResponse(http.StatusNotFound, b.String())
}

// technicalResponse is the developer-facing failure page: the error
// chain, a stack trace when one was captured, and a request summary.
// Debug mode only; production always delegates to error handlers.
func technicalResponse(r *Request, err error, status int) *Response {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d)\n\n", http.StatusText(status), status)
	fmt.Fprintf(&b, "Request method: %s\nRequest path:   %s\n\n", r.Method, r.Path)
	fmt.Fprintf(&b, "Error: %s\n", err.Error())

	var pe *PanicError
	if errors.As(err, &pe) && len(pe.Stack) > 0 {
		fmt.Fprintf(&b, "\nTraceback:\n%s\n", pe.Stack)
	} else {
		// No stack travelled with the error; capture the translation
		// point so the page still shows where the request died.
		fmt.Fprintf(&b, "\nTraceback:\n%s\n", debug.Stack())
	}
	b.WriteString("\nYou're seeing this page because debug mode is on.\n")
	return NewTextResponse(status, b.String())
}
