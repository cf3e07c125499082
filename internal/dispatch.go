package internal

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/dmitrymomot/relay/pkg/logger"
)

// Engine drives one request through the full pipeline: request hooks,
// resolution, view hooks, the view itself inside its isolation
// boundaries, exception hooks, deferred rendering, failure translation,
// response hooks and post-processing. It is immutable after NewEngine
// and safe for concurrent use; all per-request state lives on the
// Request and Response.
type Engine struct {
	cfg         Config
	resolver    Resolver
	hooks       *HookSet
	isolators   []Isolator
	fixes       []ResponseFix
	log         *slog.Logger
	securityLog *slog.Logger
}

// NewEngine builds an engine from the configuration and options. All
// middleware is constructed here; an unknown identifier or a failing
// constructor aborts startup before any request is served.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.resolver == nil {
		return nil, fmt.Errorf("engine: resolver required")
	}

	log := o.log
	if log == nil {
		log = nopLogger()
	}
	securityLog := o.securityLog
	if securityLog == nil {
		securityLog = logger.Security(log)
	}

	instances := make([]any, 0, len(cfg.Middleware)+len(o.instances))
	if o.registry != nil {
		loaded, err := o.registry.construct(&cfg, log)
		if err != nil {
			return nil, err
		}
		instances = append(instances, loaded...)
	} else if len(cfg.Middleware) > 0 {
		return nil, fmt.Errorf("engine: config names middleware but no registry given")
	}
	instances = append(instances, o.instances...)

	hooks, err := NewHookSet(instances...)
	if err != nil {
		return nil, err
	}

	fixes := defaultResponseFixes()
	fixes = append(fixes, o.fixes...)

	return &Engine{
		cfg:         cfg,
		resolver:    o.resolver,
		hooks:       hooks,
		isolators:   o.isolators,
		fixes:       fixes,
		log:         log,
		securityLog: securityLog,
	}, nil
}

// Handle is the engine's single entry point: one request in, exactly
// one response out. The only exceptions are exit requests and propagate
// mode, where the failure is returned to the caller instead. The
// request body is released on every exit path: normally by tying it to
// the response's closer list, otherwise directly.
func (e *Engine) Handle(r *Request) (*Response, error) {
	resp, err := e.dispatch(r)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	// Resource lifetime follows the response from here on: the body
	// stream is released when the caller closes the response.
	resp.AddCloser(r)
	return resp, nil
}

func (e *Engine) dispatch(r *Request) (*Response, error) {
	resolver := e.resolver
	if r.override != nil {
		resolver = r.override
	}

	resp, err := e.getResponse(r, resolver)
	if err != nil {
		resp, err = e.translate(r, resolver, err)
		if err != nil {
			return nil, err
		}
	}

	// Response hooks run unconditionally, over translated failures too.
	resp, err = e.applyResponseHooks(r, resolver, resp)
	if err != nil {
		return nil, err
	}

	for _, fix := range e.fixes {
		resp = fix(r, resp)
	}
	return resp, nil
}

// getResponse runs the request phase through deferred rendering and
// returns either a response or the failure to translate.
func (e *Engine) getResponse(r *Request, resolver Resolver) (*Response, error) {
	var resp *Response
	var match *RouteMatch

	for _, h := range e.hooks.request {
		hr, err := captureHook(func() (*Response, error) { return h.ProcessRequest(r) })
		if err != nil {
			return nil, err
		}
		if hr != nil {
			resp = hr
			break
		}
	}

	if resp == nil {
		m, err := resolver.Resolve(r.Path)
		if err != nil {
			return nil, err
		}
		match = m
		r.setRoute(m)

		for _, h := range e.hooks.view {
			hr, herr := captureHook(func() (*Response, error) { return h.ProcessView(r, m) })
			if herr != nil {
				return nil, herr
			}
			if hr != nil {
				resp = hr
				break
			}
		}
	}

	if resp == nil {
		view := match.View
		for _, iso := range e.isolators {
			if !match.NonAtomic(iso.Alias()) {
				view = iso.Wrap(view)
			}
		}

		vresp, verr := captureHook(func() (*Response, error) { return view(r) })
		if verr != nil {
			if Classify(verr) == FailureExit {
				return nil, verr
			}
			for _, h := range e.hooks.exception {
				hr, herr := captureHook(func() (*Response, error) { return h.ProcessException(r, verr) })
				if herr != nil {
					return nil, herr
				}
				if hr != nil {
					resp = hr
					break
				}
			}
			if resp == nil {
				return nil, verr
			}
		} else {
			resp = vresp
		}

		if resp == nil {
			return nil, &ProgrammingError{
				Subject: match.Pattern,
				Msg:     "view returned no response",
			}
		}
	}

	if resp.Deferred() {
		for _, h := range e.hooks.templateResponse {
			nr, herr := captureHook(func() (*Response, error) { return h.ProcessTemplateResponse(r, resp) })
			if herr != nil {
				return nil, herr
			}
			if nr == nil {
				return nil, &ProgrammingError{
					Subject: fmt.Sprintf("%T", h),
					Msg:     "ProcessTemplateResponse returned no response",
				}
			}
			resp = nr
		}
		if resp.Deferred() {
			if err := resp.Render(r.Context()); err != nil {
				return nil, err
			}
		}
	}

	return resp, nil
}

// applyResponseHooks runs every response hook in order, each
// transforming the previous result. An empty return or a failure inside
// a hook becomes a fresh uncaught translation; the remaining hooks are
// skipped for that request.
func (e *Engine) applyResponseHooks(r *Request, resolver Resolver, resp *Response) (*Response, error) {
	for _, h := range e.hooks.response {
		next, err := captureHook(func() (*Response, error) { return h.ProcessResponse(r, resp) })
		if err == nil && next == nil {
			err = &ProgrammingError{
				Subject: fmt.Sprintf("%T", h),
				Msg:     "ProcessResponse returned no response",
			}
		}
		if err != nil {
			if Classify(err) == FailureExit {
				return nil, err
			}
			return e.translateUncaught(r, resolver, err)
		}
		resp = next
	}
	return resp, nil
}

// captureHook invokes fn, converting a panic into a classifiable
// failure. An exit request travelling as a panic value keeps its
// identity so it can unwind the pipeline unmodified.
func captureHook(fn func() (*Response, error)) (resp *Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			if xe, ok := p.(*ExitError); ok {
				resp, err = nil, xe
				return
			}
			resp, err = nil, &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return fn()
}
