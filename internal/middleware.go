package internal

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotUsed signals from a middleware constructor that the middleware
// opts out under the current configuration. The registry skips it; this
// is the only recoverable constructor failure.
var ErrNotUsed = errors.New("middleware: not used")

// The five capability hooks a middleware may implement. A middleware
// declares its capabilities by implementing the interfaces; the registry
// checks them once at load time, never per call. Every hook returning
// (nil, nil) passes control to the next stage.

// RequestHook runs before resolution. A non-nil response short-circuits
// the rest of the request phase: the resolver and view never run.
type RequestHook interface {
	ProcessRequest(r *Request) (*Response, error)
}

// ViewHook runs after resolution, before the view is invoked.
type ViewHook interface {
	ProcessView(r *Request, m *RouteMatch) (*Response, error)
}

// TemplateResponseHook runs on responses with a pending render step,
// before materialization. It must return a response; a nil return is a
// programming error on the middleware.
type TemplateResponseHook interface {
	ProcessTemplateResponse(r *Request, resp *Response) (*Response, error)
}

// ResponseHook runs on every outgoing response, including
// failure-translated ones. It must return a response.
type ResponseHook interface {
	ProcessResponse(r *Request, resp *Response) (*Response, error)
}

// ExceptionHook runs when the view returns an error. A non-nil response
// handles the failure; otherwise the error propagates to translation.
type ExceptionHook interface {
	ProcessException(r *Request, cause error) (*Response, error)
}

// HookSet holds the five ordered hook lists. It is built once at
// startup, published only after every middleware loaded, and read-only
// afterward: concurrent requests share it without synchronization.
type HookSet struct {
	request          []RequestHook
	view             []ViewHook
	templateResponse []TemplateResponseHook
	response         []ResponseHook
	exception        []ExceptionHook
}

// NewHookSet partitions middleware instances, given in configuration
// order, into the five hook lists. Request and view hooks keep the
// configuration order. Template-response, response and exception hooks
// are prepended, so the first-configured middleware's response hook runs
// last: middleware wraps the request the way nested scopes wrap code,
// first in is last out. An instance implementing none of the hook
// interfaces is a configuration error.
func NewHookSet(instances ...any) (*HookSet, error) {
	hs := &HookSet{}
	for _, inst := range instances {
		if err := hs.add(inst); err != nil {
			return nil, err
		}
	}
	return hs, nil
}

func (hs *HookSet) add(inst any) error {
	var used bool
	if h, ok := inst.(RequestHook); ok {
		hs.request = append(hs.request, h)
		used = true
	}
	if h, ok := inst.(ViewHook); ok {
		hs.view = append(hs.view, h)
		used = true
	}
	if h, ok := inst.(TemplateResponseHook); ok {
		hs.templateResponse = append([]TemplateResponseHook{h}, hs.templateResponse...)
		used = true
	}
	if h, ok := inst.(ResponseHook); ok {
		hs.response = append([]ResponseHook{h}, hs.response...)
		used = true
	}
	if h, ok := inst.(ExceptionHook); ok {
		hs.exception = append([]ExceptionHook{h}, hs.exception...)
		used = true
	}
	if !used {
		return fmt.Errorf("middleware %T implements no hook interface", inst)
	}
	return nil
}

// Constructor builds a middleware instance from the pipeline
// configuration. Returning ErrNotUsed (possibly wrapped) skips the
// middleware; any other error is fatal at load time.
type Constructor func(cfg *Config) (any, error)

// Registry is the identifier-to-constructor table middleware is loaded
// from. Identifiers come from Config.Middleware; unknown ones fail fast
// before any request is served.
type Registry struct {
	ctors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register binds an identifier to a constructor. Registering the same
// identifier twice replaces the previous constructor.
func (reg *Registry) Register(name string, ctor Constructor) {
	reg.ctors[name] = ctor
}

// Load constructs every middleware named in cfg.Middleware, in order,
// and partitions the instances into a HookSet. A constructor returning
// ErrNotUsed is skipped and logged at debug level only; anything else
// aborts the load so partially-built state is never observed.
func (reg *Registry) Load(cfg *Config, log *slog.Logger) (*HookSet, error) {
	instances, err := reg.construct(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewHookSet(instances...)
}

// construct builds the middleware instances without partitioning them,
// so the engine can append code-configured middleware before building
// the hook set.
func (reg *Registry) construct(cfg *Config, log *slog.Logger) ([]any, error) {
	instances := make([]any, 0, len(cfg.Middleware))
	for _, name := range cfg.Middleware {
		ctor, ok := reg.ctors[name]
		if !ok {
			return nil, fmt.Errorf("unknown middleware %q", name)
		}
		inst, err := ctor(cfg)
		if err != nil {
			if errors.Is(err, ErrNotUsed) {
				if log != nil {
					log.Debug("middleware not used",
						slog.String("middleware", name),
						slog.String("reason", err.Error()))
				}
				continue
			}
			return nil, fmt.Errorf("middleware %q: %w", name, err)
		}
		instances = append(instances, inst)
	}
	return instances, nil
}
