package relay

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/relay/internal"
	"github.com/dmitrymomot/relay/pkg/config"
	"github.com/dmitrymomot/relay/pkg/db"
	"github.com/dmitrymomot/relay/pkg/logger"
)

// Type aliases - public API
type (
	// Engine drives one request through the full pipeline.
	// It is immutable after New and safe for concurrent use.
	Engine = internal.Engine

	// Request is one inbound call travelling through the pipeline.
	Request = internal.Request

	// Response is the pipeline's response object.
	Response = internal.Response

	// Renderer produces response content on demand for deferred
	// responses. Satisfied structurally by templ components.
	Renderer = internal.Renderer

	// RendererFunc adapts a function to the Renderer interface.
	RendererFunc = internal.RendererFunc

	// ViewFunc is the signature views are written against.
	ViewFunc = internal.ViewFunc

	// RouteMatch is the outcome of resolving a path.
	RouteMatch = internal.RouteMatch

	// Resolver maps request paths to route matches.
	Resolver = internal.Resolver

	// RouteTable is the default Resolver with chi-style patterns.
	RouteTable = internal.RouteTable

	// RouteOption configures a single route registration.
	RouteOption = internal.RouteOption

	// Registry maps middleware identifiers to constructors.
	Registry = internal.Registry

	// Constructor builds a middleware instance from configuration.
	Constructor = internal.Constructor

	// Config is the pipeline configuration.
	Config = internal.Config

	// Option configures the dispatch engine.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// Isolator wraps views in resource-transaction boundaries.
	Isolator = internal.Isolator

	// TxRunner executes a function inside a transaction.
	TxRunner = internal.TxRunner

	// ResponseFix is a post-processing transform applied to every
	// outgoing response.
	ResponseFix = internal.ResponseFix

	// Failure classifies pipeline errors.
	Failure = internal.Failure

	// NotFoundError reports that no route pattern matched.
	NotFoundError = internal.NotFoundError

	// SuspiciousError reports a tampered or malicious-looking request.
	SuspiciousError = internal.SuspiciousError

	// ExitError requests an immediate worker exit; it is never
	// translated into a response.
	ExitError = internal.ExitError

	// ProgrammingError reports a contract violation in a view or hook.
	ProgrammingError = internal.ProgrammingError

	// PanicError carries a recovered panic value and its stack.
	PanicError = internal.PanicError

	// ContextExtractor extracts a slog attribute from context.
	// Used with logger.New to add request-scoped values to logs.
	ContextExtractor = logger.ContextExtractor

	// Settings is the decoded configuration file tree.
	Settings = config.Settings

	// The five middleware capability hooks.
	RequestHook          = internal.RequestHook
	ViewHook             = internal.ViewHook
	TemplateResponseHook = internal.TemplateResponseHook
	ResponseHook         = internal.ResponseHook
	ExceptionHook        = internal.ExceptionHook
)

// Failure categories.
const (
	FailureUncaught         = internal.FailureUncaught
	FailureNotFound         = internal.FailureNotFound
	FailurePermissionDenied = internal.FailurePermissionDenied
	FailureMalformedBody    = internal.FailureMalformedBody
	FailureSuspicious       = internal.FailureSuspicious
	FailureExit             = internal.FailureExit
)

// Sentinel errors for checking return values.
var (
	ErrNotUsed          = internal.ErrNotUsed
	ErrPermissionDenied = internal.ErrPermissionDenied
	ErrMalformedBody    = internal.ErrMalformedBody
	ErrBodyConsumed     = internal.ErrBodyConsumed
	ErrAlreadyRendered  = internal.ErrAlreadyRendered
)

// Constructors

// New creates a dispatch engine with the given configuration and
// options. The engine is immutable after creation; middleware load
// failures surface here, before any request is served.
//
// Example:
//
//	routes := relay.NewRouteTable()
//	routes.Handle("/users/{id}", showUser)
//
//	eng, err := relay.New(cfg,
//	    relay.WithResolver(routes),
//	    relay.WithMiddleware(middlewares.RequestID()),
//	)
func New(cfg Config, opts ...Option) (*Engine, error) {
	return internal.NewEngine(cfg, opts...)
}

// NewRouteTable creates an empty routing table.
func NewRouteTable() *RouteTable {
	return internal.NewRouteTable()
}

// NewRegistry creates an empty middleware registry.
func NewRegistry() *Registry {
	return internal.NewRegistry()
}

// NewRequest creates a request for direct engine invocation, mostly in
// tests. The HTTP adapter builds requests itself.
func NewRequest(method, path string) *Request {
	return internal.NewRequest(method, path)
}

// NewResponse creates a materialized response.
func NewResponse(status int, content []byte) *Response {
	return internal.NewResponse(status, content)
}

// NewTextResponse creates a materialized text/plain response.
func NewTextResponse(status int, body string) *Response {
	return internal.NewTextResponse(status, body)
}

// NewDeferred creates a response whose content is produced by the
// renderer during the deferred-rendering stage.
func NewDeferred(status int, r Renderer) *Response {
	return internal.NewDeferred(status, r)
}

// LoadConfig reads the configuration file at path (plus environment
// overrides) and converts it into a pipeline Config. The listen address
// stays available through Config settings under "address".
func LoadConfig(path string, opts ...config.Option) (Config, error) {
	s, err := config.Load(path, opts...)
	if err != nil {
		return Config{}, err
	}
	settings := make(map[string]any, len(s.Extra)+1)
	for k, v := range s.Extra {
		settings[k] = v
	}
	settings["address"] = s.Address
	return Config{
		Debug:               s.Debug,
		PropagateExceptions: s.PropagateExceptions,
		Middleware:          s.Middleware,
		Settings:            settings,
	}, nil
}

// Classify maps an error to its failure category.
func Classify(err error) Failure {
	return internal.Classify(err)
}

// ErrorParams returns the keyword arguments the resolver attached to
// the error view handling the current request.
func ErrorParams(r *Request) map[string]string {
	return internal.ErrorParams(r)
}

// Route options

// NonAtomic opts the view out of the named isolation boundaries.
func NonAtomic(aliases ...string) RouteOption {
	return internal.NonAtomic(aliases...)
}

// Isolation

// Atomic builds a per-view transaction boundary over a PostgreSQL pool.
// Views inside the boundary observe the transaction via db.TxFromContext
// and leave no partial writes behind on failure.
//
// Example:
//
//	eng, err := relay.New(cfg,
//	    relay.WithResolver(routes),
//	    relay.WithIsolation(relay.Atomic("default", pool)),
//	)
func Atomic(alias string, pool *pgxpool.Pool) Isolator {
	return internal.NewAtomic(alias, db.Runner(pool))
}

// AtomicRunner builds an isolation boundary from a custom transaction
// runner, for resources other than PostgreSQL.
func AtomicRunner(alias string, run TxRunner) Isolator {
	return internal.NewAtomic(alias, run)
}

// Engine options

// WithResolver sets the routing table. Required.
func WithResolver(res Resolver) Option {
	return internal.WithResolver(res)
}

// WithRegistry sets the registry used to resolve the middleware
// identifiers named in Config.Middleware.
func WithRegistry(reg *Registry) Option {
	return internal.WithRegistry(reg)
}

// WithMiddleware appends middleware instances directly, in order, after
// any registry-loaded middleware.
func WithMiddleware(instances ...any) Option {
	return internal.WithMiddleware(instances...)
}

// WithIsolation registers resource-transaction boundaries.
func WithIsolation(isolators ...Isolator) Option {
	return internal.WithIsolation(isolators...)
}

// WithResponseFix appends a post-processing transform after the default
// fix sequence.
func WithResponseFix(fix ResponseFix) Option {
	return internal.WithResponseFix(fix)
}

// WithLogger sets the engine's logger. Defaults to a noop logger.
func WithLogger(l *slog.Logger) Option {
	return internal.WithLogger(l)
}

// WithSecurityLogger sets the logger suspicious-operation events go to.
func WithSecurityLogger(l *slog.Logger) Option {
	return internal.WithSecurityLogger(l)
}

// Transport

// Adapter mounts the engine as an http.Handler for custom server
// setups. Serve wraps this with an opinionated server and graceful
// shutdown.
func Adapter(e *Engine) http.Handler {
	return internal.Adapter(e)
}

// Serve mounts the engine behind the HTTP adapter and blocks until
// shutdown.
//
// Example:
//
//	err := relay.Serve(eng,
//	    relay.Address(":8080"),
//	    relay.Logger(log),
//	    relay.ShutdownHook(db.Shutdown(pool)),
//	)
func Serve(e *Engine, opts ...RunOption) error {
	return internal.Serve(e, opts...)
}

// Run options

// Address sets the HTTP server address.
// Defaults to ":8080".
func Address(addr string) RunOption {
	return internal.Address(addr)
}

// Logger sets the runtime logger.
// If nil, logging is disabled.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout sets the timeout for graceful shutdown.
// Defaults to 30 seconds.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// StartupHook registers a function to run after the port is bound but
// before serving requests.
func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

// ShutdownHook registers a cleanup function to run during shutdown.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// WithContext sets a custom base context for signal handling.
// Useful for testing or when integrating with existing context hierarchies.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}
