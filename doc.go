// Package relay provides a middleware-driven request dispatch pipeline
// for building HTTP services in Go.
//
// Relay separates the transport (a plain HTTP server) from the
// pipeline: every request travels through ordered middleware hooks,
// route resolution, the view, failure translation and response
// post-processing. Middleware declares its capabilities by implementing
// hook interfaces; the engine checks them once at startup, never per
// request.
//
// # Quick Start
//
// Build a route table, create an engine with relay.New(), and serve:
//
//	routes := relay.NewRouteTable()
//	routes.Handle("/users/{id}", showUser)
//	routes.Handle("/files/*", serveFile)
//
//	eng, err := relay.New(cfg,
//	    relay.WithResolver(routes),
//	    relay.WithMiddleware(
//	        middlewares.RequestID(),
//	        middlewares.ConditionalGet(),
//	    ),
//	    relay.WithLogger(log),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := relay.Serve(eng, relay.Address(":8080")); err != nil {
//	    log.Fatal(err)
//	}
//
// # Views
//
// Views take a Request and return a Response or an error:
//
//	func showUser(r *relay.Request) (*relay.Response, error) {
//	    id := r.Route().Param("id")
//	    user, err := repo.Find(r.Context(), id)
//	    if err != nil {
//	        return nil, fmt.Errorf("%w: user %s", relay.ErrPermissionDenied, id)
//	    }
//	    return relay.NewTextResponse(200, user.Name), nil
//	}
//
// Errors are classified and translated: not-found, permission-denied,
// malformed-body and suspicious-operation failures become 404, 403, 400
// and 400 responses through the resolver's error views; anything else
// becomes a 500. With Config.Debug set, technical pages with failure
// detail are rendered instead.
//
// # Middleware
//
// A middleware is any value implementing one or more of the five hook
// interfaces: RequestHook, ViewHook, TemplateResponseHook, ResponseHook
// and ExceptionHook. Request and view hooks run in configuration order;
// the other three run in reverse, so the first-configured middleware
// wraps the whole request.
//
//	type timing struct{}
//
//	func (timing) ProcessRequest(r *relay.Request) (*relay.Response, error) {
//	    r.Set(startKey{}, time.Now())
//	    return nil, nil
//	}
//
//	func (timing) ProcessResponse(r *relay.Request, resp *relay.Response) (*relay.Response, error) {
//	    start, _ := r.Get(startKey{}).(time.Time)
//	    resp.Header.Set("X-Elapsed", time.Since(start).String())
//	    return resp, nil
//	}
//
// # Atomic Views
//
// Views can run inside a database transaction per request:
//
//	eng, err := relay.New(cfg,
//	    relay.WithResolver(routes),
//	    relay.WithIsolation(relay.Atomic("default", pool)),
//	)
//
//	routes.Handle("/health", healthView, relay.NonAtomic("default"))
//
// # Escape Hatch
//
// For custom server setups, mount the engine as a plain http.Handler
// with relay.Adapter and run any server you like around it.
package relay
