// Package middlewares provides built-in middleware for the Relay
// pipeline.
//
// Each middleware is a struct implementing one or more of the pipeline
// hook interfaces (request, view, template-response, response,
// exception). Instances can be passed to relay.WithMiddleware directly
// or loaded by identifier from configuration after RegisterDefaults:
//
//	reg := relay.NewRegistry()
//	middlewares.RegisterDefaults(reg)
//
//	app, err := relay.New(cfg,
//	    relay.WithResolver(routes),
//	    relay.WithRegistry(reg),
//	)
//
// Available identifiers:
//
//   - "requestid": assigns a unique ID to every request and echoes it
//     on the response
//   - "conditional_get": Date/Content-Length stamping plus ETag and
//     Last-Modified conditional handling
//   - "csrf": cross-site request forgery protection for unsafe methods
//   - "cache": full-page caching of successful GET responses
package middlewares
