// Package internal provides the core types and implementation for the
// Relay pipeline.
//
// This package is internal and should not be used directly. Import
// "github.com/dmitrymomot/relay" instead, which re-exports the public
// API.
//
// # Core Types
//
//   - Engine: drives one request through the hook pipeline and owns
//     failure translation and post-processing
//   - Request: one inbound call with its header map, cookie map,
//     single-consumption body and per-request attribute bag
//   - Response: status, headers, cookie directives and either
//     materialized content or a deferred renderer
//   - Resolver / RouteTable: maps a path to a RouteMatch or signals
//     not-found; also resolves error-status views
//   - Registry / HookSet: loads configured middleware and partitions
//     hooks into the five ordered lists
//   - Isolator: wraps a view in a resource-transaction boundary
//
// # Pipeline Order
//
// A request travels through the states in a fixed order:
//
//	request hooks -> resolve -> view hooks -> view -> exception hooks
//	-> deferred rendering (template-response hooks) -> failure
//	translation -> response hooks -> post-processing
//
// Within any hook list the first hook producing a response wins and
// later hooks are never invoked, with one exception: response hooks all
// run, each transforming the previous result. Response hooks run in the
// reverse of configuration order, so the first-configured middleware
// sees the response last, giving the wrap/unwrap symmetry middleware
// stacks rely on.
//
// # Failure Handling
//
// Failures are classified (Classify) and translated into responses by
// the engine. Debug mode renders technical pages; production delegates
// to the resolver's error views. Exit requests are never translated and
// unwind through every state untouched.
//
// # Concurrency
//
// The Engine, HookSet, RouteTable and Config are built once at startup
// and read-only afterward; concurrent requests share them without
// synchronization. Everything mutable belongs to a single request's
// worker.
package internal
