package internal

// ViewFunc is the signature for route views. A view receives the request
// and returns a response, or an error that the dispatch engine
// classifies and translates. Returning (nil, nil) is a programming
// error, never silently repaired.
type ViewFunc func(r *Request) (*Response, error)

// RouteMatch is the result of resolving a request path: the view to
// invoke plus its positional and keyword arguments. It is attached to
// the request for introspection and immutable once created.
type RouteMatch struct {
	View ViewFunc

	// Pattern is the route pattern that matched, e.g. "/users/{id}".
	Pattern string

	// Args holds positional arguments captured by a wildcard tail.
	Args []string

	// Params holds keyword arguments captured by named placeholders.
	Params map[string]string

	nonAtomic map[string]struct{}
}

// NonAtomic reports whether the matched view opted out of the named
// isolation boundary.
func (m *RouteMatch) NonAtomic(alias string) bool {
	_, ok := m.nonAtomic[alias]
	return ok
}

// Param returns the named keyword argument, or "" if absent.
func (m *RouteMatch) Param(name string) string {
	return m.Params[name]
}
