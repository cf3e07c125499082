package middlewares

import "github.com/dmitrymomot/relay/internal"

// RegisterDefaults binds every built-in middleware constructor to its
// identifier so configuration can name them.
func RegisterDefaults(reg *internal.Registry) {
	reg.Register("requestid", RequestIDConstructor)
	reg.Register("conditional_get", ConditionalGetConstructor)
	reg.Register("csrf", CSRFConstructor)
	reg.Register("cache", PageCacheConstructor)
}
