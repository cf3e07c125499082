package middlewares

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrymomot/relay/internal"
)

type (
	csrfTokenKey  struct{}
	csrfUsedKey   struct{}
	csrfNewKey    struct{}
	csrfExemptKey struct{}
)

// CSRFConfig configures the CSRF middleware.
type CSRFConfig struct {
	CookieName string        // Cookie carrying the token (default: "csrftoken")
	HeaderName string        // Request header carrying the token (default: "X-CSRF-Token")
	CookiePath string        // Cookie path (default: "/")
	CookieAge  time.Duration // Cookie lifetime (default: 1 year)
}

// CSRFOption configures CSRFConfig.
type CSRFOption func(*CSRFConfig)

// WithCSRFCookieName sets the token cookie name.
func WithCSRFCookieName(name string) CSRFOption {
	return func(cfg *CSRFConfig) {
		cfg.CookieName = name
	}
}

// WithCSRFHeaderName sets the request header checked for the token.
func WithCSRFHeaderName(name string) CSRFOption {
	return func(cfg *CSRFConfig) {
		cfg.HeaderName = name
	}
}

// CSRFMiddleware protects unsafe methods against cross-site request
// forgery. Every response that touched the token carries the token
// cookie; requests with unsafe methods must echo the cookie value in
// the configured header. Requests over TLS additionally pass a strict
// referer check, since the cookie alone cannot rule out a
// man-in-the-middle on a sibling plain-HTTP origin.
type CSRFMiddleware struct {
	cfg CSRFConfig
}

// CSRF creates the CSRF protection middleware.
func CSRF(opts ...CSRFOption) *CSRFMiddleware {
	cfg := CSRFConfig{
		CookieName: "csrftoken",
		HeaderName: "X-CSRF-Token",
		CookiePath: "/",
		CookieAge:  365 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CSRFMiddleware{cfg: cfg}
}

// CSRFConstructor adapts CSRF for registry loading under the "csrf"
// identifier. The cookie and header names can be overridden through the
// "csrf.cookie_name" and "csrf.header_name" settings.
func CSRFConstructor(cfg *internal.Config) (any, error) {
	return CSRF(
		WithCSRFCookieName(cfg.String("csrf.cookie_name", "csrftoken")),
		WithCSRFHeaderName(cfg.String("csrf.header_name", "X-CSRF-Token")),
	), nil
}

// CSRFExempt marks the request as exempt from CSRF validation. Call it
// from a request hook or an earlier view hook.
func CSRFExempt(r *internal.Request) {
	r.Set(csrfExemptKey{}, true)
}

// CSRFToken returns the token for the current request, generating one
// if the client has none yet. Accessing the token marks it as used so
// the response carries the cookie.
func CSRFToken(r *internal.Request) string {
	r.Set(csrfUsedKey{}, true)
	if v, ok := r.Get(csrfTokenKey{}).(string); ok {
		return v
	}
	token := newCSRFToken()
	r.Set(csrfTokenKey{}, token)
	r.Set(csrfNewKey{}, true)
	return token
}

func (m *CSRFMiddleware) ProcessRequest(r *internal.Request) (*internal.Response, error) {
	if token, ok := r.Cookie(m.cfg.CookieName); ok && token != "" {
		r.Set(csrfTokenKey{}, token)
	}
	return nil, nil
}

func (m *CSRFMiddleware) ProcessView(r *internal.Request, _ *internal.RouteMatch) (*internal.Response, error) {
	if isSafeMethod(r.Method) {
		return nil, nil
	}
	if exempt, ok := r.Get(csrfExemptKey{}).(bool); ok && exempt {
		return nil, nil
	}

	if r.Secure {
		referer := r.Header.Get("Referer")
		if referer == "" {
			return nil, rejectCSRF("referer checking failed - no referer")
		}
		u, err := url.Parse(referer)
		if err != nil || u.Scheme != "https" || u.Host != r.Host {
			return nil, rejectCSRF(fmt.Sprintf("referer checking failed - %s does not match %s", referer, r.Host))
		}
	}

	cookieToken, ok := r.Cookie(m.cfg.CookieName)
	if !ok || cookieToken == "" {
		return nil, rejectCSRF("CSRF cookie not set")
	}

	requestToken := r.Header.Get(m.cfg.HeaderName)
	if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(requestToken)) != 1 {
		return nil, rejectCSRF("CSRF token missing or incorrect")
	}

	r.Set(csrfUsedKey{}, true)
	return nil, nil
}

func (m *CSRFMiddleware) ProcessResponse(r *internal.Request, resp *internal.Response) (*internal.Response, error) {
	used, _ := r.Get(csrfUsedKey{}).(bool)
	fresh, _ := r.Get(csrfNewKey{}).(bool)
	if !used && !fresh {
		return resp, nil
	}

	token, _ := r.Get(csrfTokenKey{}).(string)
	if token == "" {
		return resp, nil
	}

	_, hadCookie := r.Cookie(m.cfg.CookieName)
	if fresh || !hadCookie {
		resp.SetCookie(&http.Cookie{
			Name:     m.cfg.CookieName,
			Value:    token,
			Path:     m.cfg.CookiePath,
			MaxAge:   int(m.cfg.CookieAge.Seconds()),
			Secure:   r.Secure,
			HttpOnly: false,
			SameSite: http.SameSiteLaxMode,
		})
	}

	// The response depends on the cookie; shared caches must not mix
	// tokens between clients.
	resp.Header.Add("Vary", "Cookie")
	return resp, nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func rejectCSRF(reason string) error {
	return fmt.Errorf("%w: %s", internal.ErrPermissionDenied, reason)
}

func newCSRFToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("csrf: failed to read random bytes: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
