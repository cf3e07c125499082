package middlewares

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/relay/internal"
	"github.com/dmitrymomot/relay/pkg/cache"
)

type cacheMissKey struct{}

// PageCacheConfig configures the full-page cache middleware.
type PageCacheConfig struct {
	Store cache.Store
	// TTL is the default lifetime of cached pages. A response's own
	// Cache-Control max-age takes precedence; max-age=0 disables caching
	// for that response.
	TTL time.Duration
}

// PageCacheOption configures PageCacheConfig.
type PageCacheOption func(*PageCacheConfig)

// WithPageCacheStore sets the backing store.
func WithPageCacheStore(s cache.Store) PageCacheOption {
	return func(cfg *PageCacheConfig) {
		cfg.Store = s
	}
}

// WithPageCacheTTL sets the default page lifetime.
func WithPageCacheTTL(ttl time.Duration) PageCacheOption {
	return func(cfg *PageCacheConfig) {
		cfg.TTL = ttl
	}
}

// PageCacheMiddleware serves successful GET responses from a page store
// and refills it on misses. Responses that set cookies or mark
// themselves private are never cached.
type PageCacheMiddleware struct {
	cfg PageCacheConfig
}

// PageCache creates the full-page cache middleware. Without an explicit
// store an in-memory one is used.
func PageCache(opts ...PageCacheOption) *PageCacheMiddleware {
	cfg := PageCacheConfig{
		TTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Store == nil {
		cfg.Store = cache.NewMemory(cache.WithDefaultTTL(cfg.TTL))
	}
	return &PageCacheMiddleware{cfg: cfg}
}

// PageCacheConstructor adapts PageCache for registry loading under the
// "cache" identifier. The lifetime comes from the "cache.ttl" setting;
// when it is absent or zero the middleware opts out entirely.
func PageCacheConstructor(cfg *internal.Config) (any, error) {
	ttl := cfg.Duration("cache.ttl", 0)
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: cache.ttl not configured", internal.ErrNotUsed)
	}
	return PageCache(WithPageCacheTTL(ttl)), nil
}

func (m *PageCacheMiddleware) ProcessRequest(r *internal.Request) (*internal.Response, error) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return nil, nil
	}

	page, err := m.cfg.Store.Get(r.Context(), cacheKey(r))
	if err != nil {
		// Treat backend failures like misses so a cache outage degrades
		// to uncached serving instead of request failures.
		r.Set(cacheMissKey{}, true)
		return nil, nil
	}

	resp := internal.NewResponse(page.StatusCode, page.Content)
	for key, values := range page.Header {
		resp.Header[key] = append([]string(nil), values...)
	}
	resp.Header.Set("X-Cache", "HIT")
	return resp, nil
}

func (m *PageCacheMiddleware) ProcessResponse(r *internal.Request, resp *internal.Response) (*internal.Response, error) {
	if miss, ok := r.Get(cacheMissKey{}).(bool); !ok || !miss {
		return resp, nil
	}
	if r.Method != http.MethodGet || resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	if !m.cacheable(resp) {
		return resp, nil
	}

	ttl := m.cfg.TTL
	if maxAge, ok := parseMaxAge(resp.Header.Get("Cache-Control")); ok {
		if maxAge == 0 {
			return resp, nil
		}
		ttl = maxAge
	}

	if resp.Header.Get("Expires") == "" {
		resp.Header.Set("Expires", time.Now().UTC().Add(ttl).Format(http.TimeFormat))
	}
	if resp.Header.Get("Cache-Control") == "" {
		resp.Header.Set("Cache-Control", fmt.Sprintf("max-age=%d", int(ttl.Seconds())))
	}

	if resp.Deferred() {
		// Content is not materialized yet; store once it is.
		key := cacheKey(r)
		_ = resp.OnRender(func(rendered *internal.Response) error {
			_ = m.cfg.Store.Set(r.Context(), key, snapshot(rendered), ttl)
			return nil
		})
		return resp, nil
	}

	_ = m.cfg.Store.Set(r.Context(), cacheKey(r), snapshot(resp), ttl)
	return resp, nil
}

func (m *PageCacheMiddleware) cacheable(resp *internal.Response) bool {
	if len(resp.Cookies()) > 0 {
		return false
	}
	cc := strings.ToLower(resp.Header.Get("Cache-Control"))
	if strings.Contains(cc, "private") || strings.Contains(cc, "no-store") || strings.Contains(cc, "no-cache") {
		return false
	}
	return true
}

func cacheKey(r *internal.Request) string {
	return r.Host + ":" + r.Path
}

func snapshot(resp *internal.Response) *cache.Page {
	header := make(http.Header, len(resp.Header))
	for key, values := range resp.Header {
		header[key] = append([]string(nil), values...)
	}
	return &cache.Page{
		StatusCode: resp.StatusCode,
		Header:     header,
		Content:    append([]byte(nil), resp.Content()...),
	}
}

func parseMaxAge(cc string) (time.Duration, bool) {
	for _, part := range strings.Split(cc, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if after, ok := strings.CutPrefix(part, "max-age="); ok {
			secs, err := strconv.Atoi(after)
			if err != nil {
				return 0, false
			}
			return time.Duration(secs) * time.Second, true
		}
	}
	return 0, false
}
