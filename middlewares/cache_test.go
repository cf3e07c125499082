package middlewares_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relay/internal"
	"github.com/dmitrymomot/relay/middlewares"
	"github.com/dmitrymomot/relay/pkg/cache"
)

func newPageCache(t *testing.T, ttl time.Duration) (*middlewares.PageCacheMiddleware, *cache.Memory) {
	t.Helper()
	store := cache.NewMemory(cache.WithDefaultTTL(ttl), cache.WithCleanupInterval(0))
	t.Cleanup(func() { _ = store.Close() })
	return middlewares.PageCache(
		middlewares.WithPageCacheStore(store),
		middlewares.WithPageCacheTTL(ttl),
	), store
}

func TestPageCacheMiss(t *testing.T) {
	t.Parallel()

	t.Run("miss stores a successful GET response", func(t *testing.T) {
		t.Parallel()

		mw, store := newPageCache(t, time.Minute)
		r := internal.NewRequest(http.MethodGet, "/page")
		r.Host = "example.com"

		resp, err := mw.ProcessRequest(r)
		require.NoError(t, err)
		require.Nil(t, resp)

		fresh := internal.NewTextResponse(http.StatusOK, "page body")
		_, err = mw.ProcessResponse(r, fresh)
		require.NoError(t, err)

		page, err := store.Get(r.Context(), "example.com:/page")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, page.StatusCode)
		require.Equal(t, "page body", string(page.Content))
	})

	t.Run("non-200 responses are not stored", func(t *testing.T) {
		t.Parallel()

		mw, store := newPageCache(t, time.Minute)
		r := internal.NewRequest(http.MethodGet, "/missing")
		r.Host = "example.com"

		_, err := mw.ProcessRequest(r)
		require.NoError(t, err)

		notFound := internal.NewTextResponse(http.StatusNotFound, "nope")
		_, err = mw.ProcessResponse(r, notFound)
		require.NoError(t, err)

		_, err = store.Get(r.Context(), "example.com:/missing")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("POST requests bypass the cache entirely", func(t *testing.T) {
		t.Parallel()

		mw, store := newPageCache(t, time.Minute)
		r := internal.NewRequest(http.MethodPost, "/page")
		r.Host = "example.com"

		resp, err := mw.ProcessRequest(r)
		require.NoError(t, err)
		require.Nil(t, resp)

		_, err = mw.ProcessResponse(r, internal.NewTextResponse(http.StatusOK, "created"))
		require.NoError(t, err)

		_, err = store.Get(r.Context(), "example.com:/page")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("responses setting cookies are not stored", func(t *testing.T) {
		t.Parallel()

		mw, store := newPageCache(t, time.Minute)
		r := internal.NewRequest(http.MethodGet, "/page")
		r.Host = "example.com"

		_, err := mw.ProcessRequest(r)
		require.NoError(t, err)

		resp := internal.NewTextResponse(http.StatusOK, "personal")
		resp.SetCookie(&http.Cookie{Name: "session", Value: "abc"})
		_, err = mw.ProcessResponse(r, resp)
		require.NoError(t, err)

		_, err = store.Get(r.Context(), "example.com:/page")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})

	t.Run("private and no-store responses are not stored", func(t *testing.T) {
		t.Parallel()

		for _, cc := range []string{"private", "no-store", "no-cache"} {
			mw, store := newPageCache(t, time.Minute)
			r := internal.NewRequest(http.MethodGet, "/page")
			r.Host = "example.com"

			_, err := mw.ProcessRequest(r)
			require.NoError(t, err)

			resp := internal.NewTextResponse(http.StatusOK, "body")
			resp.Header.Set("Cache-Control", cc)
			_, err = mw.ProcessResponse(r, resp)
			require.NoError(t, err)

			_, err = store.Get(r.Context(), "example.com:/page")
			require.ErrorIs(t, err, cache.ErrNotFound, cc)
		}
	})

	t.Run("max-age=0 disables caching for the response", func(t *testing.T) {
		t.Parallel()

		mw, store := newPageCache(t, time.Minute)
		r := internal.NewRequest(http.MethodGet, "/page")
		r.Host = "example.com"

		_, err := mw.ProcessRequest(r)
		require.NoError(t, err)

		resp := internal.NewTextResponse(http.StatusOK, "body")
		resp.Header.Set("Cache-Control", "max-age=0")
		_, err = mw.ProcessResponse(r, resp)
		require.NoError(t, err)

		_, err = store.Get(r.Context(), "example.com:/page")
		require.ErrorIs(t, err, cache.ErrNotFound)
	})
}

func TestPageCacheHit(t *testing.T) {
	t.Parallel()

	t.Run("hit short-circuits with the stored page", func(t *testing.T) {
		t.Parallel()

		mw, store := newPageCache(t, time.Minute)

		page := &cache.Page{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
			Content:    []byte("cached body"),
		}
		require.NoError(t, store.Set(t.Context(), "example.com:/page", page, time.Minute))

		r := internal.NewRequest(http.MethodGet, "/page")
		r.Host = "example.com"

		resp, err := mw.ProcessRequest(r)
		require.NoError(t, err)
		require.NotNil(t, resp)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "cached body", string(resp.Content()))
		require.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	})

	t.Run("hit responses are not re-stored", func(t *testing.T) {
		t.Parallel()

		mw, store := newPageCache(t, time.Minute)
		page := &cache.Page{StatusCode: http.StatusOK, Header: http.Header{}, Content: []byte("cached")}
		require.NoError(t, store.Set(t.Context(), "example.com:/page", page, time.Minute))

		r := internal.NewRequest(http.MethodGet, "/page")
		r.Host = "example.com"

		resp, err := mw.ProcessRequest(r)
		require.NoError(t, err)
		require.NotNil(t, resp)

		// The response hook must treat this request as a hit, not a miss.
		out, err := mw.ProcessResponse(r, resp)
		require.NoError(t, err)
		require.Equal(t, resp, out)
	})
}

func TestPageCacheThroughEngine(t *testing.T) {
	t.Parallel()

	t.Run("second request is served from the cache", func(t *testing.T) {
		t.Parallel()

		mw, _ := newPageCache(t, time.Minute)

		var views int
		table := internal.NewRouteTable()
		table.Handle("/page", func(r *internal.Request) (*internal.Response, error) {
			views++
			return internal.NewTextResponse(http.StatusOK, "rendered once"), nil
		})

		eng, err := internal.NewEngine(internal.Config{},
			internal.WithResolver(table),
			internal.WithMiddleware(mw),
		)
		require.NoError(t, err)

		first := internal.NewRequest(http.MethodGet, "/page")
		first.Host = "example.com"
		resp, err := eng.Handle(first)
		require.NoError(t, err)
		require.Equal(t, "rendered once", string(resp.Content()))

		second := internal.NewRequest(http.MethodGet, "/page")
		second.Host = "example.com"
		resp, err = eng.Handle(second)
		require.NoError(t, err)
		require.Equal(t, "rendered once", string(resp.Content()))
		require.Equal(t, "HIT", resp.Header.Get("X-Cache"))

		require.Equal(t, 1, views)
	})
}

func TestPageCacheConstructor(t *testing.T) {
	t.Parallel()

	t.Run("opts out without a configured ttl", func(t *testing.T) {
		t.Parallel()

		_, err := middlewares.PageCacheConstructor(&internal.Config{})
		require.ErrorIs(t, err, internal.ErrNotUsed)
	})

	t.Run("builds with a configured ttl", func(t *testing.T) {
		t.Parallel()

		cfg := &internal.Config{Settings: map[string]any{"cache.ttl": 60}}
		inst, err := middlewares.PageCacheConstructor(cfg)
		require.NoError(t, err)
		require.IsType(t, (*middlewares.PageCacheMiddleware)(nil), inst)
	})
}
