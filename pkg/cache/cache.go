// Package cache provides the page store backing the full-page cache
// middleware.
//
// A Store keeps rendered response pages keyed by URL (plus any header
// variation) with TTL-based expiration. Two backends ship: an in-memory
// store for single-process deployments and tests, and a Redis store for
// shared caches.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound is returned when a key does not exist or has expired.
	ErrNotFound = errors.New("cache: entry not found")

	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("cache: closed")
)

// Page is a cached response snapshot: status, headers and rendered body.
type Page struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Content    []byte      `json:"content"`
}

// Store is a TTL key-value store for response pages.
//
// TTL semantics for Set:
//   - Positive duration: entry expires after this duration
//   - Zero: use the store's configured default TTL
//   - Negative: entry never expires
type Store interface {
	// Get retrieves a page by key.
	// Returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) (*Page, error)

	// Set stores a page with the given TTL.
	Set(ctx context.Context, key string, page *Page, ttl time.Duration) error

	// Delete removes a key from the store.
	Delete(ctx context.Context, key string) error

	// Close releases resources (stops background goroutines, etc.).
	Close() error
}

func marshalPage(p *Page) ([]byte, error) {
	return json.Marshal(p)
}

func unmarshalPage(data []byte) (*Page, error) {
	var p Page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
