package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	expiresAt time.Time // zero value = never expires
	page      *Page
}

func (e *memEntry) isExpired() bool {
	if e.expiresAt.IsZero() {
		return false
	}
	return time.Now().After(e.expiresAt)
}

// Memory is an in-memory page store with TTL-based expiration.
// A background janitor removes expired entries when a cleanup interval
// is configured.
type Memory struct {
	items           map[string]*memEntry
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	done            chan struct{}
	mu              sync.Mutex
	closed          bool
}

// MemoryOption configures the in-memory store.
type MemoryOption func(*Memory)

// WithDefaultTTL sets the TTL used when Set receives a zero TTL.
func WithDefaultTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		m.defaultTTL = ttl
	}
}

// WithCleanupInterval sets how often expired entries are swept.
// Zero disables the janitor; expired entries are then removed lazily
// on access.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(m *Memory) {
		m.cleanupInterval = d
	}
}

// NewMemory creates a new in-memory page store.
//
// Example:
//
//	s := cache.NewMemory(
//	    cache.WithDefaultTTL(5 * time.Minute),
//	    cache.WithCleanupInterval(30 * time.Second),
//	)
//	defer s.Close()
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		items:           make(map[string]*memEntry),
		defaultTTL:      5 * time.Minute,
		cleanupInterval: time.Minute,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.cleanupInterval > 0 {
		go m.janitor()
	}

	return m
}

// Get retrieves a page by key.
// Returns ErrNotFound if the key does not exist or has expired.
func (m *Memory) Get(_ context.Context, key string) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	if e.isExpired() {
		delete(m.items, key)
		return nil, ErrNotFound
	}
	return e.page, nil
}

// Set stores a page with the given TTL.
// TTL semantics: positive = expires after duration, zero = use default TTL,
// negative = never expires.
func (m *Memory) Set(_ context.Context, key string, page *Page, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if ttl == 0 {
		ttl = m.defaultTTL
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	m.items[key] = &memEntry{page: page, expiresAt: expiresAt}
	return nil
}

// Delete removes a key from the store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	delete(m.items, key)
	return nil
}

// Close stops the background janitor goroutine and marks the store as closed.
// Close is idempotent.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	close(m.done)
	return nil
}

func (m *Memory) janitor() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.deleteExpired()
		}
	}
}

func (m *Memory) deleteExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, e := range m.items {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(m.items, key)
		}
	}
}

var _ Store = (*Memory)(nil)
