// Package cache keeps rendered public menu payloads so storefront polling
// does not hit the database on every request.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/yeremiapane/steamybites/metrics"
)

const (
	KeyMenuGrouped = "menu:grouped"
	KeyMenuFlat    = "menu:flat"
	KeyCategories  = "menu:categories"
)

// MenuKeys lists every key Invalidate clears.
var MenuKeys = []string{KeyMenuGrouped, KeyMenuFlat, KeyCategories}

// MenuCache stores JSON-encodable values under the menu keys.
type MenuCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context) error
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process MenuCache used when no redis address is configured.
type Memory struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string, dest interface{}) bool {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || m.now().After(e.expires) {
		metrics.CacheMisses.WithLabelValues("memory").Inc()
		return false
	}
	if err := json.Unmarshal(e.data, dest); err != nil {
		metrics.CacheMisses.WithLabelValues("memory").Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues("memory").Inc()
	return true
}

func (m *Memory) Set(_ context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[key] = memoryEntry{data: data, expires: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Invalidate(_ context.Context) error {
	m.mu.Lock()
	for _, k := range MenuKeys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}
