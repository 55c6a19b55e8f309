package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Cache used when no Redis URL is configured.
// Entries expire by TTL; a background loop evicts stale entries so the
// map does not grow without bound.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates an in-memory cache and starts its cleanup loop.
func NewMemory() *Memory {
	m := &Memory{entries: make(map[string]memoryEntry)}
	go m.cleanupLoop()
	return m
}

// Get returns the cached value for key if it has not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key with the given TTL.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	m.entries[key] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	m.mu.Unlock()
	return nil
}

// cleanupLoop periodically removes expired entries.
func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		m.mu.Lock()
		for key, entry := range m.entries {
			if now.After(entry.expiresAt) {
				delete(m.entries, key)
			}
		}
		m.mu.Unlock()
	}
}

// Ensure Memory implements Cache.
var _ Cache = (*Memory)(nil)
