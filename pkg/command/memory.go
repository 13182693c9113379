package command

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/decocache/decocache/pkg/errors"
)

// MemoryConfig configures the in-process backend.
type MemoryConfig struct {
	// MaxEntries caps the number of entries across all namespaces.
	// Least recently used entries are evicted past the cap.
	MaxEntries int

	// now overrides the clock in tests.
	now func() time.Time
}

// memEntry is one stored value with its expiration state. ttl is kept
// alongside the deadline so Touch can restart the original countdown.
type memEntry struct {
	value    any
	deadline time.Time
	ttl      time.Duration
}

func (e *memEntry) expired(now time.Time) bool {
	return e.ttl > 0 && now.After(e.deadline)
}

// Memory is an in-process LRU storage backend. It is the only backend that
// can tell an expired key from one that never existed, and the only one
// that supports predicate queries.
type Memory struct {
	mu    sync.Mutex
	store *lru.Cache[string, *memEntry]
	now   func() time.Time
}

// NewMemory creates an in-process backend. A zero MaxEntries defaults
// to 10000.
func NewMemory(cfg MemoryConfig) *Memory {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 10000
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	store, _ := lru.New[string, *memEntry](cfg.MaxEntries)
	return &Memory{store: store, now: cfg.now}
}

func (m *Memory) fullKey(ns, key string) string {
	return Key(ns, key)
}

// get returns the live entry under key, removing and reporting it as
// expired when its deadline passed. Callers hold m.mu.
func (m *Memory) get(ns, key string) (*memEntry, error) {
	fk := m.fullKey(ns, key)
	entry, ok := m.store.Get(fk)
	if !ok {
		return nil, errors.NewNotFound("cache entry", key)
	}
	if entry.expired(m.now()) {
		m.store.Remove(fk)
		return nil, errors.NewExpired(key)
	}
	return entry, nil
}

// Fetch implements Adapter.
func (m *Memory) Fetch(ctx context.Context, ns, key string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.get(ns, key)
	if err != nil {
		return nil, err
	}
	return entry.value, nil
}

// Put implements Adapter.
func (m *Memory) Put(ctx context.Context, ns, key string, value any, ttl time.Duration, mode PutMode) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.get(ns, key)
	exists := err == nil

	switch mode {
	case PutIfAbsent:
		if exists {
			return false, nil
		}
	case PutIfPresent:
		if !exists {
			return false, nil
		}
	}

	m.set(ns, key, value, ttl)
	return true, nil
}

// set stores an entry. Callers hold m.mu.
func (m *Memory) set(ns, key string, value any, ttl time.Duration) {
	entry := &memEntry{value: value, ttl: ttl}
	if ttl > 0 {
		entry.deadline = m.now().Add(ttl)
	}
	m.store.Add(m.fullKey(ns, key), entry)
}

// PutAll implements Adapter.
func (m *Memory) PutAll(ctx context.Context, ns string, entries []Entry, ttl time.Duration, mode PutMode) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mode == PutIfAbsent {
		for _, e := range entries {
			if _, err := m.get(ns, e.Key); err == nil {
				return false, nil
			}
		}
	}
	for _, e := range entries {
		if mode == PutIfPresent {
			if _, err := m.get(ns, e.Key); err != nil {
				continue
			}
		}
		m.set(ns, e.Key, e.Value, ttl)
	}
	return true, nil
}

// Delete implements Adapter.
func (m *Memory) Delete(ctx context.Context, ns, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.store.Remove(m.fullKey(ns, key))
	return nil
}

// DeleteAll implements Adapter.
func (m *Memory) DeleteAll(ctx context.Context, ns string, q Query) (int, error) {
	if !q.All && q.Predicate == nil && q.Pattern == "" {
		return 0, errors.NewInvalidInput("query", "query selects nothing")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := ns + keySeparator
	now := m.now()
	count := 0
	for _, fk := range m.store.Keys() {
		if !strings.HasPrefix(fk, prefix) {
			continue
		}
		entry, ok := m.store.Peek(fk)
		if !ok {
			continue
		}
		key := strings.TrimPrefix(fk, prefix)
		if entry.expired(now) {
			m.store.Remove(fk)
			continue
		}
		match, err := matchQuery(q, key, entry.value)
		if err != nil {
			return count, err
		}
		if match {
			m.store.Remove(fk)
			count++
		}
	}
	return count, nil
}

// matchQuery evaluates a query against one entry.
func matchQuery(q Query, key string, value any) (bool, error) {
	switch {
	case q.All:
		return true, nil
	case q.Predicate != nil:
		return q.Predicate(key, value), nil
	case q.Pattern != "":
		ok, err := path.Match(q.Pattern, key)
		if err != nil {
			return false, errors.NewInvalidInput("pattern", "invalid match pattern: "+q.Pattern)
		}
		return ok, nil
	default:
		return false, errors.NewInvalidInput("query", "query selects nothing")
	}
}

// Take implements Adapter.
func (m *Memory) Take(ctx context.Context, ns, key string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.get(ns, key)
	if err != nil {
		return nil, err
	}
	m.store.Remove(m.fullKey(ns, key))
	return entry.value, nil
}

// Expire implements Adapter.
func (m *Memory) Expire(ctx context.Context, ns, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.get(ns, key)
	if err != nil {
		return false, nil
	}
	entry.ttl = ttl
	if ttl > 0 {
		entry.deadline = m.now().Add(ttl)
	} else {
		entry.deadline = time.Time{}
	}
	return true, nil
}

// Touch implements Adapter.
func (m *Memory) Touch(ctx context.Context, ns, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.get(ns, key)
	if err != nil {
		return false, nil
	}
	if entry.ttl > 0 {
		entry.deadline = m.now().Add(entry.ttl)
	}
	return true, nil
}

// TTL implements Adapter.
func (m *Memory) TTL(ctx context.Context, ns, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, err := m.get(ns, key)
	if err != nil {
		return 0, err
	}
	if entry.ttl <= 0 {
		return 0, nil
	}
	remaining := entry.deadline.Sub(m.now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// HasKey implements Adapter.
func (m *Memory) HasKey(ctx context.Context, ns, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.get(ns, key)
	switch {
	case err == nil:
		return true, nil
	case errors.IsExpired(err):
		return false, err
	default:
		return false, nil
	}
}

// UpdateCounter implements Adapter.
func (m *Memory) UpdateCounter(ctx context.Context, ns, key string, amount, def int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := def
	entry, err := m.get(ns, key)
	if err == nil {
		n, ok := entry.value.(int64)
		if !ok {
			return 0, errors.NewInvalidInput("key", "entry is not a counter: "+key)
		}
		current = n
	}

	current += amount
	ttl := time.Duration(0)
	if entry != nil {
		ttl = entry.ttl
	}
	m.set(ns, key, current, ttl)
	return current, nil
}

// Check implements health.Checker. The in-process backend is always
// reachable.
func (m *Memory) Check(ctx context.Context) error {
	return nil
}

// Close implements Adapter.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.Purge()
	return nil
}
