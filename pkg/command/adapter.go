package command

import (
	"context"
	"time"
)

// Adapter is the storage backend contract. Each method receives the key
// namespace of the instance it addresses (see Handle.namespace), so one
// adapter serves a logical cache's default instance and every dynamic
// instance without key collisions.
//
// Error contract: a plain missing key is errors.NotFoundError; a key absent
// because its TTL elapsed is errors.ExpiredError where the backend can tell
// the difference; everything else is a Temporary or Permanent infrastructure
// error. Adapters never return raw client errors.
type Adapter interface {
	// Fetch returns the value stored under key.
	Fetch(ctx context.Context, ns, key string) (any, error)

	// Put stores value under key according to mode. The bool reports
	// whether a write happened (false for an unmet PutIfAbsent or
	// PutIfPresent condition).
	Put(ctx context.Context, ns, key string, value any, ttl time.Duration, mode PutMode) (bool, error)

	// PutAll stores all entries according to mode. For PutIfAbsent the
	// write is all-or-nothing: false means at least one key existed and
	// nothing was stored.
	PutAll(ctx context.Context, ns string, entries []Entry, ttl time.Duration, mode PutMode) (bool, error)

	// Delete removes key. Removing an absent key is not an error.
	Delete(ctx context.Context, ns, key string) error

	// DeleteAll removes every entry matched by the query and returns the
	// number removed.
	DeleteAll(ctx context.Context, ns string, q Query) (int, error)

	// Take returns the value stored under key and removes it.
	Take(ctx context.Context, ns, key string) (any, error)

	// Expire rewrites the entry's TTL. 0 removes the expiration.
	// The bool reports whether the key existed.
	Expire(ctx context.Context, ns, key string, ttl time.Duration) (bool, error)

	// Touch restarts the entry's TTL countdown without changing the value.
	// The bool reports whether the key existed.
	Touch(ctx context.Context, ns, key string) (bool, error)

	// TTL returns the entry's remaining time to live. 0 means the entry
	// has no expiration.
	TTL(ctx context.Context, ns, key string) (time.Duration, error)

	// HasKey reports whether key holds an entry.
	HasKey(ctx context.Context, ns, key string) (bool, error)

	// UpdateCounter atomically adds amount to the counter under key,
	// initializing an absent counter to def first, and returns the
	// resulting value.
	UpdateCounter(ctx context.Context, ns, key string, amount, def int64) (int64, error)

	// Check reports backend health (health.Checker).
	Check(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
