// Package command provides the cache command facade for the decocache
// engine. It routes a fixed set of command verbs (fetch, put, delete,
// delete_all, take, update_counter, ...) to pluggable storage backends,
// addresses default or named dynamic cache instances, and emits a
// completion record for every command so the event layer can interpret
// mutations into cache-entry events.
//
// Example usage:
//
//	facade := command.NewFacade(command.WithLogger(logger))
//	facade.MustRegisterCache("users", command.NewMemory(command.MemoryConfig{MaxEntries: 1000}))
//
//	h := command.Handle{Cache: "users"}
//	err := facade.Put(ctx, h, "user:1", user, command.PutOptions{TTL: 5 * time.Minute})
//
//	value, err := facade.Fetch(ctx, h, "user:1")
package command

import (
	"time"
)

// Command identifies a facade verb. Completion records carry the verb so
// observers can interpret outcomes without inspecting call sites.
type Command string

const (
	CmdFetch         Command = "fetch"
	CmdPut           Command = "put"
	CmdPutNew        Command = "put_new"
	CmdPutAll        Command = "put_all"
	CmdPutNewAll     Command = "put_new_all"
	CmdReplace       Command = "replace"
	CmdDelete        Command = "delete"
	CmdDeleteAll     Command = "delete_all"
	CmdTake          Command = "take"
	CmdExpire        Command = "expire"
	CmdTouch         Command = "touch"
	CmdTTL           Command = "ttl"
	CmdHasKey        Command = "has_key"
	CmdUpdateCounter Command = "update_counter"
)

// Handle addresses one named or dynamic instance of a logical cache.
// An empty Instance addresses the cache's default instance.
type Handle struct {
	Cache    string
	Instance string
}

// String returns the canonical form, "cache" or "cache[instance]".
func (h Handle) String() string {
	if h.Instance == "" {
		return h.Cache
	}
	return h.Cache + "[" + h.Instance + "]"
}

// namespace returns the key namespace the handle addresses inside its
// backend. Dynamic instances never share keys with the default instance.
func (h Handle) namespace() string {
	return Key(h.Cache, h.Instance)
}

// KeyReference is an indirection record: the value stored under one key
// points at the key holding the real value. Backends round-trip it as a
// tagged record so the decorators can recognize it on fetch.
type KeyReference struct {
	// Cache addresses the cache holding the referenced entry.
	// Nil means the same cache the reference was read from.
	Cache *Handle `json:"cache,omitempty"`

	// Key is the key holding the real value.
	Key string `json:"key"`

	// TTL optionally overrides the TTL applied to the referenced entry.
	TTL time.Duration `json:"ttl,omitempty"`
}

// PutMode selects the conditional behavior of a put-family command.
type PutMode int

const (
	// PutAlways stores unconditionally.
	PutAlways PutMode = iota

	// PutIfAbsent stores only when the key does not exist (put_new).
	PutIfAbsent

	// PutIfPresent stores only when the key already exists (replace).
	PutIfPresent
)

// PutOptions carries per-write storage options.
type PutOptions struct {
	// TTL is the entry's time to live. 0 means no expiration.
	TTL time.Duration
}

// merged returns the options with non-zero fields of extra overriding the
// receiver. Used by the match-gated store's ValueWithOptions variant.
func (o PutOptions) merged(extra PutOptions) PutOptions {
	out := o
	if extra.TTL != 0 {
		out.TTL = extra.TTL
	}
	return out
}

// Merged returns a copy of o with non-zero fields of extra applied on top.
func (o PutOptions) Merged(extra PutOptions) PutOptions {
	return o.merged(extra)
}

// Entry is one key/value pair of a batched put.
type Entry struct {
	Key   string
	Value any
}

// Query selects a set of entries for delete_all.
type Query struct {
	// Pattern is a path.Match-style glob over keys. Supported by every
	// backend.
	Pattern string

	// Predicate matches on key and value. Only the memory backend can
	// evaluate it; the redis backend rejects predicate queries.
	Predicate func(key string, value any) bool

	// All selects every entry in the instance.
	All bool
}

// MatchAll returns a query selecting every entry.
func MatchAll() Query {
	return Query{All: true}
}

// MatchPattern returns a query selecting keys matching a glob pattern.
func MatchPattern(pattern string) Query {
	return Query{Pattern: pattern}
}

// MatchFunc returns a query selecting entries by predicate.
// Only supported by the memory backend.
func MatchFunc(fn func(key string, value any) bool) Query {
	return Query{Predicate: fn}
}

// Completion is the record emitted to observers after every command,
// successful or not. It is the notification feed the event dispatch layer
// interprets.
type Completion struct {
	Command Command
	Handle  Handle
	Key     string
	Keys    []string
	Query   *Query
	Result  any
	Err     error
}
