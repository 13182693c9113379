package decorator

import (
	"fmt"
	"strconv"

	"github.com/decocache/decocache/pkg/command"
	"github.com/decocache/decocache/pkg/errors"
)

// CacheSpec selects the cache a decoration targets. The shape is fixed at
// configuration time: a literal name, a resolved handle, or a resolver
// function, never a runtime type switch over arbitrary values.
type CacheSpec interface {
	validate() error
	resolve(c *Context) (command.Handle, error)
}

type cacheName string

func (s cacheName) validate() error {
	if s == "" {
		return errors.NewInvalidInput("cache", "cache name must not be empty")
	}
	return nil
}

func (s cacheName) resolve(*Context) (command.Handle, error) {
	return command.Handle{Cache: string(s)}, nil
}

// Cache targets a logical cache's default instance by name.
func Cache(name string) CacheSpec {
	return cacheName(name)
}

type cacheHandle command.Handle

func (s cacheHandle) validate() error {
	if s.Cache == "" {
		return errors.NewInvalidInput("cache", "cache handle must name a cache")
	}
	return nil
}

func (s cacheHandle) resolve(*Context) (command.Handle, error) {
	return command.Handle(s), nil
}

// CacheInstance targets a named dynamic instance of a logical cache.
func CacheInstance(name, instance string) CacheSpec {
	return cacheHandle(command.Handle{Cache: name, Instance: instance})
}

// CacheHandle targets an already-resolved handle.
func CacheHandle(h command.Handle) CacheSpec {
	return cacheHandle(h)
}

type cacheFunc func() (command.Handle, error)

func (s cacheFunc) validate() error {
	if s == nil {
		return errors.NewInvalidInput("cache", "cache resolver must not be nil")
	}
	return nil
}

func (s cacheFunc) resolve(*Context) (command.Handle, error) {
	h, err := s()
	if err != nil {
		return command.Handle{}, errors.NewInvalidInputWithCause("cache", "cache resolver failed", err)
	}
	if h.Cache == "" {
		return command.Handle{}, errors.NewInvalidInput("cache", "cache resolver returned an empty handle")
	}
	return h, nil
}

// CacheFunc targets the handle a zero-argument resolver returns at call
// time.
func CacheFunc(fn func() (command.Handle, error)) CacheSpec {
	return cacheFunc(fn)
}

type cacheContextFunc func(*Context) (command.Handle, error)

func (s cacheContextFunc) validate() error {
	if s == nil {
		return errors.NewInvalidInput("cache", "cache resolver must not be nil")
	}
	return nil
}

func (s cacheContextFunc) resolve(c *Context) (command.Handle, error) {
	h, err := s(c)
	if err != nil {
		return command.Handle{}, errors.NewInvalidInputWithCause("cache", "cache resolver failed", err)
	}
	if h.Cache == "" {
		return command.Handle{}, errors.NewInvalidInput("cache", "cache resolver returned an empty handle")
	}
	return h, nil
}

// CacheContextFunc targets the handle a resolver derives from the current
// invocation context.
func CacheContextFunc(fn func(*Context) (command.Handle, error)) CacheSpec {
	return cacheContextFunc(fn)
}

// KeySpec selects the key (or key set) a decoration addresses.
type KeySpec interface {
	validate() error
	resolve(c *Context) (resolvedKey, error)

	// multi reports whether the spec yields a key set. Key sets are
	// valid on CachePut and CacheEvict only.
	multi() bool
}

// resolvedKey is the outcome of key resolution: exactly one of key,
// ref, or set is populated.
type resolvedKey struct {
	key string
	ref *command.KeyReference
	set []command.KeyReference
}

// normalizeKey turns a resolver's result into a storage key or an explicit
// reference. Scalars are rendered to their canonical string form.
func normalizeKey(v any) (resolvedKey, error) {
	switch k := v.(type) {
	case string:
		if k == "" {
			return resolvedKey{}, errors.NewInvalidInput("key", "key must not be empty")
		}
		return resolvedKey{key: k}, nil
	case command.KeyReference:
		return resolvedKey{ref: &k}, nil
	case *command.KeyReference:
		if k == nil {
			return resolvedKey{}, errors.NewInvalidInput("key", "key reference must not be nil")
		}
		return resolvedKey{ref: k}, nil
	case int:
		return resolvedKey{key: strconv.Itoa(k)}, nil
	case int64:
		return resolvedKey{key: strconv.FormatInt(k, 10)}, nil
	case uint64:
		return resolvedKey{key: strconv.FormatUint(k, 10)}, nil
	case fmt.Stringer:
		return normalizeKey(k.String())
	default:
		return resolvedKey{}, errors.NewInvalidInput("key", fmt.Sprintf("unsupported key type %T", v))
	}
}

type keyLiteral struct {
	value any
}

func (s keyLiteral) validate() error {
	if s.value == nil {
		return errors.NewInvalidInput("key", "key must not be nil")
	}
	_, err := normalizeKey(s.value)
	return err
}

func (s keyLiteral) resolve(*Context) (resolvedKey, error) {
	return normalizeKey(s.value)
}

func (s keyLiteral) multi() bool { return false }

// Key addresses a literal key. Strings, integers, Stringers, and explicit
// KeyReference values are accepted.
func Key(value any) KeySpec {
	return keyLiteral{value: value}
}

type keyFunc func() (any, error)

func (s keyFunc) validate() error {
	if s == nil {
		return errors.NewInvalidInput("key", "key resolver must not be nil")
	}
	return nil
}

func (s keyFunc) resolve(*Context) (resolvedKey, error) {
	v, err := s()
	if err != nil {
		return resolvedKey{}, errors.NewInvalidInputWithCause("key", "key resolver failed", err)
	}
	return normalizeKey(v)
}

func (s keyFunc) multi() bool { return false }

// KeyFunc addresses the key a zero-argument resolver returns at call time.
func KeyFunc(fn func() (any, error)) KeySpec {
	return keyFunc(fn)
}

type keyContextFunc func(*Context) (any, error)

func (s keyContextFunc) validate() error {
	if s == nil {
		return errors.NewInvalidInput("key", "key resolver must not be nil")
	}
	return nil
}

func (s keyContextFunc) resolve(c *Context) (resolvedKey, error) {
	v, err := s(c)
	if err != nil {
		return resolvedKey{}, errors.NewInvalidInputWithCause("key", "key resolver failed", err)
	}
	return normalizeKey(v)
}

func (s keyContextFunc) multi() bool { return false }

// KeyContextFunc addresses the key a resolver derives from the current
// invocation context.
func KeyContextFunc(fn func(*Context) (any, error)) KeySpec {
	return keyContextFunc(fn)
}

type keySet []command.KeyReference

func (s keySet) validate() error {
	if len(s) == 0 {
		return errors.NewInvalidInput("key", "key set must not be empty")
	}
	for _, m := range s {
		if m.Key == "" {
			return errors.NewInvalidInput("key", "key set member must name a key")
		}
	}
	return nil
}

func (s keySet) resolve(*Context) (resolvedKey, error) {
	return resolvedKey{set: s}, nil
}

func (s keySet) multi() bool { return true }

// Keys addresses a fixed set of keys. A member naming a cache addresses
// that cache instead of the decoration's own. Valid on CachePut and
// CacheEvict only.
func Keys(members ...command.KeyReference) KeySpec {
	return keySet(members)
}

// PlainKeys addresses a fixed set of same-cache keys.
func PlainKeys(keys ...string) KeySpec {
	members := make([]command.KeyReference, len(keys))
	for i, k := range keys {
		members[i] = command.KeyReference{Key: k}
	}
	return keySet(members)
}
