package decorator

import (
	"context"
	"time"

	"github.com/decocache/decocache/pkg/command"
	"github.com/decocache/decocache/pkg/errors"
	"github.com/decocache/decocache/pkg/logging"
)

// CachePutConfig declares a write-through decoration. The wrapped function
// always runs; its result is written through the match gate afterwards.
type CachePutConfig struct {
	Module   string
	Function string

	// Cache selects the target cache. Required.
	Cache CacheSpec

	// Key selects the key or key set written. Required.
	Key KeySpec

	// Match gates the write. Nil stores everything as-is.
	Match MatchFunc

	// TTL overrides the engine default for stored values.
	TTL time.Duration

	// OnError overrides the engine's failure policy.
	OnError OnError
}

func (cfg *CachePutConfig) validate() error {
	if cfg.Cache == nil {
		return errors.NewInvalidInput("cache", "cache_put requires a cache spec")
	}
	if err := cfg.Cache.validate(); err != nil {
		return err
	}
	if cfg.Key == nil {
		return errors.NewInvalidInput("key", "cache_put requires a key spec")
	}
	return cfg.Key.validate()
}

// CachePut wraps loader with write-through caching.
func (e *Engine) CachePut(cfg CachePutConfig, loader Loader) (Loader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Match == nil {
		cfg.Match = matchAlways
	}
	base := e.options(cfg.TTL)
	policy := e.policy(cfg.OnError)

	wrapped := func(ctx context.Context, args ...any) (any, error) {
		parent, _ := Current(ctx)
		dctx := newContext(KindCachePut, cfg.Module, cfg.Function, args, parent)
		ctx = push(ctx, dctx)

		result, err := loader(ctx, args...)
		if err != nil {
			return result, err
		}

		h, cerr := cfg.Cache.resolve(dctx)
		if cerr != nil {
			return result, cerr
		}
		rk, cerr := cfg.Key.resolve(dctx)
		if cerr != nil {
			return result, cerr
		}

		if serr := e.writeThrough(ctx, h, rk, result, base, cfg.Match, dctx); serr != nil {
			if policy == OnErrorRaise {
				return result, serr
			}
			e.log.Warn().
				Str(logging.Cache, h.String()).
				Err(serr).
				Msg("write-through failed, result returned uncached")
		}
		return result, nil
	}
	return wrapped, nil
}

// writeThrough routes a result to its resolved destination: a single key,
// a reference redirect, or a key set grouped by owning cache.
func (e *Engine) writeThrough(ctx context.Context, h command.Handle, rk resolvedKey, result any, base command.PutOptions, match MatchFunc, dctx *Context) error {
	switch {
	case rk.ref != nil:
		// a reference key redirects the write to the referenced entry
		target := h
		if rk.ref.Cache != nil {
			target = *rk.ref.Cache
		}
		opts := base
		if rk.ref.TTL != 0 {
			opts = base.Merged(command.PutOptions{TTL: rk.ref.TTL})
		}
		_, err := e.storeGated(ctx, target, rk.ref.Key, result, opts, match, dctx)
		return err

	case rk.set != nil:
		return e.writeSet(ctx, h, rk.set, result, base, match, dctx)

	default:
		_, err := e.storeGated(ctx, h, rk.key, result, base, match, dctx)
		return err
	}
}

// setGroup collects key-set members sharing a destination cache and
// effective options, so they can go out as one batched put.
type setGroup struct {
	handle command.Handle
	opts   command.PutOptions
	keys   []string
}

// writeSet stores one result under every member of a key set. The match
// gate runs once; members are grouped by owning cache (and TTL override)
// and each group with more than one member is written as a single batch.
func (e *Engine) writeSet(ctx context.Context, h command.Handle, set []command.KeyReference, result any, base command.PutOptions, match MatchFunc, dctx *Context) error {
	res := match(result, dctx)
	if !res.matched() {
		return nil
	}
	value, opts := res.payload(result, base)

	var groups []*setGroup
	for _, member := range set {
		target := h
		if member.Cache != nil {
			target = *member.Cache
		}
		memberOpts := opts
		if member.TTL != 0 {
			memberOpts = opts.Merged(command.PutOptions{TTL: member.TTL})
		}

		var group *setGroup
		for _, g := range groups {
			if g.handle == target && g.opts == memberOpts {
				group = g
				break
			}
		}
		if group == nil {
			group = &setGroup{handle: target, opts: memberOpts}
			groups = append(groups, group)
		}
		group.keys = append(group.keys, member.Key)
	}

	for _, g := range groups {
		if len(g.keys) == 1 {
			if err := e.facade.Put(ctx, g.handle, g.keys[0], value, g.opts); err != nil {
				return err
			}
			e.countPut(g.handle)
			continue
		}
		entries := make([]command.Entry, len(g.keys))
		for i, k := range g.keys {
			entries[i] = command.Entry{Key: k, Value: value}
		}
		if err := e.facade.PutAll(ctx, g.handle, entries, g.opts); err != nil {
			return err
		}
		e.countPut(g.handle)
	}
	return nil
}
