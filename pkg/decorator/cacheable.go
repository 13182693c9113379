package decorator

import (
	"context"
	"time"

	"github.com/decocache/decocache/pkg/command"
	"github.com/decocache/decocache/pkg/errors"
	"github.com/decocache/decocache/pkg/logging"
)

// ReferencesFunc derives the reference target from a loader result. The
// return value selects the indirection:
//
//   - nil: store nothing, hand the result straight back
//   - a command.KeyReference: use as the reference record
//   - a bare key (string, integer, Stringer): a same-cache reference
type ReferencesFunc func(result any, c *Context) any

// CacheableConfig declares a read-through decoration.
type CacheableConfig struct {
	// Module and Function identify the decorated call in the invocation
	// context. Module may be empty.
	Module   string
	Function string

	// Cache selects the target cache. Required.
	Cache CacheSpec

	// Key selects the lookup key. Required; key sets are not valid here.
	Key KeySpec

	// Match gates storage of loader results. Nil stores everything as-is.
	Match MatchFunc

	// TTL overrides the engine default for stored values.
	TTL time.Duration

	// OnError overrides the engine's failure policy.
	OnError OnError

	// References, when set, stores the loader result under a derived key
	// and a reference record under the lookup key.
	References ReferencesFunc
}

func (cfg *CacheableConfig) validate() error {
	if cfg.Cache == nil {
		return errors.NewInvalidInput("cache", "cacheable requires a cache spec")
	}
	if err := cfg.Cache.validate(); err != nil {
		return err
	}
	if cfg.Key == nil {
		return errors.NewInvalidInput("key", "cacheable requires a key spec")
	}
	if cfg.Key.multi() {
		return errors.NewInvalidInput("key", "key sets are not valid on cacheable")
	}
	return cfg.Key.validate()
}

// Cacheable wraps loader with read-through caching. Configuration shape
// errors surface here, at wrap time.
func (e *Engine) Cacheable(cfg CacheableConfig, loader Loader) (Loader, error) {
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
		dctx := newContext(KindCacheable, cfg.Module, cfg.Function, args, parent)
		ctx = push(ctx, dctx)

		h, err := cfg.Cache.resolve(dctx)
		if err != nil {
			return nil, err
		}
		rk, err := cfg.Key.resolve(dctx)
		if err != nil {
			return nil, err
		}
		key := rk.key
		if rk.ref != nil {
			return nil, errors.NewInvalidInput("key", "cacheable key must not be a reference")
		}

		value, hit, err := e.lookup(ctx, h, key, cfg.Match, dctx)
		if err != nil {
			if policy == OnErrorRaise {
				return nil, err
			}
			// degraded mode: run the loader, skip the cache entirely
			e.log.Warn().
				Str(logging.Cache, h.String()).
				Str(logging.CacheKey, key).
				Err(err).
				Msg("cache lookup failed, running loader uncached")
			return loader(ctx, args...)
		}
		if hit {
			e.countHit(h)
			return value, nil
		}
		e.countMiss(h)

		result, err := loader(ctx, args...)
		if err != nil {
			return result, err
		}

		if serr := e.storeResult(ctx, cfg, h, key, base, result, dctx); serr != nil {
			if policy == OnErrorRaise {
				return result, serr
			}
			e.log.Warn().
				Str(logging.Cache, h.String()).
				Str(logging.CacheKey, key).
				Err(serr).
				Msg("cache store failed, result returned uncached")
		}
		return result, nil
	}
	return wrapped, nil
}

// lookup fetches key, following reference records to the value they point
// at. A concrete value reached through at least one reference is re-gated
// through the match function; a mismatch deletes the dangling reference and
// reports a miss. The returned error is always infrastructural, never a
// plain miss.
func (e *Engine) lookup(ctx context.Context, h command.Handle, key string, match MatchFunc, dctx *Context) (any, bool, error) {
	curHandle, curKey := h, key
	var parentHandle command.Handle
	var parentKey string

	for depth := 0; ; depth++ {
		if depth > e.maxRef {
			return nil, false, errors.NewPermanent("reference chain exceeds maximum depth", nil)
		}

		value, err := e.facade.Fetch(ctx, curHandle, curKey)
		if err != nil {
			if errors.IsMiss(err) {
				return nil, false, nil
			}
			return nil, false, err
		}

		ref, isRef := asReference(value)
		if isRef {
			parentHandle, parentKey = curHandle, curKey
			if ref.Cache != nil {
				curHandle = *ref.Cache
			}
			curKey = ref.Key
			continue
		}

		if depth == 0 {
			return value, true, nil
		}

		// reached through a reference: the original matching criteria
		// still apply to what the reference points at
		if match(value, dctx).matched() {
			return value, true, nil
		}

		e.log.Debug().
			Str(logging.Cache, parentHandle.String()).
			Str(logging.CacheKey, parentKey).
			Msg("removing dangling cache reference")
		if derr := e.facade.Delete(ctx, parentHandle, parentKey); derr != nil {
			return nil, false, derr
		}
		return nil, false, nil
	}
}

// storeResult persists a loader result, indirected through a reference
// record when the decoration derives one.
func (e *Engine) storeResult(ctx context.Context, cfg CacheableConfig, h command.Handle, key string, base command.PutOptions, result any, dctx *Context) error {
	if cfg.References == nil {
		_, err := e.storeGated(ctx, h, key, result, base, cfg.Match, dctx)
		return err
	}

	ref, ok, err := normalizeReference(cfg.References(result, dctx))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	target := h
	if ref.Cache != nil {
		target = *ref.Cache
	}
	refOpts := base
	if ref.TTL != 0 {
		refOpts = base.Merged(command.PutOptions{TTL: ref.TTL})
	}

	if _, err := e.storeGated(ctx, target, ref.Key, result, refOpts, cfg.Match, dctx); err != nil {
		return err
	}

	// the pointer write is structural and bypasses the match gate
	if err := e.facade.Put(ctx, h, key, ref, base); err != nil {
		return err
	}
	e.countPut(h)
	return nil
}

// asReference recognizes a stored reference record.
func asReference(value any) (command.KeyReference, bool) {
	switch v := value.(type) {
	case command.KeyReference:
		return v, true
	case *command.KeyReference:
		if v != nil {
			return *v, true
		}
	}
	return command.KeyReference{}, false
}

// normalizeReference turns a ReferencesFunc result into a reference
// record. ok is false when the decoration opted out of storing.
func normalizeReference(v any) (command.KeyReference, bool, error) {
	if v == nil {
		return command.KeyReference{}, false, nil
	}
	if ref, isRef := asReference(v); isRef {
		if ref.Key == "" {
			return command.KeyReference{}, false, errors.NewInvalidInput("references", "reference must name a key")
		}
		return ref, true, nil
	}
	rk, err := normalizeKey(v)
	if err != nil {
		return command.KeyReference{}, false, errors.NewInvalidInput("references", "references resolver must yield a key or reference")
	}
	return command.KeyReference{Key: rk.key}, true, nil
}
