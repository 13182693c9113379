package decorator

import (
	"context"

	"github.com/decocache/decocache/pkg/command"
	"github.com/decocache/decocache/pkg/errors"
	"github.com/decocache/decocache/pkg/logging"
)

// CacheEvictConfig declares an invalidating decoration.
type CacheEvictConfig struct {
	Module   string
	Function string

	// Cache selects the target cache. Required.
	Cache CacheSpec

	// Key selects the explicit key or key set to evict. Optional when
	// Query or AllEntries is set.
	Key KeySpec

	// Query selects entries to evict before any explicit key.
	Query *command.Query

	// AllEntries wipes the whole instance, ignoring Key and Query.
	AllEntries bool

	// BeforeInvocation evicts before the wrapped function runs; the
	// function then runs regardless of what eviction removed. The default
	// evicts after the function returns successfully.
	BeforeInvocation bool

	// OnError overrides the engine's failure policy.
	OnError OnError
}

func (cfg *CacheEvictConfig) validate() error {
	if cfg.Cache == nil {
		return errors.NewInvalidInput("cache", "cache_evict requires a cache spec")
	}
	if err := cfg.Cache.validate(); err != nil {
		return err
	}
	if !cfg.AllEntries && cfg.Key == nil && cfg.Query == nil {
		return errors.NewInvalidInput("key", "cache_evict requires a key, a query, or all_entries")
	}
	if cfg.Key != nil {
		return cfg.Key.validate()
	}
	return nil
}

// CacheEvict wraps loader with cache invalidation.
func (e *Engine) CacheEvict(cfg CacheEvictConfig, loader Loader) (Loader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	policy := e.policy(cfg.OnError)

	wrapped := func(ctx context.Context, args ...any) (any, error) {
		parent, _ := Current(ctx)
		dctx := newContext(KindCacheEvict, cfg.Module, cfg.Function, args, parent)
		ctx = push(ctx, dctx)

		if cfg.BeforeInvocation {
			if err := e.evict(ctx, cfg, dctx); err != nil {
				if policy == OnErrorRaise {
					return nil, err
				}
				e.logEvictFailure(cfg, err)
			}
			return loader(ctx, args...)
		}

		result, err := loader(ctx, args...)
		if err != nil {
			return result, err
		}
		if err := e.evict(ctx, cfg, dctx); err != nil {
			if policy == OnErrorRaise {
				// the body's side effect is already committed; the
				// caller sees the failure with the result intact
				return result, err
			}
			e.logEvictFailure(cfg, err)
		}
		return result, nil
	}
	return wrapped, nil
}

func (e *Engine) logEvictFailure(cfg CacheEvictConfig, err error) {
	e.log.Warn().
		Str(logging.Function, cfg.Function).
		Err(err).
		Msg("eviction failed, ignored by policy")
}

// evict resolves and removes the configured targets. When both a query and
// explicit keys are configured, the query match set goes first, fully,
// before any explicit key.
func (e *Engine) evict(ctx context.Context, cfg CacheEvictConfig, dctx *Context) error {
	h, err := cfg.Cache.resolve(dctx)
	if err != nil {
		return err
	}

	if cfg.AllEntries {
		if _, err := e.facade.Wipe(ctx, h); err != nil {
			return err
		}
		e.countEviction(h)
		return nil
	}

	if cfg.Query != nil {
		if _, err := e.facade.DeleteAll(ctx, h, *cfg.Query); err != nil {
			return err
		}
		e.countEviction(h)
	}

	if cfg.Key == nil {
		return nil
	}
	rk, err := cfg.Key.resolve(dctx)
	if err != nil {
		return err
	}

	switch {
	case rk.set != nil:
		for _, member := range rk.set {
			target := h
			if member.Cache != nil {
				target = *member.Cache
			}
			if err := e.facade.Delete(ctx, target, member.Key); err != nil {
				return err
			}
			e.countEviction(target)
		}
	case rk.ref != nil:
		target := h
		if rk.ref.Cache != nil {
			target = *rk.ref.Cache
		}
		if err := e.facade.Delete(ctx, target, rk.ref.Key); err != nil {
			return err
		}
		e.countEviction(target)
	default:
		if err := e.facade.Delete(ctx, h, rk.key); err != nil {
			return err
		}
		e.countEviction(h)
	}
	return nil
}
