package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/decocache/decocache/pkg/config"
	"github.com/decocache/decocache/pkg/errors"
	"github.com/decocache/decocache/pkg/retry"
)

// redisEnvelope is the stored wire form of a value. References and plain
// values are tagged so Fetch can hand a KeyReference back to the decorator
// layer. The write-time TTL rides along so Touch can restart the full
// countdown, which redis itself cannot do.
//
// Counters are the exception: update_counter stores bare integers so
// INCRBY works on them, and decode falls back accordingly.
type redisEnvelope struct {
	Ref *KeyReference   `json:"ref,omitempty"`
	Val json.RawMessage `json:"val,omitempty"`
	TTL time.Duration   `json:"ttl,omitempty"`
}

// Redis is a redis-backed storage backend.
type Redis struct {
	client *redis.Client
	cfg    config.CacheConfig
}

// NewRedis creates a redis backend and verifies connectivity, retrying
// transient dial failures before giving up.
func NewRedis(ctx context.Context, cfg config.CacheConfig) (*Redis, error) {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}

	client := redis.NewClient(opts)

	err := retry.Do(ctx, retry.Config{Policy: retry.PolicyTemporary}, func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.NewTemporary("failed to connect to redis", err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Redis{client: client, cfg: cfg}, nil
}

func (r *Redis) fullKey(ns, key string) string {
	return Key(r.cfg.KeyPrefix, ns, key)
}

func (r *Redis) encode(value any, ttl time.Duration) ([]byte, error) {
	env := redisEnvelope{}
	switch v := value.(type) {
	case KeyReference:
		env.Ref = &v
	case *KeyReference:
		env.Ref = v
	default:
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, errors.NewPermanent("failed to marshal cache value", err)
		}
		env.Val = raw
	}
	if ttl > 0 {
		env.TTL = ttl
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.NewPermanent("failed to marshal cache envelope", err)
	}
	return data, nil
}

func (r *Redis) decode(data []byte) (any, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	if env == nil {
		// bare integer, a counter entry
		n, _ := strconv.ParseInt(string(data), 10, 64)
		return n, nil
	}
	if env.Ref != nil {
		return *env.Ref, nil
	}
	var value any
	if err := json.Unmarshal(env.Val, &value); err != nil {
		return nil, errors.NewPermanent("failed to unmarshal cache value", err)
	}
	return value, nil
}

// decodeEnvelope parses a stored payload. A nil envelope with nil error
// means the payload is a bare counter integer.
func decodeEnvelope(data []byte) (*redisEnvelope, error) {
	var env redisEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		if _, perr := strconv.ParseInt(string(data), 10, 64); perr == nil {
			return nil, nil
		}
		return nil, errors.NewPermanent("failed to unmarshal cache envelope", err)
	}
	return &env, nil
}

// Fetch implements Adapter. Redis cannot tell an expired key from a
// missing one, so both surface as NotFoundError.
func (r *Redis) Fetch(ctx context.Context, ns, key string) (any, error) {
	data, err := r.client.Get(ctx, r.fullKey(ns, key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NewNotFound("cache entry", key)
		}
		return nil, errors.NewTemporary("failed to fetch cache entry", err)
	}
	return r.decode(data)
}

// Put implements Adapter.
func (r *Redis) Put(ctx context.Context, ns, key string, value any, ttl time.Duration, mode PutMode) (bool, error) {
	data, err := r.encode(value, ttl)
	if err != nil {
		return false, err
	}

	fk := r.fullKey(ns, key)
	switch mode {
	case PutIfAbsent:
		stored, err := r.client.SetNX(ctx, fk, data, ttl).Result()
		if err != nil {
			return false, errors.NewTemporary("failed to put cache entry", err)
		}
		return stored, nil
	case PutIfPresent:
		stored, err := r.client.SetXX(ctx, fk, data, ttl).Result()
		if err != nil {
			return false, errors.NewTemporary("failed to put cache entry", err)
		}
		return stored, nil
	default:
		if err := r.client.Set(ctx, fk, data, ttl).Err(); err != nil {
			return false, errors.NewTemporary("failed to put cache entry", err)
		}
		return true, nil
	}
}

// PutAll implements Adapter. PutIfAbsent batches are all-or-nothing via
// MSETNX; the TTL is applied in a follow-up pipeline.
func (r *Redis) PutAll(ctx context.Context, ns string, entries []Entry, ttl time.Duration, mode PutMode) (bool, error) {
	if len(entries) == 0 {
		return true, nil
	}

	if mode == PutIfAbsent {
		pairs := make([]any, 0, len(entries)*2)
		for _, e := range entries {
			data, err := r.encode(e.Value, ttl)
			if err != nil {
				return false, err
			}
			pairs = append(pairs, r.fullKey(ns, e.Key), data)
		}
		stored, err := r.client.MSetNX(ctx, pairs...).Result()
		if err != nil {
			return false, errors.NewTemporary("failed to put cache entries", err)
		}
		if stored && ttl > 0 {
			pipe := r.client.Pipeline()
			for _, e := range entries {
				pipe.PExpire(ctx, r.fullKey(ns, e.Key), ttl)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return true, errors.NewTemporary("failed to expire cache entries", err)
			}
		}
		return stored, nil
	}

	pipe := r.client.Pipeline()
	for _, e := range entries {
		data, err := r.encode(e.Value, ttl)
		if err != nil {
			return false, err
		}
		fk := r.fullKey(ns, e.Key)
		if mode == PutIfPresent {
			pipe.SetXX(ctx, fk, data, ttl)
		} else {
			pipe.Set(ctx, fk, data, ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, errors.NewTemporary("failed to put cache entries", err)
	}
	return true, nil
}

// Delete implements Adapter.
func (r *Redis) Delete(ctx context.Context, ns, key string) error {
	if err := r.client.Del(ctx, r.fullKey(ns, key)).Err(); err != nil {
		return errors.NewTemporary("failed to delete cache entry", err)
	}
	return nil
}

// DeleteAll implements Adapter. Pattern queries map onto redis SCAN glob
// matching; predicate queries need value visibility and only the memory
// backend supports them.
func (r *Redis) DeleteAll(ctx context.Context, ns string, q Query) (int, error) {
	if q.Predicate != nil {
		return 0, errors.NewInvalidInput("query", "predicate queries require the memory backend")
	}

	pattern := q.Pattern
	if q.All {
		pattern = "*"
	}
	if pattern == "" {
		return 0, errors.NewInvalidInput("query", "query selects nothing")
	}

	match := r.fullKey(ns, pattern)
	count := 0
	iter := r.client.Scan(ctx, 0, match, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			n, err := r.client.Del(ctx, batch...).Result()
			if err != nil {
				return count, errors.NewTemporary("failed to delete cache entries", err)
			}
			count += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return count, errors.NewTemporary("failed to scan cache entries", err)
	}
	if len(batch) > 0 {
		n, err := r.client.Del(ctx, batch...).Result()
		if err != nil {
			return count, errors.NewTemporary("failed to delete cache entries", err)
		}
		count += int(n)
	}
	return count, nil
}

// Take implements Adapter.
func (r *Redis) Take(ctx context.Context, ns, key string) (any, error) {
	data, err := r.client.GetDel(ctx, r.fullKey(ns, key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NewNotFound("cache entry", key)
		}
		return nil, errors.NewTemporary("failed to take cache entry", err)
	}
	return r.decode(data)
}

// Expire implements Adapter.
func (r *Redis) Expire(ctx context.Context, ns, key string, ttl time.Duration) (bool, error) {
	fk := r.fullKey(ns, key)
	if ttl > 0 {
		ok, err := r.client.PExpire(ctx, fk, ttl).Result()
		if err != nil {
			return false, errors.NewTemporary("failed to expire cache entry", err)
		}
		return ok, nil
	}

	exists, err := r.client.Exists(ctx, fk).Result()
	if err != nil {
		return false, errors.NewTemporary("failed to expire cache entry", err)
	}
	if exists == 0 {
		return false, nil
	}
	if err := r.client.Persist(ctx, fk).Err(); err != nil {
		return false, errors.NewTemporary("failed to expire cache entry", err)
	}
	return true, nil
}

// Touch implements Adapter. The write-time TTL is read back from the
// stored envelope so the countdown restarts in full. Counter entries have
// no envelope and keep their remaining TTL.
func (r *Redis) Touch(ctx context.Context, ns, key string) (bool, error) {
	fk := r.fullKey(ns, key)
	data, err := r.client.Get(ctx, fk).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, errors.NewTemporary("failed to touch cache entry", err)
	}

	env, err := decodeEnvelope(data)
	if err != nil {
		return false, err
	}
	if env == nil || env.TTL <= 0 {
		return true, nil
	}
	if err := r.client.PExpire(ctx, fk, env.TTL).Err(); err != nil {
		return false, errors.NewTemporary("failed to touch cache entry", err)
	}
	return true, nil
}

// TTL implements Adapter.
func (r *Redis) TTL(ctx context.Context, ns, key string) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, r.fullKey(ns, key)).Result()
	if err != nil {
		return 0, errors.NewTemporary("failed to read cache entry ttl", err)
	}
	// go-redis passes PTTL's sentinel replies through as raw durations:
	// -2 means the key is missing, -1 means no expiration.
	switch ttl {
	case time.Duration(-2):
		return 0, errors.NewNotFound("cache entry", key)
	case time.Duration(-1):
		return 0, nil
	default:
		return ttl, nil
	}
}

// HasKey implements Adapter.
func (r *Redis) HasKey(ctx context.Context, ns, key string) (bool, error) {
	count, err := r.client.Exists(ctx, r.fullKey(ns, key)).Result()
	if err != nil {
		return false, errors.NewTemporary("failed to check cache entry", err)
	}
	return count > 0, nil
}

// UpdateCounter implements Adapter. The counter is stored as a bare
// integer so INCRBY applies; SETNX seeds the default exactly once.
func (r *Redis) UpdateCounter(ctx context.Context, ns, key string, amount, def int64) (int64, error) {
	fk := r.fullKey(ns, key)
	if err := r.client.SetNX(ctx, fk, def, 0).Err(); err != nil {
		return 0, errors.NewTemporary("failed to initialize counter", err)
	}
	value, err := r.client.IncrBy(ctx, fk, amount).Result()
	if err != nil {
		return 0, errors.NewTemporary("failed to update counter", err)
	}
	return value, nil
}

// Check implements health.Checker.
func (r *Redis) Check(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.NewTemporary("redis unreachable", err)
	}
	return nil
}

// Close implements Adapter.
func (r *Redis) Close() error {
	return r.client.Close()
}
