package command

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/decocache/decocache/pkg/errors"
	"github.com/decocache/decocache/pkg/logging"
	"github.com/decocache/decocache/pkg/metrics"
)

// Observer receives the completion record of every command issued through
// the facade, synchronously on the issuing path. The event dispatch layer
// is the primary observer.
type Observer interface {
	OnCompletion(ctx context.Context, c Completion) error
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ctx context.Context, c Completion) error

// OnCompletion implements Observer.
func (f ObserverFunc) OnCompletion(ctx context.Context, c Completion) error {
	return f(ctx, c)
}

// Facade routes command verbs to registered cache backends and notifies
// observers after every command. It is safe for concurrent use.
type Facade struct {
	mu        sync.RWMutex
	adapters  map[string]Adapter
	observers []Observer
	log       *logging.Logger
}

// FacadeOption configures a Facade.
type FacadeOption func(*Facade)

// WithLogger sets the logger the facade reports infrastructure failures to.
func WithLogger(log *logging.Logger) FacadeOption {
	return func(f *Facade) {
		f.log = log.WithComponent("command")
	}
}

// NewFacade creates a facade with no registered caches.
func NewFacade(opts ...FacadeOption) *Facade {
	f := &Facade{
		adapters: make(map[string]Adapter),
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RegisterCache binds a logical cache name to a storage backend. Dynamic
// instances of the cache share the backend under distinct key namespaces.
func (f *Facade) RegisterCache(name string, adapter Adapter) error {
	if name == "" {
		return errors.NewInvalidInput("cache", "cache name must not be empty")
	}
	if adapter == nil {
		return errors.NewInvalidInput("adapter", "adapter must not be nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.adapters[name]; exists {
		return errors.NewInvalidInput("cache", "cache already registered: "+name)
	}
	f.adapters[name] = adapter
	return nil
}

// MustRegisterCache registers a cache and panics on error. Useful during
// process bootstrap where a duplicate registration is a programming error.
func (f *Facade) MustRegisterCache(name string, adapter Adapter) {
	if err := f.RegisterCache(name, adapter); err != nil {
		panic(err)
	}
}

// Caches returns the names of all registered caches.
func (f *Facade) Caches() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.adapters))
	for name := range f.adapters {
		names = append(names, name)
	}
	return names
}

// Adapter returns the backend registered for a handle's cache.
func (f *Facade) Adapter(h Handle) (Adapter, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	adapter, ok := f.adapters[h.Cache]
	if !ok {
		return nil, errors.NewInvalidInput("cache", "cache not registered: "+h.Cache)
	}
	return adapter, nil
}

// Subscribe registers an observer for command completions. Observers run
// synchronously, in registration order, on the command-issuing path.
func (f *Facade) Subscribe(o Observer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, o)
}

// Close closes every registered backend, returning the first error.
func (f *Facade) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var firstErr error
	for _, adapter := range f.adapters {
		if err := adapter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.adapters = make(map[string]Adapter)
	return firstErr
}

// Fetch returns the value stored under key.
func (f *Facade) Fetch(ctx context.Context, h Handle, key string) (any, error) {
	adapter, err := f.Adapter(h)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	value, err := adapter.Fetch(ctx, h.namespace(), key)
	f.observe(CmdFetch, h, time.Since(start), err)

	return value, f.finish(ctx, err, Completion{
		Command: CmdFetch, Handle: h, Key: key, Result: value, Err: err,
	})
}

// Put stores value under key unconditionally.
func (f *Facade) Put(ctx context.Context, h Handle, key string, value any, opts PutOptions) error {
	adapter, err := f.Adapter(h)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = adapter.Put(ctx, h.namespace(), key, value, opts.TTL, PutAlways)
	f.observe(CmdPut, h, time.Since(start), err)

	return f.finish(ctx, err, Completion{
		Command: CmdPut, Handle: h, Key: key, Result: true, Err: err,
	})
}

// PutNew stores value under key only if the key does not exist.
// Returns true if the value was stored.
func (f *Facade) PutNew(ctx context.Context, h Handle, key string, value any, opts PutOptions) (bool, error) {
	adapter, err := f.Adapter(h)
	if err != nil {
		return false, err
	}

	start := time.Now()
	stored, err := adapter.Put(ctx, h.namespace(), key, value, opts.TTL, PutIfAbsent)
	f.observe(CmdPutNew, h, time.Since(start), err)

	return stored, f.finish(ctx, err, Completion{
		Command: CmdPutNew, Handle: h, Key: key, Result: stored, Err: err,
	})
}

// PutAll stores all entries unconditionally in one batched write.
func (f *Facade) PutAll(ctx context.Context, h Handle, entries []Entry, opts PutOptions) error {
	adapter, err := f.Adapter(h)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = adapter.PutAll(ctx, h.namespace(), entries, opts.TTL, PutAlways)
	f.observe(CmdPutAll, h, time.Since(start), err)

	return f.finish(ctx, err, Completion{
		Command: CmdPutAll, Handle: h, Keys: entryKeys(entries), Result: true, Err: err,
	})
}

// PutNewAll stores all entries only if none of the keys exist.
// Returns true if the entries were stored.
func (f *Facade) PutNewAll(ctx context.Context, h Handle, entries []Entry, opts PutOptions) (bool, error) {
	adapter, err := f.Adapter(h)
	if err != nil {
		return false, err
	}

	start := time.Now()
	stored, err := adapter.PutAll(ctx, h.namespace(), entries, opts.TTL, PutIfAbsent)
	f.observe(CmdPutNewAll, h, time.Since(start), err)

	return stored, f.finish(ctx, err, Completion{
		Command: CmdPutNewAll, Handle: h, Keys: entryKeys(entries), Result: stored, Err: err,
	})
}

// Replace stores value under key only if the key already exists.
// Returns true if the value was stored.
func (f *Facade) Replace(ctx context.Context, h Handle, key string, value any, opts PutOptions) (bool, error) {
	adapter, err := f.Adapter(h)
	if err != nil {
		return false, err
	}

	start := time.Now()
	stored, err := adapter.Put(ctx, h.namespace(), key, value, opts.TTL, PutIfPresent)
	f.observe(CmdReplace, h, time.Since(start), err)

	return stored, f.finish(ctx, err, Completion{
		Command: CmdReplace, Handle: h, Key: key, Result: stored, Err: err,
	})
}

// Delete removes key. Removing an absent key is not an error.
func (f *Facade) Delete(ctx context.Context, h Handle, key string) error {
	adapter, err := f.Adapter(h)
	if err != nil {
		return err
	}

	start := time.Now()
	err = adapter.Delete(ctx, h.namespace(), key)
	f.observe(CmdDelete, h, time.Since(start), err)

	return f.finish(ctx, err, Completion{
		Command: CmdDelete, Handle: h, Key: key, Err: err,
	})
}

// DeleteAll removes every entry the query matches and returns the count.
func (f *Facade) DeleteAll(ctx context.Context, h Handle, q Query) (int, error) {
	adapter, err := f.Adapter(h)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	count, err := adapter.DeleteAll(ctx, h.namespace(), q)
	f.observe(CmdDeleteAll, h, time.Since(start), err)

	return count, f.finish(ctx, err, Completion{
		Command: CmdDeleteAll, Handle: h, Query: &q, Result: count, Err: err,
	})
}

// Wipe removes every entry of the instance. Equivalent to DeleteAll with
// a match-all query.
func (f *Facade) Wipe(ctx context.Context, h Handle) (int, error) {
	return f.DeleteAll(ctx, h, MatchAll())
}

// Take returns the value stored under key and removes it.
func (f *Facade) Take(ctx context.Context, h Handle, key string) (any, error) {
	adapter, err := f.Adapter(h)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	value, err := adapter.Take(ctx, h.namespace(), key)
	f.observe(CmdTake, h, time.Since(start), err)

	return value, f.finish(ctx, err, Completion{
		Command: CmdTake, Handle: h, Key: key, Result: value, Err: err,
	})
}

// Expire rewrites the entry's TTL. Returns true if the key existed.
func (f *Facade) Expire(ctx context.Context, h Handle, key string, ttl time.Duration) (bool, error) {
	adapter, err := f.Adapter(h)
	if err != nil {
		return false, err
	}

	start := time.Now()
	ok, err := adapter.Expire(ctx, h.namespace(), key, ttl)
	f.observe(CmdExpire, h, time.Since(start), err)

	return ok, f.finish(ctx, err, Completion{
		Command: CmdExpire, Handle: h, Key: key, Result: ok, Err: err,
	})
}

// Touch restarts the entry's TTL countdown. Returns true if the key existed.
func (f *Facade) Touch(ctx context.Context, h Handle, key string) (bool, error) {
	adapter, err := f.Adapter(h)
	if err != nil {
		return false, err
	}

	start := time.Now()
	ok, err := adapter.Touch(ctx, h.namespace(), key)
	f.observe(CmdTouch, h, time.Since(start), err)

	return ok, f.finish(ctx, err, Completion{
		Command: CmdTouch, Handle: h, Key: key, Result: ok, Err: err,
	})
}

// TTL returns the entry's remaining time to live.
func (f *Facade) TTL(ctx context.Context, h Handle, key string) (time.Duration, error) {
	adapter, err := f.Adapter(h)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	ttl, err := adapter.TTL(ctx, h.namespace(), key)
	f.observe(CmdTTL, h, time.Since(start), err)

	return ttl, f.finish(ctx, err, Completion{
		Command: CmdTTL, Handle: h, Key: key, Result: ttl, Err: err,
	})
}

// HasKey reports whether key holds an entry.
func (f *Facade) HasKey(ctx context.Context, h Handle, key string) (bool, error) {
	adapter, err := f.Adapter(h)
	if err != nil {
		return false, err
	}

	start := time.Now()
	ok, err := adapter.HasKey(ctx, h.namespace(), key)
	f.observe(CmdHasKey, h, time.Since(start), err)

	return ok, f.finish(ctx, err, Completion{
		Command: CmdHasKey, Handle: h, Key: key, Result: ok, Err: err,
	})
}

// UpdateCounter adds amount to the counter under key, initializing an
// absent counter to def first, and returns the resulting value.
func (f *Facade) UpdateCounter(ctx context.Context, h Handle, key string, amount, def int64) (int64, error) {
	adapter, err := f.Adapter(h)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	value, err := adapter.UpdateCounter(ctx, h.namespace(), key, amount, def)
	f.observe(CmdUpdateCounter, h, time.Since(start), err)

	return value, f.finish(ctx, err, Completion{
		Command: CmdUpdateCounter, Handle: h, Key: key,
		Result: CounterResult{Value: value, Amount: amount, Default: def}, Err: err,
	})
}

// CounterResult carries enough of an update_counter outcome for observers
// to tell a freshly created counter from an updated one.
type CounterResult struct {
	Value   int64
	Amount  int64
	Default int64
}

// Created reports whether the operation created the counter, which is the
// case exactly when the post-operation value equals the initialized default
// plus the applied offset.
func (r CounterResult) Created() bool {
	return r.Value == r.Default+r.Amount
}

// finish notifies observers of the completion and folds an observer
// failure into the command's returned error. The command's own outcome is
// already applied by the time observers run.
func (f *Facade) finish(ctx context.Context, opErr error, c Completion) error {
	var obsErr error
	f.mu.RLock()
	observers := f.observers
	f.mu.RUnlock()

	for _, o := range observers {
		if err := o.OnCompletion(ctx, c); err != nil {
			if obsErr == nil {
				obsErr = err
			}
			f.log.Warn().
				Str(logging.Command, string(c.Command)).
				Str(logging.Cache, c.Handle.String()).
				Err(err).
				Msg("command observer failed")
		}
	}

	if opErr != nil && !errors.IsNotFound(opErr) {
		f.log.Debug().
			Str(logging.Command, string(c.Command)).
			Str(logging.Cache, c.Handle.String()).
			Err(opErr).
			Msg("command failed")
	}

	switch {
	case opErr == nil:
		return obsErr
	case obsErr == nil:
		return opErr
	default:
		return stderrors.Join(opErr, obsErr)
	}
}

// observe records command metrics when the standard collectors are
// initialized.
func (f *Facade) observe(cmd Command, h Handle, elapsed time.Duration, err error) {
	if d := metrics.GetCommandDuration(); d != nil {
		d.Observe(elapsed.Seconds(), string(cmd), h.Cache)
	}
	if c := metrics.GetCommandCount(); c != nil {
		outcome := "ok"
		switch {
		case err == nil:
		case errors.IsNotFound(err):
			outcome = "miss"
		default:
			outcome = "error"
		}
		c.Inc(string(cmd), h.Cache, outcome)
	}
}

func entryKeys(entries []Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}
