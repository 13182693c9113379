package event

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/decocache/decocache/pkg/errors"
)

// Registration declares a listener for one cache instance.
type Registration struct {
	// Cache names the logical cache observed. Required.
	Cache string

	// Instance names a dynamic instance. Empty observes the default
	// instance.
	Instance string

	// ID identifies the registration within its cache instance. Empty
	// derives an id from the listener's function identity, so the same
	// function re-registers as a no-op while a distinct listener
	// colliding on the derived id is rejected.
	ID string

	// Filter gates delivery. Nil delivers every event.
	Filter Filter

	// Metadata is copied onto every delivered event.
	Metadata map[string]string

	// Listener is the callback. Required.
	Listener Listener
}

// regKey addresses one registration in the registry.
type regKey struct {
	cache    string
	instance string
	id       string
}

// registry holds listener registrations keyed by (cache, instance, id).
type registry struct {
	mu      sync.RWMutex
	entries map[regKey]*registration
}

type registration struct {
	key         regKey
	fingerprint uintptr
	filter      Filter
	metadata    map[string]string
	listener    Listener
}

func newRegistry() *registry {
	return &registry{entries: make(map[regKey]*registration)}
}

// defaultID derives a registration id from the listener's own identity.
func defaultID(l Listener) (string, uintptr) {
	ptr := reflect.ValueOf(l).Pointer()
	return fmt.Sprintf("listener-%x", ptr), ptr
}

// register adds a registration. Re-registering the same listener under the
// same key is a no-op; a different listener under an existing key fails.
func (r *registry) register(reg Registration) error {
	if reg.Cache == "" {
		return errors.NewInvalidInput("cache", "registration requires a cache")
	}
	if reg.Listener == nil {
		return errors.NewInvalidInput("listener", "registration requires a listener")
	}

	id := reg.ID
	fp := uintptr(0)
	if id == "" {
		id, fp = defaultID(reg.Listener)
	}
	key := regKey{cache: reg.Cache, instance: reg.Instance, id: id}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[key]; ok {
		if fp != 0 && existing.fingerprint == fp {
			return nil
		}
		return errors.NewInvalidInput("listener", "listener already exists: "+id)
	}

	r.entries[key] = &registration{
		key:         key,
		fingerprint: fp,
		filter:      reg.Filter,
		metadata:    reg.Metadata,
		listener:    reg.Listener,
	}
	return nil
}

// unregister removes a registration. Removing an absent one is not an
// error.
func (r *registry) unregister(cache, instance, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, regKey{cache: cache, instance: instance, id: id})
}

// detach removes a registration by its full key.
func (r *registry) detach(key regKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// forInstance returns the registrations observing a cache instance.
func (r *registry) forInstance(cache, instance string) []*registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*registration
	for key, reg := range r.entries {
		if key.cache == cache && key.instance == instance {
			out = append(out, reg)
		}
	}
	return out
}

// size returns the number of live registrations.
func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
