package command

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/decocache/decocache/pkg/errors"
)

// InstanceInfo describes one dynamic instance of a logical cache.
type InstanceInfo struct {
	Cache     string            `json:"cache"`
	Instance  string            `json:"instance"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Handle returns the handle addressing this instance's key namespace.
func (i InstanceInfo) Handle() Handle {
	return Handle{Cache: i.Cache, Instance: i.Instance}
}

// Manager tracks dynamic instances of logical caches. Instances share
// the logical cache's backend and differ only in key namespace, so
// creating one is a bookkeeping operation; dropping one wipes its keys
// through the facade.
type Manager struct {
	facade    *Facade
	instances sync.Map // map[string]InstanceInfo (key: Handle.String())
}

// NewManager creates a manager tracking instances served by f.
func NewManager(f *Facade) *Manager {
	return &Manager{facade: f}
}

// Create registers a dynamic instance of a logical cache. When instance
// is empty a UUID is generated. The logical cache must already be
// registered with the facade.
func (m *Manager) Create(cache, instance string, metadata map[string]string) (InstanceInfo, error) {
	if cache == "" {
		return InstanceInfo{}, errors.NewInvalidInput("cache", "cache name is required")
	}
	if _, err := m.facade.Adapter(Handle{Cache: cache}); err != nil {
		return InstanceInfo{}, err
	}
	if instance == "" {
		instance = uuid.New().String()
	}

	info := InstanceInfo{
		Cache:     cache,
		Instance:  instance,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if info.Metadata == nil {
		info.Metadata = make(map[string]string)
	}

	if _, loaded := m.instances.LoadOrStore(info.Handle().String(), info); loaded {
		return InstanceInfo{}, errors.NewInvalidInput("instance", "instance already exists: "+info.Handle().String())
	}
	return info, nil
}

// Lookup returns the recorded instance for h.
func (m *Manager) Lookup(h Handle) (InstanceInfo, error) {
	v, ok := m.instances.Load(h.String())
	if !ok {
		return InstanceInfo{}, errors.NewNotFound("cache instance", h.String())
	}
	return v.(InstanceInfo), nil
}

// List returns all instances of a logical cache, oldest first.
func (m *Manager) List(cache string) []InstanceInfo {
	var results []InstanceInfo
	m.instances.Range(func(_, value any) bool {
		info := value.(InstanceInfo)
		if info.Cache == cache {
			results = append(results, info)
		}
		return true
	})
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	return results
}

// Drop wipes the instance's keys and removes its record. It returns the
// number of deleted entries.
func (m *Manager) Drop(ctx context.Context, h Handle) (int, error) {
	v, ok := m.instances.LoadAndDelete(h.String())
	if !ok {
		return 0, errors.NewNotFound("cache instance", h.String())
	}
	info := v.(InstanceInfo)
	n, err := m.facade.DeleteAll(ctx, info.Handle(), MatchAll())
	if err != nil {
		m.instances.Store(h.String(), info)
		return 0, err
	}
	return n, nil
}

// Close drops all records without touching stored keys.
func (m *Manager) Close() error {
	m.instances.Range(func(key, _ any) bool {
		m.instances.Delete(key)
		return true
	})
	return nil
}
