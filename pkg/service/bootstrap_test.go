package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/decocache/decocache/pkg/command"
	"github.com/decocache/decocache/pkg/config"
	"github.com/decocache/decocache/pkg/decorator"
	"github.com/decocache/decocache/pkg/event"
)

func testConfig() *config.Config {
	return &config.Config{
		Service: config.ServiceConfig{Name: "test-service", Version: "0.0.1", Env: "development"},
		Cache:   config.CacheConfig{MaxEntries: 100},
		Decorator: config.DecoratorConfig{
			DefaultTTL:        time.Minute,
			OnError:           "raise",
			MaxReferenceDepth: 8,
		},
		Log: config.LogConfig{Level: "error", Format: "json", Output: "stderr"},
	}
}

func TestBootstrapWiring(t *testing.T) {
	ctx := context.Background()

	b, err := NewBootstrap(ctx, testConfig(), WithoutLogger())
	if err != nil {
		t.Fatalf("NewBootstrap failed: %v", err)
	}
	defer b.Cleanup(ctx)

	if b.Facade == nil || b.Engine == nil || b.Dispatcher == nil || b.Health == nil {
		t.Fatal("Bootstrap left components nil")
	}

	if err := b.RegisterMemoryCache("users"); err != nil {
		t.Fatalf("RegisterMemoryCache failed: %v", err)
	}

	t.Run("facade serves the cache", func(t *testing.T) {
		h := command.Handle{Cache: "users"}
		if err := b.Facade.Put(ctx, h, "k", "v", command.PutOptions{}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if v, err := b.Facade.Fetch(ctx, h, "k"); err != nil || v != "v" {
			t.Errorf("Fetch failed: %v err=%v", v, err)
		}
	})

	t.Run("health check covers the cache", func(t *testing.T) {
		if err := b.Health.CheckComponent(ctx, "cache:users"); err != nil {
			t.Errorf("Expected healthy cache, got %v", err)
		}
	})

	t.Run("dispatcher is subscribed", func(t *testing.T) {
		var events atomic.Int64
		if err := b.Dispatcher.Register(event.Registration{
			Cache: "users",
			Listener: func(context.Context, event.CacheEntryEvent) error {
				events.Add(1)
				return nil
			},
		}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if err := b.Facade.Put(ctx, command.Handle{Cache: "users"}, "k2", "v", command.PutOptions{}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if events.Load() != 1 {
			t.Errorf("Expected 1 dispatched event, got %d", events.Load())
		}
	})

	t.Run("engine applies config defaults", func(t *testing.T) {
		var loads atomic.Int64
		wrapped, err := b.Engine.Cacheable(decorator.CacheableConfig{
			Function: "F",
			Cache:    decorator.Cache("users"),
			Key:      decorator.Key("decorated"),
		}, func(ctx context.Context, args ...any) (any, error) {
			loads.Add(1)
			return "v", nil
		})
		if err != nil {
			t.Fatalf("Cacheable failed: %v", err)
		}
		for i := 0; i < 2; i++ {
			if _, err := wrapped(ctx); err != nil {
				t.Fatalf("wrapped call failed: %v", err)
			}
		}
		if loads.Load() != 1 {
			t.Errorf("Expected one load, got %d", loads.Load())
		}
		// DefaultTTL from config applies to the stored entry
		ttl, err := b.Facade.TTL(ctx, command.Handle{Cache: "users"}, "decorated")
		if err != nil || ttl <= 0 || ttl > time.Minute {
			t.Errorf("Expected config default TTL applied, got %v err=%v", ttl, err)
		}
	})
}

func TestBootstrapForwardEventsUnconfigured(t *testing.T) {
	ctx := context.Background()
	b, err := NewBootstrap(ctx, testConfig(), WithoutLogger())
	if err != nil {
		t.Fatalf("NewBootstrap failed: %v", err)
	}
	defer b.Cleanup(ctx)

	if err := b.ForwardEvents("users", ""); err == nil {
		t.Error("Expected an error without a configured forwarder")
	}
}

func TestBootstrapCleanupOrder(t *testing.T) {
	ctx := context.Background()
	b, err := NewBootstrap(ctx, testConfig(), WithoutLogger())
	if err != nil {
		t.Fatalf("NewBootstrap failed: %v", err)
	}

	var order []string
	b.AddCleanup(func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	b.AddCleanup(func(context.Context) error {
		order = append(order, "second")
		return nil
	})

	if err := b.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("Cleanup must run in reverse order, got %v", order)
	}
}

func TestBootstrapDuplicateCacheRejected(t *testing.T) {
	ctx := context.Background()
	b, err := NewBootstrap(ctx, testConfig(), WithoutLogger())
	if err != nil {
		t.Fatalf("NewBootstrap failed: %v", err)
	}
	defer b.Cleanup(ctx)

	if err := b.RegisterMemoryCache("users"); err != nil {
		t.Fatalf("RegisterMemoryCache failed: %v", err)
	}
	if err := b.RegisterMemoryCache("users"); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
}
