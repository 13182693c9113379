// Package service wires a complete caching service from configuration:
// logging, metrics, the command facade with its backends, the decoration
// engine, event dispatch, optional NATS forwarding, and health checks,
// with LIFO cleanup and signal-driven shutdown.
//
// Example usage:
//
//	cfg := config.MustLoad("config.yaml", "DECOCACHE")
//	b, err := service.NewBootstrap(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Cleanup(ctx)
//
//	if err := b.RegisterMemoryCache("users"); err != nil {
//	    log.Fatal(err)
//	}
//	// decorate functions via b.Engine, register listeners via b.Dispatcher
package service

import (
	"context"
	"fmt"

	"github.com/decocache/decocache/pkg/command"
	"github.com/decocache/decocache/pkg/config"
	"github.com/decocache/decocache/pkg/decorator"
	"github.com/decocache/decocache/pkg/event"
	"github.com/decocache/decocache/pkg/health"
	"github.com/decocache/decocache/pkg/logging"
	"github.com/decocache/decocache/pkg/metrics"
)

// Bootstrap holds the initialized components of a caching service.
type Bootstrap struct {
	Config     *config.Config
	Logger     *logging.Logger
	Facade     *command.Facade
	Engine     *decorator.Engine
	Dispatcher *event.Dispatcher
	Health     *health.Health

	forwarder *event.Forwarder
	cleanup   []func(context.Context) error
}

// BootstrapOption is a functional option for configuring bootstrap behavior.
type BootstrapOption func(*bootstrapConfig)

type bootstrapConfig struct {
	skipMetrics bool
	skipEvents  bool
	skipLogger  bool
}

// WithoutMetrics disables metrics initialization during bootstrap.
func WithoutMetrics() BootstrapOption {
	return func(c *bootstrapConfig) {
		c.skipMetrics = true
	}
}

// WithoutEventForwarding disables the NATS forwarder even when servers are
// configured. In-process listeners are unaffected.
func WithoutEventForwarding() BootstrapOption {
	return func(c *bootstrapConfig) {
		c.skipEvents = true
	}
}

// WithoutLogger disables logger initialization. Rarely needed outside
// tests.
func WithoutLogger() BootstrapOption {
	return func(c *bootstrapConfig) {
		c.skipLogger = true
	}
}

// NewBootstrap initializes the service components from configuration, in
// dependency order: logger, metrics, facade, dispatcher, engine, forwarder.
func NewBootstrap(ctx context.Context, cfg *config.Config, opts ...BootstrapOption) (*Bootstrap, error) {
	bc := &bootstrapConfig{}
	for _, opt := range opts {
		opt(bc)
	}

	b := &Bootstrap{
		Config:  cfg,
		Logger:  logging.Nop(),
		Health:  health.New(),
		cleanup: make([]func(context.Context) error, 0),
	}

	if !bc.skipLogger {
		b.Logger = logging.New(cfg.Log)
		b.Logger.Info().
			Str(logging.ServiceName, cfg.Service.Name).
			Str("version", cfg.Service.Version).
			Str("env", cfg.Service.Env).
			Msg("Service starting")
	}

	if !bc.skipMetrics && cfg.Metrics.Enabled {
		if err := metrics.Init(cfg.Metrics); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
		b.cleanup = append(b.cleanup, metrics.Shutdown)

		if err := metrics.InitStandardMetrics(cfg.Metrics.Namespace); err != nil {
			_ = b.Cleanup(ctx)
			return nil, fmt.Errorf("failed to initialize standard metrics: %w", err)
		}
		b.Logger.Info().
			Int("port", cfg.Metrics.Port).
			Str("path", cfg.Metrics.Path).
			Msg("Metrics initialized")
	}

	b.Facade = command.NewFacade(command.WithLogger(b.Logger))
	b.cleanup = append(b.cleanup, func(context.Context) error {
		return b.Facade.Close()
	})

	b.Dispatcher = event.NewDispatcher(event.WithLogger(b.Logger))
	b.Facade.Subscribe(b.Dispatcher)

	b.Engine = decorator.NewEngine(b.Facade,
		decorator.WithEngineLogger(b.Logger),
		decorator.WithConfig(cfg.Decorator),
	)

	if !bc.skipEvents && len(cfg.Events.Servers) > 0 {
		forwarder, err := event.NewForwarder(cfg.Events)
		if err != nil {
			_ = b.Cleanup(ctx)
			return nil, fmt.Errorf("failed to initialize event forwarder: %w", err)
		}
		b.forwarder = forwarder
		b.cleanup = append(b.cleanup, func(context.Context) error {
			return forwarder.Close()
		})
		b.Logger.Info().
			Str("subject", cfg.Events.Subject).
			Msg("Event forwarding initialized")
	}

	return b, nil
}

// RegisterMemoryCache registers an in-process LRU cache under name and
// wires it into health checks.
func (b *Bootstrap) RegisterMemoryCache(name string) error {
	backend := command.NewMemory(command.MemoryConfig{MaxEntries: b.Config.Cache.MaxEntries})
	return b.registerCache(name, backend)
}

// RegisterRedisCache registers a redis-backed cache under name and wires
// it into health checks. The backend is shared connection state; register
// multiple logical caches each with their own call.
func (b *Bootstrap) RegisterRedisCache(ctx context.Context, name string) error {
	backend, err := command.NewRedis(ctx, b.Config.Cache)
	if err != nil {
		return err
	}
	return b.registerCache(name, backend)
}

func (b *Bootstrap) registerCache(name string, backend command.Adapter) error {
	if err := b.Facade.RegisterCache(name, backend); err != nil {
		_ = backend.Close()
		return err
	}
	b.Health.RegisterChecker("cache:"+name, backend)
	b.Logger.Info().Str(logging.Cache, name).Msg("Cache registered")
	return nil
}

// ForwardEvents registers the NATS forwarder as a listener for one cache
// instance. It fails when no forwarder was configured.
func (b *Bootstrap) ForwardEvents(cache, instance string) error {
	if b.forwarder == nil {
		return fmt.Errorf("event forwarding is not configured")
	}
	return b.Dispatcher.Register(event.Registration{
		Cache:    cache,
		Instance: instance,
		ID:       "nats-forwarder",
		Listener: b.forwarder.Forward,
	})
}

// Cleanup shuts down all initialized components in reverse order (LIFO).
// Always defer this after creating a Bootstrap.
func (b *Bootstrap) Cleanup(ctx context.Context) error {
	for i := len(b.cleanup) - 1; i >= 0; i-- {
		if err := b.cleanup[i](ctx); err != nil {
			b.Logger.Error().Err(err).Msg("Cleanup error")
		}
	}
	b.cleanup = nil
	b.Logger.Info().Msg("Cleanup completed")
	return nil
}

// AddCleanup adds a cleanup function executed during Cleanup, in reverse
// registration order.
func (b *Bootstrap) AddCleanup(fn func(context.Context) error) {
	b.cleanup = append(b.cleanup, fn)
}
