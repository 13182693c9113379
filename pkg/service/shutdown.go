package service

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ShutdownConfig configures graceful shutdown behavior.
type ShutdownConfig struct {
	// Timeout is the maximum time to wait for cleanup.
	Timeout time.Duration

	// Signals is the list of OS signals that trigger shutdown.
	// If empty, defaults to SIGINT and SIGTERM.
	Signals []os.Signal
}

// DefaultShutdownConfig returns sensible default shutdown configuration.
func DefaultShutdownConfig() ShutdownConfig {
	return ShutdownConfig{
		Timeout: 30 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// WaitForShutdown blocks until a shutdown signal is received, then runs
// the bootstrap's cleanup under the default timeout.
//
// Example:
//
//	b, err := service.NewBootstrap(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	service.WaitForShutdown(ctx, b)
func WaitForShutdown(ctx context.Context, b *Bootstrap) {
	WaitForShutdownWithConfig(ctx, DefaultShutdownConfig(), b)
}

// WaitForShutdownWithConfig is like WaitForShutdown but accepts custom
// shutdown configuration.
func WaitForShutdownWithConfig(ctx context.Context, cfg ShutdownConfig, b *Bootstrap) {
	signals := cfg.Signals
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, signals...)

	sig := <-quit
	signal.Stop(quit)
	b.Logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	_ = b.Cleanup(shutdownCtx)
}
