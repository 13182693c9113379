package config

import (
	"fmt"
	"time"
)

// Validate validates the configuration and returns an error if any required
// fields are missing or have invalid values.
func Validate(cfg *Config) error {
	// Validate Cache config (if the Redis backend is used)
	if cfg.Cache.Host != "" {
		if cfg.Cache.Port == 0 {
			return fmt.Errorf("cache.port is required when cache.host is set")
		}
	}
	if cfg.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative")
	}

	// Validate Decorator config
	switch cfg.Decorator.OnError {
	case "", "raise", "ignore":
	default:
		return fmt.Errorf("decorator.on_error must be \"raise\" or \"ignore\", got %q", cfg.Decorator.OnError)
	}
	if cfg.Decorator.MaxReferenceDepth < 0 {
		return fmt.Errorf("decorator.max_reference_depth must not be negative")
	}

	// Validate Events config (if forwarding is enabled)
	if len(cfg.Events.Servers) > 0 && cfg.Events.Subject == "" {
		return fmt.Errorf("events.subject is required when events.servers are configured")
	}

	// Validate Metrics config (if enabled)
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port == 0 {
			return fmt.Errorf("metrics.port is required when metrics are enabled")
		}
	}

	return nil
}

// applyDefaults applies default values to the configuration where values are not set.
func applyDefaults(cfg *Config) {
	// Service defaults
	if cfg.Service.Env == "" {
		cfg.Service.Env = "development"
	}

	// Cache defaults
	if cfg.Cache.Host != "" {
		if cfg.Cache.MaxRetries == 0 {
			cfg.Cache.MaxRetries = 3
		}
		if cfg.Cache.DialTimeout == 0 {
			cfg.Cache.DialTimeout = 5 * time.Second
		}
		if cfg.Cache.ReadTimeout == 0 {
			cfg.Cache.ReadTimeout = 3 * time.Second
		}
		if cfg.Cache.WriteTimeout == 0 {
			cfg.Cache.WriteTimeout = 3 * time.Second
		}
		if cfg.Cache.PoolSize == 0 {
			cfg.Cache.PoolSize = 10
		}
		if cfg.Cache.MinIdleConns == 0 {
			cfg.Cache.MinIdleConns = 2
		}
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 10000
	}

	// Decorator defaults
	if cfg.Decorator.OnError == "" {
		cfg.Decorator.OnError = "raise"
	}
	if cfg.Decorator.MaxReferenceDepth == 0 {
		cfg.Decorator.MaxReferenceDepth = 8
	}

	// Log defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	// Metrics defaults
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Path == "" {
			cfg.Metrics.Path = "/metrics"
		}
		if cfg.Metrics.Namespace == "" {
			cfg.Metrics.Namespace = "decocache"
		}
	}
}
