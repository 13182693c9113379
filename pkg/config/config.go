// Package config provides configuration management for the decocache engine.
// It supports loading configuration from YAML files, JSON files, and
// environment variables with automatic validation and default value
// application.
//
// Example usage:
//
//	cfg, err := config.Load("config.yaml", "DECOCACHE")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Or panic on error:
//	cfg := config.MustLoad("config.yaml", "DECOCACHE")
package config

import (
	"time"
)

// Config represents the complete configuration for a decocache-based service.
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Decorator DecoratorConfig `mapstructure:"decorator"`
	Events    EventsConfig    `mapstructure:"events"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServiceConfig contains general service information.
type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"` // development, staging, production
}

// CacheConfig contains the Redis backend configuration. When Host is empty
// the engine runs on the in-memory backend only.
type CacheConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`

	// MaxEntries bounds the in-memory backend's capacity.
	MaxEntries int `mapstructure:"max_entries"`
}

// DecoratorConfig contains engine-wide defaults for decorated functions.
// Each declaration can override these per call site.
type DecoratorConfig struct {
	// DefaultTTL applies to stored values when a declaration sets none.
	// 0 means no expiration.
	DefaultTTL time.Duration `mapstructure:"default_ttl"`

	// OnError selects the default infrastructure-failure policy:
	// "raise" or "ignore".
	OnError string `mapstructure:"on_error"`

	// MaxReferenceDepth bounds reference-chain resolution. A chain longer
	// than this raises a permanent error instead of looping.
	MaxReferenceDepth int `mapstructure:"max_reference_depth"`
}

// EventsConfig contains configuration for forwarding cache-entry events to
// NATS. Forwarding is optional; listeners always run in-process regardless.
type EventsConfig struct {
	Servers []string `mapstructure:"servers"` // NATS server URLs
	Subject string   `mapstructure:"subject"` // Subject events are published to
}

// LogConfig contains structured logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Port      int    `mapstructure:"port"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"` // Metric prefix
}
