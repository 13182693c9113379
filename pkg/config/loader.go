package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from a file and environment variables.
// The prefix parameter is used for environment variable names
// (e.g., "DECOCACHE" -> DECOCACHE_CACHE_HOST).
// If configPath is empty, only environment variables will be used.
func Load(configPath, envPrefix string) (*Config, error) {
	v := viper.New()

	// Configure environment variable handling
	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, and AutomaticEnv alone
	// does not register any. Bind every config key so env-only values
	// survive without a config file.
	bindEnvKeys(v)

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"service.name", "service.version", "service.env",
		"cache.host", "cache.port", "cache.password", "cache.db",
		"cache.key_prefix", "cache.max_retries", "cache.dial_timeout",
		"cache.read_timeout", "cache.write_timeout", "cache.pool_size",
		"cache.min_idle_conns", "cache.max_entries",
		"decorator.default_ttl", "decorator.on_error", "decorator.max_reference_depth",
		"events.servers", "events.subject",
		"log.level", "log.format", "log.output",
		"metrics.enabled", "metrics.port", "metrics.path", "metrics.namespace",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// MustLoad loads configuration and panics on error.
// This is useful in main() where configuration errors should be fatal.
func MustLoad(configPath, envPrefix string) *Config {
	cfg, err := Load(configPath, envPrefix)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFromEnv loads configuration only from environment variables (no config file).
func LoadFromEnv(envPrefix string) (*Config, error) {
	return Load("", envPrefix)
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
func MustLoadFromEnv(envPrefix string) *Config {
	return MustLoad("", envPrefix)
}
