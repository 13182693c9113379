// Package logging provides structured logging with zerolog for the decocache
// engine. It supports configurable log levels, output formats (JSON/console),
// and carrying a logger through context for decorated call paths.
//
// Example usage:
//
//	cfg := config.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//	logger := logging.New(cfg)
//	logger.Info().Str("cache", "users").Msg("cache registered")
package logging

// Standard field names for structured logging.
// These constants ensure consistent field naming across all packages.
const (
	// Component is the field name for the component/package generating the log.
	Component = "component"

	// Cache is the field name for the logical cache identity.
	Cache = "cache"

	// Instance is the field name for a dynamic cache instance name.
	Instance = "instance"

	// CacheKey is the field name for the cache key an operation addressed.
	CacheKey = "key"

	// Command is the field name for the facade command verb.
	Command = "command"

	// Decorator is the field name for the decorator kind (cacheable,
	// cache_put, cache_evict).
	Decorator = "decorator"

	// Function is the field name for the decorated function name.
	Function = "function"

	// EventType is the field name for a cache-entry event type.
	EventType = "event_type"

	// ListenerID is the field name for an event listener registry id.
	ListenerID = "listener_id"

	// Duration is the field name for operation duration.
	Duration = "duration_ms"

	// Error is the field name for error information.
	Error = "error"

	// ServiceName is the field name for the service generating the log.
	ServiceName = "service_name"
)
