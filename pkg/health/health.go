// Package health provides health checking for decocache backends.
// Cache backends implement the Checker interface; a Health instance
// aggregates them so an embedding service can expose a single readiness
// signal covering every registered cache.
//
// Example usage:
//
//	h := health.New()
//	h.RegisterChecker("redis", redisBackend)
//	h.RegisterChecker("memory", memoryBackend)
//
//	if !h.IsHealthy(ctx) {
//	    log.Warn().Msg("cache backends degraded")
//	}
package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Checker is implemented by components that can report their own health.
type Checker interface {
	// Check returns nil if the component is healthy, an error otherwise.
	// It must respect context cancellation.
	Check(ctx context.Context) error
}

// CheckerFunc adapts a plain function to the Checker interface.
type CheckerFunc func(ctx context.Context) error

// Check implements Checker.
func (f CheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}

// Health manages health checks for registered components.
// Results are cached briefly to prevent stampedes under load.
type Health struct {
	mu       sync.RWMutex
	checkers map[string]Checker

	cacheMu      sync.RWMutex
	cachedResult *Result
	cacheExpiry  time.Time
	cacheTTL     time.Duration

	checkTimeout time.Duration
}

// Result represents the aggregated health check result.
type Result struct {
	Status string                 `json:"status"` // "healthy" or "unhealthy"
	Checks map[string]CheckResult `json:"checks"`
}

// CheckResult represents the result of a single component health check.
type CheckResult struct {
	Status  string `json:"status"`            // "ok" or "error"
	Message string `json:"message,omitempty"` // error message if status is "error"
}

// New creates a new Health instance with default configuration.
// Default check timeout is 5 seconds and cache TTL is 1 second.
func New() *Health {
	return NewWithConfig(5*time.Second, time.Second)
}

// NewWithConfig creates a new Health instance with custom configuration.
func NewWithConfig(checkTimeout, cacheTTL time.Duration) *Health {
	return &Health{
		checkers:     make(map[string]Checker),
		checkTimeout: checkTimeout,
		cacheTTL:     cacheTTL,
	}
}

// RegisterChecker registers a health checker for a named component.
// If a checker with the same name is already registered, it will be replaced.
func (h *Health) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// UnregisterChecker removes a health checker by name.
// Returns true if a checker was removed.
func (h *Health) UnregisterChecker(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.checkers[name]; exists {
		delete(h.checkers, name)
		return true
	}
	return false
}

// Check executes all registered health checkers and returns the aggregated
// result. Results are cached for the configured TTL.
func (h *Health) Check(ctx context.Context) *Result {
	h.cacheMu.RLock()
	if h.cachedResult != nil && time.Now().Before(h.cacheExpiry) {
		result := h.cachedResult
		h.cacheMu.RUnlock()
		return result
	}
	h.cacheMu.RUnlock()

	result := h.executeChecks(ctx)

	h.cacheMu.Lock()
	h.cachedResult = result
	h.cacheExpiry = time.Now().Add(h.cacheTTL)
	h.cacheMu.Unlock()

	return result
}

// executeChecks runs all registered checkers concurrently and aggregates results.
func (h *Health) executeChecks(ctx context.Context) *Result {
	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for name, checker := range h.checkers {
		checkers[name] = checker
	}
	h.mu.RUnlock()

	if len(checkers) == 0 {
		return &Result{Status: "healthy", Checks: make(map[string]CheckResult)}
	}

	type checkResponse struct {
		name   string
		result CheckResult
	}

	resultChan := make(chan checkResponse, len(checkers))
	var wg sync.WaitGroup

	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()

			checkCtx := ctx
			if _, hasDeadline := ctx.Deadline(); !hasDeadline {
				var cancel context.CancelFunc
				checkCtx, cancel = context.WithTimeout(ctx, h.checkTimeout)
				defer cancel()
			}

			var result CheckResult
			if err := checker.Check(checkCtx); err != nil {
				result = CheckResult{Status: "error", Message: err.Error()}
			} else {
				result = CheckResult{Status: "ok"}
			}
			resultChan <- checkResponse{name: name, result: result}
		}(name, checker)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	checks := make(map[string]CheckResult, len(checkers))
	allHealthy := true
	for response := range resultChan {
		checks[response.name] = response.result
		if response.result.Status != "ok" {
			allHealthy = false
		}
	}

	status := "healthy"
	if !allHealthy {
		status = "unhealthy"
	}
	return &Result{Status: status, Checks: checks}
}

// CheckComponent executes a single component's health check by name.
// Returns an error if the component is not registered or if the check fails.
func (h *Health) CheckComponent(ctx context.Context, name string) error {
	h.mu.RLock()
	checker, exists := h.checkers[name]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("health checker %q not registered", name)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.checkTimeout)
		defer cancel()
	}

	return checker.Check(ctx)
}

// IsHealthy returns true if all registered checkers are currently healthy.
func (h *Health) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx).Status == "healthy"
}

// ClearCache clears the cached result, forcing the next Check to re-execute.
func (h *Health) ClearCache() {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	h.cachedResult = nil
	h.cacheExpiry = time.Time{}
}
