package metrics

import (
	"sync"
)

var (
	// Standard decorator metrics
	decoratorHits      *Counter
	decoratorMisses    *Counter
	decoratorPuts      *Counter
	decoratorEvictions *Counter

	// Standard command facade metrics
	commandDuration *Histogram
	commandCount    *Counter

	// Standard event dispatch metrics
	eventsDispatched  *Counter
	listenersDetached *Counter

	// Ensure standard metrics are initialized only once
	standardMetricsOnce sync.Once
)

// InitStandardMetrics initializes the standard decorator, command, and event
// metrics. The engine calls this during construction, but it can be called
// explicitly to ensure metrics are registered before use.
// It is safe to call multiple times - subsequent calls are no-ops.
func InitStandardMetrics(namespace string) error {
	var initErr error

	standardMetricsOnce.Do(func() {
		decoratorHits, initErr = NewCounter(CounterOpts{
			Namespace: namespace,
			Subsystem: "decorator",
			Name:      "hits_total",
			Help:      "Total number of read-through cache hits",
			Labels:    []string{"cache"},
		})
		if initErr != nil {
			return
		}

		decoratorMisses, initErr = NewCounter(CounterOpts{
			Namespace: namespace,
			Subsystem: "decorator",
			Name:      "misses_total",
			Help:      "Total number of read-through cache misses",
			Labels:    []string{"cache"},
		})
		if initErr != nil {
			return
		}

		decoratorPuts, initErr = NewCounter(CounterOpts{
			Namespace: namespace,
			Subsystem: "decorator",
			Name:      "puts_total",
			Help:      "Total number of write-through stores",
			Labels:    []string{"cache"},
		})
		if initErr != nil {
			return
		}

		decoratorEvictions, initErr = NewCounter(CounterOpts{
			Namespace: namespace,
			Subsystem: "decorator",
			Name:      "evictions_total",
			Help:      "Total number of decorator-driven evictions",
			Labels:    []string{"cache"},
		})
		if initErr != nil {
			return
		}

		commandDuration, initErr = NewHistogram(HistogramOpts{
			Namespace: namespace,
			Subsystem: "command",
			Name:      "duration_seconds",
			Help:      "Cache command duration in seconds",
			Labels:    []string{"command", "cache"},
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		})
		if initErr != nil {
			return
		}

		commandCount, initErr = NewCounter(CounterOpts{
			Namespace: namespace,
			Subsystem: "command",
			Name:      "commands_total",
			Help:      "Total number of cache commands issued",
			Labels:    []string{"command", "cache", "outcome"},
		})
		if initErr != nil {
			return
		}

		eventsDispatched, initErr = NewCounter(CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "dispatched_total",
			Help:      "Total number of cache-entry events dispatched to listeners",
			Labels:    []string{"cache", "event_type"},
		})
		if initErr != nil {
			return
		}

		listenersDetached, initErr = NewCounter(CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "listeners_detached_total",
			Help:      "Total number of listeners detached after a dispatch failure",
			Labels:    []string{"cache"},
		})
		if initErr != nil {
			return
		}
	})

	return initErr
}

// GetDecoratorHits returns the standard decorator hit counter.
// Returns nil if standard metrics have not been initialized.
func GetDecoratorHits() *Counter {
	return decoratorHits
}

// GetDecoratorMisses returns the standard decorator miss counter.
// Returns nil if standard metrics have not been initialized.
func GetDecoratorMisses() *Counter {
	return decoratorMisses
}

// GetDecoratorPuts returns the standard write-through store counter.
// Returns nil if standard metrics have not been initialized.
func GetDecoratorPuts() *Counter {
	return decoratorPuts
}

// GetDecoratorEvictions returns the standard eviction counter.
// Returns nil if standard metrics have not been initialized.
func GetDecoratorEvictions() *Counter {
	return decoratorEvictions
}

// GetCommandDuration returns the standard command duration histogram.
// Returns nil if standard metrics have not been initialized.
func GetCommandDuration() *Histogram {
	return commandDuration
}

// GetCommandCount returns the standard command counter.
// Returns nil if standard metrics have not been initialized.
func GetCommandCount() *Counter {
	return commandCount
}

// GetEventsDispatched returns the standard dispatched-event counter.
// Returns nil if standard metrics have not been initialized.
func GetEventsDispatched() *Counter {
	return eventsDispatched
}

// GetListenersDetached returns the standard detached-listener counter.
// Returns nil if standard metrics have not been initialized.
func GetListenersDetached() *Counter {
	return listenersDetached
}
