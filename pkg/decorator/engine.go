package decorator

import (
	"context"
	"time"

	"github.com/decocache/decocache/pkg/command"
	"github.com/decocache/decocache/pkg/config"
	"github.com/decocache/decocache/pkg/logging"
	"github.com/decocache/decocache/pkg/metrics"
)

// Loader is the shape of a decorated function: the wrapped body that
// produces values, plus the wrapper the engine returns around it.
type Loader func(ctx context.Context, args ...any) (any, error)

// OnError selects how a decoration treats infrastructure failures from the
// command facade. Plain misses and configuration errors are never governed
// by this policy.
type OnError int

const (
	// OnErrorDefault defers to the engine-wide default.
	OnErrorDefault OnError = iota

	// OnErrorRaise propagates infrastructure failures to the caller.
	OnErrorRaise

	// OnErrorIgnore treats infrastructure failures as misses or no-ops
	// and continues.
	OnErrorIgnore
)

const defaultMaxReferenceDepth = 8

// Engine wires decorations to a command facade with engine-wide defaults.
type Engine struct {
	facade  *command.Facade
	log     *logging.Logger
	ttl     time.Duration
	onError OnError
	maxRef  int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the engine's logger.
func WithEngineLogger(log *logging.Logger) EngineOption {
	return func(e *Engine) {
		e.log = log.WithComponent("decorator")
	}
}

// WithDefaultTTL sets the TTL applied when a decoration sets none.
func WithDefaultTTL(ttl time.Duration) EngineOption {
	return func(e *Engine) {
		e.ttl = ttl
	}
}

// WithOnError sets the engine-wide default failure policy.
func WithOnError(policy OnError) EngineOption {
	return func(e *Engine) {
		if policy != OnErrorDefault {
			e.onError = policy
		}
	}
}

// WithMaxReferenceDepth bounds reference-chain resolution.
func WithMaxReferenceDepth(depth int) EngineOption {
	return func(e *Engine) {
		if depth > 0 {
			e.maxRef = depth
		}
	}
}

// WithConfig applies decorator defaults from loaded configuration.
func WithConfig(cfg config.DecoratorConfig) EngineOption {
	return func(e *Engine) {
		e.ttl = cfg.DefaultTTL
		if cfg.OnError == "ignore" {
			e.onError = OnErrorIgnore
		}
		if cfg.MaxReferenceDepth > 0 {
			e.maxRef = cfg.MaxReferenceDepth
		}
	}
}

// NewEngine creates a decoration engine over a command facade.
func NewEngine(facade *command.Facade, opts ...EngineOption) *Engine {
	e := &Engine{
		facade:  facade,
		log:     logging.Nop(),
		onError: OnErrorRaise,
		maxRef:  defaultMaxReferenceDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// policy resolves a decoration's effective failure policy.
func (e *Engine) policy(p OnError) OnError {
	if p == OnErrorDefault {
		return e.onError
	}
	return p
}

// options resolves a decoration's effective storage options.
func (e *Engine) options(ttl time.Duration) command.PutOptions {
	if ttl == 0 {
		ttl = e.ttl
	}
	return command.PutOptions{TTL: ttl}
}

func (e *Engine) countHit(h command.Handle) {
	if c := metrics.GetDecoratorHits(); c != nil {
		c.Inc(h.Cache)
	}
}

func (e *Engine) countMiss(h command.Handle) {
	if c := metrics.GetDecoratorMisses(); c != nil {
		c.Inc(h.Cache)
	}
}

func (e *Engine) countPut(h command.Handle) {
	if c := metrics.GetDecoratorPuts(); c != nil {
		c.Inc(h.Cache)
	}
}

func (e *Engine) countEviction(h command.Handle) {
	if c := metrics.GetDecoratorEvictions(); c != nil {
		c.Inc(h.Cache)
	}
}
