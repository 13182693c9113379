package event

import (
	"context"
	"fmt"
	"maps"

	"github.com/decocache/decocache/pkg/command"
	"github.com/decocache/decocache/pkg/errors"
	"github.com/decocache/decocache/pkg/logging"
	"github.com/decocache/decocache/pkg/metrics"
)

// Dispatcher interprets command completions into cache-entry events and
// delivers them synchronously to registered listeners. It implements
// command.Observer; subscribe it to a facade to activate delivery.
type Dispatcher struct {
	registry *registry
	log      *logging.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(log *logging.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.log = log.WithComponent("event")
	}
}

// NewDispatcher creates a dispatcher with an empty registry.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: newRegistry(),
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds a listener registration.
func (d *Dispatcher) Register(reg Registration) error {
	return d.registry.register(reg)
}

// Unregister removes the registration stored under id. For listeners
// registered without an explicit ID, use UnregisterListener instead.
func (d *Dispatcher) Unregister(cache, instance, id string) {
	d.registry.unregister(cache, instance, id)
}

// UnregisterListener removes a registration by the listener's identity,
// matching the id derived when it was registered without an explicit ID.
func (d *Dispatcher) UnregisterListener(cache, instance string, l Listener) {
	id, _ := defaultID(l)
	d.registry.unregister(cache, instance, id)
}

// ListenerCount returns the number of live registrations.
func (d *Dispatcher) ListenerCount() int {
	return d.registry.size()
}

// OnCompletion implements command.Observer. Delivery is synchronous on the
// command-issuing path; a listener failure detaches the listener and
// surfaces as a ListenerError to the command issuer. The mutation itself is
// already applied by the time listeners run.
func (d *Dispatcher) OnCompletion(ctx context.Context, c command.Completion) error {
	e, ok := interpret(c)
	if !ok {
		return nil
	}

	if counter := metrics.GetEventsDispatched(); counter != nil {
		counter.Inc(e.Cache, string(e.Type))
	}

	var firstErr error
	for _, reg := range d.registry.forInstance(e.Cache, e.Instance) {
		delivered := e
		if reg.metadata != nil {
			delivered.Metadata = maps.Clone(reg.metadata)
		}
		if reg.filter != nil && !reg.filter(delivered) {
			continue
		}
		if err := d.invoke(ctx, reg, delivered); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// invoke runs one listener, converting failure or panic into a
// ListenerError and detaching the registration so it cannot fail again.
func (d *Dispatcher) invoke(ctx context.Context, reg *registration, e CacheEntryEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewListener(reg.key.id, string(e.Type), fmt.Errorf("listener panicked: %v", r))
			d.detachFailed(reg, e, err)
		}
	}()

	if lerr := reg.listener(ctx, e); lerr != nil {
		err = errors.NewListener(reg.key.id, string(e.Type), lerr)
		d.detachFailed(reg, e, err)
	}
	return err
}

func (d *Dispatcher) detachFailed(reg *registration, e CacheEntryEvent, err error) {
	d.registry.detach(reg.key)
	if counter := metrics.GetListenersDetached(); counter != nil {
		counter.Inc(e.Cache)
	}
	d.log.Warn().
		Str(logging.Cache, e.Cache).
		Str(logging.ListenerID, reg.key.id).
		Str(logging.EventType, string(e.Type)).
		Err(err).
		Msg("listener failed and was detached")
}
