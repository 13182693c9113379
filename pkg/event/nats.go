package event

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/decocache/decocache/pkg/config"
	"github.com/decocache/decocache/pkg/errors"
)

// Forwarder publishes cache-entry events to a NATS subject as JSON. It is
// a stock Listener: register it like any other, typically unfiltered.
type Forwarder struct {
	nc      *nats.Conn
	subject string
}

// NewForwarder connects to NATS and returns a forwarding listener.
func NewForwarder(cfg config.EventsConfig) (*Forwarder, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.NewInvalidInput("servers", "at least one NATS server is required")
	}
	if cfg.Subject == "" {
		return nil, errors.NewInvalidInput("subject", "subject is required")
	}

	nc, err := nats.Connect(
		strings.Join(cfg.Servers, ","),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(1*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, errors.NewTemporary("failed to connect to NATS", err)
	}

	return &Forwarder{nc: nc, subject: cfg.Subject}, nil
}

// Forward is the Listener to register with a Dispatcher.
func (f *Forwarder) Forward(ctx context.Context, e CacheEntryEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.NewPermanent("failed to marshal event", err)
	}
	if err := f.nc.Publish(f.subject, data); err != nil {
		return errors.NewTemporary("failed to publish event", err)
	}
	return nil
}

// Flush blocks until published events reach the server.
func (f *Forwarder) Flush() error {
	return f.nc.Flush()
}

// Close drains and closes the NATS connection.
func (f *Forwarder) Close() error {
	if err := f.nc.Drain(); err != nil {
		f.nc.Close()
		return errors.NewTemporary("failed to drain NATS connection", err)
	}
	return nil
}
