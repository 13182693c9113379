// Package event implements cache-entry event dispatch: a listener registry
// keyed by cache instance, a command interpreter mapping facade completions
// to entry events, and synchronous delivery with failure isolation. A
// listener that fails is detached so it cannot fail future commands.
//
// Example usage:
//
//	dispatcher := event.NewDispatcher(event.WithLogger(logger))
//	facade.Subscribe(dispatcher)
//
//	err := dispatcher.Register(event.Registration{
//		Cache:    "users",
//		Listener: func(ctx context.Context, e event.CacheEntryEvent) error {
//			log.Printf("%s %s", e.Type, e.Key)
//			return nil
//		},
//	})
package event

import (
	"context"

	"github.com/google/uuid"

	"github.com/decocache/decocache/pkg/command"
)

// Type classifies a cache-entry event.
type Type string

const (
	Inserted Type = "inserted"
	Updated  Type = "updated"
	Deleted  Type = "deleted"
	Expired  Type = "expired"
)

// CacheEntryEvent is one qualifying mutation outcome. Built once per
// completion and immutable afterwards.
type CacheEntryEvent struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Cache and Instance identify the mutated cache instance.
	Cache    string `json:"cache"`
	Instance string `json:"instance,omitempty"`

	// Type classifies the mutation.
	Type Type `json:"type"`

	// Key holds the mutated key. Batched commands carry Keys instead;
	// query-driven deletions carry Query.
	Key   string         `json:"key,omitempty"`
	Keys  []string       `json:"keys,omitempty"`
	Query *command.Query `json:"-"`

	// Command names the facade verb that produced the event.
	Command command.Command `json:"command"`

	// Metadata carries listener-facing annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Listener is a callback invoked synchronously for each matching event.
type Listener func(ctx context.Context, e CacheEntryEvent) error

// Filter gates listener invocation. It must be cheap: it runs on the
// command-issuing path for every qualifying mutation.
type Filter func(e CacheEntryEvent) bool

// newEvent builds an event for a completion's handle.
func newEvent(h command.Handle, t Type, cmd command.Command) CacheEntryEvent {
	return CacheEntryEvent{
		ID:       uuid.NewString(),
		Cache:    h.Cache,
		Instance: h.Instance,
		Type:     t,
		Command:  cmd,
	}
}
