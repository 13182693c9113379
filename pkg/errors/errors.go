// Package errors provides structured error types for the decocache engine.
// It defines the error categories the decorators and the command facade agree
// on (Permanent, Temporary, NotFound, Expired, InvalidInput, Listener) so
// that on-error policies can classify failures consistently.
//
// Example usage:
//
//	if err := client.Get(ctx, key); err != nil {
//	    return errors.NewTemporary("cache backend unavailable", err)
//	}
//
//	if !found {
//	    return errors.NewNotFound("cache key", key)
//	}
package errors

import (
	"fmt"
)

// PermanentError represents an error that won't succeed even if retried.
// Examples: corrupted cache payloads, serialization failures, a reference
// chain exceeding its depth bound.
type PermanentError struct {
	msg   string
	cause error
}

// NewPermanent creates a new permanent error with the given message and optional cause.
func NewPermanent(msg string, cause error) error {
	return &PermanentError{msg: msg, cause: cause}
}

func (e *PermanentError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *PermanentError) Unwrap() error {
	return e.cause
}

// TemporaryError represents an error that might succeed if retried.
// Examples: backend connection loss, timeouts, pool exhaustion. The
// decorators treat these as infrastructure failures governed by the
// per-decorator on-error policy.
type TemporaryError struct {
	msg   string
	cause error
}

// NewTemporary creates a new temporary error with the given message and optional cause.
func NewTemporary(msg string, cause error) error {
	return &TemporaryError{msg: msg, cause: cause}
}

func (e *TemporaryError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *TemporaryError) Unwrap() error {
	return e.cause
}

// NotFoundError represents a plain cache miss. It is never governed by the
// on-error policy: a miss always falls through to the loader.
type NotFoundError struct {
	resource string
	id       string
	cause    error
}

// NewNotFound creates a new not found error for the given resource and ID.
func NewNotFound(resource, id string) error {
	return &NotFoundError{resource: resource, id: id}
}

// NewNotFoundWithCause creates a new not found error with an underlying cause.
func NewNotFoundWithCause(resource, id string, cause error) error {
	return &NotFoundError{resource: resource, id: id, cause: cause}
}

func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s not found: %s (%v)", e.resource, e.id, e.cause)
	}
	return fmt.Sprintf("%s not found: %s", e.resource, e.id)
}

func (e *NotFoundError) Unwrap() error {
	return e.cause
}

// Resource returns the type of resource that wasn't found.
func (e *NotFoundError) Resource() string {
	return e.resource
}

// ID returns the identifier of the resource that wasn't found.
func (e *NotFoundError) ID() string {
	return e.id
}

// ExpiredError represents a key that is absent because its TTL elapsed.
// It is a miss like NotFoundError, but the event interpreter maps it to an
// Expired cache-entry event where a plain miss produces none.
type ExpiredError struct {
	key   string
	cause error
}

// NewExpired creates a new expired error for the given key.
func NewExpired(key string) error {
	return &ExpiredError{key: key}
}

func (e *ExpiredError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("cache key expired: %s (%v)", e.key, e.cause)
	}
	return fmt.Sprintf("cache key expired: %s", e.key)
}

func (e *ExpiredError) Unwrap() error {
	return e.cause
}

// Key returns the key whose entry expired.
func (e *ExpiredError) Key() string {
	return e.key
}

// InvalidInputError represents a configuration error in a decorator
// declaration: a malformed cache spec, a key-set on a read-through
// decorator, an unregistered cache name. These are raised immediately at
// definition time and never suppressed.
type InvalidInputError struct {
	field string
	msg   string
	cause error
}

// NewInvalidInput creates a new invalid input error for the given field and message.
func NewInvalidInput(field, msg string) error {
	return &InvalidInputError{field: field, msg: msg}
}

// NewInvalidInputWithCause creates a new invalid input error with an underlying cause.
func NewInvalidInputWithCause(field, msg string, cause error) error {
	return &InvalidInputError{field: field, msg: msg, cause: cause}
}

func (e *InvalidInputError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid input for %s: %s (%v)", e.field, e.msg, e.cause)
	}
	return fmt.Sprintf("invalid input for %s: %s", e.field, e.msg)
}

func (e *InvalidInputError) Unwrap() error {
	return e.cause
}

// Field returns the field name that had invalid input.
func (e *InvalidInputError) Field() string {
	return e.field
}

// Message returns the validation error message.
func (e *InvalidInputError) Message() string {
	return e.msg
}

// ListenerError represents an event listener that failed while handling a
// cache-entry event. The dispatcher detaches the listener before surfacing
// this error so a broken listener cannot fail future commands.
type ListenerError struct {
	listenerID string
	eventType  string
	cause      error
}

// NewListener creates a new listener error identifying the failed listener
// and the event it was handling.
func NewListener(listenerID, eventType string, cause error) error {
	return &ListenerError{listenerID: listenerID, eventType: eventType, cause: cause}
}

func (e *ListenerError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("listener %s failed handling %s event: %v", e.listenerID, e.eventType, e.cause)
	}
	return fmt.Sprintf("listener %s failed handling %s event", e.listenerID, e.eventType)
}

func (e *ListenerError) Unwrap() error {
	return e.cause
}

// ListenerID returns the registry id of the listener that failed.
func (e *ListenerError) ListenerID() string {
	return e.listenerID
}

// EventType returns the type of the event the listener was handling.
func (e *ListenerError) EventType() string {
	return e.eventType
}
