package errors

import (
	"errors"
)

// As is a re-export of errors.As for convenient access in error handling code.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is a re-export of errors.Is for convenient access in error handling code.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsPermanent checks if an error is or wraps a PermanentError.
func IsPermanent(err error) bool {
	var perr *PermanentError
	return errors.As(err, &perr)
}

// IsTemporary checks if an error is or wraps a TemporaryError.
func IsTemporary(err error) bool {
	var terr *TemporaryError
	return errors.As(err, &terr)
}

// IsNotFound checks if an error is or wraps a NotFoundError.
// Expired entries also report as not found: both are misses to a decorator.
func IsNotFound(err error) bool {
	var nferr *NotFoundError
	if errors.As(err, &nferr) {
		return true
	}
	return IsExpired(err)
}

// IsExpired checks if an error is or wraps an ExpiredError.
func IsExpired(err error) bool {
	var xerr *ExpiredError
	return errors.As(err, &xerr)
}

// IsInvalidInput checks if an error is or wraps an InvalidInputError.
func IsInvalidInput(err error) bool {
	var iierr *InvalidInputError
	return errors.As(err, &iierr)
}

// IsListener checks if an error is or wraps a ListenerError.
func IsListener(err error) bool {
	var lerr *ListenerError
	return errors.As(err, &lerr)
}

// IsMiss reports whether an error represents any kind of cache miss
// (plain not-found or expiration) as opposed to an infrastructure failure.
func IsMiss(err error) bool {
	return IsNotFound(err)
}
