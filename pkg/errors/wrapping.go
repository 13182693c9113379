package errors

import (
	"fmt"
)

// Wrap wraps an error with additional context while preserving the original
// error category. If err is already a typed error (Permanent, Temporary,
// etc.), it wraps it with the same type. Otherwise, it returns a
// PermanentError.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}

	switch {
	case IsListener(err):
		var le *ListenerError
		if As(err, &le) {
			return NewListener(le.listenerID, le.eventType, err)
		}
		return NewPermanent(msg, err)
	case IsExpired(err):
		var xe *ExpiredError
		if As(err, &xe) {
			return &ExpiredError{key: xe.key, cause: err}
		}
		return NewPermanent(msg, err)
	case IsNotFound(err):
		var nfe *NotFoundError
		if As(err, &nfe) {
			return NewNotFoundWithCause(nfe.resource, nfe.id, err)
		}
		return NewPermanent(msg, err)
	case IsInvalidInput(err):
		var iie *InvalidInputError
		if As(err, &iie) {
			return NewInvalidInputWithCause(iie.field, msg, err)
		}
		return NewInvalidInput("", msg)
	case IsTemporary(err):
		return NewTemporary(msg, err)
	default:
		return NewPermanent(msg, err)
	}
}

// Wrapf wraps an error with a formatted message while preserving the original error type.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}
