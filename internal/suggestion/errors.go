package suggestion

import (
	"emperror.dev/errors"
)

const (
	// ErrConfiguration means no destination channel is configured or it can't be resolved
	ErrConfiguration = errors.Sentinel("suggestions are not configured")
	// ErrUnauthorized means the actor lacks the moderation capability
	ErrUnauthorized = errors.Sentinel("missing moderation capability")
	// ErrNotFound means the suggestion doesn't exist (anymore)
	ErrNotFound = errors.Sentinel("suggestion not found")
	// ErrState means the suggestion is closed
	ErrState = errors.Sentinel("suggestion is closed")
	// ErrPersistence means the guild record could not be read or written
	ErrPersistence = errors.Sentinel("persistence failure")
	// ErrInvalidInput means the request itself is malformed
	ErrInvalidInput = errors.Sentinel("invalid input")
)

// persistenceError carries a store failure while matching ErrPersistence
type persistenceError struct {
	cause error
}

func (e *persistenceError) Error() string {
	return ErrPersistence.Error() + ": " + e.cause.Error()
}

func (e *persistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *persistenceError) Unwrap() error {
	return e.cause
}

func persistence(err error) error {
	if err == nil {
		return nil
	}

	return &persistenceError{cause: err}
}
