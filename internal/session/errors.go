package session

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when an id or path is not registered.
var ErrSessionNotFound = errors.New("session not found")

// NotFoundError carries the id that failed to resolve.
type NotFoundError struct {
	ID uint32
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %d not found", e.ID)
}

// Is lets errors.Is match ErrSessionNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrSessionNotFound
}

// IsNotFound returns true if err reports an unknown session.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
