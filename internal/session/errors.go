package session

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyActive = errors.New("a session is already active")
	ErrSessionNotActive     = errors.New("session is not active")
	ErrInvalidDuration      = errors.New("invalid session duration")
	ErrSessionNotFinished   = errors.New("session is not finished")
	ErrAnalysisDisabled     = errors.New("analysis is disabled")

	// ErrStoreUnavailable wraps persistence failures.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// NotFoundError identifies the missing session.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrSessionNotFound
}
