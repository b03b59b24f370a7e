package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrTransport       = errors.New("transport error")
	ErrPersistence     = errors.New("persistence error")
	ErrSummarization   = errors.New("summarization error")
	ErrNoActiveSession = errors.New("no active session")

	ErrSessionNotFound         = errors.New("session not found")
	ErrInvalidStatusTransition = errors.New("invalid session status transition")
	ErrInvalidState            = errors.New("invalid connection state")
	ErrCredentialNotFound      = errors.New("credential not found")
	ErrSecretNotFound          = errors.New("secret not found")
	ErrHistoryEmpty            = errors.New("no local session history")
)

type StatusTransitionError struct {
	From SessionStatus
	To   SessionStatus
}

func (e *StatusTransitionError) Error() string {
	return fmt.Sprintf("session status %q cannot move to %q", e.From, e.To)
}

func (e *StatusTransitionError) Unwrap() error {
	return ErrInvalidStatusTransition
}
