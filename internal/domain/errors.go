package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a required field is missing or a
	// request is rejected by the message policy.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionNotFound is returned for any unknown session id.
	ErrSessionNotFound = errors.New("session not found")
)

// UpstreamError reports a transport failure or a non-success response from
// the generative API. Status is 0 when no HTTP response was received.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream error: %s", e.Message)
	}
	return fmt.Sprintf("upstream error [%d]: %s", e.Status, e.Message)
}
