package exchange

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected is returned when an identity endpoint answers with a non-200 status.
	ErrRejected = errors.New("token exchange rejected")
	// ErrNetwork is returned when the request could not be completed.
	ErrNetwork = errors.New("token exchange transport failure")
	// ErrMalformedResponse is returned when a 200 response carries no usable token.
	ErrMalformedResponse = errors.New("token exchange response malformed")
	// ErrTransportConfig is returned when proxy or trust store settings are unusable.
	ErrTransportConfig = errors.New("invalid transport configuration")
)

// StatusError describes a non-200 answer from an identity endpoint.
type StatusError struct {
	Endpoint   string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s endpoint returned HTTP %d", ErrRejected, e.Endpoint, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return ErrRejected
}
