package tarana

import (
	"errors"
	"fmt"
)

// TransportError wraps a network-level failure reaching the cloud API.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a structured failure reported by the cloud API.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: api returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: api returned status %d: %s", e.Op, e.StatusCode, e.Message)
}

// NotFoundError indicates the cloud has no record for the serial number.
type NotFoundError struct {
	SerialNumber string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("radio %s not found", e.SerialNumber)
}

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
