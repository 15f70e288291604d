package remote

import (
	"errors"
	"fmt"
)

// ErrEmptyBody is returned for a successful response with no body or a JSON
// null body. Callers treat it as "no more data", not as a failure.
var ErrEmptyBody = errors.New("remote: empty response body")

// TransportError means no HTTP response was received (DNS, connect,
// timeout, cancelled context).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response.
type ServerError struct {
	Status int
	// Body holds at most maxErrorBody bytes of the response body.
	Body string
}

func (e *ServerError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("remote: unexpected status %d: %s", e.Status, e.Body)
}

// DecodeError means the body of a 2xx response was not a breed array.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "remote: decode breeds: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }
