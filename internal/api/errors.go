package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthRequired means no credential was available; no request was sent.
	ErrAuthRequired = errors.New("authentication required")
	// ErrNetwork matches every *NetworkError.
	ErrNetwork = errors.New("network failure")
	// ErrRemoteRejected matches every *RemoteError.
	ErrRemoteRejected = errors.New("rejected by task service")
	// ErrMalformedResponse means the service answered with a payload the
	// client could not decode.
	ErrMalformedResponse = errors.New("malformed response")
)

// NetworkError wraps a transport level failure
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

// RemoteError is a structured rejection from the service. Message is the
// text the service sent, or a generic fallback for the operation.
type RemoteError struct {
	Op      string
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteRejected
}

// IsNotFound reports whether err is a 404 from the service
func IsNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status == http.StatusNotFound
}

// Message turns an error from this package into text fit for the user
func Message(err error) string {
	var re *RemoteError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &re):
		return re.Message
	case errors.Is(err, ErrAuthRequired):
		return "Please sign in again"
	case errors.Is(err, ErrNetwork):
		return "Cannot reach the task service"
	case errors.Is(err, ErrMalformedResponse):
		return "The task service sent an unexpected response"
	}
	return err.Error()
}
