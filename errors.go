package tfs

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure modes.
var (
	ErrNoHost        = errors.New("tfs: no host configured")
	ErrNoCollection  = errors.New("tfs: no collection configured")
	ErrNoCredentials = errors.New("tfs: no credentials configured")
	ErrInvalidConfig = errors.New("tfs: invalid configuration")

	// ErrInvalidArgument is returned when an operation is called with
	// arguments it cannot turn into a request.
	ErrInvalidArgument = errors.New("tfs: invalid argument")

	// ErrNoResource is returned by Prepare when SetResource was never called.
	ErrNoResource = errors.New("tfs: no resource selected")

	// ErrStatusLoggerNotImplemented is returned by the default status
	// logger. Deployments install their own with WithStatusLogger.
	ErrStatusLoggerNotImplemented = errors.New("tfs: status logger not implemented")

	// ErrEmptyResponse describes a result without content.
	ErrEmptyResponse = errors.New("tfs: empty response")

	// ErrNoValue is returned when a response object lacks the "value" array.
	ErrNoValue = errors.New("tfs: response has no value array")
)

// StatusError describes a request that did not produce a readable 200
// response. StatusCode is 0 when no response was received.
type StatusError struct {
	StatusCode int
	Reason     string
}

// Error returns the diagnostic routed to the status logger.
func (e *StatusError) Error() string {
	return fmt.Sprintf("TFSClientAPI: HTTP Error %d (%s)", e.StatusCode, e.Reason)
}

// IsNotFound reports a 404 response.
func (e *StatusError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsAuthentication reports a 401 or 403 response.
func (e *StatusError) IsAuthentication() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsServer reports a 5xx response.
func (e *StatusError) IsServer() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// IsTransport reports that no HTTP response was received.
func (e *StatusError) IsTransport() bool {
	return e.StatusCode == 0
}

// ParseError indicates a 200 response whose body is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tfs: invalid JSON response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
