package clients

import (
	"fmt"
	"time"
)

// TimeoutError indicates the external service did not answer within its
// hard deadline. The in-flight HTTP request is torn down on expiry.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ParseError indicates the external service answered with a payload that
// could not be decoded.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ServiceError indicates a non-success completion status from the external
// service; Diagnostic carries the service's own output.
type ServiceError struct {
	Op         string
	StatusCode int
	Diagnostic string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: service returned %d: %s", e.Op, e.StatusCode, e.Diagnostic)
}
