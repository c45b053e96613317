package readiness

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for readiness outcomes; match with errors.Is.
var (
	// ErrResourceFailed indicates the resource reached a terminal failure state.
	ErrResourceFailed = errors.New("resource provisioning failed")

	// ErrWaitTimeout indicates the deadline elapsed before a terminal state.
	ErrWaitTimeout = errors.New("readiness wait timed out")
)

// FailedError reports a terminal failure status observed while polling.
type FailedError struct {
	Label  string
	Status string
}

// Error implements the error interface.
func (e *FailedError) Error() string {
	return fmt.Sprintf("%s: provisioning failed with status %q", e.Label, e.Status)
}

// Unwrap allows errors.Is(err, ErrResourceFailed).
func (e *FailedError) Unwrap() error {
	return ErrResourceFailed
}

// TimeoutError reports that the wait deadline elapsed, naming the elapsed
// duration.
type TimeoutError struct {
	Label   string
	Elapsed time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: no terminal state after %s", e.Label, e.Elapsed.Round(time.Millisecond))
}

// Unwrap allows errors.Is(err, ErrWaitTimeout).
func (e *TimeoutError) Unwrap() error {
	return ErrWaitTimeout
}
