// Package resilience provides resilient execution patterns for vendor
// control-plane calls: status-aware retry with exponential backoff, plus
// bulkhead and circuit breaker protection via fortify.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/provisionkit/provision-go/infrastructure/logging"
)

// StatusError is a vendor API failure carrying a status code. Errors
// without a status code are treated as network-level faults and presumed
// transient.
type StatusError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Message)
}

// NewStatusError creates a StatusError with the given code and message.
func NewStatusError(code int, message string) *StatusError {
	return &StatusError{Code: code, Message: message}
}

// Status extracts a status code from an error chain. The second return is
// false when the error carries no status code.
func Status(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// Policy controls retry behavior for one call site. Immutable once built;
// distinct call sites may use distinct policies.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt (>= 0).
	MaxRetries int

	// InitialDelay is the delay before the first retry. Subsequent delays
	// double: InitialDelay * 2^attemptIndex, no jitter.
	InitialDelay time.Duration

	// RetryableStatuses is the set of transient-failure status codes.
	RetryableStatuses []int

	// Label names the call site in diagnostics.
	Label string
}

// DefaultPolicy returns the policy used for typical vendor calls.
func DefaultPolicy(label string) Policy {
	return Policy{
		MaxRetries:        3,
		InitialDelay:      500 * time.Millisecond,
		RetryableStatuses: []int{429, 500, 502, 503, 504},
		Label:             label,
	}
}

// retryable reports whether a failed attempt should be retried. A failure
// without a status code is presumed transient; one with a status code is
// retried only when the code is in the retryable set.
func (p Policy) retryable(err error) bool {
	code, ok := Status(err)
	if !ok {
		return true
	}
	for _, c := range p.RetryableStatuses {
		if c == code {
			return true
		}
	}
	return false
}

// Do attempts op up to MaxRetries+1 times under the policy. Non-retryable
// failures propagate immediately; on exhaustion the last attempt's error
// propagates unchanged. The backoff sleep respects ctx cancellation and
// blocks only the issuing goroutine.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if attempt >= policy.MaxRetries || !policy.retryable(err) {
			return zero, err
		}

		delay := policy.InitialDelay * time.Duration(1<<uint(attempt))
		logging.Warn().
			Add(logging.Component("resilience")).
			Add(logging.Label(policy.Label)).
			Add(logging.Attempt(attempt)).
			Add(logging.Delay(delay)).
			Add(logging.ErrorField(err)).
			Msg("transient failure, retrying after backoff")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
