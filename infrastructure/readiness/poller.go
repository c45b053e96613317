// Package readiness waits for asynchronously-provisioned resources to
// reach a usable state by polling an injected status fetch.
package readiness

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/provisionkit/provision-go/infrastructure/logging"
)

// State identifiers for the readiness machine.
const (
	statePending statekit.StateID = "pending"
	stateActive  statekit.StateID = "active"
	stateFailed  statekit.StateID = "failed"
)

// Event types driving the readiness machine.
const (
	eventReady statekit.EventType = "READY"
	eventFail  statekit.EventType = "FAIL"
)

// Config describes one readiness wait.
type Config struct {
	// Fetch returns the resource's current status. Callers needing
	// tolerance for a flaky status endpoint wrap it in resilience.Do.
	Fetch func(ctx context.Context) (string, error)

	// IsReady reports whether the status is the terminal success state.
	IsReady func(status string) bool

	// IsFailed reports whether the status is the terminal failure state.
	IsFailed func(status string) bool

	// PollInterval is the minimum spacing between fetches.
	PollInterval time.Duration

	// MaxWait bounds the total wait; elapsing it is a TimeoutError.
	MaxWait time.Duration

	// Label names the resource in diagnostics.
	Label string
}

// waitContext carries poll state through the machine.
type waitContext struct {
	lastStatus string
	polls      int
}

// newMachine builds the pending → active | failed readiness machine.
func newMachine() (*statekit.MachineConfig[*waitContext], error) {
	return statekit.NewMachine[*waitContext]("readiness").
		WithInitial(statePending).
		WithContext(&waitContext{}).
		State(statePending).
		On(eventReady).Target(stateActive).
		On(eventFail).Target(stateFailed).
		Done().
		State(stateActive).
		Final().
		Done().
		State(stateFailed).
		Final().
		Done().
		Build()
}

// Wait polls cfg.Fetch until the resource reaches a terminal state or
// cfg.MaxWait elapses. A fetch error is logged and polling continues; only
// a terminal failure status or the deadline aborts the wait.
func Wait(ctx context.Context, cfg Config) error {
	machine, err := newMachine()
	if err != nil {
		return fmt.Errorf("build readiness machine: %w", err)
	}
	interp := statekit.NewInterpreter(machine)
	interp.Start()
	defer interp.Stop()

	start := time.Now()
	deadline := time.NewTimer(cfg.MaxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		status, err := cfg.Fetch(ctx)
		if err != nil {
			// Transient unavailability of the status endpoint itself is
			// not a hard stop.
			logging.Warn().
				Add(logging.Component("readiness")).
				Add(logging.Label(cfg.Label)).
				Add(logging.ErrorField(err)).
				Msg("status fetch failed, continuing to poll")
		} else {
			interp.UpdateContext(func(c **waitContext) {
				(*c).lastStatus = status
				(*c).polls++
			})
			switch {
			case cfg.IsFailed(status):
				interp.Send(statekit.Event{Type: eventFail})
			case cfg.IsReady(status):
				interp.Send(statekit.Event{Type: eventReady})
			}

			// The machine, not the predicates, decides when the wait
			// ends: only a transition out of pending is terminal.
			switch {
			case interp.Matches(stateFailed):
				return &FailedError{Label: cfg.Label, Status: status}
			case interp.Matches(stateActive):
				logging.Info().
					Add(logging.Component("readiness")).
					Add(logging.Label(cfg.Label)).
					Add(logging.ResourceStatus(status)).
					Add(logging.Elapsed(time.Since(start))).
					Msg("resource active")
				return nil
			}
			logging.Debug().
				Add(logging.Component("readiness")).
				Add(logging.Label(cfg.Label)).
				Add(logging.ResourceStatus(status)).
				Add(logging.Elapsed(time.Since(start))).
				Msg("resource not ready yet")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &TimeoutError{Label: cfg.Label, Elapsed: time.Since(start)}
		case <-ticker.C:
		}
	}
}
