package readiness_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/provisionkit/provision-go/infrastructure/readiness"
)

// sequenceFetch returns the statuses in order, repeating the final one.
func sequenceFetch(statuses ...string) func(ctx context.Context) (string, error) {
	i := 0
	return func(ctx context.Context) (string, error) {
		s := statuses[i]
		if i < len(statuses)-1 {
			i++
		}
		return s, nil
	}
}

func testConfig(fetch func(ctx context.Context) (string, error)) readiness.Config {
	return readiness.Config{
		Fetch:        fetch,
		IsReady:      func(status string) bool { return status == "ready" },
		IsFailed:     func(status string) bool { return status == "error" },
		PollInterval: 5 * time.Millisecond,
		MaxWait:      time.Second,
		Label:        "resource test-1",
	}
}

func TestWait_ReadyAfterPolls(t *testing.T) {
	t.Parallel()

	polls := 0
	cfg := testConfig(func(ctx context.Context) (string, error) {
		polls++
		if polls < 3 {
			return "creating", nil
		}
		return "ready", nil
	})

	if err := readiness.Wait(context.Background(), cfg); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if polls != 3 {
		t.Errorf("polls = %d, want 3", polls)
	}
}

func TestWait_TerminalFailure(t *testing.T) {
	t.Parallel()

	cfg := testConfig(sequenceFetch("creating", "error"))

	err := readiness.Wait(context.Background(), cfg)
	if !errors.Is(err, readiness.ErrResourceFailed) {
		t.Fatalf("Wait() error = %v, want ErrResourceFailed", err)
	}

	var fe *readiness.FailedError
	if !errors.As(err, &fe) {
		t.Fatalf("Wait() error = %T, want *FailedError", err)
	}
	if fe.Status != "error" || fe.Label != "resource test-1" {
		t.Errorf("FailedError = %+v, want terminal status and label", fe)
	}
}

func TestWait_FailureWinsOverReady(t *testing.T) {
	t.Parallel()

	// A status both predicates accept transitions the machine to failed:
	// the FAIL event is dispatched first and the state is final.
	cfg := testConfig(sequenceFetch("broken"))
	cfg.IsReady = func(status string) bool { return true }
	cfg.IsFailed = func(status string) bool { return true }

	err := readiness.Wait(context.Background(), cfg)
	if !errors.Is(err, readiness.ErrResourceFailed) {
		t.Fatalf("Wait() error = %v, want ErrResourceFailed", err)
	}
	var fe *readiness.FailedError
	if !errors.As(err, &fe) || fe.Status != "broken" {
		t.Errorf("Wait() error = %v, want FailedError carrying the status", err)
	}
}

func TestWait_Timeout(t *testing.T) {
	t.Parallel()

	cfg := testConfig(sequenceFetch("creating"))
	cfg.PollInterval = 10 * time.Millisecond
	cfg.MaxWait = 20 * time.Millisecond

	err := readiness.Wait(context.Background(), cfg)
	if !errors.Is(err, readiness.ErrWaitTimeout) {
		t.Fatalf("Wait() error = %v, want ErrWaitTimeout", err)
	}

	var te *readiness.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("Wait() error = %T, want *TimeoutError", err)
	}
	if te.Elapsed < 20*time.Millisecond {
		t.Errorf("Elapsed = %v, want >= MaxWait", te.Elapsed)
	}
}

func TestWait_FetchErrorsDoNotAbort(t *testing.T) {
	t.Parallel()

	polls := 0
	cfg := testConfig(func(ctx context.Context) (string, error) {
		polls++
		if polls < 3 {
			return "", errors.New("status endpoint unavailable")
		}
		return "ready", nil
	})

	if err := readiness.Wait(context.Background(), cfg); err != nil {
		t.Fatalf("Wait() error = %v, fetch errors should not abort polling", err)
	}
	if polls != 3 {
		t.Errorf("polls = %d, want 3", polls)
	}
}

func TestWait_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := testConfig(sequenceFetch("creating"))
	cfg.MaxWait = time.Minute
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if err := readiness.Wait(ctx, cfg); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() error = %v, want context.Canceled", err)
	}
}
