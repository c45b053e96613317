package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for provisioning server logging.
// Secret and credential values must never be passed to any of these.

// ToolName adds a tool name field.
func ToolName(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("tool", name)
	}
}

// InvocationID adds an invocation ID field.
func InvocationID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("invocation_id", id)
	}
}

// Attempt adds a retry attempt field (zero-indexed).
func Attempt(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("attempt", n)
	}
}

// StatusCode adds a vendor status code field.
func StatusCode(code int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("status_code", code)
	}
}

// ResourceStatus adds a polled resource status field.
func ResourceStatus(status string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("resource_status", status)
	}
}

// Label adds a diagnostic label field (retry policy or poll target name).
func Label(label string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("label", label)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Elapsed adds an elapsed wait field in milliseconds.
func Elapsed(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("elapsed_ms", d.Milliseconds())
	}
}

// Delay adds a backoff delay field in milliseconds.
func Delay(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("delay_ms", d.Milliseconds())
	}
}

// Success adds a success flag field.
func Success(ok bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("success", ok)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
