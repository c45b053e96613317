// Package tool provides the domain model for provisioning tools.
package tool

// Annotations describe tool behavior for retry decisions and discovery.
type Annotations struct {
	// ReadOnly indicates the tool has no side effects on the provider.
	ReadOnly bool `json:"read_only"`

	// Destructive indicates the tool may cause irreversible changes.
	Destructive bool `json:"destructive"`

	// Idempotent indicates multiple calls with same input yield same result.
	Idempotent bool `json:"idempotent"`
}

// DefaultAnnotations returns annotations with safe defaults.
func DefaultAnnotations() Annotations {
	return Annotations{}
}

// CanRetry returns true if the tool can be safely re-invoked on failure.
func (a Annotations) CanRetry() bool {
	return a.Idempotent || a.ReadOnly
}
