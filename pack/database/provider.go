package database

import "context"

// Database statuses reported by provider control planes.
const (
	StatusCreating = "creating"
	StatusReady    = "ready"
	StatusError    = "error"
)

// Database is a provisioned database instance.
type Database struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region"`
	Status string `json:"status"`
}

// SQLResult is the outcome of executing a SQL statement.
type SQLResult struct {
	RowsAffected int64            `json:"rows_affected"`
	Rows         []map[string]any `json:"rows,omitempty"`
}

// Provider is the vendor control-plane API for database provisioning.
// Creation is asynchronous: a created database starts in StatusCreating
// and must be polled until StatusReady.
type Provider interface {
	// Name returns the provider name (e.g., "neon", "planetscale").
	Name() string

	// CreateDatabase starts provisioning a database.
	CreateDatabase(ctx context.Context, name, region string) (*Database, error)

	// GetDatabase returns the database's current state.
	GetDatabase(ctx context.Context, id string) (*Database, error)

	// RunSQL executes a SQL statement against a ready database.
	RunSQL(ctx context.Context, id, query string) (*SQLResult, error)

	// ConnectionString returns the DSN for a ready database. The value is
	// credential material and must only be handled through the vault.
	ConnectionString(ctx context.Context, id string) (string, error)
}
