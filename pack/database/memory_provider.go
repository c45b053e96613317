package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/provisionkit/provision-go/infrastructure/resilience"
)

// MemoryProvider is an in-memory implementation of the Provider interface.
// Useful for testing and development. A created database reports
// StatusCreating for ReadyAfter status fetches before turning ready.
type MemoryProvider struct {
	mu        sync.RWMutex
	databases map[string]*memoryDatabase

	// ReadyAfter is the number of GetDatabase calls a database stays in
	// StatusCreating after creation.
	ReadyAfter int
}

type memoryDatabase struct {
	db     Database
	polls  int
	failed bool
}

// NewMemoryProvider creates a new in-memory database provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		databases: make(map[string]*memoryDatabase),
	}
}

// Name returns the provider name.
func (p *MemoryProvider) Name() string {
	return "memory"
}

// CreateDatabase starts provisioning a database.
func (p *MemoryProvider) CreateDatabase(ctx context.Context, name, region string) (*Database, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	db := Database{
		ID:     uuid.NewString(),
		Name:   name,
		Region: region,
		Status: StatusCreating,
	}
	p.databases[db.ID] = &memoryDatabase{db: db}
	return &db, nil
}

// GetDatabase returns the database's current state.
func (p *MemoryProvider) GetDatabase(ctx context.Context, id string) (*Database, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.databases[id]
	if !ok {
		return nil, resilience.NewStatusError(404, fmt.Sprintf("database %q not found", id))
	}

	entry.polls++
	switch {
	case entry.failed:
		entry.db.Status = StatusError
	case entry.polls > p.ReadyAfter:
		entry.db.Status = StatusReady
	}
	db := entry.db
	return &db, nil
}

// RunSQL executes a SQL statement against a ready database.
func (p *MemoryProvider) RunSQL(ctx context.Context, id, query string) (*SQLResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.databases[id]
	if !ok {
		return nil, resilience.NewStatusError(404, fmt.Sprintf("database %q not found", id))
	}
	if entry.db.Status != StatusReady {
		return nil, resilience.NewStatusError(409, fmt.Sprintf("database %q is not ready", id))
	}
	return &SQLResult{RowsAffected: 0}, nil
}

// ConnectionString returns the DSN for a ready database.
func (p *MemoryProvider) ConnectionString(ctx context.Context, id string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.databases[id]
	if !ok {
		return "", resilience.NewStatusError(404, fmt.Sprintf("database %q not found", id))
	}
	return fmt.Sprintf("postgres://app@%s.db.internal/%s", entry.db.ID, entry.db.Name), nil
}

// FailDatabase marks a database as failed so readiness polling observes a
// terminal failure. Test helper.
func (p *MemoryProvider) FailDatabase(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.databases[id]; ok {
		entry.failed = true
	}
}
