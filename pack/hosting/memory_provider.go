package hosting

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/provisionkit/provision-go/infrastructure/resilience"
)

// MemoryProvider is an in-memory implementation of the Provider interface.
// Useful for testing and development. A created site reports
// StatusProvisioning for ReadyAfter status fetches before going live.
type MemoryProvider struct {
	mu    sync.RWMutex
	sites map[string]*memorySite

	// ReadyAfter is the number of GetSite calls a site stays in
	// StatusProvisioning after creation.
	ReadyAfter int
}

type memorySite struct {
	site   Site
	env    map[string]string
	polls  int
	failed bool
}

// NewMemoryProvider creates a new in-memory hosting provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		sites: make(map[string]*memorySite),
	}
}

// Name returns the provider name.
func (p *MemoryProvider) Name() string {
	return "memory"
}

// CreateSite starts provisioning a site.
func (p *MemoryProvider) CreateSite(ctx context.Context, name string) (*Site, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	site := Site{
		ID:     uuid.NewString(),
		Name:   name,
		Status: StatusProvisioning,
	}
	site.URL = fmt.Sprintf("https://%s.sites.internal", site.ID)
	p.sites[site.ID] = &memorySite{
		site: site,
		env:  make(map[string]string),
	}
	return &site, nil
}

// GetSite returns the site's current state.
func (p *MemoryProvider) GetSite(ctx context.Context, id string) (*Site, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.sites[id]
	if !ok {
		return nil, resilience.NewStatusError(404, fmt.Sprintf("site %q not found", id))
	}

	entry.polls++
	switch {
	case entry.failed:
		entry.site.Status = StatusError
	case entry.polls > p.ReadyAfter:
		entry.site.Status = StatusLive
	}
	site := entry.site
	return &site, nil
}

// PushFiles deploys files to a live site.
func (p *MemoryProvider) PushFiles(ctx context.Context, id string, files []File) (*Deploy, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.sites[id]
	if !ok {
		return nil, resilience.NewStatusError(404, fmt.Sprintf("site %q not found", id))
	}
	if entry.site.Status != StatusLive {
		return nil, resilience.NewStatusError(409, fmt.Sprintf("site %q is not live", id))
	}
	return &Deploy{ID: uuid.NewString(), Files: len(files)}, nil
}

// SetEnv sets one environment variable on a site.
func (p *MemoryProvider) SetEnv(ctx context.Context, id, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.sites[id]
	if !ok {
		return resilience.NewStatusError(404, fmt.Sprintf("site %q not found", id))
	}
	entry.env[key] = value
	return nil
}

// Env returns a site's environment variables. Test helper.
func (p *MemoryProvider) Env(id string) map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entry, ok := p.sites[id]
	if !ok {
		return nil
	}
	env := make(map[string]string, len(entry.env))
	for k, v := range entry.env {
		env[k] = v
	}
	return env
}

// FailSite marks a site as failed so readiness polling observes a terminal
// failure. Test helper.
func (p *MemoryProvider) FailSite(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.sites[id]; ok {
		entry.failed = true
	}
}
