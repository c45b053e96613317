package hosting

import "context"

// Site statuses reported by provider control planes.
const (
	StatusProvisioning = "provisioning"
	StatusLive         = "live"
	StatusError        = "error"
)

// Site is a provisioned hosting site.
type Site struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Status string `json:"status"`
}

// File is one deployable file.
type File struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Deploy is the outcome of a file push.
type Deploy struct {
	ID    string `json:"id"`
	Files int    `json:"files"`
}

// Provider is the vendor control-plane API for site hosting. Site
// creation is asynchronous and must be polled until StatusLive.
type Provider interface {
	// Name returns the provider name (e.g., "netlify", "vercel").
	Name() string

	// CreateSite starts provisioning a site.
	CreateSite(ctx context.Context, name string) (*Site, error)

	// GetSite returns the site's current state.
	GetSite(ctx context.Context, id string) (*Site, error)

	// PushFiles deploys files to a live site.
	PushFiles(ctx context.Context, id string, files []File) (*Deploy, error)

	// SetEnv sets one environment variable on a site.
	SetEnv(ctx context.Context, id, key, value string) error
}
