// Package hosting provides hosting site provisioning tools.
package hosting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/provisionkit/provision-go/domain/pack"
	"github.com/provisionkit/provision-go/domain/tool"
	"github.com/provisionkit/provision-go/infrastructure/readiness"
	"github.com/provisionkit/provision-go/infrastructure/resilience"
	"github.com/provisionkit/provision-go/infrastructure/security/vault"
)

// Config configures the hosting pack.
type Config struct {
	// Provider is the vendor control plane (required).
	Provider Provider

	// Vault resolves {{secrets.*}} references in env_set values (required).
	Vault *vault.Vault

	// Retry governs transient vendor failures.
	Retry resilience.Policy

	// PollInterval spaces readiness polls after site creation.
	PollInterval time.Duration

	// MaxWait bounds the readiness wait after site creation.
	MaxWait time.Duration
}

// Option configures the hosting pack.
type Option func(*Config)

// WithRetryPolicy overrides the retry policy for vendor calls.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *Config) {
		c.Retry = p
	}
}

// WithReadiness overrides the readiness polling parameters.
func WithReadiness(interval, maxWait time.Duration) Option {
	return func(c *Config) {
		c.PollInterval = interval
		c.MaxWait = maxWait
	}
}

// New creates the hosting pack.
func New(provider Provider, v *vault.Vault, opts ...Option) (*pack.Pack, error) {
	if provider == nil {
		return nil, errors.New("hosting provider is required")
	}
	if v == nil {
		return nil, errors.New("vault is required")
	}

	cfg := Config{
		Provider:     provider,
		Vault:        v,
		Retry:        resilience.DefaultPolicy("hosting"),
		PollInterval: 2 * time.Second,
		MaxWait:      5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return pack.NewBuilder("hosting").
		WithDescription(fmt.Sprintf("Hosting site operations (%s)", provider.Name())).
		WithVersion("1.0.0").
		AddTools(
			createSiteTool(&cfg),
			pushFilesTool(&cfg),
			setEnvTool(&cfg),
		).
		Build(), nil
}

// createSiteInput is the input for the site_create tool.
type createSiteInput struct {
	Name string `json:"name"`
}

func createSiteTool(cfg *Config) tool.Tool {
	return tool.NewBuilder("site_create").
		WithDescription("Create a hosting site and wait for it to go live").
		Idempotent().
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"name": tool.String("Site name"),
		}, []string{"name"})).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var in createSiteInput
			if err := json.Unmarshal(input, &in); err != nil {
				return tool.Result{}, err
			}

			site, err := resilience.Do(ctx, cfg.Retry, func(ctx context.Context) (*Site, error) {
				return cfg.Provider.CreateSite(ctx, in.Name)
			})
			if err != nil {
				return tool.Result{}, fmt.Errorf("create site: %w", err)
			}

			err = readiness.Wait(ctx, readiness.Config{
				Fetch: func(ctx context.Context) (string, error) {
					current, err := resilience.Do(ctx, cfg.Retry, func(ctx context.Context) (*Site, error) {
						return cfg.Provider.GetSite(ctx, site.ID)
					})
					if err != nil {
						return "", err
					}
					return current.Status, nil
				},
				IsReady:      func(status string) bool { return status == StatusLive },
				IsFailed:     func(status string) bool { return status == StatusError },
				PollInterval: cfg.PollInterval,
				MaxWait:      cfg.MaxWait,
				Label:        "site " + site.ID,
			})
			if err != nil {
				return tool.Result{}, err
			}

			live, err := cfg.Provider.GetSite(ctx, site.ID)
			if err != nil {
				return tool.Result{}, fmt.Errorf("fetch site: %w", err)
			}
			return tool.MarshalResult(live)
		}).
		MustBuild()
}

// pushFilesInput is the input for the files_push tool.
type pushFilesInput struct {
	SiteID string `json:"site_id"`
	Files  []File `json:"files"`
}

func pushFilesTool(cfg *Config) tool.Tool {
	return tool.NewBuilder("files_push").
		WithDescription("Deploy files to a live site").
		Idempotent().
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"site_id": tool.String("Target site ID"),
			"files": tool.Array("Files to deploy", tool.Object("One file", map[string]tool.Property{
				"path":    tool.String("Site-relative file path"),
				"content": tool.String("File content"),
			})),
		}, []string{"site_id", "files"})).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var in pushFilesInput
			if err := json.Unmarshal(input, &in); err != nil {
				return tool.Result{}, err
			}
			if len(in.Files) == 0 {
				return tool.Result{}, errors.New("files must not be empty")
			}

			deploy, err := resilience.Do(ctx, cfg.Retry, func(ctx context.Context) (*Deploy, error) {
				return cfg.Provider.PushFiles(ctx, in.SiteID, in.Files)
			})
			if err != nil {
				return tool.Result{}, fmt.Errorf("push files: %w", err)
			}
			return tool.MarshalResult(deploy)
		}).
		MustBuild()
}

// setEnvInput is the input for the env_set tool.
type setEnvInput struct {
	SiteID string `json:"site_id"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// setEnvOutput is the output for the env_set tool. The resolved value is
// never echoed back.
type setEnvOutput struct {
	SiteID string `json:"site_id"`
	Key    string `json:"key"`
	Set    bool   `json:"set"`
}

func setEnvTool(cfg *Config) tool.Tool {
	return tool.NewBuilder("env_set").
		WithDescription("Set a site environment variable; the value may reference a vault secret as {{secrets.<name>}}").
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"site_id": tool.String("Target site ID"),
			"key":     tool.String("Environment variable name"),
			"value":   tool.String("Value or {{secrets.<name>}} reference"),
		}, []string{"site_id", "key", "value"})).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var in setEnvInput
			if err := json.Unmarshal(input, &in); err != nil {
				return tool.Result{}, err
			}

			resolved, err := cfg.Vault.Resolve(in.Value)
			if err != nil {
				return tool.Result{}, err
			}

			_, err = resilience.Do(ctx, cfg.Retry, func(ctx context.Context) (struct{}, error) {
				return struct{}{}, cfg.Provider.SetEnv(ctx, in.SiteID, in.Key, resolved)
			})
			if err != nil {
				return tool.Result{}, fmt.Errorf("set env: %w", err)
			}

			return tool.MarshalResult(setEnvOutput{
				SiteID: in.SiteID,
				Key:    in.Key,
				Set:    true,
			})
		}).
		MustBuild()
}
