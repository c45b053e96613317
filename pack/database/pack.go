// Package database provides database provisioning tools.
package database

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

// Config configures the database pack.
type Config struct {
	// Provider is the vendor control plane (required).
	Provider Provider

	// Vault receives connection strings; tools return references, never
	// the DSN itself (required).
	Vault *vault.Vault

	// Retry governs transient vendor failures.
	Retry resilience.Policy

	// PollInterval spaces readiness polls after creation.
	PollInterval time.Duration

	// MaxWait bounds the readiness wait after creation.
	MaxWait time.Duration

	// Regions enumerates the regions accepted by database_create.
	Regions []string
}

// Option configures the database pack.
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

// WithRegions sets the accepted region values.
func WithRegions(regions ...string) Option {
	return func(c *Config) {
		c.Regions = regions
	}
}

// New creates the database pack.
func New(provider Provider, v *vault.Vault, opts ...Option) (*pack.Pack, error) {
	if provider == nil {
		return nil, errors.New("database provider is required")
	}
	if v == nil {
		return nil, errors.New("vault is required")
	}

	cfg := Config{
		Provider:     provider,
		Vault:        v,
		Retry:        resilience.DefaultPolicy("database"),
		PollInterval: 2 * time.Second,
		MaxWait:      5 * time.Minute,
		Regions:      []string{"us-east-1", "us-west-2", "eu-central-1"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return pack.NewBuilder("database").
		WithDescription(fmt.Sprintf("Database provisioning operations (%s)", provider.Name())).
		WithVersion("1.0.0").
		AddTools(
			createDatabaseTool(&cfg),
			runSQLTool(&cfg),
			connectionStringTool(&cfg),
		).
		Build(), nil
}

// createDatabaseInput is the input for the database_create tool.
type createDatabaseInput struct {
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

func createDatabaseTool(cfg *Config) tool.Tool {
	return tool.NewBuilder("database_create").
		WithDescription("Create a database and wait for it to become ready").
		Idempotent().
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"name":   tool.String("Database name"),
			"region": tool.StringEnum("Deployment region", cfg.Regions...).WithDefault(cfg.Regions[0]),
		}, []string{"name"})).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var in createDatabaseInput
			if err := json.Unmarshal(input, &in); err != nil {
				return tool.Result{}, err
			}
			if in.Region == "" {
				in.Region = cfg.Regions[0]
			}

			db, err := resilience.Do(ctx, cfg.Retry, func(ctx context.Context) (*Database, error) {
				return cfg.Provider.CreateDatabase(ctx, in.Name, in.Region)
			})
			if err != nil {
				return tool.Result{}, fmt.Errorf("create database: %w", err)
			}

			// Creation is asynchronous; poll until the control plane
			// reports the database usable.
			err = readiness.Wait(ctx, readiness.Config{
				Fetch: func(ctx context.Context) (string, error) {
					current, err := resilience.Do(ctx, cfg.Retry, func(ctx context.Context) (*Database, error) {
						return cfg.Provider.GetDatabase(ctx, db.ID)
					})
					if err != nil {
						return "", err
					}
					return current.Status, nil
				},
				IsReady:      func(status string) bool { return status == StatusReady },
				IsFailed:     func(status string) bool { return status == StatusError },
				PollInterval: cfg.PollInterval,
				MaxWait:      cfg.MaxWait,
				Label:        "database " + db.ID,
			})
			if err != nil {
				return tool.Result{}, err
			}

			return tool.MarshalResult(Database{
				ID:     db.ID,
				Name:   db.Name,
				Region: db.Region,
				Status: StatusReady,
			})
		}).
		MustBuild()
}

// runSQLInput is the input for the sql_run tool.
type runSQLInput struct {
	DatabaseID string `json:"database_id"`
	Query      string `json:"query"`
}

// runSQLOutput is the output for the sql_run tool.
type runSQLOutput struct {
	DatabaseID   string           `json:"database_id"`
	RowsAffected int64            `json:"rows_affected"`
	Rows         []map[string]any `json:"rows,omitempty"`
}

func runSQLTool(cfg *Config) tool.Tool {
	return tool.NewBuilder("sql_run").
		WithDescription("Run a SQL statement against a database").
		Destructive().
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"database_id": tool.String("Target database ID"),
			"query":       tool.String("SQL statement to execute"),
		}, []string{"database_id", "query"})).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var in runSQLInput
			if err := json.Unmarshal(input, &in); err != nil {
				return tool.Result{}, err
			}

			res, err := resilience.Do(ctx, cfg.Retry, func(ctx context.Context) (*SQLResult, error) {
				return cfg.Provider.RunSQL(ctx, in.DatabaseID, in.Query)
			})
			if err != nil {
				return tool.Result{}, fmt.Errorf("run sql: %w", err)
			}

			return tool.MarshalResult(runSQLOutput{
				DatabaseID:   in.DatabaseID,
				RowsAffected: res.RowsAffected,
				Rows:         res.Rows,
			})
		}).
		MustBuild()
}

// connectionStringInput is the input for the connection_string tool.
type connectionStringInput struct {
	DatabaseID string `json:"database_id"`
	SecretKey  string `json:"secret_key,omitempty"`
}

// connectionStringOutput is the output for the connection_string tool.
// The DSN itself stays in the vault; only the reference is returned.
type connectionStringOutput struct {
	DatabaseID string `json:"database_id"`
	SecretKey  string `json:"secret_key"`
	Reference  string `json:"reference"`
}

func connectionStringTool(cfg *Config) tool.Tool {
	return tool.NewBuilder("connection_string").
		WithDescription("Store a database connection string in the vault and return its secret reference").
		ReadOnly().
		WithInputSchema(tool.ObjectSchema(map[string]tool.Property{
			"database_id": tool.String("Target database ID"),
			"secret_key":  tool.String("Vault key to store the DSN under").WithDefault("database_url"),
		}, []string{"database_id"})).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var in connectionStringInput
			if err := json.Unmarshal(input, &in); err != nil {
				return tool.Result{}, err
			}
			if in.SecretKey == "" {
				in.SecretKey = "database_url"
			}

			dsn, err := resilience.Do(ctx, cfg.Retry, func(ctx context.Context) (string, error) {
				return cfg.Provider.ConnectionString(ctx, in.DatabaseID)
			})
			if err != nil {
				return tool.Result{}, fmt.Errorf("fetch connection string: %w", err)
			}

			if err := cfg.Vault.Store(in.SecretKey, dsn); err != nil {
				return tool.Result{}, fmt.Errorf("store connection string: %w", err)
			}

			return tool.MarshalResult(connectionStringOutput{
				DatabaseID: in.DatabaseID,
				SecretKey:  in.SecretKey,
				Reference:  fmt.Sprintf("{{secrets.%s}}", in.SecretKey),
			})
		}).
		MustBuild()
}
