package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/provisionkit/provision-go/application/dispatcher"
	"github.com/provisionkit/provision-go/domain/pack"
	"github.com/provisionkit/provision-go/infrastructure/config"
	"github.com/provisionkit/provision-go/infrastructure/logging"
	"github.com/provisionkit/provision-go/infrastructure/mcp"
	"github.com/provisionkit/provision-go/infrastructure/resilience"
	"github.com/provisionkit/provision-go/infrastructure/security/vault"
	"github.com/provisionkit/provision-go/infrastructure/telemetry"
	"github.com/provisionkit/provision-go/pack/database"
	"github.com/provisionkit/provision-go/pack/hosting"
	"github.com/provisionkit/provision-go/pack/secrets"
)

// defaultCredentialEnv is checked, in order, when the configuration does
// not name credential variables.
var defaultCredentialEnv = []string{"PROVISION_API_TOKEN", "PROVISION_TOKEN"}

// newServeCmd creates the serve command.
func (a *App) newServeCmd() *cobra.Command {
	var (
		configPath string
		httpAddr   string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the provisioning tool server",
		Long: `Start the provisioning tool server. By default the server speaks the
protocol over stdio; pass --http to listen on an address instead.

The provider credential must be present in the environment at startup;
a missing credential is the one unrecoverable failure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if httpAddr != "" {
				cfg.Server.HTTPAddr = httpAddr
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}

			logging.Init(logging.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
			})

			credentialEnv := cfg.Server.CredentialEnv
			if len(credentialEnv) == 0 {
				credentialEnv = defaultCredentialEnv
			}
			// The value gates startup only; it is never logged.
			if _, err := config.RequireCredential(credentialEnv...); err != nil {
				return err
			}

			srv, _, v, err := buildServer(cfg)
			if err != nil {
				return err
			}
			defer v.Destroy()

			logging.Info().
				Add(logging.Component("cli")).
				Add(logging.Str("server", cfg.Server.Name)).
				Add(logging.Str("version", cfg.Server.Version)).
				Msg("starting provisioning server")

			if cfg.Server.HTTPAddr != "" {
				return srv.ServeHTTP(cmd.Context(), cfg.Server.HTTPAddr)
			}
			return srv.ServeStdio(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve over HTTP on this address instead of stdio")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	return cmd
}

// buildServer assembles the vault, packs, dispatcher, and MCP server from
// the configuration.
func buildServer(cfg config.Config) (*mcp.Server, *dispatcher.Dispatcher, *vault.Vault, error) {
	v, err := vault.New()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create vault: %w", err)
	}

	// Pack tools carry their own retry policies around vendor calls, so
	// the executor itself runs a single attempt per handler.
	exec := resilience.NewExecutor(resilience.ExecutorConfig{
		MaxConcurrent:           cfg.Executor.MaxConcurrent,
		CircuitBreakerThreshold: cfg.Executor.CircuitBreakerThreshold,
		CircuitBreakerTimeout:   cfg.Executor.CircuitBreakerTimeout,
		RetryPolicy: resilience.Policy{
			MaxRetries:   0,
			InitialDelay: cfg.Retry.InitialDelay,
			Label:        "executor",
		},
		DefaultTimeout: cfg.Executor.DefaultTimeout,
	})

	disp := dispatcher.New(
		dispatcher.WithMetrics(telemetry.NewMetricsProvider(telemetry.DefaultMetricsConfig())),
		dispatcher.WithExecutor(exec),
	)

	packs, err := buildPacks(cfg, v)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, p := range packs {
		if err := p.RegisterAll(disp); err != nil {
			return nil, nil, nil, fmt.Errorf("register pack %q: %w", p.Name, err)
		}
	}

	srv := mcp.NewServer(mcp.ServerConfig{
		Name:       cfg.Server.Name,
		Version:    cfg.Server.Version,
		Dispatcher: disp,
		Description: "Provisioning tool server exposing database, hosting, " +
			"and secret vault operations",
	})
	return srv, disp, v, nil
}

// buildPacks constructs every tool pack against the configured defaults.
func buildPacks(cfg config.Config, v *vault.Vault) ([]*pack.Pack, error) {
	retry := func(label string) resilience.Policy {
		return resilience.Policy{
			MaxRetries:        cfg.Retry.MaxRetries,
			InitialDelay:      cfg.Retry.InitialDelay,
			RetryableStatuses: cfg.Retry.RetryableStatuses,
			Label:             label,
		}
	}

	dbPack, err := database.New(database.NewMemoryProvider(), v,
		database.WithRetryPolicy(retry("database")),
		database.WithReadiness(cfg.Readiness.PollInterval, cfg.Readiness.MaxWait),
	)
	if err != nil {
		return nil, fmt.Errorf("build database pack: %w", err)
	}

	hostPack, err := hosting.New(hosting.NewMemoryProvider(), v,
		hosting.WithRetryPolicy(retry("hosting")),
		hosting.WithReadiness(cfg.Readiness.PollInterval, cfg.Readiness.MaxWait),
	)
	if err != nil {
		return nil, fmt.Errorf("build hosting pack: %w", err)
	}

	secretsPack, err := secrets.New(v)
	if err != nil {
		return nil, fmt.Errorf("build secrets pack: %w", err)
	}

	return []*pack.Pack{dbPack, hostPack, secretsPack}, nil
}
