// Package cli implements the stateport operator command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/stateport/internal/config"
	"github.com/JonMunkholm/stateport/internal/core"
	_ "github.com/JonMunkholm/stateport/internal/core/entities" // Register entity kinds
	"github.com/JonMunkholm/stateport/internal/logging"
	"github.com/JonMunkholm/stateport/internal/session"
)

var (
	envFile  string
	logLevel string
	operator string
)

var rootCmd = &cobra.Command{
	Use:   "stateport",
	Short: "Export and import admin spreadsheet snapshots",
	Long: `stateport moves the application's entity tables in and out of Excel
workbooks. Imports from the command line run through the same checks as the
admin console and are recorded in the audit ledger.

Examples:
  stateport migrate
  stateport export -o backup.xlsx
  stateport import backup.xlsx
  stateport audit --outcome rejected --limit 20
  stateport token --subject 1 --username root`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			// A missing file is fine; the environment may already be set.
			_ = godotenv.Load(envFile)
		}
		logging.SetupWriter(os.Stderr, logLevel, "text")
		return nil
	},
}

// Execute runs the root command. Commands see ctx through cmd.Context().
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&operator, "operator", "", "operator id recorded in the audit ledger (default: OS user)")

	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newAuditCmd())
	rootCmd.AddCommand(newTokenCmd())
}

// cliPrincipal is the admin identity the command line acts as.
func cliPrincipal() core.Principal {
	name := operator
	if name == "" {
		if u, err := user.Current(); err == nil {
			name = u.Username
		} else {
			name = "operator"
		}
	}
	return core.Principal{ID: "cli:" + name, Username: name, Role: core.RoleAdmin}
}

// backend is an opened database pool and the service over it.
type backend struct {
	cfg      *config.Config
	pool     *pgxpool.Pool
	counters session.CounterStore
	service  *core.Service
}

func (b *backend) Close() {
	if b.counters != nil {
		b.counters.Close()
	}
	b.pool.Close()
}

func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	return cfg, pool, nil
}

func openBackend(ctx context.Context) (*backend, error) {
	cfg, pool, err := openPool(ctx)
	if err != nil {
		return nil, err
	}

	counters, err := session.New(ctx, cfg.Session)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open session store: %w", err)
	}

	svc, err := core.NewService(core.NewPgStore(pool), core.NewPgLedger(pool), counters, cfg.Import, logging.FromContext(ctx))
	if err != nil {
		counters.Close()
		pool.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}
	return &backend{cfg: cfg, pool: pool, counters: counters, service: svc}, nil
}
