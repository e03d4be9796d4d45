/*
main.go - Application entry point

PURPOSE:
  Starts the benefits registry server and exposes maintenance commands.
  Handles configuration, dependency injection, and graceful shutdown.

COMMANDS:
  serve      Run the HTTP API (default when no command is given)
  migrate    Apply database migrations and exit
  calculate  Distribute an amount across accepted applicants and print CSV

STARTUP SEQUENCE (serve):
  1. Load config (defaults, config file, .env, BENEFITS_* env vars, flags)
  2. Open and migrate the SQLite store
  3. Create the bootstrap admin if configured
  4. Wire services, handler and router
  5. Start server with graceful shutdown

GLOBAL FLAGS:
  --config   Config file (toml, yaml or json)
  --port     HTTP server port (overrides server.port)
  --db       SQLite database path (overrides database.path)
             Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests (server.shutdown_timeout)
  3. Close database connection

EXAMPLES:
  ./server --db=./data/benefits.db
  ./server migrate --db=./data/benefits.db
  ./server calculate --amount 250000 --out payout.csv

SEE ALSO:
  - config/config.go: Settings and environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/insafmmkurram-create/web/api"
	"github.com/insafmmkurram-create/web/config"
	"github.com/insafmmkurram-create/web/export"
	"github.com/insafmmkurram-create/web/payout"
	"github.com/insafmmkurram-create/web/registry"
	"github.com/insafmmkurram-create/web/store/sqlite"
)

type options struct {
	configFile string
	port       string
	dbPath     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "server",
		Short:        "Benefits registry and payout distribution server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (toml, yaml or json)")
	root.PersistentFlags().StringVar(&opts.port, "port", "", "HTTP server port")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", `SQLite database path (":memory:" for in-memory)`)

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, logger, err := setup(cmd, opts)
				if err != nil {
					return err
				}
				if err := sqlite.Migrate(cfg.Database.Path); err != nil {
					return err
				}
				logger.Info("migrations applied", "db", cfg.Database.Path)
				return nil
			},
		},
		newCalculateCmd(opts),
	)
	return root
}

// setup loads config, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, opts *options) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return cfg, nil, err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = opts.port
	}
	if cmd.Flags().Changed("db") {
		cfg.Database.Path = opts.dbPath
	}
	logger, err := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

// =============================================================================
// SERVE
// =============================================================================

func runServe(cmd *cobra.Command, opts *options) error {
	cfg, logger, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	applicants := registry.NewService(store, logger)
	accounts := registry.NewAccounts(store, logger)

	if cfg.Auth.AdminEmail != "" {
		created, err := accounts.EnsureAdmin(cmd.Context(), cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		if err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		if !created {
			logger.Info("bootstrap admin already exists", "email", cfg.Auth.AdminEmail)
		}
	}

	recorder := payout.NewRecorder(store)
	recorder.Workers = cfg.Payout.CommitWorkers

	handler := &api.Handler{
		Applicants: applicants,
		Accounts:   accounts,
		Engine:     payout.NewEngine(logger),
		Recorder:   recorder,
		History:    store,
		Tokens:     api.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Logger:     logger,
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(handler, cfg.CORS.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", cfg.Database.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// =============================================================================
// CALCULATE
// =============================================================================

func newCalculateCmd(opts *options) *cobra.Command {
	var amount, out string

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Distribute an amount across accepted applicants and write CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			total, err := payout.ParseAmount(amount)
			if err != nil {
				return err
			}

			store, err := sqlite.New(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			defer store.Close()

			households, err := registry.NewService(store, logger).AcceptedHouseholds(cmd.Context())
			if err != nil {
				return err
			}
			alloc, err := payout.NewEngine(logger).Allocate(total, households)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := export.WriteCSV(w, alloc.Results); err != nil {
				return err
			}
			logger.Info("distribution calculated",
				"households", len(alloc.Results), "total", alloc.Total.StringFixed(2), "defaults", len(alloc.Defaults))
			return nil
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "total amount to distribute")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	cmd.MarkFlagRequired("amount")
	return cmd
}
