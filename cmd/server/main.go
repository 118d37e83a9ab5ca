/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the entitlement engine server, and exposes the
  batch and lookup operations as subcommands for operators.

STARTUP SEQUENCE (serve):
  1. Load configuration (.env, environment, optional TOML policy file)
  2. Initialize SQLite store
  3. Create API handler with every engine wired to the store
  4. Configure HTTP router
  5. Start the annual allocation scheduler
  6. Start server with graceful shutdown

COMMANDS:
  serve               Run the HTTP API (default port from APP_PORT)
  allocate-vacation   Run the annual vacation allocation once
  validate-id NUMBER  Validate a personal identity number

FLAGS:
  --port   HTTP server port, overrides APP_PORT
  --db     SQLite database path, overrides DB_PATH
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the allocation scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server serve --db="./data/entitlements.db"

  # Run on different port with a policy file
  POLICY_FILE=policy.toml ./server serve --port=3000

  # Allocate the vacation year starting April 2025
  ./server allocate-vacation --as-of=2025-04-01

ENVIRONMENT:
  APP_PORT, APP_ENV, LOG_LEVEL, DB_PATH, POLICY_FILE,
  LEAVE_TYPE_VACATION, LEAVE_TYPE_SICK, LEAVE_TYPE_PARENTAL, LEAVE_TYPE_OVERTIME

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/entitlement-engine/api"
	"github.com/warp/entitlement-engine/config"
	"github.com/warp/entitlement-engine/store/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Swedish entitlement rules engine",
	Long: `Validates and computes Swedish employee entitlements: vacation balances,
sick leave spells, parental leave quotas, overtime compensation and
municipal tax. Records are kept in SQLite; the rules are served over HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "HTTP server port (overrides APP_PORT)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides DB_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ─── serve ──────────────────────────────────────────────────────────────────

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.App.Port = port
	}

	logger := api.NewLogger(os.Stdout, cfg.App.Env, cfg.App.LogLevel)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	handler := api.NewHandler(store, api.Options{
		Refs:   cfg.LeaveTypes.Refs(),
		Policy: cfg.Policy,
		Logger: logger,
	})
	router := api.NewRouter(handler)

	scheduler := api.NewAllocationScheduler(handler)
	scheduler.Enabled = cfg.LeaveTypes.Vacation != ""
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.Int("port", cfg.App.Port),
			slog.String("db", cfg.Database.Path),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// loadConfig reads the configuration and applies the --db override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Database.Path = db
	}
	return cfg, nil
}
