/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payclock server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (defaults, PAYCLOCK_CONFIG_PATH YAML, PAYCLOCK_* env)
  2. Apply command-line flags
  3. Initialize SQLite store and load the ledger from it
  4. Create API handler, router and (optionally) the period scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (same as PAYCLOCK_CONFIG_PATH)
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: payclock.db)
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the period scheduler
  4. Save the ledger
  5. Close database connection

EXAMPLES:
  ./server -db="./data/payclock.db"
  PAYCLOCK_TIMEZONE=America/Chicago ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration sources
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/payclock/api"
	"github.com/warp/payclock/config"
	"github.com/warp/payclock/store/sqlite"
	"github.com/warp/payclock/worklog"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("PAYCLOCK_CONFIG_PATH", *configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.DB.Path = *dbPath
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	// Initialize store
	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ledger := worklog.NewLedger(worklog.WithLocation(loc))
	if err := ledger.Load(context.Background(), store); err != nil {
		logger.Error("failed to load ledger state", "error", err)
		os.Exit(1)
	}
	logger.Info("ledger loaded",
		"open", len(ledger.OpenSessions()),
		"unassigned", len(ledger.Unassigned()),
		"periods", len(ledger.Periods()),
		"timezone", loc.String(),
	)

	handler := api.NewHandler(ledger, store, logger)
	router := api.NewRouter(handler)

	var scheduler *api.PeriodScheduler
	if cfg.Periods.AutoClose {
		calendar, err := cfg.Calendar()
		if err != nil {
			logger.Error("invalid period calendar", "error", err)
			os.Exit(1)
		}
		scheduler = api.NewPeriodScheduler(ledger, store, calendar, logger)
		scheduler.CheckInterval = cfg.Periods.CheckInterval
		scheduler.Start()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	waitForShutdown(logger, server)

	if scheduler != nil {
		scheduler.Stop()
	}
	if err := ledger.Save(context.Background(), store); err != nil {
		logger.Error("failed to save ledger state", "error", err)
	}
	logger.Info("server stopped")
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func ensureDBDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
