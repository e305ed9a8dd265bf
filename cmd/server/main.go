// Package main implements the entry point for the taskward server, the
// task-deadline lifecycle engine: it keeps per-task reminder and expiration
// schedules in step with task mutations, expires overdue tasks, and delivers
// the resulting notifications.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/phrazzld/taskward/internal/config"
	"github.com/phrazzld/taskward/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status) and exit")
	flag.Parse()

	if err := run(*migrateCmd); err != nil {
		log.Fatalf("Failed to start taskward: %v", err)
	}
}

// run loads configuration, wires the application and blocks until shutdown.
func run(migrateCmd string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)
	if cfg.Database.URL != "" {
		slog.Debug("Database configuration", "url_present", true)
	}
	if cfg.Redis.Addr != "" {
		slog.Debug("Redis configuration", "addr", cfg.Redis.Addr)
	}

	ctx := context.Background()

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		if err := runMigrations(db, migrateCmd, appLogger); err != nil {
			return err
		}
		os.Exit(0)
	}
	if err := runMigrations(db, "up", appLogger); err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.startHTTPServer(ctx, app.setupRouter())
}
