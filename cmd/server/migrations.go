package main

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed all:migrations
var embeddedMigrations embed.FS

// runMigrations executes the given goose command against the embedded
// migration set. Supported commands are up, down and status.
func runMigrations(db *sql.DB, command string, logger *slog.Logger) error {
	goose.SetBaseFS(embeddedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	logger.Info("running migrations", "command", command)

	var err error
	switch command {
	case "up":
		err = goose.Up(db, "migrations")
	case "down":
		err = goose.Down(db, "migrations")
	case "status":
		err = goose.Status(db, "migrations")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("migration %q failed: %w", command, err)
	}

	logger.Info("migrations complete", "command", command)
	return nil
}
