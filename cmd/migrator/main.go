package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/reviewarcade/platform/internal/config"
	"github.com/reviewarcade/platform/internal/logging"
)

// Applies the schema for the results store and question banks. Session state
// itself is volatile and never migrated.
func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, or status")
		dir     = flag.String("dir", "db/migrations", "Directory containing migration files")
	)
	flag.Parse()

	logger := logging.New("review-arcade-migrator", os.Getenv("APP_ENV"))

	ctx := context.Background()
	pg, err := config.LoadPostgres(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load postgres config")
	}

	migrationDir, err := filepath.Abs(*dir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", *dir).Msg("failed to resolve migration directory")
	}
	if _, err := os.Stat(migrationDir); os.IsNotExist(err) {
		logger.Fatal().Str("dir", migrationDir).Msg("migration directory does not exist")
	}

	db, err := sql.Open("pgx", pg.DSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database connection")
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Str("host", pg.Host).Str("database", pg.Database).Msg("failed to ping database")
	}

	logger.Info().
		Str("database", pg.Database).
		Str("migration_dir", migrationDir).
		Str("command", *command).
		Msg("running migrations")

	switch *command {
	case "up":
		err = goose.Up(db, migrationDir)
	case "down":
		err = goose.Down(db, migrationDir)
	case "status":
		err = goose.Status(db, migrationDir)
	default:
		logger.Fatal().Str("command", *command).Msg("unknown command. Use: up, down, or status")
	}
	if err != nil {
		logger.Fatal().Err(err).Str("command", *command).Msg("migration failed")
	}
	logger.Info().Str("command", *command).Msg("migration complete")
}
