package main

import (
	"database/sql"
	"flag"
	"os"

	"github.com/caarlos0/env/v10"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	migrations "github.com/gokatarajesh/spanish-quiz/db"
	"github.com/gokatarajesh/spanish-quiz/internal/config"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, version or reset")
		dir     = flag.String("dir", "", "Read migrations from this directory instead of the embedded set")
		envFile = flag.String("env-file", "configs/.env", "Optional dotenv file")
	)
	flag.Parse()

	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug().Err(err).Str("file", *envFile).Msg("dotenv not loaded")
	}

	var pg config.Postgres
	if err := env.Parse(&pg); err != nil {
		log.Fatal().Err(err).Msg("invalid postgres configuration")
	}

	migrationDir := migrations.MigrationsDir
	if *dir != "" {
		if _, err := os.Stat(*dir); err != nil {
			log.Fatal().Err(err).Str("dir", *dir).Msg("migration directory not readable")
		}
		goose.SetBaseFS(nil)
		migrationDir = *dir
	} else {
		goose.SetBaseFS(migrations.Migrations)
	}

	db, err := sql.Open("pgx", pg.DSN())
	if err != nil {
		log.Fatal().Err(err).Str("host", pg.Host).Int("port", pg.Port).Msg("failed to open database connection")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	log.Info().
		Str("host", pg.Host).
		Int("port", pg.Port).
		Str("database", pg.Database).
		Str("migration_dir", migrationDir).
		Msg("connected to database")

	goose.SetTableName("goose_db_version")
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatal().Err(err).Msg("failed to set goose dialect")
	}

	switch *command {
	case "up":
		err = goose.Up(db, migrationDir)
	case "down":
		err = goose.Down(db, migrationDir)
	case "status":
		err = goose.Status(db, migrationDir)
	case "version":
		err = goose.Version(db, migrationDir)
	case "reset":
		err = goose.Reset(db, migrationDir)
	default:
		log.Fatal().Str("command", *command).Msg("unknown command. Use: up, down, status, version or reset")
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", *command).Msg("migration failed")
	}
	log.Info().Str("command", *command).Msg("migration command finished")
}
