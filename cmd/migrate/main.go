package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/safar/horeca-store/internal/config"
	"github.com/safar/horeca-store/internal/database"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if len(os.Args) < 2 {
		log.Fatal().Msg("usage: migrate [up|down]")
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		log.Fatal().Str("direction", direction).Msg("direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	version, err := database.Migrate(cfg.Database.URL, cfg.Database.MigrationsDir, direction)
	if err != nil {
		log.Fatal().Err(err).Str("direction", direction).Msg("run migrations")
	}

	log.Info().Str("direction", direction).Uint("version", version).Msg("migrations applied")
}
