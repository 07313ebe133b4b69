package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/safar/horeca-store/internal/api"
	"github.com/safar/horeca-store/internal/cache"
	"github.com/safar/horeca-store/internal/config"
	"github.com/safar/horeca-store/internal/database"
	"github.com/safar/horeca-store/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogger(cfg.Log)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer db.Close()

	log.Info().Msg("connected to database")

	opts := api.Options{
		Metrics:           api.NewMetrics(),
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
	}

	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		rdb, err := cache.NewRedis(ctx, cfg.Redis.Addr)
		cancel()
		if err != nil {
			// The catalog can always be read from postgres.
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, catalog cache disabled")
		} else {
			defer rdb.Close()
			opts.Cache = cache.NewCatalogCache(rdb, cfg.Redis.CatalogTTL, store.CatalogSource(db))
			log.Info().Str("addr", cfg.Redis.Addr).Msg("catalog cache enabled")
		}
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(db, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// setupLogger switches the global logger to JSON unless a human readable
// format was asked for.
func setupLogger(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "pretty" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}
