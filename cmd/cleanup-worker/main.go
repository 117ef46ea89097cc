package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/keepsake/keepsake-api/internal/config"
	"github.com/keepsake/keepsake-api/internal/domain/scrapbook"
	"github.com/keepsake/keepsake-api/internal/pkg/database"
)

// cleanup-worker deletes unpublished scrapbook drafts older than the
// retention window. Published books are never touched.
func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Dur("retention", cfg.DraftRetention).
		Dur("interval", cfg.CleanupInterval).
		Msg("Starting cleanup-worker")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	repo := scrapbook.NewRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-sigChan
		log.Info().Msg("Shutdown signal received")
		cancel()
	}()

	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	// Run once at startup, then on every tick
	sweep(ctx, repo, cfg.DraftRetention)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cleanup-worker stopped")
			return
		case <-ticker.C:
			sweep(ctx, repo, cfg.DraftRetention)
		}
	}
}

func sweep(ctx context.Context, repo scrapbook.Repository, retention time.Duration) {
	cutoff := time.Now().Add(-retention)

	deleted, err := repo.DeleteStaleDrafts(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("Failed to delete stale drafts")
		return
	}

	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Stale drafts removed")
	}
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
