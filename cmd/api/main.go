package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/keepsake/keepsake-api/internal/config"
	"github.com/keepsake/keepsake-api/internal/domain/music"
	"github.com/keepsake/keepsake-api/internal/domain/photo"
	"github.com/keepsake/keepsake-api/internal/domain/publish"
	"github.com/keepsake/keepsake-api/internal/domain/scrapbook"
	"github.com/keepsake/keepsake-api/internal/middleware"
	"github.com/keepsake/keepsake-api/internal/pkg/database"
	"github.com/keepsake/keepsake-api/internal/pkg/imaging"
	"github.com/keepsake/keepsake-api/internal/pkg/ratelimit"
	pkgresponse "github.com/keepsake/keepsake-api/internal/pkg/response"
	"github.com/keepsake/keepsake-api/internal/pkg/storage"
	"github.com/keepsake/keepsake-api/internal/pkg/token"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Keepsake API")

	if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	// ---------- Storage ----------
	var store storage.Storage
	if cfg.UseLocalStorage() {
		log.Warn().Msg("S3 config incomplete, using local photo storage")
		store, err = storage.NewLocalStorage(cfg.LocalStoragePath, cfg.LocalStorageURL)
	} else {
		store, err = storage.NewS3Storage(storage.S3Config{
			AccountID:       cfg.StorageAccountID,
			AccessKeyID:     cfg.StorageAccessKeyID,
			AccessKeySecret: cfg.StorageAccessKeySecret,
			BucketName:      cfg.StorageBucket,
			PublicURL:       cfg.StoragePublicURL,
		})
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create photo storage")
	}

	// ---------- Repositories ----------
	scrapbookRepo := scrapbook.NewRepository(db)
	photoRepo := photo.NewRepository(db)

	// ---------- Services ----------
	tokenService := token.NewService(cfg.PreviewTokenSecret, cfg.PreviewTokenTTL)
	scrapbookService := scrapbook.NewService(scrapbookRepo, photoRepo, cfg.ShareCodeLength)
	processor := imaging.NewProcessor(imaging.DefaultConfig())

	progressHub := publish.NewHub()
	publisher := publish.NewPublisher(scrapbookService, photoRepo, store, processor, progressHub)

	// ---------- Handlers ----------
	scrapbookHandler := scrapbook.NewHandler(scrapbookService, tokenService)
	publishHandler := publish.NewHandler(publisher, progressHub)
	musicHandler := music.NewHandler()

	createLimiter := ratelimit.New(redis, cfg.CreateLimit, cfg.CreateWindow)

	r := newRouter(cfg, scrapbookHandler, publishHandler, musicHandler, createLimiter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func newRouter(
	cfg *config.Config,
	scrapbookHandler *scrapbook.Handler,
	publishHandler *publish.Handler,
	musicHandler *music.Handler,
	createLimiter ratelimit.Limiter,
) chi.Router {
	rateLimitMiddleware := middleware.RateLimit(createLimiter)

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint stays outside the compressed group
	r.Get("/ws/publish", publishHandler.ServeWS)

	// Serve stored photos directly when running on local storage
	if cfg.UseLocalStorage() {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(cfg.LocalStoragePath))))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Route("/scrapbooks", func(r chi.Router) {
			// Creation carries the per-IP sliding-window limit; reads do not
			r.With(rateLimitMiddleware).Post("/", publishHandler.Create)
			scrapbookHandler.Register(r)
		})

		r.Mount("/music", musicHandler.Routes())
	})

	return r
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
