package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lost-found-backend/internal/config"
	"lost-found-backend/internal/handlers"
	"lost-found-backend/internal/repository"
	"lost-found-backend/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Run() {
	// Load configuration
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level)

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("jwt.secret is not set")
	}

	// Apply schema migrations
	if cfg.Database.Migrate {
		if err := repository.Migrate(cfg.Database.MigrateURL()); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
		log.Info().Msg("Database migrations applied")
	}

	// Connect to database
	db, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")

	// Metrics
	registry := prometheus.NewRegistry()
	observer, err := services.NewPrometheusObserver("lostfound", registry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	// Object storage
	storage, err := services.NewS3Storage(context.Background(), cfg.AWS, observer)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create object storage client")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewItemRepository(db)
	claimRepo := repository.NewClaimRepository(db)

	// Initialize services
	userService := services.NewUserService(userRepo, storage, cfg.JWT.Secret, cfg.JWT.Expiry, cfg.Upload.MaxPhotoBytes)
	itemService := services.NewItemService(itemRepo, cfg.Report.RecentLimit)
	reportService := services.NewReportService(itemRepo, storage, services.ReportOptions{
		MaxPhotos:     cfg.Report.MaxPhotos,
		MaxPhotoBytes: cfg.Upload.MaxPhotoBytes,
		Concurrency:   cfg.Upload.Concurrency,
		RequirePhotos: cfg.Report.RequirePhotos,
	}, observer)
	claimService := services.NewClaimService(itemRepo, claimRepo, storage, cfg.Upload.MaxPhotoBytes, observer)

	// Excess photos are dropped by the pipeline rather than failing the
	// request, so the body limit leaves room for a few more parts.
	reportBodyLimit := int64(cfg.Report.MaxPhotos+3)*cfg.Upload.MaxPhotoBytes + 1<<20
	singleFileLimit := cfg.Upload.MaxPhotoBytes + 1<<20

	// Initialize handlers
	router := handlers.NewRouter(handlers.Router{
		Users:    handlers.NewUserHandler(userService, cfg.JWT.Expiry, cfg.Server.SecureCookies, singleFileLimit),
		Items:    handlers.NewItemHandler(reportService, itemService, reportBodyLimit),
		Claims:   handlers.NewClaimHandler(claimService, singleFileLimit),
		Auth:     userService,
		Gatherer: registry,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
