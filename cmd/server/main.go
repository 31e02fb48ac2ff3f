package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/digital-card-api/internal/api"
	"github.com/digital-card-api/internal/config"
	"github.com/digital-card-api/internal/database"
	"github.com/digital-card-api/internal/events"
	"github.com/digital-card-api/internal/repository"
	"github.com/digital-card-api/internal/service"
	"github.com/digital-card-api/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	migrateDown := flag.Bool("migrate-down", false, "roll back the last PostgreSQL migration and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(logger.Options{})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Env: cfg.Env})
	log.Info().Str("env", cfg.Env).Str("store", cfg.Store.Driver).Msg("Starting Digital Card API server...")

	// Initialize store
	repos, closeStore := openStore(cfg, log, *migrateDown)
	defer closeStore()

	// Event publishing is optional
	publisher, err := events.Connect(events.Config{
		URL:           cfg.NATS.URL,
		Token:         cfg.NATS.Token,
		SubjectPrefix: cfg.NATS.SubjectPrefix,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer publisher.Close()

	// Initialize services
	services := service.NewServices(repos, publisher, cfg, log)

	// Initialize router
	router := api.NewRouter(services, repos.Health, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewHTTPHandler(router, cfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server exited gracefully")
}

// openStore connects the configured backend and returns its repositories
func openStore(cfg *config.Config, log zerolog.Logger, migrateDown bool) (*repository.Repositories, func()) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
		defer cancel()

		m, err := database.NewMongo(ctx, &cfg.Mongo, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		if err := m.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
		}

		return repository.NewMongo(m), func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := m.Close(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to close MongoDB client")
			}
		}

	default:
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}

		if migrateDown {
			if err := db.MigrateDown(cfg.Store.MigrationsPath); err != nil {
				log.Fatal().Err(err).Msg("Failed to roll back migrations")
			}
			log.Info().Msg("Migration rolled back, exiting")
			db.Close()
			os.Exit(0)
		}

		if err := db.RunMigrations(cfg.Store.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}

		return repository.NewPostgres(db), func() { db.Close() }
	}
}
