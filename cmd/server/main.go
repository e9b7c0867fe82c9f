package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/brdflow/internal/agents"
	"github.com/BerylCAtieno/brdflow/internal/config"
	"github.com/BerylCAtieno/brdflow/internal/db"
	"github.com/BerylCAtieno/brdflow/internal/handlers"
	"github.com/BerylCAtieno/brdflow/internal/poller"
	"github.com/BerylCAtieno/brdflow/internal/repository"
	"github.com/BerylCAtieno/brdflow/internal/router"
	"github.com/BerylCAtieno/brdflow/internal/services"
	"github.com/BerylCAtieno/brdflow/internal/storage"
	"github.com/BerylCAtieno/brdflow/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Run migrations
	if err := db.RunMigrations(cfg.HistoryDBPath); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	// Initialize database
	database, err := db.NewSQLiteDB(cfg.HistoryDBPath)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()

	// Backend client and status watcher
	client := agents.NewClient(cfg.APIBaseURL, &http.Client{})
	watcher := poller.NewWatcher(client, logger, poller.WithInterval(cfg.PollInterval))

	opts := []services.Option{services.WithHistory(repository.NewRepository(database))}

	// Optional PDF export
	if cfg.ExportEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		s3Storage, err := storage.NewS3Storage(ctx, cfg)
		cancel()
		if err != nil {
			logger.Fatal("Failed to initialize S3 storage", "error", err)
		}
		opts = append(opts, services.WithStorage(s3Storage, cfg.ExportURLTTL))
		logger.Info("PDF export enabled", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3BucketName)
	}

	workflow := services.NewService(client, watcher, logger, opts...)

	// Status streams hang off this context so shutdown can end them
	// while other requests drain.
	streamCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()

	// Setup HTTP router
	handler := router.NewRouter(workflow, logger, cfg.MaxFileSize, handlers.WithStreamContext(streamCtx))

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	srv.RegisterOnShutdown(cancelStreams)

	// Start server
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "backend", client.BaseURL())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
