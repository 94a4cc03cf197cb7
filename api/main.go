package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bharathbs2003/cinehack/api/internal/config"
	"github.com/bharathbs2003/cinehack/api/internal/database"
	"github.com/bharathbs2003/cinehack/api/internal/router"
	"github.com/bharathbs2003/cinehack/shared/minio"
	"github.com/bharathbs2003/cinehack/shared/queue"
	"github.com/bharathbs2003/cinehack/shared/storage"

	"go.uber.org/zap"
)

const (
	// Uploads are multi-GB video files; the read timeout has to cover the
	// whole transfer, not just the headers.
	uploadTimeout   = 15 * time.Minute
	shutdownTimeout = 30 * time.Second
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("API service failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	logger.Info("Starting API service...")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Database connected")

	if err := database.Migrate(db.DB); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	minioClient, err := minio.New(cfg.MinIO)
	if err != nil {
		return err
	}
	store := storage.New(minioClient)
	logger.Info("Object storage ready", zap.String("bucket", minioClient.Bucket()))

	queueConn, err := queue.NewConnection(cfg.RabbitMQ)
	if err != nil {
		return err
	}
	defer queueConn.Close()
	logger.Info("RabbitMQ connected")

	r := router.New(db, store, queue.NewPublisher(queueConn), logger)
	r.MaxMultipartMemory = cfg.Upload.MaxSizeMB << 20

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  uploadTimeout,
		WriteTimeout: uploadTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}
