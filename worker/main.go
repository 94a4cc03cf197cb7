package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/bharathbs2003/cinehack/shared/minio"
	"github.com/bharathbs2003/cinehack/shared/queue"
	"github.com/bharathbs2003/cinehack/shared/storage"
	"github.com/bharathbs2003/cinehack/worker/internal/config"
	"github.com/bharathbs2003/cinehack/worker/internal/database"
	"github.com/bharathbs2003/cinehack/worker/internal/worker"

	"go.uber.org/zap"
)

// drainGrace is how long in-flight steps get to finish after shutdown begins.
const drainGrace = 5 * time.Second

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("Worker service failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	logger.Info("Starting dubbing worker...")

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

	w := worker.New(db, store, queue.NewPublisher(queueConn), cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w.StartAllConsumers(ctx)
	logger.Info("All consumers started")

	<-ctx.Done()
	stop()

	logger.Info("Shutting down, draining in-flight steps...")
	time.Sleep(drainGrace)
	logger.Info("Worker service exited")
	return nil
}
