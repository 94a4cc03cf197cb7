package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/bharathbs2003/cinehack/shared/queue"
	"github.com/bharathbs2003/cinehack/worker/internal/config"
	"github.com/bharathbs2003/cinehack/worker/internal/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Requeues the synthesize step for jobs that still have segments without a
// synthesized clip. Useful after a synthesis provider outage.
func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	limit := flag.Int("limit", 100, "maximum number of jobs to scan for missing segment audio")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("failed to init database: %v", err)
	}
	defer db.Close()

	conn, err := queue.NewConnection(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()

	pub := queue.NewPublisher(conn)
	ctx := context.Background()

	rows, err := db.QueryContext(ctx, `
		SELECT s.job_id, j.target_language, COUNT(*) AS pending
		FROM segments s
		JOIN jobs j ON j.id = s.job_id
		WHERE (s.audio_key IS NULL OR s.audio_key = '')
		  AND s.translated_text IS NOT NULL
		  AND j.status = 'processing'
		GROUP BY s.job_id, j.target_language
		ORDER BY MAX(s.updated_at) DESC
		LIMIT $1
	`, *limit)
	if err != nil {
		log.Fatalf("failed to query pending segments: %v", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var jobID uuid.UUID
		var targetLanguage string
		var pending int
		if err := rows.Scan(&jobID, &targetLanguage, &pending); err != nil {
			continue
		}

		msg := map[string]interface{}{
			"job_id":     jobID.String(),
			"step":       "synthesize",
			"attempt":    1,
			"trace_id":   uuid.New().String(),
			"created_at": time.Now().Format(time.RFC3339),
			"payload": map[string]interface{}{
				"target_language": targetLanguage,
				"background_key":  "jobs/" + jobID.String() + "/audio/background.wav",
			},
		}

		if err := pub.Publish(ctx, queue.RoutingKey("synthesize"), msg); err != nil {
			logger.Error("failed to requeue synthesis", zap.String("job_id", jobID.String()), zap.Error(err))
			continue
		}
		logger.Info("requeued synthesis", zap.String("job_id", jobID.String()), zap.Int("pending_segments", pending))
		count++
	}

	log.Printf("requeued %d jobs\n", count)
}
