package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bharathbs2003/cinehack/shared/queue"
	"github.com/bharathbs2003/cinehack/shared/storage"
	"github.com/bharathbs2003/cinehack/worker/internal/config"
	"github.com/bharathbs2003/cinehack/worker/internal/database"
	"github.com/bharathbs2003/cinehack/worker/internal/diarize"
	"github.com/bharathbs2003/cinehack/worker/internal/emotion"
	"github.com/bharathbs2003/cinehack/worker/internal/media"
	"github.com/bharathbs2003/cinehack/worker/internal/models"
	"github.com/bharathbs2003/cinehack/worker/internal/transcribe"
	"github.com/bharathbs2003/cinehack/worker/internal/translate"
	"github.com/bharathbs2003/cinehack/worker/internal/tts"
	"github.com/bharathbs2003/cinehack/worker/internal/voice"
	"github.com/bharathbs2003/cinehack/worker/internal/worker/steps"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const maxRetries = 3

// stepProgress maps each pipeline step to the overall job progress reported
// once the step succeeds. Progress only ever moves forward.
var stepProgress = map[string]int{
	"extract_audio": 10,
	"transcribe":    25,
	"diarize":       40,
	"emotion":       50,
	"translate":     60,
	"synthesize":    80,
	"reconstruct":   90,
	"mux_video":     100,
}

// Publisher describes the minimal publishing behaviour Worker needs.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
	Conn() *queue.Connection
}

// Worker consumes pipeline step messages and drives jobs through the dub
// pipeline.
type Worker struct {
	db        *database.DB
	jobs      *database.JobStore
	segments  *database.SegmentStore
	storage   *storage.Service
	publisher Publisher
	config    *config.Config
	logger    *zap.Logger
	registry  *ProcessorRegistry
}

// New creates a new worker with all step processors registered.
func New(db *database.DB, store *storage.Service, publisher Publisher, cfg *config.Config, logger *zap.Logger) *Worker {
	w := &Worker{
		db:        db,
		jobs:      database.NewJobStore(db),
		segments:  database.NewSegmentStore(db),
		storage:   store,
		publisher: publisher,
		config:    cfg,
		logger:    logger,
	}

	w.registry = NewProcessorRegistry()
	w.registerDefaultProcessors()

	return w
}

func (w *Worker) registerDefaultProcessors() {
	deps := w.buildDeps()
	w.registry.Register(steps.NewExtractAudioProcessor(deps))
	w.registry.Register(steps.NewTranscribeProcessor(deps))
	w.registry.Register(steps.NewDiarizeProcessor(deps))
	w.registry.Register(steps.NewEmotionProcessor(deps))
	w.registry.Register(steps.NewTranslateProcessor(deps))
	w.registry.Register(steps.NewSynthesizeProcessor(deps))
	w.registry.Register(steps.NewReconstructProcessor(deps))
	w.registry.Register(steps.NewMuxVideoProcessor(deps))
}

func (w *Worker) buildDeps() steps.Deps {
	return steps.Deps{
		DB:        w.db,
		Jobs:      w.jobs,
		Segments:  w.segments,
		Storage:   w.storage,
		Publisher: w.publisher,
		Config:    w.config,
		Logger:    w.logger,

		Media:      media.NewTool(w.config.FFmpeg.Path, w.logger),
		Transcribe: transcribe.NewClient(w.config.Services.Transcribe, w.logger),
		Diarize:    diarize.NewClient(w.config.Services.Diarize, w.logger),
		Emotion:    emotion.NewClient(w.config.Services.Emotion, w.logger),
		Translate:  translate.NewClient(w.config.Services.Translate, w.logger),
		Synthesis:  tts.NewChain(w.config.Services.Synthesis, w.logger),
		Voices:     voice.NewCatalog(w.config.Services.VoiceCatalog, w.logger),
	}
}

// StartConsumer starts consuming messages for a specific registered step.
func (w *Worker) StartConsumer(ctx context.Context, step string) error {
	processor, ok := w.registry.Get(step)
	if !ok {
		return fmt.Errorf("no processor registered for step: %s", step)
	}

	conn := w.publisher.Conn()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := queue.DeclareExchange(ch); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	routingKey := queue.RoutingKey(step)
	q, err := ch.QueueDeclare(
		routingKey,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(
		q.Name,
		routingKey,
		queue.ExchangeName,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	// One message at a time per consumer.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	w.logger.Info("Started consumer", zap.String("step", step), zap.String("queue", q.Name))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping consumer", zap.String("step", step))
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consumer channel closed")
			}

			if err := w.processMessage(ctx, processor, msg); err != nil {
				w.logger.Error("Failed to process message",
					zap.String("step", step),
					zap.Error(err),
					zap.String("message_id", msg.MessageId),
				)
				// Nack without requeue; retry publishing handled it already.
				_ = msg.Nack(false, false)
			} else {
				_ = msg.Ack(false)
			}
		}
	}
}

// StartAllConsumers starts consumers for all registered processors.
func (w *Worker) StartAllConsumers(ctx context.Context) {
	for _, step := range w.registry.Names() {
		go func(stepName string) {
			if err := w.StartConsumer(ctx, stepName); err != nil {
				w.logger.Error("Consumer failed", zap.String("step", stepName), zap.Error(err))
			}
		}(step)
	}
}

// processMessage processes a single message using the registered processor.
func (w *Worker) processMessage(ctx context.Context, processor StepProcessor, msg amqp.Delivery) error {
	jobMsg, jobID, err := decodeJobMessage(msg.Body)
	if err != nil {
		return err
	}

	return w.runStepWithStatus(ctx, processor, jobID, jobMsg)
}

func decodeJobMessage(body []byte) (models.JobMessage, uuid.UUID, error) {
	var jobMsg models.JobMessage
	if err := json.Unmarshal(body, &jobMsg); err != nil {
		return models.JobMessage{}, uuid.Nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	jobID, err := uuid.Parse(jobMsg.JobID)
	if err != nil {
		return models.JobMessage{}, uuid.Nil, fmt.Errorf("invalid job_id: %w", err)
	}

	return jobMsg, jobID, nil
}

func (w *Worker) runStepWithStatus(ctx context.Context, processor StepProcessor, jobID uuid.UUID, jobMsg models.JobMessage) error {
	step := processor.Name()

	job, err := w.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	// Canceled jobs drop out of the pipeline silently.
	if job.Status == database.JobStatusCanceled {
		w.logger.Info("Job canceled, dropping step",
			zap.String("step", step),
			zap.String("job_id", jobID.String()),
		)
		return nil
	}
	if job.Status == database.JobStatusDone || job.Status == database.JobStatusError {
		w.logger.Info("Job already finished, dropping step",
			zap.String("step", step),
			zap.String("job_id", jobID.String()),
			zap.String("status", job.Status),
		)
		return nil
	}

	// Wall-clock ceiling for the whole job, measured from creation.
	if deadline := w.config.Pipeline.JobDeadline; deadline > 0 && time.Since(job.CreatedAt) > deadline {
		errMsg := "job deadline exceeded"
		if err := w.jobs.SetStatus(ctx, jobID, database.JobStatusError, &errMsg); err != nil {
			w.logger.Error("Failed to update job status", zap.Error(err))
		}
		return fmt.Errorf("job %s exceeded its %s deadline", jobID, deadline)
	}

	if job.Status == database.JobStatusQueued {
		if err := w.jobs.SetStatus(ctx, jobID, database.JobStatusProcessing, nil); err != nil {
			return fmt.Errorf("failed to mark job processing: %w", err)
		}
	}

	stepCtx, cancel := w.withStepTimeout(ctx, step)
	defer cancel()

	w.logger.Info("Processing message",
		zap.String("step", step),
		zap.String("job_id", jobID.String()),
		zap.Int("attempt", jobMsg.Attempt),
		zap.String("trace_id", jobMsg.TraceID),
		zap.Duration("timeout", w.stepTimeout(step)),
	)

	// Redelivered messages skip steps that already succeeded.
	stepStatus, err := w.getStepStatus(ctx, jobID, step)
	if err == nil && stepStatus == "succeeded" {
		w.logger.Info("Step already succeeded, skipping",
			zap.String("step", step),
			zap.String("job_id", jobID.String()),
		)
		return nil
	}

	if err := w.updateStepStatus(ctx, jobID, step, jobMsg.Attempt, "running", nil); err != nil {
		return fmt.Errorf("failed to update step status: %w", err)
	}

	startTime := time.Now()
	processErr := processor.Process(stepCtx, jobID, jobMsg)
	duration := time.Since(startTime)

	if processErr != nil {
		errMsg := processErr.Error()
		if err := w.updateStepStatus(ctx, jobID, step, jobMsg.Attempt, "failed", &errMsg); err != nil {
			w.logger.Error("Failed to update step status", zap.Error(err))
		}

		if jobMsg.Attempt < maxRetries {
			return w.retryMessage(ctx, jobMsg, step)
		}

		if err := w.jobs.SetStatus(ctx, jobID, database.JobStatusError, &errMsg); err != nil {
			w.logger.Error("Failed to update job status", zap.Error(err))
		}

		return fmt.Errorf("step failed after %d attempts: %w", jobMsg.Attempt, processErr)
	}

	metrics := map[string]interface{}{
		"duration_ms": duration.Milliseconds(),
		"job_id":      jobID.String(),
		"step":        step,
		"trace_id":    jobMsg.TraceID,
	}
	metricsJSON, _ := json.Marshal(metrics)
	metricsStr := string(metricsJSON)
	if err := w.updateStepStatusWithMetrics(ctx, jobID, step, jobMsg.Attempt, "succeeded", nil, &metricsStr); err != nil {
		return fmt.Errorf("failed to update step status: %w", err)
	}

	if progress, ok := stepProgress[step]; ok {
		if err := w.jobs.SetProgress(ctx, jobID, progress, step); err != nil {
			w.logger.Error("Failed to update job progress", zap.Error(err))
		}
	}

	w.logger.Info("Step completed successfully",
		zap.String("step", step),
		zap.String("job_id", jobID.String()),
		zap.Duration("duration", duration),
	)

	return nil
}

// getStepStatus gets the latest status of a job step.
func (w *Worker) getStepStatus(ctx context.Context, jobID uuid.UUID, step string) (string, error) {
	query := `SELECT status FROM job_steps WHERE job_id = $1 AND step = $2 ORDER BY attempt DESC LIMIT 1`
	var status string
	err := w.db.QueryRowContext(ctx, query, jobID, step).Scan(&status)
	return status, err
}

// updateStepStatus updates the status of a job step.
func (w *Worker) updateStepStatus(ctx context.Context, jobID uuid.UUID, step string, attempt int, status string, errorMsg *string) error {
	return w.updateStepStatusWithMetrics(ctx, jobID, step, attempt, status, errorMsg, nil)
}

// updateStepStatusWithMetrics updates the status of a job step with metrics.
func (w *Worker) updateStepStatusWithMetrics(ctx context.Context, jobID uuid.UUID, step string, attempt int, status string, errorMsg *string, metricsJSON *string) error {
	now := time.Now()

	var exists bool
	checkQuery := `SELECT EXISTS(SELECT 1 FROM job_steps WHERE job_id = $1 AND step = $2 AND attempt = $3)`
	if err := w.db.QueryRowContext(ctx, checkQuery, jobID, step, attempt).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check step existence: %w", err)
	}

	if !exists {
		insertQuery := `
			INSERT INTO job_steps (job_id, step, status, attempt, started_at, error, metrics_json, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err := w.db.ExecContext(ctx, insertQuery,
			jobID, step, status, attempt, now, errorMsg, metricsJSON, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert step: %w", err)
		}
		return nil
	}

	if status == "succeeded" || status == "failed" {
		updateQuery := `
			UPDATE job_steps
			SET status = $1, error = $2, ended_at = $3, metrics_json = $4, updated_at = $5
			WHERE job_id = $6 AND step = $7 AND attempt = $8
		`
		_, err := w.db.ExecContext(ctx, updateQuery,
			status, errorMsg, now, metricsJSON, now, jobID, step, attempt,
		)
		if err != nil {
			return fmt.Errorf("failed to update step: %w", err)
		}
		return nil
	}

	updateQuery := `
		UPDATE job_steps
		SET status = $1, error = $2, metrics_json = $3, updated_at = $4
		WHERE job_id = $5 AND step = $6 AND attempt = $7
	`
	_, err := w.db.ExecContext(ctx, updateQuery,
		status, errorMsg, metricsJSON, now, jobID, step, attempt,
	)
	if err != nil {
		return fmt.Errorf("failed to update step: %w", err)
	}
	return nil
}

// retryMessage republishes the message with exponential backoff.
func (w *Worker) retryMessage(ctx context.Context, msg models.JobMessage, step string) error {
	msg.Attempt++
	delay := time.Duration(1<<uint(msg.Attempt-1)) * time.Second

	w.logger.Info("Retrying message",
		zap.String("step", step),
		zap.String("job_id", msg.JobID),
		zap.Int("attempt", msg.Attempt),
		zap.Duration("delay", delay),
	)

	time.Sleep(delay)

	return w.publisher.Publish(ctx, queue.RoutingKey(step), msg)
}

func (w *Worker) stepTimeout(step string) time.Duration {
	switch step {
	case "extract_audio":
		return w.config.Timeouts.ExtractAudio
	case "transcribe":
		return w.config.Timeouts.Transcribe
	case "diarize":
		return w.config.Timeouts.Diarize
	case "emotion":
		return w.config.Timeouts.Emotion
	case "translate":
		return w.config.Timeouts.Translate
	case "synthesize":
		return w.config.Timeouts.Synthesize
	case "reconstruct":
		return w.config.Timeouts.Reconstruct
	case "mux_video":
		return w.config.Timeouts.Mux
	default:
		return 0
	}
}

func (w *Worker) withStepTimeout(ctx context.Context, step string) (context.Context, context.CancelFunc) {
	timeout := w.stepTimeout(step)
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
