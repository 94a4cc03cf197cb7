package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bharathbs2003/cinehack/api/internal/models"
)

// QueuePublisher describes the minimal queue publisher behaviour the
// orchestrator depends on. It matches the signature of queue.Publisher so
// other implementations can be swapped in.
type QueuePublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// JobRepository abstracts the job mutations required by the orchestrator.
type JobRepository interface {
	UpdateStatus(ctx context.Context, jobID uuid.UUID, status models.JobStatus, updatedAt time.Time) error
}

// JobOrchestrator exposes the orchestration operations used by the API
// layer. Keeping this minimal makes it easy to inject mocks in tests.
type JobOrchestrator interface {
	StartJob(ctx context.Context, job *models.Job) error
}
