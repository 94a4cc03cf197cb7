package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bharathbs2003/cinehack/api/internal/database"
	"github.com/bharathbs2003/cinehack/api/internal/models"
)

// DBJobRepository persists job state transitions using the primary database.
type DBJobRepository struct {
	db *database.DB
}

// NewDBJobRepository constructs a job repository backed by the SQL database.
func NewDBJobRepository(db *database.DB) *DBJobRepository {
	return &DBJobRepository{db: db}
}

// UpdateStatus updates the job status and timestamp.
func (r *DBJobRepository) UpdateStatus(ctx context.Context, jobID uuid.UUID, status models.JobStatus, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE jobs SET status = $1, updated_at = $2 WHERE id = $3", status, updatedAt, jobID)
	return err
}
