package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/bharathbs2003/cinehack/api/internal/database"
	"github.com/bharathbs2003/cinehack/api/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

type stubStorage struct {
	deletedPrefix string
	presignedKey  string
}

func (s *stubStorage) PutObject(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	return nil
}

func (s *stubStorage) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, nil
}

func (s *stubStorage) DeleteObject(ctx context.Context, key string) error {
	return nil
}

func (s *stubStorage) DeletePrefix(ctx context.Context, prefix string) error {
	s.deletedPrefix = prefix
	return nil
}

func (s *stubStorage) PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	s.presignedKey = key
	return "https://storage.example.com/" + key, nil
}

func (s *stubStorage) ObjectExists(ctx context.Context, key string) (bool, error) {
	return true, nil
}

type stubOrchestrator struct {
	started []uuid.UUID
}

func (o *stubOrchestrator) StartJob(ctx context.Context, job *models.Job) error {
	o.started = append(o.started, job.ID)
	return nil
}

func newTestService(t *testing.T) (*JobService, sqlmock.Sqlmock, *stubStorage, func()) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	store := &stubStorage{}
	svc := NewJobService(&database.DB{DB: sqlDB}, store, &stubOrchestrator{})
	return svc, mock, store, func() { sqlDB.Close() }
}

func TestCancelJobRunning(t *testing.T) {
	svc, mock, store, done := newTestService(t)
	defer done()

	jobID := uuid.New()

	mock.ExpectExec(`UPDATE jobs SET status = \$1`).
		WithArgs(models.JobStatusCanceled, sqlmock.AnyArg(), jobID, models.JobStatusQueued, models.JobStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.CancelJob(context.Background(), jobID); err != nil {
		t.Fatalf("CancelJob: %v", err)
	}

	wantPrefix := "jobs/" + jobID.String() + "/audio/"
	if store.deletedPrefix != wantPrefix {
		t.Fatalf("expected audio prefix %q cleaned up, got %q", wantPrefix, store.deletedPrefix)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("there were unfulfilled expectations: %v", err)
	}
}

func TestCancelJobAlreadyFinished(t *testing.T) {
	svc, mock, _, done := newTestService(t)
	defer done()

	jobID := uuid.New()

	mock.ExpectExec(`UPDATE jobs SET status = \$1`).
		WithArgs(models.JobStatusCanceled, sqlmock.AnyArg(), jobID, models.JobStatusQueued, models.JobStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM jobs WHERE id = \$1\)`).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	if err := svc.CancelJob(context.Background(), jobID); err != ErrJobNotCancelable {
		t.Fatalf("expected ErrJobNotCancelable, got %v", err)
	}
}

func TestCancelJobMissing(t *testing.T) {
	svc, mock, _, done := newTestService(t)
	defer done()

	jobID := uuid.New()

	mock.ExpectExec(`UPDATE jobs SET status = \$1`).
		WithArgs(models.JobStatusCanceled, sqlmock.AnyArg(), jobID, models.JobStatusQueued, models.JobStatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM jobs WHERE id = \$1\)`).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	if err := svc.CancelJob(context.Background(), jobID); err != ErrJobNotFound {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func expectJobRow(mock sqlmock.Sqlmock, jobID uuid.UUID, status models.JobStatus, resultKey *string) {
	rows := sqlmock.NewRows([]string{
		"id", "status", "progress", "stage", "error",
		"source_video_key", "source_language", "target_language",
		"min_speakers", "max_speakers",
		"dub_audio_key", "transcript_key", "result_video_key",
		"created_at", "updated_at",
	}).AddRow(
		jobID, status, 100, "done", nil,
		"jobs/x/source.mp4", "en", "hi",
		nil, nil,
		nil, nil, resultKey,
		time.Now(), time.Now(),
	)

	mock.ExpectQuery(`SELECT id, status, progress, stage, error`).
		WithArgs(jobID).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT id, job_id, step, status, attempt`).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "job_id", "step", "status", "attempt",
			"started_at", "ended_at", "error", "metrics_json",
			"created_at", "updated_at",
		}))
}

func TestGetDownloadURLVideo(t *testing.T) {
	svc, mock, store, done := newTestService(t)
	defer done()

	jobID := uuid.New()
	resultKey := "jobs/" + jobID.String() + "/result/dubbed.mp4"
	expectJobRow(mock, jobID, models.JobStatusDone, &resultKey)

	url, err := svc.GetDownloadURL(context.Background(), jobID, "video")
	if err != nil {
		t.Fatalf("GetDownloadURL: %v", err)
	}
	if url == "" {
		t.Fatalf("expected a presigned URL")
	}
	if store.presignedKey != resultKey {
		t.Fatalf("presigned wrong key: %s", store.presignedKey)
	}
}

func TestGetDownloadURLNotReady(t *testing.T) {
	svc, mock, _, done := newTestService(t)
	defer done()

	jobID := uuid.New()
	expectJobRow(mock, jobID, models.JobStatusProcessing, nil)

	if _, err := svc.GetDownloadURL(context.Background(), jobID, "video"); err != ErrJobNotCompleted {
		t.Fatalf("expected ErrJobNotCompleted, got %v", err)
	}
}

func TestDeleteJobRemovesArtifacts(t *testing.T) {
	svc, mock, store, done := newTestService(t)
	defer done()

	jobID := uuid.New()

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM jobs WHERE id = \$1\)`).
		WithArgs(jobID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`DELETE FROM jobs WHERE id = \$1`).
		WithArgs(jobID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.DeleteJob(context.Background(), jobID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}

	want := "jobs/" + jobID.String() + "/"
	if store.deletedPrefix != want {
		t.Fatalf("expected prefix %q deleted, got %q", want, store.deletedPrefix)
	}
}
