package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bharathbs2003/cinehack/shared/queue"
	"github.com/bharathbs2003/cinehack/worker/internal/config"
	"github.com/bharathbs2003/cinehack/worker/internal/database"
	"github.com/bharathbs2003/cinehack/worker/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type stubProcessor struct {
	name   string
	err    error
	called bool
}

func (p *stubProcessor) Name() string {
	return p.name
}

func (p *stubProcessor) Process(ctx context.Context, jobID uuid.UUID, msg models.JobMessage) error {
	p.called = true
	return p.err
}

type mockPublisher struct {
	lastRoutingKey string
	lastMessage    interface{}
	publishCount   int
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	m.lastRoutingKey = routingKey
	m.lastMessage = message
	m.publishCount++
	return nil
}

func (m *mockPublisher) Conn() *queue.Connection {
	return nil
}

func newTestWorker(sqlDB *database.DB, pub Publisher) *Worker {
	return &Worker{
		db:        sqlDB,
		jobs:      database.NewJobStore(sqlDB),
		segments:  database.NewSegmentStore(sqlDB),
		publisher: pub,
		config:    &config.Config{},
		logger:    zap.NewNop(),
	}
}

func expectJobRow(mock sqlmock.Sqlmock, jobID uuid.UUID, status string, createdAt time.Time) {
	rows := sqlmock.NewRows([]string{
		"id", "status", "source_video_key", "source_language", "target_language",
		"min_speakers", "max_speakers", "created_at",
	}).AddRow(jobID, status, "jobs/x/source.mp4", "en", "hi", 0, 0, createdAt)

	mock.ExpectQuery(`SELECT id, status, source_video_key`).
		WithArgs(jobID).
		WillReturnRows(rows)
}

func TestRunStepWithStatusSuccess(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer sqlDB.Close()

	db := &database.DB{DB: sqlDB}
	pub := &mockPublisher{}
	w := newTestWorker(db, pub)

	processor := &stubProcessor{name: "extract_audio"}
	jobID := uuid.New()
	jobMsg := models.JobMessage{JobID: jobID.String(), Attempt: 1, TraceID: "trace"}

	expectJobRow(mock, jobID, database.JobStatusProcessing, time.Now())

	mock.ExpectQuery(`SELECT status FROM job_steps`).
		WithArgs(jobID, processor.Name()).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM job_steps WHERE job_id = \$1 AND step = \$2 AND attempt = \$3\)`).
		WithArgs(jobID, processor.Name(), jobMsg.Attempt).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO job_steps`).
		WithArgs(jobID, processor.Name(), "running", jobMsg.Attempt, sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM job_steps WHERE job_id = \$1 AND step = \$2 AND attempt = \$3\)`).
		WithArgs(jobID, processor.Name(), jobMsg.Attempt).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`UPDATE job_steps\s+SET status = \$1, error = \$2, ended_at = \$3, metrics_json = \$4, updated_at = \$5\s+WHERE job_id = \$6 AND step = \$7 AND attempt = \$8`).
		WithArgs("succeeded", nil, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), jobID, processor.Name(), jobMsg.Attempt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec(`UPDATE jobs SET progress = GREATEST`).
		WithArgs(10, processor.Name(), sqlmock.AnyArg(), jobID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := w.runStepWithStatus(context.Background(), processor, jobID, jobMsg); err != nil {
		t.Fatalf("runStepWithStatus returned error: %v", err)
	}

	if !processor.called {
		t.Fatalf("processor was not invoked")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("there were unfulfilled expectations: %v", err)
	}
}

func TestRunStepWithStatusRetry(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer sqlDB.Close()

	db := &database.DB{DB: sqlDB}
	pub := &mockPublisher{}
	w := newTestWorker(db, pub)

	processor := &stubProcessor{name: "transcribe", err: fmt.Errorf("step failed")}
	jobID := uuid.New()
	jobMsg := models.JobMessage{JobID: jobID.String(), Attempt: 1, TraceID: "trace"}

	expectJobRow(mock, jobID, database.JobStatusProcessing, time.Now())

	mock.ExpectQuery(`SELECT status FROM job_steps`).
		WithArgs(jobID, processor.Name()).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM job_steps WHERE job_id = \$1 AND step = \$2 AND attempt = \$3\)`).
		WithArgs(jobID, processor.Name(), jobMsg.Attempt).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO job_steps`).
		WithArgs(jobID, processor.Name(), "running", jobMsg.Attempt, sqlmock.AnyArg(), nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM job_steps WHERE job_id = \$1 AND step = \$2 AND attempt = \$3\)`).
		WithArgs(jobID, processor.Name(), jobMsg.Attempt).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`UPDATE job_steps\s+SET status = \$1, error = \$2, ended_at = \$3, metrics_json = \$4, updated_at = \$5\s+WHERE job_id = \$6 AND step = \$7 AND attempt = \$8`).
		WithArgs("failed", sqlmock.AnyArg(), sqlmock.AnyArg(), nil, sqlmock.AnyArg(), jobID, processor.Name(), jobMsg.Attempt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := w.runStepWithStatus(context.Background(), processor, jobID, jobMsg); err != nil {
		t.Fatalf("runStepWithStatus returned error: %v", err)
	}

	if !processor.called {
		t.Fatalf("processor was not invoked")
	}

	if pub.publishCount != 1 {
		t.Fatalf("expected retry publish to be called once, got %d", pub.publishCount)
	}
	if pub.lastRoutingKey != "job.transcribe" {
		t.Fatalf("unexpected retry routing key: %s", pub.lastRoutingKey)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("there were unfulfilled expectations: %v", err)
	}
}

func TestRunStepWithStatusCanceledJob(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer sqlDB.Close()

	db := &database.DB{DB: sqlDB}
	pub := &mockPublisher{}
	w := newTestWorker(db, pub)

	processor := &stubProcessor{name: "translate"}
	jobID := uuid.New()
	jobMsg := models.JobMessage{JobID: jobID.String(), Attempt: 1, TraceID: "trace"}

	expectJobRow(mock, jobID, database.JobStatusCanceled, time.Now())

	if err := w.runStepWithStatus(context.Background(), processor, jobID, jobMsg); err != nil {
		t.Fatalf("runStepWithStatus returned error: %v", err)
	}

	if processor.called {
		t.Fatalf("processor ran for a canceled job")
	}
	if pub.publishCount != 0 {
		t.Fatalf("no messages should be published for a canceled job")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("there were unfulfilled expectations: %v", err)
	}
}

func TestRunStepWithStatusDeadlineExceeded(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer sqlDB.Close()

	db := &database.DB{DB: sqlDB}
	pub := &mockPublisher{}
	w := newTestWorker(db, pub)
	w.config.Pipeline.JobDeadline = time.Hour

	processor := &stubProcessor{name: "synthesize"}
	jobID := uuid.New()
	jobMsg := models.JobMessage{JobID: jobID.String(), Attempt: 1, TraceID: "trace"}

	expectJobRow(mock, jobID, database.JobStatusProcessing, time.Now().Add(-2*time.Hour))

	mock.ExpectExec(`UPDATE jobs SET status = \$1`).
		WithArgs(database.JobStatusError, sqlmock.AnyArg(), sqlmock.AnyArg(), jobID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := w.runStepWithStatus(context.Background(), processor, jobID, jobMsg); err == nil {
		t.Fatalf("expected a deadline error")
	}

	if processor.called {
		t.Fatalf("processor ran past the job deadline")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("there were unfulfilled expectations: %v", err)
	}
}

func TestRegistryNames(t *testing.T) {
	reg := NewProcessorRegistry()
	reg.Register(&stubProcessor{name: "b"})
	reg.Register(&stubProcessor{name: "a"})

	names := reg.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("unexpected names order: %v", names)
	}
}
