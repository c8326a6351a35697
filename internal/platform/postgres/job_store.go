package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskmgmt-api/internal/dispatch"
	"github.com/phrazzld/taskmgmt-api/internal/platform/logger"
	"github.com/phrazzld/taskmgmt-api/internal/store"
)

// PostgresJobStore implements the dispatch.JobStore interface using PostgreSQL.
// Rows loaded during recovery are turned back into executable jobs by the
// factory, since a persisted row carries data but no runtime dependencies.
type PostgresJobStore struct {
	db      store.DBTX
	factory dispatch.JobFactory
}

// NewPostgresJobStore creates a new PostgresJobStore
func NewPostgresJobStore(db store.DBTX, factory dispatch.JobFactory) *PostgresJobStore {
	return &PostgresJobStore{
		db:      db,
		factory: factory,
	}
}

// Ensure PostgresJobStore implements dispatch.JobStore interface
var _ dispatch.JobStore = (*PostgresJobStore)(nil)

// WithTx returns a new JobStore that runs all operations on the given transaction.
func (s *PostgresJobStore) WithTx(tx *sql.Tx) dispatch.JobStore {
	return &PostgresJobStore{
		db:      tx,
		factory: s.factory,
	}
}

// SaveJob persists a job to the database
func (s *PostgresJobStore) SaveJob(ctx context.Context, job dispatch.Job) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO notification_jobs (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, query,
		job.ID(),
		job.Type(),
		job.Payload(),
		job.Status(),
		now,
		now,
	)

	if err != nil {
		log.Error("failed to save notification job",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"error", err)
		return fmt.Errorf("failed to save job to database: %w", err)
	}

	return nil
}

// UpdateJobStatus updates the status of a job in the database
func (s *PostgresJobStore) UpdateJobStatus(
	ctx context.Context,
	jobID uuid.UUID,
	status dispatch.JobStatus,
	errorMsg string,
) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE notification_jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, query,
		status,
		errorMsg,
		now,
		jobID,
	)

	if err != nil {
		log.Error("failed to update job status",
			"job_id", jobID,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			"job_id", jobID,
			"error", err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		log.Warn("no job found with ID to update status",
			"job_id", jobID)
		return nil // Job not found, treat as no-op
	}

	return nil
}

// GetPendingJobs retrieves all jobs with "pending" status
func (s *PostgresJobStore) GetPendingJobs(ctx context.Context) ([]dispatch.Job, error) {
	return s.getJobsByStatus(ctx, dispatch.JobStatusPending, 0)
}

// GetProcessingJobs retrieves jobs with "processing" status
func (s *PostgresJobStore) GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]dispatch.Job, error) {
	return s.getJobsByStatus(ctx, dispatch.JobStatusProcessing, olderThan)
}

// getJobsByStatus is a helper method to get jobs by status with optional age filter
func (s *PostgresJobStore) getJobsByStatus(
	ctx context.Context,
	status dispatch.JobStatus,
	olderThan time.Duration,
) ([]dispatch.Job, error) {
	log := logger.FromContext(ctx)

	var query string
	var args []interface{}

	if olderThan > 0 {
		// Get jobs older than the specified duration
		query = `
			SELECT id, type, payload, status, created_at, updated_at
			FROM notification_jobs
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = []interface{}{status, time.Now().UTC().Add(-olderThan)}
	} else {
		// Get all jobs with the given status
		query = `
			SELECT id, type, payload, status, created_at, updated_at
			FROM notification_jobs
			WHERE status = $1
			ORDER BY created_at ASC
		`
		args = []interface{}{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query jobs by status",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("failed to query jobs by status: %w", err)
	}
	defer closeRows(rows, log)

	var jobs []dispatch.Job

	for rows.Next() {
		var id uuid.UUID
		var jobType string
		var payload []byte
		var jobStatus dispatch.JobStatus
		var createdAt time.Time
		var updatedAt time.Time

		if err := rows.Scan(&id, &jobType, &payload, &jobStatus, &createdAt, &updatedAt); err != nil {
			log.Error("failed to scan job row",
				"status", status,
				"error", err)
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}

		job, err := s.factory(id, jobType, payload, jobStatus)
		if err != nil {
			// Skip rows that can't be reconstituted rather than failing
			// recovery entirely; the row keeps its status for inspection.
			log.Error("failed to reconstitute job from row",
				"job_id", id,
				"job_type", jobType,
				"error", err)
			continue
		}

		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating job rows",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}

	return jobs, nil
}
