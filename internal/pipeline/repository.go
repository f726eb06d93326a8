package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// Tracker records run and partition progress.
type Tracker interface {
	CreateRun(ctx context.Context, run *PipelineRun) error
	FinishRun(ctx context.Context, run *PipelineRun) error
	CreatePartitionJob(ctx context.Context, job *PartitionJob) error
	UpdatePartitionJob(ctx context.Context, job *PartitionJob) error
}

// Repository handles database operations for pipeline tracking
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new pipeline repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateRun creates a new pipeline run record
func (r *Repository) CreateRun(ctx context.Context, run *PipelineRun) error {
	query := `
		INSERT INTO pipeline_runs (
			id, pipeline_name, as_of, status, total_partitions,
			succeeded_partitions, failed_partitions, started_at
		) VALUES (
			:id, :pipeline_name, :as_of, :status, :total_partitions,
			:succeeded_partitions, :failed_partitions, :started_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, run)
	return err
}

// FinishRun stores the final counters and status of a run
func (r *Repository) FinishRun(ctx context.Context, run *PipelineRun) error {
	query := `
		UPDATE pipeline_runs
		SET status = :status, succeeded_partitions = :succeeded_partitions,
		    failed_partitions = :failed_partitions, completed_at = :completed_at,
		    error_message = :error_message
		WHERE id = :id
	`

	_, err := r.db.NamedExecContext(ctx, query, run)
	return err
}

// GetRun retrieves a pipeline run by ID, nil when it does not exist
func (r *Repository) GetRun(ctx context.Context, id string) (*PipelineRun, error) {
	query := `
		SELECT id, pipeline_name, as_of, status, total_partitions,
		       succeeded_partitions, failed_partitions, started_at,
		       completed_at, COALESCE(error_message, '') AS error_message
		FROM pipeline_runs
		WHERE id = $1
	`

	var run PipelineRun
	err := r.db.GetContext(ctx, &run, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CreatePartitionJob creates a new partition job record
func (r *Repository) CreatePartitionJob(ctx context.Context, job *PartitionJob) error {
	query := `
		INSERT INTO pipeline_partition_jobs (
			run_id, tenant_id, warehouse_id, status, attempts
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	return r.db.QueryRowxContext(
		ctx, query,
		job.RunID, job.TenantID, job.WarehouseID, job.Status, job.Attempts,
	).Scan(&job.ID)
}

// UpdatePartitionJob updates an existing partition job
func (r *Repository) UpdatePartitionJob(ctx context.Context, job *PartitionJob) error {
	query := `
		UPDATE pipeline_partition_jobs
		SET status = :status, attempts = :attempts, articles = :articles,
		    error_message = :error_message, processed_at = :processed_at
		WHERE id = :id
	`

	_, err := r.db.NamedExecContext(ctx, query, job)
	return err
}

// GetFailedPartitions returns the failed partitions of a run
func (r *Repository) GetFailedPartitions(ctx context.Context, runID string) ([]PartitionJob, error) {
	query := `
		SELECT id, run_id, tenant_id, warehouse_id, status, attempts, articles,
		       COALESCE(error_message, '') AS error_message, processed_at
		FROM pipeline_partition_jobs
		WHERE run_id = $1 AND status = $2
		ORDER BY tenant_id
	`

	var jobs []PartitionJob
	if err := r.db.SelectContext(ctx, &jobs, query, runID, PartitionFailed); err != nil {
		return nil, err
	}
	return jobs, nil
}

// NoopTracker discards tracking updates, used when no database is configured.
type NoopTracker struct{}

func (NoopTracker) CreateRun(context.Context, *PipelineRun) error { return nil }

func (NoopTracker) FinishRun(context.Context, *PipelineRun) error { return nil }

func (NoopTracker) CreatePartitionJob(context.Context, *PartitionJob) error { return nil }

func (NoopTracker) UpdatePartitionJob(context.Context, *PartitionJob) error { return nil }

func nowPtr(clock func() time.Time) *time.Time {
	t := clock()
	return &t
}
