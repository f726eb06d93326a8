package pipeline

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// Pipeline defines the interface that all partitioned batch pipelines implement
type Pipeline interface {
	// Name returns the unique identifier for this pipeline
	Name() string

	// Run computes and publishes one tenant partition. Nothing may be
	// published when an error is returned.
	Run(ctx context.Context, job Job) (PartitionStats, error)
}

// Job is the parameter set of one partition run.
type Job struct {
	RunID       string
	TenantID    string
	WarehouseID string    // optional, empty means every warehouse of the tenant
	From        time.Time // start of the sales window, zero means the pipeline default
	To          time.Time // as-of day, last day included
}

// RunRequest describes one scheduled run over many tenants.
type RunRequest struct {
	Tenants     []string // empty means every tenant known to the TenantLister
	WarehouseID string
	From        time.Time
	To          time.Time
}

// TenantLister resolves the tenants a run covers when none are requested.
type TenantLister interface {
	ListTenants(ctx context.Context) ([]string, error)
}

// PipelineConfig holds configuration for a pipeline instance
type PipelineConfig struct {
	Name          string
	WorkerCount   int           // Number of tenant partitions processed concurrently
	RetryAttempts int           // Number of retries after a failed attempt
	RetryBackoff  time.Duration // Backoff duration between retries
	LockTTL       time.Duration // Lifetime of the per-tenant run lock
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig(name string) PipelineConfig {
	return PipelineConfig{
		Name:          name,
		WorkerCount:   4,
		RetryAttempts: 2,
		RetryBackoff:  30 * time.Second,
		LockTTL:       10 * time.Minute,
	}
}

// PipelineStatus represents the current state of a pipeline run
type PipelineStatus string

const (
	StatusPending    PipelineStatus = "pending"
	StatusProcessing PipelineStatus = "processing"
	StatusCompleted  PipelineStatus = "completed"
	StatusPartial    PipelineStatus = "partial"
	StatusFailed     PipelineStatus = "failed"
)

// PartitionStatus represents the state of a single tenant partition
type PartitionStatus string

const (
	PartitionQueued     PartitionStatus = "queued"
	PartitionProcessing PartitionStatus = "processing"
	PartitionCompleted  PartitionStatus = "completed"
	PartitionFailed     PartitionStatus = "failed"
)

// PipelineRun tracks a single execution of a pipeline
type PipelineRun struct {
	ID                  string         `db:"id"`
	PipelineName        string         `db:"pipeline_name"`
	AsOf                time.Time      `db:"as_of"`
	Status              PipelineStatus `db:"status"`
	TotalPartitions     int            `db:"total_partitions"`
	SucceededPartitions int            `db:"succeeded_partitions"`
	FailedPartitions    int            `db:"failed_partitions"`
	StartedAt           time.Time      `db:"started_at"`
	CompletedAt         *time.Time     `db:"completed_at"`
	ErrorMessage        string         `db:"error_message"`
}

// PartitionJob tracks the processing of a single tenant partition
type PartitionJob struct {
	ID           int64           `db:"id"`
	RunID        string          `db:"run_id"`
	TenantID     string          `db:"tenant_id"`
	WarehouseID  string          `db:"warehouse_id"`
	Status       PartitionStatus `db:"status"`
	Attempts     int             `db:"attempts"`
	Articles     int             `db:"articles"`
	ErrorMessage string          `db:"error_message"`
	ProcessedAt  *time.Time      `db:"processed_at"`
}

// PartitionStats holds per partition counters for logging and tracking
type PartitionStats struct {
	Articles         int
	Snapshots        int
	Sales            int
	Forecasts        int
	Recommendations  int
	MissingReference int
	InvalidRecords   int
	Duration         time.Duration
}

// RunReport is the outcome of an orchestrated run.
type RunReport struct {
	RunID     string
	Succeeded []string
	Failed    []*domain.PartitionError
	Stats     map[string]PartitionStats
}

// Err joins every partition failure, nil when all partitions succeeded.
func (r *RunReport) Err() error {
	if r == nil || len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Status summarizes the run outcome.
func (r *RunReport) Status() PipelineStatus {
	switch {
	case len(r.Failed) == 0:
		return StatusCompleted
	case len(r.Succeeded) == 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

func (r *RunReport) sort() {
	sort.Strings(r.Succeeded)
	sort.Slice(r.Failed, func(i, j int) bool { return r.Failed[i].TenantID < r.Failed[j].TenantID })
}
