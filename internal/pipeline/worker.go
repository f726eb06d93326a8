package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

// Worker processes tenant partitions for a specific pipeline
type Worker struct {
	pipeline Pipeline
	config   PipelineConfig
	tracker  Tracker
	locker   Locker
	clock    func() time.Time
}

// NewWorker creates a new pipeline worker
func NewWorker(p Pipeline, config PipelineConfig, tracker Tracker, locker Locker) *Worker {
	if tracker == nil {
		tracker = NoopTracker{}
	}
	if locker == nil {
		locker = NoopLocker{}
	}
	return &Worker{
		pipeline: p,
		config:   config,
		tracker:  tracker,
		locker:   locker,
		clock:    time.Now,
	}
}

// ProcessPartition runs one tenant partition under the tenant lock, retrying
// failed attempts with a fixed backoff. The returned error is always a
// *domain.PartitionError.
func (w *Worker) ProcessPartition(ctx context.Context, job Job) (PartitionStats, error) {
	log := logger.Log.With().
		Str("pipeline", w.pipeline.Name()).
		Str("run_id", job.RunID).
		Str("tenant_id", job.TenantID).
		Str("warehouse_id", job.WarehouseID).
		Logger()

	tracked := &PartitionJob{
		RunID:       job.RunID,
		TenantID:    job.TenantID,
		WarehouseID: job.WarehouseID,
		Status:      PartitionQueued,
	}
	if err := w.tracker.CreatePartitionJob(ctx, tracked); err != nil {
		log.Warn().Err(err).Msg("failed to record partition job")
	}

	lock, err := w.locker.Obtain(ctx, LockKey(w.pipeline.Name(), job.TenantID), w.config.LockTTL)
	if err != nil {
		if !errors.Is(err, ErrPartitionLocked) {
			err = fmt.Errorf("obtain partition lock: %w", err)
		}
		return PartitionStats{}, w.markPartitionFailed(ctx, tracked, err)
	}
	defer func() {
		// release on a fresh context so a cancelled run still frees the lock
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			log.Warn().Err(err).Msg("failed to release partition lock")
		}
	}()

	tracked.Status = PartitionProcessing
	w.updatePartition(ctx, tracked)

	maxAttempts := w.config.RetryAttempts + 1
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tracked.Attempts = attempt
		start := w.clock()

		stats, err := w.pipeline.Run(ctx, job)
		if err == nil {
			stats.Duration = w.clock().Sub(start)
			tracked.Status = PartitionCompleted
			tracked.Articles = stats.Articles
			tracked.ErrorMessage = ""
			tracked.ProcessedAt = nowPtr(w.clock)
			w.updatePartition(ctx, tracked)

			log.Info().
				Int("attempt", attempt).
				Int("articles", stats.Articles).
				Int("recommendations", stats.Recommendations).
				Int("forecasts", stats.Forecasts).
				Int("missing_reference", stats.MissingReference).
				Dur("duration", stats.Duration).
				Msg("partition published")
			return stats, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}

		log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", maxAttempts).Msg("partition attempt failed")
		if attempt < maxAttempts {
			if err := sleepContext(ctx, w.config.RetryBackoff); err != nil {
				break
			}
		}
	}

	return PartitionStats{}, w.markPartitionFailed(ctx, tracked, lastErr)
}

// markPartitionFailed records the failure and wraps it for the run report
func (w *Worker) markPartitionFailed(ctx context.Context, job *PartitionJob, err error) error {
	job.Status = PartitionFailed
	job.ErrorMessage = err.Error()
	job.ProcessedAt = nowPtr(w.clock)
	w.updatePartition(ctx, job)

	attempts := job.Attempts
	logger.Log.Error().Err(err).
		Str("tenant_id", job.TenantID).
		Int("attempts", attempts).
		Msg("partition failed")

	return &domain.PartitionError{TenantID: job.TenantID, Attempts: attempts, Err: err}
}

func (w *Worker) updatePartition(ctx context.Context, job *PartitionJob) {
	// tracking must survive cancellation of the run itself
	if err := w.tracker.UpdatePartitionJob(context.WithoutCancel(ctx), job); err != nil {
		logger.Log.Warn().Err(err).Str("tenant_id", job.TenantID).Msg("failed to update partition job")
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
