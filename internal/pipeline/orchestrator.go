package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

// Orchestrator fans a run out over tenant partitions on a bounded worker pool.
type Orchestrator struct {
	cfg     PipelineConfig
	tracker Tracker
	locker  Locker
	tenants TenantLister
	clock   func() time.Time
}

// NewOrchestrator creates a new Orchestrator. tracker and locker may be nil.
func NewOrchestrator(cfg PipelineConfig, tenants TenantLister, tracker Tracker, locker Locker) *Orchestrator {
	if tracker == nil {
		tracker = NoopTracker{}
	}
	if locker == nil {
		locker = NoopLocker{}
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}
	return &Orchestrator{
		cfg:     cfg,
		tracker: tracker,
		locker:  locker,
		tenants: tenants,
		clock:   time.Now,
	}
}

// Run processes every requested tenant partition. A failing tenant never
// stops the others; failures are collected in the report. The returned error
// is only set when the run could not start.
func (o *Orchestrator) Run(ctx context.Context, p Pipeline, req RunRequest) (*RunReport, error) {
	tenants, err := o.resolveTenants(ctx, req.Tenants)
	if err != nil {
		return nil, err
	}

	report := &RunReport{
		RunID: uuid.NewString(),
		Stats: make(map[string]PartitionStats, len(tenants)),
	}
	if len(tenants) == 0 {
		logger.Log.Warn().Str("pipeline", p.Name()).Msg("no tenants to process")
		return report, nil
	}

	run := &PipelineRun{
		ID:              report.RunID,
		PipelineName:    p.Name(),
		AsOf:            req.To,
		Status:          StatusProcessing,
		TotalPartitions: len(tenants),
		StartedAt:       o.clock(),
	}
	if err := o.tracker.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create pipeline run: %w", err)
	}

	logger.Log.Info().
		Str("pipeline", p.Name()).
		Str("run_id", run.ID).
		Int("tenants", len(tenants)).
		Int("workers", o.cfg.WorkerCount).
		Time("as_of", req.To).
		Msg("starting run")

	worker := NewWorker(p, o.cfg, o.tracker, o.locker)
	worker.clock = o.clock

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.WorkerCount)
	for _, tenantID := range tenants {
		g.Go(func() error {
			job := Job{
				RunID:       run.ID,
				TenantID:    tenantID,
				WarehouseID: req.WarehouseID,
				From:        req.From,
				To:          req.To,
			}
			stats, err := worker.ProcessPartition(gctx, job)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				var perr *domain.PartitionError
				if !errors.As(err, &perr) {
					perr = &domain.PartitionError{TenantID: tenantID, Err: err}
				}
				report.Failed = append(report.Failed, perr)
				return nil
			}
			report.Succeeded = append(report.Succeeded, tenantID)
			report.Stats[tenantID] = stats
			return nil
		})
	}
	_ = g.Wait()
	report.sort()

	run.Status = report.Status()
	run.SucceededPartitions = len(report.Succeeded)
	run.FailedPartitions = len(report.Failed)
	run.CompletedAt = nowPtr(o.clock)
	if err := report.Err(); err != nil {
		run.ErrorMessage = err.Error()
	}
	if err := o.tracker.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Log.Warn().Err(err).Str("run_id", run.ID).Msg("failed to finish pipeline run")
	}

	logger.Log.Info().
		Str("pipeline", p.Name()).
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Int("succeeded", run.SucceededPartitions).
		Int("failed", run.FailedPartitions).
		Msg("run finished")

	return report, nil
}

func (o *Orchestrator) resolveTenants(ctx context.Context, requested []string) ([]string, error) {
	if len(requested) > 0 {
		seen := make(map[string]bool, len(requested))
		out := make([]string, 0, len(requested))
		for _, t := range requested {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
		return out, nil
	}
	if o.tenants == nil {
		return nil, errors.New("no tenants requested and no tenant lister configured")
	}
	tenants, err := o.tenants.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, nil
}
