package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/domain"
)

type fakePipeline struct {
	mu       sync.Mutex
	failures map[string]int // tenant -> number of attempts that fail
	calls    map[string]int
	jobs     []Job
}

func newFakePipeline(failures map[string]int) *fakePipeline {
	return &fakePipeline{failures: failures, calls: map[string]int{}}
}

func (f *fakePipeline) Name() string { return "fake" }

func (f *fakePipeline) Run(_ context.Context, job Job) (PartitionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[job.TenantID]++
	f.jobs = append(f.jobs, job)
	if f.calls[job.TenantID] <= f.failures[job.TenantID] {
		return PartitionStats{}, errors.New("transient failure")
	}
	return PartitionStats{Articles: 3}, nil
}

type staticTenants []string

func (s staticTenants) ListTenants(context.Context) ([]string, error) { return s, nil }

type memoryTracker struct {
	mu       sync.Mutex
	runs     []PipelineRun
	finished []PipelineRun
	jobs     map[string]PartitionJob
}

func (m *memoryTracker) CreateRun(_ context.Context, run *PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memoryTracker) FinishRun(_ context.Context, run *PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, *run)
	return nil
}

func (m *memoryTracker) CreatePartitionJob(_ context.Context, job *PartitionJob) error {
	return m.UpdatePartitionJob(context.Background(), job)
}

func (m *memoryTracker) UpdatePartitionJob(_ context.Context, job *PartitionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.jobs == nil {
		m.jobs = map[string]PartitionJob{}
	}
	m.jobs[job.TenantID] = *job
	return nil
}

type busyLocker struct{ busy string }

func (b busyLocker) Obtain(_ context.Context, key string, _ time.Duration) (Lock, error) {
	if key == LockKey("fake", b.busy) {
		return nil, ErrPartitionLocked
	}
	return noopLock{}, nil
}

func testConfig() PipelineConfig {
	cfg := DefaultPipelineConfig("fake")
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func TestOrchestrator_IsolatesFailingTenant(t *testing.T) {
	p := newFakePipeline(map[string]int{"bad": 100})
	tracker := &memoryTracker{}
	o := NewOrchestrator(testConfig(), nil, tracker, nil)

	report, err := o.Run(context.Background(), p, RunRequest{Tenants: []string{"t2", "bad", "t1"}, To: time.Now()})
	require.NoError(t, err)

	assert.Equal(t, []string{"t1", "t2"}, report.Succeeded)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "bad", report.Failed[0].TenantID)
	assert.Equal(t, 3, report.Failed[0].Attempts)
	assert.Equal(t, 3, p.calls["bad"], "first attempt plus two retries")
	assert.Equal(t, StatusPartial, report.Status())

	var perr *domain.PartitionError
	require.ErrorAs(t, report.Err(), &perr)
	assert.Equal(t, "bad", perr.TenantID)

	require.Len(t, tracker.finished, 1)
	assert.Equal(t, StatusPartial, tracker.finished[0].Status)
	assert.Equal(t, 2, tracker.finished[0].SucceededPartitions)
	assert.Equal(t, PartitionFailed, tracker.jobs["bad"].Status)
	assert.Equal(t, PartitionCompleted, tracker.jobs["t1"].Status)
	assert.Equal(t, 3, tracker.jobs["t1"].Articles)
}

func TestOrchestrator_RetriesTransientFailure(t *testing.T) {
	p := newFakePipeline(map[string]int{"t1": 2})
	o := NewOrchestrator(testConfig(), nil, nil, nil)

	report, err := o.Run(context.Background(), p, RunRequest{Tenants: []string{"t1"}})
	require.NoError(t, err)

	assert.NoError(t, report.Err())
	assert.Equal(t, []string{"t1"}, report.Succeeded)
	assert.Equal(t, 3, p.calls["t1"])
	assert.Equal(t, 3, report.Stats["t1"].Articles)
	assert.Equal(t, StatusCompleted, report.Status())
}

func TestOrchestrator_ListsTenantsWhenNoneRequested(t *testing.T) {
	p := newFakePipeline(nil)
	o := NewOrchestrator(testConfig(), staticTenants{"a", "b", "c"}, nil, nil)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	report, err := o.Run(context.Background(), p, RunRequest{WarehouseID: "w1", To: to})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, report.Succeeded)
	require.Len(t, p.jobs, 3)
	for _, j := range p.jobs {
		assert.Equal(t, report.RunID, j.RunID)
		assert.Equal(t, "w1", j.WarehouseID)
		assert.Equal(t, to, j.To)
	}
}

func TestOrchestrator_RequiresTenantSource(t *testing.T) {
	o := NewOrchestrator(testConfig(), nil, nil, nil)
	_, err := o.Run(context.Background(), newFakePipeline(nil), RunRequest{})
	assert.Error(t, err)
}

func TestOrchestrator_LockedTenantIsNotRun(t *testing.T) {
	p := newFakePipeline(nil)
	o := NewOrchestrator(testConfig(), nil, nil, busyLocker{busy: "t2"})

	report, err := o.Run(context.Background(), p, RunRequest{Tenants: []string{"t1", "t2"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"t1"}, report.Succeeded)
	require.Len(t, report.Failed, 1)
	assert.ErrorIs(t, report.Failed[0], ErrPartitionLocked)
	assert.Zero(t, p.calls["t2"])
}

func TestOrchestrator_CancelledRunStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newFakePipeline(map[string]int{"t1": 100})
	cfg := testConfig()
	cfg.RetryBackoff = time.Hour

	report, err := NewOrchestrator(cfg, nil, nil, nil).Run(ctx, p, RunRequest{Tenants: []string{"t1"}})
	require.NoError(t, err)

	require.Len(t, report.Failed, 1)
	assert.Equal(t, 1, p.calls["t1"])
	assert.Equal(t, StatusFailed, report.Status())
}

func TestRunReport_ErrNilWhenAllSucceeded(t *testing.T) {
	assert.NoError(t, (&RunReport{Succeeded: []string{"t1"}}).Err())
	assert.NoError(t, (*RunReport)(nil).Err())
}
