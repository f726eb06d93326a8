package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/domain"
)

type fakeRepo struct {
	published map[string]bool
	runID     string
	statuses  []domain.InventoryStatus
	rollups   []domain.RollupSummary

	lastStatusFilter domain.StatusFilter
	rollupCalls      int
}

func (r *fakeRepo) GetPublication(_ context.Context, tenantID string) (*domain.Publication, error) {
	if !r.published[tenantID] {
		return nil, domain.ErrUnavailable
	}
	runID := r.runID
	if runID == "" {
		runID = "run-1"
	}
	return &domain.Publication{TenantID: tenantID, RunID: runID}, nil
}

func (r *fakeRepo) ListStatuses(_ context.Context, f domain.StatusFilter) ([]domain.InventoryStatus, int, error) {
	r.lastStatusFilter = f
	return r.statuses, len(r.statuses), nil
}

func (r *fakeRepo) ListRecommendations(context.Context, domain.RecommendationFilter) ([]domain.ReorderRecommendation, int, error) {
	return nil, 0, nil
}

func (r *fakeRepo) ListForecasts(context.Context, domain.ForecastFilter) ([]domain.DemandForecast, error) {
	return nil, nil
}

func (r *fakeRepo) ListRollups(context.Context, domain.RollupFilter) ([]domain.RollupSummary, error) {
	r.rollupCalls++
	return r.rollups, nil
}

type mapCache struct {
	entries map[domain.RollupFilter][]domain.RollupSummary
	getErr  error
}

func (c *mapCache) Get(_ context.Context, f domain.RollupFilter) ([]domain.RollupSummary, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	r, ok := c.entries[f]
	return r, ok, nil
}

func (c *mapCache) Set(_ context.Context, f domain.RollupFilter, r []domain.RollupSummary) error {
	c.entries[f] = r
	return nil
}

func (c *mapCache) InvalidateTenant(_ context.Context, tenantID string) error {
	for f := range c.entries {
		if f.TenantID == tenantID {
			delete(c.entries, f)
		}
	}
	return nil
}

func TestReadModelService_UnavailableTenant(t *testing.T) {
	svc := NewReadModelService(&fakeRepo{}, nil)
	ctx := context.Background()

	_, err := svc.InventoryStatus(ctx, domain.StatusFilter{TenantID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = svc.Recommendations(ctx, domain.RecommendationFilter{TenantID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = svc.Forecasts(ctx, domain.ForecastFilter{TenantID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = svc.Rollups(ctx, domain.RollupFilter{TenantID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = svc.Publication(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestReadModelService_PagesStatuses(t *testing.T) {
	repo := &fakeRepo{
		published: map[string]bool{"t1": true},
		statuses:  make([]domain.InventoryStatus, 3),
	}
	svc := NewReadModelService(repo, nil)

	page, err := svc.InventoryStatus(context.Background(), domain.StatusFilter{TenantID: "t1", PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, repo.lastStatusFilter.Page)

	_, err = svc.InventoryStatus(context.Background(), domain.StatusFilter{TenantID: "t1", PageSize: 10000})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize, repo.lastStatusFilter.PageSize)
}

func TestReadModelService_EmptyResultsAreNotNil(t *testing.T) {
	svc := NewReadModelService(&fakeRepo{published: map[string]bool{"t1": true}}, nil)

	recs, err := svc.Recommendations(context.Background(), domain.RecommendationFilter{TenantID: "t1"})
	require.NoError(t, err)
	assert.NotNil(t, recs.Items)
	assert.Equal(t, 0, recs.TotalPages)

	forecasts, err := svc.Forecasts(context.Background(), domain.ForecastFilter{TenantID: "t1"})
	require.NoError(t, err)
	assert.NotNil(t, forecasts)
}

func TestReadModelService_ForecastRange(t *testing.T) {
	svc := NewReadModelService(&fakeRepo{published: map[string]bool{"t1": true}}, nil)
	from := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.Forecasts(context.Background(), domain.ForecastFilter{TenantID: "t1", From: from, To: from.AddDate(0, 0, -1)})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestReadModelService_RollupsCacheThrough(t *testing.T) {
	repo := &fakeRepo{
		published: map[string]bool{"t1": true},
		rollups:   []domain.RollupSummary{domain.WarehouseRollup{TenantID: "t1", WarehouseID: "w1"}},
	}
	c := &mapCache{entries: map[domain.RollupFilter][]domain.RollupSummary{}}
	svc := NewReadModelService(repo, c)
	filter := domain.RollupFilter{TenantID: "t1", Level: domain.RollupLevelWarehouse}

	for i := 0; i < 2; i++ {
		rollups, err := svc.Rollups(context.Background(), filter)
		require.NoError(t, err)
		assert.Len(t, rollups, 1)
	}
	assert.Equal(t, 1, repo.rollupCalls, "second read served from cache")

	require.NoError(t, c.InvalidateTenant(context.Background(), "t1"))
	_, err := svc.Rollups(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.rollupCalls)

	c.getErr = errors.New("redis down")
	_, err = svc.Rollups(context.Background(), filter)
	require.NoError(t, err, "cache failures fall back to the repository")
	assert.Equal(t, 3, repo.rollupCalls)
}

func TestReadModelService_RollupsCacheFollowsPublication(t *testing.T) {
	stale := []domain.RollupSummary{domain.WarehouseRollup{TenantID: "t1", WarehouseID: "old"}}
	repo := &fakeRepo{
		published: map[string]bool{"t1": true},
		runID:     "run-2",
		rollups:   []domain.RollupSummary{domain.WarehouseRollup{TenantID: "t1", WarehouseID: "w1"}},
	}
	c := &mapCache{entries: map[domain.RollupFilter][]domain.RollupSummary{}}
	svc := NewReadModelService(repo, c)
	filter := domain.RollupFilter{TenantID: "t1", Level: domain.RollupLevelWarehouse}

	// a read under run-1 wrote its rows after run-2 was published and invalidated
	previous := filter
	previous.RunID = "run-1"
	require.NoError(t, c.Set(context.Background(), previous, stale))

	rollups, err := svc.Rollups(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, rollups, 1)
	assert.Equal(t, "w1", rollups[0].(domain.WarehouseRollup).WarehouseID)
	assert.Equal(t, 1, repo.rollupCalls)
}
