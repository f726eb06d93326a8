package service

import (
	"context"
	"fmt"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ReadModelService serves published outputs. Every query first checks the
// tenant's publication marker, so tenants that never completed a run get
// domain.ErrUnavailable instead of empty results.
type ReadModelService struct {
	repo  postgres.ReadModelRepository
	cache cache.RollupCache
}

func NewReadModelService(repo postgres.ReadModelRepository, cacheImpl cache.RollupCache) *ReadModelService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopRollupCache()
	}
	return &ReadModelService{repo: repo, cache: cacheImpl}
}

// Publication returns the tenant's latest publication marker.
func (s *ReadModelService) Publication(ctx context.Context, tenantID string) (*domain.Publication, error) {
	return s.repo.GetPublication(ctx, tenantID)
}

func (s *ReadModelService) InventoryStatus(ctx context.Context, filter domain.StatusFilter) (*domain.Page[domain.InventoryStatus], error) {
	if _, err := s.repo.GetPublication(ctx, filter.TenantID); err != nil {
		return nil, err
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)

	items, total, err := s.repo.ListStatuses(ctx, filter)
	if err != nil {
		return nil, err
	}
	return newPage(items, total, filter.Page, filter.PageSize), nil
}

func (s *ReadModelService) Recommendations(ctx context.Context, filter domain.RecommendationFilter) (*domain.Page[domain.ReorderRecommendation], error) {
	if _, err := s.repo.GetPublication(ctx, filter.TenantID); err != nil {
		return nil, err
	}
	filter.Page, filter.PageSize = normalizePage(filter.Page, filter.PageSize)

	items, total, err := s.repo.ListRecommendations(ctx, filter)
	if err != nil {
		return nil, err
	}
	return newPage(items, total, filter.Page, filter.PageSize), nil
}

func (s *ReadModelService) Forecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.DemandForecast, error) {
	if _, err := s.repo.GetPublication(ctx, filter.TenantID); err != nil {
		return nil, err
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, fmt.Errorf("%w: to is before from", ErrInvalidFilter)
	}

	items, err := s.repo.ListForecasts(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = make([]domain.DemandForecast, 0)
	}
	return items, nil
}

// Rollups are served from cache when possible. Entries are keyed by the
// publication run they were read under, so rows cached by a read that
// overlapped a publish are never served for the newer run.
func (s *ReadModelService) Rollups(ctx context.Context, filter domain.RollupFilter) ([]domain.RollupSummary, error) {
	pub, err := s.repo.GetPublication(ctx, filter.TenantID)
	if err != nil {
		return nil, err
	}
	filter.RunID = pub.RunID

	if rollups, ok, err := s.cache.Get(ctx, filter); err == nil && ok {
		return rollups, nil
	} else if err != nil {
		logger.Log.Warn().Err(err).Str("tenant_id", filter.TenantID).Msg("rollups: cache get failed")
	}

	rollups, err := s.repo.ListRollups(ctx, filter)
	if err != nil {
		return nil, err
	}
	if rollups == nil {
		rollups = make([]domain.RollupSummary, 0)
	}

	if err := s.cache.Set(ctx, filter, rollups); err != nil {
		logger.Log.Warn().Err(err).Str("tenant_id", filter.TenantID).Msg("rollups: cache set failed")
	}
	return rollups, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func newPage[T any](items []T, total, page, pageSize int) *domain.Page[T] {
	if items == nil {
		items = make([]T, 0)
	}
	return &domain.Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
}
