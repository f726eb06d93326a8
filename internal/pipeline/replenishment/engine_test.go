package replenishment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/pipeline"
)

type memorySource struct {
	articles  []domain.ArticleMaster
	snapshots []domain.InventorySnapshot
	sales     []domain.SaleEvent

	onLoadSales func()
	err         error
}

func (s *memorySource) LoadArticles(_ context.Context, tenantID string) ([]domain.ArticleMaster, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.ArticleMaster
	for _, a := range s.articles {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memorySource) LoadSnapshots(_ context.Context, tenantID, warehouseID string) ([]domain.InventorySnapshot, error) {
	var out []domain.InventorySnapshot
	for _, snap := range s.snapshots {
		if snap.TenantID == tenantID && (warehouseID == "" || snap.WarehouseID == warehouseID) {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (s *memorySource) LoadSales(_ context.Context, tenantID string, _, _ time.Time) ([]domain.SaleEvent, error) {
	if s.onLoadSales != nil {
		s.onLoadSales()
	}
	// deliberately unfiltered by date, the engine owns the window
	var out []domain.SaleEvent
	for _, e := range s.sales {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out, nil
}

type capturePublisher struct {
	mu        sync.Mutex
	published []*Output
	err       error
}

func (p *capturePublisher) Publish(_ context.Context, out *Output) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, out)
	return nil
}

var testAsOf = day("2024-03-31")

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func fixtureSource() *memorySource {
	article := func(id, category string, purchase, retail int64) domain.ArticleMaster {
		return domain.ArticleMaster{
			ArticleID:     id,
			TenantID:      "t1",
			Category:      category,
			Supplier:      "acme",
			PurchasePrice: decimal.NewFromInt(purchase),
			RetailPrice:   decimal.NewFromInt(retail),
			MinStockLevel: 10,
			MaxStockLevel: 100,
		}
	}
	snapshot := func(wh, id string, qty float64) domain.InventorySnapshot {
		return domain.InventorySnapshot{TenantID: "t1", WarehouseID: wh, ArticleID: id, Quantity: qty, SyncedAt: testAsOf}
	}

	src := &memorySource{
		articles: []domain.ArticleMaster{
			article("a1", "food", 4, 6),
			article("a2", "toys", 3, 5),
			article("a3", "food", 10, 15),
		},
		snapshots: []domain.InventorySnapshot{
			snapshot("w1", "a1", 0),
			snapshot("w1", "a2", 15),
			snapshot("w2", "a1", 100),
			snapshot("w2", "a3", 50),
			snapshot("w2", "ghost", 5),
			{TenantID: "t2", WarehouseID: "w9", ArticleID: "a1", Quantity: 3},
		},
	}
	for i := 0; i < 90; i++ {
		src.sales = append(src.sales, sale("a1", testAsOf.AddDate(0, 0, -i), 2))
	}
	for i := 0; i < 365; i++ {
		src.sales = append(src.sales, sale("a3", testAsOf.AddDate(0, 0, -i), 1))
	}
	src.sales = append(src.sales,
		sale("a3", testAsOf.AddDate(0, 0, 3), 1000), // after the as-of day
		domain.SaleEvent{SaleID: "neg", ArticleID: "a3", TenantID: "t1", SaleDate: testAsOf, Quantity: -4},
	)
	return src
}

func job() pipeline.Job {
	return pipeline.Job{RunID: "run-1", TenantID: "t1", To: testAsOf}
}

func TestEngine_RunPublishesPartition(t *testing.T) {
	src := fixtureSource()
	pub := &capturePublisher{}
	engine := NewEngine(src, pub, DefaultConfig(), fixedClock(testAsOf.Add(2*time.Hour)))

	stats, err := engine.Run(context.Background(), job())
	require.NoError(t, err)
	require.Len(t, pub.published, 1)
	out := pub.published[0]

	assert.Equal(t, "t1", out.TenantID)
	assert.Equal(t, testAsOf, out.AsOf)
	assert.Equal(t, 4, stats.Articles)
	assert.Equal(t, 1, stats.MissingReference)
	assert.Equal(t, 1, stats.InvalidRecords)
	require.Len(t, out.Statuses, 4)
	require.Len(t, out.Recommendations, 4)

	for _, s := range out.Statuses {
		assert.NotEqual(t, "ghost", s.ArticleID)
		assert.Equal(t, testAsOf.Add(2*time.Hour), s.CalculatedAt)
	}

	// the dead-stock article is class D and never forecast
	var dead domain.InventoryStatus
	for _, s := range out.Statuses {
		if s.ArticleID == "a2" {
			dead = s
		}
	}
	assert.Equal(t, domain.ABCClassD, dead.ABCClass)
	assert.True(t, dead.IsExcessInventory)

	forecastArticles := map[string]int{}
	for _, f := range out.Forecasts {
		forecastArticles[f.ArticleID]++
	}
	assert.Equal(t, map[string]int{"a1": 90, "a3": 90}, forecastArticles)

	// a3 sells one unit every day of the year, so it has no seasonality and
	// the unfiltered future sale must not leak in
	for _, f := range out.Forecasts {
		if f.ArticleID == "a3" {
			assert.Equal(t, 1.0, f.ForecastedDailyDemand)
		}
	}

	first := out.Recommendations[0]
	assert.Equal(t, "w1", first.WarehouseID)
	assert.Equal(t, "a1", first.ArticleID)
	assert.Equal(t, 1, first.Priority)

	require.Len(t, out.WarehouseRollups, 2)
	require.Len(t, out.CategoryRollups, 3)
	assert.Equal(t, 2, out.WarehouseRollups[0].TotalArticles)
}

func TestEngine_OutputInvariants(t *testing.T) {
	pub := &capturePublisher{}
	_, err := NewEngine(fixtureSource(), pub, DefaultConfig(), fixedClock(testAsOf)).Run(context.Background(), job())
	require.NoError(t, err)
	out := pub.published[0]

	recByKey := map[string]domain.ReorderRecommendation{}
	for _, r := range out.Recommendations {
		recByKey[r.WarehouseID+"/"+r.ArticleID] = r
		assert.GreaterOrEqual(t, r.RecommendedOrderQuantity, 0)
		assert.Equal(t, r.NeedsReorder, r.RecommendedOrderQuantity > 0)
	}
	for _, s := range out.Statuses {
		assert.Contains(t, domain.ABCClasses, s.ABCClass)
		if s.ABCClass == domain.ABCClassD {
			assert.Equal(t, 0.0, s.Qty90d)
		}
		if s.Quantity == 0 {
			assert.Equal(t, domain.RiskStockout, s.StockoutRisk)
			assert.Equal(t, 1, recByKey[s.WarehouseID+"/"+s.ArticleID].Priority)
		}
	}
	for _, w := range out.WarehouseRollups {
		var sum int
		for _, n := range w.StockLevelCounts {
			sum += n
		}
		assert.Equal(t, w.TotalArticles, sum)
	}
}

func TestEngine_Idempotent(t *testing.T) {
	src := fixtureSource()
	first := &capturePublisher{}
	second := &capturePublisher{}

	_, err := NewEngine(src, first, DefaultConfig(), fixedClock(testAsOf.Add(time.Hour))).Run(context.Background(), job())
	require.NoError(t, err)
	_, err = NewEngine(src, second, DefaultConfig(), fixedClock(testAsOf.Add(5*time.Hour))).Run(context.Background(), job())
	require.NoError(t, err)

	a, b := first.published[0], second.published[0]
	assert.NotEqual(t, a.CalculatedAt, b.CalculatedAt)
	assert.Equal(t, withoutTimestamps(a), withoutTimestamps(b))
}

func withoutTimestamps(out *Output) *Output {
	cp := *out
	cp.CalculatedAt = time.Time{}
	cp.Statuses = append([]domain.InventoryStatus(nil), out.Statuses...)
	for i := range cp.Statuses {
		cp.Statuses[i].CalculatedAt = time.Time{}
	}
	cp.Recommendations = append([]domain.ReorderRecommendation(nil), out.Recommendations...)
	for i := range cp.Recommendations {
		cp.Recommendations[i].CalculatedAt = time.Time{}
	}
	cp.Forecasts = append([]domain.DemandForecast(nil), out.Forecasts...)
	for i := range cp.Forecasts {
		cp.Forecasts[i].CalculatedAt = time.Time{}
	}
	cp.WarehouseRollups = append([]domain.WarehouseRollup(nil), out.WarehouseRollups...)
	for i := range cp.WarehouseRollups {
		cp.WarehouseRollups[i].CalculatedAt = time.Time{}
	}
	cp.CategoryRollups = append([]domain.CategoryRollup(nil), out.CategoryRollups...)
	for i := range cp.CategoryRollups {
		cp.CategoryRollups[i].CalculatedAt = time.Time{}
	}
	return &cp
}

func TestEngine_WarehouseScopedRun(t *testing.T) {
	pub := &capturePublisher{}
	j := job()
	j.WarehouseID = "w2"

	_, err := NewEngine(fixtureSource(), pub, DefaultConfig(), fixedClock(testAsOf)).Run(context.Background(), j)
	require.NoError(t, err)
	out := pub.published[0]

	assert.Equal(t, "w2", out.WarehouseID)
	require.Len(t, out.Statuses, 2)
	for _, s := range out.Statuses {
		assert.Equal(t, "w2", s.WarehouseID)
	}
	require.Len(t, out.WarehouseRollups, 1)
	assert.NotEmpty(t, out.Forecasts)
}

func TestEngine_CancelledRunPublishesNothing(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		pub := &capturePublisher{}

		_, err := NewEngine(fixtureSource(), pub, DefaultConfig(), fixedClock(testAsOf)).Run(ctx, job())
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, pub.published)
	})

	t.Run("during load", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		src := fixtureSource()
		src.onLoadSales = cancel
		pub := &capturePublisher{}

		_, err := NewEngine(src, pub, DefaultConfig(), fixedClock(testAsOf)).Run(ctx, job())
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Contains(t, err.Error(), StageValidate)
		assert.Empty(t, pub.published)
	})
}

type publishFunc func(ctx context.Context, out *Output) error

func (f publishFunc) Publish(ctx context.Context, out *Output) error {
	return f(ctx, out)
}

func TestEngine_CancelDuringPublishCompletesChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	staged := publishFunc(func(ctx context.Context, _ *Output) error {
		cancel()
		return ctx.Err()
	})
	var commitErr error
	committed := 0
	commit := publishFunc(func(ctx context.Context, _ *Output) error {
		committed++
		commitErr = ctx.Err()
		return commitErr
	})

	stats, err := NewEngine(fixtureSource(), Publishers(staged, commit), DefaultConfig(), fixedClock(testAsOf)).Run(ctx, job())
	require.NoError(t, err)
	assert.Equal(t, 1, committed)
	assert.NoError(t, commitErr)
	assert.Positive(t, stats.Recommendations)
}

func TestEngine_Failures(t *testing.T) {
	boom := errors.New("boom")

	src := fixtureSource()
	src.err = boom
	_, err := NewEngine(src, &capturePublisher{}, DefaultConfig(), fixedClock(testAsOf)).Run(context.Background(), job())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), StageLoad)

	_, err = NewEngine(fixtureSource(), &capturePublisher{err: boom}, DefaultConfig(), fixedClock(testAsOf)).Run(context.Background(), job())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), StagePublish)

	_, err = NewEngine(fixtureSource(), &capturePublisher{}, DefaultConfig(), fixedClock(testAsOf)).Run(context.Background(), pipeline.Job{})
	assert.Error(t, err)
}

func TestEngine_LatestSnapshotWins(t *testing.T) {
	src := fixtureSource()
	src.snapshots = append(src.snapshots, domain.InventorySnapshot{
		TenantID: "t1", WarehouseID: "w2", ArticleID: "a3", Quantity: 7, SyncedAt: testAsOf.Add(time.Hour),
	})
	pub := &capturePublisher{}

	_, err := NewEngine(src, pub, DefaultConfig(), fixedClock(testAsOf)).Run(context.Background(), job())
	require.NoError(t, err)

	for _, s := range pub.published[0].Statuses {
		if s.WarehouseID == "w2" && s.ArticleID == "a3" {
			assert.Equal(t, 7.0, s.Quantity)
		}
	}
	assert.Len(t, pub.published[0].Statuses, 4)
}

func TestPublishers_StopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	ok := &capturePublisher{}
	failing := &capturePublisher{err: boom}
	never := &capturePublisher{}

	err := Publishers(ok, nil, failing, never).Publish(context.Background(), &Output{TenantID: "t1"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.published, 1)
	assert.Empty(t, never.published)
}
