package replenishment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/pipeline"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

// PipelineName identifies the engine in run tracking and lock keys.
const PipelineName = "replenishment"

// Stage names in execution order.
const (
	StageLoad        = "load"
	StageValidate    = "validate"
	StageVelocity    = "velocity"
	StageSeasonality = "seasonality"
	StageForecast    = "forecast"
	StageClassify    = "classify"
	StageReplenish   = "replenish"
	StageRollup      = "rollup"
	StagePublish     = "publish"
)

// Engine computes and publishes the replenishment outputs of one tenant partition.
type Engine struct {
	source     Source
	publisher  Publisher
	cfg        Config
	clock      Clock
	classifier *Classifier
	calculator *ReplenishmentCalculator
}

// NewEngine wires an engine. A nil clock defaults to time.Now.
func NewEngine(source Source, publisher Publisher, cfg Config, clock Clock) *Engine {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		source:     source,
		publisher:  publisher,
		cfg:        cfg,
		clock:      clock,
		classifier: NewClassifier(cfg),
		calculator: NewReplenishmentCalculator(cfg),
	}
}

// Name implements pipeline.Pipeline.
func (e *Engine) Name() string {
	return PipelineName
}

// Run computes the partition and hands it to the publisher. A failed or
// cancelled run publishes nothing. Once publication starts it runs to
// completion, so cancellation cannot leave the outputs half written.
func (e *Engine) Run(ctx context.Context, job pipeline.Job) (pipeline.PartitionStats, error) {
	out, err := e.Compute(ctx, job)
	if err != nil {
		return pipeline.PartitionStats{}, err
	}

	if err := stageBoundary(ctx, StagePublish); err != nil {
		return pipeline.PartitionStats{}, err
	}
	if e.publisher == nil {
		return pipeline.PartitionStats{}, errors.New("no publisher configured")
	}
	if err := e.publisher.Publish(context.WithoutCancel(ctx), out); err != nil {
		return pipeline.PartitionStats{}, fmt.Errorf("%s stage: %w", StagePublish, err)
	}
	return out.Stats, nil
}

// partition holds the intermediate records of one run.
type partition struct {
	job    pipeline.Job
	from   time.Time
	asOf   time.Time
	calcAt time.Time
	log    zerolog.Logger

	articles  map[string]domain.ArticleMaster
	snapshots []domain.InventorySnapshot
	sales     []domain.SaleEvent

	velocities map[string]domain.SalesVelocity
	series     map[string]DailySeries
	profiles   map[string]domain.SeasonalityProfile

	warehouses []warehouseResult
	out        *Output
}

type warehouseResult struct {
	id       string
	rows     []warehouseRow
	statuses []domain.InventoryStatus
	recs     []domain.ReorderRecommendation
}

type warehouseRow struct {
	snapshot domain.InventorySnapshot
	article  domain.ArticleMaster
	velocity domain.SalesVelocity
}

// Compute runs every stage up to, but excluding, publication.
func (e *Engine) Compute(ctx context.Context, job pipeline.Job) (*Output, error) {
	if job.TenantID == "" {
		return nil, errors.New("tenant id is required")
	}

	calcAt := e.clock().UTC()
	asOf := job.To
	if asOf.IsZero() {
		asOf = calcAt
	}
	asOf = truncateDay(asOf)
	from := job.From
	if from.IsZero() {
		from = asOf.AddDate(0, 0, -(e.cfg.LookbackDays - 1))
	}
	from = truncateDay(from)
	if from.After(asOf) {
		return nil, fmt.Errorf("invalid window: from %s is after as-of %s", from.Format(time.DateOnly), asOf.Format(time.DateOnly))
	}

	p := &partition{
		job:    job,
		from:   from,
		asOf:   asOf,
		calcAt: calcAt,
		log: logger.Log.With().
			Str("pipeline", PipelineName).
			Str("run_id", job.RunID).
			Str("tenant_id", job.TenantID).
			Str("warehouse_id", job.WarehouseID).
			Logger(),
		out: &Output{
			RunID:        job.RunID,
			TenantID:     job.TenantID,
			WarehouseID:  job.WarehouseID,
			AsOf:         asOf,
			CalculatedAt: calcAt,
		},
	}

	stages := []struct {
		name string
		fn   func(context.Context, *partition) error
	}{
		{StageLoad, e.load},
		{StageValidate, e.validate},
		{StageVelocity, e.velocity},
		{StageSeasonality, e.seasonality},
		{StageForecast, e.forecast},
		{StageClassify, e.classify},
		{StageReplenish, e.replenish},
		{StageRollup, e.rollup},
	}
	for _, st := range stages {
		if err := stageBoundary(ctx, st.name); err != nil {
			return nil, err
		}
		start := time.Now()
		if err := st.fn(ctx, p); err != nil {
			return nil, fmt.Errorf("%s stage: %w", st.name, err)
		}
		p.log.Debug().Str("stage", st.name).Dur("took", time.Since(start)).Msg("stage done")
	}

	p.out.Stats.Articles = len(p.out.Statuses)
	p.out.Stats.Recommendations = len(p.out.Recommendations)
	p.out.Stats.Forecasts = len(p.out.Forecasts)
	return p.out, nil
}

func stageBoundary(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled before %s stage: %w", stage, err)
	}
	return nil
}

func (e *Engine) load(ctx context.Context, p *partition) error {
	tenant := p.job.TenantID

	articles, err := e.source.LoadArticles(ctx, tenant)
	if err != nil {
		return fmt.Errorf("load articles: %w", err)
	}
	snapshots, err := e.source.LoadSnapshots(ctx, tenant, p.job.WarehouseID)
	if err != nil {
		return fmt.Errorf("load inventory snapshots: %w", err)
	}
	sales, err := e.source.LoadSales(ctx, tenant, p.from, p.asOf)
	if err != nil {
		return fmt.Errorf("load sales: %w", err)
	}

	p.articles = make(map[string]domain.ArticleMaster, len(articles))
	for _, a := range articles {
		p.articles[a.ArticleID] = a
	}
	p.snapshots = snapshots
	p.sales = sales
	p.out.Stats.Snapshots = len(snapshots)
	p.out.Stats.Sales = len(sales)
	return nil
}

func (e *Engine) validate(_ context.Context, p *partition) error {
	tenant := p.job.TenantID
	stats := &p.out.Stats

	for id, a := range p.articles {
		if a.TenantID != tenant {
			delete(p.articles, id)
			continue
		}
		if err := domain.ValidateArticle(a); err != nil {
			p.log.Warn().Err(err).Str("article_id", id).Msg("rejecting invalid article")
			stats.InvalidRecords++
			delete(p.articles, id)
		}
	}

	// one snapshot per warehouse and article, the latest sync wins
	latest := make(map[[2]string]domain.InventorySnapshot, len(p.snapshots))
	for _, s := range p.snapshots {
		if s.TenantID != tenant || (p.job.WarehouseID != "" && s.WarehouseID != p.job.WarehouseID) {
			continue
		}
		if err := domain.ValidateSnapshot(s); err != nil {
			p.log.Warn().Err(err).Str("article_id", s.ArticleID).Msg("rejecting invalid inventory snapshot")
			stats.InvalidRecords++
			continue
		}
		if _, ok := p.articles[s.ArticleID]; !ok {
			p.log.Warn().
				Err(domain.ErrMissingReferenceData).
				Str("snapshot_warehouse_id", s.WarehouseID).
				Str("article_id", s.ArticleID).
				Msg("excluding snapshot")
			stats.MissingReference++
			continue
		}
		key := [2]string{s.WarehouseID, s.ArticleID}
		if prev, ok := latest[key]; ok && prev.SyncedAt.After(s.SyncedAt) {
			continue
		}
		latest[key] = s
	}
	snapshots := make([]domain.InventorySnapshot, 0, len(latest))
	for _, s := range latest {
		snapshots = append(snapshots, s)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].WarehouseID != snapshots[j].WarehouseID {
			return snapshots[i].WarehouseID < snapshots[j].WarehouseID
		}
		return snapshots[i].ArticleID < snapshots[j].ArticleID
	})
	p.snapshots = snapshots

	fromDay, toDay := dayNumber(p.from), dayNumber(p.asOf)
	sales := p.sales[:0:0]
	for _, s := range p.sales {
		if s.TenantID != tenant {
			continue
		}
		if day := dayNumber(s.SaleDate); day < fromDay || day > toDay {
			continue
		}
		if err := domain.ValidateSale(s); err != nil {
			p.log.Warn().Err(err).Str("sale_id", s.SaleID).Msg("rejecting invalid sale event")
			stats.InvalidRecords++
			continue
		}
		sales = append(sales, s)
	}
	p.sales = sales

	if stats.InvalidRecords > 0 || stats.MissingReference > 0 {
		p.log.Warn().
			Int("invalid_records", stats.InvalidRecords).
			Int("missing_reference", stats.MissingReference).
			Msg("input records excluded")
	}
	return nil
}

func (e *Engine) velocity(_ context.Context, p *partition) error {
	p.velocities, p.series = CalculateVelocities(p.job.TenantID, p.sales, p.asOf)
	return nil
}

func (e *Engine) seasonality(_ context.Context, p *partition) error {
	p.profiles = ProfileSeasonality(p.series, p.from, p.asOf)
	return nil
}

func (e *Engine) forecast(_ context.Context, p *partition) error {
	known := make(map[string]domain.SalesVelocity, len(p.velocities))
	for id, v := range p.velocities {
		if _, ok := p.articles[id]; ok {
			known[id] = v
		}
	}
	p.out.Forecasts = GenerateForecasts(p.job.TenantID, known, p.profiles, p.asOf, e.cfg.HorizonDays, p.calcAt)
	return nil
}

func (e *Engine) classify(_ context.Context, p *partition) error {
	p.warehouses = p.warehouses[:0]
	for _, s := range p.snapshots {
		if n := len(p.warehouses); n == 0 || p.warehouses[n-1].id != s.WarehouseID {
			p.warehouses = append(p.warehouses, warehouseResult{id: s.WarehouseID})
		}
		wh := &p.warehouses[len(p.warehouses)-1]
		v, ok := p.velocities[s.ArticleID]
		if !ok {
			v = domain.SalesVelocity{TenantID: s.TenantID, ArticleID: s.ArticleID}
		}
		wh.rows = append(wh.rows, warehouseRow{snapshot: s, article: p.articles[s.ArticleID], velocity: v})
	}

	return e.eachWarehouse(p, func(wh *warehouseResult) {
		wh.statuses = make([]domain.InventoryStatus, len(wh.rows))
		abcInputs := make([]ABCInput, len(wh.rows))
		for i, row := range wh.rows {
			wh.statuses[i] = e.classifier.Classify(row.snapshot, row.article, row.velocity, p.calcAt)
			abcInputs[i] = ABCInput{Qty90d: row.velocity.Qty90d, RetailPrice: row.article.RetailPrice}
		}
		for i, class := range e.classifier.AssignABC(abcInputs) {
			wh.statuses[i].ABCClass = class
		}
	})
}

func (e *Engine) replenish(_ context.Context, p *partition) error {
	return e.eachWarehouse(p, func(wh *warehouseResult) {
		wh.recs = make([]domain.ReorderRecommendation, len(wh.rows))
		for i, row := range wh.rows {
			wh.recs[i] = e.calculator.Calculate(wh.statuses[i], row.article, row.velocity, p.asOf)
		}
	})
}

// eachWarehouse applies fn to every warehouse concurrently. Each call owns its
// warehouseResult exclusively.
func (e *Engine) eachWarehouse(p *partition, fn func(*warehouseResult)) error {
	var g errgroup.Group
	g.SetLimit(e.cfg.WarehouseWorkers)
	for i := range p.warehouses {
		wh := &p.warehouses[i]
		g.Go(func() error {
			fn(wh)
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) rollup(_ context.Context, p *partition) error {
	var statuses []domain.InventoryStatus
	var recs []domain.ReorderRecommendation
	for _, wh := range p.warehouses {
		statuses = append(statuses, wh.statuses...)
		recs = append(recs, wh.recs...)
	}
	SortRecommendations(recs)

	p.out.Statuses = statuses
	p.out.Recommendations = recs
	p.out.WarehouseRollups, p.out.CategoryRollups = AggregateRollups(p.job.TenantID, statuses, recs, p.calcAt)
	return nil
}

// SortRecommendations orders recommendations by priority, ABC class and
// descending order cost, breaking ties by warehouse and article.
func SortRecommendations(recs []domain.ReorderRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.ABCClass.Rank() != b.ABCClass.Rank() {
			return a.ABCClass.Rank() < b.ABCClass.Rank()
		}
		if c := a.OrderCost.Cmp(b.OrderCost); c != 0 {
			return c > 0
		}
		if a.WarehouseID != b.WarehouseID {
			return a.WarehouseID < b.WarehouseID
		}
		return a.ArticleID < b.ArticleID
	})
}

// Publishers chains publishers. They run in order and the first error stops the chain.
func Publishers(publishers ...Publisher) Publisher {
	return publisherChain(publishers)
}

type publisherChain []Publisher

func (c publisherChain) Publish(ctx context.Context, out *Output) error {
	for _, p := range c {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, out); err != nil {
			return err
		}
	}
	return nil
}
