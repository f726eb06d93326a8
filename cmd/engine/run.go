package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/export"
	"github.com/andresuchdata/stockcast/internal/feed"
	"github.com/andresuchdata/stockcast/internal/pipeline"
	"github.com/andresuchdata/stockcast/internal/pipeline/replenishment"
	"github.com/andresuchdata/stockcast/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/internal/storage"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

const (
	sourceDB  = "db"
	sourceDir = "dir"
)

// feedSource is an engine input that can also enumerate its tenants.
type feedSource interface {
	replenishment.Source
	pipeline.TenantLister
}

// resources holds the connections opened for one command.
type resources struct {
	db    *postgres.DB
	pool  *pgxpool.Pool
	redis *redis.Client
}

func (r *resources) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
	if r.db != nil {
		_ = r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
}

func (r *resources) openDB(cfg *config.Config) error {
	if r.db != nil {
		return nil
	}
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return err
	}
	r.db = db
	return nil
}

func runEngine(c *cli.Context) error {
	ctx := c.Context
	cfg := config.Load()

	asOf, err := parseDay(c.String("as-of"))
	if err != nil {
		return fmt.Errorf("invalid --as-of: %w", err)
	}
	from, err := parseDay(c.String("from"))
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}

	res := &resources{}
	defer res.Close()

	source, err := openSource(c, cfg, res)
	if err != nil {
		return err
	}

	publisher, err := buildPublisher(ctx, c, cfg, res)
	if err != nil {
		return err
	}

	var tracker pipeline.Tracker = pipeline.NoopTracker{}
	if res.db != nil {
		tracker = pipeline.NewRepository(res.db.DB)
	}

	var locker pipeline.Locker = pipeline.NoopLocker{}
	if cfg.Cache.Enabled {
		client, err := redisClient(ctx, cfg, res)
		if err != nil {
			return err
		}
		locker = cache.NewRedisLocker(client)
	}

	engine := replenishment.NewEngine(source, publisher, engineConfig(cfg.Engine), nil)

	pcfg := pipeline.DefaultPipelineConfig(replenishment.PipelineName)
	pcfg.WorkerCount = cfg.Engine.Workers
	if c.IsSet("workers") {
		pcfg.WorkerCount = c.Int("workers")
	}
	pcfg.RetryAttempts = cfg.Engine.RetryAttempts
	if cfg.Engine.RetryBackoff > 0 {
		pcfg.RetryBackoff = cfg.Engine.RetryBackoff
	}
	if cfg.Engine.LockTTL > 0 {
		pcfg.LockTTL = cfg.Engine.LockTTL
	}

	orchestrator := pipeline.NewOrchestrator(pcfg, source, tracker, locker)
	report, err := orchestrator.Run(ctx, engine, pipeline.RunRequest{
		Tenants:     c.StringSlice("tenant"),
		WarehouseID: c.String("warehouse"),
		From:        from,
		To:          asOf,
	})
	if err != nil {
		return err
	}

	for _, tenantID := range report.Succeeded {
		stats := report.Stats[tenantID]
		logger.Log.Info().
			Str("run_id", report.RunID).
			Str("tenant_id", tenantID).
			Int("articles", stats.Articles).
			Int("recommendations", stats.Recommendations).
			Int("forecasts", stats.Forecasts).
			Int("missing_reference", stats.MissingReference).
			Int("invalid_records", stats.InvalidRecords).
			Dur("duration", stats.Duration).
			Msg("partition published")
	}
	logger.Log.Info().
		Str("run_id", report.RunID).
		Str("status", string(report.Status())).
		Int("succeeded", len(report.Succeeded)).
		Int("failed", len(report.Failed)).
		Msg("run finished")

	return report.Err()
}

func openSource(c *cli.Context, cfg *config.Config, res *resources) (feedSource, error) {
	switch c.String("source") {
	case sourceDir:
		return feed.NewDirSource(firstNonEmpty(c.String("feed-dir"), cfg.App.FeedDir)), nil
	case sourceDB, "":
		if err := res.openDB(cfg); err != nil {
			return nil, err
		}
		return postgres.NewFeedRepository(res.db.DB), nil
	default:
		return nil, fmt.Errorf("unknown source %q (want %s or %s)", c.String("source"), sourceDB, sourceDir)
	}
}

// buildPublisher chains the configured outputs. Files are staged and uploaded
// before the database commit, which makes the new output visible to readers.
// The cache is only invalidated after that commit.
func buildPublisher(ctx context.Context, c *cli.Context, cfg *config.Config, res *resources) (replenishment.Publisher, error) {
	var publishers []replenishment.Publisher

	if c.Bool("export") {
		var store storage.ObjectStorage
		if c.Bool("upload") {
			if !cfg.Storage.Enabled() {
				return nil, errors.New("--upload requires S3_ENDPOINT and S3_BUCKET")
			}
			client, err := storage.NewS3Client(cfg.Storage)
			if err != nil {
				return nil, err
			}
			store = client
		}
		dir := firstNonEmpty(c.String("output-dir"), cfg.App.OutputDir)
		publishers = append(publishers, export.NewPublisher(dir, store, cfg.Storage.ExportPrefix))
	}

	if c.Bool("publish-db") {
		if err := res.openDB(cfg); err != nil {
			return nil, err
		}
		pool, err := postgres.NewPool(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		res.pool = pool
		publishers = append(publishers, postgres.NewOutputRepository(pool))

		if cfg.Cache.Enabled {
			client, err := redisClient(ctx, cfg, res)
			if err != nil {
				return nil, err
			}
			rollups := cache.NewRollupCache(client, cache.RollupTTL(cfg.Cache))
			publishers = append(publishers, cache.NewInvalidator(rollups))
		}
	}

	if len(publishers) == 0 {
		return nil, errors.New("nothing to publish to: enable --publish-db or --export")
	}
	return replenishment.Publishers(publishers...), nil
}

func redisClient(ctx context.Context, cfg *config.Config, res *resources) (*redis.Client, error) {
	if res.redis != nil {
		return res.redis, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	res.redis = client
	return client, nil
}

func engineConfig(ec config.EngineConfig) replenishment.Config {
	cfg := replenishment.DefaultConfig()
	if ec.ForecastHorizonDays > 0 {
		cfg.HorizonDays = ec.ForecastHorizonDays
	}
	if ec.LookbackDays > 0 {
		cfg.LookbackDays = ec.LookbackDays
	}
	if ec.OrderingCost > 0 {
		cfg.OrderingCost = ec.OrderingCost
	}
	if ec.HoldingCostRate > 0 {
		cfg.HoldingCostRate = ec.HoldingCostRate
	}
	if ec.StockoutSentinelDays > 0 {
		cfg.StockoutSentinelDays = ec.StockoutSentinelDays
	}
	if ec.WarehouseWorkers > 0 {
		cfg.WarehouseWorkers = ec.WarehouseWorkers
	}
	return cfg
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}

func listTenants(c *cli.Context) error {
	cfg := config.Load()
	res := &resources{}
	defer res.Close()

	source, err := openSource(c, cfg, res)
	if err != nil {
		return err
	}
	tenants, err := source.ListTenants(c.Context)
	if err != nil {
		return err
	}
	for _, t := range tenants {
		fmt.Fprintln(c.App.Writer, t)
	}
	return nil
}

func migrate(c *cli.Context) error {
	cfg := config.Load()
	res := &resources{}
	defer res.Close()

	if err := res.openDB(cfg); err != nil {
		return err
	}
	if err := res.db.Migrate(c.Context); err != nil {
		return err
	}
	logger.Log.Info().Str("database", cfg.Database.DBName).Msg("schema up to date")
	return nil
}
