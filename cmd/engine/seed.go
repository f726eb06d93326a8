package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/feed"
	"github.com/andresuchdata/stockcast/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

// allTimeFrom and allTimeTo span every sale a feed directory can hold.
var (
	allTimeFrom = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	allTimeTo   = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// seedFeeds loads a feed directory into the Postgres input tables, replacing
// each tenant's previous rows.
func seedFeeds(c *cli.Context) error {
	ctx := c.Context
	cfg := config.Load()
	res := &resources{}
	defer res.Close()

	if err := res.openDB(cfg); err != nil {
		return err
	}
	if c.Bool("migrate") {
		if err := res.db.Migrate(ctx); err != nil {
			return err
		}
	}

	feedDir := firstNonEmpty(c.String("feed-dir"), cfg.App.FeedDir)
	source := feed.NewDirSource(feedDir)
	repo := postgres.NewFeedRepository(res.db.DB)

	tenants := c.StringSlice("tenant")
	if len(tenants) == 0 {
		var err error
		if tenants, err = source.ListTenants(ctx); err != nil {
			return err
		}
	}

	for _, tenantID := range tenants {
		var (
			feeds postgres.TenantFeeds
			err   error
		)
		if feeds.Articles, err = source.LoadArticles(ctx, tenantID); err != nil {
			return err
		}
		if feeds.Snapshots, err = source.LoadSnapshots(ctx, tenantID, ""); err != nil {
			return err
		}
		if feeds.Sales, err = source.LoadSales(ctx, tenantID, allTimeFrom, allTimeTo); err != nil {
			return err
		}

		if err := repo.ReplaceTenant(ctx, tenantID, feeds); err != nil {
			return fmt.Errorf("seed tenant %s: %w", tenantID, err)
		}
		logger.Log.Info().
			Str("tenant_id", tenantID).
			Int("articles", len(feeds.Articles)).
			Int("snapshots", len(feeds.Snapshots)).
			Int("sales", len(feeds.Sales)).
			Msg("tenant feeds seeded")
	}

	if rejected := source.Rejected(); rejected > 0 {
		logger.Log.Warn().Int("rejected", rejected).Str("feed_dir", feedDir).Msg("feed rows rejected while parsing")
	}
	return nil
}
