package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema creates every table the engine reads or writes. Statements are
// idempotent so Migrate can run on every deploy.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		tenant_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		article_number TEXT,
		description TEXT,
		category TEXT,
		subcategory TEXT,
		brand TEXT,
		supplier TEXT,
		purchase_price NUMERIC(18,4) NOT NULL DEFAULT 0,
		retail_price NUMERIC(18,4) NOT NULL DEFAULT 0,
		lead_time_days INT,
		min_stock_level DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_stock_level DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (tenant_id, article_id)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_snapshots (
		tenant_id TEXT NOT NULL,
		warehouse_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		inventory_id TEXT,
		quantity DOUBLE PRECISION NOT NULL,
		synced_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (tenant_id, warehouse_id, article_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sale_events (
		tenant_id TEXT NOT NULL,
		sale_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		warehouse_id TEXT,
		sale_date DATE NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		unit_price NUMERIC(18,4) NOT NULL DEFAULT 0,
		revenue NUMERIC(18,4) NOT NULL DEFAULT 0,
		PRIMARY KEY (tenant_id, sale_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sale_events_tenant_date ON sale_events (tenant_id, sale_date)`,

	`CREATE TABLE IF NOT EXISTS inventory_status (
		tenant_id TEXT NOT NULL,
		warehouse_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		article_number TEXT,
		description TEXT,
		category TEXT,
		supplier TEXT,
		quantity DOUBLE PRECISION NOT NULL,
		qty_90d DOUBLE PRECISION NOT NULL,
		daily_30d DOUBLE PRECISION NOT NULL,
		daily_90d DOUBLE PRECISION NOT NULL,
		days_of_supply_30d DOUBLE PRECISION,
		stock_level TEXT NOT NULL,
		stockout_risk TEXT NOT NULL,
		abc_class TEXT NOT NULL,
		is_excess_inventory BOOLEAN NOT NULL,
		is_slow_moving BOOLEAN NOT NULL,
		inventory_value NUMERIC(18,4) NOT NULL,
		potential_revenue NUMERIC(18,4) NOT NULL,
		calculated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (tenant_id, warehouse_id, article_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reorder_recommendations (
		tenant_id TEXT NOT NULL,
		warehouse_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		supplier TEXT,
		abc_class TEXT NOT NULL,
		quantity DOUBLE PRECISION NOT NULL,
		lead_time_days INT NOT NULL,
		service_level_z DOUBLE PRECISION NOT NULL,
		lead_time_demand DOUBLE PRECISION NOT NULL,
		safety_stock DOUBLE PRECISION NOT NULL,
		reorder_point INT NOT NULL,
		needs_reorder BOOLEAN NOT NULL,
		eoq DOUBLE PRECISION,
		recommended_order_quantity INT NOT NULL,
		order_cost NUMERIC(18,4) NOT NULL,
		days_until_stockout DOUBLE PRECISION NOT NULL,
		reorder_by_date DATE,
		priority INT NOT NULL,
		calculated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (tenant_id, warehouse_id, article_id)
	)`,
	`CREATE TABLE IF NOT EXISTS demand_forecasts (
		tenant_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		forecast_date DATE NOT NULL,
		forecasted_daily_demand DOUBLE PRECISION NOT NULL,
		cumulative_forecast DOUBLE PRECISION NOT NULL,
		confidence TEXT NOT NULL,
		calculated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (tenant_id, article_id, forecast_date)
	)`,
	`CREATE TABLE IF NOT EXISTS rollup_summaries (
		tenant_id TEXT NOT NULL,
		level_type TEXT NOT NULL,
		warehouse_id TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		total_articles INT NOT NULL,
		stock_level_counts JSONB NOT NULL,
		risk_counts JSONB NOT NULL,
		abc_counts JSONB NOT NULL,
		total_quantity DOUBLE PRECISION NOT NULL,
		inventory_value NUMERIC(18,4) NOT NULL,
		potential_revenue NUMERIC(18,4) NOT NULL,
		excess_count INT NOT NULL,
		excess_value NUMERIC(18,4) NOT NULL,
		slow_moving_count INT NOT NULL,
		slow_moving_value NUMERIC(18,4) NOT NULL,
		reorder_count INT NOT NULL,
		reorder_cost NUMERIC(18,4) NOT NULL,
		out_of_stock_pct DOUBLE PRECISION,
		at_risk_pct DOUBLE PRECISION,
		reorder_pct DOUBLE PRECISION,
		excess_value_pct DOUBLE PRECISION,
		slow_moving_value_pct DOUBLE PRECISION,
		calculated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (tenant_id, level_type, warehouse_id, category)
	)`,
	`CREATE TABLE IF NOT EXISTS output_publications (
		tenant_id TEXT NOT NULL,
		warehouse_id TEXT NOT NULL DEFAULT '',
		run_id TEXT NOT NULL,
		as_of DATE NOT NULL,
		published_at TIMESTAMPTZ NOT NULL,
		articles INT NOT NULL,
		PRIMARY KEY (tenant_id, warehouse_id)
	)`,

	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id TEXT PRIMARY KEY,
		pipeline_name TEXT NOT NULL,
		as_of DATE NOT NULL,
		status TEXT NOT NULL,
		total_partitions INT NOT NULL DEFAULT 0,
		succeeded_partitions INT NOT NULL DEFAULT 0,
		failed_partitions INT NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		error_message TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_partition_jobs (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES pipeline_runs(id) ON DELETE CASCADE,
		tenant_id TEXT NOT NULL,
		warehouse_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		attempts INT NOT NULL DEFAULT 0,
		articles INT NOT NULL DEFAULT 0,
		error_message TEXT,
		processed_at TIMESTAMPTZ
	)`,
}

// Migrate creates the feed, output and run tracking tables.
func (db *DB) Migrate(ctx context.Context) error {
	return db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}
