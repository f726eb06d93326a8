package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/pipeline/replenishment"
	"github.com/andresuchdata/stockcast/pkg/logger"
)

var _ replenishment.Publisher = (*OutputRepository)(nil)

var (
	statusColumns = []string{
		"tenant_id", "warehouse_id", "article_id", "article_number", "description", "category", "supplier",
		"quantity", "qty_90d", "daily_30d", "daily_90d", "days_of_supply_30d",
		"stock_level", "stockout_risk", "abc_class", "is_excess_inventory", "is_slow_moving",
		"inventory_value", "potential_revenue", "calculated_at",
	}
	recommendationColumns = []string{
		"tenant_id", "warehouse_id", "article_id", "supplier", "abc_class", "quantity",
		"lead_time_days", "service_level_z", "lead_time_demand", "safety_stock", "reorder_point",
		"needs_reorder", "eoq", "recommended_order_quantity", "order_cost", "days_until_stockout",
		"reorder_by_date", "priority", "calculated_at",
	}
	forecastColumns = []string{
		"tenant_id", "article_id", "forecast_date", "forecasted_daily_demand",
		"cumulative_forecast", "confidence", "calculated_at",
	}
	rollupColumns = []string{
		"tenant_id", "level_type", "warehouse_id", "category", "total_articles",
		"stock_level_counts", "risk_counts", "abc_counts",
		"total_quantity", "inventory_value", "potential_revenue",
		"excess_count", "excess_value", "slow_moving_count", "slow_moving_value",
		"reorder_count", "reorder_cost",
		"out_of_stock_pct", "at_risk_pct", "reorder_pct", "excess_value_pct", "slow_moving_value_pct",
		"calculated_at",
	}
)

// OutputRepository publishes partition outputs. Each Publish replaces the
// partition's previous rows inside one transaction, so readers see either the
// old or the new output and never a mix.
type OutputRepository struct {
	pool *pgxpool.Pool
}

func NewOutputRepository(pool *pgxpool.Pool) *OutputRepository {
	return &OutputRepository{pool: pool}
}

// Publish implements replenishment.Publisher.
func (r *OutputRepository) Publish(ctx context.Context, out *replenishment.Output) error {
	log := logger.Log.With().
		Str("run_id", out.RunID).
		Str("tenant_id", out.TenantID).
		Str("warehouse_id", out.WarehouseID).
		Logger()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := deletePartition(ctx, tx, out.TenantID, out.WarehouseID); err != nil {
		return err
	}

	copies := []struct {
		table   string
		columns []string
		rows    [][]interface{}
	}{
		{"inventory_status", statusColumns, statusRows(out.Statuses)},
		{"reorder_recommendations", recommendationColumns, recommendationRows(out.Recommendations)},
		{"demand_forecasts", forecastColumns, forecastRows(out.Forecasts)},
		{"rollup_summaries", rollupColumns, rollupRows(out.WarehouseRollups, out.CategoryRollups)},
	}
	for _, c := range copies {
		if len(c.rows) == 0 {
			continue
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{c.table}, c.columns, pgx.CopyFromRows(c.rows))
		if err != nil {
			return fmt.Errorf("copy %s: %w", c.table, err)
		}
		log.Debug().Str("table", c.table).Int64("rows", n).Msg("copied output rows")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO output_publications (tenant_id, warehouse_id, run_id, as_of, published_at, articles)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, warehouse_id) DO UPDATE
		SET run_id = EXCLUDED.run_id, as_of = EXCLUDED.as_of,
		    published_at = EXCLUDED.published_at, articles = EXCLUDED.articles
	`, out.TenantID, out.WarehouseID, out.RunID, out.AsOf, out.CalculatedAt, len(out.Statuses))
	if err != nil {
		return fmt.Errorf("upsert publication marker: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	log.Info().Int("statuses", len(out.Statuses)).Int("forecasts", len(out.Forecasts)).Msg("output published")
	return nil
}

// deletePartition removes the rows a publish replaces. Forecasts are tenant
// wide and always replaced in full.
func deletePartition(ctx context.Context, tx pgx.Tx, tenantID, warehouseID string) error {
	scoped := []string{"inventory_status", "reorder_recommendations", "rollup_summaries"}
	for _, table := range scoped {
		query := "DELETE FROM " + table + " WHERE tenant_id = $1"
		args := []interface{}{tenantID}
		if warehouseID != "" {
			query += " AND warehouse_id = $2"
			args = append(args, warehouseID)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(ctx, "DELETE FROM demand_forecasts WHERE tenant_id = $1", tenantID); err != nil {
		return fmt.Errorf("clear demand_forecasts: %w", err)
	}
	return nil
}

func statusRows(statuses []domain.InventoryStatus) [][]interface{} {
	rows := make([][]interface{}, 0, len(statuses))
	for _, s := range statuses {
		rows = append(rows, []interface{}{
			s.TenantID, s.WarehouseID, s.ArticleID, s.ArticleNumber, s.Description, s.Category, s.Supplier,
			s.Quantity, s.Qty90d, s.Daily30d, s.Daily90d, s.DaysOfSupply30d,
			string(s.StockLevel), string(s.StockoutRisk), string(s.ABCClass), s.IsExcessInventory, s.IsSlowMoving,
			s.InventoryValue, s.PotentialRevenue, s.CalculatedAt,
		})
	}
	return rows
}

func recommendationRows(recs []domain.ReorderRecommendation) [][]interface{} {
	rows := make([][]interface{}, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []interface{}{
			r.TenantID, r.WarehouseID, r.ArticleID, r.Supplier, string(r.ABCClass), r.Quantity,
			int32(r.LeadTimeDays), r.ServiceLevelZ, r.LeadTimeDemand, r.SafetyStock, int32(r.ReorderPoint),
			r.NeedsReorder, r.EOQ, int32(r.RecommendedOrderQuantity), r.OrderCost, r.DaysUntilStockout,
			r.ReorderByDate, int32(r.Priority), r.CalculatedAt,
		})
	}
	return rows
}

func forecastRows(forecasts []domain.DemandForecast) [][]interface{} {
	rows := make([][]interface{}, 0, len(forecasts))
	for _, f := range forecasts {
		rows = append(rows, []interface{}{
			f.TenantID, f.ArticleID, f.ForecastDate, f.ForecastedDailyDemand,
			f.CumulativeForecast, string(f.Confidence), f.CalculatedAt,
		})
	}
	return rows
}

func rollupRows(warehouses []domain.WarehouseRollup, categories []domain.CategoryRollup) [][]interface{} {
	rollups := make([]domain.RollupSummary, 0, len(warehouses)+len(categories))
	for _, w := range warehouses {
		rollups = append(rollups, w)
	}
	for _, c := range categories {
		rollups = append(rollups, c)
	}

	rows := make([][]interface{}, 0, len(rollups))
	for _, r := range rollups {
		key, m := r.Key(), r.Metrics()
		rows = append(rows, []interface{}{
			key.TenantID, string(key.Level), key.WarehouseID, key.Category, int32(m.TotalArticles),
			m.StockLevelCounts, m.RiskCounts, m.ABCCounts,
			m.TotalQuantity, m.InventoryValue, m.PotentialRevenue,
			int32(m.ExcessCount), m.ExcessValue, int32(m.SlowMovingCount), m.SlowMovingValue,
			int32(m.ReorderCount), m.ReorderCost,
			m.OutOfStockPct, m.AtRiskPct, m.ReorderPct, m.ExcessValuePct, m.SlowMovingValuePct,
			m.CalculatedAt,
		})
	}
	return rows
}
