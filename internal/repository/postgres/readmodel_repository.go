package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// ReadModelRepository queries published outputs.
type ReadModelRepository interface {
	GetPublication(ctx context.Context, tenantID string) (*domain.Publication, error)
	ListStatuses(ctx context.Context, filter domain.StatusFilter) ([]domain.InventoryStatus, int, error)
	ListRecommendations(ctx context.Context, filter domain.RecommendationFilter) ([]domain.ReorderRecommendation, int, error)
	ListForecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.DemandForecast, error)
	ListRollups(ctx context.Context, filter domain.RollupFilter) ([]domain.RollupSummary, error)
}

type readModelRepository struct {
	db *sqlx.DB
}

func NewReadModelRepository(db *sqlx.DB) ReadModelRepository {
	return &readModelRepository{db: db}
}

// whereBuilder collects positional conditions.
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

func (w *whereBuilder) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

// paginate appends LIMIT/OFFSET when a page size is set.
func (w *whereBuilder) paginate(query string, page, pageSize int) (string, []interface{}) {
	args := append([]interface{}(nil), w.args...)
	if pageSize <= 0 {
		return query, args
	}
	if page < 1 {
		page = 1
	}
	n := len(args)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
	return query, append(args, pageSize, (page-1)*pageSize)
}

// GetPublication returns the most recent publication marker of a tenant, or
// domain.ErrUnavailable when the tenant has none.
func (r *readModelRepository) GetPublication(ctx context.Context, tenantID string) (*domain.Publication, error) {
	query := `
		SELECT tenant_id, warehouse_id, run_id, as_of, published_at, articles
		FROM output_publications
		WHERE tenant_id = $1
		ORDER BY published_at DESC, warehouse_id
		LIMIT 1
	`

	var pub domain.Publication
	err := r.db.GetContext(ctx, &pub, query, tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("error getting publication: %w", err)
	}
	return &pub, nil
}

func (r *readModelRepository) ListStatuses(ctx context.Context, filter domain.StatusFilter) ([]domain.InventoryStatus, int, error) {
	var w whereBuilder
	w.add("tenant_id = $%d", filter.TenantID)
	if filter.WarehouseID != "" {
		w.add("warehouse_id = $%d", filter.WarehouseID)
	}
	if filter.StockLevel != "" {
		w.add("stock_level = $%d", string(filter.StockLevel))
	}
	if filter.ABCClass != "" {
		w.add("abc_class = $%d", string(filter.ABCClass))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM inventory_status"+w.clause(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("error counting inventory status: %w", err)
	}

	query := `
		SELECT
			tenant_id, warehouse_id, article_id,
			COALESCE(article_number, '') AS article_number,
			COALESCE(description, '') AS description,
			COALESCE(category, '') AS category,
			COALESCE(supplier, '') AS supplier,
			quantity, qty_90d, daily_30d, daily_90d, days_of_supply_30d,
			stock_level, stockout_risk, abc_class, is_excess_inventory, is_slow_moving,
			inventory_value, potential_revenue, calculated_at
		FROM inventory_status` + w.clause() + `
		ORDER BY warehouse_id, article_id`
	query, args := w.paginate(query, filter.Page, filter.PageSize)

	var items []domain.InventoryStatus
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error getting inventory status: %w", err)
	}
	return items, total, nil
}

// ListRecommendations returns recommendations ordered by priority, ABC class
// and descending order cost, the same order the engine publishes them in.
func (r *readModelRepository) ListRecommendations(ctx context.Context, filter domain.RecommendationFilter) ([]domain.ReorderRecommendation, int, error) {
	var w whereBuilder
	w.add("tenant_id = $%d", filter.TenantID)
	if filter.WarehouseID != "" {
		w.add("warehouse_id = $%d", filter.WarehouseID)
	}
	if filter.NeedsReorder != nil {
		w.add("needs_reorder = $%d", *filter.NeedsReorder)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM reorder_recommendations"+w.clause(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("error counting recommendations: %w", err)
	}

	query := `
		SELECT
			tenant_id, warehouse_id, article_id,
			COALESCE(supplier, '') AS supplier,
			abc_class, quantity, lead_time_days, service_level_z, lead_time_demand,
			safety_stock, reorder_point, needs_reorder, eoq, recommended_order_quantity,
			order_cost, days_until_stockout, reorder_by_date, priority, calculated_at
		FROM reorder_recommendations` + w.clause() + `
		ORDER BY priority, abc_class, order_cost DESC, warehouse_id, article_id`
	query, args := w.paginate(query, filter.Page, filter.PageSize)

	var items []domain.ReorderRecommendation
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("error getting recommendations: %w", err)
	}
	return items, total, nil
}

func (r *readModelRepository) ListForecasts(ctx context.Context, filter domain.ForecastFilter) ([]domain.DemandForecast, error) {
	var w whereBuilder
	w.add("tenant_id = $%d", filter.TenantID)
	if filter.ArticleID != "" {
		w.add("article_id = $%d", filter.ArticleID)
	}
	if !filter.From.IsZero() {
		w.add("forecast_date >= $%d::date", filter.From.Format(time.DateOnly))
	}
	if !filter.To.IsZero() {
		w.add("forecast_date <= $%d::date", filter.To.Format(time.DateOnly))
	}

	query := `
		SELECT tenant_id, article_id, forecast_date, forecasted_daily_demand,
		       cumulative_forecast, confidence, calculated_at
		FROM demand_forecasts` + w.clause() + `
		ORDER BY article_id, forecast_date`

	var items []domain.DemandForecast
	if err := r.db.SelectContext(ctx, &items, query, w.args...); err != nil {
		return nil, fmt.Errorf("error getting forecasts: %w", err)
	}
	return items, nil
}

// rollupRow mirrors rollup_summaries; the band counters are stored as JSONB.
type rollupRow struct {
	TenantID         string          `db:"tenant_id"`
	LevelType        string          `db:"level_type"`
	WarehouseID      string          `db:"warehouse_id"`
	Category         string          `db:"category"`
	TotalArticles    int             `db:"total_articles"`
	StockLevelCounts []byte          `db:"stock_level_counts"`
	RiskCounts       []byte          `db:"risk_counts"`
	ABCCounts        []byte          `db:"abc_counts"`
	TotalQuantity    float64         `db:"total_quantity"`
	InventoryValue   decimal.Decimal `db:"inventory_value"`
	PotentialRevenue decimal.Decimal `db:"potential_revenue"`
	ExcessCount      int             `db:"excess_count"`
	ExcessValue      decimal.Decimal `db:"excess_value"`
	SlowMovingCount  int             `db:"slow_moving_count"`
	SlowMovingValue  decimal.Decimal `db:"slow_moving_value"`
	ReorderCount     int             `db:"reorder_count"`
	ReorderCost      decimal.Decimal `db:"reorder_cost"`

	OutOfStockPct      *float64 `db:"out_of_stock_pct"`
	AtRiskPct          *float64 `db:"at_risk_pct"`
	ReorderPct         *float64 `db:"reorder_pct"`
	ExcessValuePct     *float64 `db:"excess_value_pct"`
	SlowMovingValuePct *float64 `db:"slow_moving_value_pct"`

	CalculatedAt time.Time `db:"calculated_at"`
}

func (row rollupRow) summary() (domain.RollupSummary, error) {
	m := domain.NewRollupMetrics()
	m.TotalArticles = row.TotalArticles
	m.TotalQuantity = row.TotalQuantity
	m.InventoryValue = row.InventoryValue
	m.PotentialRevenue = row.PotentialRevenue
	m.ExcessCount = row.ExcessCount
	m.ExcessValue = row.ExcessValue
	m.SlowMovingCount = row.SlowMovingCount
	m.SlowMovingValue = row.SlowMovingValue
	m.ReorderCount = row.ReorderCount
	m.ReorderCost = row.ReorderCost
	m.OutOfStockPct = row.OutOfStockPct
	m.AtRiskPct = row.AtRiskPct
	m.ReorderPct = row.ReorderPct
	m.ExcessValuePct = row.ExcessValuePct
	m.SlowMovingValuePct = row.SlowMovingValuePct
	m.CalculatedAt = row.CalculatedAt

	if err := json.Unmarshal(row.StockLevelCounts, &m.StockLevelCounts); err != nil {
		return nil, fmt.Errorf("decode stock level counts: %w", err)
	}
	if err := json.Unmarshal(row.RiskCounts, &m.RiskCounts); err != nil {
		return nil, fmt.Errorf("decode risk counts: %w", err)
	}
	if err := json.Unmarshal(row.ABCCounts, &m.ABCCounts); err != nil {
		return nil, fmt.Errorf("decode abc counts: %w", err)
	}

	level, ok := domain.ParseRollupLevel(row.LevelType)
	if !ok {
		return nil, fmt.Errorf("unknown rollup level %q", row.LevelType)
	}
	if level == domain.RollupLevelCategory {
		return domain.CategoryRollup{TenantID: row.TenantID, WarehouseID: row.WarehouseID, Category: row.Category, RollupMetrics: m}, nil
	}
	return domain.WarehouseRollup{TenantID: row.TenantID, WarehouseID: row.WarehouseID, RollupMetrics: m}, nil
}

func (r *readModelRepository) ListRollups(ctx context.Context, filter domain.RollupFilter) ([]domain.RollupSummary, error) {
	var w whereBuilder
	w.add("tenant_id = $%d", filter.TenantID)
	if filter.Level != "" {
		w.add("level_type = $%d", string(filter.Level))
	}
	if filter.WarehouseID != "" {
		w.add("warehouse_id = $%d", filter.WarehouseID)
	}

	query := `SELECT * FROM rollup_summaries` + w.clause() + ` ORDER BY level_type DESC, warehouse_id, category`

	var rows []rollupRow
	if err := r.db.SelectContext(ctx, &rows, query, w.args...); err != nil {
		return nil, fmt.Errorf("error getting rollups: %w", err)
	}

	out := make([]domain.RollupSummary, 0, len(rows))
	for _, row := range rows {
		s, err := row.summary()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
