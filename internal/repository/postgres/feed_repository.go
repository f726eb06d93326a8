package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// FeedRepository reads the raw input feeds from Postgres.
type FeedRepository struct {
	db *sqlx.DB
}

func NewFeedRepository(db *sqlx.DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// ListTenants returns every tenant with article master data.
func (r *FeedRepository) ListTenants(ctx context.Context) ([]string, error) {
	var tenants []string
	if err := r.db.SelectContext(ctx, &tenants, `SELECT DISTINCT tenant_id FROM articles ORDER BY tenant_id`); err != nil {
		return nil, fmt.Errorf("error listing tenants: %w", err)
	}
	return tenants, nil
}

func (r *FeedRepository) LoadArticles(ctx context.Context, tenantID string) ([]domain.ArticleMaster, error) {
	query := `
		SELECT
			tenant_id, article_id,
			COALESCE(article_number, '') AS article_number,
			COALESCE(description, '') AS description,
			COALESCE(category, '') AS category,
			COALESCE(subcategory, '') AS subcategory,
			COALESCE(brand, '') AS brand,
			COALESCE(supplier, '') AS supplier,
			purchase_price, retail_price, lead_time_days,
			min_stock_level, max_stock_level
		FROM articles
		WHERE tenant_id = $1
		ORDER BY article_id
	`

	var articles []domain.ArticleMaster
	if err := r.db.SelectContext(ctx, &articles, query, tenantID); err != nil {
		return nil, fmt.Errorf("error loading articles: %w", err)
	}
	return articles, nil
}

// LoadSnapshots returns the tenant's snapshots, narrowed to one warehouse
// when warehouseID is set.
func (r *FeedRepository) LoadSnapshots(ctx context.Context, tenantID, warehouseID string) ([]domain.InventorySnapshot, error) {
	query := `
		SELECT
			COALESCE(inventory_id, '') AS inventory_id,
			tenant_id, warehouse_id, article_id, quantity, synced_at
		FROM inventory_snapshots
		WHERE tenant_id = $1
	`
	args := []interface{}{tenantID}
	if warehouseID != "" {
		query += " AND warehouse_id = $2"
		args = append(args, warehouseID)
	}
	query += " ORDER BY warehouse_id, article_id"

	var snapshots []domain.InventorySnapshot
	if err := r.db.SelectContext(ctx, &snapshots, query, args...); err != nil {
		return nil, fmt.Errorf("error loading inventory snapshots: %w", err)
	}
	return snapshots, nil
}

// LoadSales returns the tenant's sale events dated from..to, both days included.
func (r *FeedRepository) LoadSales(ctx context.Context, tenantID string, from, to time.Time) ([]domain.SaleEvent, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid sales range %s..%s", from.Format(time.DateOnly), to.Format(time.DateOnly))
	}

	query := `
		SELECT
			sale_id, tenant_id, article_id,
			COALESCE(warehouse_id, '') AS warehouse_id,
			sale_date, quantity, unit_price, revenue
		FROM sale_events
		WHERE tenant_id = $1
		  AND sale_date BETWEEN $2::date AND $3::date
		ORDER BY sale_date, sale_id
	`

	var sales []domain.SaleEvent
	err := r.db.SelectContext(ctx, &sales, query, tenantID, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("error loading sales: %w", err)
	}
	return sales, nil
}
