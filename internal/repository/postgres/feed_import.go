package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// TenantFeeds is one tenant's complete input data.
type TenantFeeds struct {
	Articles  []domain.ArticleMaster
	Snapshots []domain.InventorySnapshot
	Sales     []domain.SaleEvent
}

const (
	insertArticle = `
		INSERT INTO articles (
			tenant_id, article_id, article_number, description, category, subcategory,
			brand, supplier, purchase_price, retail_price, lead_time_days,
			min_stock_level, max_stock_level
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	insertSnapshot = `
		INSERT INTO inventory_snapshots (tenant_id, warehouse_id, article_id, inventory_id, quantity, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, warehouse_id, article_id) DO UPDATE SET
			inventory_id = EXCLUDED.inventory_id,
			quantity = EXCLUDED.quantity,
			synced_at = EXCLUDED.synced_at`

	insertSale = `
		INSERT INTO sale_events (tenant_id, sale_id, article_id, warehouse_id, sale_date, quantity, unit_price, revenue)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8)
		ON CONFLICT (tenant_id, sale_id) DO UPDATE SET
			article_id = EXCLUDED.article_id,
			warehouse_id = EXCLUDED.warehouse_id,
			sale_date = EXCLUDED.sale_date,
			quantity = EXCLUDED.quantity,
			unit_price = EXCLUDED.unit_price,
			revenue = EXCLUDED.revenue`
)

// ReplaceTenant swaps the tenant's input feeds for the given ones in a single
// transaction. Sales without an id get one derived from their position.
func (r *FeedRepository) ReplaceTenant(ctx context.Context, tenantID string, feeds TenantFeeds) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"articles", "inventory_snapshots", "sale_events"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE tenant_id = $1`, tenantID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	articleStmt, err := tx.PreparexContext(ctx, insertArticle)
	if err != nil {
		return err
	}
	defer articleStmt.Close()
	for _, a := range feeds.Articles {
		_, err := articleStmt.ExecContext(ctx,
			tenantID, a.ArticleID, nullIfEmpty(a.ArticleNumber), nullIfEmpty(a.Description),
			nullIfEmpty(a.Category), nullIfEmpty(a.Subcategory), nullIfEmpty(a.Brand), nullIfEmpty(a.Supplier),
			a.PurchasePrice, a.RetailPrice, a.LeadTimeDays, a.MinStockLevel, a.MaxStockLevel,
		)
		if err != nil {
			return fmt.Errorf("failed to insert article %s: %w", a.ArticleID, err)
		}
	}

	snapshotStmt, err := tx.PreparexContext(ctx, insertSnapshot)
	if err != nil {
		return err
	}
	defer snapshotStmt.Close()
	for _, s := range feeds.Snapshots {
		syncedAt := s.SyncedAt
		if syncedAt.IsZero() {
			syncedAt = time.Now().UTC()
		}
		_, err := snapshotStmt.ExecContext(ctx, tenantID, s.WarehouseID, s.ArticleID, nullIfEmpty(s.InventoryID), s.Quantity, syncedAt)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot %s/%s: %w", s.WarehouseID, s.ArticleID, err)
		}
	}

	saleStmt, err := tx.PreparexContext(ctx, insertSale)
	if err != nil {
		return err
	}
	defer saleStmt.Close()
	for i, e := range feeds.Sales {
		_, err := saleStmt.ExecContext(ctx,
			tenantID, saleID(e, i), e.ArticleID, nullIfEmpty(e.WarehouseID),
			e.SaleDate.Format(time.DateOnly), e.Quantity, e.UnitPrice, e.Revenue,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sale %s: %w", saleID(e, i), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func saleID(e domain.SaleEvent, i int) string {
	if e.SaleID != "" {
		return e.SaleID
	}
	return fmt.Sprintf("%s-%s-%d", e.SaleDate.Format("20060102"), e.ArticleID, i)
}

// nullIfEmpty returns NULL if the string is empty, otherwise the string.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
