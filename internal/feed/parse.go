package feed

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// Feed file names inside a feed directory, without extension.
const (
	ArticlesFile  = "articles"
	InventoryFile = "inventory"
	SalesFile     = "sales"
)

// rowError is a rejected input line.
type rowError struct {
	file string
	err  error
}

func (e rowError) Error() string { return e.file + ": " + e.err.Error() }

func (e rowError) Unwrap() error { return e.err }

func requireColumns(t *table, cols map[string]int) error {
	var missing []string
	for name, idx := range cols {
		if idx < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%s: missing required column(s) %v", t.path, missing)
	}
	return nil
}

func parseArticles(t *table) ([]domain.ArticleMaster, []rowError, error) {
	idxTenant := t.colIndex("tenant_id", "tenant")
	idxID := t.colIndex("article_id", "id", "sku")
	if err := requireColumns(t, map[string]int{"tenant_id": idxTenant, "article_id": idxID}); err != nil {
		return nil, nil, err
	}
	idxNumber := t.colIndex("article_number", "article_no", "number")
	idxDesc := t.colIndex("description", "name", "product name")
	idxCategory := t.colIndex("category")
	idxSubcategory := t.colIndex("subcategory", "sub_category")
	idxBrand := t.colIndex("brand")
	idxSupplier := t.colIndex("supplier", "supplier_name")
	idxPurchase := t.colIndex("purchase_price", "cost", "hpp")
	idxRetail := t.colIndex("retail_price", "price", "harga")
	idxLeadTime := t.colIndex("lead_time_days", "lead_time", "lead time")
	idxMin := t.colIndex("min_stock_level", "min_stock", "min stock")
	idxMax := t.colIndex("max_stock_level", "max_stock", "max stock")

	var out []domain.ArticleMaster
	var rejected []rowError
	for i, record := range t.records {
		r := row{record: record, line: i + 2}
		a := domain.ArticleMaster{
			TenantID:      r.get(idxTenant),
			ArticleID:     r.get(idxID),
			ArticleNumber: r.get(idxNumber),
			Description:   r.get(idxDesc),
			Category:      r.get(idxCategory),
			Subcategory:   r.get(idxSubcategory),
			Brand:         r.get(idxBrand),
			Supplier:      r.get(idxSupplier),
		}
		if a.ArticleID == "" && a.TenantID == "" {
			continue // blank line
		}

		err := func() (err error) {
			if a.PurchasePrice, err = r.amount(idxPurchase); err != nil {
				return err
			}
			if a.RetailPrice, err = r.amount(idxRetail); err != nil {
				return err
			}
			if a.LeadTimeDays, err = r.optionalInt(idxLeadTime); err != nil {
				return err
			}
			if a.MinStockLevel, err = r.float(idxMin); err != nil {
				return err
			}
			a.MaxStockLevel, err = r.float(idxMax)
			return err
		}()
		if err != nil {
			rejected = append(rejected, rowError{file: t.path, err: err})
			continue
		}
		out = append(out, a)
	}
	return out, rejected, nil
}

func parseSnapshots(t *table) ([]domain.InventorySnapshot, []rowError, error) {
	idxTenant := t.colIndex("tenant_id", "tenant")
	idxArticle := t.colIndex("article_id", "sku")
	idxWarehouse := t.colIndex("warehouse_id", "warehouse", "store", "toko")
	idxQty := t.colIndex("quantity", "qty", "stock", "stok")
	if err := requireColumns(t, map[string]int{
		"tenant_id": idxTenant, "article_id": idxArticle, "warehouse_id": idxWarehouse, "quantity": idxQty,
	}); err != nil {
		return nil, nil, err
	}
	idxID := t.colIndex("inventory_id", "id")
	idxSynced := t.colIndex("synced_at", "updated_at", "snapshot_date")

	var out []domain.InventorySnapshot
	var rejected []rowError
	for i, record := range t.records {
		r := row{record: record, line: i + 2}
		s := domain.InventorySnapshot{
			InventoryID: r.get(idxID),
			TenantID:    r.get(idxTenant),
			ArticleID:   r.get(idxArticle),
			WarehouseID: r.get(idxWarehouse),
		}
		if s.ArticleID == "" && s.TenantID == "" {
			continue
		}

		var err error
		if s.Quantity, err = r.quantity(idxQty); err == nil {
			s.SyncedAt, err = r.date(idxSynced)
		}
		if err != nil {
			rejected = append(rejected, rowError{file: t.path, err: err})
			continue
		}
		out = append(out, s)
	}
	return out, rejected, nil
}

func parseSales(t *table) ([]domain.SaleEvent, []rowError, error) {
	idxTenant := t.colIndex("tenant_id", "tenant")
	idxArticle := t.colIndex("article_id", "sku")
	idxDate := t.colIndex("sale_date", "date", "sold_at")
	idxQty := t.colIndex("quantity", "qty")
	if err := requireColumns(t, map[string]int{
		"tenant_id": idxTenant, "article_id": idxArticle, "sale_date": idxDate, "quantity": idxQty,
	}); err != nil {
		return nil, nil, err
	}
	idxID := t.colIndex("sale_id", "id", "transaction_id")
	idxWarehouse := t.colIndex("warehouse_id", "warehouse", "store")
	idxUnitPrice := t.colIndex("unit_price", "price")
	idxRevenue := t.colIndex("revenue", "total", "amount")

	var out []domain.SaleEvent
	var rejected []rowError
	for i, record := range t.records {
		r := row{record: record, line: i + 2}
		e := domain.SaleEvent{
			SaleID:      r.get(idxID),
			TenantID:    r.get(idxTenant),
			ArticleID:   r.get(idxArticle),
			WarehouseID: r.get(idxWarehouse),
		}
		if e.ArticleID == "" && e.TenantID == "" {
			continue
		}

		var err error
		if e.Quantity, err = r.quantity(idxQty); err == nil {
			if e.SaleDate, err = r.date(idxDate); err == nil && e.SaleDate.IsZero() {
				err = fmt.Errorf("line %d: missing sale date", r.line)
			}
		}
		if err == nil {
			if e.UnitPrice, err = r.amount(idxUnitPrice); err == nil {
				e.Revenue, err = r.amount(idxRevenue)
			}
		}
		if err != nil {
			rejected = append(rejected, rowError{file: t.path, err: err})
			continue
		}
		if idxRevenue < 0 || r.get(idxRevenue) == "" {
			e.Revenue = e.UnitPrice.Mul(decimal.NewFromFloat(e.Quantity))
		}
		out = append(out, e)
	}
	return out, rejected, nil
}

func isInvalidQuantity(err error) bool {
	return errors.Is(err, domain.ErrInvalidQuantity)
}
