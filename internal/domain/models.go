package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ArticleMaster is the reference record for a sellable article of one tenant.
type ArticleMaster struct {
	ArticleID     string          `json:"article_id" db:"article_id" validate:"required"`
	ArticleNumber string          `json:"article_number" db:"article_number"`
	Description   string          `json:"description" db:"description"`
	Category      string          `json:"category" db:"category"`
	Subcategory   string          `json:"subcategory" db:"subcategory"`
	Brand         string          `json:"brand" db:"brand"`
	Supplier      string          `json:"supplier" db:"supplier"`
	PurchasePrice decimal.Decimal `json:"purchase_price" db:"purchase_price"`
	RetailPrice   decimal.Decimal `json:"retail_price" db:"retail_price"`
	LeadTimeDays  *int            `json:"lead_time_days,omitempty" db:"lead_time_days" validate:"omitempty,gte=0"`
	MinStockLevel float64         `json:"min_stock_level" db:"min_stock_level" validate:"gte=0"`
	MaxStockLevel float64         `json:"max_stock_level" db:"max_stock_level" validate:"gte=0"`
	TenantID      string          `json:"tenant_id" db:"tenant_id" validate:"required"`
}

// InventorySnapshot is the on-hand quantity of an article in a warehouse at sync time.
type InventorySnapshot struct {
	InventoryID string    `json:"inventory_id" db:"inventory_id"`
	ArticleID   string    `json:"article_id" db:"article_id" validate:"required"`
	WarehouseID string    `json:"warehouse_id" db:"warehouse_id" validate:"required"`
	TenantID    string    `json:"tenant_id" db:"tenant_id" validate:"required"`
	Quantity    float64   `json:"quantity" db:"quantity" validate:"gte=0"`
	SyncedAt    time.Time `json:"synced_at" db:"synced_at"`
}

// SaleEvent is a single sales transaction line. WarehouseID is empty when the
// point of sale did not report it.
type SaleEvent struct {
	SaleID      string          `json:"sale_id" db:"sale_id"`
	ArticleID   string          `json:"article_id" db:"article_id" validate:"required"`
	WarehouseID string          `json:"warehouse_id,omitempty" db:"warehouse_id"`
	TenantID    string          `json:"tenant_id" db:"tenant_id" validate:"required"`
	SaleDate    time.Time       `json:"sale_date" db:"sale_date"`
	Quantity    float64         `json:"quantity" db:"quantity" validate:"gte=0"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Revenue     decimal.Decimal `json:"revenue" db:"revenue"`
}

// LeadTime returns the article specific lead time, if one is configured.
func (a ArticleMaster) LeadTime() (int, bool) {
	if a.LeadTimeDays == nil || *a.LeadTimeDays <= 0 {
		return 0, false
	}
	return *a.LeadTimeDays, true
}
