package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RollupMetrics are the aggregates shared by both rollup levels. Percentages
// are nil when their denominator is zero.
type RollupMetrics struct {
	TotalArticles int `json:"total_articles" db:"total_articles"`

	StockLevelCounts map[StockLevel]int   `json:"stock_level_counts"`
	RiskCounts       map[StockoutRisk]int `json:"risk_counts"`
	ABCCounts        map[ABCClass]int     `json:"abc_counts"`

	TotalQuantity    float64         `json:"total_quantity" db:"total_quantity"`
	InventoryValue   decimal.Decimal `json:"inventory_value" db:"inventory_value"`
	PotentialRevenue decimal.Decimal `json:"potential_revenue" db:"potential_revenue"`
	ExcessCount      int             `json:"excess_count" db:"excess_count"`
	ExcessValue      decimal.Decimal `json:"excess_value" db:"excess_value"`
	SlowMovingCount  int             `json:"slow_moving_count" db:"slow_moving_count"`
	SlowMovingValue  decimal.Decimal `json:"slow_moving_value" db:"slow_moving_value"`
	ReorderCount     int             `json:"reorder_count" db:"reorder_count"`
	ReorderCost      decimal.Decimal `json:"reorder_cost" db:"reorder_cost"`

	OutOfStockPct      *float64 `json:"out_of_stock_pct" db:"out_of_stock_pct"`
	// AtRiskPct counts rows with Critical or Stockout risk.
	AtRiskPct          *float64 `json:"at_risk_pct" db:"at_risk_pct"`
	ReorderPct         *float64 `json:"reorder_pct" db:"reorder_pct"`
	ExcessValuePct     *float64 `json:"excess_value_pct" db:"excess_value_pct"`
	SlowMovingValuePct *float64 `json:"slow_moving_value_pct" db:"slow_moving_value_pct"`

	CalculatedAt time.Time `json:"calculated_at" db:"calculated_at"`
}

// NewRollupMetrics returns metrics with every band counter present at zero.
func NewRollupMetrics() RollupMetrics {
	m := RollupMetrics{
		StockLevelCounts: make(map[StockLevel]int, len(StockLevels)),
		RiskCounts:       make(map[StockoutRisk]int, len(StockoutRisks)),
		ABCCounts:        make(map[ABCClass]int, len(ABCClasses)),
	}
	for _, l := range StockLevels {
		m.StockLevelCounts[l] = 0
	}
	for _, r := range StockoutRisks {
		m.RiskCounts[r] = 0
	}
	for _, c := range ABCClasses {
		m.ABCCounts[c] = 0
	}
	return m
}

// RollupSummary is implemented by WarehouseRollup and CategoryRollup only.
type RollupSummary interface {
	Level() RollupLevel
	Key() RollupKey
	Metrics() RollupMetrics
	isRollup()
}

// RollupKey identifies a rollup row. Category is empty for warehouse rollups.
type RollupKey struct {
	TenantID    string
	Level       RollupLevel
	WarehouseID string
	Category    string
}

// WarehouseRollup aggregates one warehouse of a tenant.
type WarehouseRollup struct {
	TenantID    string `json:"tenant_id"`
	WarehouseID string `json:"warehouse_id"`
	RollupMetrics
}

// CategoryRollup aggregates one category inside a warehouse of a tenant.
type CategoryRollup struct {
	TenantID    string `json:"tenant_id"`
	WarehouseID string `json:"warehouse_id"`
	Category    string `json:"category"`
	RollupMetrics
}

func (WarehouseRollup) Level() RollupLevel { return RollupLevelWarehouse }

func (r WarehouseRollup) Key() RollupKey {
	return RollupKey{TenantID: r.TenantID, Level: RollupLevelWarehouse, WarehouseID: r.WarehouseID}
}

func (r WarehouseRollup) Metrics() RollupMetrics { return r.RollupMetrics }

func (WarehouseRollup) isRollup() {}

func (CategoryRollup) Level() RollupLevel { return RollupLevelCategory }

func (r CategoryRollup) Key() RollupKey {
	return RollupKey{TenantID: r.TenantID, Level: RollupLevelCategory, WarehouseID: r.WarehouseID, Category: r.Category}
}

func (r CategoryRollup) Metrics() RollupMetrics { return r.RollupMetrics }

func (CategoryRollup) isRollup() {}
