package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesVelocity holds the rolling sales statistics of one article. It is
// recomputed from sale events on every run and never persisted.
type SalesVelocity struct {
	TenantID  string
	ArticleID string

	Qty30d     float64
	QtyPrev30d float64 // days 31-60 before the as-of day
	Qty90d     float64
	Qty365d    float64

	Revenue30d  decimal.Decimal
	Revenue90d  decimal.Decimal
	Revenue365d decimal.Decimal

	Daily30d       float64
	Daily90d       float64
	DailyStdDev90d float64
	TrendFactor    float64 // raw, consumers clamp before use
}

// SeasonalityProfile holds multiplicative demand factors. DayOfWeek is indexed
// by time.Weekday, Month by time.Month (index 0 unused).
type SeasonalityProfile struct {
	ArticleID string
	DayOfWeek [7]float64
	Month     [13]float64
}

// NeutralSeasonality returns a profile with every factor set to 1.
func NeutralSeasonality(articleID string) SeasonalityProfile {
	p := SeasonalityProfile{ArticleID: articleID}
	for i := range p.DayOfWeek {
		p.DayOfWeek[i] = 1
	}
	for i := range p.Month {
		p.Month[i] = 1
	}
	return p
}

// Factor returns the combined weekday and month factor for a date.
func (p SeasonalityProfile) Factor(date time.Time) float64 {
	return p.DayOfWeek[date.Weekday()] * p.Month[date.Month()]
}

// DemandForecast is the projected demand of an article for one future day.
type DemandForecast struct {
	TenantID              string     `json:"tenant_id" db:"tenant_id"`
	ArticleID             string     `json:"article_id" db:"article_id"`
	ForecastDate          time.Time  `json:"forecast_date" db:"forecast_date"`
	ForecastedDailyDemand float64    `json:"forecasted_daily_demand" db:"forecasted_daily_demand"`
	CumulativeForecast    float64    `json:"cumulative_forecast" db:"cumulative_forecast"`
	Confidence            Confidence `json:"confidence" db:"confidence"`
	CalculatedAt          time.Time  `json:"calculated_at" db:"calculated_at"`
}

// InventoryStatus is the stock health classification of one snapshot.
type InventoryStatus struct {
	TenantID      string `json:"tenant_id" db:"tenant_id"`
	WarehouseID   string `json:"warehouse_id" db:"warehouse_id"`
	ArticleID     string `json:"article_id" db:"article_id"`
	ArticleNumber string `json:"article_number" db:"article_number"`
	Description   string `json:"description" db:"description"`
	Category      string `json:"category" db:"category"`
	Supplier      string `json:"supplier" db:"supplier"`

	Quantity        float64  `json:"quantity" db:"quantity"`
	Qty90d          float64  `json:"qty_90d" db:"qty_90d"`
	Daily30d        float64  `json:"daily_30d" db:"daily_30d"`
	Daily90d        float64  `json:"daily_90d" db:"daily_90d"`
	DaysOfSupply30d *float64 `json:"days_of_supply_30d" db:"days_of_supply_30d"`

	StockLevel        StockLevel      `json:"stock_level" db:"stock_level"`
	StockoutRisk      StockoutRisk    `json:"stockout_risk" db:"stockout_risk"`
	ABCClass          ABCClass        `json:"abc_class" db:"abc_class"`
	IsExcessInventory bool            `json:"is_excess_inventory" db:"is_excess_inventory"`
	IsSlowMoving      bool            `json:"is_slow_moving" db:"is_slow_moving"`
	InventoryValue    decimal.Decimal `json:"inventory_value" db:"inventory_value"`
	PotentialRevenue  decimal.Decimal `json:"potential_revenue" db:"potential_revenue"`

	CalculatedAt time.Time `json:"calculated_at" db:"calculated_at"`
}

// ReorderRecommendation is the replenishment proposal for one snapshot.
type ReorderRecommendation struct {
	TenantID    string   `json:"tenant_id" db:"tenant_id"`
	WarehouseID string   `json:"warehouse_id" db:"warehouse_id"`
	ArticleID   string   `json:"article_id" db:"article_id"`
	Supplier    string   `json:"supplier" db:"supplier"`
	ABCClass    ABCClass `json:"abc_class" db:"abc_class"`
	Quantity    float64  `json:"quantity" db:"quantity"`

	LeadTimeDays             int             `json:"lead_time_days" db:"lead_time_days"`
	ServiceLevelZ            float64         `json:"service_level_z" db:"service_level_z"`
	LeadTimeDemand           float64         `json:"lead_time_demand" db:"lead_time_demand"`
	SafetyStock              float64         `json:"safety_stock" db:"safety_stock"`
	ReorderPoint             int             `json:"reorder_point" db:"reorder_point"`
	NeedsReorder             bool            `json:"needs_reorder" db:"needs_reorder"`
	EOQ                      *float64        `json:"eoq" db:"eoq"`
	RecommendedOrderQuantity int             `json:"recommended_order_quantity" db:"recommended_order_quantity"`
	OrderCost                decimal.Decimal `json:"order_cost" db:"order_cost"`
	DaysUntilStockout        float64         `json:"days_until_stockout" db:"days_until_stockout"`
	ReorderByDate            *time.Time      `json:"reorder_by_date" db:"reorder_by_date"`
	Priority                 int             `json:"priority" db:"priority"`

	CalculatedAt time.Time `json:"calculated_at" db:"calculated_at"`
}
