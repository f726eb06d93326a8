package export

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// Output file names inside a partition export directory.
const (
	StatusFile         = "inventory_status.csv"
	RecommendationFile = "reorder_recommendations.csv"
	ForecastFile       = "demand_forecasts.csv"
	RollupFile         = "rollups.csv"
	WorkbookFile       = "reorder_recommendations.xlsx"
)

var statusHeader = []string{
	"tenant_id", "warehouse_id", "article_id", "article_number", "description", "category", "supplier",
	"quantity", "qty_90d", "daily_30d", "daily_90d", "days_of_supply_30d",
	"stock_level", "stockout_risk", "abc_class", "is_excess_inventory", "is_slow_moving",
	"inventory_value", "potential_revenue", "calculated_at",
}

func statusRecord(s domain.InventoryStatus) []string {
	return []string{
		s.TenantID, s.WarehouseID, s.ArticleID, s.ArticleNumber, s.Description, s.Category, s.Supplier,
		num(s.Quantity), num(s.Qty90d), num(s.Daily30d), num(s.Daily90d), optNum(s.DaysOfSupply30d),
		string(s.StockLevel), string(s.StockoutRisk), string(s.ABCClass),
		strconv.FormatBool(s.IsExcessInventory), strconv.FormatBool(s.IsSlowMoving),
		money(s.InventoryValue), money(s.PotentialRevenue), timestamp(s.CalculatedAt),
	}
}

var recommendationHeader = []string{
	"tenant_id", "warehouse_id", "article_id", "supplier", "abc_class", "quantity",
	"lead_time_days", "service_level_z", "lead_time_demand", "safety_stock", "reorder_point",
	"needs_reorder", "eoq", "recommended_order_quantity", "order_cost", "days_until_stockout",
	"reorder_by_date", "priority", "calculated_at",
}

func recommendationRecord(r domain.ReorderRecommendation) []string {
	reorderBy := ""
	if r.ReorderByDate != nil {
		reorderBy = r.ReorderByDate.Format(time.DateOnly)
	}
	return []string{
		r.TenantID, r.WarehouseID, r.ArticleID, r.Supplier, string(r.ABCClass), num(r.Quantity),
		strconv.Itoa(r.LeadTimeDays), num(r.ServiceLevelZ), num(r.LeadTimeDemand), num(r.SafetyStock),
		strconv.Itoa(r.ReorderPoint), strconv.FormatBool(r.NeedsReorder), optNum(r.EOQ),
		strconv.Itoa(r.RecommendedOrderQuantity), money(r.OrderCost), num(r.DaysUntilStockout),
		reorderBy, strconv.Itoa(r.Priority), timestamp(r.CalculatedAt),
	}
}

var forecastHeader = []string{
	"tenant_id", "article_id", "forecast_date", "forecasted_daily_demand",
	"cumulative_forecast", "confidence", "calculated_at",
}

func forecastRecord(f domain.DemandForecast) []string {
	return []string{
		f.TenantID, f.ArticleID, f.ForecastDate.Format(time.DateOnly), num(f.ForecastedDailyDemand),
		num(f.CumulativeForecast), string(f.Confidence), timestamp(f.CalculatedAt),
	}
}

// rollupHeader flattens the band counters into one column per band.
func rollupHeader() []string {
	h := []string{"tenant_id", "level_type", "warehouse_id", "category", "total_articles"}
	for _, l := range domain.StockLevels {
		h = append(h, "stock_level_"+string(l))
	}
	for _, r := range domain.StockoutRisks {
		h = append(h, "risk_"+string(r))
	}
	for _, c := range domain.ABCClasses {
		h = append(h, "abc_"+string(c))
	}
	return append(h,
		"total_quantity", "inventory_value", "potential_revenue",
		"excess_count", "excess_value", "slow_moving_count", "slow_moving_value",
		"reorder_count", "reorder_cost",
		"out_of_stock_pct", "at_risk_pct", "reorder_pct", "excess_value_pct", "slow_moving_value_pct",
		"calculated_at",
	)
}

func rollupRecord(r domain.RollupSummary) []string {
	key, m := r.Key(), r.Metrics()
	rec := []string{key.TenantID, string(key.Level), key.WarehouseID, key.Category, strconv.Itoa(m.TotalArticles)}
	for _, l := range domain.StockLevels {
		rec = append(rec, strconv.Itoa(m.StockLevelCounts[l]))
	}
	for _, risk := range domain.StockoutRisks {
		rec = append(rec, strconv.Itoa(m.RiskCounts[risk]))
	}
	for _, c := range domain.ABCClasses {
		rec = append(rec, strconv.Itoa(m.ABCCounts[c]))
	}
	return append(rec,
		num(m.TotalQuantity), money(m.InventoryValue), money(m.PotentialRevenue),
		strconv.Itoa(m.ExcessCount), money(m.ExcessValue), strconv.Itoa(m.SlowMovingCount), money(m.SlowMovingValue),
		strconv.Itoa(m.ReorderCount), money(m.ReorderCost),
		optNum(m.OutOfStockPct), optNum(m.AtRiskPct), optNum(m.ReorderPct),
		optNum(m.ExcessValuePct), optNum(m.SlowMovingValuePct),
		timestamp(m.CalculatedAt),
	)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optNum(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
