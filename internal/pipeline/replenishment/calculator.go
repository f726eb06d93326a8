package replenishment

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// ReplenishmentCalculator computes reorder recommendations for classified snapshots.
type ReplenishmentCalculator struct {
	cfg Config
}

// NewReplenishmentCalculator creates a calculator for the given policy.
func NewReplenishmentCalculator(cfg Config) *ReplenishmentCalculator {
	return &ReplenishmentCalculator{cfg: cfg.withDefaults()}
}

// LeadTimeFor returns the article lead time, falling back to the ABC default.
func (rc *ReplenishmentCalculator) LeadTimeFor(article domain.ArticleMaster, class domain.ABCClass) int {
	if lt, ok := article.LeadTime(); ok {
		return lt
	}
	return rc.cfg.LeadTimeDefaults[class]
}

// Calculate computes the recommendation for one classified snapshot.
// status.ABCClass must already be assigned.
func (rc *ReplenishmentCalculator) Calculate(status domain.InventoryStatus, article domain.ArticleMaster, v domain.SalesVelocity, asOf time.Time) domain.ReorderRecommendation {
	qty := status.Quantity
	rec := domain.ReorderRecommendation{
		TenantID:     status.TenantID,
		WarehouseID:  status.WarehouseID,
		ArticleID:    status.ArticleID,
		Supplier:     article.Supplier,
		ABCClass:     status.ABCClass,
		Quantity:     qty,
		OrderCost:    decimal.Zero,
		CalculatedAt: status.CalculatedAt,
	}

	// 1. Lead time and service level from the article or its ABC class
	rec.LeadTimeDays = rc.LeadTimeFor(article, status.ABCClass)
	rec.ServiceLevelZ = rc.cfg.ServiceLevelZ[status.ABCClass]
	leadTime := float64(rec.LeadTimeDays)

	// 2. Lead time demand = Daily Sales (90d) × Lead Time
	leadTimeDemand := v.Daily90d * leadTime
	rec.LeadTimeDemand = roundFloat(leadTimeDemand, 2)

	// 3. Safety stock = σ(daily sales) × z × √(Lead Time)
	safetyStock := v.DailyStdDev90d * rec.ServiceLevelZ * math.Sqrt(leadTime)
	rec.SafetyStock = roundFloat(safetyStock, 2)

	// 4. Reorder point = Lead Time Demand + Safety Stock
	rec.ReorderPoint = int(math.Round(leadTimeDemand + safetyStock))
	reorderPoint := float64(rec.ReorderPoint)
	rec.NeedsReorder = qty <= reorderPoint

	// 5. EOQ = √(2 × Ordering Cost × Annual Demand / Holding Cost)
	var eoq float64
	hasEOQ := false
	if v.Daily90d > 0 && article.PurchasePrice.IsPositive() {
		annualDemand := v.Daily90d * 365
		holdingCost := rc.cfg.HoldingCostRate * article.PurchasePrice.InexactFloat64()
		eoq = math.Sqrt(2 * rc.cfg.OrderingCost * annualDemand / holdingCost)
		hasEOQ = true
		rounded := roundFloat(eoq, 2)
		rec.EOQ = &rounded
	}

	// 6. Recommended order quantity, EOQ when it covers the shortfall
	if rec.NeedsReorder {
		shortfall := reorderPoint - qty
		if hasEOQ && eoq >= shortfall {
			rec.RecommendedOrderQuantity = int(math.Ceil(math.Max(eoq, math.Max(shortfall, 1))))
		} else {
			rec.RecommendedOrderQuantity = int(math.Ceil(math.Max(shortfall, 1)))
		}
	}

	// 7. Order cost
	rec.OrderCost = decimal.NewFromInt(int64(rec.RecommendedOrderQuantity)).Mul(article.PurchasePrice)

	// 8. Days until stockout at the 90d rate, sentinel when nothing sells
	if v.Daily90d > 0 {
		rec.DaysUntilStockout = roundFloat(qty/v.Daily90d, 2)
		slack := math.Floor(clamp(qty/v.Daily90d-leadTime, 0, rc.cfg.StockoutSentinelDays))
		reorderBy := truncateDay(asOf).AddDate(0, 0, int(slack))
		rec.ReorderByDate = &reorderBy
	} else {
		rec.DaysUntilStockout = rc.cfg.StockoutSentinelDays
	}

	// 9. Priority
	switch {
	case qty <= 0:
		rec.Priority = 1
	case qty <= safetyStock:
		rec.Priority = 2
	case qty <= reorderPoint:
		rec.Priority = 3
	default:
		rec.Priority = 4
	}

	return rec
}
