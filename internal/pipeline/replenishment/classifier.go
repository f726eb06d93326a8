package replenishment

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// Classifier derives stock health for one snapshot from its article and velocity.
type Classifier struct {
	cfg Config
}

func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg.withDefaults()}
}

// Classify builds the inventory status of a snapshot. ABCClass is left empty;
// it depends on the whole warehouse and is filled in by AssignABC.
func (c *Classifier) Classify(snap domain.InventorySnapshot, article domain.ArticleMaster, v domain.SalesVelocity, calculatedAt time.Time) domain.InventoryStatus {
	qty := snap.Quantity
	qtyDec := decimal.NewFromFloat(qty)

	status := domain.InventoryStatus{
		TenantID:         snap.TenantID,
		WarehouseID:      snap.WarehouseID,
		ArticleID:        snap.ArticleID,
		ArticleNumber:    article.ArticleNumber,
		Description:      article.Description,
		Category:         article.Category,
		Supplier:         article.Supplier,
		Quantity:         qty,
		Qty90d:           v.Qty90d,
		Daily30d:         v.Daily30d,
		Daily90d:         v.Daily90d,
		StockLevel:       StockLevelFor(qty, article.MinStockLevel, article.MaxStockLevel),
		InventoryValue:   qtyDec.Mul(article.PurchasePrice),
		PotentialRevenue: qtyDec.Mul(article.RetailPrice),
		CalculatedAt:     calculatedAt,
	}

	if v.Daily30d > 0 {
		dos := roundFloat(qty/v.Daily30d, 2)
		status.DaysOfSupply30d = &dos
	}
	status.StockoutRisk = c.riskFor(qty, v.Daily30d)
	status.IsExcessInventory = c.isExcess(qty, v)
	status.IsSlowMoving = isSlowMoving(qty, v)

	return status
}

// StockLevelFor bands a quantity against the article's min/max stock levels.
func StockLevelFor(qty, minLevel, maxLevel float64) domain.StockLevel {
	switch {
	case qty <= 0:
		return domain.StockLevelOutOfStock
	case qty < minLevel:
		return domain.StockLevelLow
	case qty < (minLevel+maxLevel)/2:
		return domain.StockLevelMedium
	default:
		return domain.StockLevelHigh
	}
}

func (c *Classifier) riskFor(qty, daily30d float64) domain.StockoutRisk {
	if qty <= 0 {
		return domain.RiskStockout
	}
	if daily30d <= 0 {
		return domain.RiskNormal
	}

	daysOfSupply := qty / daily30d
	switch {
	case daysOfSupply < c.cfg.CriticalDaysOfSupply:
		return domain.RiskCritical
	case daysOfSupply < c.cfg.WarningDaysOfSupply:
		return domain.RiskWarning
	default:
		return domain.RiskNormal
	}
}

func (c *Classifier) isExcess(qty float64, v domain.SalesVelocity) bool {
	if v.Qty90d == 0 {
		return qty > c.cfg.ExcessQtyNoSales
	}
	return v.Daily90d > 0 && qty/v.Daily90d > c.cfg.ExcessDaysOfSupply
}

func isSlowMoving(qty float64, v domain.SalesVelocity) bool {
	if qty <= 0 {
		return false
	}
	if v.Qty90d == 0 {
		return true
	}
	// annualized turnover below one
	return v.Daily90d*365/qty < 1
}

// ABCInput is one article of a warehouse competing for an ABC class.
type ABCInput struct {
	Qty90d      float64
	RetailPrice decimal.Decimal
}

func (in ABCInput) value() decimal.Decimal {
	return decimal.NewFromFloat(in.Qty90d).Mul(in.RetailPrice)
}

// AssignABC classifies the articles of one warehouse by percent rank of their
// 90-day sales value. The result is index aligned with items. Articles without
// 90-day sales are always D.
func (c *Classifier) AssignABC(items []ABCInput) []domain.ABCClass {
	classes := make([]domain.ABCClass, len(items))
	if len(items) == 0 {
		return classes
	}

	values := make([]decimal.Decimal, len(items))
	sorted := make([]decimal.Decimal, len(items))
	for i, it := range items {
		values[i] = it.value()
		sorted[i] = values[i]
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	n := len(items)
	for i, it := range items {
		if it.Qty90d <= 0 {
			classes[i] = domain.ABCClassD
			continue
		}

		rank := 1.0
		if n > 1 {
			lower := sort.Search(n, func(k int) bool { return !sorted[k].LessThan(values[i]) })
			rank = float64(lower) / float64(n-1)
		}

		switch {
		case rank >= c.cfg.ABCThresholdA:
			classes[i] = domain.ABCClassA
		case rank >= c.cfg.ABCThresholdB:
			classes[i] = domain.ABCClassB
		default:
			classes[i] = domain.ABCClassC
		}
	}
	return classes
}
