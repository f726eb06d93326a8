package replenishment

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/stockcast/internal/domain"
)

type rollupAccumulator struct {
	metrics       domain.RollupMetrics
	outOfStock    int
	atRisk        int
}

func newRollupAccumulator(calculatedAt time.Time) *rollupAccumulator {
	m := domain.NewRollupMetrics()
	m.InventoryValue = decimal.Zero
	m.PotentialRevenue = decimal.Zero
	m.ExcessValue = decimal.Zero
	m.SlowMovingValue = decimal.Zero
	m.ReorderCost = decimal.Zero
	m.CalculatedAt = calculatedAt
	return &rollupAccumulator{metrics: m}
}

func (a *rollupAccumulator) add(s domain.InventoryStatus, rec *domain.ReorderRecommendation) {
	m := &a.metrics
	m.TotalArticles++
	m.StockLevelCounts[s.StockLevel]++
	m.RiskCounts[s.StockoutRisk]++
	m.ABCCounts[s.ABCClass]++
	m.TotalQuantity += s.Quantity
	m.InventoryValue = m.InventoryValue.Add(s.InventoryValue)
	m.PotentialRevenue = m.PotentialRevenue.Add(s.PotentialRevenue)

	if s.IsExcessInventory {
		m.ExcessCount++
		m.ExcessValue = m.ExcessValue.Add(s.InventoryValue)
	}
	if s.IsSlowMoving {
		m.SlowMovingCount++
		m.SlowMovingValue = m.SlowMovingValue.Add(s.InventoryValue)
	}
	if s.StockLevel == domain.StockLevelOutOfStock {
		a.outOfStock++
	}
	if s.StockoutRisk == domain.RiskStockout || s.StockoutRisk == domain.RiskCritical {
		a.atRisk++
	}
	if rec != nil && rec.NeedsReorder {
		m.ReorderCount++
		m.ReorderCost = m.ReorderCost.Add(rec.OrderCost)
	}
}

func (a *rollupAccumulator) finish() domain.RollupMetrics {
	m := a.metrics
	articles := float64(m.TotalArticles)
	value := m.InventoryValue.InexactFloat64()

	m.OutOfStockPct = percentage(float64(a.outOfStock), articles)
	m.AtRiskPct = percentage(float64(a.atRisk), articles)
	m.ReorderPct = percentage(float64(m.ReorderCount), articles)
	m.ExcessValuePct = percentage(m.ExcessValue.InexactFloat64(), value)
	m.SlowMovingValuePct = percentage(m.SlowMovingValue.InexactFloat64(), value)
	return m
}

type categoryKey struct {
	warehouseID string
	category    string
}

// AggregateRollups groups statuses with their recommendations per warehouse
// and per warehouse category. Both result sets are sorted by key.
func AggregateRollups(
	tenantID string,
	statuses []domain.InventoryStatus,
	recs []domain.ReorderRecommendation,
	calculatedAt time.Time,
) ([]domain.WarehouseRollup, []domain.CategoryRollup) {
	recByKey := make(map[[2]string]*domain.ReorderRecommendation, len(recs))
	for i := range recs {
		recByKey[[2]string{recs[i].WarehouseID, recs[i].ArticleID}] = &recs[i]
	}

	byWarehouse := make(map[string]*rollupAccumulator)
	byCategory := make(map[categoryKey]*rollupAccumulator)
	for _, s := range statuses {
		rec := recByKey[[2]string{s.WarehouseID, s.ArticleID}]

		wh, ok := byWarehouse[s.WarehouseID]
		if !ok {
			wh = newRollupAccumulator(calculatedAt)
			byWarehouse[s.WarehouseID] = wh
		}
		wh.add(s, rec)

		ck := categoryKey{warehouseID: s.WarehouseID, category: s.Category}
		cat, ok := byCategory[ck]
		if !ok {
			cat = newRollupAccumulator(calculatedAt)
			byCategory[ck] = cat
		}
		cat.add(s, rec)
	}

	warehouses := make([]domain.WarehouseRollup, 0, len(byWarehouse))
	for id, acc := range byWarehouse {
		warehouses = append(warehouses, domain.WarehouseRollup{
			TenantID:      tenantID,
			WarehouseID:   id,
			RollupMetrics: acc.finish(),
		})
	}
	sort.Slice(warehouses, func(i, j int) bool { return warehouses[i].WarehouseID < warehouses[j].WarehouseID })

	categories := make([]domain.CategoryRollup, 0, len(byCategory))
	for k, acc := range byCategory {
		categories = append(categories, domain.CategoryRollup{
			TenantID:      tenantID,
			WarehouseID:   k.warehouseID,
			Category:      k.category,
			RollupMetrics: acc.finish(),
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].WarehouseID != categories[j].WarehouseID {
			return categories[i].WarehouseID < categories[j].WarehouseID
		}
		return categories[i].Category < categories[j].Category
	})

	return warehouses, categories
}
