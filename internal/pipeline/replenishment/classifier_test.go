package replenishment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/domain"
)

func snapshotOf(qty float64) domain.InventorySnapshot {
	return domain.InventorySnapshot{TenantID: "t1", WarehouseID: "w1", ArticleID: "a1", Quantity: qty}
}

func TestStockLevelFor(t *testing.T) {
	tests := []struct {
		qty  float64
		want domain.StockLevel
	}{
		{qty: 0, want: domain.StockLevelOutOfStock},
		{qty: 5, want: domain.StockLevelLow},
		{qty: 20, want: domain.StockLevelMedium},
		{qty: 30, want: domain.StockLevelHigh},
		{qty: 80, want: domain.StockLevelHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StockLevelFor(tt.qty, 10, 50), "qty %v", tt.qty)
	}
}

func TestClassifier_StockoutRisk(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	tests := []struct {
		name     string
		qty      float64
		daily30d float64
		want     domain.StockoutRisk
	}{
		{name: "empty shelf", qty: 0, daily30d: 2, want: domain.RiskStockout},
		{name: "five days left", qty: 10, daily30d: 2, want: domain.RiskCritical},
		{name: "ten days left", qty: 10, daily30d: 1, want: domain.RiskWarning},
		{name: "twenty days left", qty: 10, daily30d: 0.5, want: domain.RiskNormal},
		{name: "no recent sales", qty: 10, daily30d: 0, want: domain.RiskNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := domain.SalesVelocity{Daily30d: tt.daily30d, Daily90d: tt.daily30d, Qty90d: tt.daily30d * 90}
			status := c.Classify(snapshotOf(tt.qty), domain.ArticleMaster{ArticleID: "a1"}, v, day("2024-03-31"))
			assert.Equal(t, tt.want, status.StockoutRisk)
		})
	}
}

func TestClassifier_OutOfStockSnapshot(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	status := c.Classify(snapshotOf(0), domain.ArticleMaster{ArticleID: "a1", MinStockLevel: 5, MaxStockLevel: 20},
		domain.SalesVelocity{Daily90d: 2, Daily30d: 2, Qty90d: 180}, day("2024-03-31"))

	assert.Equal(t, domain.StockLevelOutOfStock, status.StockLevel)
	assert.Equal(t, domain.RiskStockout, status.StockoutRisk)
	require.NotNil(t, status.DaysOfSupply30d)
	assert.Equal(t, 0.0, *status.DaysOfSupply30d)
	assert.False(t, status.IsSlowMoving)
}

func TestClassifier_DeadStockIsExcessAndSlow(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	article := domain.ArticleMaster{
		ArticleID:     "a1",
		Category:      "toys",
		PurchasePrice: decimal.RequireFromString("2.5"),
		RetailPrice:   decimal.NewFromInt(4),
	}

	status := c.Classify(snapshotOf(15), article, domain.SalesVelocity{}, day("2024-03-31"))

	assert.True(t, status.IsExcessInventory)
	assert.True(t, status.IsSlowMoving)
	assert.Nil(t, status.DaysOfSupply30d)
	assert.Equal(t, "toys", status.Category)
	assert.True(t, decimal.RequireFromString("37.5").Equal(status.InventoryValue))
	assert.True(t, decimal.NewFromInt(60).Equal(status.PotentialRevenue))

	status = c.Classify(snapshotOf(10), article, domain.SalesVelocity{}, day("2024-03-31"))
	assert.False(t, status.IsExcessInventory, "ten units without sales are not excess")
	assert.True(t, status.IsSlowMoving)
}

func TestClassifier_LongWindowExcessAndTurnover(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	v := domain.SalesVelocity{Daily90d: 10, Daily30d: 10, Qty90d: 900}

	overstocked := c.Classify(snapshotOf(2000), domain.ArticleMaster{ArticleID: "a1"}, v, day("2024-03-31"))
	assert.True(t, overstocked.IsExcessInventory, "200 days of supply")
	assert.False(t, overstocked.IsSlowMoving, "turnover 1.8")

	stale := c.Classify(snapshotOf(5000), domain.ArticleMaster{ArticleID: "a1"}, v, day("2024-03-31"))
	assert.True(t, stale.IsExcessInventory)
	assert.True(t, stale.IsSlowMoving, "turnover 0.73")

	healthy := c.Classify(snapshotOf(300), domain.ArticleMaster{ArticleID: "a1"}, v, day("2024-03-31"))
	assert.False(t, healthy.IsExcessInventory)
	assert.False(t, healthy.IsSlowMoving)
}

func TestClassifier_AssignABC(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	price := decimal.NewFromInt(10)

	classes := c.AssignABC([]ABCInput{
		{Qty90d: 30, RetailPrice: price},
		{Qty90d: 10, RetailPrice: price},
		{Qty90d: 0, RetailPrice: price},
		{Qty90d: 40, RetailPrice: price},
		{Qty90d: 20, RetailPrice: price},
	})

	assert.Equal(t, []domain.ABCClass{
		domain.ABCClassB, // rank 0.75
		domain.ABCClassC, // rank 0.25
		domain.ABCClassD,
		domain.ABCClassA, // rank 1.0
		domain.ABCClassB, // rank 0.5
	}, classes)
}

func TestClassifier_AssignABC_EdgeCases(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	assert.Empty(t, c.AssignABC(nil))
	assert.Equal(t, []domain.ABCClass{domain.ABCClassA},
		c.AssignABC([]ABCInput{{Qty90d: 1, RetailPrice: decimal.NewFromInt(1)}}))
	assert.Equal(t, []domain.ABCClass{domain.ABCClassD},
		c.AssignABC([]ABCInput{{Qty90d: 0, RetailPrice: decimal.NewFromInt(100)}}))

	// equal values share the lowest rank
	tied := c.AssignABC([]ABCInput{
		{Qty90d: 5, RetailPrice: decimal.NewFromInt(2)},
		{Qty90d: 10, RetailPrice: decimal.NewFromInt(1)},
	})
	assert.Equal(t, []domain.ABCClass{domain.ABCClassC, domain.ABCClassC}, tied)
}
