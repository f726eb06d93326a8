package replenishment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/domain"
)

func intPtr(v int) *int { return &v }

func statusFor(qty float64, class domain.ABCClass) domain.InventoryStatus {
	return domain.InventoryStatus{
		TenantID:    "t1",
		WarehouseID: "w1",
		ArticleID:   "a1",
		Quantity:    qty,
		ABCClass:    class,
	}
}

func TestReplenishmentCalculator_SafetyStockAndReorderPoint(t *testing.T) {
	rc := NewReplenishmentCalculator(DefaultConfig())
	article := domain.ArticleMaster{ArticleID: "a1", LeadTimeDays: intPtr(7), PurchasePrice: decimal.NewFromInt(5)}
	v := domain.SalesVelocity{Daily90d: 10, DailyStdDev90d: 2}

	rec := rc.Calculate(statusFor(100, domain.ABCClassA), article, v, day("2024-03-31"))

	assert.Equal(t, 7, rec.LeadTimeDays)
	assert.Equal(t, 2.33, rec.ServiceLevelZ)
	assert.Equal(t, 70.0, rec.LeadTimeDemand)
	assert.InDelta(t, 12.33, rec.SafetyStock, 0.005)
	assert.Equal(t, 82, rec.ReorderPoint)
	assert.False(t, rec.NeedsReorder)
	assert.Equal(t, 0, rec.RecommendedOrderQuantity)
	assert.True(t, rec.OrderCost.IsZero())
	assert.Equal(t, 10.0, rec.DaysUntilStockout)
	assert.Equal(t, 4, rec.Priority)
	require.NotNil(t, rec.ReorderByDate)
	assert.Equal(t, day("2024-04-03"), *rec.ReorderByDate, "10 days of stock minus 7 days lead time")
}

func TestReplenishmentCalculator_OutOfStock(t *testing.T) {
	rc := NewReplenishmentCalculator(DefaultConfig())
	asOf := day("2024-03-31")
	article := domain.ArticleMaster{ArticleID: "a1", PurchasePrice: decimal.NewFromInt(3)}

	rec := rc.Calculate(statusFor(0, domain.ABCClassC), article, domain.SalesVelocity{Daily90d: 2}, asOf)

	assert.Equal(t, 0.0, rec.DaysUntilStockout)
	assert.Equal(t, 1, rec.Priority)
	assert.True(t, rec.NeedsReorder)
	assert.Greater(t, rec.RecommendedOrderQuantity, 0)
	require.NotNil(t, rec.ReorderByDate)
	assert.Equal(t, asOf, *rec.ReorderByDate)
}

func TestReplenishmentCalculator_OrderQuantity(t *testing.T) {
	rc := NewReplenishmentCalculator(DefaultConfig())
	v := domain.SalesVelocity{Daily90d: 10}

	tests := []struct {
		name     string
		price    decimal.Decimal
		wantEOQ  bool
		wantQty  int
		wantCost decimal.Decimal
	}{
		{
			// EOQ = sqrt(2 x 20 x 3650 / (0.25 x 4)) = 382.1, shortfall 90
			name:     "eoq covers shortfall",
			price:    decimal.NewFromInt(4),
			wantEOQ:  true,
			wantQty:  383,
			wantCost: decimal.NewFromInt(1532),
		},
		{
			// EOQ = sqrt(146000 / 2500) = 7.6, below the shortfall of 90
			name:     "shortfall exceeds eoq",
			price:    decimal.NewFromInt(10000),
			wantEOQ:  true,
			wantQty:  90,
			wantCost: decimal.NewFromInt(900000),
		},
		{
			name:     "no purchase price",
			price:    decimal.Zero,
			wantEOQ:  false,
			wantQty:  90,
			wantCost: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article := domain.ArticleMaster{ArticleID: "a1", PurchasePrice: tt.price}
			rec := rc.Calculate(statusFor(10, domain.ABCClassB), article, v, day("2024-03-31"))

			assert.Equal(t, 10, rec.LeadTimeDays, "class B default lead time")
			assert.Equal(t, 100, rec.ReorderPoint)
			assert.True(t, rec.NeedsReorder)
			assert.Equal(t, tt.wantEOQ, rec.EOQ != nil)
			assert.Equal(t, tt.wantQty, rec.RecommendedOrderQuantity)
			assert.True(t, tt.wantCost.Equal(rec.OrderCost), "order cost %s", rec.OrderCost)
			assert.Equal(t, 3, rec.Priority)
		})
	}
}

func TestReplenishmentCalculator_NoDemand(t *testing.T) {
	rc := NewReplenishmentCalculator(DefaultConfig())
	article := domain.ArticleMaster{ArticleID: "a1", PurchasePrice: decimal.NewFromInt(3)}

	rec := rc.Calculate(statusFor(5, domain.ABCClassD), article, domain.SalesVelocity{}, day("2024-03-31"))

	assert.Equal(t, 14, rec.LeadTimeDays)
	assert.Equal(t, 1.28, rec.ServiceLevelZ)
	assert.Equal(t, 999.0, rec.DaysUntilStockout)
	assert.Nil(t, rec.EOQ)
	assert.Nil(t, rec.ReorderByDate)
	assert.False(t, rec.NeedsReorder)
	assert.Equal(t, 0, rec.RecommendedOrderQuantity)
	assert.Equal(t, 4, rec.Priority)
}

func TestReplenishmentCalculator_EmptyShelfWithoutDemandStillOrdersOne(t *testing.T) {
	rc := NewReplenishmentCalculator(DefaultConfig())
	rec := rc.Calculate(statusFor(0, domain.ABCClassD), domain.ArticleMaster{ArticleID: "a1"}, domain.SalesVelocity{}, day("2024-03-31"))

	assert.True(t, rec.NeedsReorder)
	assert.Equal(t, 1, rec.RecommendedOrderQuantity)
	assert.Equal(t, 1, rec.Priority)
}

func TestReplenishmentCalculator_LeadTimeFor(t *testing.T) {
	rc := NewReplenishmentCalculator(DefaultConfig())

	assert.Equal(t, 3, rc.LeadTimeFor(domain.ArticleMaster{LeadTimeDays: intPtr(3)}, domain.ABCClassA))
	assert.Equal(t, 7, rc.LeadTimeFor(domain.ArticleMaster{LeadTimeDays: intPtr(0)}, domain.ABCClassA))
	assert.Equal(t, 10, rc.LeadTimeFor(domain.ArticleMaster{}, domain.ABCClassB))
	assert.Equal(t, 14, rc.LeadTimeFor(domain.ArticleMaster{}, domain.ABCClassC))
}

func TestSortRecommendations(t *testing.T) {
	recs := []domain.ReorderRecommendation{
		{WarehouseID: "w1", ArticleID: "a4", Priority: 3, ABCClass: domain.ABCClassA, OrderCost: decimal.NewFromInt(10)},
		{WarehouseID: "w1", ArticleID: "a1", Priority: 1, ABCClass: domain.ABCClassC, OrderCost: decimal.NewFromInt(5)},
		{WarehouseID: "w2", ArticleID: "a2", Priority: 1, ABCClass: domain.ABCClassA, OrderCost: decimal.NewFromInt(50)},
		{WarehouseID: "w1", ArticleID: "a3", Priority: 1, ABCClass: domain.ABCClassA, OrderCost: decimal.NewFromInt(80)},
		{WarehouseID: "w1", ArticleID: "a2", Priority: 1, ABCClass: domain.ABCClassA, OrderCost: decimal.NewFromInt(50)},
	}

	SortRecommendations(recs)

	got := make([]string, len(recs))
	for i, r := range recs {
		got[i] = r.WarehouseID + "/" + r.ArticleID
	}
	assert.Equal(t, []string{"w1/a3", "w1/a2", "w2/a2", "w1/a1", "w1/a4"}, got)
}
