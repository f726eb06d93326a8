package replenishment

import (
	"context"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/pipeline"
)

// Clock supplies the run timestamp stamped into every derived row.
type Clock func() time.Time

// Source supplies the raw input feeds of one tenant.
type Source interface {
	LoadArticles(ctx context.Context, tenantID string) ([]domain.ArticleMaster, error)
	LoadSnapshots(ctx context.Context, tenantID, warehouseID string) ([]domain.InventorySnapshot, error)
	LoadSales(ctx context.Context, tenantID string, from, to time.Time) ([]domain.SaleEvent, error)
}

// Publisher makes a partition's output visible to readers in one atomic step.
type Publisher interface {
	Publish(ctx context.Context, out *Output) error
}

// Output is everything one partition run produces. Nothing in it is visible
// to readers until a Publisher accepts it.
type Output struct {
	RunID        string
	TenantID     string
	WarehouseID  string // empty for tenant wide runs
	AsOf         time.Time
	CalculatedAt time.Time

	Statuses         []domain.InventoryStatus
	Recommendations  []domain.ReorderRecommendation
	Forecasts        []domain.DemandForecast
	WarehouseRollups []domain.WarehouseRollup
	CategoryRollups  []domain.CategoryRollup

	Stats pipeline.PartitionStats
}

// Config holds the inventory policy parameters of the engine.
type Config struct {
	HorizonDays  int // forecast horizon
	LookbackDays int // sales history loaded when the job has no From date

	OrderingCost         float64 // fixed cost per order, EOQ numerator
	HoldingCostRate      float64 // yearly holding cost as a share of purchase price
	StockoutSentinelDays float64

	CriticalDaysOfSupply float64
	WarningDaysOfSupply  float64
	ExcessDaysOfSupply   float64
	ExcessQtyNoSales     float64

	ABCThresholdA float64
	ABCThresholdB float64

	LeadTimeDefaults map[domain.ABCClass]int
	ServiceLevelZ    map[domain.ABCClass]float64

	WarehouseWorkers int
}

// DefaultConfig returns the standard inventory policy.
func DefaultConfig() Config {
	return Config{
		HorizonDays:          90,
		LookbackDays:         365,
		OrderingCost:         20,
		HoldingCostRate:      0.25,
		StockoutSentinelDays: 999,
		CriticalDaysOfSupply: 7,
		WarningDaysOfSupply:  14,
		ExcessDaysOfSupply:   180,
		ExcessQtyNoSales:     10,
		ABCThresholdA:        0.8,
		ABCThresholdB:        0.5,
		LeadTimeDefaults: map[domain.ABCClass]int{
			domain.ABCClassA: 7,
			domain.ABCClassB: 10,
			domain.ABCClassC: 14,
			domain.ABCClassD: 14,
		},
		ServiceLevelZ: map[domain.ABCClass]float64{
			domain.ABCClassA: 2.33,
			domain.ABCClassB: 1.65,
			domain.ABCClassC: 1.28,
			domain.ABCClassD: 1.28,
		},
		WarehouseWorkers: 4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HorizonDays <= 0 {
		c.HorizonDays = d.HorizonDays
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = d.LookbackDays
	}
	if c.OrderingCost <= 0 {
		c.OrderingCost = d.OrderingCost
	}
	if c.HoldingCostRate <= 0 {
		c.HoldingCostRate = d.HoldingCostRate
	}
	if c.StockoutSentinelDays <= 0 {
		c.StockoutSentinelDays = d.StockoutSentinelDays
	}
	if c.CriticalDaysOfSupply <= 0 {
		c.CriticalDaysOfSupply = d.CriticalDaysOfSupply
	}
	if c.WarningDaysOfSupply <= 0 {
		c.WarningDaysOfSupply = d.WarningDaysOfSupply
	}
	if c.ExcessDaysOfSupply <= 0 {
		c.ExcessDaysOfSupply = d.ExcessDaysOfSupply
	}
	if c.ExcessQtyNoSales <= 0 {
		c.ExcessQtyNoSales = d.ExcessQtyNoSales
	}
	if c.ABCThresholdA <= 0 {
		c.ABCThresholdA = d.ABCThresholdA
	}
	if c.ABCThresholdB <= 0 {
		c.ABCThresholdB = d.ABCThresholdB
	}
	if len(c.LeadTimeDefaults) == 0 {
		c.LeadTimeDefaults = d.LeadTimeDefaults
	}
	if len(c.ServiceLevelZ) == 0 {
		c.ServiceLevelZ = d.ServiceLevelZ
	}
	if c.WarehouseWorkers <= 0 {
		c.WarehouseWorkers = d.WarehouseWorkers
	}
	return c
}
