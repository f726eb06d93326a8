package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/domain"
)

func TestWhereBuilder(t *testing.T) {
	var w whereBuilder
	assert.Empty(t, w.clause())

	w.add("tenant_id = $%d", "t1")
	w.add("warehouse_id = $%d", "w1")
	assert.Equal(t, " WHERE tenant_id = $1 AND warehouse_id = $2", w.clause())

	query, args := w.paginate("SELECT 1", 3, 20)
	assert.Equal(t, "SELECT 1 LIMIT $3 OFFSET $4", query)
	assert.Equal(t, []interface{}{"t1", "w1", 20, 40}, args)
	assert.Len(t, w.args, 2, "paginate must not grow the shared args")

	query, args = w.paginate("SELECT 1", 0, 0)
	assert.Equal(t, "SELECT 1", query)
	assert.Len(t, args, 2)
}

func TestRollupRowSummary(t *testing.T) {
	pct := 25.0
	m := domain.NewRollupMetrics()
	m.StockLevelCounts[domain.StockLevelLow] = 3
	levels, err := json.Marshal(m.StockLevelCounts)
	require.NoError(t, err)
	risks, err := json.Marshal(m.RiskCounts)
	require.NoError(t, err)
	abc, err := json.Marshal(m.ABCCounts)
	require.NoError(t, err)

	row := rollupRow{
		TenantID:         "t1",
		LevelType:        "category",
		WarehouseID:      "w1",
		Category:         "food",
		TotalArticles:    4,
		StockLevelCounts: levels,
		RiskCounts:       risks,
		ABCCounts:        abc,
		InventoryValue:   decimal.NewFromInt(100),
		OutOfStockPct:    &pct,
		CalculatedAt:     time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	s, err := row.summary()
	require.NoError(t, err)
	cat, ok := s.(domain.CategoryRollup)
	require.True(t, ok)
	assert.Equal(t, "food", cat.Category)
	assert.Equal(t, 3, cat.StockLevelCounts[domain.StockLevelLow])
	assert.Equal(t, 0, cat.RiskCounts[domain.RiskCritical])
	assert.Equal(t, 25.0, *cat.OutOfStockPct)

	row.LevelType = "warehouse"
	s, err = row.summary()
	require.NoError(t, err)
	assert.Equal(t, domain.RollupLevelWarehouse, s.Level())

	row.LevelType = "region"
	_, err = row.summary()
	assert.Error(t, err)
}

func TestCopyRowsMatchColumns(t *testing.T) {
	eoq := 12.5
	statuses := statusRows([]domain.InventoryStatus{{TenantID: "t1", StockLevel: domain.StockLevelLow}})
	recs := recommendationRows([]domain.ReorderRecommendation{{TenantID: "t1", EOQ: &eoq}})
	forecasts := forecastRows([]domain.DemandForecast{{TenantID: "t1", Confidence: domain.ConfidenceHigh}})
	rollups := rollupRows(
		[]domain.WarehouseRollup{{TenantID: "t1", WarehouseID: "w1", RollupMetrics: domain.NewRollupMetrics()}},
		[]domain.CategoryRollup{{TenantID: "t1", WarehouseID: "w1", Category: "food", RollupMetrics: domain.NewRollupMetrics()}},
	)

	require.Len(t, statuses, 1)
	assert.Len(t, statuses[0], len(statusColumns))
	assert.Equal(t, "low", statuses[0][12])

	require.Len(t, recs, 1)
	assert.Len(t, recs[0], len(recommendationColumns))

	require.Len(t, forecasts, 1)
	assert.Len(t, forecasts[0], len(forecastColumns))
	assert.Equal(t, "high", forecasts[0][5])

	require.Len(t, rollups, 2)
	for _, row := range rollups {
		assert.Len(t, row, len(rollupColumns))
	}
	assert.Equal(t, "warehouse", rollups[0][1])
	assert.Equal(t, "category", rollups[1][1])
	assert.Equal(t, "food", rollups[1][3])
}
