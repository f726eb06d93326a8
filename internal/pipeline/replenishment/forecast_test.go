package replenishment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/domain"
)

func TestGenerateForecasts_ClampsTrend(t *testing.T) {
	asOf := day("2024-03-31")
	calcAt := asOf.Add(6 * time.Hour)
	velocities := map[string]domain.SalesVelocity{
		"a1": {ArticleID: "a1", Daily90d: 10, Daily30d: 12, Qty30d: 360, Qty90d: 900, Qty365d: 3000, TrendFactor: 0.8},
	}

	forecasts := GenerateForecasts("t1", velocities, nil, asOf, 3, calcAt)
	require.Len(t, forecasts, 3)

	for i, f := range forecasts {
		assert.Equal(t, "t1", f.TenantID)
		assert.Equal(t, asOf.AddDate(0, 0, i+1), f.ForecastDate)
		assert.Equal(t, 15.0, f.ForecastedDailyDemand, "10 x (1 + 0.5)")
		assert.Equal(t, domain.ConfidenceHigh, f.Confidence)
		assert.Equal(t, calcAt, f.CalculatedAt)
	}
	assert.Equal(t, 45.0, forecasts[2].CumulativeForecast)
}

func TestGenerateForecasts_ExcludesArticlesWithoutRecentSales(t *testing.T) {
	asOf := day("2024-03-31")
	velocities := map[string]domain.SalesVelocity{
		"idle":   {ArticleID: "idle", Qty365d: 50},
		"seller": {ArticleID: "seller", Daily90d: 1, Qty90d: 90, Qty30d: 30, Daily30d: 1},
	}

	forecasts := GenerateForecasts("t1", velocities, nil, asOf, 5, asOf)
	require.Len(t, forecasts, 5)
	for _, f := range forecasts {
		assert.Equal(t, "seller", f.ArticleID)
	}
}

func TestGenerateForecasts_CumulativeNeverDecreases(t *testing.T) {
	asOf := day("2024-03-31")
	profile := domain.NeutralSeasonality("a1")
	profile.DayOfWeek[0] = 1.7
	profile.DayOfWeek[3] = 0.4
	velocities := map[string]domain.SalesVelocity{
		"a1": {ArticleID: "a1", Daily90d: 3.33, TrendFactor: -0.9},
	}

	forecasts := GenerateForecasts("t1", velocities, map[string]domain.SeasonalityProfile{"a1": profile}, asOf, 30, asOf)
	require.Len(t, forecasts, 30)
	for i := 1; i < len(forecasts); i++ {
		assert.GreaterOrEqual(t, forecasts[i].CumulativeForecast, forecasts[i-1].CumulativeForecast)
		assert.Greater(t, forecasts[i].ForecastedDailyDemand, 0.0)
	}
}

func TestForecastConfidence(t *testing.T) {
	tests := []struct {
		name string
		v    domain.SalesVelocity
		want domain.Confidence
	}{
		{name: "deep history", v: domain.SalesVelocity{Qty365d: 101, Daily30d: 0.1}, want: domain.ConfidenceHigh},
		{name: "deep history gone quiet", v: domain.SalesVelocity{Qty365d: 500, Qty90d: 40}, want: domain.ConfidenceVeryLow},
		{name: "quarter", v: domain.SalesVelocity{Qty365d: 40, Qty90d: 31, Daily30d: 0.2}, want: domain.ConfidenceMedium},
		{name: "recent only", v: domain.SalesVelocity{Qty365d: 3, Qty90d: 3, Qty30d: 3, Daily30d: 0.1}, want: domain.ConfidenceLow},
		{name: "nothing", v: domain.SalesVelocity{}, want: domain.ConfidenceVeryLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ForecastConfidence(tt.v))
		})
	}
}
