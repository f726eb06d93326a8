package replenishment

import (
	"sort"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// GenerateForecasts projects daily demand for the horizon days following asOf.
// Articles without 90-day sales produce no rows.
func GenerateForecasts(
	tenantID string,
	velocities map[string]domain.SalesVelocity,
	profiles map[string]domain.SeasonalityProfile,
	asOf time.Time,
	horizon int,
	calculatedAt time.Time,
) []domain.DemandForecast {
	ids := make([]string, 0, len(velocities))
	for id, v := range velocities {
		if v.Daily90d > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	asOfDay := dayNumber(asOf)
	out := make([]domain.DemandForecast, 0, len(ids)*horizon)
	for _, id := range ids {
		v := velocities[id]
		profile, ok := profiles[id]
		if !ok {
			profile = domain.NeutralSeasonality(id)
		}
		confidence := ForecastConfidence(v)
		base := v.Daily90d * (1 + ClampTrend(v.TrendFactor))

		var cumulative float64
		for d := 1; d <= horizon; d++ {
			date := dateOfDay(asOfDay + int64(d))
			daily := roundFloat(base*profile.Factor(date), 2)
			cumulative = roundFloat(cumulative+daily, 2)

			out = append(out, domain.DemandForecast{
				TenantID:              tenantID,
				ArticleID:             id,
				ForecastDate:          date,
				ForecastedDailyDemand: daily,
				CumulativeForecast:    cumulative,
				Confidence:            confidence,
				CalculatedAt:          calculatedAt,
			})
		}
	}
	return out
}

// ForecastConfidence tiers an article by the depth of its sales history.
func ForecastConfidence(v domain.SalesVelocity) domain.Confidence {
	switch {
	case v.Qty365d > 100 && v.Daily30d > 0:
		return domain.ConfidenceHigh
	case v.Qty90d > 30 && v.Daily30d > 0:
		return domain.ConfidenceMedium
	case v.Qty30d > 0:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceVeryLow
	}
}
