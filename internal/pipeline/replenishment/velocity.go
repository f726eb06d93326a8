package replenishment

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// DailySeries maps a day number (see dayNumber) to the quantity sold that day.
type DailySeries map[int64]float64

type velocityAccumulator struct {
	v     domain.SalesVelocity
	last  [90]float64 // per-day quantity, index = age in days
	daily DailySeries
}

// CalculateVelocities aggregates sale events into rolling per-article
// statistics as of the given day (inclusive). Events dated after asOf are
// ignored. It also returns each article's daily quantity series.
func CalculateVelocities(tenantID string, sales []domain.SaleEvent, asOf time.Time) (map[string]domain.SalesVelocity, map[string]DailySeries) {
	asOfDay := dayNumber(asOf)
	acc := make(map[string]*velocityAccumulator)

	for _, s := range sales {
		age := asOfDay - dayNumber(s.SaleDate)
		if age < 0 || age >= 365 {
			continue
		}

		a, ok := acc[s.ArticleID]
		if !ok {
			a = &velocityAccumulator{
				v: domain.SalesVelocity{
					TenantID:    tenantID,
					ArticleID:   s.ArticleID,
					Revenue30d:  decimal.Zero,
					Revenue90d:  decimal.Zero,
					Revenue365d: decimal.Zero,
				},
				daily: make(DailySeries),
			}
			acc[s.ArticleID] = a
		}

		a.daily[asOfDay-age] += s.Quantity
		a.v.Qty365d += s.Quantity
		a.v.Revenue365d = a.v.Revenue365d.Add(s.Revenue)

		switch {
		case age < 30:
			a.v.Qty30d += s.Quantity
			a.v.Revenue30d = a.v.Revenue30d.Add(s.Revenue)
		case age < 60:
			a.v.QtyPrev30d += s.Quantity
		}
		if age < 90 {
			a.v.Qty90d += s.Quantity
			a.v.Revenue90d = a.v.Revenue90d.Add(s.Revenue)
			a.last[age] += s.Quantity
		}
	}

	velocities := make(map[string]domain.SalesVelocity, len(acc))
	series := make(map[string]DailySeries, len(acc))
	for id, a := range acc {
		v := a.v
		v.Daily30d = v.Qty30d / 30
		v.Daily90d = v.Qty90d / 90
		v.DailyStdDev90d = populationStdDev(a.last[:], v.Daily90d)
		v.TrendFactor = trendFactor(v.Qty30d, v.QtyPrev30d)
		velocities[id] = v
		series[id] = a.daily
	}
	return velocities, series
}

// trendFactor compares the last 30 days with the 30 days before them. A zero
// comparison period yields a neutral trend.
func trendFactor(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return current/previous - 1
}

func populationStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, x := range values {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
