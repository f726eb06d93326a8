package replenishment

import (
	"testing"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileSeasonality_MondayHeavyArticle(t *testing.T) {
	from := day("2024-01-01") // a Monday
	to := day("2024-02-25")   // 56 days, eight of each weekday

	series := DailySeries{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Monday {
			series[dayNumber(d)] = 7
		}
	}

	profiles := ProfileSeasonality(map[string]DailySeries{"a1": series}, from, to)
	require.Contains(t, profiles, "a1")
	p := profiles["a1"]

	assert.InDelta(t, 7.0, p.DayOfWeek[time.Monday], 1e-9)
	for _, wd := range []time.Weekday{time.Tuesday, time.Wednesday, time.Sunday} {
		assert.Equal(t, 1.0, p.DayOfWeek[wd], "empty weekday bucket must stay neutral")
	}

	// January holds 5 Mondays over 31 days, February 3 over 25 days
	assert.InDelta(t, 35.0/31, p.Month[time.January], 1e-9)
	assert.InDelta(t, 21.0/25, p.Month[time.February], 1e-9)
	assert.Equal(t, 1.0, p.Month[time.July])
}

func TestProfileSeasonality_ShortHistoryKeepsWeekdaysNeutral(t *testing.T) {
	from := day("2024-01-01")
	to := day("2024-01-14")
	series := DailySeries{dayNumber(from): 10}

	p := ProfileSeasonality(map[string]DailySeries{"a1": series}, from, to)["a1"]
	for wd := range p.DayOfWeek {
		assert.Equal(t, 1.0, p.DayOfWeek[wd])
	}
	// 14 January days are enough for a month bucket
	assert.Equal(t, 1.0, p.Month[time.January])
}

func TestProfileSeasonality_SparseMonthBucketIsNeutral(t *testing.T) {
	from := day("2024-01-01")
	to := day("2024-02-03") // only 3 days of February
	series := DailySeries{
		dayNumber(day("2024-01-10")): 5,
		dayNumber(day("2024-02-02")): 50,
	}

	p := ProfileSeasonality(map[string]DailySeries{"a1": series}, from, to)["a1"]
	assert.Equal(t, 1.0, p.Month[time.February])
	assert.Greater(t, p.Month[time.January], 0.0)
}

func TestProfileSeasonality_FactorsAlwaysPositive(t *testing.T) {
	from := day("2023-04-01")
	to := day("2024-03-31")
	series := map[string]DailySeries{
		"none":  {},
		"burst": {dayNumber(day("2023-12-24")): 400},
	}

	for id, p := range ProfileSeasonality(series, from, to) {
		for wd, f := range p.DayOfWeek {
			assert.Greater(t, f, 0.0, "%s weekday %d", id, wd)
		}
		for m := 1; m < len(p.Month); m++ {
			assert.Greater(t, p.Month[m], 0.0, "%s month %d", id, m)
		}
	}
}

func TestProfileSeasonality_HistoryStartsAtFirstSale(t *testing.T) {
	asOf := day("2024-03-15")
	from := asOf.AddDate(0, 0, -364)

	// one unit a day for the last 14 days only
	series := DailySeries{}
	for d := day("2024-03-02"); !d.After(asOf); d = d.AddDate(0, 0, 1) {
		series[dayNumber(d)] = 1
	}

	p := ProfileSeasonality(map[string]DailySeries{"a1": series}, from, asOf)["a1"]
	for m := 1; m < len(p.Month); m++ {
		assert.InDelta(t, 1.0, p.Month[m], 1e-9, "month %d", m)
	}
	for wd := range p.DayOfWeek {
		assert.Equal(t, 1.0, p.DayOfWeek[wd])
	}

	velocities := map[string]domain.SalesVelocity{
		"a1": {ArticleID: "a1", Qty30d: 14, Qty90d: 14, Daily90d: 14.0 / 90},
	}
	forecasts := GenerateForecasts("t1", velocities, map[string]domain.SeasonalityProfile{"a1": p}, asOf, 30, asOf)
	require.Len(t, forecasts, 30)
	for _, f := range forecasts {
		assert.InDelta(t, forecasts[0].ForecastedDailyDemand, f.ForecastedDailyDemand, 1e-9,
			"demand on %s", f.ForecastDate.Format("2006-01-02"))
	}
}
