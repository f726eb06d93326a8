package replenishment

import (
	"math"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// safeDiv returns num/den, or fallback when den is zero.
func safeDiv(num, den, fallback float64) float64 {
	if den == 0 {
		return fallback
	}
	return num / den
}

// percentage returns 100*part/whole rounded to 2 decimals, nil when whole is zero.
func percentage(part, whole float64) *float64 {
	if whole == 0 {
		return nil
	}
	pct := roundFloat(part/whole*100, 2)
	return &pct
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ClampTrend caps a raw trend factor to [-0.5, +0.5].
func ClampTrend(trend float64) float64 {
	return clamp(trend, -0.5, 0.5)
}

// dayNumber maps the calendar date of t to a day count since the Unix epoch.
// The wall clock date is used as-is, independent of the location.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
}

func dateOfDay(day int64) time.Time {
	return time.Unix(day*secondsPerDay, 0).UTC()
}

// truncateDay returns midnight UTC of t's calendar date.
func truncateDay(t time.Time) time.Time {
	return dateOfDay(dayNumber(t))
}
