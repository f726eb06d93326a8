package replenishment

import (
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

const (
	minWeekdayHistoryDays = 28
	minMonthBucketDays    = 7
)

// ProfileSeasonality derives weekday and month factors for every article in
// series over the closed day range [from, to]. An article's history starts at
// its first sale inside the range; days without sales after that count as zero
// demand. Every factor falls back to 1.0 when it cannot be estimated, so the
// result is always strictly positive.
func ProfileSeasonality(series map[string]DailySeries, from, to time.Time) map[string]domain.SeasonalityProfile {
	fromDay, toDay := dayNumber(from), dayNumber(to)
	profiles := make(map[string]domain.SeasonalityProfile, len(series))
	for id, daily := range series {
		profiles[id] = profileArticle(id, daily, fromDay, toDay)
	}
	return profiles
}

// firstSaleDay returns the earliest day in [fromDay, toDay] with a positive
// quantity.
func firstSaleDay(daily DailySeries, fromDay, toDay int64) (int64, bool) {
	first, found := toDay, false
	for day, qty := range daily {
		if day < fromDay || day > toDay || qty <= 0 {
			continue
		}
		if !found || day < first {
			first, found = day, true
		}
	}
	return first, found
}

func profileArticle(articleID string, daily DailySeries, fromDay, toDay int64) domain.SeasonalityProfile {
	profile := domain.NeutralSeasonality(articleID)

	startDay, ok := firstSaleDay(daily, fromDay, toDay)
	if !ok {
		return profile
	}

	var total float64
	var weekdaySum [7]float64
	var monthSum [13]float64
	var weekdayDays [7]int
	var monthDays [13]int
	for day := startDay; day <= toDay; day++ {
		date := dateOfDay(day)
		weekdayDays[date.Weekday()]++
		monthDays[date.Month()]++

		qty := daily[day]
		total += qty
		weekdaySum[date.Weekday()] += qty
		monthSum[date.Month()] += qty
	}
	historyDays := int(toDay-startDay) + 1

	overall := total / float64(historyDays)
	if overall <= 0 {
		return profile
	}

	if historyDays >= minWeekdayHistoryDays {
		for wd := range weekdaySum {
			profile.DayOfWeek[wd] = bucketFactor(weekdaySum[wd], weekdayDays[wd], 1, overall)
		}
	}
	for m := 1; m < len(monthSum); m++ {
		profile.Month[m] = bucketFactor(monthSum[m], monthDays[m], minMonthBucketDays, overall)
	}
	return profile
}

func bucketFactor(sum float64, days, minDays int, overall float64) float64 {
	if days < minDays || days == 0 {
		return 1
	}
	avg := sum / float64(days)
	if avg <= 0 {
		return 1
	}
	return avg / overall
}
