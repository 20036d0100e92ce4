package core

import (
	"math"

	"campus-resource-monitor/api/internal/models"
)

// minTrendHistory is the minimum history length before the baseline trend
// comparison is trusted over the efficiency-tier fallback.
const minTrendHistory = 15

// ImmediateDelta compares the two chronologically most recent readings of a
// building. History is ordered oldest to newest. A single reading yields a
// zero-delta record; an empty history yields an invalid record, signalling
// the classifier to fall back to utilization-only rules. Positive PctChange
// means usage went up.
func ImmediateDelta(building string, history []models.Reading, capacityOrTarget float64) models.DeltaRecord {
	rec := models.DeltaRecord{Building: building}
	if len(history) == 0 {
		return rec
	}

	latest := sanitize(history[len(history)-1].Value)
	prev := latest
	if len(history) >= 2 {
		prev = sanitize(history[len(history)-2].Value)
	}

	rec.Prev = prev
	rec.Latest = latest
	rec.Delta = latest - prev
	if prev != 0 {
		rec.PctChange = rec.Delta / prev * 100
	}
	if capacityOrTarget > 0 {
		rec.PercentageLatest = int(math.Round(latest / capacityOrTarget * 100))
	}
	rec.Valid = true
	return rec
}

// BaselineTrend estimates a longer-horizon campus savings percentage for a
// category. When enough history exists it compares the mean of an older
// window (10 to 20 readings back) against the current campus average and
// clamps the result to a 5-30% band. Otherwise it falls back to a
// deterministic efficiency tier keyed on mean utilization. The returned
// trend is "down" (improving), "up" (worsening) or "stable", judged against
// the mean of the last five readings.
func BaselineTrend(category models.Category, histories [][]models.Reading, snapshots []models.BuildingSnapshot, total float64) (int, string) {
	var historicalAvg, recentAvg float64
	dataPoints := 0

	for _, history := range histories {
		n := len(history)
		if n <= minTrendHistory {
			continue
		}
		baseline := history[maxInt(0, n-20) : n-10]
		recent := history[n-5:]
		historicalAvg += meanValue(baseline)
		recentAvg += meanValue(recent)
		dataPoints++
	}

	if dataPoints == 0 || len(snapshots) == 0 {
		return fallbackSavings(category, meanPercentage(snapshots)), "stable"
	}

	avgHistorical := historicalAvg / float64(dataPoints)
	avgRecent := recentAvg / float64(dataPoints)
	currentAvg := total / float64(len(snapshots))

	savings := 12
	if avgHistorical > 0 {
		savings = int(math.Round((avgHistorical - currentAvg) / avgHistorical * 100))
	}
	savings = clampInt(savings, 5, 30)

	trend := "stable"
	switch {
	case currentAvg < avgRecent:
		trend = "down"
	case currentAvg > avgRecent:
		trend = "up"
	}
	return savings, trend
}

// CampusChange computes the rounded campus-wide drop percentage between the
// previous and latest cycle totals. Zero previous total yields zero.
func CampusChange(prevTotal float64, latestTotal float64) int {
	if prevTotal <= 0 {
		return 0
	}
	return int(math.Round((prevTotal - latestTotal) / prevTotal * 100))
}

func fallbackSavings(category models.Category, avgPct float64) int {
	switch category {
	case models.CategoryWater:
		switch {
		case avgPct < 70:
			return 25
		case avgPct < 85:
			return 18
		case avgPct < 95:
			return 12
		case avgPct < 110:
			return 8
		default:
			return 5
		}
	case models.CategoryElectricity:
		switch {
		case avgPct < 60:
			return 18
		case avgPct < 75:
			return 12
		default:
			return 8
		}
	default:
		return 18
	}
}

func meanValue(readings []models.Reading) float64 {
	if len(readings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range readings {
		sum += sanitize(r.Value)
	}
	return sum / float64(len(readings))
}

func meanPercentage(snapshots []models.BuildingSnapshot) float64 {
	if len(snapshots) == 0 {
		return 0
	}
	var sum float64
	for _, s := range snapshots {
		sum += float64(s.Percentage)
	}
	return sum / float64(len(snapshots))
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clampInt(v int, lo int, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a int, b int) int {
	if a > b {
		return a
	}
	return b
}
