package core

import (
	"math"

	"campus-resource-monitor/api/internal/models"
)

// NormalizeSnapshot turns the latest raw usage per building into the uniform
// shape the classifier consumes. Every catalog building is present; a
// building with no data reports zero usage rather than being omitted.
func NormalizeSnapshot(category models.Category, usage map[string]float64) []models.BuildingSnapshot {
	buildings := Buildings(category)
	out := make([]models.BuildingSnapshot, 0, len(buildings))
	for _, name := range buildings {
		v := sanitize(usage[name])
		snap := models.BuildingSnapshot{
			Name:             name,
			Usage:            v,
			CapacityOrTarget: CapacityOrTarget(category, name),
		}
		switch category {
		case models.CategoryElectricity:
			snap.Percentage = utilization(v, snap.CapacityOrTarget)
			snap.Status = models.StatusNormal
			if snap.Percentage > 75 {
				snap.Status = models.StatusWarning
			}
		case models.CategoryWater:
			snap.Percentage = utilization(v, snap.CapacityOrTarget)
			switch {
			case snap.Percentage > 110:
				snap.Status = models.StatusWarning
			case snap.Percentage < 85:
				snap.Status = models.StatusGood
			default:
				snap.Status = models.StatusNormal
			}
		case models.CategoryFood:
			snap.Meals = MealsServed(name)
			if v > 0 && snap.Meals > 0 {
				snap.WastePerMeal = math.Round(v/float64(snap.Meals)*1000) / 1000
			}
			snap.Status = models.StatusGood
			if snap.WastePerMeal > 0.07 {
				snap.Status = models.StatusWarning
			}
		}
		out = append(out, snap)
	}
	return out
}

// ComputeCampusStats aggregates the cycle totals for a category. Histories
// are keyed by building, each ordered oldest to newest. Water uses the
// baseline trend comparison; electricity and food compare the last two cycle
// totals building by building.
func ComputeCampusStats(category models.Category, snapshots []models.BuildingSnapshot, histories map[string][]models.Reading) models.CampusStats {
	stats := models.CampusStats{Trend: "stable"}
	if len(snapshots) == 0 {
		return stats
	}

	var peak float64
	for _, s := range snapshots {
		stats.Total += s.Usage
		if s.Usage > peak {
			peak = s.Usage
			stats.PeakSource = s.Name
		}
	}
	stats.Peak = math.Round(peak)
	stats.Average = math.Round(stats.Total / float64(len(snapshots)))

	if category == models.CategoryWater {
		ordered := make([][]models.Reading, 0, len(snapshots))
		for _, s := range snapshots {
			ordered = append(ordered, histories[s.Name])
		}
		savings, trend := BaselineTrend(category, ordered, snapshots, stats.Total)
		stats.Savings = savings
		stats.Trend = trend
		return stats
	}

	var prevTotal, latestTotal float64
	counted := 0
	for _, s := range snapshots {
		history := histories[s.Name]
		switch {
		case len(history) >= 2:
			prevTotal += sanitize(history[len(history)-2].Value)
			latestTotal += sanitize(history[len(history)-1].Value)
			counted++
		case len(history) == 1:
			v := sanitize(history[0].Value)
			prevTotal += v
			latestTotal += v
			counted++
		}
	}
	if counted == 0 {
		prevTotal = stats.Total
		latestTotal = stats.Total
	}

	change := CampusChange(prevTotal, latestTotal)
	if category == models.CategoryFood {
		stats.Reduction = change
	} else {
		stats.Savings = change
	}
	if latestTotal <= prevTotal {
		stats.Trend = "down"
	} else {
		stats.Trend = "up"
	}
	return stats
}

func utilization(usage float64, capacity float64) int {
	if capacity <= 0 {
		return 0
	}
	return int(math.Round(usage / capacity * 100))
}
