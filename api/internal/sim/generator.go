package sim

import (
	"math"
	"math/rand"
	"strings"
	"time"

	"campus-resource-monitor/api/internal/core"
	"campus-resource-monitor/api/internal/models"
)

type stateKey struct {
	category models.Category
	building string
}

// Generator produces synthetic readings. State is explicit and owned by the
// generator instance: the last value per (category, building) drives the
// small-delta branch, and the random source is seedable so runs can be
// reproduced.
type Generator struct {
	rng              *rand.Rand
	smallDeltaChance float64
	last             map[stateKey]float64
}

func New(seed int64, smallDeltaChance float64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if smallDeltaChance < 0 || smallDeltaChance > 1 {
		smallDeltaChance = 0.5
	}
	return &Generator{
		rng:              rand.New(rand.NewSource(seed)),
		smallDeltaChance: smallDeltaChance,
		last:             map[stateKey]float64{},
	}
}

// Reading samples one value for a building. Most cycles nudge the previous
// value by a few percent; the rest resample around the building's base load
// shaped by time of day and weekday.
func (g *Generator) Reading(category models.Category, building string, now time.Time) models.Reading {
	key := stateKey{category: category, building: building}
	var value float64

	if prev, ok := g.last[key]; ok && g.rng.Float64() < g.smallDeltaChance {
		value = prev + (g.rng.Float64()-0.5)*prev*0.05
	} else {
		base := baseLoad(category, building) * shapeFactor(now)
		value = base + (g.rng.Float64()-0.5)*base*jitterFactor(category)
	}
	if value < 0 {
		value = 0
	}
	value = roundValue(category, value)
	g.last[key] = value

	reading := models.Reading{
		Building:  building,
		Timestamp: now.UnixMilli(),
		Value:     value,
		Unit:      core.Unit(category),
	}
	if category == models.CategoryFood && building == "Cafeteria" {
		reading.Meta = map[string]any{
			"mealsServed": int(math.Round(100 + g.rng.Float64()*200)),
		}
	}
	return reading
}

// Cycle samples every (category, building) pair once.
func (g *Generator) Cycle(now time.Time) map[models.Category][]models.Reading {
	out := make(map[models.Category][]models.Reading, len(core.Categories))
	for _, category := range core.Categories {
		buildings := core.Buildings(category)
		readings := make([]models.Reading, 0, len(buildings))
		for _, building := range buildings {
			readings = append(readings, g.Reading(category, building, now))
		}
		out[category] = readings
	}
	return out
}

func baseLoad(category models.Category, building string) float64 {
	switch category {
	case models.CategoryElectricity:
		switch {
		case strings.HasPrefix(building, "Hostel"):
			return 120
		case building == "Cafeteria":
			return 200
		default:
			return 80
		}
	case models.CategoryWater:
		switch {
		case strings.HasPrefix(building, "Hostel"):
			return 2500
		case building == "Cafeteria":
			return 4000
		default:
			return 600
		}
	default:
		switch {
		case building == "Cafeteria":
			return 10
		case strings.HasPrefix(building, "Hostel"):
			return 2
		default:
			return 0.5
		}
	}
}

func jitterFactor(category models.Category) float64 {
	switch category {
	case models.CategoryWater:
		return 0.25
	case models.CategoryFood:
		return 0.8
	default:
		return 0.3
	}
}

// shapeFactor boosts lunch and dinner hours and damps weekends.
func shapeFactor(now time.Time) float64 {
	factor := 1.0
	hour := now.Hour()
	if (hour >= 12 && hour < 14) || (hour >= 18 && hour < 20) {
		factor *= 1.25
	}
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		factor *= 0.8
	}
	return factor
}

func roundValue(category models.Category, v float64) float64 {
	if category == models.CategoryWater {
		return math.Round(v)
	}
	return math.Round(v*100) / 100
}
