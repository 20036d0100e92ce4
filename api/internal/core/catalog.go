package core

import "campus-resource-monitor/api/internal/models"

// Static campus catalog: which buildings report which categories and the
// capacity or target each one is measured against.

var Categories = []models.Category{
	models.CategoryElectricity,
	models.CategoryWater,
	models.CategoryFood,
}

var electricityCapacities = map[string]float64{
	"Hostel-A":  200,
	"Library":   150,
	"Cafeteria": 250,
	"Labs":      180,
}

var waterTargets = map[string]float64{
	"Hostel-A":  2200,
	"Library":   800,
	"Cafeteria": 3800,
	"Labs":      900,
}

var foodMeals = map[string]int{
	"Cafeteria": 450,
	"Hostel-A":  200,
	"Labs":      50,
}

var categoryUnits = map[models.Category]string{
	models.CategoryElectricity: "kWh",
	models.CategoryWater:       "L",
	models.CategoryFood:        "kg",
}

var categoryNames = map[models.Category]string{
	models.CategoryElectricity: "Electricity",
	models.CategoryWater:       "Water",
	models.CategoryFood:        "Food Waste",
}

var categoryColors = map[models.Category]string{
	models.CategoryElectricity: "#f59e0b",
	models.CategoryWater:       "#3b82f6",
	models.CategoryFood:        "#10b981",
}

// Buildings returns the reporting buildings for a category in display order.
func Buildings(category models.Category) []string {
	if category == models.CategoryFood {
		return []string{"Cafeteria", "Hostel-A", "Labs"}
	}
	return []string{"Hostel-A", "Library", "Cafeteria", "Labs"}
}

// CapacityOrTarget returns the utilization denominator for a building, or 0
// when the category has no fixed capacity (food).
func CapacityOrTarget(category models.Category, building string) float64 {
	switch category {
	case models.CategoryElectricity:
		return electricityCapacities[building]
	case models.CategoryWater:
		return waterTargets[building]
	default:
		return 0
	}
}

// MealsServed returns the daily meal count for a food building, 0 otherwise.
func MealsServed(building string) int {
	return foodMeals[building]
}

func Unit(category models.Category) string {
	if u, ok := categoryUnits[category]; ok {
		return u
	}
	return categoryUnits[models.CategoryElectricity]
}

func CategoryName(category models.Category) string {
	if n, ok := categoryNames[category]; ok {
		return n
	}
	return categoryNames[models.CategoryElectricity]
}

func CategoryColor(category models.Category) string {
	return categoryColors[category]
}

// ValidCategory reports whether the string names a known category.
func ValidCategory(s string) (models.Category, bool) {
	switch models.Category(s) {
	case models.CategoryElectricity, models.CategoryWater, models.CategoryFood:
		return models.Category(s), true
	default:
		return "", false
	}
}
