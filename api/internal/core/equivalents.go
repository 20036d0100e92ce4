package core

import (
	"fmt"
	"math"

	"campus-resource-monitor/api/internal/models"
)

// Conversion constants used only for message enrichment, never for
// classification.
const (
	KwhPerACHour    = 1.5
	CostPerKwh      = 8.0
	CO2PerKwh       = 0.82
	LitersPerBottle = 1.0
	LitersPerShower = 75.0
	LitersPerBucket = 10.0
	CostPerLiter    = 0.05
	KgPerMeal       = 0.4
	KgPerPerson     = 0.5
	CostPerKg       = 150.0
)

type costRates struct {
	pricePerUnit float64
	co2PerUnit   float64
}

var costConfig = map[models.Category]costRates{
	models.CategoryElectricity: {pricePerUnit: CostPerKwh, co2PerUnit: CO2PerKwh},
	models.CategoryWater:       {pricePerUnit: CostPerLiter, co2PerUnit: 0.0003},
	models.CategoryFood:        {pricePerUnit: CostPerKg, co2PerUnit: 2.5},
}

type CostResult struct {
	Cost      float64 `json:"cost"`
	Formatted string  `json:"formatted"`
}

type CO2Result struct {
	CO2Kg     float64 `json:"co2_kg"`
	Formatted string  `json:"formatted"`
}

func CalculateCost(category models.Category, value float64) CostResult {
	rates, ok := costConfig[category]
	if !ok {
		return CostResult{Formatted: "₹0"}
	}
	cost := value * rates.pricePerUnit
	return CostResult{Cost: cost, Formatted: fmt.Sprintf("₹%d", int(math.Round(cost)))}
}

func CalculateCO2(category models.Category, value float64) CO2Result {
	rates, ok := costConfig[category]
	if !ok {
		return CO2Result{Formatted: "0 kg"}
	}
	co2 := value * rates.co2PerUnit
	var formatted string
	switch {
	case co2 < 1:
		formatted = fmt.Sprintf("%.0f g", co2*1000)
	case co2 < 1000:
		formatted = fmt.Sprintf("%.1f kg", co2)
	default:
		formatted = fmt.Sprintf("%.2f tonnes", co2/1000)
	}
	return CO2Result{CO2Kg: co2, Formatted: formatted}
}

// ACEquivalent converts extra kWh into running air conditioners, rounded to
// one decimal.
func ACEquivalent(kwh float64) float64 {
	return math.Round(kwh/KwhPerACHour*10) / 10
}

func BottleEquivalent(liters float64) int {
	return int(math.Round(liters / LitersPerBottle))
}

func ShowerEquivalent(liters float64) int {
	return int(math.Round(liters / LitersPerShower))
}

func BucketEquivalent(liters float64) int {
	return int(math.Round(liters / LitersPerBucket))
}

func MealEquivalent(kg float64) int {
	return int(math.Round(kg / KgPerMeal))
}

func PeopleEquivalent(kg float64) int {
	return int(math.Round(kg / KgPerPerson))
}

// SavingsResult expresses a savings percentage as avoided cost and CO2.
type SavingsResult struct {
	Amount     float64 `json:"amount"`
	Formatted  string  `json:"formatted"`
	CO2Avoided string  `json:"co2_avoided"`
	SavedValue float64 `json:"saved_value"`
}

// CalculateSavings derives what was avoided given the current value and a
// savings percentage: saved = current * p / (100 - p).
func CalculateSavings(category models.Category, currentValue float64, savingsPercent int) SavingsResult {
	if savingsPercent <= 0 || savingsPercent >= 100 {
		return SavingsResult{Formatted: "₹0", CO2Avoided: "0 kg"}
	}
	savedValue := currentValue * float64(savingsPercent) / float64(100-savingsPercent)
	cost := CalculateCost(category, savedValue)
	co2 := CalculateCO2(category, savedValue)
	return SavingsResult{
		Amount:     cost.Cost,
		Formatted:  cost.Formatted,
		CO2Avoided: co2.Formatted,
		SavedValue: savedValue,
	}
}
