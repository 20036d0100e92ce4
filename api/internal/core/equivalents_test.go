package core

import (
	"testing"

	"campus-resource-monitor/api/internal/models"
)

func TestACEquivalent(t *testing.T) {
	if got := ACEquivalent(3); got != 2 {
		t.Fatalf("expected 3 kWh to equal 2 AC-hours, got %v", got)
	}
	if got := ACEquivalent(1); got != 0.7 {
		t.Fatalf("expected one-decimal rounding to 0.7, got %v", got)
	}
}

func TestWaterEquivalents(t *testing.T) {
	if got := ShowerEquivalent(150); got != 2 {
		t.Fatalf("expected 2 showers from 150 L, got %d", got)
	}
	if got := BucketEquivalent(95); got != 10 {
		t.Fatalf("expected 10 buckets from 95 L, got %d", got)
	}
	if got := BottleEquivalent(12.4); got != 12 {
		t.Fatalf("expected 12 bottles, got %d", got)
	}
}

func TestFoodEquivalents(t *testing.T) {
	if got := MealEquivalent(4); got != 10 {
		t.Fatalf("expected 10 meals from 4 kg, got %d", got)
	}
	if got := PeopleEquivalent(4); got != 8 {
		t.Fatalf("expected 8 people from 4 kg, got %d", got)
	}
}

func TestCalculateCost(t *testing.T) {
	res := CalculateCost(models.CategoryElectricity, 100)
	if res.Cost != 800 || res.Formatted != "₹800" {
		t.Fatalf("expected ₹800 for 100 kWh, got %+v", res)
	}
	if res := CalculateCost(models.Category("unknown"), 100); res.Cost != 0 {
		t.Fatalf("expected zero cost for unknown category, got %+v", res)
	}
}

func TestCalculateCO2Formatting(t *testing.T) {
	if res := CalculateCO2(models.CategoryWater, 100); res.Formatted != "30 g" {
		t.Fatalf("expected gram formatting below 1 kg, got %q", res.Formatted)
	}
	if res := CalculateCO2(models.CategoryElectricity, 100); res.Formatted != "82.0 kg" {
		t.Fatalf("expected kg formatting, got %q", res.Formatted)
	}
	if res := CalculateCO2(models.CategoryFood, 500); res.Formatted != "1.25 tonnes" {
		t.Fatalf("expected tonne formatting, got %q", res.Formatted)
	}
}

func TestCalculateSavings(t *testing.T) {
	res := CalculateSavings(models.CategoryElectricity, 900, 10)
	if res.SavedValue != 100 {
		t.Fatalf("expected saved value 100, got %v", res.SavedValue)
	}
	if res.Formatted != "₹800" {
		t.Fatalf("expected ₹800 avoided, got %q", res.Formatted)
	}
	if res := CalculateSavings(models.CategoryElectricity, 900, 0); res.Amount != 0 {
		t.Fatalf("expected zero savings for zero percent, got %+v", res)
	}
}
