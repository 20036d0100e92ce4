package core

import (
	"testing"

	"campus-resource-monitor/api/internal/models"
)

func TestNormalizeSnapshotElectricity(t *testing.T) {
	usage := map[string]float64{"Hostel-A": 160, "Library": 90}
	snaps := NormalizeSnapshot(models.CategoryElectricity, usage)
	if len(snaps) != 4 {
		t.Fatalf("expected all 4 buildings, got %d", len(snaps))
	}
	byName := map[string]models.BuildingSnapshot{}
	for _, s := range snaps {
		byName[s.Name] = s
	}
	if byName["Hostel-A"].Percentage != 80 || byName["Hostel-A"].Status != models.StatusWarning {
		t.Fatalf("expected 80%% warning, got %+v", byName["Hostel-A"])
	}
	if byName["Library"].Percentage != 60 || byName["Library"].Status != models.StatusNormal {
		t.Fatalf("expected 60%% normal, got %+v", byName["Library"])
	}
	if byName["Cafeteria"].Usage != 0 {
		t.Fatalf("missing building must report zero usage, got %v", byName["Cafeteria"].Usage)
	}
}

func TestNormalizeSnapshotWaterStatuses(t *testing.T) {
	usage := map[string]float64{"Hostel-A": 2500, "Library": 600, "Cafeteria": 3500}
	snaps := NormalizeSnapshot(models.CategoryWater, usage)
	byName := map[string]models.BuildingSnapshot{}
	for _, s := range snaps {
		byName[s.Name] = s
	}
	if byName["Hostel-A"].Status != models.StatusWarning {
		t.Fatalf("expected warning above 110%%, got %s", byName["Hostel-A"].Status)
	}
	if byName["Library"].Status != models.StatusGood {
		t.Fatalf("expected good below 85%%, got %s", byName["Library"].Status)
	}
	if byName["Cafeteria"].Status != models.StatusNormal {
		t.Fatalf("expected normal in between, got %s", byName["Cafeteria"].Status)
	}
}

func TestNormalizeSnapshotFoodWastePerMeal(t *testing.T) {
	usage := map[string]float64{"Cafeteria": 36, "Hostel-A": 2}
	snaps := NormalizeSnapshot(models.CategoryFood, usage)
	byName := map[string]models.BuildingSnapshot{}
	for _, s := range snaps {
		byName[s.Name] = s
	}
	// 36kg over 450 meals = 0.08 kg/meal, above the 0.07 line.
	if byName["Cafeteria"].WastePerMeal != 0.08 || byName["Cafeteria"].Status != models.StatusWarning {
		t.Fatalf("expected cafeteria warning at 0.08 kg/meal, got %+v", byName["Cafeteria"])
	}
	if byName["Hostel-A"].Status != models.StatusGood {
		t.Fatalf("expected hostel good at 0.01 kg/meal, got %+v", byName["Hostel-A"])
	}
	if byName["Labs"].Meals != 50 {
		t.Fatalf("expected labs meal count from catalog, got %d", byName["Labs"].Meals)
	}
}

func TestComputeCampusStatsTotalsAndSavings(t *testing.T) {
	snaps := []models.BuildingSnapshot{
		{Name: "Hostel-A", Usage: 100},
		{Name: "Labs", Usage: 60},
	}
	histories := map[string][]models.Reading{
		"Hostel-A": {
			{Building: "Hostel-A", Timestamp: 0, Value: 120},
			{Building: "Hostel-A", Timestamp: 60000, Value: 100},
		},
		"Labs": {
			{Building: "Labs", Timestamp: 0, Value: 80},
			{Building: "Labs", Timestamp: 60000, Value: 60},
		},
	}
	stats := ComputeCampusStats(models.CategoryElectricity, snaps, histories)
	if stats.Total != 160 {
		t.Fatalf("expected total 160, got %v", stats.Total)
	}
	if stats.Peak != 100 || stats.PeakSource != "Hostel-A" {
		t.Fatalf("expected peak 100 from Hostel-A, got %v from %s", stats.Peak, stats.PeakSource)
	}
	// prev total 200, latest 160: 20% savings.
	if stats.Savings != 20 {
		t.Fatalf("expected 20%% savings, got %d", stats.Savings)
	}
	if stats.Trend != "down" {
		t.Fatalf("expected down trend, got %q", stats.Trend)
	}
}

func TestComputeCampusStatsFoodReduction(t *testing.T) {
	snaps := []models.BuildingSnapshot{{Name: "Cafeteria", Usage: 8}}
	histories := map[string][]models.Reading{
		"Cafeteria": {
			{Building: "Cafeteria", Timestamp: 0, Value: 10},
			{Building: "Cafeteria", Timestamp: 60000, Value: 8},
		},
	}
	stats := ComputeCampusStats(models.CategoryFood, snaps, histories)
	if stats.Reduction != 20 {
		t.Fatalf("expected 20%% reduction, got %d", stats.Reduction)
	}
	if stats.Savings != 0 {
		t.Fatalf("food uses reduction, not savings, got %d", stats.Savings)
	}
}

func TestComputeCampusStatsNoHistory(t *testing.T) {
	snaps := []models.BuildingSnapshot{{Name: "Hostel-A", Usage: 100}}
	stats := ComputeCampusStats(models.CategoryElectricity, snaps, map[string][]models.Reading{})
	if stats.Savings != 0 {
		t.Fatalf("expected 0 savings without history, got %d", stats.Savings)
	}
}
