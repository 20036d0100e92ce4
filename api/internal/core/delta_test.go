package core

import (
	"testing"

	"campus-resource-monitor/api/internal/models"
)

func TestImmediateDeltaSignConvention(t *testing.T) {
	history := []models.Reading{
		{Building: "Labs", Timestamp: 0, Value: 100},
		{Building: "Labs", Timestamp: 60000, Value: 80},
	}
	rec := ImmediateDelta("Labs", history, 180)
	if !rec.Valid {
		t.Fatalf("expected valid record")
	}
	if rec.PctChange != -20 {
		t.Fatalf("expected pct change -20, got %v", rec.PctChange)
	}
}

func TestImmediateDeltaZeroPrevGuard(t *testing.T) {
	history := []models.Reading{
		{Building: "Labs", Timestamp: 0, Value: 0},
		{Building: "Labs", Timestamp: 60000, Value: 50},
	}
	rec := ImmediateDelta("Labs", history, 180)
	if rec.PctChange != 0 {
		t.Fatalf("expected pct change 0 for zero previous, got %v", rec.PctChange)
	}
	if rec.Delta != 50 {
		t.Fatalf("expected delta 50, got %v", rec.Delta)
	}
}

func TestImmediateDeltaSingleReading(t *testing.T) {
	history := []models.Reading{{Building: "Labs", Timestamp: 0, Value: 90}}
	rec := ImmediateDelta("Labs", history, 180)
	if !rec.Valid {
		t.Fatalf("expected valid record for single reading")
	}
	if rec.Delta != 0 || rec.PctChange != 0 {
		t.Fatalf("expected zero delta, got %+v", rec)
	}
	if rec.PercentageLatest != 50 {
		t.Fatalf("expected 50%% utilization, got %d", rec.PercentageLatest)
	}
}

func TestImmediateDeltaEmptyHistory(t *testing.T) {
	rec := ImmediateDelta("Labs", nil, 180)
	if rec.Valid {
		t.Fatalf("expected invalid record for empty history")
	}
}

func TestBaselineTrendFallbackTiers(t *testing.T) {
	snapshots := []models.BuildingSnapshot{{Name: "Hostel-A", Percentage: 60}}
	savings, trend := BaselineTrend(models.CategoryWater, nil, snapshots, 0)
	if savings != 25 {
		t.Fatalf("expected tier savings 25 for 60%% utilization, got %d", savings)
	}
	if trend != "stable" {
		t.Fatalf("expected stable trend, got %q", trend)
	}

	snapshots[0].Percentage = 120
	if savings, _ := BaselineTrend(models.CategoryWater, nil, snapshots, 0); savings != 5 {
		t.Fatalf("expected tier savings 5 over target, got %d", savings)
	}
	if savings, _ := BaselineTrend(models.CategoryElectricity, nil, snapshots, 0); savings != 8 {
		t.Fatalf("expected electricity tier savings 8, got %d", savings)
	}
	if savings, _ := BaselineTrend(models.CategoryFood, nil, snapshots, 0); savings != 18 {
		t.Fatalf("expected food default savings 18, got %d", savings)
	}
}

func TestBaselineTrendClampsAndDirection(t *testing.T) {
	history := make([]models.Reading, 25)
	for i := range history {
		history[i] = models.Reading{Building: "Hostel-A", Timestamp: int64(i) * 60000, Value: 100}
	}
	snapshots := []models.BuildingSnapshot{{Name: "Hostel-A", Usage: 10}}

	savings, trend := BaselineTrend(models.CategoryWater, [][]models.Reading{history}, snapshots, 10)
	if savings != 30 {
		t.Fatalf("expected savings clamped to 30, got %d", savings)
	}
	if trend != "down" {
		t.Fatalf("expected improving trend, got %q", trend)
	}
}

func TestCampusChange(t *testing.T) {
	if got := CampusChange(0, 100); got != 0 {
		t.Fatalf("expected 0 for zero previous total, got %d", got)
	}
	if got := CampusChange(200, 150); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
	if got := CampusChange(100, 120); got != -20 {
		t.Fatalf("expected -20 for worsening, got %d", got)
	}
}
