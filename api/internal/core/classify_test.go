package core

import (
	"strings"
	"testing"
	"time"

	"campus-resource-monitor/api/internal/models"
)

var cycleTime = time.UnixMilli(1700000000000)

func evalOne(t *testing.T, category models.Category, snapshots []models.BuildingSnapshot, deltas map[string]models.DeltaRecord, stats models.CampusStats) []models.Alert {
	t.Helper()
	ectx := NewEvaluationContext(category, cycleTime, snapshots, deltas, stats, AlwaysDecide(false))
	return DeltaStrategy{}.Evaluate(ectx)
}

func TestElectricityCriticalWhenHighAndRising(t *testing.T) {
	snapshots := []models.BuildingSnapshot{{Name: "Hostel-A", Percentage: 96}}
	deltas := map[string]models.DeltaRecord{
		"Hostel-A": {Building: "Hostel-A", Prev: 100, Latest: 106, Delta: 6, PctChange: 6, Valid: true},
	}
	alerts := evalOne(t, models.CategoryElectricity, snapshots, deltas, models.CampusStats{})
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Type != models.SeverityCritical {
		t.Fatalf("expected critical, got %s", alerts[0].Type)
	}
	if alerts[0].AutoDismiss {
		t.Fatalf("critical alerts must not auto-dismiss")
	}
	if alerts[0].Action == nil {
		t.Fatalf("critical alerts must carry an action")
	}
}

func TestElectricityHighButFallingNeverCritical(t *testing.T) {
	snapshots := []models.BuildingSnapshot{{Name: "Hostel-A", Percentage: 96}}
	deltas := map[string]models.DeltaRecord{
		"Hostel-A": {Building: "Hostel-A", Prev: 100, Latest: 80, Delta: -20, PctChange: -20, Valid: true},
	}
	alerts := evalOne(t, models.CategoryElectricity, snapshots, deltas, models.CampusStats{})
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Type == models.SeverityCritical {
		t.Fatalf("high-but-falling reading must never classify critical")
	}
	if alerts[0].Type != models.SeverityWarning {
		t.Fatalf("expected warning by utilization, got %s", alerts[0].Type)
	}
}

func TestWaterWarningByUtilizationAlone(t *testing.T) {
	snapshots := []models.BuildingSnapshot{{Name: "Cafeteria", Percentage: 106}}
	deltas := map[string]models.DeltaRecord{
		"Cafeteria": {Building: "Cafeteria", Prev: 4000, Latest: 4000, Valid: true},
	}
	alerts := evalOne(t, models.CategoryWater, snapshots, deltas, models.CampusStats{})
	if len(alerts) != 1 || alerts[0].Type != models.SeverityWarning {
		t.Fatalf("expected single warning, got %+v", alerts)
	}
	if alerts[0].Duration != 12 {
		t.Fatalf("expected 12s duration, got %d", alerts[0].Duration)
	}
}

func TestFoodCafeteriaOnlyRules(t *testing.T) {
	snapshots := []models.BuildingSnapshot{
		{Name: "Cafeteria", Usage: 41, Meals: 450},
		{Name: "Library", Usage: 50},
	}
	deltas := map[string]models.DeltaRecord{
		"Cafeteria": {Building: "Cafeteria", Prev: 30, Latest: 41, Delta: 11, PctChange: 36.7, Valid: true},
		"Library":   {Building: "Library", Prev: 50, Latest: 50, Valid: true},
	}
	alerts := evalOne(t, models.CategoryFood, snapshots, deltas, models.CampusStats{})
	if len(alerts) != 1 {
		t.Fatalf("expected only the cafeteria alert, got %d", len(alerts))
	}
	if alerts[0].Building != "Cafeteria" || alerts[0].Type != models.SeverityCritical {
		t.Fatalf("expected cafeteria critical, got %+v", alerts[0])
	}
}

func TestPerBuildingDedup(t *testing.T) {
	// Meets warning both by utilization and by spike; must emit exactly one.
	snapshots := []models.BuildingSnapshot{{Name: "Labs", Percentage: 88}}
	deltas := map[string]models.DeltaRecord{
		"Labs": {Building: "Labs", Prev: 100, Latest: 130, Delta: 30, PctChange: 30, Valid: true},
	}
	alerts := evalOne(t, models.CategoryElectricity, snapshots, deltas, models.CampusStats{})
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
}

func TestUtilizationOnlyFallbackWithoutHistory(t *testing.T) {
	snapshots := []models.BuildingSnapshot{{Name: "Hostel-A", Percentage: 96}}
	deltas := map[string]models.DeltaRecord{
		"Hostel-A": {Building: "Hostel-A", Valid: false},
	}
	alerts := evalOne(t, models.CategoryElectricity, snapshots, deltas, models.CampusStats{})
	if len(alerts) != 1 || alerts[0].Type != models.SeverityCritical {
		t.Fatalf("expected utilization-only critical, got %+v", alerts)
	}
}

func TestAchievementGate(t *testing.T) {
	// Invalid delta keeps the building itself out of the success branch so
	// only the campus milestone can fire.
	snapshots := []models.BuildingSnapshot{{Name: "Hostel-A", Percentage: 40}}
	deltas := map[string]models.DeltaRecord{
		"Hostel-A": {Building: "Hostel-A", Valid: false},
	}
	stats := models.CampusStats{Savings: 30}

	ectx := NewEvaluationContext(models.CategoryElectricity, cycleTime, snapshots, deltas, stats, AlwaysDecide(true))
	alerts := DeltaStrategy{}.Evaluate(ectx)
	if len(alerts) != 1 || alerts[0].Type != models.SeverityAchievement {
		t.Fatalf("expected achievement alert, got %+v", alerts)
	}
	if !strings.Contains(alerts[0].Message, "30%") {
		t.Fatalf("expected metric in message, got %q", alerts[0].Message)
	}

	ectx = NewEvaluationContext(models.CategoryElectricity, cycleTime, snapshots, deltas, stats, AlwaysDecide(false))
	if alerts := (DeltaStrategy{}).Evaluate(ectx); len(alerts) != 0 {
		t.Fatalf("expected no alerts when decision declines, got %d", len(alerts))
	}
}

func TestAchievementSuppressedByBuildingAlerts(t *testing.T) {
	snapshots := []models.BuildingSnapshot{
		{Name: "Hostel-A", Percentage: 96},
		{Name: "Labs", Percentage: 96},
	}
	deltas := map[string]models.DeltaRecord{
		"Hostel-A": {Building: "Hostel-A", Prev: 100, Latest: 110, Delta: 10, PctChange: 10, Valid: true},
		"Labs":     {Building: "Labs", Prev: 100, Latest: 110, Delta: 10, PctChange: 10, Valid: true},
	}
	ectx := NewEvaluationContext(models.CategoryElectricity, cycleTime, snapshots, deltas, models.CampusStats{Savings: 30}, AlwaysDecide(true))
	alerts := DeltaStrategy{}.Evaluate(ectx)
	for _, a := range alerts {
		if a.Type == models.SeverityAchievement {
			t.Fatalf("achievement must be suppressed when 2+ building alerts fired")
		}
	}
}

func TestUtilizationStrategyGradesHighestConsumer(t *testing.T) {
	snapshots := []models.BuildingSnapshot{
		{Name: "Hostel-A", Usage: 120, Percentage: 60},
		{Name: "Labs", Usage: 170, Percentage: 94},
	}
	ectx := NewEvaluationContext(models.CategoryElectricity, cycleTime, snapshots, nil, models.CampusStats{}, AlwaysDecide(false))
	alerts := UtilizationStrategy{}.Evaluate(ectx)
	if len(alerts) != 1 {
		t.Fatalf("expected single highest-consumer alert, got %d", len(alerts))
	}
	if alerts[0].Building != "Labs" || alerts[0].Type != models.SeverityCritical {
		t.Fatalf("expected Labs critical at 94%%, got %+v", alerts[0])
	}
}

func TestUtilizationStrategyFoodThresholds(t *testing.T) {
	snapshots := []models.BuildingSnapshot{
		{Name: "Cafeteria", Usage: 45, Meals: 450},
		{Name: "Hostel-A", Usage: 2, Meals: 200},
	}
	ectx := NewEvaluationContext(models.CategoryFood, cycleTime, snapshots, nil, models.CampusStats{}, AlwaysDecide(false))
	alerts := UtilizationStrategy{}.Evaluate(ectx)
	if len(alerts) != 1 || alerts[0].Type != models.SeverityCritical {
		t.Fatalf("expected critical at 45kg cafeteria waste, got %+v", alerts)
	}
}

func TestStrategyFromName(t *testing.T) {
	if _, ok := StrategyFromName("utilization").(UtilizationStrategy); !ok {
		t.Fatalf("expected utilization strategy")
	}
	if _, ok := StrategyFromName("delta").(DeltaStrategy); !ok {
		t.Fatalf("expected delta strategy")
	}
	if _, ok := StrategyFromName("").(DeltaStrategy); !ok {
		t.Fatalf("expected delta strategy as default")
	}
}

func TestAlertIDFormat(t *testing.T) {
	snapshots := []models.BuildingSnapshot{{Name: "Hostel-A", Percentage: 96}}
	deltas := map[string]models.DeltaRecord{
		"Hostel-A": {Building: "Hostel-A", Prev: 100, Latest: 106, Delta: 6, PctChange: 6, Valid: true},
	}
	alerts := evalOne(t, models.CategoryElectricity, snapshots, deltas, models.CampusStats{})
	want := "critical-electricity-Hostel-A-1700000000000"
	if alerts[0].ID != want {
		t.Fatalf("expected id %q, got %q", want, alerts[0].ID)
	}
}
