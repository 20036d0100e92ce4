package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus-resource-monitor/api/internal/core"
	"campus-resource-monitor/api/internal/models"
	"campus-resource-monitor/shared/logx"
)

type fakeSource struct {
	latest    map[string]models.Reading
	histories map[string][]models.Reading
	latestErr error
	recentErr error
}

func (f *fakeSource) LatestSnapshot(ctx context.Context, category models.Category) (map[string]models.Reading, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	return f.latest, nil
}

func (f *fakeSource) RecentReadings(ctx context.Context, category models.Category, building string, limit int) ([]models.Reading, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.histories[building], nil
}

func testLogger() logx.Logger {
	return logx.New("evaluator-test", "test", "", "error")
}

func TestEvaluateCategoryEmitsCritical(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	source := &fakeSource{
		latest: map[string]models.Reading{
			"Hostel-A": {Building: "Hostel-A", Timestamp: now.UnixMilli(), Value: 195},
		},
		histories: map[string][]models.Reading{
			"Hostel-A": {
				{Building: "Hostel-A", Timestamp: now.Add(-10 * time.Minute).UnixMilli(), Value: 180},
				{Building: "Hostel-A", Timestamp: now.UnixMilli(), Value: 195},
			},
		},
	}
	lifecycle := core.NewManager(3)
	ev := New(source, core.DeltaStrategy{}, lifecycle, core.AlwaysDecide(false), testLogger())

	var observed []models.Alert
	ev.SetOnEmitted(func(ctx context.Context, alerts []models.Alert) {
		observed = append(observed, alerts...)
	})

	alerts, err := ev.EvaluateCategory(context.Background(), models.CategoryElectricity, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	// 195/200 = 98% and rising 8%: critical.
	if alerts[0].Type != models.SeverityCritical || alerts[0].Building != "Hostel-A" {
		t.Fatalf("expected Hostel-A critical, got %+v", alerts[0])
	}
	if len(lifecycle.Visible()) != 1 {
		t.Fatalf("expected alert visible in lifecycle manager")
	}
	if len(observed) != 1 {
		t.Fatalf("expected emitted observer to fire, got %d", len(observed))
	}
}

func TestEvaluateCategoryQuietCycle(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	source := &fakeSource{
		latest: map[string]models.Reading{
			"Hostel-A": {Building: "Hostel-A", Value: 100},
			"Library":  {Building: "Library", Value: 80},
		},
		histories: map[string][]models.Reading{
			"Hostel-A": {
				{Building: "Hostel-A", Value: 101},
				{Building: "Hostel-A", Value: 100},
			},
			"Library": {
				{Building: "Library", Value: 80},
				{Building: "Library", Value: 80},
			},
		},
	}
	ev := New(source, core.DeltaStrategy{}, core.NewManager(3), core.AlwaysDecide(false), testLogger())
	alerts, err := ev.EvaluateCategory(context.Background(), models.CategoryElectricity, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected quiet cycle, got %+v", alerts)
	}
}

func TestEvaluateCategorySkipsOnSnapshotFailure(t *testing.T) {
	source := &fakeSource{latestErr: errors.New("store down")}
	lifecycle := core.NewManager(3)
	ev := New(source, core.DeltaStrategy{}, lifecycle, core.AlwaysDecide(false), testLogger())

	_, err := ev.EvaluateCategory(context.Background(), models.CategoryElectricity, time.Now())
	if err == nil {
		t.Fatalf("expected error to surface for skip accounting")
	}
	if len(lifecycle.All()) != 0 {
		t.Fatalf("skipped cycle must not touch alert state")
	}
}

func TestEvaluateCategorySkipsOnHistoryFailure(t *testing.T) {
	source := &fakeSource{
		latest:    map[string]models.Reading{"Hostel-A": {Building: "Hostel-A", Value: 195}},
		recentErr: errors.New("store down"),
	}
	ev := New(source, core.DeltaStrategy{}, core.NewManager(3), core.AlwaysDecide(false), testLogger())
	if _, err := ev.EvaluateCategory(context.Background(), models.CategoryElectricity, time.Now()); err == nil {
		t.Fatalf("expected history failure to skip the cycle")
	}
}

func TestBucketedSeries(t *testing.T) {
	source := &fakeSource{
		histories: map[string][]models.Reading{
			"Labs": {
				{Building: "Labs", Timestamp: 0, Value: 10},
				{Building: "Labs", Timestamp: 60000, Value: 20},
			},
		},
	}
	ev := New(source, core.DeltaStrategy{}, core.NewManager(3), core.AlwaysDecide(false), testLogger())
	points, err := ev.BucketedSeries(context.Background(), models.CategoryElectricity, "Labs", 50, 300000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 1 || points[0].Value != 15 {
		t.Fatalf("expected single averaged bucket, got %+v", points)
	}
}
