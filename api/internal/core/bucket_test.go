package core

import (
	"math"
	"testing"

	"campus-resource-monitor/api/internal/models"
)

func TestBucketizeAveragesWindow(t *testing.T) {
	readings := []models.Reading{
		{Building: "Labs", Timestamp: 0, Value: 10},
		{Building: "Labs", Timestamp: 60000, Value: 20},
	}
	out := Bucketize(readings, 300000, models.CategoryElectricity)
	if len(out) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(out))
	}
	if out[0].Value != 15 {
		t.Fatalf("expected average 15, got %v", out[0].Value)
	}
	if out[0].Timestamp != 0 {
		t.Fatalf("expected bucket start 0, got %d", out[0].Timestamp)
	}
}

func TestBucketizeIdempotent(t *testing.T) {
	readings := []models.Reading{
		{Building: "Labs", Timestamp: 0, Value: 10},
		{Building: "Labs", Timestamp: 300000, Value: 20},
		{Building: "Labs", Timestamp: 600000, Value: 30},
	}
	first := Bucketize(readings, 300000, models.CategoryElectricity)

	again := make([]models.Reading, 0, len(first))
	for _, p := range first {
		again = append(again, models.Reading{Building: "Labs", Timestamp: p.Timestamp, Value: p.RawValue})
	}
	second := Bucketize(again, 300000, models.CategoryElectricity)

	if len(first) != len(second) {
		t.Fatalf("expected %d buckets, got %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Timestamp != second[i].Timestamp || first[i].Value != second[i].Value {
			t.Fatalf("bucket %d changed: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestBucketizeEmptyInput(t *testing.T) {
	out := Bucketize(nil, 300000, models.CategoryWater)
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d buckets", len(out))
	}
}

func TestBucketizeSortsUnorderedInput(t *testing.T) {
	readings := []models.Reading{
		{Building: "Labs", Timestamp: 600000, Value: 30},
		{Building: "Labs", Timestamp: 0, Value: 10},
		{Building: "Labs", Timestamp: 300000, Value: 20},
	}
	out := Bucketize(readings, 300000, models.CategoryElectricity)
	if len(out) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Timestamp <= out[i-1].Timestamp {
			t.Fatalf("buckets not ascending: %d then %d", out[i-1].Timestamp, out[i].Timestamp)
		}
	}
}

func TestBucketizeCoercesNaN(t *testing.T) {
	readings := []models.Reading{
		{Building: "Labs", Timestamp: 0, Value: math.NaN()},
		{Building: "Labs", Timestamp: 60000, Value: 10},
	}
	out := Bucketize(readings, 300000, models.CategoryElectricity)
	if len(out) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(out))
	}
	if out[0].Value != 5 {
		t.Fatalf("expected NaN coerced to 0 giving average 5, got %v", out[0].Value)
	}
}

func TestBucketizeWaterRoundsToInteger(t *testing.T) {
	readings := []models.Reading{
		{Building: "Hostel-A", Timestamp: 0, Value: 100.4},
		{Building: "Hostel-A", Timestamp: 1000, Value: 101.3},
	}
	out := Bucketize(readings, 300000, models.CategoryWater)
	if out[0].Value != 101 {
		t.Fatalf("expected liters rounded to 101, got %v", out[0].Value)
	}
}
