package core

import (
	"math"
	"sort"
	"time"

	"campus-resource-monitor/api/internal/models"
)

// DefaultBucketMS is the default aggregation window width.
const DefaultBucketMS = 5 * 60 * 1000

// Bucketize groups readings into fixed-width time windows and averages each
// window. Output is ordered ascending by bucket start. Empty input yields
// empty output; NaN or infinite values are coerced to 0 rather than dropped.
func Bucketize(readings []models.Reading, bucketMS int64, category models.Category) []models.BucketedPoint {
	if bucketMS <= 0 {
		bucketMS = DefaultBucketMS
	}
	if len(readings) == 0 {
		return []models.BucketedPoint{}
	}

	type acc struct {
		sum   float64
		count int
	}
	buckets := make(map[int64]*acc)
	for _, r := range readings {
		v := r.Value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		start := floorDiv(r.Timestamp, bucketMS) * bucketMS
		b := buckets[start]
		if b == nil {
			b = &acc{}
			buckets[start] = b
		}
		b.sum += v
		b.count++
	}

	starts := make([]int64, 0, len(buckets))
	for start := range buckets {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	out := make([]models.BucketedPoint, 0, len(starts))
	for _, start := range starts {
		b := buckets[start]
		avg := b.sum / float64(b.count)
		out = append(out, models.BucketedPoint{
			Time:      formatBucketTime(start),
			Value:     roundForCategory(avg, category),
			RawValue:  avg,
			Timestamp: start,
		})
	}
	return out
}

func floorDiv(a int64, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func formatBucketTime(ms int64) string {
	return time.UnixMilli(ms).Format("15:04")
}

// roundForCategory applies display precision: integer liters for water,
// two decimals for kWh and kg.
func roundForCategory(v float64, category models.Category) float64 {
	if category == models.CategoryWater {
		return math.Round(v)
	}
	return roundTo(v, 2)
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
