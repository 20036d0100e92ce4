package engine

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"campus-resource-monitor/api/internal/core"
	"campus-resource-monitor/api/internal/models"
	"campus-resource-monitor/shared/logx"
	"campus-resource-monitor/shared/metricsx"
)

// historyLimit bounds how many readings one cycle pulls per building.
const historyLimit = 30

// Source is the reading store the evaluator pulls from.
type Source interface {
	LatestSnapshot(ctx context.Context, category models.Category) (map[string]models.Reading, error)
	RecentReadings(ctx context.Context, category models.Category, building string, limit int) ([]models.Reading, error)
}

// Evaluator runs one classification cycle per category: snapshot, deltas,
// campus stats, strategy, lifecycle. A collaborator failure skips the cycle
// for that category and keeps previous alert state; it never propagates a
// panic or crashes the caller.
type Evaluator struct {
	source    Source
	strategy  core.Strategy
	lifecycle *core.Manager
	decide    core.DecisionFunc
	log       logx.Logger

	// onEmitted observes freshly emitted alerts, for persistence and
	// broadcast. Errors there are the observer's problem.
	onEmitted func(ctx context.Context, alerts []models.Alert)
}

func New(source Source, strategy core.Strategy, lifecycle *core.Manager, decide core.DecisionFunc, log logx.Logger) *Evaluator {
	if strategy == nil {
		strategy = core.DeltaStrategy{}
	}
	return &Evaluator{
		source:    source,
		strategy:  strategy,
		lifecycle: lifecycle,
		decide:    decide,
		log:       log,
	}
}

func (e *Evaluator) SetOnEmitted(fn func(ctx context.Context, alerts []models.Alert)) {
	e.onEmitted = fn
}

// EvaluateCategory runs a full cycle for one category at the given instant.
func (e *Evaluator) EvaluateCategory(ctx context.Context, category models.Category, now time.Time) ([]models.Alert, error) {
	start := time.Now()

	latest, err := e.source.LatestSnapshot(ctx, category)
	if err != nil {
		metricsx.IncEvaluationCycle(string(category), "skipped")
		e.log.Warn(ctx, "evaluate_skipped", "latest snapshot fetch failed",
			slog.String("category", string(category)), slog.Any("error", err))
		return nil, err
	}

	usage := make(map[string]float64, len(latest))
	for building, reading := range latest {
		usage[building] = reading.Value
	}
	snapshots := core.NormalizeSnapshot(category, usage)

	histories := make(map[string][]models.Reading, len(snapshots))
	for _, snap := range snapshots {
		history, err := e.source.RecentReadings(ctx, category, snap.Name, historyLimit)
		if err != nil {
			metricsx.IncEvaluationCycle(string(category), "skipped")
			e.log.Warn(ctx, "evaluate_skipped", "history fetch failed",
				slog.String("category", string(category)),
				slog.String("building", snap.Name), slog.Any("error", err))
			return nil, err
		}
		histories[snap.Name] = history
	}

	deltas := make(map[string]models.DeltaRecord, len(snapshots))
	for _, snap := range snapshots {
		deltas[snap.Name] = core.ImmediateDelta(snap.Name, histories[snap.Name], snap.CapacityOrTarget)
	}

	stats := core.ComputeCampusStats(category, snapshots, histories)
	ectx := core.NewEvaluationContext(category, now, snapshots, deltas, stats, e.decide)
	alerts := e.strategy.Evaluate(ectx)

	if e.lifecycle != nil && len(alerts) > 0 {
		e.lifecycle.Add(now, alerts...)
		metricsx.SetAlertsVisible(len(e.lifecycle.Visible()))
	}
	for _, a := range alerts {
		metricsx.IncAlertEmitted(string(category), string(a.Type))
	}
	if e.onEmitted != nil && len(alerts) > 0 {
		e.onEmitted(ctx, alerts)
	}

	metricsx.IncEvaluationCycle(string(category), "ok")
	metricsx.ObserveEvaluationLatency(time.Since(start))
	e.log.Info(ctx, "evaluate_done", "evaluation cycle complete",
		slog.String("category", string(category)),
		slog.Int("alerts", len(alerts)),
		slog.Int("savings", stats.Savings),
		slog.Int("reduction", stats.Reduction))
	return alerts, nil
}

// EvaluateAll runs every category concurrently. Categories share no mutable
// state except the lifecycle manager, which serializes internally.
func (e *Evaluator) EvaluateAll(ctx context.Context, now time.Time) {
	var wg sync.WaitGroup
	for _, category := range core.Categories {
		wg.Add(1)
		go func(category models.Category) {
			defer wg.Done()
			_, _ = e.EvaluateCategory(ctx, category, now)
		}(category)
	}
	wg.Wait()
}

// BucketedSeries fetches a building's recent readings and aggregates them
// for charting.
func (e *Evaluator) BucketedSeries(ctx context.Context, category models.Category, building string, limit int, bucketMS int64) ([]models.BucketedPoint, error) {
	readings, err := e.source.RecentReadings(ctx, category, building, limit)
	if err != nil {
		return nil, err
	}
	return core.Bucketize(readings, bucketMS, category), nil
}
