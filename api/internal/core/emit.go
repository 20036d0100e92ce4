package core

import (
	"fmt"
	"math/rand"
	"time"

	"campus-resource-monitor/api/internal/models"
)

// DecisionFunc gates probabilistic emissions. Injected so tests can force
// either branch deterministically.
type DecisionFunc func() bool

// SeededDecision returns a DecisionFunc that fires with the given chance,
// driven by a seeded source.
func SeededDecision(seed int64, chance float64) DecisionFunc {
	rng := rand.New(rand.NewSource(seed))
	return func() bool {
		return rng.Float64() < chance
	}
}

// AlwaysDecide returns a constant DecisionFunc.
func AlwaysDecide(v bool) DecisionFunc {
	return func() bool { return v }
}

// EvaluationContext carries the inputs and per-cycle state of one category
// evaluation: the normalized snapshots, per-building deltas, campus stats
// and the already-alerted set that enforces one alert per building.
type EvaluationContext struct {
	Category  models.Category
	Now       time.Time
	Snapshots []models.BuildingSnapshot
	Deltas    map[string]models.DeltaRecord
	Stats     models.CampusStats

	decide  DecisionFunc
	alerted map[string]bool
}

func NewEvaluationContext(category models.Category, now time.Time, snapshots []models.BuildingSnapshot, deltas map[string]models.DeltaRecord, stats models.CampusStats, decide DecisionFunc) *EvaluationContext {
	if deltas == nil {
		deltas = map[string]models.DeltaRecord{}
	}
	if decide == nil {
		decide = SeededDecision(now.UnixNano(), 0.2)
	}
	return &EvaluationContext{
		Category:  category,
		Now:       now,
		Snapshots: snapshots,
		Deltas:    deltas,
		Stats:     stats,
		decide:    decide,
		alerted:   map[string]bool{},
	}
}

// Alerted reports whether a building already produced an alert this cycle.
func (c *EvaluationContext) Alerted(building string) bool {
	return c.alerted[building]
}

func (c *EvaluationContext) MarkAlerted(building string) {
	c.alerted[building] = true
}

func (c *EvaluationContext) Decide() bool {
	return c.decide()
}

// newAlert stamps the id, category tag and per-severity dismissal defaults.
// Critical alerts require an explicit dismiss; the rest expire on their own.
func (c *EvaluationContext) newAlert(severity models.Severity, building string) *models.Alert {
	a := &models.Alert{
		ID:            fmt.Sprintf("%s-%s-%s-%d", severity, c.Category, building, c.Now.UnixMilli()),
		Type:          severity,
		Building:      building,
		Category:      c.Category,
		CategoryColor: CategoryColor(c.Category),
		EmittedAt:     c.Now.UnixMilli(),
	}
	switch severity {
	case models.SeverityCritical:
		a.AutoDismiss = false
		a.Unit = Unit(c.Category)
	case models.SeveritySuccess:
		a.AutoDismiss = true
		a.Duration = 10
	default:
		a.AutoDismiss = true
		a.Duration = 12
	}
	return a
}
