package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"campus-resource-monitor/api/internal/models"
)

// Category threshold tables. Rules are evaluated in strict precedence:
// critical, then warning, then success; first match wins per building.
type thresholds struct {
	criticalUtil float64
	warningUtil  float64
	spikePct     float64
	recoveryPct  float64
	risingPct    float64
}

var thresholdTable = map[models.Category]thresholds{
	models.CategoryElectricity: {criticalUtil: 95, warningUtil: 85, spikePct: 25, recoveryPct: -15, risingPct: 5},
	models.CategoryWater:       {criticalUtil: 120, warningUtil: 105, spikePct: 30, recoveryPct: -15, risingPct: 10},
	// Food thresholds are absolute kilograms, not utilization percentages,
	// and only the Cafeteria is held to them.
	models.CategoryFood: {criticalUtil: 40, warningUtil: 32, spikePct: 35, recoveryPct: -20, risingPct: 10},
}

// Strategy classifies one evaluation cycle into a list of alerts.
type Strategy interface {
	Evaluate(ectx *EvaluationContext) []models.Alert
}

// StrategyFromName maps a configured strategy name to an implementation,
// defaulting to the delta strategy.
func StrategyFromName(name string) Strategy {
	if strings.EqualFold(strings.TrimSpace(name), "utilization") {
		return UtilizationStrategy{}
	}
	return DeltaStrategy{}
}

// DeltaStrategy classifies each building from its utilization and its
// last-two-readings delta, then optionally appends one campus-wide
// achievement alert.
type DeltaStrategy struct{}

func (DeltaStrategy) Evaluate(ectx *EvaluationContext) []models.Alert {
	alerts := make([]models.Alert, 0, 4)
	th := thresholdTable[ectx.Category]

	for _, snap := range ectx.Snapshots {
		if ectx.Alerted(snap.Name) {
			continue
		}
		delta := ectx.Deltas[snap.Name]
		var alert *models.Alert
		switch ectx.Category {
		case models.CategoryElectricity:
			alert = classifyElectricity(ectx, snap, delta, th)
		case models.CategoryWater:
			alert = classifyWater(ectx, snap, delta, th)
		case models.CategoryFood:
			alert = classifyFood(ectx, snap, delta, th)
		}
		if alert != nil {
			ectx.MarkAlerted(snap.Name)
			alerts = append(alerts, *alert)
		}
	}

	if a := achievementAlert(ectx, len(alerts)); a != nil {
		alerts = append(alerts, *a)
	}
	return alerts
}

func classifyElectricity(ectx *EvaluationContext, snap models.BuildingSnapshot, delta models.DeltaRecord, th thresholds) *models.Alert {
	pct := float64(snap.Percentage)
	if !delta.Valid {
		// Utilization-only fallback when no history exists.
		if pct >= th.criticalUtil {
			return electricityCritical(ectx, snap.Name, delta)
		}
		if pct >= th.warningUtil {
			return electricityWarning(ectx, snap.Name, delta)
		}
		return nil
	}

	if pct >= th.criticalUtil && (delta.PctChange > th.risingPct || delta.Latest > delta.Prev) {
		return electricityCritical(ectx, snap.Name, delta)
	}
	if pct >= th.warningUtil || delta.PctChange >= th.spikePct {
		return electricityWarning(ectx, snap.Name, delta)
	}
	if delta.PctChange <= th.recoveryPct || ectx.Stats.Savings >= 10 {
		return electricitySuccess(ectx, snap.Name, delta)
	}
	return nil
}

func classifyWater(ectx *EvaluationContext, snap models.BuildingSnapshot, delta models.DeltaRecord, th thresholds) *models.Alert {
	pct := float64(snap.Percentage)
	if !delta.Valid {
		if pct >= th.criticalUtil {
			return waterCritical(ectx, snap.Name, delta)
		}
		if pct >= th.warningUtil {
			return waterWarning(ectx, snap.Name, delta)
		}
		return nil
	}

	if pct >= th.criticalUtil && (delta.PctChange > th.risingPct || delta.Latest > delta.Prev) {
		return waterCritical(ectx, snap.Name, delta)
	}
	if pct >= th.warningUtil || delta.PctChange >= th.spikePct {
		return waterWarning(ectx, snap.Name, delta)
	}
	if delta.PctChange <= th.recoveryPct || ectx.Stats.Savings >= 10 {
		return waterSuccess(ectx, snap.Name, delta)
	}
	return nil
}

func classifyFood(ectx *EvaluationContext, snap models.BuildingSnapshot, delta models.DeltaRecord, th thresholds) *models.Alert {
	waste := snap.Usage
	if waste == 0 && delta.Valid {
		waste = delta.Latest
	}
	isCafeteria := strings.EqualFold(snap.Name, "Cafeteria")

	if !delta.Valid {
		// Absolute-kg fallback: the critical rule needs a delta, the
		// warning rule does not.
		if isCafeteria && waste >= th.warningUtil {
			return foodWarning(ectx, snap.Name, waste, delta)
		}
		return nil
	}

	if isCafeteria && waste >= th.criticalUtil && delta.PctChange >= th.risingPct {
		return foodCritical(ectx, snap.Name, waste, delta)
	}
	if isCafeteria && (waste >= th.warningUtil || delta.PctChange >= th.spikePct) {
		return foodWarning(ectx, snap.Name, waste, delta)
	}
	if delta.PctChange <= th.recoveryPct || ectx.Stats.Reduction >= 10 {
		return foodSuccess(ectx, snap.Name, waste, delta)
	}
	return nil
}

func electricityCritical(ectx *EvaluationContext, building string, delta models.DeltaRecord) *models.Alert {
	extraUsage := math.Abs(delta.Delta)
	equivalent := ACEquivalent(extraUsage)
	using := "max power"
	if extraUsage > 0 {
		using = fmtNum(extraUsage, 1) + " kWh MORE"
	}
	a := ectx.newAlert(models.SeverityCritical, building)
	a.Title = "⚡ Power Overload Alert!"
	a.Message = fmt.Sprintf("%s consumed %s kWh (up from %s kWh). You're using %s! That's %s extra ACs running. Turn off non-essential equipment NOW!",
		building, fmtNum(delta.Latest, 1), fmtNum(delta.Prev, 1), using, fmtNum(equivalent, 1))
	a.Value = fmtNum(delta.Latest, 1)
	a.Action = &models.AlertAction{Label: "Check Systems"}
	return a
}

func electricityWarning(ectx *EvaluationContext, building string, delta models.DeltaRecord) *models.Alert {
	extraUsage := "0"
	extraCost := 0
	if delta.Delta > 0 {
		extraUsage = fmtNum(delta.Delta, 1)
		extraCost = int(math.Round(delta.Delta * CostPerKwh))
	}
	a := ectx.newAlert(models.SeverityWarning, building)
	a.Title = "🔋 High Power Consumption"
	a.Message = fmt.Sprintf("%s is consuming %s kWh (was %s kWh). That's %s kWh more than last cycle! Extra cost: ₹%d. Consider switching off lights & ACs in unused areas.",
		building, fmtNum(delta.Latest, 1), fmtNum(delta.Prev, 1), extraUsage, extraCost)
	return a
}

func electricitySuccess(ectx *EvaluationContext, building string, delta models.DeltaRecord) *models.Alert {
	savedKwh := math.Abs(delta.Delta)
	savedCost := int(math.Round(savedKwh * CostPerKwh))
	co2Saved := math.Round(savedKwh*CO2PerKwh*10) / 10
	a := ectx.newAlert(models.SeveritySuccess, building)
	a.Title = "🌟 Excellent Energy Savings!"
	a.Message = fmt.Sprintf("%s consumed only %s kWh (down from %s kWh)! You saved %s kWh, ₹%d, and %s kg CO₂. Amazing work! 🎉",
		building, fmtNum(delta.Latest, 1), fmtNum(delta.Prev, 1), fmtNum(savedKwh, 1), savedCost, fmtNum(co2Saved, 1))
	return a
}

func waterCritical(ectx *EvaluationContext, building string, delta models.DeltaRecord) *models.Alert {
	extraWater := math.Abs(delta.Delta)
	a := ectx.newAlert(models.SeverityCritical, building)
	a.Title = "💧 Water Usage Critical!"
	a.Message = fmt.Sprintf("%s consumed %s L (up from %s L). That's %s L MORE water! Equivalent to %d bottles or %d showers wasted! Check for leaks immediately!",
		building, fmtNum(delta.Latest, 0), fmtNum(delta.Prev, 0), fmtNum(extraWater, 0),
		BottleEquivalent(extraWater), ShowerEquivalent(extraWater))
	a.Value = fmtNum(delta.Latest, 0)
	a.Action = &models.AlertAction{Label: "Inspect Now"}
	return a
}

func waterWarning(ectx *EvaluationContext, building string, delta models.DeltaRecord) *models.Alert {
	extraWater := 0
	if delta.Delta > 0 {
		extraWater = int(math.Round(delta.Delta))
	}
	buckets := BucketEquivalent(float64(extraWater))
	extraCost := int(math.Round(float64(extraWater) * CostPerLiter))
	a := ectx.newAlert(models.SeverityWarning, building)
	a.Title = "💦 High Water Usage Detected"
	a.Message = fmt.Sprintf("%s used %s L (was %s L). That's %d L more—enough to fill %d buckets! Extra cost: ₹%d. Fix any dripping taps and use water wisely.",
		building, fmtNum(delta.Latest, 0), fmtNum(delta.Prev, 0), extraWater, buckets, extraCost)
	return a
}

func waterSuccess(ectx *EvaluationContext, building string, delta models.DeltaRecord) *models.Alert {
	savedWater := math.Abs(delta.Delta)
	savedCost := int(math.Round(savedWater * CostPerLiter))
	a := ectx.newAlert(models.SeveritySuccess, building)
	a.Title = "🌊 Amazing Water Conservation!"
	a.Message = fmt.Sprintf("%s used only %s L (down from %s L)! You saved %s L—that's %d water bottles! Saved ₹%d. Every drop counts! 💙",
		building, fmtNum(delta.Latest, 0), fmtNum(delta.Prev, 0), fmtNum(savedWater, 0),
		BottleEquivalent(savedWater), savedCost)
	return a
}

func foodCritical(ectx *EvaluationContext, building string, waste float64, delta models.DeltaRecord) *models.Alert {
	deltaWaste := waste - delta.Prev
	a := ectx.newAlert(models.SeverityCritical, building)
	a.Title = "🍽️ Excessive Food Waste!"
	a.Message = fmt.Sprintf("%s wasted %s kg today (up from %s kg). That's %s kg MORE! Could have fed %d people or saved %d meals. Money lost: ₹%d! Review portion sizes NOW!",
		building, fmtNum(waste, 1), fmtNum(delta.Prev, 1), fmtNum(deltaWaste, 1),
		PeopleEquivalent(waste), MealEquivalent(waste), int(math.Round(waste*CostPerKg)))
	a.Value = fmtNum(waste, 1)
	a.Action = &models.AlertAction{Label: "View Solutions"}
	return a
}

func foodWarning(ectx *EvaluationContext, building string, waste float64, delta models.DeltaRecord) *models.Alert {
	extraWaste := waste - delta.Prev
	if extraWaste < 0 || !delta.Valid {
		extraWaste = 0
	}
	overTarget := waste - thresholdTable[models.CategoryFood].warningUtil
	a := ectx.newAlert(models.SeverityWarning, building)
	a.Title = "🥗 Food Waste Rising"
	a.Message = fmt.Sprintf("%s wasted %s kg (was %s kg). That's %d meals wasted! You're %s kg over the target. Small portions = less waste. Let's do better!",
		building, fmtNum(waste, 1), fmtNum(delta.Prev, 1), MealEquivalent(extraWaste), fmtNum(overTarget, 1))
	return a
}

func foodSuccess(ectx *EvaluationContext, building string, waste float64, delta models.DeltaRecord) *models.Alert {
	wasteReduced := math.Abs(waste - delta.Prev)
	a := ectx.newAlert(models.SeveritySuccess, building)
	a.Title = "🌱 Outstanding Waste Reduction!"
	a.Message = fmt.Sprintf("%s wasted only %s kg (down from %s kg)! You reduced waste by %s kg, saved %d meals worth ₹%d! You're a sustainability hero! 🎉",
		building, fmtNum(waste, 1), fmtNum(delta.Prev, 1), fmtNum(wasteReduced, 1),
		MealEquivalent(wasteReduced), int(math.Round(wasteReduced*CostPerKg)))
	return a
}

// achievementAlert emits at most one campus-wide milestone per cycle, gated
// on a low per-building alert count, a high savings metric and the injected
// decision function.
func achievementAlert(ectx *EvaluationContext, buildingAlerts int) *models.Alert {
	if buildingAlerts >= 2 {
		return nil
	}
	metric := ectx.Stats.Savings
	label := "saved on " + strings.ToLower(CategoryName(ectx.Category))
	if ectx.Category == models.CategoryFood {
		metric = ectx.Stats.Reduction
		label = "reduction in food waste"
	}
	if metric <= 25 || !ectx.Decide() {
		return nil
	}

	var title string
	switch ectx.Category {
	case models.CategoryFood:
		title = "🏆 Food Waste Milestone"
	case models.CategoryWater:
		title = "🏆 Water Savings Milestone"
	default:
		title = "🏆 Electricity Savings Milestone"
	}

	a := ectx.newAlert(models.SeverityAchievement, "summary")
	a.Building = ""
	a.Title = title
	a.Message = fmt.Sprintf("Incredible! Campus achieved %d%% %s. Together we're changing the world!", metric, label)
	return a
}

// UtilizationStrategy is the simpler classification found alongside the
// delta rules: rank buildings by usage and report the single highest
// consumer, graded purely on its utilization level.
type UtilizationStrategy struct{}

func (UtilizationStrategy) Evaluate(ectx *EvaluationContext) []models.Alert {
	if len(ectx.Snapshots) == 0 {
		return []models.Alert{}
	}
	highest := ectx.Snapshots[0]
	for _, snap := range ectx.Snapshots[1:] {
		if snap.Usage > highest.Usage {
			highest = snap
		}
	}

	severity, detail := utilizationGrade(ectx.Category, highest)
	ectx.MarkAlerted(highest.Name)

	a := ectx.newAlert(severity, highest.Name)
	a.AutoDismiss = true
	a.Duration = 10
	a.Action = nil
	a.Value = fmtNum(highest.Usage, 1)
	a.Unit = Unit(ectx.Category)
	switch ectx.Category {
	case models.CategoryFood:
		a.Title = "🍽️ Highest Food Waste Source"
		grams := 0
		if highest.Meals > 0 {
			grams = int(math.Round(highest.Usage / float64(highest.Meals) * 1000))
		}
		a.Message = fmt.Sprintf("%s has the most food waste at %s kg (%dg per meal). %s",
			highest.Name, fmtNum(highest.Usage, 1), grams, detail)
	case models.CategoryWater:
		a.Title = "💧 Highest Water Consumer"
		a.Message = fmt.Sprintf("%s is using the most water at %s L (%d%% of target). %s",
			highest.Name, fmtNum(highest.Usage, 0), highest.Percentage, detail)
	default:
		a.Title = "⚡ Highest Electricity Consumer"
		a.Message = fmt.Sprintf("%s is consuming the most electricity at %s kWh (%d%% of capacity). %s",
			highest.Name, fmtNum(highest.Usage, 0), highest.Percentage, detail)
	}
	return []models.Alert{*a}
}

func utilizationGrade(category models.Category, snap models.BuildingSnapshot) (models.Severity, string) {
	if category == models.CategoryFood {
		threshold := 10.0
		if strings.EqualFold(snap.Name, "Cafeteria") {
			threshold = 35
		}
		switch {
		case snap.Usage >= threshold*1.2:
			return models.SeverityCritical, "Critical waste levels! Immediate action needed."
		case snap.Usage >= threshold:
			return models.SeverityWarning, "High waste detected. Review portion sizes."
		default:
			return models.SeverityInfo, "Waste within acceptable range."
		}
	}

	critical, warning := 90, 75
	if category == models.CategoryWater {
		critical, warning = 120, 110
	}
	switch {
	case snap.Percentage >= critical:
		return models.SeverityCritical, "Critical level! Take immediate action."
	case snap.Percentage >= warning:
		return models.SeverityWarning, "High usage detected. Monitor closely."
	default:
		return models.SeverityInfo, "Usage within normal range."
	}
}

// fmtNum formats like a fixed-decimal round with trailing zeros trimmed.
func fmtNum(v float64, digits int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(roundTo(v, digits), 'f', -1, 64)
}
