package models

type Category string

const (
	CategoryElectricity Category = "electricity"
	CategoryWater       Category = "water"
	CategoryFood        Category = "food"
)

type Severity string

const (
	SeverityCritical    Severity = "critical"
	SeverityWarning     Severity = "warning"
	SeveritySuccess     Severity = "success"
	SeverityAchievement Severity = "achievement"
	SeverityInfo        Severity = "info"
)

type BuildingStatus string

const (
	StatusNormal  BuildingStatus = "normal"
	StatusWarning BuildingStatus = "warning"
	StatusGood    BuildingStatus = "good"
)

// Reading is one raw sensor sample for a (category, building) pair.
// Immutable once recorded.
type Reading struct {
	Building  string         `json:"building"`
	Timestamp int64          `json:"timestamp"`
	Value     float64        `json:"value"`
	Unit      string         `json:"unit"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// BucketedPoint is one averaged time window of readings, used for charting.
type BucketedPoint struct {
	Time      string  `json:"time"`
	Value     float64 `json:"value"`
	RawValue  float64 `json:"raw_value"`
	Timestamp int64   `json:"timestamp"`
}

// BuildingSnapshot is the normalized per-building view recomputed every
// evaluation cycle. Usage is kWh, liters or kg depending on category;
// CapacityOrTarget is the denominator for utilization. Meals is only set
// for food buildings.
type BuildingSnapshot struct {
	Name             string         `json:"name"`
	Usage            float64        `json:"usage"`
	CapacityOrTarget float64        `json:"capacity_or_target"`
	Percentage       int            `json:"percentage"`
	Status           BuildingStatus `json:"status"`
	Meals            int            `json:"meals,omitempty"`
	WastePerMeal     float64        `json:"waste_per_meal,omitempty"`
}

// DeltaRecord compares the two most recent readings for a building.
// Valid is false when fewer than one reading exists, in which case the
// classifier must fall back to utilization-only rules.
type DeltaRecord struct {
	Building         string  `json:"building"`
	Prev             float64 `json:"prev"`
	Latest           float64 `json:"latest"`
	Delta            float64 `json:"delta"`
	PctChange        float64 `json:"pct_change"`
	PercentageLatest int     `json:"percentage_latest"`
	Valid            bool    `json:"valid"`
}

// CampusStats aggregates one category across all buildings for a cycle.
// Savings (electricity/water) and Reduction (food) are rounded percentages
// of the campus-wide drop versus the previous cycle.
type CampusStats struct {
	Total      float64 `json:"total"`
	Peak       float64 `json:"peak"`
	PeakSource string  `json:"peak_source"`
	Average    float64 `json:"average"`
	Savings    int     `json:"savings"`
	Reduction  int     `json:"reduction"`
	Trend      string  `json:"trend"`
}

type AlertAction struct {
	Label string `json:"label"`
}

// Alert is an emitted notification. Critical alerts never auto-dismiss and
// carry an action; all other severities expire after Duration seconds.
type Alert struct {
	ID            string       `json:"id"`
	Type          Severity     `json:"type"`
	Title         string       `json:"title"`
	Message       string       `json:"message"`
	Building      string       `json:"building,omitempty"`
	Value         string       `json:"value,omitempty"`
	Unit          string       `json:"unit,omitempty"`
	Category      Category     `json:"category"`
	CategoryColor string       `json:"category_color,omitempty"`
	AutoDismiss   bool         `json:"auto_dismiss"`
	Duration      int          `json:"duration,omitempty"`
	Action        *AlertAction `json:"action,omitempty"`
	EmittedAt     int64        `json:"emitted_at"`
}
