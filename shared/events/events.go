package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps every message published to Kafka so consumers can route on
// category and building without decoding the payload.
type Envelope struct {
	EventID    uuid.UUID       `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Category   string          `json:"category"`
	Building   string          `json:"building,omitempty"`
	EventType  string          `json:"event_type"`
	Payload    json.RawMessage `json:"payload"`
}

const (
	TopicReadings = "readings.recorded"
	TopicAlerts   = "alerts.emitted"
)

const (
	EventReadingRecorded = "reading_recorded"
	EventAlertEmitted    = "alert_emitted"
)

// Redis pub/sub channels used for fanout between the evaluator and the API
// SSE stream.
const (
	ChannelAlerts       = "campus.alerts"
	ChannelAlertDismiss = "campus.alerts.dismiss"
)

// DismissNotice is published on ChannelAlertDismiss when an alert leaves the
// visible set, whether by user action or countdown expiry.
type DismissNotice struct {
	AlertID     string    `json:"alert_id"`
	DismissedAt time.Time `json:"dismissed_at"`
}
