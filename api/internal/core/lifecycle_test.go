package core

import (
	"fmt"
	"testing"
	"time"

	"campus-resource-monitor/api/internal/models"
)

func autoAlert(id string, duration int) models.Alert {
	return models.Alert{
		ID:          id,
		Type:        models.SeverityWarning,
		Category:    models.CategoryElectricity,
		AutoDismiss: true,
		Duration:    duration,
	}
}

func TestLifecycleAutoExpiry(t *testing.T) {
	m := NewManager(3)
	start := time.UnixMilli(0)
	m.Add(start, autoAlert("a1", 5))

	if len(m.Visible()) != 1 {
		t.Fatalf("expected alert visible immediately after emission")
	}
	if expired := m.ExpireDue(start.Add(4 * time.Second)); len(expired) != 0 {
		t.Fatalf("expected no expiry before duration, got %d", len(expired))
	}
	expired := m.ExpireDue(start.Add(5 * time.Second))
	if len(expired) != 1 || expired[0].ID != "a1" {
		t.Fatalf("expected a1 expired, got %+v", expired)
	}
	if len(m.Visible()) != 0 {
		t.Fatalf("expected no visible alerts after expiry")
	}
}

func TestLifecycleMaxVisible(t *testing.T) {
	m := NewManager(3)
	start := time.UnixMilli(0)
	for i := 0; i < 5; i++ {
		m.Add(start, autoAlert(fmt.Sprintf("a%d", i), 10))
	}
	if got := len(m.Visible()); got != 3 {
		t.Fatalf("expected 3 visible of 5 emitted, got %d", got)
	}
	if got := len(m.All()); got != 5 {
		t.Fatalf("expected all 5 tracked, got %d", got)
	}
}

func TestLifecycleDismissIdempotent(t *testing.T) {
	m := NewManager(3)
	start := time.UnixMilli(0)
	m.Add(start, autoAlert("a1", 10))

	if !m.Dismiss("a1", start) {
		t.Fatalf("expected dismiss to remove the alert")
	}
	if m.Dismiss("a1", start) {
		t.Fatalf("expected second dismiss to be a no-op")
	}
	if m.Dismiss("missing", start) {
		t.Fatalf("expected unknown id dismiss to be a no-op")
	}
}

func TestLifecycleCriticalNeverExpires(t *testing.T) {
	m := NewManager(3)
	start := time.UnixMilli(0)
	m.Add(start, models.Alert{ID: "crit", Type: models.SeverityCritical, AutoDismiss: false})

	if expired := m.ExpireDue(start.Add(time.Hour)); len(expired) != 0 {
		t.Fatalf("critical alert must not auto-expire, got %+v", expired)
	}
	if !m.Dismiss("crit", start.Add(time.Hour)) {
		t.Fatalf("expected explicit dismiss to remove critical alert")
	}
}

func TestLifecyclePromotionStartsCountdownLate(t *testing.T) {
	m := NewManager(2)
	start := time.UnixMilli(0)
	m.Add(start, autoAlert("a1", 5), autoAlert("a2", 5), autoAlert("a3", 5))

	// a3 is queued; its countdown must not start until it becomes visible.
	expired := m.ExpireDue(start.Add(5 * time.Second))
	if len(expired) != 2 {
		t.Fatalf("expected a1 and a2 expired, got %d", len(expired))
	}
	visible := m.Visible()
	if len(visible) != 1 || visible[0].ID != "a3" {
		t.Fatalf("expected a3 promoted, got %+v", visible)
	}
	if expired := m.ExpireDue(start.Add(9 * time.Second)); len(expired) != 0 {
		t.Fatalf("a3 countdown started at promotion, must not expire yet")
	}
	if expired := m.ExpireDue(start.Add(10 * time.Second)); len(expired) != 1 {
		t.Fatalf("expected a3 expired 5s after promotion, got %d", len(expired))
	}
}

func TestLifecycleOnVisibleFiresOncePerAlert(t *testing.T) {
	m := NewManager(2)
	seen := map[string]int{}
	m.SetOnVisible(func(a models.Alert) { seen[a.ID]++ })

	start := time.UnixMilli(0)
	m.Add(start, autoAlert("a1", 5), autoAlert("a2", 5), autoAlert("a3", 5))
	if seen["a1"] != 1 || seen["a2"] != 1 {
		t.Fatalf("expected a1 and a2 announced once, got %v", seen)
	}
	if seen["a3"] != 0 {
		t.Fatalf("queued alert must not be announced yet, got %v", seen)
	}

	m.Dismiss("a1", start.Add(time.Second))
	if seen["a3"] != 1 {
		t.Fatalf("expected a3 announced after promotion, got %v", seen)
	}
}
