package core

import (
	"context"
	"sync"
	"time"

	"campus-resource-monitor/api/internal/models"
)

// DefaultMaxVisible bounds how many alerts are shown at once.
const DefaultMaxVisible = 3

type lifecycleEntry struct {
	alert     models.Alert
	visibleAt time.Time
	expiresAt time.Time
}

// Manager owns emitted alerts: it tracks the visible set, expires
// auto-dismiss alerts after their countdown, and handles explicit dismissal.
// The visible set is the first maxVisible alerts in emission order; an
// alert's countdown starts the moment it becomes visible, not when it is
// emitted. All methods are safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	maxVisible int
	entries    []*lifecycleEntry
	onVisible  func(models.Alert)
}

func NewManager(maxVisible int) *Manager {
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisible
	}
	return &Manager{maxVisible: maxVisible}
}

// SetOnVisible registers a callback fired once per alert when it first
// becomes visible. The callback runs outside the manager lock.
func (m *Manager) SetOnVisible(fn func(models.Alert)) {
	m.mu.Lock()
	m.onVisible = fn
	m.mu.Unlock()
}

// Add appends emitted alerts and promotes any that fit in the visible set.
func (m *Manager) Add(now time.Time, alerts ...models.Alert) {
	m.mu.Lock()
	for _, a := range alerts {
		m.entries = append(m.entries, &lifecycleEntry{alert: a})
	}
	newlyVisible := m.promoteLocked(now)
	fn := m.onVisible
	m.mu.Unlock()

	m.notify(fn, newlyVisible)
}

// Dismiss removes an alert regardless of its remaining countdown. Removing
// an unknown or already-removed id is a no-op. Returns whether anything was
// removed.
func (m *Manager) Dismiss(id string, now time.Time) bool {
	m.mu.Lock()
	removed := false
	for i, e := range m.entries {
		if e.alert.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			removed = true
			break
		}
	}
	var newlyVisible []models.Alert
	if removed {
		newlyVisible = m.promoteLocked(now)
	}
	fn := m.onVisible
	m.mu.Unlock()

	m.notify(fn, newlyVisible)
	return removed
}

// ExpireDue removes every visible auto-dismiss alert whose countdown has
// elapsed at the given instant, promoting queued alerts as slots free up.
// Returns the expired alerts.
func (m *Manager) ExpireDue(now time.Time) []models.Alert {
	m.mu.Lock()
	var expired []models.Alert
	var newlyVisible []models.Alert
	for {
		newlyVisible = append(newlyVisible, m.promoteLocked(now)...)
		idx := -1
		for i, e := range m.entries {
			if i >= m.maxVisible {
				break
			}
			if e.alert.AutoDismiss && !e.visibleAt.IsZero() && !e.expiresAt.After(now) {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		expired = append(expired, m.entries[idx].alert)
		m.entries = append(m.entries[:idx], m.entries[idx+1:]...)
	}
	fn := m.onVisible
	m.mu.Unlock()

	m.notify(fn, newlyVisible)
	return expired
}

// Visible returns the currently shown alerts in emission order.
func (m *Manager) Visible() []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	if n > m.maxVisible {
		n = m.maxVisible
	}
	out := make([]models.Alert, 0, n)
	for _, e := range m.entries[:n] {
		if !e.visibleAt.IsZero() {
			out = append(out, e.alert)
		}
	}
	return out
}

// All returns every tracked alert, visible or queued.
func (m *Manager) All() []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Alert, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.alert)
	}
	return out
}

// Run drives expiry from a ticker until the context is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.ExpireDue(now)
		}
	}
}

func (m *Manager) promoteLocked(now time.Time) []models.Alert {
	var newlyVisible []models.Alert
	for i, e := range m.entries {
		if i >= m.maxVisible {
			break
		}
		if e.visibleAt.IsZero() {
			e.visibleAt = now
			if e.alert.AutoDismiss {
				d := e.alert.Duration
				if d <= 0 {
					d = 5
				}
				e.expiresAt = now.Add(time.Duration(d) * time.Second)
			}
			newlyVisible = append(newlyVisible, e.alert)
		}
	}
	return newlyVisible
}

func (m *Manager) notify(fn func(models.Alert), alerts []models.Alert) {
	if fn == nil {
		return
	}
	for _, a := range alerts {
		fn(a)
	}
}
