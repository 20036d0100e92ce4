package repos

import (
	"context"
	"time"

	"campus-resource-monitor/api/internal/models"
)

type AlertsRepo struct {
	db DBTX
}

func NewAlertsRepo(db DBTX) *AlertsRepo {
	return &AlertsRepo{db: db}
}

func (r *AlertsRepo) Insert(ctx context.Context, alert models.Alert) error {
	actionLabel := ""
	if alert.Action != nil {
		actionLabel = alert.Action.Label
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO alerts (alert_id, category, severity, building, title, message, value, unit, auto_dismiss, duration_seconds, action_label, emitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (alert_id) DO NOTHING
	`, alert.ID, string(alert.Category), string(alert.Type), alert.Building, alert.Title, alert.Message,
		alert.Value, alert.Unit, alert.AutoDismiss, alert.Duration, actionLabel, time.UnixMilli(alert.EmittedAt).UTC())
	return err
}

// MarkDismissed records an explicit or automatic removal. Dismissing an
// already-dismissed alert is a no-op.
func (r *AlertsRepo) MarkDismissed(ctx context.Context, alertID string, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE alerts SET dismissed_at = $2
		WHERE alert_id = $1 AND dismissed_at IS NULL
	`, alertID, at.UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Recent returns the newest alerts first, bounded by limit.
func (r *AlertsRepo) Recent(ctx context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT alert_id, category, severity, building, title, message, value, unit, auto_dismiss, duration_seconds, action_label, emitted_at
		FROM alerts
		ORDER BY emitted_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Alert, 0, limit)
	for rows.Next() {
		var a models.Alert
		var category, severity, actionLabel string
		var emittedAt time.Time
		if err := rows.Scan(&a.ID, &category, &severity, &a.Building, &a.Title, &a.Message,
			&a.Value, &a.Unit, &a.AutoDismiss, &a.Duration, &actionLabel, &emittedAt); err != nil {
			return nil, err
		}
		a.Category = models.Category(category)
		a.Type = models.Severity(severity)
		a.EmittedAt = emittedAt.UnixMilli()
		if actionLabel != "" {
			a.Action = &models.AlertAction{Label: actionLabel}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
