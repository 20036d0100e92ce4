package repos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"campus-resource-monitor/api/internal/models"
)

type ReadingsRepo struct {
	db DBTX
}

func NewReadingsRepo(db DBTX) *ReadingsRepo {
	return &ReadingsRepo{db: db}
}

func (r *ReadingsRepo) Insert(ctx context.Context, category models.Category, reading models.Reading) (uuid.UUID, error) {
	meta, err := json.Marshal(reading.Meta)
	if err != nil {
		meta = []byte("{}")
	}
	var id uuid.UUID
	err = r.db.QueryRow(ctx, `
		INSERT INTO readings (reading_id, category, building, recorded_at, value, unit, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING reading_id
	`, uuid.New(), string(category), reading.Building, time.UnixMilli(reading.Timestamp).UTC(), reading.Value, reading.Unit, meta).Scan(&id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// RecentReadings returns up to limit readings for one building ordered
// oldest to newest.
func (r *ReadingsRepo) RecentReadings(ctx context.Context, category models.Category, building string, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT building, recorded_at, value, unit, meta
		FROM readings
		WHERE category = $1 AND building = $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`, string(category), building, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Reading, 0, limit)
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// LatestSnapshot returns the most recent reading per building for a category.
func (r *ReadingsRepo) LatestSnapshot(ctx context.Context, category models.Category) (map[string]models.Reading, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT ON (building) building, recorded_at, value, unit, meta
		FROM readings
		WHERE category = $1
		ORDER BY building, recorded_at DESC
	`, string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]models.Reading)
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out[reading.Building] = reading
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner) (models.Reading, error) {
	var reading models.Reading
	var recordedAt time.Time
	var meta []byte
	if err := row.Scan(&reading.Building, &recordedAt, &reading.Value, &reading.Unit, &meta); err != nil {
		return models.Reading{}, err
	}
	reading.Timestamp = recordedAt.UnixMilli()
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &reading.Meta)
	}
	return reading, nil
}
