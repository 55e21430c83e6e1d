package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"solarx/backend/services/monitor-service/internal/models"
)

// TelemetryRepository persists opaque telemetry documents.
type TelemetryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewTelemetryRepository returns repository.
func NewTelemetryRepository(db *sql.DB, now func() time.Time) *TelemetryRepository {
	if now == nil {
		now = time.Now
	}
	return &TelemetryRepository{db: db, now: now}
}

// Insert stores new telemetry entry.
func (r *TelemetryRepository) Insert(ctx context.Context, record *models.TelemetryRecord) error {
	if !json.Valid(record.Data) {
		return errors.New("repository: telemetry data is not valid json")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now()
	}
	record.CreatedAt = record.CreatedAt.UTC()

	const query = `
		INSERT INTO telemetry_data (data, created_at)
		VALUES ($1, $2)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query, string(record.Data), record.CreatedAt).Scan(&record.ID)
}

// List returns the last N telemetry entries, newest first.
func (r *TelemetryRepository) List(ctx context.Context, limit int) ([]models.TelemetryRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const query = `
		SELECT id, data, created_at
		FROM telemetry_data
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.TelemetryRecord, 0)
	for rows.Next() {
		var (
			rec  models.TelemetryRecord
			data []byte
		)
		if err := rows.Scan(&rec.ID, &data, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Data = json.RawMessage(data)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
