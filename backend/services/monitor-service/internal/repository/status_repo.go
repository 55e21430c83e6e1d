package repository

import (
	"context"
	"database/sql"
	"time"

	"solarx/backend/services/monitor-service/internal/models"
)

// StatusRepository stores raw status messages.
type StatusRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewStatusRepository ctor.
func NewStatusRepository(db *sql.DB, now func() time.Time) *StatusRepository {
	if now == nil {
		now = time.Now
	}
	return &StatusRepository{db: db, now: now}
}

// Insert stores a status record and fills its ID.
func (r *StatusRepository) Insert(ctx context.Context, record *models.StatusRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now()
	}
	record.CreatedAt = record.CreatedAt.UTC()

	const query = `
		INSERT INTO status_data (device, action, value, raw_message, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		nullString(record.Device),
		nullString(record.Action),
		nullString(record.Value),
		record.RawMessage,
		record.CreatedAt,
	).Scan(&record.ID)
}

// List returns the last N status records, newest first.
func (r *StatusRepository) List(ctx context.Context, limit int) ([]models.StatusRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const query = `
		SELECT id, device, action, value, raw_message, created_at
		FROM status_data
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.StatusRecord, 0)
	for rows.Next() {
		var (
			rec                   models.StatusRecord
			device, action, value sql.NullString
		)
		if err := rows.Scan(&rec.ID, &device, &action, &value, &rec.RawMessage, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Device = stringPtr(device)
		rec.Action = stringPtr(action)
		rec.Value = stringPtr(value)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
