package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"solarx/backend/services/monitor-service/internal/models"
)

const defaultListLimit = 100

// BatteryRepository persists battery percentage/voltage samples.
type BatteryRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewBatteryRepository returns repository. now drives period queries; nil means time.Now.
func NewBatteryRepository(db *sql.DB, now func() time.Time) *BatteryRepository {
	if now == nil {
		now = time.Now
	}
	return &BatteryRepository{db: db, now: now}
}

// Insert stores a new reading and fills its ID. A zero CreatedAt is stamped with the repository clock.
func (r *BatteryRepository) Insert(ctx context.Context, reading *models.BatteryReading) error {
	if reading.CreatedAt.IsZero() {
		reading.CreatedAt = r.now()
	}
	reading.CreatedAt = reading.CreatedAt.UTC()

	const query = `
		INSERT INTO battery_data (percentage, voltage, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		nullFloat(reading.Percentage),
		nullFloat(reading.Voltage),
		reading.CreatedAt,
	).Scan(&reading.ID)
}

// UpdateVoltage patches the voltage of an existing row.
func (r *BatteryRepository) UpdateVoltage(ctx context.Context, id int64, voltage float64) error {
	const query = `UPDATE battery_data SET voltage = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, voltage, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Latest returns the most recent reading, or nil when the table is empty.
func (r *BatteryRepository) Latest(ctx context.Context) (*models.BatteryReading, error) {
	const query = `
		SELECT id, percentage, voltage, created_at
		FROM battery_data
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	reading, err := scanBattery(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reading, nil
}

// List returns the last N readings, newest first.
func (r *BatteryRepository) List(ctx context.Context, limit int) ([]models.BatteryReading, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	const query = `
		SELECT id, percentage, voltage, created_at
		FROM battery_data
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	return r.query(ctx, query, limit)
}

// ReadingsForPeriod returns readings from the last `days` days in ascending creation order.
func (r *BatteryRepository) ReadingsForPeriod(ctx context.Context, days int) ([]models.BatteryReading, error) {
	if days <= 0 {
		days = 7
	}
	since := r.now().AddDate(0, 0, -days).UTC()
	const query = `
		SELECT id, percentage, voltage, created_at
		FROM battery_data
		WHERE created_at >= $1
		ORDER BY created_at ASC, id ASC
	`
	return r.query(ctx, query, since)
}

func (r *BatteryRepository) query(ctx context.Context, query string, args ...any) ([]models.BatteryReading, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make([]models.BatteryReading, 0)
	for rows.Next() {
		reading, err := scanBattery(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return readings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBattery(row rowScanner) (*models.BatteryReading, error) {
	var (
		reading    models.BatteryReading
		percentage sql.NullFloat64
		voltage    sql.NullFloat64
	)
	if err := row.Scan(&reading.ID, &percentage, &voltage, &reading.CreatedAt); err != nil {
		return nil, err
	}
	reading.Percentage = floatPtr(percentage)
	reading.Voltage = floatPtr(voltage)
	return &reading, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
