package db

import (
	"context"
	"database/sql"
	"fmt"

	libdb "solarx/backend/libs/db"
)

// Open reuses the shared DB initializer.
func Open(driver, dsn string) (*sql.DB, error) {
	return libdb.Open(driver, dsn)
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS battery_data (
		id BIGSERIAL PRIMARY KEY,
		percentage DOUBLE PRECISION,
		voltage DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_battery_data_created_at ON battery_data (created_at)`,
	`CREATE TABLE IF NOT EXISTS status_data (
		id BIGSERIAL PRIMARY KEY,
		device TEXT,
		action TEXT,
		value TEXT,
		raw_message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS telemetry_data (
		id BIGSERIAL PRIMARY KEY,
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS battery_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		percentage REAL,
		voltage REAL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_battery_data_created_at ON battery_data (created_at)`,
	`CREATE TABLE IF NOT EXISTS status_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device TEXT,
		action TEXT,
		value TEXT,
		raw_message TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS telemetry_data (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		data TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
}

// Migrate creates the monitor tables if they do not exist yet.
func Migrate(ctx context.Context, sqlDB *sql.DB, driver string) error {
	name, err := libdb.NormalizeDriver(driver)
	if err != nil {
		return err
	}
	statements := postgresSchema
	if name == libdb.DriverSQLite {
		statements = sqliteSchema
	}
	for _, stmt := range statements {
		if _, err := sqlDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db: migrate: %w", err)
		}
	}
	return nil
}
