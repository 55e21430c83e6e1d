package models

import (
	"encoding/json"
	"time"
)

// TelemetryRecord stores an opaque device telemetry document.
type TelemetryRecord struct {
	ID        int64           `db:"id" json:"id"`
	Data      json.RawMessage `db:"data" json:"data"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
