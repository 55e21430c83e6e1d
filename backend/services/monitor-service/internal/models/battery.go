package models

import "time"

// BatteryReading is one battery sample. Percentage and voltage arrive on separate
// topics, so either may be missing.
type BatteryReading struct {
	ID         int64     `db:"id" json:"id"`
	Percentage *float64  `db:"percentage" json:"percentage"`
	Voltage    *float64  `db:"voltage" json:"voltage"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
