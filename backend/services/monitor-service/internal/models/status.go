package models

import "time"

// StatusRecord is a raw device status message and its parsed parts.
type StatusRecord struct {
	ID         int64     `db:"id" json:"id"`
	Device     *string   `db:"device" json:"device"`
	Action     *string   `db:"action" json:"action"`
	Value      *string   `db:"value" json:"value"`
	RawMessage string    `db:"raw_message" json:"raw_message"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
