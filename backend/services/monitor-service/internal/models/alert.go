package models

import "time"

// Alert is one entry of the alerts subtree in the live document store.
type Alert struct {
	ID        string         `json:"id"`
	Timestamp *time.Time     `json:"timestamp"`
	Data      map[string]any `json:"data"`
}
