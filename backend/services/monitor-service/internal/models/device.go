package models

// Device is a dashboard view of a relay or battery derived from realtime status.
type Device struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Location string         `json:"location"`
	Status   string         `json:"status"`
	LastSync string         `json:"lastSync"`
	Data     map[string]any `json:"data,omitempty"`
}
