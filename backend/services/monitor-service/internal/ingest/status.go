package ingest

import (
	"errors"
	"strings"
)

// ErrInvalidStatus is returned for status messages that are neither
// ACTION_VALUE nor DEVICE_ACTION_VALUE.
var ErrInvalidStatus = errors.New("ingest: invalid status message")

// SystemDevice owns status messages that name no device.
const SystemDevice = "system"

// Status is a parsed status message.
type Status struct {
	Device string
	Action string
	Value  string
}

// ParseStatus splits a status message on "_". Two parts are ACTION_VALUE,
// three are DEVICE_ACTION_VALUE. Device is empty for the two part form.
// An empty action, or an empty device in the three part form, is invalid
// since its document path would collapse onto the parent.
func ParseStatus(raw string) (Status, error) {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	var s Status
	switch len(parts) {
	case 2:
		s = Status{Action: parts[0], Value: parts[1]}
	case 3:
		if parts[0] == "" {
			return Status{}, ErrInvalidStatus
		}
		s = Status{Device: parts[0], Action: parts[1], Value: parts[2]}
	default:
		return Status{}, ErrInvalidStatus
	}
	if s.Action == "" {
		return Status{}, ErrInvalidStatus
	}
	return s, nil
}

// Path is the document path the status is mirrored to.
func (s Status) Path() string {
	device := s.Device
	if device == "" {
		device = SystemDevice
	}
	return "status/" + device + "/" + s.Action
}

// DocumentValue maps ON/STARTED to true and OFF/STOPPED to false. Any other
// value passes through as the raw string.
func (s Status) DocumentValue() any {
	return StatusValue(s.Value)
}

// StatusValue is DocumentValue for a bare value.
func StatusValue(value string) any {
	switch value {
	case "ON", "STARTED":
		return true
	case "OFF", "STOPPED":
		return false
	default:
		return value
	}
}
