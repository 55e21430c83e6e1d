package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"solarx/backend/services/monitor-service/internal/models"
)

// Status subtrees that are settings rather than devices.
var nonDeviceKeys = map[string]bool{"energy": true, "Night": true}

// Devices lists the devices present in the live status tree.
func (s *DashboardService) Devices(ctx context.Context) ([]models.Device, error) {
	v, err := s.docs.Get(ctx, StatusPath)
	if err != nil {
		return nil, err
	}
	tree, _ := v.(map[string]any)

	devices := make([]models.Device, 0, len(tree))
	for key, raw := range tree {
		if nonDeviceKeys[key] {
			continue
		}
		data, _ := raw.(map[string]any)
		devices = append(devices, s.describeDevice(key, data))
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

func (s *DashboardService) describeDevice(key string, data map[string]any) models.Device {
	device := models.Device{
		ID:     key,
		Name:   key,
		Type:   "Controller",
		Status: "online",
		Data:   data,
	}

	switch {
	case key == "battery":
		device.Name = "Battery Bank"
		device.Type = "Battery Pack"
		device.Status = "offline"
		if ts, ok := data["lastUpdated"].(string); ok {
			device.LastSync = ts
			if at, err := time.Parse(time.RFC3339Nano, ts); err == nil && s.now().Sub(at) <= s.opts.StaleAfter {
				device.Status = "online"
			}
		}
	case strings.HasPrefix(key, "relay"):
		device.Name = "Relay " + strings.TrimPrefix(key, "relay")
		device.Type = "Relay"
		if on, ok := data["ON"].(bool); ok {
			device.Status = "off"
			if on {
				device.Status = "on"
			}
		}
	case key == "system":
		device.Name = "System Controller"
	}
	return device
}
