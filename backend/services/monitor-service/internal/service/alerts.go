package service

import (
	"context"
	"sort"
	"time"

	"github.com/relvacode/iso8601"

	"solarx/backend/services/monitor-service/internal/models"
)

const (
	// AlertsPath holds system alerts keyed by id, each with a timestamp child.
	AlertsPath = "alerts"

	defaultAlertLimit = 5
)

// Alerts returns the newest alerts ordered by timestamp, oldest first. Alerts
// without a usable timestamp sort before all others.
func (s *DashboardService) Alerts(ctx context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	v, err := s.docs.Get(ctx, AlertsPath)
	if err != nil {
		return nil, err
	}
	tree, _ := v.(map[string]any)

	alerts := make([]models.Alert, 0, len(tree))
	for id, raw := range tree {
		data, _ := raw.(map[string]any)
		alerts = append(alerts, models.Alert{ID: id, Timestamp: alertTime(data["timestamp"]), Data: data})
	}
	sort.Slice(alerts, func(i, j int) bool {
		a, b := alerts[i].Timestamp, alerts[j].Timestamp
		switch {
		case a == nil && b == nil:
			return alerts[i].ID < alerts[j].ID
		case a == nil || b == nil:
			return a == nil
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return alerts[i].ID < alerts[j].ID
		}
	})
	if len(alerts) > limit {
		alerts = alerts[len(alerts)-limit:]
	}
	return alerts, nil
}

// alertTime accepts epoch milliseconds or an ISO 8601 string.
func alertTime(v any) *time.Time {
	var t time.Time
	switch ts := v.(type) {
	case float64:
		t = time.UnixMilli(int64(ts)).UTC()
	case string:
		parsed, err := iso8601.ParseString(ts)
		if err != nil {
			return nil
		}
		t = parsed.UTC()
	default:
		return nil
	}
	return &t
}
