package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"solarx/backend/services/monitor-service/internal/service"
)

// DataHandlers exposes stored and live device data.
type DataHandlers struct {
	dashboard *service.DashboardService
	logger    *zap.Logger
}

// NewDataHandlers returns handler struct.
func NewDataHandlers(dashboard *service.DashboardService, logger *zap.Logger) *DataHandlers {
	return &DataHandlers{dashboard: dashboard, logger: logger}
}

// Telemetry handles GET /api/data/telemetry.
func (h *DataHandlers) Telemetry(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "telemetry")
}

// Status handles GET /api/data/status.
func (h *DataHandlers) Status(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "status")
}

// Battery handles GET /api/data/battery.
func (h *DataHandlers) Battery(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "battery")
}

// Historical handles GET /api/historical/{type}.
func (h *DataHandlers) Historical(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, mux.Vars(r)["type"])
}

func (h *DataHandlers) list(w http.ResponseWriter, r *http.Request, kind string) {
	limit, ok := parseLimit(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	var (
		data any
		err  error
	)
	ctx := r.Context()
	switch kind {
	case "battery":
		data, err = h.dashboard.BatteryHistory(ctx, limit)
	case "telemetry":
		data, err = h.dashboard.TelemetryHistory(ctx, limit)
	case "status":
		data, err = h.dashboard.StatusHistory(ctx, limit)
	default:
		writeError(w, http.StatusBadRequest, "Invalid data type")
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch data", zap.String("type", kind), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, data)
}

// LatestBattery handles GET /api/data/battery/latest.
func (h *DataHandlers) LatestBattery(w http.ResponseWriter, r *http.Request) {
	reading, err := h.dashboard.LatestBattery(r.Context())
	if err != nil {
		h.logger.Error("failed to fetch latest battery reading", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, reading)
}

// RealtimeBattery handles GET /api/realtime/battery.
func (h *DataHandlers) RealtimeBattery(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboard.BatteryStatus(r.Context())
	if err != nil {
		h.logger.Error("failed to read battery status", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch battery data")
		return
	}
	writeData(w, data)
}

// RealtimeStatus handles GET /api/realtime/status.
func (h *DataHandlers) RealtimeStatus(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboard.Status(r.Context())
	if err != nil {
		h.logger.Error("failed to read system status", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch system status")
		return
	}
	writeData(w, data)
}

// Devices handles GET /api/devices.
func (h *DataHandlers) Devices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.dashboard.Devices(r.Context())
	if err != nil {
		h.logger.Error("failed to list devices", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, devices)
}

// Alerts handles GET /api/alerts. Without ?limit= the five newest are returned.
func (h *DataHandlers) Alerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if r.URL.Query().Get("limit") != "" {
		var ok bool
		if limit, ok = parseLimit(r); !ok {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}
	alerts, err := h.dashboard.Alerts(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list alerts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, alerts)
}
