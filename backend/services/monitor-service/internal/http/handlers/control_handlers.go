package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"solarx/backend/services/monitor-service/internal/ingest"
	"solarx/backend/services/monitor-service/internal/mqtt"
	"solarx/backend/services/monitor-service/internal/service"
)

// ControlHandlers serves relay and night mode endpoints.
type ControlHandlers struct {
	dashboard *service.DashboardService
	logger    *zap.Logger
}

// NewControlHandlers returns handler struct.
func NewControlHandlers(dashboard *service.DashboardService, logger *zap.Logger) *ControlHandlers {
	return &ControlHandlers{dashboard: dashboard, logger: logger}
}

// Relay handles POST /api/relay/control.
func (h *ControlHandlers) Relay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RelayNumber int   `json:"relayNumber"`
		State       *bool `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RelayNumber != 1 && req.RelayNumber != 2 {
		writeError(w, http.StatusBadRequest, "Invalid relay number")
		return
	}
	if req.State == nil {
		writeError(w, http.StatusBadRequest, "Invalid state")
		return
	}

	err := h.dashboard.SetRelay(r.Context(), req.RelayNumber, *req.State)
	switch {
	case err == nil:
	case errors.Is(err, ingest.ErrInvalidRelay):
		writeError(w, http.StatusBadRequest, "Invalid relay number")
		return
	case errors.Is(err, mqtt.ErrNotConnected):
		writeError(w, http.StatusServiceUnavailable, "broker unavailable")
		return
	default:
		h.logger.Error("relay command failed", zap.Int("relay", req.RelayNumber), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	state := "OFF"
	if *req.State {
		state = "ON"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Relay %d turned %s", req.RelayNumber, state),
	})
}

// NightMode handles GET /api/night-mode.
func (h *ControlHandlers) NightMode(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.dashboard.NightMode(r.Context())
	if err != nil {
		h.logger.Error("failed to read night mode", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read night mode")
		return
	}
	writeData(w, map[string]bool{"enabled": enabled})
}

// SetNightMode handles POST /api/night-mode.
func (h *ControlHandlers) SetNightMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled must be a boolean")
		return
	}
	if err := h.dashboard.SetNightMode(r.Context(), *req.Enabled); err != nil {
		h.logger.Error("failed to update night mode", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update night mode")
		return
	}
	writeData(w, map[string]bool{"enabled": *req.Enabled})
}
