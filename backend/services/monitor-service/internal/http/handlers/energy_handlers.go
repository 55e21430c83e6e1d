package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/relvacode/iso8601"
	"go.uber.org/zap"

	"solarx/backend/services/monitor-service/internal/energy"
	"solarx/backend/services/monitor-service/internal/models"
	"solarx/backend/services/monitor-service/internal/service"
)

const maxEstimateBody = 1 << 20

// EnergyHandlers serves production estimates and history.
type EnergyHandlers struct {
	dashboard *service.DashboardService
	logger    *zap.Logger
}

// NewEnergyHandlers returns handler struct.
func NewEnergyHandlers(dashboard *service.DashboardService, logger *zap.Logger) *EnergyHandlers {
	return &EnergyHandlers{dashboard: dashboard, logger: logger}
}

// Production handles GET /api/energy/production.
func (h *EnergyHandlers) Production(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.dashboard.HourlyProduction(r.Context()))
}

// History handles GET /api/energy/history?range=week|month|year.
func (h *EnergyHandlers) History(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.dashboard.History(r.Context(), r.URL.Query().Get("range"))
	if err != nil {
		if errors.Is(err, energy.ErrInvalidRange) {
			writeError(w, http.StatusBadRequest, "range must be week, month or year")
			return
		}
		h.logger.Error("failed to build history", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeData(w, summaries)
}

type estimateReading struct {
	Percentage *float64 `json:"percentage"`
	Voltage    *float64 `json:"voltage"`
	CreatedAt  string   `json:"createdAt"`
}

// Estimate handles POST /api/energy/estimate. Readings must already be in
// chronological order; ones with an unparseable createdAt are skipped.
func (h *EnergyHandlers) Estimate(w http.ResponseWriter, r *http.Request) {
	var body []estimateReading
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEstimateBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "body must be an array of readings")
		return
	}

	readings := make([]models.BatteryReading, 0, len(body))
	for _, in := range body {
		createdAt, err := iso8601.ParseString(in.CreatedAt)
		if err != nil {
			h.logger.Debug("skipping reading with invalid createdAt", zap.String("created_at", in.CreatedAt))
			continue
		}
		readings = append(readings, models.BatteryReading{
			Percentage: finite(in.Percentage),
			Voltage:    finite(in.Voltage),
			CreatedAt:  createdAt,
		})
	}
	writeData(w, h.dashboard.Estimate(readings))
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}
