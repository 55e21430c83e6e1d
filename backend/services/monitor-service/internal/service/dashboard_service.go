package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solarx/backend/services/monitor-service/internal/docstore"
	"solarx/backend/services/monitor-service/internal/energy"
	"solarx/backend/services/monitor-service/internal/ingest"
	"solarx/backend/services/monitor-service/internal/models"
)

const (
	// StatusPath is the root of the realtime status tree.
	StatusPath = "status"
	// ProductionPath caches the last computed production curve.
	ProductionPath = "status/energy/production"
	// NightModePath holds the night mode flag.
	NightModePath = "status/Night/Mode"

	defaultRefreshInterval = 15 * time.Minute
)

// ReadingSource reads battery history.
type ReadingSource interface {
	ReadingsForPeriod(ctx context.Context, days int) ([]models.BatteryReading, error)
	Latest(ctx context.Context) (*models.BatteryReading, error)
	List(ctx context.Context, limit int) ([]models.BatteryReading, error)
}

// TelemetryReader lists stored telemetry.
type TelemetryReader interface {
	List(ctx context.Context, limit int) ([]models.TelemetryRecord, error)
}

// StatusReader lists stored status messages.
type StatusReader interface {
	List(ctx context.Context, limit int) ([]models.StatusRecord, error)
}

// RelaySwitcher sends relay commands to the field.
type RelaySwitcher interface {
	PublishRelayCommand(ctx context.Context, relay int, on bool) error
}

// Options tunes the dashboard service.
type Options struct {
	LookbackDays int
	// StaleAfter marks the battery offline when its last update is older.
	StaleAfter time.Duration
}

// DashboardService serves the monitoring dashboard: production estimates,
// history, live status and relay control.
type DashboardService struct {
	readings  ReadingSource
	telemetry TelemetryReader
	statuses  StatusReader
	relays    RelaySwitcher
	docs      docstore.Store
	estimator *energy.Estimator
	opts      Options
	now       func() time.Time
	logger    *zap.Logger
}

// NewDashboardService returns service instance. now nil means time.Now.
func NewDashboardService(
	readings ReadingSource,
	telemetry TelemetryReader,
	statuses StatusReader,
	relays RelaySwitcher,
	docs docstore.Store,
	opts Options,
	now func() time.Time,
	logger *zap.Logger,
) *DashboardService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = energy.DefaultLookbackDays
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 10 * time.Minute
	}
	return &DashboardService{
		readings:  readings,
		telemetry: telemetry,
		statuses:  statuses,
		relays:    relays,
		docs:      docs,
		estimator: energy.NewEstimator(now),
		opts:      opts,
		now:       now,
		logger:    logger,
	}
}

// HourlyProduction returns today's production curve. When the database is
// unreachable the cached curve is served, and the placeholder curve when
// there is no cache either. It never fails.
func (s *DashboardService) HourlyProduction(ctx context.Context) energy.Profile {
	profile, err := s.computeProduction(ctx)
	if err == nil {
		return profile
	}
	s.logger.Warn("live production estimate failed, using cache", zap.Error(err))

	var cached []energy.Point
	if err := docstore.Decode(ctx, s.docs, ProductionPath, &cached); err != nil || len(cached) == 0 {
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			s.logger.Warn("production cache unavailable", zap.Error(err))
		}
		return energy.Profile{Points: energy.FallbackProfile(), Fallback: true}
	}
	return energy.Profile{Points: cached}
}

// RefreshProduction recomputes the curve and updates the cache.
func (s *DashboardService) RefreshProduction(ctx context.Context) error {
	_, err := s.computeProduction(ctx)
	return err
}

func (s *DashboardService) computeProduction(ctx context.Context) (energy.Profile, error) {
	readings, err := s.readings.ReadingsForPeriod(ctx, s.opts.LookbackDays)
	if err != nil {
		return energy.Profile{}, fmt.Errorf("load readings: %w", err)
	}
	profile := s.estimator.Estimate(readings)
	if !profile.Fallback {
		if err := s.docs.Set(ctx, ProductionPath, profile.Points); err != nil {
			s.logger.Warn("failed to cache production", zap.Error(err))
		}
	}
	return profile, nil
}

// RunProductionRefresh refreshes the cache immediately and then every
// interval until ctx is cancelled.
func (s *DashboardService) RunProductionRefresh(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.RefreshProduction(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("production refresh failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Estimate runs the estimator over caller supplied readings.
func (s *DashboardService) Estimate(readings []models.BatteryReading) energy.Profile {
	return s.estimator.Estimate(readings)
}

// History aggregates battery readings per day for week, month or year.
func (s *DashboardService) History(ctx context.Context, rangeName string) ([]energy.DailySummary, error) {
	days, err := energy.RangeDays(rangeName)
	if err != nil {
		return nil, err
	}
	readings, err := s.readings.ReadingsForPeriod(ctx, days)
	if err != nil {
		return nil, fmt.Errorf("load readings: %w", err)
	}
	return energy.DailySummaries(readings, s.now().Location()), nil
}

// SetRelay switches relay 1 or 2.
func (s *DashboardService) SetRelay(ctx context.Context, relay int, on bool) error {
	if relay != 1 && relay != 2 {
		return ingest.ErrInvalidRelay
	}
	return s.relays.PublishRelayCommand(ctx, relay, on)
}

// NightMode reports the night mode flag; unset means off.
func (s *DashboardService) NightMode(ctx context.Context) (bool, error) {
	v, err := s.docs.Get(ctx, NightModePath)
	if err != nil {
		return false, err
	}
	enabled, _ := v.(bool)
	return enabled, nil
}

// SetNightMode stores the night mode flag.
func (s *DashboardService) SetNightMode(ctx context.Context, enabled bool) error {
	return s.docs.Set(ctx, NightModePath, enabled)
}

// BatteryStatus returns the live battery document, nil when never reported.
func (s *DashboardService) BatteryStatus(ctx context.Context) (any, error) {
	return s.docs.Get(ctx, ingest.BatteryPath)
}

// Status returns the whole live status tree.
func (s *DashboardService) Status(ctx context.Context) (any, error) {
	return s.docs.Get(ctx, StatusPath)
}

// LatestBattery returns the newest stored reading, nil when none exist.
func (s *DashboardService) LatestBattery(ctx context.Context) (*models.BatteryReading, error) {
	return s.readings.Latest(ctx)
}

// BatteryHistory lists stored readings, newest first.
func (s *DashboardService) BatteryHistory(ctx context.Context, limit int) ([]models.BatteryReading, error) {
	return s.readings.List(ctx, limit)
}

// TelemetryHistory lists stored telemetry, newest first.
func (s *DashboardService) TelemetryHistory(ctx context.Context, limit int) ([]models.TelemetryRecord, error) {
	return s.telemetry.List(ctx, limit)
}

// StatusHistory lists stored status messages, newest first.
func (s *DashboardService) StatusHistory(ctx context.Context, limit int) ([]models.StatusRecord, error) {
	return s.statuses.List(ctx, limit)
}
