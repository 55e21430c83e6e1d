package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"solarx/backend/services/monitor-service/internal/docstore"
	"solarx/backend/services/monitor-service/internal/models"
)

var (
	// ErrInvalidNumber is returned for battery or voltage payloads that are not numbers.
	ErrInvalidNumber = errors.New("ingest: invalid number")
	// ErrInvalidTelemetry is returned for telemetry payloads that are not JSON.
	ErrInvalidTelemetry = errors.New("ingest: invalid telemetry json")
)

// BatteryPath is the document holding the live battery state.
const BatteryPath = "status/battery"

// lastUpdated mirrors JavaScript's Date.toISOString.
const lastUpdatedLayout = "2006-01-02T15:04:05.000Z07:00"

// Topics names the inbound MQTT topics.
type Topics struct {
	Telemetry string `yaml:"telemetry" env:"TELEMETRY_TOPIC"`
	Status    string `yaml:"status" env:"STATUS_TOPIC"`
	Battery   string `yaml:"battery" env:"BATTERY_TOPIC"`
	Voltage   string `yaml:"voltage" env:"VOLTAGE_TOPIC"`
}

// List returns the configured topics, skipping empty ones.
func (t Topics) List() []string {
	var out []string
	for _, topic := range []string{t.Telemetry, t.Status, t.Battery, t.Voltage} {
		if topic != "" {
			out = append(out, topic)
		}
	}
	return out
}

// TelemetryStore persists telemetry documents.
type TelemetryStore interface {
	Insert(ctx context.Context, record *models.TelemetryRecord) error
}

// StatusStore persists status messages.
type StatusStore interface {
	Insert(ctx context.Context, record *models.StatusRecord) error
}

// BatteryStore persists battery samples.
type BatteryStore interface {
	Insert(ctx context.Context, reading *models.BatteryReading) error
	UpdateVoltage(ctx context.Context, id int64, voltage float64) error
	Latest(ctx context.Context) (*models.BatteryReading, error)
}

// Dispatcher routes inbound device messages to the relational and document stores.
type Dispatcher struct {
	topics    Topics
	telemetry TelemetryStore
	status    StatusStore
	battery   BatteryStore
	docs      docstore.Store
	now       func() time.Time
	logger    *zap.Logger
}

// NewDispatcher builds a dispatcher. now nil means time.Now.
func NewDispatcher(topics Topics, telemetry TelemetryStore, status StatusStore, battery BatteryStore, docs docstore.Store, now func() time.Time, logger *zap.Logger) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		topics:    topics,
		telemetry: telemetry,
		status:    status,
		battery:   battery,
		docs:      docs,
		now:       now,
		logger:    logger,
	}
}

// Topics returns the topics the dispatcher handles.
func (d *Dispatcher) Topics() []string {
	return d.topics.List()
}

// Dispatch handles one message. Messages on unknown topics are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, payload []byte) error {
	switch topic {
	case "":
		return nil
	case d.topics.Telemetry:
		return d.handleTelemetry(ctx, payload)
	case d.topics.Status:
		return d.handleStatus(ctx, string(payload))
	case d.topics.Battery:
		return d.handleBattery(ctx, string(payload))
	case d.topics.Voltage:
		return d.handleVoltage(ctx, string(payload))
	default:
		d.logger.Debug("ignoring message on unknown topic", zap.String("topic", topic))
		return nil
	}
}

func (d *Dispatcher) handleTelemetry(ctx context.Context, payload []byte) error {
	if !json.Valid(payload) {
		return ErrInvalidTelemetry
	}
	record := &models.TelemetryRecord{Data: json.RawMessage(payload), CreatedAt: d.now()}
	if err := d.telemetry.Insert(ctx, record); err != nil {
		return fmt.Errorf("store telemetry: %w", err)
	}
	d.logger.Debug("telemetry stored", zap.Int64("id", record.ID))
	return nil
}

func (d *Dispatcher) handleStatus(ctx context.Context, raw string) error {
	record := &models.StatusRecord{RawMessage: raw, CreatedAt: d.now()}
	status, parseErr := ParseStatus(raw)
	if parseErr == nil {
		if status.Device != "" {
			record.Device = &status.Device
		}
		record.Action = &status.Action
		record.Value = &status.Value
	}

	if err := d.status.Insert(ctx, record); err != nil {
		return fmt.Errorf("store status: %w", err)
	}
	if parseErr != nil {
		d.logger.Warn("status stored without parts", zap.String("message", raw))
		return nil
	}

	if err := d.docs.Set(ctx, status.Path(), status.DocumentValue()); err != nil {
		return fmt.Errorf("mirror status %s: %w", status.Path(), err)
	}
	return nil
}

func (d *Dispatcher) handleBattery(ctx context.Context, raw string) error {
	percentage, err := parseNumber(raw)
	if err != nil {
		return err
	}

	now := d.now()
	if err := d.battery.Insert(ctx, &models.BatteryReading{Percentage: &percentage, CreatedAt: now}); err != nil {
		return fmt.Errorf("store battery percentage: %w", err)
	}
	return d.updateBatteryDocument(ctx, map[string]any{
		"percentage":  percentage,
		"lastUpdated": now.UTC().Format(lastUpdatedLayout),
	})
}

func (d *Dispatcher) handleVoltage(ctx context.Context, raw string) error {
	voltage, err := parseNumber(raw)
	if err != nil {
		return err
	}

	now := d.now()
	latest, err := d.battery.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load latest battery reading: %w", err)
	}
	if latest != nil {
		err = d.battery.UpdateVoltage(ctx, latest.ID, voltage)
	} else {
		err = d.battery.Insert(ctx, &models.BatteryReading{Voltage: &voltage, CreatedAt: now})
	}
	if err != nil {
		return fmt.Errorf("store battery voltage: %w", err)
	}

	update := map[string]any{
		"voltage":     voltage,
		"lastUpdated": now.UTC().Format(lastUpdatedLayout),
	}
	if latest != nil && latest.Percentage != nil {
		update["percentage"] = *latest.Percentage
	}
	return d.updateBatteryDocument(ctx, update)
}

func (d *Dispatcher) updateBatteryDocument(ctx context.Context, update map[string]any) error {
	if err := d.docs.Update(ctx, BatteryPath, update); err != nil {
		return fmt.Errorf("mirror battery status: %w", err)
	}
	return nil
}

func parseNumber(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	return value, nil
}
