package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"solarx/backend/services/monitor-service/internal/auth"
	"solarx/backend/services/monitor-service/internal/docstore"
	"solarx/backend/services/monitor-service/internal/http/handlers"
	"solarx/backend/services/monitor-service/internal/http/middleware"
	"solarx/backend/services/monitor-service/internal/ingest"
	"solarx/backend/services/monitor-service/internal/models"
	"solarx/backend/services/monitor-service/internal/service"
)

var testNow = time.Date(2024, time.August, 1, 15, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

type memReadings struct{ rows []models.BatteryReading }

func (m *memReadings) ReadingsForPeriod(context.Context, int) ([]models.BatteryReading, error) {
	return m.rows, nil
}

func (m *memReadings) Latest(context.Context) (*models.BatteryReading, error) {
	if len(m.rows) == 0 {
		return nil, nil
	}
	r := m.rows[len(m.rows)-1]
	return &r, nil
}

func (m *memReadings) List(context.Context, int) ([]models.BatteryReading, error) {
	return m.rows, nil
}

type memTelemetry struct{}

func (memTelemetry) List(context.Context, int) ([]models.TelemetryRecord, error) {
	return []models.TelemetryRecord{{ID: 1, Data: json.RawMessage(`{"temp":30}`), CreatedAt: testNow}}, nil
}

type memStatus struct{}

func (memStatus) List(context.Context, int) ([]models.StatusRecord, error) {
	return []models.StatusRecord{{ID: 1, RawMessage: "Inverter_ON", CreatedAt: testNow}}, nil
}

type recordingPublisher struct {
	topic   string
	payload string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ byte, _ bool, payload []byte) error {
	p.topic, p.payload = topic, string(payload)
	return nil
}

type testEnv struct {
	handler   http.Handler
	docs      *docstore.MemoryStore
	publisher *recordingPublisher
	token     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	clock := func() time.Time { return testNow }

	docs := docstore.NewMemoryStore()
	pub := &recordingPublisher{}
	relays := ingest.NewRelayCommander(ingest.RelayTopics{Relay1: "solar/relay1", Relay2: "solar/relay2"}, pub, docs, logger)

	t0 := time.Date(2024, time.August, 1, 10, 0, 0, 0, time.UTC)
	readings := &memReadings{rows: []models.BatteryReading{
		{ID: 1, Percentage: ptr(60), Voltage: ptr(12), CreatedAt: t0},
		{ID: 2, Percentage: ptr(65), Voltage: ptr(12), CreatedAt: t0.Add(time.Hour)},
	}}
	dashboard := service.NewDashboardService(readings, memTelemetry{}, memStatus{}, relays, docs, service.Options{}, clock, logger)

	verifier, err := auth.NewSolarIDVerifier("SX-2342", bcrypt.MinCost)
	require.NoError(t, err)
	tokens := auth.NewTokenService("test-secret", time.Hour, nil)

	router := NewRouter(RouterDeps{
		Login:   handlers.NewLoginHandler(verifier, tokens, logger),
		Health:  handlers.NewHealthHandler(func() bool { return true }),
		Control: handlers.NewControlHandlers(dashboard, logger),
		Data:    handlers.NewDataHandlers(dashboard, logger),
		Energy:  handlers.NewEnergyHandlers(dashboard, logger),
	}, middleware.AuthMiddleware(tokens), middleware.RequestLogger(logger))

	env := &testEnv{handler: router, docs: docs, publisher: pub}

	rec := env.do(t, http.MethodPost, "/api/auth/login", `{"solarId":"SX-2342"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	env.token = login.Token
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

type dataEnvelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env dataEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)
	require.False(t, env.Timestamp.IsZero())
	if dst != nil {
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","mqtt":"connected"}`, rec.Body.String())
}

func TestLoginRejectsUnknownSolarID(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/auth/login", `{"solarId":"SX-1"}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/auth/login", `{}`, "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/auth/login", `{`, "").Code)
}

func TestRelayControl(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/relay/control", `{"relayNumber":1,"state":true}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/relay/control", `{"relayNumber":1,"state":true}`, env.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"Relay 1 turned ON"}`, rec.Body.String())
	assert.Equal(t, "solar/relay1", env.publisher.topic)
	assert.Equal(t, "ON", env.publisher.payload)

	v, err := env.docs.Get(context.Background(), "status/relay1/ON")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/relay/control", `{"relayNumber":3,"state":true}`, env.token).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/relay/control", `{"relayNumber":2}`, env.token).Code)
}

func TestNightMode(t *testing.T) {
	env := newTestEnv(t)

	var state map[string]bool
	decodeData(t, env.do(t, http.MethodGet, "/api/night-mode", "", ""), &state)
	assert.False(t, state["enabled"])

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/night-mode", `{"enabled":true}`, "").Code)
	decodeData(t, env.do(t, http.MethodPost, "/api/night-mode", `{"enabled":true}`, env.token), &state)
	assert.True(t, state["enabled"])

	decodeData(t, env.do(t, http.MethodGet, "/api/night-mode", "", ""), &state)
	assert.True(t, state["enabled"])
}

func TestDataEndpoints(t *testing.T) {
	env := newTestEnv(t)

	var battery []models.BatteryReading
	decodeData(t, env.do(t, http.MethodGet, "/api/data/battery?limit=5", "", ""), &battery)
	assert.Len(t, battery, 2)

	var latest models.BatteryReading
	decodeData(t, env.do(t, http.MethodGet, "/api/data/battery/latest", "", ""), &latest)
	assert.Equal(t, int64(2), latest.ID)

	var telemetry []models.TelemetryRecord
	decodeData(t, env.do(t, http.MethodGet, "/api/historical/telemetry", "", ""), &telemetry)
	require.Len(t, telemetry, 1)
	assert.JSONEq(t, `{"temp":30}`, string(telemetry[0].Data))

	var statuses []models.StatusRecord
	decodeData(t, env.do(t, http.MethodGet, "/api/data/status", "", ""), &statuses)
	assert.Equal(t, "Inverter_ON", statuses[0].RawMessage)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/historical/alerts", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/data/battery?limit=-1", "", "").Code)
}

func TestRealtimeEndpoints(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.docs.Update(context.Background(), "status/battery", map[string]any{"percentage": 64}))

	for _, path := range []string{"/api/firebase/battery", "/api/realtime/battery"} {
		var battery map[string]float64
		decodeData(t, env.do(t, http.MethodGet, path, "", ""), &battery)
		assert.Equal(t, 64.0, battery["percentage"], path)
	}

	var status map[string]any
	decodeData(t, env.do(t, http.MethodGet, "/api/realtime/status", "", ""), &status)
	assert.Contains(t, status, "battery")

	var devices []models.Device
	decodeData(t, env.do(t, http.MethodGet, "/api/devices", "", ""), &devices)
	require.Len(t, devices, 1)
	assert.Equal(t, "battery", devices[0].ID)
}

func TestAlertsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var alerts []models.Alert
	decodeData(t, env.do(t, http.MethodGet, "/api/alerts", "", ""), &alerts)
	assert.Empty(t, alerts)

	for i, id := range []string{"a", "b", "c", "d", "e", "f"} {
		require.NoError(t, env.docs.Set(ctx, "alerts/"+id, map[string]any{
			"title":     "alert " + id,
			"timestamp": testNow.Add(time.Duration(i) * time.Minute).UnixMilli(),
		}))
	}

	decodeData(t, env.do(t, http.MethodGet, "/api/alerts", "", ""), &alerts)
	require.Len(t, alerts, 5)
	assert.Equal(t, "b", alerts[0].ID)
	assert.Equal(t, "f", alerts[4].ID)

	decodeData(t, env.do(t, http.MethodGet, "/api/alerts?limit=1", "", ""), &alerts)
	require.Len(t, alerts, 1)
	assert.Equal(t, "alert f", alerts[0].Data["title"])

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/alerts?limit=x", "", "").Code)
}

func TestEnergyEndpoints(t *testing.T) {
	env := newTestEnv(t)

	var production struct {
		Points []struct {
			Time  string  `json:"time"`
			Value float64 `json:"value"`
		} `json:"points"`
		Fallback bool `json:"fallback"`
	}
	decodeData(t, env.do(t, http.MethodGet, "/api/energy/production", "", ""), &production)
	require.False(t, production.Fallback)
	require.Len(t, production.Points, 24)
	assert.Equal(t, "11 AM", production.Points[11].Time)
	assert.InDelta(t, 0.06, production.Points[11].Value, 1e-9)

	var history []map[string]any
	decodeData(t, env.do(t, http.MethodGet, "/api/energy/history?range=week", "", ""), &history)
	require.Len(t, history, 1)
	assert.Equal(t, "Aug 1", history[0]["month"])
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/energy/history?range=century", "", "").Code)
}

func TestEnergyEstimate(t *testing.T) {
	env := newTestEnv(t)
	body := `[
		{"percentage":60,"voltage":12,"createdAt":"2024-08-01T09:00:00Z"},
		{"percentage":null,"voltage":null,"createdAt":"yesterday"},
		{"percentage":65,"voltage":12,"createdAt":"2024-08-01T10:00:00.000Z"}
	]`

	var profile struct {
		Points   []map[string]any `json:"points"`
		Fallback bool             `json:"fallback"`
	}
	decodeData(t, env.do(t, http.MethodPost, "/api/energy/estimate", body, ""), &profile)
	require.False(t, profile.Fallback)
	require.Len(t, profile.Points, 24)
	assert.InDelta(t, 0.06, profile.Points[10]["value"], 1e-9)

	decodeData(t, env.do(t, http.MethodPost, "/api/energy/estimate", `[]`, ""), &profile)
	assert.True(t, profile.Fallback)
	assert.Len(t, profile.Points, 8)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/energy/estimate", `{"a":1}`, "").Code)
}

func TestNotFoundAndMethod(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())

	rec = env.do(t, http.MethodDelete, "/api/devices", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"error":"method not allowed"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodGet, "/api/relay/control", "", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodPut, "/api/night-mode", "", env.token).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodGet, "/api/energy/estimate", "", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodGet, "/api/auth/login", "", "").Code)
}
