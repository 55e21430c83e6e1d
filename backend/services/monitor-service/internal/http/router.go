package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"solarx/backend/services/monitor-service/internal/http/handlers"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Login   http.HandlerFunc
	Health  http.HandlerFunc
	Control *handlers.ControlHandlers
	Data    *handlers.DataHandlers
	Energy  *handlers.EnergyHandlers
	// StatusStream serves the websocket feed; optional.
	StatusStream http.HandlerFunc
}

// NewRouter wires HTTP routes with middleware.
func NewRouter(deps RouterDeps, authMiddleware, requestLogger func(http.Handler) http.Handler) http.Handler {
	r := mux.NewRouter()
	if requestLogger != nil {
		r.Use(mux.MiddlewareFunc(requestLogger))
	}

	r.HandleFunc("/health", deps.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/login", deps.Login).Methods(http.MethodPost)

	// Full paths on the root router: a /api subrouter loses the 405 for a
	// wrong method once a later sibling route matches the shared prefix.
	r.HandleFunc("/api/night-mode", deps.Control.NightMode).Methods(http.MethodGet)

	r.HandleFunc("/api/data/telemetry", deps.Data.Telemetry).Methods(http.MethodGet)
	r.HandleFunc("/api/data/status", deps.Data.Status).Methods(http.MethodGet)
	r.HandleFunc("/api/data/battery", deps.Data.Battery).Methods(http.MethodGet)
	r.HandleFunc("/api/data/battery/latest", deps.Data.LatestBattery).Methods(http.MethodGet)
	for _, prefix := range []string{"/api/realtime", "/api/firebase"} {
		r.HandleFunc(prefix+"/battery", deps.Data.RealtimeBattery).Methods(http.MethodGet)
		r.HandleFunc(prefix+"/status", deps.Data.RealtimeStatus).Methods(http.MethodGet)
	}
	r.HandleFunc("/api/historical/{type}", deps.Data.Historical).Methods(http.MethodGet)
	r.HandleFunc("/api/devices", deps.Data.Devices).Methods(http.MethodGet)
	r.HandleFunc("/api/alerts", deps.Data.Alerts).Methods(http.MethodGet)

	r.HandleFunc("/api/energy/production", deps.Energy.Production).Methods(http.MethodGet)
	r.HandleFunc("/api/energy/history", deps.Energy.History).Methods(http.MethodGet)
	r.HandleFunc("/api/energy/estimate", deps.Energy.Estimate).Methods(http.MethodPost)

	// Mutating controls require a token.
	r.Handle("/api/relay/control", authMiddleware(http.HandlerFunc(deps.Control.Relay))).Methods(http.MethodPost)
	r.Handle("/api/night-mode", authMiddleware(http.HandlerFunc(deps.Control.SetNightMode))).Methods(http.MethodPost)

	if deps.StatusStream != nil {
		r.HandleFunc("/ws/status", deps.StatusStream).Methods(http.MethodGet)
	}

	r.NotFoundHandler = jsonError(http.StatusNotFound, `{"error":"not found"}`)
	r.MethodNotAllowedHandler = jsonError(http.StatusMethodNotAllowed, `{"error":"method not allowed"}`)
	return r
}

func jsonError(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}
