package handlers

import (
	"net/http"
)

// NewHealthHandler returns GET /health handler. brokerConnected may be nil.
func NewHealthHandler(brokerConnected func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok"}
		if brokerConnected != nil {
			body["mqtt"] = "disconnected"
			if brokerConnected() {
				body["mqtt"] = "connected"
			}
		}
		writeJSON(w, http.StatusOK, body)
	}
}
