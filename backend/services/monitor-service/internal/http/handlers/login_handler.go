package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"solarx/backend/services/monitor-service/internal/auth"
)

// NewLoginHandler handles POST /api/auth/login.
func NewLoginHandler(verifier *auth.SolarIDVerifier, tokens *auth.TokenService, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		SolarID string `json:"solarId"`
	}
	type response struct {
		Token     string    `json:"token"`
		TokenType string    `json:"token_type"`
		ExpiresAt time.Time `json:"expires_at"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		req.SolarID = strings.TrimSpace(req.SolarID)
		if req.SolarID == "" {
			writeError(w, http.StatusBadRequest, "solarId is required")
			return
		}

		if err := verifier.Verify(req.SolarID); err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "invalid solar id")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to login")
			return
		}

		token, expires, err := tokens.GenerateToken(req.SolarID)
		if err != nil {
			logger.Error("failed to issue token", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to login")
			return
		}

		writeJSON(w, http.StatusOK, response{
			Token:     token,
			TokenType: "Bearer",
			ExpiresAt: expires,
		})
	}
}
