package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when a login presents the wrong Solar ID.
var ErrInvalidCredentials = errors.New("auth: invalid solar id")

// SolarIDVerifier checks login attempts against the installation's Solar ID.
// Only the bcrypt hash is kept after construction.
type SolarIDVerifier struct {
	hash []byte
}

// NewSolarIDVerifier hashes the configured Solar ID. cost 0 means bcrypt.DefaultCost.
func NewSolarIDVerifier(solarID string, cost int) (*SolarIDVerifier, error) {
	solarID = strings.TrimSpace(solarID)
	if solarID == "" {
		return nil, errors.New("auth: solar id is required")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(solarID), cost)
	if err != nil {
		return nil, err
	}
	return &SolarIDVerifier{hash: hash}, nil
}

// Verify compares a presented Solar ID with the stored hash.
func (v *SolarIDVerifier) Verify(solarID string) error {
	solarID = strings.TrimSpace(solarID)
	if solarID == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(solarID)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
