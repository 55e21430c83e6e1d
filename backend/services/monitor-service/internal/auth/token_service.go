package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the JWT payload issued to dashboard sessions.
type Claims struct {
	SolarID string `json:"solar_id"`
	jwt.RegisteredClaims
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret    []byte
	expiresIn time.Duration
	now       func() time.Time
}

// NewTokenService returns configured token service.
func NewTokenService(secret string, expiresIn time.Duration, now func() time.Time) *TokenService {
	if expiresIn <= 0 {
		expiresIn = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &TokenService{secret: []byte(secret), expiresIn: expiresIn, now: now}
}

// GenerateToken issues a JWT for the installation.
func (t *TokenService) GenerateToken(solarID string) (string, time.Time, error) {
	if solarID == "" {
		return "", time.Time{}, errors.New("token: solar id is required")
	}

	now := t.now().UTC()
	expires := now.Add(t.expiresIn)
	claims := Claims{
		SolarID: solarID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   solarID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ValidateToken verifies and decodes JWT.
func (t *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("token: unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.SolarID != "" {
		return claims, nil
	}

	return nil, errors.New("token: invalid claims")
}
