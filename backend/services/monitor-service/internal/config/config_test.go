package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("DATABASE_DSN", "file::memory:")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("BATTERY_TOPIC", "home/battery")
	t.Setenv("ENERGY_REFRESH_INTERVAL", "PT5M")
	t.Setenv("PORT", "8080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddress())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "home/battery", cfg.Topics.Battery)
	assert.Equal(t, "solar/voltage", cfg.Topics.Voltage)
	assert.Equal(t, 5*time.Minute, cfg.Energy.RefreshInterval.Std())
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL.Std())
	assert.Equal(t, DocstoreMemory, cfg.Docstore.Backend)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.Validate())

	cfg.Database.DSN = "postgres://localhost/solarx"
	require.NoError(t, cfg.Validate())

	cfg.Docstore.Backend = DocstoreRedis
	require.Error(t, cfg.Validate())
	cfg.Docstore.RedisAddr = "localhost:6379"
	require.NoError(t, cfg.Validate())

	cfg.Energy.Timezone = "Mars/Olympus"
	require.Error(t, cfg.Validate())
	cfg.Energy.Timezone = "UTC"
	require.NoError(t, cfg.Validate())

	require.Error(t, cfg.ValidateServe())
	cfg.MQTT.BrokerURL = "mqtt://localhost:1883"
	cfg.Auth.SolarID = "SX-2342"
	cfg.Auth.JWTSecret = "s3cret"
	require.NoError(t, cfg.ValidateServe())
}
