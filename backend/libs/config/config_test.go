package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	HTTP struct {
		Port string `yaml:"port" env:"SAMPLE_HTTP_PORT"`
	} `yaml:"http"`
	Energy struct {
		LookbackDays    int      `yaml:"lookbackDays"`
		RefreshInterval Duration `yaml:"refreshInterval"`
	} `yaml:"energy"`
	Topics []string `yaml:"topics" env:"SAMPLE_TOPICS"`
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: "9000"
energy:
  lookbackDays: 3
  refreshInterval: PT30M
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SAMPLE_HTTP_PORT", "9100")
	t.Setenv("ENERGY_LOOKBACKDAYS", "5")
	t.Setenv("SAMPLE_TOPICS", "solar/battery, solar/voltage,")

	var cfg sampleConfig
	require.NoError(t, LoadConfig(&cfg))

	assert.Equal(t, "9100", cfg.HTTP.Port)
	assert.Equal(t, 5, cfg.Energy.LookbackDays)
	assert.Equal(t, 30*time.Minute, cfg.Energy.RefreshInterval.Std())
	assert.Equal(t, []string{"solar/battery", "solar/voltage"}, cfg.Topics)
}

func TestLoadConfigDurationFromEnv(t *testing.T) {
	t.Setenv("ENERGY_REFRESHINTERVAL", "P1D")

	var cfg sampleConfig
	require.NoError(t, LoadConfig(&cfg))
	assert.Equal(t, 24*time.Hour, cfg.Energy.RefreshInterval.Std())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("ENERGY_LOOKBACKDAYS", "seven")

	var cfg sampleConfig
	err := LoadConfig(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENERGY_LOOKBACKDAYS")
}

func TestLoadConfigTargetValidation(t *testing.T) {
	require.Error(t, LoadConfig(nil))
	require.Error(t, LoadConfig(sampleConfig{}))
}

func TestDurationAcceptsGoSyntax(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Std())

	require.Error(t, d.UnmarshalText([]byte("PXQ")))
}
