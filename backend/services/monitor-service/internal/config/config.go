package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "solarx/backend/libs/config"
)

// Docstore backends.
const (
	DocstoreMemory = "memory"
	DocstoreRedis  = "redis"
)

// Config defines monitor service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"PORT"`
	} `yaml:"http"`
	Database struct {
		Driver string `yaml:"driver" env:"DATABASE_DRIVER"`
		DSN    string `yaml:"dsn" env:"DATABASE_DSN"`
	} `yaml:"database"`
	Docstore struct {
		Backend       string `yaml:"backend" env:"DOCSTORE_BACKEND"`
		Key           string `yaml:"key" env:"DOCSTORE_KEY"`
		RedisAddr     string `yaml:"redisAddr" env:"REDIS_ADDR"`
		RedisPassword string `yaml:"redisPassword" env:"REDIS_PASSWORD"`
		RedisDB       int    `yaml:"redisDb" env:"REDIS_DB"`
	} `yaml:"docstore"`
	MQTT struct {
		BrokerURL string `yaml:"brokerUrl" env:"MQTT_BROKER_URL"`
		ClientID  string `yaml:"clientId" env:"MQTT_CLIENT_ID"`
		Username  string `yaml:"username" env:"MQTT_USERNAME"`
		Password  string `yaml:"password" env:"MQTT_PASSWORD"`
		QoS       int    `yaml:"qos" env:"MQTT_QOS"`
	} `yaml:"mqtt"`
	Topics struct {
		Telemetry string `yaml:"telemetry" env:"TELEMETRY_TOPIC"`
		Status    string `yaml:"status" env:"STATUS_TOPIC"`
		Battery   string `yaml:"battery" env:"BATTERY_TOPIC"`
		Voltage   string `yaml:"voltage" env:"VOLTAGE_TOPIC"`
		Relay1    string `yaml:"relay1" env:"RELAY1_TOPIC"`
		Relay2    string `yaml:"relay2" env:"RELAY2_TOPIC"`
	} `yaml:"topics"`
	Auth struct {
		SolarID   string             `yaml:"solarId" env:"SOLAR_ID"`
		JWTSecret string             `yaml:"jwtSecret" env:"JWT_SECRET"`
		TokenTTL  libconfig.Duration `yaml:"tokenTtl" env:"JWT_TTL"`
	} `yaml:"auth"`
	Energy struct {
		LookbackDays    int                `yaml:"lookbackDays" env:"ENERGY_LOOKBACK_DAYS"`
		RefreshInterval libconfig.Duration `yaml:"refreshInterval" env:"ENERGY_REFRESH_INTERVAL"`
		Timezone        string             `yaml:"timezone" env:"SOLARX_TIMEZONE"`
	} `yaml:"energy"`
	WebSocket struct {
		PingInterval libconfig.Duration `yaml:"pingInterval" env:"WS_PING_INTERVAL"`
		WriteTimeout libconfig.Duration `yaml:"writeTimeout" env:"WS_WRITE_TIMEOUT"`
	} `yaml:"websocket"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Port = "3000"
	cfg.Database.Driver = "postgres"
	cfg.Docstore.Backend = DocstoreMemory
	cfg.Docstore.Key = "solarx:doc"
	cfg.MQTT.QoS = 0
	cfg.Topics.Telemetry = "solar/telemetry"
	cfg.Topics.Status = "solar/status"
	cfg.Topics.Battery = "solar/battery"
	cfg.Topics.Voltage = "solar/voltage"
	cfg.Topics.Relay1 = "solar/relay1"
	cfg.Topics.Relay2 = "solar/relay2"
	cfg.Auth.TokenTTL = libconfig.Duration(24 * time.Hour)
	cfg.Energy.LookbackDays = 7
	cfg.Energy.RefreshInterval = libconfig.Duration(15 * time.Minute)
	cfg.WebSocket.PingInterval = libconfig.Duration(30 * time.Second)
	cfg.WebSocket.WriteTimeout = libconfig.Duration(10 * time.Second)
	return cfg
}

// Load uses shared config loader and validates required fields.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings needed by every command.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn is required")
	}
	switch c.Docstore.Backend {
	case DocstoreMemory:
	case DocstoreRedis:
		if strings.TrimSpace(c.Docstore.RedisAddr) == "" {
			return errors.New("config: redis addr is required for the redis docstore")
		}
	default:
		return fmt.Errorf("config: unknown docstore backend %q", c.Docstore.Backend)
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("config: mqtt qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// ValidateServe checks settings only the long running server needs.
func (c *Config) ValidateServe() error {
	if strings.TrimSpace(c.MQTT.BrokerURL) == "" {
		return errors.New("config: mqtt broker url is required")
	}
	if strings.TrimSpace(c.Auth.SolarID) == "" {
		return errors.New("config: solar id is required")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("config: jwt secret is required")
	}
	return nil
}

// HTTPAddress returns :port style address.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "3000"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// Location resolves the time zone used for daily and hourly buckets.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Energy.Timezone)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", name, err)
	}
	return loc, nil
}
