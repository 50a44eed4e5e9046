// Package config loads the service configuration from LEAVEBOT_* variables.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

// State backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config holds every runtime setting.
// Environment variables are parsed with the LEAVEBOT_ prefix, e.g. LEAVEBOT_PORT.
type Config struct {
	// HTTP
	Port        int      `envconfig:"PORT" default:"8080"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000"`

	// Storage
	DBPath        string `envconfig:"DB_PATH" default:"leavebot.db"`
	StateBackend  string `envconfig:"STATE_BACKEND" default:"sqlite"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	MongoURI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"leavebot"`

	// LINE
	ChannelAccessToken string        `envconfig:"LINE_CHANNEL_ACCESS_TOKEN"`
	ChannelSecret      string        `envconfig:"LINE_CHANNEL_SECRET"`
	LineAPIBase        string        `envconfig:"LINE_API_BASE" default:"https://api.line.me"`
	LineTimeout        time.Duration `envconfig:"LINE_TIMEOUT" default:"10s"`
	NotifyTargetID     string        `envconfig:"NOTIFY_TARGET_ID"`

	// Leave rules
	DefaultDailyHours int    `envconfig:"DEFAULT_DAILY_HOURS" default:"8"`
	WorkStart         string `envconfig:"WORK_START" default:"09:00"`
	WorkEnd           string `envconfig:"WORK_END" default:"18:00"`
	Timezone          string `envconfig:"TIMEZONE" default:"Asia/Taipei"`
	AppURL            string `envconfig:"APP_URL"`

	// Ops
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string        `envconfig:"LOG_FORMAT" default:"json"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"10m"`
}

// New parses the environment and validates the result.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("LEAVEBOT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	c.StateBackend = strings.ToLower(strings.TrimSpace(c.StateBackend))
	switch c.StateBackend {
	case BackendSQLite, BackendRedis, BackendMongo:
	default:
		return fmt.Errorf("unsupported STATE_BACKEND: %s", c.StateBackend)
	}
	if c.DefaultDailyHours <= 0 || c.DefaultDailyHours > 24 {
		return fmt.Errorf("DEFAULT_DAILY_HOURS out of range: %d", c.DefaultDailyHours)
	}
	if c.Port <= 0 {
		return fmt.Errorf("invalid PORT: %d", c.Port)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
