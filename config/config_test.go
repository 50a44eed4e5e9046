package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leavebot/config"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := config.New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, config.BackendSQLite, cfg.StateBackend)
	assert.Equal(t, 8, cfg.DefaultDailyHours)
	assert.Equal(t, "09:00", cfg.WorkStart)
	assert.Equal(t, "https://api.line.me", cfg.LineAPIBase)
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval)
	assert.Equal(t, "Asia/Taipei", cfg.Location().String())
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("LEAVEBOT_STATE_BACKEND", "Redis")
	t.Setenv("LEAVEBOT_DEFAULT_DAILY_HOURS", "7")
	t.Setenv("LEAVEBOT_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := config.New()
	require.NoError(t, err)
	assert.Equal(t, config.BackendRedis, cfg.StateBackend)
	assert.Equal(t, 7, cfg.DefaultDailyHours)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestNew_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"LEAVEBOT_STATE_BACKEND":       "etcd",
		"LEAVEBOT_DEFAULT_DAILY_HOURS": "0",
		"LEAVEBOT_TIMEZONE":            "Mars/Olympus",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			_, err := config.New()
			assert.Error(t, err)
		})
	}
}
