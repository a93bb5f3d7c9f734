package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100, cfg.Queue.BufferSize)
	assert.Equal(t, 5, cfg.Queue.WorkerCount)
	assert.Equal(t, 10, cfg.Queue.PerUserPerMinute)
	assert.Equal(t, "https://api.resend.com", cfg.Mail.BaseURL)
	assert.Equal(t, "monthly_reports", cfg.Analytics.Table)
	assert.False(t, cfg.Insights.Disabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("QUEUE_WORKER_COUNT", "12")
	t.Setenv("QUEUE_USER_RATE_LIMIT", "3")
	t.Setenv("INSIGHTS_DISABLED", "true")
	t.Setenv("REPORT_ARCHIVE_BUCKET", "pennyflow-reports")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, 12, cfg.Queue.WorkerCount)
	assert.Equal(t, 3, cfg.Queue.PerUserPerMinute)
	assert.True(t, cfg.Insights.Disabled)
	assert.Equal(t, "pennyflow-reports", cfg.Archive.Bucket)
}
