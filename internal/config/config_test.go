package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearWorkerEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"APP_ENV", "AUTH_JWT_SECRET", "NOTIFICATION_RETENTION_DAYS", "NOTIFICATION_SWEEP_INTERVAL_MINUTES"} {
		t.Setenv(key, "")
	}
}

func TestNotificationRetentionIsOptIn(t *testing.T) {
	clearWorkerEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Zero(t, cfg.Worker.NotificationRetentionDays)
	assert.Zero(t, cfg.Worker.Retention())
	assert.Equal(t, time.Hour, cfg.Worker.SweepInterval())
}

func TestNotificationRetentionFromEnv(t *testing.T) {
	clearWorkerEnv(t)
	t.Setenv("NOTIFICATION_RETENTION_DAYS", "30")
	t.Setenv("NOTIFICATION_SWEEP_INTERVAL_MINUTES", "15")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, cfg.Worker.Retention())
	assert.Equal(t, 15*time.Minute, cfg.Worker.SweepInterval())
}

func TestProductionRequiresJWTSecret(t *testing.T) {
	clearWorkerEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	assert.Error(t, err)
}
