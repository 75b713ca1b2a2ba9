package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-service/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LIFECYCLE_TIMEZONE", "")
	t.Setenv("LIFECYCLE_DASHBOARD_CACHE_SECONDS", "")
	t.Setenv("APP_PORT", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, "UTC", cfg.Lifecycle.Timezone)
	assert.Equal(t, 30*time.Second, cfg.Lifecycle.DashboardCacheTTL())
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("LIFECYCLE_TIMEZONE", "Mars/Olympus_Mons")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LIFECYCLE_TIMEZONE")
}

func TestLifecycleDurations(t *testing.T) {
	t.Parallel()

	cfg := config.LifecycleConfig{RecoveryIntervalSeconds: 0, DashboardCacheSeconds: -1}
	assert.Zero(t, cfg.RecoveryInterval())
	assert.Zero(t, cfg.DashboardCacheTTL())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}
