package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/distro")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("LOCK_TTL", "45s")
	t.Setenv("RECONCILE_BATCH", "100")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/distro", cfg.Database.DSN)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, int32(2), cfg.Database.MinConns)
	assert.Equal(t, 45*time.Second, cfg.Lock.TTL)
	assert.Equal(t, "lock:", cfg.Lock.Prefix)
	assert.Equal(t, 100, cfg.ReconcileBatch)
	assert.Equal(t, 10*time.Minute, cfg.ReconcileInterval)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.Development())
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing dsn", env: map[string]string{}},
		{name: "zero interval", env: map[string]string{"DATABASE_URL": "x", "RECONCILE_INTERVAL": "0s"}},
		{name: "negative aging", env: map[string]string{"DATABASE_URL": "x", "AGING_INTERVAL": "-1m"}},
		{name: "zero batch", env: map[string]string{"DATABASE_URL": "x", "RECONCILE_BATCH": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("DISTRO_TEST_INT", "not-a-number")
	t.Setenv("DISTRO_TEST_DURATION", "soon")

	assert.Equal(t, 7, getEnvInt("DISTRO_TEST_INT", 7))
	assert.Equal(t, time.Second, getEnvDuration("DISTRO_TEST_DURATION", time.Second))
	assert.Equal(t, "fallback", getEnv("DISTRO_TEST_UNSET", "fallback"))
}
