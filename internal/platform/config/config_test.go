package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 72*time.Hour, cfg.Approval.TokenTTL)
	assert.False(t, cfg.Approval.LockAfterDecision)
	assert.Equal(t, 50.0, cfg.Evidence.LowAccuracyThresholdM)
	assert.Equal(t, 0, cfg.Audit.BufferSize)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("OT_ADDR", ":9090")
	t.Setenv("APPROVAL_TOKEN_TTL", "24h")
	t.Setenv("LOCK_AFTER_DECISION", "true")
	t.Setenv("LOW_ACCURACY_THRESHOLD_M", "75.5")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Approval.TokenTTL)
	assert.True(t, cfg.Approval.LockAfterDecision)
	assert.Equal(t, 75.5, cfg.Evidence.LowAccuracyThresholdM)
}

func TestFromEnvErrors(t *testing.T) {
	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("APPROVAL_TOKEN_TTL", "three days")
		_, err := FromEnv()
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "parse env:"))
	})

	t.Run("non-positive ttl", func(t *testing.T) {
		t.Setenv("APPROVAL_TOKEN_TTL", "0s")
		_, err := FromEnv()
		require.Error(t, err)
	})
}
