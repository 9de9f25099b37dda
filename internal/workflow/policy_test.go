package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPolicyDefaults(t *testing.T) {
	p, err := LoadPolicy()
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)
	assert.Equal(t, 60*time.Second, p.PollInterval)
	assert.Equal(t, uint(100), p.StatusRetry.MaxAttempts)
	assert.Equal(t, 5*time.Second, p.StatusRetry.InitialInterval)
	assert.Equal(t, 2.0, p.StatusRetry.Multiplier)
	assert.Greater(t, p.RunTimeout, p.ParallelTimeout)
}

func TestLoadPolicyOverrides(t *testing.T) {
	t.Setenv("TEXT_POLL_INTERVAL", "10s")
	t.Setenv("STATUS_RETRY_ATTEMPTS", "7")
	t.Setenv("STATUS_RETRY_MULTIPLIER", "1.5")
	t.Setenv("RUN_TIMEOUT", "1h")

	p, err := LoadPolicy()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, p.PollInterval)
	assert.Equal(t, uint(7), p.StatusRetry.MaxAttempts)
	assert.Equal(t, 1.5, p.StatusRetry.Multiplier)
	assert.Equal(t, time.Hour, p.RunTimeout)
}

func TestLoadPolicyRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"STATUS_RETRY_ATTEMPTS":   "0",
		"STATUS_RETRY_MULTIPLIER": "0.5",
		"SUBMIT_RETRY_ATTEMPTS":   "x",
		"STAGE_RETRY_ATTEMPTS":    "0",
		"PARALLEL_TIMEOUT":        "2h",
		"STAGE_TIMEOUT":           "0s",
		"TEXT_POLL_INTERVAL":      "-1s",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := LoadPolicy()
			assert.Error(t, err)
		})
	}
}
