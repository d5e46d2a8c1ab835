package agentbridge

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigString(t *testing.T) {
	config, err := LoadConfigString(`
log_level: debug
callback:
  max_attempts: 5
  base_delay: 100ms
  max_delay: 2s
approval:
  step_name: refund-gate
  event_type: refund-decision
  timeout: 1m30s
`)
	require.NoError(t, err)

	level, err := config.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	retryOpts := config.RetryOptions()
	assert.Equal(t, 5, retryOpts.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, retryOpts.BaseDelay)
	assert.Equal(t, 2*time.Second, retryOpts.MaxDelay)

	approvalOpts := config.ApprovalOptions()
	assert.Equal(t, "refund-gate", approvalOpts.StepName)
	assert.Equal(t, "refund-decision", approvalOpts.EventType)
	assert.Equal(t, 90*time.Second, approvalOpts.Timeout)
}

func TestLoadConfigStringDefaults(t *testing.T) {
	config, err := LoadConfigString("")
	require.NoError(t, err)

	level, err := config.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	// Zero retry fields resolve to the retry package defaults.
	assert.Zero(t, config.RetryOptions().MaxAttempts)
	assert.Empty(t, config.ApprovalOptions().StepName)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	level, err := config.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfigStringInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "malformed yaml",
			yaml: "log_level: [unclosed",
			want: "failed to unmarshal config",
		},
		{
			name: "unknown log level",
			yaml: "log_level: verbose",
			want: "unknown log level",
		},
		{
			name: "bad duration",
			yaml: "callback:\n  base_delay: soon",
			want: "invalid duration",
		},
		{
			name: "negative attempts",
			yaml: "callback:\n  max_attempts: -2",
			want: "max attempts",
		},
		{
			name: "base delay above max delay",
			yaml: "callback:\n  base_delay: 10s\n  max_delay: 1s",
			want: "base delay",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigString(tt.yaml)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
