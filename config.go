package agentbridge

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/deepnoodle-ai/agentbridge/retry"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "250ms"
// or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// CallbackConfig configures retries of agent RPC inside durable steps.
type CallbackConfig struct {
	MaxAttempts int      `yaml:"max_attempts,omitempty"`
	BaseDelay   Duration `yaml:"base_delay,omitempty"`
	MaxDelay    Duration `yaml:"max_delay,omitempty"`
}

// ApprovalConfig configures WaitForApproval defaults.
type ApprovalConfig struct {
	StepName  string   `yaml:"step_name,omitempty"`
	EventType string   `yaml:"event_type,omitempty"`
	Timeout   Duration `yaml:"timeout,omitempty"`
}

// Config captures bridge settings loadable from a YAML file.
type Config struct {
	LogLevel string         `yaml:"log_level,omitempty"`
	Callback CallbackConfig `yaml:"callback,omitempty"`
	Approval ApprovalConfig `yaml:"approval,omitempty"`
}

// LoadConfig loads bridge configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return LoadConfigString(string(data))
}

// LoadConfigString loads bridge configuration from a YAML string.
func LoadConfigString(data string) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal([]byte(data), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration eagerly, so bad settings surface at load
// time rather than mid-run.
func (c *Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if _, err := retry.Resolve(c.RetryOptions()); err != nil {
		return err
	}
	return nil
}

// RetryOptions returns the configured callback retry policy. Zero fields
// take the retry package defaults.
func (c *Config) RetryOptions() retry.Options {
	return retry.Options{
		MaxAttempts: c.Callback.MaxAttempts,
		BaseDelay:   time.Duration(c.Callback.BaseDelay),
		MaxDelay:    time.Duration(c.Callback.MaxDelay),
	}
}

// ApprovalOptions returns the configured WaitForApproval defaults.
func (c *Config) ApprovalOptions() ApprovalOptions {
	return ApprovalOptions{
		StepName:  c.Approval.StepName,
		EventType: c.Approval.EventType,
		Timeout:   time.Duration(c.Approval.Timeout),
	}
}

// SlogLevel maps the configured log level to a slog.Level. An empty level
// defaults to info.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
}
