// Package config loads queue and worker configuration from a TOML
// file. All settings live in an explicit Config value passed to
// constructors; there is no package-level state, so several queue
// instances with different settings can share a process.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Executor kinds.
const (
	ExecutorCLI       = "cli"
	ExecutorAnthropic = "anthropic"
	ExecutorOpenAI    = "openai"
)

// Config holds all queue and worker settings.
type Config struct {
	// Root is the shared queue directory.
	Root string `toml:"root"`

	// Host overrides the host identity. Empty uses os.Hostname().
	Host string `toml:"host"`

	// PollIntervalSeconds is the worker sleep between empty polls.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`

	// LockWaitSeconds bounds per-task lock acquisition.
	LockWaitSeconds int `toml:"lock_wait_seconds"`

	// CleanupMaxAgeDays is the retention for task and result files.
	CleanupMaxAgeDays int `toml:"cleanup_max_age_days"`

	Executor ExecutorConfig `toml:"executor"`
	NATS     NATSConfig     `toml:"nats"`
}

// ExecutorConfig selects and configures the task executor.
type ExecutorConfig struct {
	// Kind is "cli", "anthropic" or "openai".
	Kind string `toml:"kind"`

	// Binary is the CLI binary path (kind "cli").
	Binary string `toml:"binary"`

	// TimeoutSeconds bounds a single execution.
	TimeoutSeconds int `toml:"timeout_seconds"`

	// APIKey, Model and MaxTokens configure the API executors.
	// APIKey falls back to the provider's environment variable.
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int64  `toml:"max_tokens"`
}

// NATSConfig enables optional change notifications.
type NATSConfig struct {
	// URL of the NATS server. Empty disables the bus.
	URL string `toml:"url"`

	Token    string `toml:"token"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// Default returns the configuration used when no file is given:
// queue directory under the home directory, 5 second polls, 5 second
// lock waits, 7 day retention, CLI executor.
func Default() Config {
	root := "claude_queue"
	if home, err := os.UserHomeDir(); err == nil {
		root = filepath.Join(home, "claude_queue")
	}

	return Config{
		Root:                root,
		PollIntervalSeconds: 5,
		LockWaitSeconds:     5,
		CleanupMaxAgeDays:   7,
		Executor: ExecutorConfig{
			Kind:           ExecutorCLI,
			TimeoutSeconds: 300,
		},
	}
}

// Load reads a TOML config file, filling unset fields from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions.
func (c Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root directory is required")
	}
	if c.PollIntervalSeconds < 0 || c.LockWaitSeconds < 0 || c.CleanupMaxAgeDays < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	switch c.Executor.Kind {
	case ExecutorCLI, ExecutorAnthropic, ExecutorOpenAI, "":
	default:
		return fmt.Errorf("unknown executor kind %q", c.Executor.Kind)
	}
	if c.Executor.Kind == ExecutorAnthropic || c.Executor.Kind == ExecutorOpenAI {
		if c.Executor.Model == "" {
			return fmt.Errorf("executor kind %q requires a model", c.Executor.Kind)
		}
	}
	return nil
}

// PollInterval returns the poll interval as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// LockWait returns the lock wait bound as a duration.
func (c Config) LockWait() time.Duration {
	return time.Duration(c.LockWaitSeconds) * time.Second
}

// CleanupMaxAge returns the retention period as a duration.
func (c Config) CleanupMaxAge() time.Duration {
	return time.Duration(c.CleanupMaxAgeDays) * 24 * time.Hour
}

// ExecutorTimeout returns the execution time budget as a duration.
func (c Config) ExecutorTimeout() time.Duration {
	return time.Duration(c.Executor.TimeoutSeconds) * time.Second
}
