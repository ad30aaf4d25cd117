package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Strategy selects how tenant indexes are kept fresh.
type Strategy string

const (
	StrategyManual   Strategy = "manual"
	StrategyPeriodic Strategy = "periodic"
	StrategyWatch    Strategy = "watch"
)

// Settings is the typed configuration surface read from the store at call
// time. Precedence: defaults < stored values < QMD_BRIDGE_* environment.
type Settings struct {
	// Strategy is the indexing strategy: manual, periodic, or watch.
	Strategy Strategy `env:"QMD_BRIDGE_STRATEGY"`

	// UpdateIntervalSec is the periodic-strategy interval in seconds.
	UpdateIntervalSec int `env:"QMD_BRIDGE_UPDATE_INTERVAL"`

	// WatchDebounceSec is the watch-strategy quiet window in seconds.
	WatchDebounceSec int `env:"QMD_BRIDGE_WATCH_DEBOUNCE"`

	// ExecTimeoutMS is the hard per-execution timeout in milliseconds.
	ExecTimeoutMS int `env:"QMD_BRIDGE_EXEC_TIMEOUT"`

	// MaxConcurrent caps in-flight executions. 0 means unconstrained.
	MaxConcurrent int `env:"QMD_BRIDGE_MAX_CONCURRENT"`

	// MaxOutputBytes caps subprocess output size.
	MaxOutputBytes int `env:"QMD_BRIDGE_MAX_OUTPUT_BYTES"`

	// RatePerMinute is the per-tenant execution rate limit. 0 disables it.
	RatePerMinute int `env:"QMD_BRIDGE_RATE_PER_MINUTE"`

	// ToolBin is the name or path of the external search executable.
	ToolBin string `env:"QMD_BRIDGE_TOOL_BIN"`

	// Host and Port configure the HTTP listener.
	Host string `env:"QMD_BRIDGE_HOST"`
	Port int    `env:"QMD_BRIDGE_PORT"`

	// LogLevel is the minimum slog level (debug, info, warn, error).
	LogLevel string `env:"QMD_BRIDGE_LOG_LEVEL"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		Strategy:          StrategyManual,
		UpdateIntervalSec: 3600,
		WatchDebounceSec:  5,
		ExecTimeoutMS:     30000,
		MaxConcurrent:     4,
		MaxOutputBytes:    1 << 20,
		RatePerMinute:     0,
		ToolBin:           "qmd",
		Host:              "127.0.0.1",
		Port:              8765,
		LogLevel:          "info",
	}
}

// ExecTimeout returns the execution timeout as a duration.
func (s Settings) ExecTimeout() time.Duration {
	return time.Duration(s.ExecTimeoutMS) * time.Millisecond
}

// UpdateInterval returns the periodic interval as a duration.
func (s Settings) UpdateInterval() time.Duration {
	return time.Duration(s.UpdateIntervalSec) * time.Second
}

// WatchDebounce returns the watch quiet window as a duration.
func (s Settings) WatchDebounce() time.Duration {
	return time.Duration(s.WatchDebounceSec) * time.Second
}

// Validate rejects settings no component can run with.
func (s Settings) Validate() error {
	switch s.Strategy {
	case StrategyManual, StrategyPeriodic, StrategyWatch:
	default:
		return fmt.Errorf("strategy must be manual, periodic, or watch, got %q", s.Strategy)
	}
	if s.UpdateIntervalSec <= 0 {
		return fmt.Errorf("update interval must be positive, got %d", s.UpdateIntervalSec)
	}
	if s.WatchDebounceSec <= 0 {
		return fmt.Errorf("watch debounce must be positive, got %d", s.WatchDebounceSec)
	}
	if s.ExecTimeoutMS <= 0 {
		return fmt.Errorf("execution timeout must be positive, got %d", s.ExecTimeoutMS)
	}
	if s.MaxConcurrent < 0 {
		return fmt.Errorf("max concurrent must be >= 0, got %d", s.MaxConcurrent)
	}
	if s.MaxOutputBytes <= 0 {
		return fmt.Errorf("max output bytes must be positive, got %d", s.MaxOutputBytes)
	}
	return nil
}

// Settings assembles the typed settings from the stored document and applies
// environment overrides. Called at use time, not cached, so edits to the
// store take effect without a restart.
func (s *Store) Settings() Settings {
	out := DefaultSettings()

	if v := s.GetString("indexing.strategy", ""); v != "" {
		out.Strategy = Strategy(v)
	}
	out.UpdateIntervalSec = s.GetInt("indexing.update_interval", out.UpdateIntervalSec)
	out.WatchDebounceSec = s.GetInt("indexing.watch_debounce", out.WatchDebounceSec)
	out.ExecTimeoutMS = s.GetInt("execution.timeout_ms", out.ExecTimeoutMS)
	out.MaxConcurrent = s.GetInt("execution.max_concurrent", out.MaxConcurrent)
	out.MaxOutputBytes = s.GetInt("execution.max_output_bytes", out.MaxOutputBytes)
	out.RatePerMinute = s.GetInt("execution.rate_per_minute", out.RatePerMinute)
	out.ToolBin = s.GetString("execution.tool_bin", out.ToolBin)
	out.Host = s.GetString("server.host", out.Host)
	out.Port = s.GetInt("server.port", out.Port)
	out.LogLevel = s.GetString("server.log_level", out.LogLevel)

	// Env wins over the store. Parse failures leave stored values intact.
	_ = env.Parse(&out)

	return out
}
