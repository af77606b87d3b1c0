// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Paths      PathsConfig      `mapstructure:"paths"`
	Campaign   CampaignConfig   `mapstructure:"campaign"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Session    SessionConfig    `mapstructure:"session"`
	Validation ValidationConfig `mapstructure:"validation"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile"`
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// PathsConfig locates the campaign inputs and outputs on disk.
type PathsConfig struct {
	SourceDir  string `mapstructure:"source_dir"`
	ResultsDir string `mapstructure:"results_dir"`
	LedgerDir  string `mapstructure:"ledger_dir"`
	ErrorDir   string `mapstructure:"error_dir"`
	ReportDir  string `mapstructure:"report_dir"`
}

// CampaignConfig sizes the worker pool and its assignment strategy.
type CampaignConfig struct {
	Workers           int    `mapstructure:"workers"`
	Strategy          string `mapstructure:"strategy"`
	MaxRuntimeMinutes int    `mapstructure:"max_runtime_minutes"`
	IdleTimeoutSec    int    `mapstructure:"idle_timeout_seconds"`
	PollIntervalSec   int    `mapstructure:"poll_interval_seconds"`
	TaskDelayMinSec   int    `mapstructure:"task_delay_min_seconds"`
	TaskDelayMaxSec   int    `mapstructure:"task_delay_max_seconds"`
}

// RetryConfig governs the timeout retry policy inside one worker.
type RetryConfig struct {
	MaxRetries    int `mapstructure:"max_retries"`
	BackoffMinSec int `mapstructure:"backoff_min_seconds"`
	BackoffMaxSec int `mapstructure:"backoff_max_seconds"`
}

// SessionConfig configures the per-worker browser sessions.
type SessionConfig struct {
	Headless      bool   `mapstructure:"headless"`
	UserAgent     string `mapstructure:"user_agent"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	ReadySelector string `mapstructure:"ready_selector"`
	WarmupURL     string `mapstructure:"warmup_url"`
}

// ValidationConfig tunes the entity validation rules.
type ValidationConfig struct {
	TotalTolerancePct float64 `mapstructure:"total_tolerance_pct"`
}

// ReconcileConfig selects the precedence policy between reconciliation
// outcome sets.
type ReconcileConfig struct {
	Precedence string `mapstructure:"precedence"`
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.source_dir", "data/sources")
	v.SetDefault("paths.results_dir", "data/results")
	v.SetDefault("paths.ledger_dir", "data/ledger")
	v.SetDefault("paths.error_dir", "data/errors")
	v.SetDefault("paths.report_dir", "data/reports")
	v.SetDefault("campaign.workers", 4)
	v.SetDefault("campaign.strategy", "static")
	v.SetDefault("campaign.max_runtime_minutes", 0)
	v.SetDefault("campaign.idle_timeout_seconds", 60)
	v.SetDefault("campaign.poll_interval_seconds", 1)
	v.SetDefault("campaign.task_delay_min_seconds", 1)
	v.SetDefault("campaign.task_delay_max_seconds", 3)
	v.SetDefault("retry.max_retries", 2)
	v.SetDefault("retry.backoff_min_seconds", 3)
	v.SetDefault("retry.backoff_max_seconds", 6)
	v.SetDefault("session.headless", true)
	v.SetDefault("session.user_agent", "")
	v.SetDefault("session.nav_timeout_seconds", 45)
	v.SetDefault("session.ready_selector", "")
	v.SetDefault("session.warmup_url", "")
	v.SetDefault("validation.total_tolerance_pct", 0.0)
	v.SetDefault("reconcile.precedence", "invalidated-first")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Campaign.Workers <= 0 {
		return fmt.Errorf("campaign.workers must be > 0")
	}
	if c.Campaign.Strategy != "static" && c.Campaign.Strategy != "queue" {
		return fmt.Errorf("campaign.strategy must be static or queue")
	}
	if c.Campaign.TaskDelayMaxSec < c.Campaign.TaskDelayMinSec {
		return fmt.Errorf("campaign.task_delay_max_seconds must be >= min")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0")
	}
	if c.Retry.BackoffMaxSec < c.Retry.BackoffMinSec {
		return fmt.Errorf("retry.backoff_max_seconds must be >= min")
	}
	if c.Session.NavTimeoutSec <= 0 {
		return fmt.Errorf("session.nav_timeout_seconds must be > 0")
	}
	if c.Validation.TotalTolerancePct < 0 {
		return fmt.Errorf("validation.total_tolerance_pct must be >= 0")
	}
	if p := c.Reconcile.Precedence; p != "invalidated-first" && p != "timeout-first" {
		return fmt.Errorf("reconcile.precedence must be invalidated-first or timeout-first")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}

// MaxRuntime converts the campaign runtime cap into a duration; zero means
// no cap.
func (c Config) MaxRuntime() time.Duration {
	return time.Duration(c.Campaign.MaxRuntimeMinutes) * time.Minute
}

// IdleTimeout returns the queue-draining idle window.
func (c Config) IdleTimeout() time.Duration {
	return time.Duration(c.Campaign.IdleTimeoutSec) * time.Second
}

// PollInterval returns the queue poll cadence.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Campaign.PollIntervalSec) * time.Second
}

// NavTimeout returns the per-navigation deadline.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Session.NavTimeoutSec) * time.Second
}
