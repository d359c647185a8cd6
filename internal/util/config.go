// Package util provides common utilities for secdash.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Backend revisions understood by the adapter layer.
const (
	RevisionLegacy     = "legacy"
	RevisionMonitoring = "monitoring"
	RevisionDashboard  = "dashboard"
)

// Config holds all application configuration.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Log rotation
	LogMaxSizeMB  int `mapstructure:"log_max_size_mb"`
	LogMaxBackups int `mapstructure:"log_max_backups"`
	LogMaxAgeDays int `mapstructure:"log_max_age_days"`

	// Backend
	BackendURL      string        `mapstructure:"backend_url"`
	BackendRevision string        `mapstructure:"backend_revision"`
	APIKey          string        `mapstructure:"api_key"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	SeverityMode    string        `mapstructure:"severity_mode"`

	// Polling
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	ReportInterval   time.Duration `mapstructure:"report_interval"`
	HistoryRetention time.Duration `mapstructure:"history_retention"`

	// Report settings
	ReportOutputDir string `mapstructure:"report_output_dir"`

	// Web gateway
	WebPort     int      `mapstructure:"web_port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".secdash")

	return &Config{
		DataDir:  dataDir,
		LogLevel: "info",
		LogFile:  filepath.Join(dataDir, "secdash.log"),

		LogMaxSizeMB:  50,
		LogMaxBackups: 5,
		LogMaxAgeDays: 30,

		BackendURL:      "http://localhost:8000",
		BackendRevision: RevisionMonitoring,
		RequestTimeout:  10 * time.Second,
		MaxRetries:      2,
		RetryBackoff:    250 * time.Millisecond,
		SeverityMode:    "binary",

		RefreshInterval:  30 * time.Second,
		ReportInterval:   1 * time.Hour,
		HistoryRetention: 7 * 24 * time.Hour,

		ReportOutputDir: filepath.Join(dataDir, "reports"),

		WebPort:     8080,
		CORSOrigins: []string{"*"},
	}
}

// LoadConfig loads configuration from file and environment.
// An explicit path takes precedence over the search locations.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	if path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(cfg.DataDir)
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("SECDASH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("data_dir", cfg.DataDir)
	viper.SetDefault("log_level", cfg.LogLevel)
	viper.SetDefault("log_file", cfg.LogFile)
	viper.SetDefault("log_max_size_mb", cfg.LogMaxSizeMB)
	viper.SetDefault("log_max_backups", cfg.LogMaxBackups)
	viper.SetDefault("log_max_age_days", cfg.LogMaxAgeDays)
	viper.SetDefault("backend_url", cfg.BackendURL)
	viper.SetDefault("backend_revision", cfg.BackendRevision)
	viper.SetDefault("api_key", cfg.APIKey)
	viper.SetDefault("request_timeout", cfg.RequestTimeout)
	viper.SetDefault("max_retries", cfg.MaxRetries)
	viper.SetDefault("retry_backoff", cfg.RetryBackoff)
	viper.SetDefault("severity_mode", cfg.SeverityMode)
	viper.SetDefault("refresh_interval", cfg.RefreshInterval)
	viper.SetDefault("report_interval", cfg.ReportInterval)
	viper.SetDefault("history_retention", cfg.HistoryRetention)
	viper.SetDefault("report_output_dir", cfg.ReportOutputDir)
	viper.SetDefault("web_port", cfg.WebPort)
	viper.SetDefault("cors_origins", cfg.CORSOrigins)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the rest of the program cannot run with.
func (c *Config) Validate() error {
	switch c.BackendRevision {
	case RevisionLegacy, RevisionMonitoring, RevisionDashboard:
	default:
		return fmt.Errorf("unknown backend_revision %q", c.BackendRevision)
	}
	switch c.SeverityMode {
	case "binary", "graded":
	default:
		return fmt.Errorf("unknown severity_mode %q", c.SeverityMode)
	}
	if c.BackendURL == "" {
		return fmt.Errorf("backend_url is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	return nil
}

// WatchConfig reloads the config file on change and passes the new
// configuration to fn. Invalid edits are logged and ignored.
func WatchConfig(fn func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg := DefaultConfig()
		if err := viper.Unmarshal(cfg); err != nil {
			Warn("Ignoring config change in %s: %v", e.Name, err)
			return
		}
		if err := cfg.Validate(); err != nil {
			Warn("Ignoring config change in %s: %v", e.Name, err)
			return
		}
		Info("Config reloaded from %s", e.Name)
		fn(cfg)
	})
	viper.WatchConfig()
}

// EnsureDir ensures a directory exists.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}
