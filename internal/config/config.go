package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/alvmarrod/ref-weaver/internal/version"
)

// Config holds all runtime configuration parameters
type Config struct {
	Origin           string `json:"origin"`
	APIBaseURL       string `json:"api_base_url"`
	RandomURL        string `json:"random_url"`
	MinUTC           int64  `json:"min_utc"`
	MaxUTC           int64  `json:"max_utc"`
	RequestTimeoutMs int    `json:"request_timeout_ms"`
	RequestDelayMs   int    `json:"request_delay_ms"`
	EdgeDelayMs      int    `json:"edge_delay_ms"`
	IterationDelayMs int    `json:"iteration_delay_ms"`
	RetryAttempts    int    `json:"retry_attempts"`
	RetryDelayMs     int    `json:"retry_delay_ms"`
	UserAgent        string `json:"user_agent"`
	DBPath           string `json:"db_path"`
	OutputDir        string `json:"output_dir"`
	MetricsPath      string `json:"metrics_path"`
	LogLevel         string `json:"log_level"`
}

// Window defaults cover March 2015.
const (
	DefaultMinUTC = 1425168000
	DefaultMaxUTC = 1427846400
)

// LoadConfig reads and validates configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://apiv2.pushshift.io/reddit"
	}
	if cfg.RandomURL == "" {
		cfg.RandomURL = "https://www.reddit.com/r/random/"
	}
	if cfg.MinUTC == 0 && cfg.MaxUTC == 0 {
		cfg.MinUTC = DefaultMinUTC
		cfg.MaxUTC = DefaultMaxUTC
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 10000
	}
	if cfg.EdgeDelayMs == 0 {
		cfg.EdgeDelayMs = 100
	}
	if cfg.IterationDelayMs == 0 {
		cfg.IterationDelayMs = 100
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelayMs == 0 {
		cfg.RetryDelayMs = 1000
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ref-weaver/" + version.Version
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "crawler.db"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "metrics.json"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// validate checks every field and reports all problems at once
func validate(cfg *Config) error {
	var err error

	if cfg.MinUTC < 0 {
		err = multierror.Append(err, fmt.Errorf("min_utc must be >= 0"))
	}
	if cfg.MaxUTC < cfg.MinUTC {
		err = multierror.Append(err, fmt.Errorf("max_utc must be >= min_utc"))
	}
	if cfg.RequestTimeoutMs < 1000 {
		err = multierror.Append(err, fmt.Errorf("request_timeout_ms must be >= 1000"))
	}
	if cfg.RequestDelayMs < 0 {
		err = multierror.Append(err, fmt.Errorf("request_delay_ms must be >= 0"))
	}
	if cfg.EdgeDelayMs < 0 {
		err = multierror.Append(err, fmt.Errorf("edge_delay_ms must be >= 0"))
	}
	if cfg.IterationDelayMs < 0 {
		err = multierror.Append(err, fmt.Errorf("iteration_delay_ms must be >= 0"))
	}
	if cfg.RetryAttempts < 0 {
		err = multierror.Append(err, fmt.Errorf("retry_attempts must be >= 0"))
	}
	if cfg.RetryDelayMs < 0 {
		err = multierror.Append(err, fmt.Errorf("retry_delay_ms must be >= 0"))
	}
	if _, levelErr := logrus.ParseLevel(cfg.LogLevel); levelErr != nil {
		err = multierror.Append(err, fmt.Errorf("log_level: %w", levelErr))
	}

	return err
}

// RequestTimeout returns the per-request HTTP timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// RequestDelay returns the pause between two page requests
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// EdgeDelay returns the courtesy delay applied per discovered destination
func (c *Config) EdgeDelay() time.Duration {
	return time.Duration(c.EdgeDelayMs) * time.Millisecond
}

// IterationDelay returns the courtesy delay between two processed communities
func (c *Config) IterationDelay() time.Duration {
	return time.Duration(c.IterationDelayMs) * time.Millisecond
}

// RetryDelay returns the first backoff interval after a rate-limited request
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// Level returns the configured logrus level, falling back to info
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
