package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{"origin": "golang"}`))
	require.NoError(t, err)

	assert.Equal(t, "golang", cfg.Origin)
	assert.Equal(t, "https://apiv2.pushshift.io/reddit", cfg.APIBaseURL)
	assert.Equal(t, int64(DefaultMinUTC), cfg.MinUTC)
	assert.Equal(t, int64(DefaultMaxUTC), cfg.MaxUTC)
	assert.Equal(t, 100*time.Millisecond, cfg.EdgeDelay())
	assert.Equal(t, 100*time.Millisecond, cfg.IterationDelay())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.Equal(t, time.Second, cfg.RetryDelay())
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, "crawler.db", cfg.DBPath)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Contains(t, cfg.UserAgent, "ref-weaver/")
	assert.Equal(t, logrus.InfoLevel, cfg.Level())
}

func TestLoadConfigKeepsExplicitValues(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{
		"min_utc": 100,
		"max_utc": 200,
		"request_delay_ms": 250,
		"edge_delay_ms": 5,
		"log_level": "debug"
	}`))
	require.NoError(t, err)

	assert.Equal(t, int64(100), cfg.MinUTC)
	assert.Equal(t, int64(200), cfg.MaxUTC)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestDelay())
	assert.Equal(t, 5*time.Millisecond, cfg.EdgeDelay())
	assert.Equal(t, logrus.DebugLevel, cfg.Level())
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to open config file")

	_, err = LoadConfig(writeConfig(t, `{not json`))
	assert.ErrorContains(t, err, "failed to parse config JSON")
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Config{}
	applyDefaults(&cfg)
	require.NoError(t, validate(&cfg))

	cfg.MinUTC = 500
	cfg.MaxUTC = 100
	cfg.RequestTimeoutMs = 10
	cfg.LogLevel = "loud"

	err := validate(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_utc must be >= min_utc")
	assert.Contains(t, err.Error(), "request_timeout_ms must be >= 1000")
	assert.Contains(t, err.Error(), "log_level")
}

func TestEqualWindowBoundsAreValid(t *testing.T) {
	cfg := Config{MinUTC: 42, MaxUTC: 42}
	applyDefaults(&cfg)
	assert.NoError(t, validate(&cfg))
}
