package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://api.company-information.service.gov.uk", cfg.API.DataBaseURL)
	assert.Equal(t, "https://document-api.companieshouse.gov.uk", cfg.API.DocumentBaseURL)
	assert.Equal(t, 100, cfg.API.ItemsPerPage)
	assert.Equal(t, 600, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 3, cfg.Download.MaxRetries)
	assert.Equal(t, int64(50*1024*1024), cfg.Download.MaxFileSize)
	assert.Equal(t, "./downloads", cfg.Output.BaseDirectory)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yamlContent := `
api:
  items_per_page: 50
rate_limit:
  max_requests: 100
  window: 1m
output:
  base_directory: /tmp/companies
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 50, cfg.API.ItemsPerPage)
	assert.Equal(t, 100, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "/tmp/companies", cfg.Output.BaseDirectory)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched values keep their defaults
	assert.Equal(t, 3, cfg.Download.MaxRetries)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [not a map"), 0644))

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("COMPANIES_HOUSE_API_KEY", "abcdef1234567890abcdef1234567890")
	t.Setenv("CHSCRAPER_OUTPUT_DIR", "/data/companies")
	t.Setenv("CHSCRAPER_LOG_LEVEL", "debug")
	t.Setenv("CHSCRAPER_MAX_REQUESTS", "300")
	t.Setenv("CHSCRAPER_MAX_RETRIES", "5")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "abcdef1234567890abcdef1234567890", cfg.API.Key)
	assert.Equal(t, "/data/companies", cfg.Output.BaseDirectory)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 300, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 5, cfg.Download.MaxRetries)
}

func TestLoadFromEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("CHSCRAPER_MAX_REQUESTS", "not-a-number")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, 600, cfg.RateLimit.MaxRequests)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.Key = "abcdef1234567890abcdef1234567890"
	assert.NoError(t, cfg.Validate())

	t.Run("missing api key", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "COMPANIES_HOUSE_API_KEY")
	})

	t.Run("multiple errors aggregated", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RateLimit.MaxRequests = 0
		cfg.Output.BaseDirectory = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max requests")
		assert.Contains(t, err.Error(), "output directory")
	})
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")

	cfg := DefaultConfig()
	cfg.API.ItemsPerPage = 25
	require.NoError(t, cfg.SaveToFile(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 25, loaded.API.ItemsPerPage)
}
