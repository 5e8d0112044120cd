package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the Companies House scraper
type Config struct {
	// API connection settings
	API APIConfig `yaml:"api" json:"api"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds Companies House API configuration
type APIConfig struct {
	Key             string        `yaml:"key" json:"key"`
	DataBaseURL     string        `yaml:"data_base_url" json:"data_base_url"`
	DocumentBaseURL string        `yaml:"document_base_url" json:"document_base_url"`
	UserAgent       string        `yaml:"user_agent" json:"user_agent"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	ItemsPerPage    int           `yaml:"items_per_page" json:"items_per_page"`
}

// RateLimitConfig holds rate limiting configuration.
// Companies House enforces 600 requests per 5 minutes across both APIs.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"max_requests" json:"max_requests"`
	Window      time.Duration `yaml:"window" json:"window"`
}

// DownloadConfig holds document download configuration
type DownloadConfig struct {
	MaxRetries      int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay" json:"retry_delay"`
	DownloadTimeout time.Duration `yaml:"download_timeout" json:"download_timeout"`
	MaxFileSize     int64         `yaml:"max_file_size" json:"max_file_size"`
	FetchXBRL       bool          `yaml:"fetch_xbrl" json:"fetch_xbrl"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			DataBaseURL:     "https://api.company-information.service.gov.uk",
			DocumentBaseURL: "https://document-api.companieshouse.gov.uk",
			UserAgent:       "chscraper/1.0 (Personal Research)",
			Timeout:         30 * time.Second,
			ItemsPerPage:    100,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 600,
			Window:      5 * time.Minute,
		},
		Download: DownloadConfig{
			MaxRetries:      3,
			RetryDelay:      time.Second,
			DownloadTimeout: 30 * time.Second,
			MaxFileSize:     50 * 1024 * 1024,
			FetchXBRL:       true,
		},
		Output: OutputConfig{
			BaseDirectory: "./downloads",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file, and environment
// variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables. A .env file in
// the working directory is read first, matching the original deployment.
func (c *Config) LoadFromEnv() error {
	// Ignore a missing .env file; environment variables still apply
	_ = godotenv.Load()

	if key := os.Getenv("COMPANIES_HOUSE_API_KEY"); key != "" {
		c.API.Key = key
	}
	if userAgent := os.Getenv("CHSCRAPER_USER_AGENT"); userAgent != "" {
		c.API.UserAgent = userAgent
	}
	if outputDir := os.Getenv("CHSCRAPER_OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if logLevel := os.Getenv("CHSCRAPER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if maxReq := os.Getenv("CHSCRAPER_MAX_REQUESTS"); maxReq != "" {
		if val, err := strconv.Atoi(maxReq); err == nil && val > 0 {
			c.RateLimit.MaxRequests = val
		}
	}
	if retries := os.Getenv("CHSCRAPER_MAX_RETRIES"); retries != "" {
		if val, err := strconv.Atoi(retries); err == nil && val >= 0 {
			c.Download.MaxRetries = val
		}
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".chscraper.yaml",
		".chscraper.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "chscraper", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "chscraper", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.API.Key == "" {
		errs = append(errs, errors.New("COMPANIES_HOUSE_API_KEY is required"))
	}
	if c.API.DataBaseURL == "" {
		errs = append(errs, errors.New("data API base URL is required"))
	}
	if c.API.DocumentBaseURL == "" {
		errs = append(errs, errors.New("document API base URL is required"))
	}
	if c.API.ItemsPerPage <= 0 {
		errs = append(errs, errors.New("items per page must be positive"))
	}
	if c.RateLimit.MaxRequests <= 0 {
		errs = append(errs, errors.New("max requests must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate limit window must be positive"))
	}
	if c.Download.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Download.MaxFileSize <= 0 {
		errs = append(errs, errors.New("max file size must be positive"))
	}
	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	if len(errs) > 0 {
		var sb strings.Builder
		sb.WriteString("invalid configuration:")
		for _, err := range errs {
			sb.WriteString("\n  - ")
			sb.WriteString(err.Error())
		}
		return errors.New(sb.String())
	}

	return nil
}

// SaveToFile writes the configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
