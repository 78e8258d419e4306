// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Defaults applied wherever the config file and environment are silent.
const (
	DefaultPrimaryModel    = "gemini-2.0-flash"
	DefaultFallbackModel   = "gemini-1.5-flash"
	DefaultStageTimeout    = 120 * time.Second
	DefaultRetryCount      = 2
	DefaultCacheDir        = ".tailor-cache"
	DefaultCacheMaxEntries = 256
	DefaultCacheMaxBytes   = int64(64 << 20)
	DefaultCacheTTL        = 24 * time.Hour
	DefaultMinInputLen     = 40
	DefaultArtifactDir     = "out"
	DefaultPort            = 8080
	DefaultMetricsWindow   = time.Hour
)

// Config represents the agent configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or are filled
// from the environment.
type Config struct {
	// Inference
	APIKey        string `json:"api_key,omitempty"`        // Gemini API key (or GEMINI_API_KEY)
	PrimaryModel  string `json:"primary_model,omitempty"`  // Model for first attempts
	FallbackModel string `json:"fallback_model,omitempty"` // Model tried after the retry budget
	RetryCount    int    `json:"retry_count,omitempty"`    // Retries against the primary model

	// Pipeline
	ProfilePath   string `json:"profile,omitempty"`         // Path to applicant profile JSON
	StageTimeoutS int    `json:"stage_timeout_s,omitempty"` // Per-stage timeout in seconds
	MinInputLen   int    `json:"min_input_len,omitempty"`   // Minimum posting length accepted
	ArtifactDir   string `json:"artifact_dir,omitempty"`    // Directory rendered documents land in

	// Cache
	CacheDir        string `json:"cache_dir,omitempty"`         // Tier-2 cache directory
	CacheMaxEntries int    `json:"cache_max_entries,omitempty"` // Tier-1 entry capacity
	CacheMaxBytes   int64  `json:"cache_max_bytes,omitempty"`   // Tier-2 byte budget
	CacheTTLS       int    `json:"cache_ttl_s,omitempty"`       // Entry TTL in seconds

	// Server
	Port        int    `json:"port,omitempty"`         // HTTP listen port
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL job registry (optional)

	// Metrics
	MetricsWindowS int `json:"metrics_window_s,omitempty"` // Rolling metrics retention in seconds
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv fills unset fields from the environment.
func (c *Config) FromEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
}

// ApplyDefaults fills remaining zero fields with the package defaults.
func (c *Config) ApplyDefaults() {
	if c.PrimaryModel == "" {
		c.PrimaryModel = DefaultPrimaryModel
	}
	if c.FallbackModel == "" {
		c.FallbackModel = DefaultFallbackModel
	}
	if c.RetryCount == 0 {
		c.RetryCount = DefaultRetryCount
	}
	if c.StageTimeoutS == 0 {
		c.StageTimeoutS = int(DefaultStageTimeout / time.Second)
	}
	if c.MinInputLen == 0 {
		c.MinInputLen = DefaultMinInputLen
	}
	if c.ArtifactDir == "" {
		c.ArtifactDir = DefaultArtifactDir
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.CacheMaxEntries == 0 {
		c.CacheMaxEntries = DefaultCacheMaxEntries
	}
	if c.CacheMaxBytes == 0 {
		c.CacheMaxBytes = DefaultCacheMaxBytes
	}
	if c.CacheTTLS == 0 {
		c.CacheTTLS = int(DefaultCacheTTL / time.Second)
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MetricsWindowS == 0 {
		c.MetricsWindowS = int(DefaultMetricsWindow / time.Second)
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("config error: API key is required (set 'api_key' or GEMINI_API_KEY)")
	}
	if c.ProfilePath == "" {
		return fmt.Errorf("config error: 'profile' is required")
	}
	if _, err := os.Stat(c.ProfilePath); os.IsNotExist(err) {
		return fmt.Errorf("config error: profile file not found: %s", c.ProfilePath)
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("config error: 'retry_count' must be non-negative")
	}
	if c.StageTimeoutS <= 0 {
		return fmt.Errorf("config error: 'stage_timeout_s' must be positive")
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("config error: 'cache_max_entries' must be positive")
	}
	if c.CacheMaxBytes <= 0 {
		return fmt.Errorf("config error: 'cache_max_bytes' must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be in 1..65535")
	}
	return nil
}

// StageTimeout returns the per-stage timeout as a duration.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.StageTimeoutS) * time.Second
}

// CacheTTL returns the cache entry TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLS) * time.Second
}

// MetricsWindow returns the metrics retention as a duration.
func (c *Config) MetricsWindow() time.Duration {
	return time.Duration(c.MetricsWindowS) * time.Second
}
