// Package config loads the collector's YAML configuration. Values of the
// form ${VAR} or ${VAR:-default} are expanded from the environment before
// parsing, so credentials stay out of the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the full collector configuration.
type Config struct {
	Field    FieldConfig    `yaml:"field"`
	Quota    QuotaConfig    `yaml:"quota"`
	Sentinel SentinelConfig `yaml:"sentinel"`
	Weather  WeatherConfig  `yaml:"weather"`
	CDS      CDSConfig      `yaml:"cds"`
	Storage  StorageConfig  `yaml:"storage"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// FieldConfig locates the monitored field.
type FieldConfig struct {
	// PolygonID labels persisted rows.
	PolygonID string `yaml:"polygon_id"`

	// BBox is [minLon, minLat, maxLon, maxLat] in WGS84.
	BBox [4]float64 `yaml:"bbox"`

	// Lat and Lon are the weather station point, usually the bbox center.
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// QuotaConfig selects and tunes the quota store.
type QuotaConfig struct {
	// Backend is file, redis, or memory (default: file).
	Backend string `yaml:"backend"`

	// Path is the state file location for the file backend.
	Path string `yaml:"path"`

	Redis RedisConfig `yaml:"redis"`

	// MonthlyLimitPU and MonthlyLimitRequests override the plan defaults
	// when positive.
	MonthlyLimitPU       int `yaml:"monthly_limit_pu"`
	MonthlyLimitRequests int `yaml:"monthly_limit_requests"`
}

// RedisConfig holds redis backend settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// SentinelConfig holds Sentinel Hub credentials and tuning.
type SentinelConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	BaseURL      string `yaml:"base_url"`
	TokenURL     string `yaml:"token_url"`

	// MaxCloudCover is the acquisition filter in [0,1].
	MaxCloudCover float64 `yaml:"max_cloud_cover"`

	LookbackDays int `yaml:"lookback_days"`
}

// WeatherConfig holds OpenWeatherMap settings. An empty APIKey disables
// weather collection.
type WeatherConfig struct {
	APIKey string `yaml:"api_key"`
	Lang   string `yaml:"lang"`
}

// CDSConfig holds Climate Data Store settings. An empty Key disables ERA5
// retrievals.
type CDSConfig struct {
	Key     string `yaml:"key"`
	BaseURL string `yaml:"base_url"`
}

// StorageConfig holds result sink settings.
type StorageConfig struct {
	// CSVPath is the local history file (default: data/collections.csv).
	CSVPath string `yaml:"csv_path"`

	// MapsDir receives rendered PNG maps (default: data/maps).
	MapsDir string `yaml:"maps_dir"`

	// PostgresDSN enables the database sink when non-empty.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// HTTPConfig holds the status server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is debug, info, warn, or error (default: info).
	Level string `yaml:"level"`

	// Pretty switches to human-readable console output.
	Pretty bool `yaml:"pretty"`
}

// Load reads, expands, parses, and validates the configuration at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Quota.Backend == "" {
		c.Quota.Backend = "file"
	}
	if c.Quota.Path == "" {
		c.Quota.Path = "data/quota_usage.json"
	}
	if c.Sentinel.LookbackDays <= 0 {
		c.Sentinel.LookbackDays = 10
	}
	if c.Weather.Lang == "" {
		c.Weather.Lang = "es"
	}
	if c.Storage.CSVPath == "" {
		c.Storage.CSVPath = "data/collections.csv"
	}
	if c.Storage.MapsDir == "" {
		c.Storage.MapsDir = "data/maps"
	}
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Field.PolygonID == "" {
		return fmt.Errorf("field.polygon_id is required")
	}
	if c.Field.BBox[0] >= c.Field.BBox[2] || c.Field.BBox[1] >= c.Field.BBox[3] {
		return fmt.Errorf("field.bbox must be [minLon, minLat, maxLon, maxLat]")
	}

	switch c.Quota.Backend {
	case "file", "memory":
	case "redis":
		if c.Quota.Redis.Addr == "" {
			return fmt.Errorf("quota.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("quota.backend must be file, redis, or memory, got %q", c.Quota.Backend)
	}

	if c.Sentinel.ClientID == "" || c.Sentinel.ClientSecret == "" {
		return fmt.Errorf("sentinel.client_id and sentinel.client_secret are required")
	}
	if c.Sentinel.MaxCloudCover < 0 || c.Sentinel.MaxCloudCover > 1 {
		return fmt.Errorf("sentinel.max_cloud_cover must be in [0,1], got %g", c.Sentinel.MaxCloudCover)
	}

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment
// variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
