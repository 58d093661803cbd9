package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCacheDuration   = 4 * time.Hour
	DefaultCacheRetention  = 30 * 24 * time.Hour
	DefaultSwingShiftRRule = "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH"
	DefaultBadgeRefresh    = "@every 1m"
	DefaultCachePurge      = "@every 30m"
	DefaultMultiMonthCount = 4

	CacheBackendFile     = "file"
	CacheBackendPostgres = "postgres"
)

// Config represents the application configuration
type Config struct {
	APIBaseURL         string        `yaml:"apiBaseURL" validate:"required,url"`
	CacheBackend       string        `yaml:"cacheBackend" validate:"oneof=file postgres"`
	CacheDir           string        `yaml:"cacheDir,omitempty"`
	CacheDuration      time.Duration `yaml:"cacheDuration" validate:"gt=0"`
	CacheRetention     time.Duration `yaml:"cacheRetention" validate:"gtefield=CacheDuration"`
	DatabaseURL        string        `yaml:"databaseURL,omitempty" validate:"required_if=CacheBackend postgres"`
	RequestTimeout     time.Duration `yaml:"requestTimeout,omitempty" validate:"gte=0"`
	RateLimitPerSecond float64       `yaml:"rateLimitPerSecond,omitempty" validate:"gte=0"`
	RateLimitBurst     int           `yaml:"rateLimitBurst,omitempty" validate:"gte=0"`
	BadgeRefreshSpec   string        `yaml:"badgeRefreshSpec" validate:"required"`
	CachePurgeSpec     string        `yaml:"cachePurgeSpec" validate:"required"`
	SwingShiftRRule    string        `yaml:"swingShiftRRule" validate:"required"`
	FirstDayMonday     bool          `yaml:"firstDayMonday,omitempty"`
	MultiMonthCount    int           `yaml:"multiMonthCount" validate:"min=1,max=12"`
	LogDir             string        `yaml:"logDir,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration from cticu_config.yaml
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration for an environment.
// env="test" looks for "cticu_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
	// A missing .env is fine; godotenv never overrides variables already set
	_ = godotenv.Load()

	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Defaults returns a config with every optional field filled in
func Defaults() *Config {
	return &Config{
		CacheBackend:     CacheBackendFile,
		CacheDuration:    DefaultCacheDuration,
		CacheRetention:   DefaultCacheRetention,
		BadgeRefreshSpec: DefaultBadgeRefresh,
		CachePurgeSpec:   DefaultCachePurge,
		SwingShiftRRule:  DefaultSwingShiftRRule,
		MultiMonthCount:  DefaultMultiMonthCount,
	}
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := rrule.StrToRRule(cfg.SwingShiftRRule); err != nil {
		return fmt.Errorf("invalid swingShiftRRule: %w", err)
	}

	return nil
}

// ResolveCacheDir returns the configured cache directory or ~/.cticu/<env>/cache
func (c *Config) ResolveCacheDir(env string) (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	base, err := StateDir(env)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "cache"), nil
}

// StateDir is where per-environment credentials and cache files live
func StateDir(env string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if env == "" {
		env = "default"
	}
	return filepath.Join(homeDir, ".cticu", env), nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CTICU_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("CTICU_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
}

// findConfigFile searches for the config file in current directory and home directory
func findConfigFile(env string) (string, error) {
	configFileName := "cticu_config.yaml"
	if env != "" {
		configFileName = "cticu_config." + env + ".yaml"
	}

	if _, err := os.Stat(configFileName); err == nil {
		return configFileName, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homeConfigPath := filepath.Join(homeDir, configFileName)
	if _, err := os.Stat(homeConfigPath); err == nil {
		return homeConfigPath, nil
	}

	return "", fmt.Errorf("config file %s not found in current directory or home directory", configFileName)
}
