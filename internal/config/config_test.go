package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	cfg.APIBaseURL = "https://cticu.example.org"

	err := Validate(cfg)
	assert.NoError(t, err)
}

func TestValidate_MissingBaseURL(t *testing.T) {
	cfg := Defaults()

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_InvalidBaseURL(t *testing.T) {
	cfg := Defaults()
	cfg.APIBaseURL = "not a url"

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidate_PostgresRequiresDatabaseURL(t *testing.T) {
	cfg := Defaults()
	cfg.APIBaseURL = "https://cticu.example.org"
	cfg.CacheBackend = CacheBackendPostgres

	err := Validate(cfg)
	assert.Error(t, err)

	cfg.DatabaseURL = "postgres://localhost/cticu"
	assert.NoError(t, Validate(cfg))
}

func TestValidate_UnknownCacheBackend(t *testing.T) {
	cfg := Defaults()
	cfg.APIBaseURL = "https://cticu.example.org"
	cfg.CacheBackend = "redis"

	assert.Error(t, Validate(cfg))
}

func TestValidate_InvalidRRule(t *testing.T) {
	cfg := Defaults()
	cfg.APIBaseURL = "https://cticu.example.org"
	cfg.SwingShiftRRule = "INVALID_RRULE_SYNTAX"

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid swingShiftRRule")
}

func TestValidate_RetentionShorterThanTTL(t *testing.T) {
	cfg := Defaults()
	cfg.APIBaseURL = "https://cticu.example.org"
	cfg.CacheRetention = time.Hour

	assert.Error(t, Validate(cfg))
}

func TestLoadFromPath_AppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "cticu_config.yaml")

	err := os.WriteFile(configPath, []byte("apiBaseURL: https://cticu.example.org\nrequestTimeout: 15s\n"), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://cticu.example.org", cfg.APIBaseURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, DefaultCacheDuration, cfg.CacheDuration)
	assert.Equal(t, DefaultCacheRetention, cfg.CacheRetention)
	assert.Equal(t, CacheBackendFile, cfg.CacheBackend)
	assert.Equal(t, DefaultSwingShiftRRule, cfg.SwingShiftRRule)
	assert.Equal(t, DefaultMultiMonthCount, cfg.MultiMonthCount)
}

func TestLoadFromPath_EnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "cticu_config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("apiBaseURL: https://cticu.example.org\n"), 0644))

	t.Setenv("CTICU_API_BASE_URL", "https://staging.example.org")

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.org", cfg.APIBaseURL)
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "cticu_config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("apiBaseURL: [unclosed\n"), 0644))

	_, err := LoadFromPath(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestResolveCacheDir_Explicit(t *testing.T) {
	cfg := Defaults()
	cfg.CacheDir = "/tmp/cticu-cache"

	dir, err := cfg.ResolveCacheDir("prod")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cticu-cache", dir)
}
