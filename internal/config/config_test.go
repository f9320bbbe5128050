package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalEnvYAML = `
server:
  port: "8080"
weather_api:
  current_url: "https://api.example.com/weather"
  forecast_url: "https://api.example.com/forecast"
  timeout: "2s"
request:
  timeout: "5s"
cache:
  ttl: "10m"
reliability:
  retry_max_attempts: 3
  retry_base_delay: "100ms"
  retry_max_delay: "2s"
  rate_limit_rps: 5
  rate_limit_burst: 10
shutdown:
  timeout: "10s"
`

// TestLoad_NoAPIKeyIsSyntheticOnly verifies a missing API key is not an
// error: the service falls back to synthetic-only mode.
func TestLoad_NoAPIKeyIsSyntheticOnly(t *testing.T) {
	unsetKey(t)
	chdirTemp(t, minimalEnvYAML)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil without an API key", err)
	}
	if cfg.WeatherAPIKey != "" {
		t.Errorf("WeatherAPIKey = %q, want empty", cfg.WeatherAPIKey)
	}
}

func TestLoad_SecretsFile(t *testing.T) {
	unsetKey(t)
	dir := chdirTemp(t, minimalEnvYAML)
	writeSecretsFile(t, dir, "weather_api_key: key-from-secrets-file\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPIKey != "key-from-secrets-file" {
		t.Errorf("WeatherAPIKey = %q, want key from secrets file", cfg.WeatherAPIKey)
	}
}

func TestLoad_EnvKeyOverridesSecrets(t *testing.T) {
	unsetKey(t)
	t.Setenv("WEATHER_API_KEY", "key-from-env")
	dir := chdirTemp(t, minimalEnvYAML)
	writeSecretsFile(t, dir, "weather_api_key: key-from-secrets-file\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPIKey != "key-from-env" {
		t.Errorf("WeatherAPIKey = %q, want env key", cfg.WeatherAPIKey)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetKey(t)
	chdirTemp(t, minimalEnvYAML)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.CacheBackend != "in_memory" {
		t.Errorf("CacheBackend = %q", cfg.CacheBackend)
	}
	if cfg.MaxPredictionDays != 14 {
		t.Errorf("MaxPredictionDays = %d", cfg.MaxPredictionDays)
	}
	if cfg.GeocodeMinInterval != time.Second {
		t.Errorf("GeocodeMinInterval = %v", cfg.GeocodeMinInterval)
	}
	if !strings.Contains(cfg.GeocodeURL, "nominatim") {
		t.Errorf("GeocodeURL = %q", cfg.GeocodeURL)
	}
	if !cfg.CircuitBreakerEnabled || cfg.CircuitBreakerTripAfter != 5 {
		t.Errorf("breaker defaults = enabled %v, trip_after %d", cfg.CircuitBreakerEnabled, cfg.CircuitBreakerTripAfter)
	}
	if cfg.DegradedSyntheticPct != 50 {
		t.Errorf("DegradedSyntheticPct = %d", cfg.DegradedSyntheticPct)
	}
	if cfg.WarmCache {
		t.Error("WarmCache should default to false")
	}
}

func TestLoad_WarmingLocations(t *testing.T) {
	unsetKey(t)
	yaml := minimalEnvYAML + `
warming:
  enabled: true
  interval: "15m"
  locations:
    - name: "New York"
      lat: 40.7128
      lon: -74.0060
    - name: "London"
      lat: 51.5074
      lon: -0.1278
`
	chdirTemp(t, yaml)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.WarmCache || cfg.WarmInterval != 15*time.Minute {
		t.Errorf("warming = %v / %v", cfg.WarmCache, cfg.WarmInterval)
	}
	if len(cfg.TrackedLocations) != 2 {
		t.Fatalf("TrackedLocations = %d, want 2", len(cfg.TrackedLocations))
	}
	if cfg.TrackedLocations[0].Name != "New York" || cfg.TrackedLocations[0].Lat != 40.7128 {
		t.Errorf("first location = %+v", cfg.TrackedLocations[0])
	}
}

func TestLoad_InvalidCacheBackend(t *testing.T) {
	unsetKey(t)
	yaml := strings.Replace(minimalEnvYAML, `ttl: "10m"`, "backend: \"redis\"\n  ttl: \"10m\"", 1)
	chdirTemp(t, yaml)

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "cache.backend") {
		t.Fatalf("Load() error = %v, want cache.backend error", err)
	}
}

func TestLoad_RequestTimeoutWidened(t *testing.T) {
	unsetKey(t)
	yaml := strings.Replace(minimalEnvYAML, `timeout: "5s"`, `timeout: "1s"`, 1)
	chdirTemp(t, yaml)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		t.Errorf("RequestTimeout %v not widened past upstream timeout %v", cfg.RequestTimeout, cfg.WeatherAPITimeout)
	}
}

func TestLoad_EnvFileNotFound(t *testing.T) {
	unsetKey(t)
	t.Setenv("ENV_NAME", "nonexistent")
	chdirTemp(t, minimalEnvYAML)

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("Load() error = %v, want config-file-not-found", err)
	}
}

func unsetKey(t *testing.T) {
	t.Helper()
	t.Setenv("WEATHER_API_KEY", "")
	os.Unsetenv("WEATHER_API_KEY")
}

// chdirTemp creates a temp project root with config/dev.yaml and chdirs into
// it for the duration of the test.
func chdirTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	configDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "dev.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	return dir
}

func writeSecretsFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config", "secrets.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write secrets file: %v", err)
	}
}
