package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/atmoslabs/weather-prediction-service/internal/models"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	// WeatherAPIKey is optional. When absent or a placeholder, the service
	// runs in synthetic-only mode and never calls the upstream API.
	WeatherAPIKey      string
	WeatherCurrentURL  string
	WeatherForecastURL string
	WeatherAPITimeout  time.Duration

	GeocodeURL         string
	GeocodeUserAgent   string
	GeocodeMinInterval time.Duration
	GeocodeTimeout     time.Duration

	RequestTimeout time.Duration
	CacheTTL       time.Duration
	CacheBackend   string // "in_memory" or "memcached"

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	CircuitBreakerEnabled    bool
	CircuitBreakerTripAfter  int
	CircuitBreakerCloseAfter int
	CircuitBreakerCooldown   time.Duration

	MaxPredictionDays int

	DegradedWindow       time.Duration
	DegradedSyntheticPct int

	ShutdownTimeout time.Duration

	TrackedLocations []models.Location
	WarmCache        bool
	WarmInterval     time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		CurrentURL  string `yaml:"current_url"`
		ForecastURL string `yaml:"forecast_url"`
		Timeout     string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Geocode struct {
		URL         string `yaml:"url"`
		UserAgent   string `yaml:"user_agent"`
		MinInterval string `yaml:"min_interval"`
		Timeout     string `yaml:"timeout"`
	} `yaml:"geocode"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RetryMaxAttempts int    `yaml:"retry_max_attempts"`
		RetryBaseDelay   string `yaml:"retry_base_delay"`
		RetryMaxDelay    string `yaml:"retry_max_delay"`
		RateLimitRPS     int    `yaml:"rate_limit_rps"`
		RateLimitBurst   int    `yaml:"rate_limit_burst"`
		CircuitBreaker   struct {
			Enabled    *bool  `yaml:"enabled"`
			TripAfter  int    `yaml:"trip_after"`
			CloseAfter int    `yaml:"close_after"`
			Cooldown   string `yaml:"cooldown"`
		} `yaml:"circuit_breaker"`
	} `yaml:"reliability"`

	Prediction struct {
		MaxDays int `yaml:"max_days"`
	} `yaml:"prediction"`

	Health struct {
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedSyntheticPct int    `yaml:"degraded_synthetic_pct"`
	} `yaml:"health"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Warming struct {
		Enabled   *bool  `yaml:"enabled"`
		Interval  string `yaml:"interval"`
		Locations []struct {
			Name string  `yaml:"name"`
			Lat  float64 `yaml:"lat"`
			Lon  float64 `yaml:"lon"`
		} `yaml:"locations"`
	} `yaml:"warming"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and
// config/secrets.yaml. The API key comes from WEATHER_API_KEY env or the
// secrets file and may be absent. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.WeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	if cfg.WeatherAPIKey == "" {
		secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
		secretsData, err := os.ReadFile(secretsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets file: %w", err)
			}
		} else {
			var sec secretsFile
			if err := yaml.Unmarshal(secretsData, &sec); err != nil {
				return nil, fmt.Errorf("parse secrets file: %w", err)
			}
			cfg.WeatherAPIKey = sec.WeatherAPIKey
		}
	}

	cfg.WeatherCurrentURL = fc.WeatherAPI.CurrentURL
	if cfg.WeatherCurrentURL == "" {
		cfg.WeatherCurrentURL = "https://api.openweathermap.org/data/2.5/weather"
	}
	cfg.WeatherForecastURL = fc.WeatherAPI.ForecastURL
	if cfg.WeatherForecastURL == "" {
		cfg.WeatherForecastURL = "https://api.openweathermap.org/data/2.5/forecast"
	}
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 2*time.Second)

	cfg.GeocodeURL = fc.Geocode.URL
	if cfg.GeocodeURL == "" {
		cfg.GeocodeURL = "https://nominatim.openstreetmap.org/search"
	}
	cfg.GeocodeUserAgent = fc.Geocode.UserAgent
	if cfg.GeocodeUserAgent == "" {
		cfg.GeocodeUserAgent = "weather-prediction-service/1.0"
	}
	cfg.GeocodeMinInterval = parseDuration(fc.Geocode.MinInterval, time.Second)
	cfg.GeocodeTimeout = parseDuration(fc.Geocode.Timeout, 10*time.Second)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 10*time.Minute)
	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RetryAttempts = fc.Reliability.RetryMaxAttempts
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	cfg.RetryBaseDelay = parseDuration(fc.Reliability.RetryBaseDelay, 100*time.Millisecond)
	cfg.RetryMaxDelay = parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cfg.CircuitBreakerEnabled = true
	if fc.Reliability.CircuitBreaker.Enabled != nil {
		cfg.CircuitBreakerEnabled = *fc.Reliability.CircuitBreaker.Enabled
	}
	cfg.CircuitBreakerTripAfter = fc.Reliability.CircuitBreaker.TripAfter
	if cfg.CircuitBreakerTripAfter <= 0 {
		cfg.CircuitBreakerTripAfter = 5
	}
	cfg.CircuitBreakerCloseAfter = fc.Reliability.CircuitBreaker.CloseAfter
	if cfg.CircuitBreakerCloseAfter <= 0 {
		cfg.CircuitBreakerCloseAfter = 2
	}
	cfg.CircuitBreakerCooldown = parseDuration(fc.Reliability.CircuitBreaker.Cooldown, 30*time.Second)

	cfg.MaxPredictionDays = fc.Prediction.MaxDays
	if raw := os.Getenv("MAX_PREDICTION_DAYS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			cfg.MaxPredictionDays = v
		}
	}
	if cfg.MaxPredictionDays <= 0 {
		cfg.MaxPredictionDays = 14
	}

	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedSyntheticPct = fc.Health.DegradedSyntheticPct
	if cfg.DegradedSyntheticPct <= 0 {
		cfg.DegradedSyntheticPct = 50
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	cfg.WarmCache = false
	if fc.Warming.Enabled != nil {
		cfg.WarmCache = *fc.Warming.Enabled
	}
	cfg.WarmInterval = parseDurationOrZero(fc.Warming.Interval, 0)
	for _, loc := range fc.Warming.Locations {
		cfg.TrackedLocations = append(cfg.TrackedLocations, models.Location{
			Name: loc.Name,
			Lat:  loc.Lat,
			Lon:  loc.Lon,
		})
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty
// string or parse error. Zero or negative durations pass through as-is.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
// RequestTimeout is widened to exceed the upstream timeout so the handler
// deadline cannot fire before the client gives up.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	return nil
}
