package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atmoslabs/weather-prediction-service/internal/circuitbreaker"
	"github.com/atmoslabs/weather-prediction-service/internal/models"
	"github.com/atmoslabs/weather-prediction-service/internal/observability"
)

// WeatherClient fetches current conditions and the 5-day/3-hour forecast for
// a coordinate from the upstream provider.
type WeatherClient interface {
	GetCurrentWeather(ctx context.Context, coord models.Coordinate) (models.CurrentWeather, error)
	GetForecast(ctx context.Context, coord models.Coordinate) ([]models.ForecastEntry, error)
}

var (
	ErrNoCredentials    = errors.New("no API credentials configured")
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrRateLimited      = errors.New("rate limited")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrMalformedPayload = errors.New("malformed upstream payload")
)

// OpenWeatherClient talks to an OpenWeather-shaped API. Requests carry a
// per-call timeout and are retried with exponential backoff; an optional
// circuit breaker short-circuits calls while the upstream is failing.
type OpenWeatherClient struct {
	apiKey         string
	currentURL     string
	forecastURL    string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *circuitbreaker.Breaker
}

// NewOpenWeatherClient creates a client with default retry settings. An empty
// or placeholder apiKey is allowed: every call then fails with
// ErrNoCredentials and the service layer serves the synthetic path.
func NewOpenWeatherClient(apiKey, currentURL, forecastURL string, timeout time.Duration) *OpenWeatherClient {
	return NewOpenWeatherClientWithRetry(apiKey, currentURL, forecastURL, timeout, 3, 100*time.Millisecond, 2*time.Second)
}

// NewOpenWeatherClientWithRetry creates a client with explicit retry settings.
func NewOpenWeatherClientWithRetry(apiKey, currentURL, forecastURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) *OpenWeatherClient {
	if isPlaceholderKey(apiKey) {
		apiKey = ""
	}
	if retryAttempts <= 0 {
		retryAttempts = 1
	}
	return &OpenWeatherClient{
		apiKey:         apiKey,
		currentURL:     currentURL,
		forecastURL:    forecastURL,
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker installs a circuit breaker around upstream calls.
func (c *OpenWeatherClient) SetBreaker(b *circuitbreaker.Breaker) {
	c.breaker = b
}

// HasCredentials reports whether a usable API key is configured.
func (c *OpenWeatherClient) HasCredentials() bool {
	return c.apiKey != ""
}

func isPlaceholderKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	return k == "" || k == "your_api_key_here" || k == "changeme" || k == "demo"
}

type currentResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Dt  int64 `json:"dt"`
	Sys struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
		Clouds struct {
			All int `json:"all"`
		} `json:"clouds"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Rain struct {
			ThreeHour float64 `json:"3h"`
		} `json:"rain"`
	} `json:"list"`
}

// GetCurrentWeather fetches and normalizes current conditions for coord.
func (c *OpenWeatherClient) GetCurrentWeather(ctx context.Context, coord models.Coordinate) (models.CurrentWeather, error) {
	body, err := c.fetch(ctx, "current", c.currentURL, coord)
	if err != nil {
		return models.CurrentWeather{}, err
	}

	var resp currentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.CurrentWeather{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(resp.Weather) == 0 {
		return models.CurrentWeather{}, fmt.Errorf("%w: missing weather block", ErrMalformedPayload)
	}

	return models.CurrentWeather{
		Coordinate:    coord,
		Temperature:   resp.Main.Temp,
		FeelsLike:     resp.Main.FeelsLike,
		Humidity:      resp.Main.Humidity,
		Pressure:      resp.Main.Pressure,
		WindSpeed:     resp.Wind.Speed,
		WindDirection: resp.Wind.Deg,
		VisibilityKm:  float64(resp.Visibility) / 1000,
		Condition:     resp.Weather[0].Main,
		Description:   resp.Weather[0].Description,
		Icon:          resp.Weather[0].Icon,
		Sunrise:       time.Unix(resp.Sys.Sunrise, 0).UTC(),
		Sunset:        time.Unix(resp.Sys.Sunset, 0).UTC(),
		ObservedAt:    time.Unix(resp.Dt, 0).UTC(),
		Source:        models.SourceLive,
	}, nil
}

// GetForecast fetches and normalizes the 3-hour interval forecast for coord.
func (c *OpenWeatherClient) GetForecast(ctx context.Context, coord models.Coordinate) ([]models.ForecastEntry, error) {
	body, err := c.fetch(ctx, "forecast", c.forecastURL, coord)
	if err != nil {
		return nil, err
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(resp.List) == 0 {
		return nil, fmt.Errorf("%w: empty forecast list", ErrMalformedPayload)
	}

	entries := make([]models.ForecastEntry, 0, len(resp.List))
	for _, item := range resp.List {
		entry := models.ForecastEntry{
			Time:            time.Unix(item.Dt, 0).UTC(),
			Temperature:     item.Main.Temp,
			FeelsLike:       item.Main.FeelsLike,
			Humidity:        item.Main.Humidity,
			WindSpeed:       item.Wind.Speed,
			PrecipitationMm: item.Rain.ThreeHour,
			CloudinessPct:   item.Clouds.All,
		}
		if len(item.Weather) > 0 {
			entry.Condition = item.Weather[0].Main
			entry.Description = item.Weather[0].Description
			entry.Icon = item.Weather[0].Icon
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// fetch issues the HTTP call with retries, routed through the breaker when
// one is installed.
func (c *OpenWeatherClient) fetch(ctx context.Context, endpoint, baseURL string, coord models.Coordinate) ([]byte, error) {
	if !c.HasCredentials() {
		return nil, ErrNoCredentials
	}

	var body []byte
	call := func() error {
		var err error
		body, err = c.fetchWithRetry(ctx, endpoint, baseURL, coord)
		return err
	}

	if c.breaker != nil {
		if err := c.breaker.Do(call); err != nil {
			if errors.Is(err, circuitbreaker.ErrOpen) {
				return nil, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
			}
			return nil, err
		}
		return body, nil
	}
	if err := call(); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *OpenWeatherClient) fetchWithRetry(ctx context.Context, endpoint, baseURL string, coord models.Coordinate) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.UpstreamRetriesTotal.Inc()
			delay := c.backoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := c.callAPI(ctx, endpoint, baseURL, coord)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("exhausted retries: %w", lastErr)
}

func (c *OpenWeatherClient) callAPI(ctx context.Context, endpoint, baseURL string, coord models.Coordinate) ([]byte, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, baseURL, coord)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("build request: %w", err)
	}

	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.UpstreamDuration.WithLabelValues(endpoint, "error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.UpstreamDuration.WithLabelValues(endpoint, status).Observe(duration)

	if err := handleErrorResponse(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, baseURL string, coord models.Coordinate) (*http.Request, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%.4f", coord.Lat))
	params.Set("lon", fmt.Sprintf("%.4f", coord.Lon))
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: HTTP 401", ErrInvalidAPIKey)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}
	return nil
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}

	errStr := err.Error()
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "context deadline exceeded") || strings.Contains(errStr, "context canceled") {
		return true
	}
	return false
}

func (c *OpenWeatherClient) backoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func extractCorrelationID(ctx context.Context) string {
	if v := ctx.Value("correlation_id"); v != nil {
		if corrID, ok := v.(string); ok {
			return corrID
		}
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
