package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/atmoslabs/weather-prediction-service/internal/cache"
	"github.com/atmoslabs/weather-prediction-service/internal/client"
	"github.com/atmoslabs/weather-prediction-service/internal/fallback"
	"github.com/atmoslabs/weather-prediction-service/internal/models"
	"github.com/atmoslabs/weather-prediction-service/internal/predict"
	"github.com/atmoslabs/weather-prediction-service/internal/synthetic"
	"github.com/atmoslabs/weather-prediction-service/internal/validation"
)

type fakeClient struct {
	mu            sync.Mutex
	currentCalls  int
	forecastCalls int
	err           error
	current       models.CurrentWeather
	forecast      []models.ForecastEntry
}

func (f *fakeClient) GetCurrentWeather(ctx context.Context, coord models.Coordinate) (models.CurrentWeather, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentCalls++
	if f.err != nil {
		return models.CurrentWeather{}, f.err
	}
	out := f.current
	out.Coordinate = coord
	return out, nil
}

func (f *fakeClient) GetForecast(ctx context.Context, coord models.Coordinate) ([]models.ForecastEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forecastCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.forecast, nil
}

func (f *fakeClient) calls() (current, forecast int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentCalls, f.forecastCalls
}

func liveCurrent() models.CurrentWeather {
	return models.CurrentWeather{
		Temperature: 18.5,
		FeelsLike:   17.9,
		Humidity:    62,
		Pressure:    1016,
		Condition:   "Clouds",
		Description: "scattered clouds",
		Icon:        "03d",
		ObservedAt:  time.Unix(1756000000, 0).UTC(),
		Source:      models.SourceLive,
	}
}

func newTestService(c client.WeatherClient, ttl time.Duration) *WeatherService {
	return NewWeatherService(
		c,
		cache.NewInMemoryCache(),
		ttl,
		synthetic.NewGenerator(1),
		predict.NewGenerator(1),
		fallback.NewTracker(),
		14,
	)
}

// TestGetCurrentWeather_AvailabilityGuarantee verifies a failing upstream
// still yields a usable, synthetic-tagged result without an error.
func TestGetCurrentWeather_AvailabilityGuarantee(t *testing.T) {
	fc := &fakeClient{err: client.ErrUpstreamFailure}
	svc := newTestService(fc, 10*time.Minute)

	got, err := svc.GetCurrentWeather(context.Background(), 40.7128, -74.0060)
	if err != nil {
		t.Fatalf("GetCurrentWeather: %v", err)
	}
	if got.Source != models.SourceSynthetic {
		t.Fatalf("Source = %q, want synthetic", got.Source)
	}
	if math.IsNaN(got.Temperature) || math.IsInf(got.Temperature, 0) {
		t.Fatalf("temperature not finite: %v", got.Temperature)
	}
	valid := map[string]bool{"Clear": true, "Clouds": true, "Rain": true, "Snow": true, "Storm": true}
	if !valid[got.Condition] {
		t.Fatalf("condition = %q", got.Condition)
	}

	syn, total := svc.Fallbacks().Rate(time.Minute)
	if syn != 1 || total != 1 {
		t.Fatalf("fallback rate = (%d, %d), want (1, 1)", syn, total)
	}
}

// TestGetCurrentWeather_CacheIdempotence verifies the second call within TTL
// is served from cache without a second upstream call and with the identical
// payload.
func TestGetCurrentWeather_CacheIdempotence(t *testing.T) {
	fc := &fakeClient{current: liveCurrent()}
	svc := newTestService(fc, 10*time.Minute)
	ctx := context.Background()

	first, err := svc.GetCurrentWeather(ctx, 40.7128, -74.0060)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := svc.GetCurrentWeather(ctx, 40.7128, -74.0060)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if calls, _ := fc.calls(); calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", calls)
	}
	if second.Temperature != first.Temperature || second.Humidity != first.Humidity ||
		second.Condition != first.Condition || !second.ObservedAt.Equal(first.ObservedAt) {
		t.Fatalf("cached payload differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if second.Source != models.SourceLive {
		t.Fatalf("cached Source = %q, want live", second.Source)
	}
}

// TestGetCurrentWeather_CacheExpiry verifies a call after TTL issues a fresh
// upstream call.
func TestGetCurrentWeather_CacheExpiry(t *testing.T) {
	fc := &fakeClient{current: liveCurrent()}
	svc := newTestService(fc, 15*time.Millisecond)
	ctx := context.Background()

	if _, err := svc.GetCurrentWeather(ctx, 1, 2); err != nil {
		t.Fatalf("first call: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := svc.GetCurrentWeather(ctx, 1, 2); err != nil {
		t.Fatalf("second call: %v", err)
	}

	if calls, _ := fc.calls(); calls != 2 {
		t.Fatalf("upstream calls = %d, want 2", calls)
	}
}

// TestGetCurrentWeather_SyntheticNotCached verifies fallback results do not
// populate the cache: the next call retries upstream.
func TestGetCurrentWeather_SyntheticNotCached(t *testing.T) {
	fc := &fakeClient{err: client.ErrUpstreamFailure}
	svc := newTestService(fc, 10*time.Minute)
	ctx := context.Background()

	_, _ = svc.GetCurrentWeather(ctx, 1, 2)
	_, _ = svc.GetCurrentWeather(ctx, 1, 2)

	if calls, _ := fc.calls(); calls != 2 {
		t.Fatalf("upstream calls = %d, want 2 (synthetic result must not be cached)", calls)
	}
}

// TestGetCurrentWeather_InvalidCoordinate verifies validation errors
// propagate and the upstream is never consulted.
func TestGetCurrentWeather_InvalidCoordinate(t *testing.T) {
	fc := &fakeClient{current: liveCurrent()}
	svc := newTestService(fc, 10*time.Minute)

	_, err := svc.GetCurrentWeather(context.Background(), 91, 0)
	if !errors.Is(err, validation.ErrLatitudeRange) {
		t.Fatalf("err = %v, want ErrLatitudeRange", err)
	}
	if calls, _ := fc.calls(); calls != 0 {
		t.Fatalf("upstream called for invalid input")
	}
}

// TestGetForecast_FallbackAndCache verifies forecast fallback tagging and the
// live-path cache round-trip.
func TestGetForecast_FallbackAndCache(t *testing.T) {
	ctx := context.Background()

	// Failing upstream: synthetic, never an error.
	fcBad := &fakeClient{err: client.ErrUpstreamFailure}
	svcBad := newTestService(fcBad, 10*time.Minute)
	got, err := svcBad.GetForecast(ctx, 40.7128, -74.0060)
	if err != nil {
		t.Fatalf("GetForecast: %v", err)
	}
	if got.Source != models.SourceSynthetic || len(got.Entries) == 0 {
		t.Fatalf("synthetic forecast = source %q with %d entries", got.Source, len(got.Entries))
	}

	// Healthy upstream: cached on second call.
	fcGood := &fakeClient{forecast: []models.ForecastEntry{{
		Time:        time.Unix(1756000000, 0).UTC(),
		Temperature: 19,
		Condition:   "Clear",
	}}}
	svcGood := newTestService(fcGood, 10*time.Minute)
	if _, err := svcGood.GetForecast(ctx, 1, 2); err != nil {
		t.Fatalf("first forecast: %v", err)
	}
	cached, err := svcGood.GetForecast(ctx, 1, 2)
	if err != nil {
		t.Fatalf("second forecast: %v", err)
	}
	if _, calls := fcGood.calls(); calls != 1 {
		t.Fatalf("upstream forecast calls = %d, want 1", calls)
	}
	if cached.Source != models.SourceLive || len(cached.Entries) != 1 {
		t.Fatalf("cached forecast = source %q with %d entries", cached.Source, len(cached.Entries))
	}
}

// TestGetPrediction_DefaultsAndCap verifies the default 7-day horizon and the
// configured cap.
func TestGetPrediction_DefaultsAndCap(t *testing.T) {
	svc := newTestService(&fakeClient{current: liveCurrent()}, 10*time.Minute)
	ctx := context.Background()

	res, err := svc.GetPrediction(ctx, 40.7128, -74.0060, 0)
	if err != nil {
		t.Fatalf("GetPrediction: %v", err)
	}
	if len(res.Days) != DefaultPredictionDays {
		t.Fatalf("default days = %d, want %d", len(res.Days), DefaultPredictionDays)
	}
	if res.ModelLabel != predict.ModelLabel {
		t.Fatalf("model label = %q", res.ModelLabel)
	}

	res, err = svc.GetPrediction(ctx, 40.7128, -74.0060, 99)
	if err != nil {
		t.Fatalf("GetPrediction capped: %v", err)
	}
	if len(res.Days) != 14 {
		t.Fatalf("capped days = %d, want 14", len(res.Days))
	}

	if _, err := svc.GetPrediction(ctx, 0, 200, 3); !errors.Is(err, validation.ErrLongitudeRange) {
		t.Fatalf("err = %v, want ErrLongitudeRange", err)
	}
}
