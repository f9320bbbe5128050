package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/atmoslabs/weather-prediction-service/internal/cache"
	"github.com/atmoslabs/weather-prediction-service/internal/client"
	"github.com/atmoslabs/weather-prediction-service/internal/fallback"
	"github.com/atmoslabs/weather-prediction-service/internal/models"
	"github.com/atmoslabs/weather-prediction-service/internal/observability"
	"github.com/atmoslabs/weather-prediction-service/internal/predict"
	"github.com/atmoslabs/weather-prediction-service/internal/synthetic"
	"github.com/atmoslabs/weather-prediction-service/internal/validation"
)

// DefaultPredictionDays is the horizon used when the caller does not ask for
// a specific number of days.
const DefaultPredictionDays = 7

// WeatherService orchestrates weather retrieval: cache-aside fetch against
// the upstream API with an unconditional synthetic fallback, synthetic
// multi-day prediction, and multi-location batch fan-out. For valid
// coordinates the fetch methods never return an error; the one error class
// that propagates is coordinate validation.
type WeatherService struct {
	client            client.WeatherClient
	cache             cache.Cache
	ttl               time.Duration
	synth             *synthetic.Generator
	predictor         *predict.Generator
	fallbacks         *fallback.Tracker
	maxPredictionDays int
}

// NewWeatherService creates a WeatherService. ttl is the cache expiry for
// current and forecast results; maxPredictionDays caps the prediction
// horizon (0 means no cap).
func NewWeatherService(
	weatherClient client.WeatherClient,
	cacheStore cache.Cache,
	ttl time.Duration,
	synth *synthetic.Generator,
	predictor *predict.Generator,
	fallbacks *fallback.Tracker,
	maxPredictionDays int,
) *WeatherService {
	return &WeatherService{
		client:            weatherClient,
		cache:             cacheStore,
		ttl:               ttl,
		synth:             synth,
		predictor:         predictor,
		fallbacks:         fallbacks,
		maxPredictionDays: maxPredictionDays,
	}
}

// Fallbacks exposes the live/synthetic serve tracker for health reporting.
func (s *WeatherService) Fallbacks() *fallback.Tracker {
	return s.fallbacks
}

// GetCurrentWeather returns current conditions for the coordinate. Checks
// the cache first; on miss fetches upstream and caches the result; on any
// upstream failure serves a synthetic result instead of an error.
func (s *WeatherService) GetCurrentWeather(ctx context.Context, lat, lon float64) (models.CurrentWeather, error) {
	coord, err := validation.ValidateCoordinate(lat, lon)
	if err != nil {
		return models.CurrentWeather{}, err
	}

	logger := observability.LoggerFromContext(ctx)
	key := cache.CurrentKey(coord)

	var cached models.CurrentWeather
	if ok := s.cacheGet(ctx, key, "current", &cached, logger); ok {
		return cached, nil
	}

	data, err := s.client.GetCurrentWeather(ctx, coord)
	if err != nil {
		s.recordFallback("current", coord, err, logger)
		return s.synth.Current(coord), nil
	}

	s.fallbacks.RecordLive()
	s.cacheSet(ctx, key, data, logger)
	return data, nil
}

// GetForecast returns the 5-day/3-hour forecast for the coordinate with the
// same cache-aside and synthetic-fallback behavior as GetCurrentWeather.
func (s *WeatherService) GetForecast(ctx context.Context, lat, lon float64) (models.Forecast, error) {
	coord, err := validation.ValidateCoordinate(lat, lon)
	if err != nil {
		return models.Forecast{}, err
	}

	logger := observability.LoggerFromContext(ctx)
	key := cache.ForecastKey(coord)

	var cached models.Forecast
	if ok := s.cacheGet(ctx, key, "forecast", &cached, logger); ok {
		return cached, nil
	}

	entries, err := s.client.GetForecast(ctx, coord)
	if err != nil {
		s.recordFallback("forecast", coord, err, logger)
		return models.Forecast{
			Coordinate: coord,
			Entries:    s.synth.Forecast(coord),
			Source:     models.SourceSynthetic,
			FetchedAt:  time.Now(),
		}, nil
	}

	s.fallbacks.RecordLive()
	result := models.Forecast{
		Coordinate: coord,
		Entries:    entries,
		Source:     models.SourceLive,
		FetchedAt:  time.Now(),
	}
	s.cacheSet(ctx, key, result, logger)
	return result, nil
}

// GetPrediction generates an N-day synthetic prediction for the coordinate.
// days <= 0 falls back to DefaultPredictionDays; the configured cap bounds
// the horizon.
func (s *WeatherService) GetPrediction(ctx context.Context, lat, lon float64, days int) (models.PredictionResult, error) {
	coord, err := validation.ValidateCoordinate(lat, lon)
	if err != nil {
		return models.PredictionResult{}, err
	}

	if days <= 0 {
		days = DefaultPredictionDays
	}
	if s.maxPredictionDays > 0 && days > s.maxPredictionDays {
		days = s.maxPredictionDays
	}

	observability.PredictionsGeneratedTotal.Inc()
	observability.PredictionDays.Observe(float64(days))

	if logger := observability.LoggerFromContext(ctx); logger != nil {
		logger.Debug("generating prediction",
			zap.Float64("lat", coord.Lat),
			zap.Float64("lon", coord.Lon),
			zap.Int("days", days))
	}
	return s.predictor.Predict(coord, days), nil
}

// cacheGet reads and decodes a cached payload. Returns false on miss, cache
// error, or decode error, so callers fall through to a fresh fetch.
func (s *WeatherService) cacheGet(ctx context.Context, key, kind string, out any, logger *zap.Logger) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		if logger != nil {
			logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		if logger != nil {
			logger.Warn("cache payload corrupt", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	observability.CacheHitsTotal.WithLabelValues(kind).Inc()
	if logger != nil {
		logger.Debug("cache hit", zap.String("key", key))
	}
	return true
}

// cacheSet encodes and stores a payload. Failures are logged, not surfaced:
// a broken cache must not break serving.
func (s *WeatherService) cacheSet(ctx context.Context, key string, value any, logger *zap.Logger) {
	raw, err := json.Marshal(value)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		if logger != nil {
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *WeatherService) recordFallback(kind string, coord models.Coordinate, err error, logger *zap.Logger) {
	observability.SyntheticFallbacksTotal.WithLabelValues(kind).Inc()
	s.fallbacks.RecordSynthetic()
	if logger != nil {
		logger.Warn("upstream failed, serving synthetic",
			zap.String("kind", kind),
			zap.Float64("lat", coord.Lat),
			zap.Float64("lon", coord.Lon),
			zap.Error(err))
	}
}
