package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atmoslabs/weather-prediction-service/internal/models"
	"github.com/atmoslabs/weather-prediction-service/internal/observability"
)

// WeatherPrefetcher is implemented by the service layer to fetch weather for
// a coordinate. Used by CacheWarmer to avoid a circular dependency on the
// service package.
type WeatherPrefetcher interface {
	GetCurrentWeather(ctx context.Context, lat, lon float64) (models.CurrentWeather, error)
	GetForecast(ctx context.Context, lat, lon float64) (models.Forecast, error)
}

// CacheWarmer warms the cache by prefetching current conditions and forecasts
// for a list of tracked locations.
type CacheWarmer struct {
	fetcher WeatherPrefetcher
	logger  *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given fetcher and logger.
func NewCacheWarmer(fetcher WeatherPrefetcher, logger *zap.Logger) *CacheWarmer {
	return &CacheWarmer{fetcher: fetcher, logger: logger}
}

// Warm fetches current weather and forecast for each location concurrently,
// populating the cache through the fetcher. Returns an aggregated error if
// any location failed.
func (w *CacheWarmer) Warm(ctx context.Context, locations []models.Location) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming cache", zap.Int("locations", len(locations)))
	}
	var wg sync.WaitGroup
	errCh := make(chan error, 2*len(locations))
	for _, loc := range locations {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.fetcher.GetCurrentWeather(ctx, loc.Lat, loc.Lon); err != nil {
				errCh <- fmt.Errorf("warm current %s: %w", loc.Name, err)
			}
			if _, err := w.fetcher.GetForecast(ctx, loc.Lat, loc.Lon); err != nil {
				errCh <- fmt.Errorf("warm forecast %s: %w", loc.Name, err)
			}
		}()
	}
	wg.Wait()
	close(errCh)
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if w.logger != nil {
		w.logger.Info("cache warming complete", zap.Int("locations", len(locations)), zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval
// until ctx is done.
func (w *CacheWarmer) WarmPeriodic(ctx context.Context, locations []models.Location, interval time.Duration) error {
	if err := w.Warm(ctx, locations); err != nil && w.logger != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, locations); err != nil && w.logger != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
