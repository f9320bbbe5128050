package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atmoslabs/weather-prediction-service/internal/models"
	"github.com/atmoslabs/weather-prediction-service/internal/observability"
)

// batchPredictionDays is the fixed prediction horizon for batch entries.
const batchPredictionDays = 3

// GetBatch fetches current conditions, forecast, and a 3-day prediction for
// each location concurrently and returns only the locations where all three
// sub-fetches succeeded. The batch call itself never fails; a fully failed
// input yields an empty (non-nil) slice. Input order is preserved.
func (s *WeatherService) GetBatch(ctx context.Context, locations []models.Location) []models.BatchEntry {
	observability.BatchFetchesTotal.Inc()

	results := make([]*models.BatchEntry, len(locations))
	var outer errgroup.Group
	for i, loc := range locations {
		i, loc := i, loc
		outer.Go(func() error {
			if entry, ok := s.fetchLocation(ctx, loc); ok {
				results[i] = entry
			} else {
				observability.BatchLocationsDroppedTotal.Inc()
			}
			return nil
		})
	}
	// Workers only record into their own slot, so Wait cannot fail.
	_ = outer.Wait()

	out := make([]models.BatchEntry, 0, len(locations))
	for _, entry := range results {
		if entry != nil {
			out = append(out, *entry)
		}
	}
	return out
}

// fetchLocation runs the three sub-fetches for one location concurrently.
// Any failure drops the whole location: no partial entries.
func (s *WeatherService) fetchLocation(ctx context.Context, loc models.Location) (*models.BatchEntry, bool) {
	var (
		current    models.CurrentWeather
		forecast   models.Forecast
		prediction models.PredictionResult
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		current, err = s.GetCurrentWeather(ctx, loc.Lat, loc.Lon)
		return err
	})
	g.Go(func() error {
		var err error
		forecast, err = s.GetForecast(ctx, loc.Lat, loc.Lon)
		return err
	})
	g.Go(func() error {
		var err error
		prediction, err = s.GetPrediction(ctx, loc.Lat, loc.Lon, batchPredictionDays)
		return err
	})
	if err := g.Wait(); err != nil {
		if logger := observability.LoggerFromContext(ctx); logger != nil {
			logger.Warn("dropping batch location",
				zap.String("name", loc.Name),
				zap.Float64("lat", loc.Lat),
				zap.Float64("lon", loc.Lon),
				zap.Error(err))
		}
		return nil, false
	}

	id := loc.ID
	if id == "" {
		id = uuid.New().String()
	}
	return &models.BatchEntry{
		ID:         id,
		Location:   loc,
		Current:    current,
		Forecast:   forecast.Entries,
		Prediction: prediction,
		FetchedAt:  time.Now(),
	}, true
}
