package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/atmoslabs/weather-prediction-service/internal/models"
)

type mockPrefetcher struct {
	currentCalls  atomic.Int64
	forecastCalls atomic.Int64
	err           error
}

func (m *mockPrefetcher) GetCurrentWeather(ctx context.Context, lat, lon float64) (models.CurrentWeather, error) {
	m.currentCalls.Add(1)
	if m.err != nil {
		return models.CurrentWeather{}, m.err
	}
	return models.CurrentWeather{Temperature: 10, Condition: "Clear"}, nil
}

func (m *mockPrefetcher) GetForecast(ctx context.Context, lat, lon float64) (models.Forecast, error) {
	m.forecastCalls.Add(1)
	if m.err != nil {
		return models.Forecast{}, m.err
	}
	return models.Forecast{Source: models.SourceLive}, nil
}

func TestCacheWarmer_Warm_Success(t *testing.T) {
	fetcher := &mockPrefetcher{}
	warmer := NewCacheWarmer(fetcher, nil)

	locations := []models.Location{
		{Name: "New York", Lat: 40.7128, Lon: -74.0060},
		{Name: "London", Lat: 51.5074, Lon: -0.1278},
	}
	if err := warmer.Warm(context.Background(), locations); err != nil {
		t.Fatalf("Warm() error = %v, want nil", err)
	}
	if got := fetcher.currentCalls.Load(); got != 2 {
		t.Errorf("current calls = %d, want 2", got)
	}
	if got := fetcher.forecastCalls.Load(); got != 2 {
		t.Errorf("forecast calls = %d, want 2", got)
	}
}

func TestCacheWarmer_Warm_EmptyLocations(t *testing.T) {
	warmer := NewCacheWarmer(&mockPrefetcher{}, nil)
	ctx := context.Background()

	if err := warmer.Warm(ctx, nil); err != nil {
		t.Fatalf("Warm() with nil locations error = %v, want nil", err)
	}
	if err := warmer.Warm(ctx, []models.Location{}); err != nil {
		t.Fatalf("Warm() with empty locations error = %v, want nil", err)
	}
}

func TestCacheWarmer_Warm_FetcherError(t *testing.T) {
	fetcher := &mockPrefetcher{err: errors.New("api down")}
	warmer := NewCacheWarmer(fetcher, nil)

	err := warmer.Warm(context.Background(), []models.Location{{Name: "Oslo", Lat: 59.91, Lon: 10.75}})
	if err == nil {
		t.Fatal("Warm() error = nil, want non-nil")
	}
}
