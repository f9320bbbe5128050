package service

import (
	"context"
	"testing"
	"time"

	"github.com/atmoslabs/weather-prediction-service/internal/client"
	"github.com/atmoslabs/weather-prediction-service/internal/models"
)

// TestGetBatch_PartialFailureTolerance verifies that one bad location drops
// only that entry, the rest of the batch survives, and input order holds.
func TestGetBatch_PartialFailureTolerance(t *testing.T) {
	fc := &fakeClient{current: liveCurrent()}
	svc := newTestService(fc, 10*time.Minute)

	locations := []models.Location{
		{ID: "nyc", Name: "New York", Lat: 40.7128, Lon: -74.0060},
		{Name: "Nowhere", Lat: 95, Lon: 0},
		{ID: "lon", Name: "London", Lat: 51.5074, Lon: -0.1278},
	}

	entries := svc.GetBatch(context.Background(), locations)
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].ID != "nyc" || entries[1].ID != "lon" {
		t.Fatalf("order not preserved: %q, %q", entries[0].ID, entries[1].ID)
	}
	for _, e := range entries {
		if len(e.Prediction.Days) != batchPredictionDays {
			t.Errorf("%s: prediction days = %d, want %d", e.ID, len(e.Prediction.Days), batchPredictionDays)
		}
		if e.FetchedAt.IsZero() {
			t.Errorf("%s: FetchedAt is zero", e.ID)
		}
	}
}

// TestGetBatch_SyntheticOnUpstreamFailure verifies that a failing upstream
// does not drop locations: synthetic data keeps every valid entry alive.
func TestGetBatch_SyntheticOnUpstreamFailure(t *testing.T) {
	fc := &fakeClient{err: client.ErrUpstreamFailure}
	svc := newTestService(fc, 10*time.Minute)

	entries := svc.GetBatch(context.Background(), []models.Location{
		{Name: "Tokyo", Lat: 35.6762, Lon: 139.6503},
		{Name: "Sydney", Lat: -33.8688, Lon: 151.2093},
	})
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Current.Source != models.SourceSynthetic {
			t.Errorf("%s: Source = %q, want synthetic", e.Location.Name, e.Current.Source)
		}
		if e.ID == "" {
			t.Errorf("%s: empty ID not assigned", e.Location.Name)
		}
	}
}

// TestGetBatch_AllInvalid verifies a fully failed batch is empty, not nil,
// and not an error.
func TestGetBatch_AllInvalid(t *testing.T) {
	svc := newTestService(&fakeClient{current: liveCurrent()}, 10*time.Minute)

	entries := svc.GetBatch(context.Background(), []models.Location{
		{Name: "bad lat", Lat: -100, Lon: 0},
		{Name: "bad lon", Lat: 0, Lon: 181},
	})
	if entries == nil {
		t.Fatal("entries is nil, want empty slice")
	}
	if len(entries) != 0 {
		t.Fatalf("len(entries) = %d, want 0", len(entries))
	}
}

// TestGetBatch_Empty verifies an empty input is a no-op.
func TestGetBatch_Empty(t *testing.T) {
	svc := newTestService(&fakeClient{current: liveCurrent()}, 10*time.Minute)
	if entries := svc.GetBatch(context.Background(), nil); len(entries) != 0 {
		t.Fatalf("len(entries) = %d, want 0", len(entries))
	}
}
