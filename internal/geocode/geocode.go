package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/atmoslabs/weather-prediction-service/internal/models"
	"github.com/atmoslabs/weather-prediction-service/internal/observability"
)

var (
	ErrEmptyQuery      = errors.New("geocode query is empty")
	ErrUpstreamFailure = errors.New("geocoding upstream failure")
)

// Client resolves free-text queries to coordinates against a
// Nominatim-shaped endpoint. The provider enforces a usage policy of at most
// one request per second, so outbound calls are spaced through a
// last-call-timestamp gate: concurrent callers queue for one-second slots.
type Client struct {
	baseURL     string
	userAgent   string
	minInterval time.Duration
	client      *http.Client

	mu       sync.Mutex
	nextSlot time.Time
}

// NewClient creates a geocoding client. userAgent is required by the
// Nominatim usage policy. minInterval <= 0 falls back to 1s.
func NewClient(baseURL, userAgent string, minInterval, timeout time.Duration) *Client {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		userAgent:   userAgent,
		minInterval: minInterval,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type nominatimResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Search resolves query to up to limit coordinate matches. Waits on the
// spacing gate before issuing the request; a canceled context aborts the wait.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.GeocodeResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 5
	}

	if err := c.awaitSlot(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid geocode URL: %w", err)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		observability.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var raw []nominatimResult
	if err := json.Unmarshal(body, &raw); err != nil {
		observability.GeocodeRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: parse response: %v", ErrUpstreamFailure, err)
	}

	observability.GeocodeRequestsTotal.WithLabelValues("success").Inc()

	results := make([]models.GeocodeResult, 0, len(raw))
	for _, r := range raw {
		lat, latErr := strconv.ParseFloat(r.Lat, 64)
		lon, lonErr := strconv.ParseFloat(r.Lon, 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		results = append(results, models.GeocodeResult{
			Name: r.DisplayName,
			Lat:  lat,
			Lon:  lon,
		})
	}
	return results, nil
}

// awaitSlot reserves the next outbound slot and sleeps until it arrives.
// Reservation happens under the lock so concurrent callers serialize at
// minInterval spacing; the sleep itself happens outside the lock.
func (c *Client) awaitSlot(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	slot := c.nextSlot
	if slot.Before(now) {
		slot = now
	}
	c.nextSlot = slot.Add(c.minInterval)
	c.mu.Unlock()

	wait := time.Until(slot)
	if wait <= 0 {
		return nil
	}
	observability.GeocodeGateWaitSeconds.Observe(wait.Seconds())

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
