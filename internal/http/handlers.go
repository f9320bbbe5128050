package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atmoslabs/weather-prediction-service/internal/export"
	"github.com/atmoslabs/weather-prediction-service/internal/geocode"
	"github.com/atmoslabs/weather-prediction-service/internal/lifecycle"
	"github.com/atmoslabs/weather-prediction-service/internal/models"
	"github.com/atmoslabs/weather-prediction-service/internal/service"
	"github.com/atmoslabs/weather-prediction-service/internal/validation"
)

// maxBatchLocations bounds a single batch request.
const maxBatchLocations = 25

// Geocoder resolves free-text place queries to coordinates.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]models.GeocodeResult, error)
}

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	// DegradedWindow and DegradedSyntheticPct declare the service degraded
	// when the synthetic serve share within the window breaches the
	// percentage.
	DegradedWindow       time.Duration
	DegradedSyntheticPct int
	// CachePing, when set, is called to check cache reachability. Used when
	// the backend is memcached.
	CachePing func() error
	// LiveUpstream reports whether upstream API credentials are configured.
	LiveUpstream bool
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weatherService   *service.WeatherService
	geocoder         Geocoder
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(
	weatherService *service.WeatherService,
	geocoder Geocoder,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		weatherService: weatherService,
		geocoder:       geocoder,
		healthConfig:   healthConfig,
		logger:         logger,
	}
}

// GetCurrentWeather handles GET /weather/current?lat=..&lon=..
func (h *Handler) GetCurrentWeather(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseCoordinate(w, r)
	if !ok {
		return
	}
	result, err := h.weatherService.GetCurrentWeather(r.Context(), lat, lon)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetForecast handles GET /weather/forecast?lat=..&lon=..
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseCoordinate(w, r)
	if !ok {
		return
	}
	result, err := h.weatherService.GetForecast(r.Context(), lat, lon)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetPrediction handles GET /weather/prediction?lat=..&lon=..&days=N.
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseCoordinate(w, r)
	if !ok {
		return
	}
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, r, http.StatusBadRequest, "INVALID_DAYS", "days must be a non-negative integer")
			return
		}
		days = parsed
	}
	result, err := h.weatherService.GetPrediction(r.Context(), lat, lon, days)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PostBatch handles POST /weather/batch with a JSON body listing locations.
func (h *Handler) PostBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Locations []models.Location `json:"locations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a locations array")
		return
	}
	if len(body.Locations) == 0 {
		writeError(w, r, http.StatusBadRequest, "EMPTY_BATCH", "locations is required")
		return
	}
	if len(body.Locations) > maxBatchLocations {
		writeError(w, r, http.StatusBadRequest, "BATCH_TOO_LARGE",
			"at most "+strconv.Itoa(maxBatchLocations)+" locations per batch")
		return
	}

	entries := h.weatherService.GetBatch(r.Context(), body.Locations)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries":   entries,
		"requested": len(body.Locations),
		"returned":  len(entries),
	})
}

// Geocode handles GET /geocode?q=..&limit=N.
func (h *Handler) Geocode(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, r, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	results, err := h.geocoder.Search(r.Context(), query, limit)
	if err != nil {
		switch {
		case errors.Is(err, geocode.ErrEmptyQuery):
			writeError(w, r, http.StatusBadRequest, "EMPTY_QUERY", "q is required")
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			writeError(w, r, http.StatusGatewayTimeout, "GEOCODE_TIMEOUT", "geocoding timed out")
		default:
			writeError(w, r, http.StatusBadGateway, "GEOCODE_UNAVAILABLE", "Unable to resolve location")
			if logger, lok := r.Context().Value("logger").(*zap.Logger); lok && logger != nil {
				logger.Debug("geocode error", zap.Error(err))
			}
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// ExportPrediction handles GET /export/prediction?lat=..&lon=..&days=N&format=csv|json.
// The response is served as a file attachment.
func (h *Handler) ExportPrediction(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := parseCoordinate(w, r)
	if !ok {
		return
	}
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, r, http.StatusBadRequest, "INVALID_DAYS", "days must be a non-negative integer")
			return
		}
		days = parsed
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "csv" && format != "json" {
		writeError(w, r, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or json")
		return
	}

	result, err := h.weatherService.GetPrediction(r.Context(), lat, lon, days)
	if err != nil {
		writeValidationError(w, r, err)
		return
	}

	var payload []byte
	var contentType string
	switch format {
	case "csv":
		payload, err = export.CSV(result)
		contentType = "text/csv"
	default:
		payload, err = export.JSON(result)
		contentType = "application/json"
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "EXPORT_FAILED", "Unable to render export")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+export.Filename(result, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if h.healthConfig != nil && h.healthConfig.LiveUpstream {
		checks["upstream"] = "configured"
	} else {
		checks["upstream"] = "synthetic-only"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "weather-prediction-service",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 {
		resp["syntheticSharePct"] = h.weatherService.Fallbacks().SyntheticPct(h.healthConfig.DegradedWindow)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// computeHealthStatus determines the current health status.
// Decision order: shutting-down > degraded > healthy. Degraded means the
// synthetic serve share breached the configured threshold; results are still
// served, so degraded reports 200 with an explicit status.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedSyntheticPct > 0 {
		_, total := h.weatherService.Fallbacks().Rate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := h.weatherService.Fallbacks().SyntheticPct(h.healthConfig.DegradedWindow)
			if pct >= h.healthConfig.DegradedSyntheticPct {
				return healthResult{"degraded", http.StatusOK, "synthetic_share_breach"}
			}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// parseCoordinate reads lat and lon query parameters. Writes a 400 and
// returns ok=false when either is missing or not a number.
func parseCoordinate(w http.ResponseWriter, r *http.Request) (lat, lon float64, ok bool) {
	q := r.URL.Query()
	rawLat, rawLon := q.Get("lat"), q.Get("lon")
	if rawLat == "" || rawLon == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATE", "lat and lon are required")
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(rawLat, 64)
	lon, errLon := strconv.ParseFloat(rawLon, 64)
	if errLat != nil || errLon != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATE", "lat and lon must be numbers")
		return 0, 0, false
	}
	return lat, lon, true
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code,
// message, and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeValidationError maps coordinate validation failures to 400; anything
// else is unexpected at this layer and reports 500.
func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	if validation.IsValidationError(err) {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATE", err.Error())
		return
	}
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "unexpected error")
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Error("unexpected handler error", zap.Error(err))
	}
}
