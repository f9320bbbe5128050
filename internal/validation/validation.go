package validation

import (
	"errors"
	"fmt"
	"math"

	"github.com/atmoslabs/weather-prediction-service/internal/models"
)

// ErrLatitudeRange is returned when latitude is outside [-90, 90].
var ErrLatitudeRange = errors.New("latitude out of range")

// ErrLongitudeRange is returned when longitude is outside [-180, 180].
var ErrLongitudeRange = errors.New("longitude out of range")

// ErrNotFinite is returned when a coordinate component is NaN or infinite.
var ErrNotFinite = errors.New("coordinate is not a finite number")

// ValidateCoordinate checks lat/lon bounds and finiteness and returns the
// validated Coordinate. Validation failures are the one error class that
// propagates to callers; they are never masked by synthetic data.
func ValidateCoordinate(lat, lon float64) (models.Coordinate, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) {
		return models.Coordinate{}, fmt.Errorf("%w: latitude", ErrNotFinite)
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return models.Coordinate{}, fmt.Errorf("%w: longitude", ErrNotFinite)
	}
	if lat < -90 || lat > 90 {
		return models.Coordinate{}, fmt.Errorf("%w: %v", ErrLatitudeRange, lat)
	}
	if lon < -180 || lon > 180 {
		return models.Coordinate{}, fmt.Errorf("%w: %v", ErrLongitudeRange, lon)
	}
	return models.Coordinate{Lat: lat, Lon: lon}, nil
}

// IsValidationError reports whether err is one of the coordinate validation
// errors. Handlers use it to map failures to 400 instead of 500.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrLatitudeRange) ||
		errors.Is(err, ErrLongitudeRange) ||
		errors.Is(err, ErrNotFinite)
}
