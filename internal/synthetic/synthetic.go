// Package synthetic generates plausible weather results when the live
// upstream is unreachable or returns garbage. Output is shaped exactly like
// live data but tagged with models.SourceSynthetic so consumers and tests can
// tell the two apart.
package synthetic

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/atmoslabs/weather-prediction-service/internal/models"
	"github.com/atmoslabs/weather-prediction-service/internal/predict"
)

// forecastEntries is the 5-day horizon at 3-hour intervals.
const forecastEntries = 40

// Generator builds mock current conditions and forecasts around the
// latitude-derived baseline climate. The random source is injected so tests
// can pin outputs. Safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a Generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// NewGeneratorWithClock creates a Generator with a fixed clock for tests.
func NewGeneratorWithClock(seed int64, now func() time.Time) *Generator {
	g := NewGenerator(seed)
	g.now = now
	return g
}

// Current produces mock current conditions for a coordinate.
func (g *Generator) Current(coord models.Coordinate) models.CurrentWeather {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	baseTemp, baseHumidity, basePressure := predict.Baseline(coord)

	temp := baseTemp + g.uniform(-4, 4)
	humidity := int(math.Round(clamp(baseHumidity+g.uniform(-15, 15), 20, 100)))
	pressure := int(math.Round(basePressure + g.uniform(-12, 12)))
	condition := predict.ClassifyCondition(temp, humidity, pressure)

	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	return models.CurrentWeather{
		Coordinate:    coord,
		Temperature:   round1(temp),
		FeelsLike:     round1(temp + g.uniform(-2, 1)),
		Humidity:      humidity,
		Pressure:      pressure,
		WindSpeed:     round1(g.uniform(0, 10)),
		WindDirection: g.rng.Intn(360),
		VisibilityKm:  round1(g.uniform(6, 10)),
		UVIndex:       round1(g.uniform(0, 8)),
		Condition:     condition,
		Description:   conditionDescription(condition),
		Icon:          conditionIcon(condition),
		Sunrise:       midnight.Add(6 * time.Hour),
		Sunset:        midnight.Add(18 * time.Hour),
		ObservedAt:    now,
		Source:        models.SourceSynthetic,
	}
}

// Forecast produces a mock 5-day forecast at 3-hour intervals, chronological
// from the next step after now.
func (g *Generator) Forecast(coord models.Coordinate) []models.ForecastEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	baseTemp, baseHumidity, basePressure := predict.Baseline(coord)

	entries := make([]models.ForecastEntry, 0, forecastEntries)
	for i := 0; i < forecastEntries; i++ {
		at := now.Add(time.Duration(i+1) * 3 * time.Hour)

		// Crude diurnal swing: warmest mid-afternoon, coldest before dawn.
		hour := float64(at.Hour())
		diurnal := 5 * math.Sin((hour-9)*math.Pi/12)

		temp := baseTemp + diurnal + g.uniform(-2, 2)
		humidity := int(math.Round(clamp(baseHumidity+g.uniform(-15, 15), 20, 100)))
		pressure := int(math.Round(basePressure + g.uniform(-12, 12)))
		condition := predict.ClassifyCondition(temp, humidity, pressure)

		entry := models.ForecastEntry{
			Time:          at,
			Temperature:   round1(temp),
			FeelsLike:     round1(temp + g.uniform(-2, 1)),
			Humidity:      humidity,
			WindSpeed:     round1(g.uniform(0, 10)),
			Condition:     condition,
			Description:   conditionDescription(condition),
			Icon:          conditionIcon(condition),
			CloudinessPct: cloudiness(condition, g.rng),
		}
		if condition == "Rain" || condition == "Storm" {
			entry.PrecipitationMm = round1(g.uniform(0.1, 3))
		} else if condition == "Snow" {
			entry.PrecipitationMm = round1(g.uniform(0.1, 1.5))
		}
		entries = append(entries, entry)
	}
	return entries
}

func conditionDescription(condition string) string {
	switch condition {
	case "Rain":
		return "light rain"
	case "Clouds":
		return "scattered clouds"
	case "Storm":
		return "thunderstorm"
	case "Snow":
		return "light snow"
	default:
		return "clear sky"
	}
}

func conditionIcon(condition string) string {
	switch condition {
	case "Rain":
		return "10d"
	case "Clouds":
		return "03d"
	case "Storm":
		return "11d"
	case "Snow":
		return "13d"
	default:
		return "01d"
	}
}

func cloudiness(condition string, rng *rand.Rand) int {
	switch condition {
	case "Rain", "Storm":
		return 70 + rng.Intn(31)
	case "Clouds":
		return 40 + rng.Intn(50)
	case "Snow":
		return 60 + rng.Intn(41)
	default:
		return rng.Intn(25)
	}
}

// uniform draws from [lo, hi). Must hold mu.
func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
