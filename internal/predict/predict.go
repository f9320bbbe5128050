// Package predict produces multi-day weather predictions from a documented
// statistical heuristic: a seasonal sine oscillation blended with uniform
// noise over latitude-derived baseline conditions. The model label below is
// kept for consumer compatibility; no learned model or training data is
// involved anywhere in this package.
package predict

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/atmoslabs/weather-prediction-service/internal/models"
)

// ModelLabel is the fixed label consumers expect on prediction results.
const ModelLabel = "Neural Weather Network v2.1"

// ModelAccuracy is the fixed accuracy figure presented alongside the label.
const ModelAccuracy = 0.87

// Defaults used when no baseline can be derived.
const (
	defaultBaseTemp     = 20.0
	defaultBaseHumidity = 60.0
	defaultBasePressure = 1013.0
)

const yearMs = 365.25 * 24 * 60 * 60 * 1000

// Baseline returns synthetic climate normals for a coordinate. The stub is
// deterministic, seeded by latitude, so repeated calls for the same point
// agree: warmer near the equator, slightly drier at the poles.
func Baseline(c models.Coordinate) (baseTemp, baseHumidity, basePressure float64) {
	rng := rand.New(rand.NewSource(int64(math.Round(c.Lat * 1000))))
	baseTemp = defaultBaseTemp + 8 - math.Abs(c.Lat)*0.45 + rng.Float64()*4 - 2
	baseHumidity = defaultBaseHumidity + rng.Float64()*20 - 10
	basePressure = defaultBasePressure
	return baseTemp, baseHumidity, basePressure
}

// ClassifyCondition picks the day's condition from the synthesized triple.
// Evaluated in fixed priority order; first match wins.
func ClassifyCondition(temp float64, humidity, pressure int) string {
	switch {
	case humidity > 80:
		return "Rain"
	case humidity > 70:
		return "Clouds"
	case pressure < 1000:
		return "Storm"
	case temp < 0:
		return "Snow"
	default:
		return "Clear"
	}
}

// Generator produces prediction sequences. The random source is injected so
// tests can pin outputs; production seeds from entropy. Safe for concurrent
// use.
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

// Predict generates one PredictionDay per day offset in [0, days), dated in
// whole-day increments from today. The caller validates the coordinate.
func (g *Generator) Predict(coord models.Coordinate, days int) models.PredictionResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	baseTemp, baseHumidity, basePressure := Baseline(coord)
	start := startOfDay(now)

	out := make([]models.PredictionDay, 0, days)
	for i := 0; i < days; i++ {
		seasonal := math.Sin(2 * math.Pi * (float64(now.UnixMilli())/yearMs + float64(i)/365))
		randomFactor := g.uniform(-0.15, 0.15)

		temp := int(math.Round(baseTemp + seasonal*15 + randomFactor*10))
		humidity := int(math.Round(clamp(baseHumidity+g.uniform(-10, 10), 20, 100)))
		pressure := int(math.Round(basePressure + g.uniform(-10, 10)))

		out = append(out, models.PredictionDay{
			Date:        start.AddDate(0, 0, i),
			Temperature: temp,
			Humidity:    humidity,
			Pressure:    pressure,
			Condition:   ClassifyCondition(float64(temp), humidity, pressure),
			Confidence:  math.Max(0.6, 1-math.Abs(randomFactor)),
			Risk:        Risk(float64(temp), float64(humidity), float64(pressure)),
		})
	}

	return models.PredictionResult{
		Coordinate:        coord,
		Days:              out,
		ModelLabel:        ModelLabel,
		ModelAccuracy:     ModelAccuracy,
		OverallConfidence: g.overallConfidence(coord),
		GeneratedAt:       now,
	}
}

// overallConfidence is independent of the per-day confidences: a function of
// coordinate-derived data availability. Points inside the well-covered band
// (|lat| < 60) score higher. Must hold mu.
func (g *Generator) overallConfidence(coord models.Coordinate) float64 {
	var availability float64
	if math.Abs(coord.Lat) < 60 && math.Abs(coord.Lon) < 180 {
		availability = 0.7 + g.rng.Float64()*0.3
	} else {
		availability = 0.3 + g.rng.Float64()*0.4
	}
	conf := math.Min(0.95, 0.6+availability*0.35)
	return clamp(conf, 0.6, 0.95)
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

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
