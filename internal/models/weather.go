package models

import "time"

// Source tags where a result came from: a live upstream response or the
// synthetic fallback generator. Consumers can distinguish degraded mode
// without guessing from field shape.
type Source string

const (
	SourceLive      Source = "live"
	SourceSynthetic Source = "synthetic"
)

// Coordinate is a (latitude, longitude) query point. Never mutated after creation.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type CurrentWeather struct {
	Coordinate    Coordinate `json:"coordinate"`
	Temperature   float64    `json:"temperature"`
	FeelsLike     float64    `json:"feelsLike"`
	Humidity      int        `json:"humidity"`
	Pressure      int        `json:"pressure"`
	WindSpeed     float64    `json:"windSpeed"`
	WindDirection int        `json:"windDirection"`
	VisibilityKm  float64    `json:"visibilityKm"`
	UVIndex       float64    `json:"uvIndex"`
	Condition     string     `json:"condition"`
	Description   string     `json:"description"`
	Icon          string     `json:"icon"`
	Sunrise       time.Time  `json:"sunrise"`
	Sunset        time.Time  `json:"sunset"`
	ObservedAt    time.Time  `json:"observedAt"`
	Source        Source     `json:"source"`
}

type ForecastEntry struct {
	Time            time.Time `json:"time"`
	Temperature     float64   `json:"temperature"`
	FeelsLike       float64   `json:"feelsLike"`
	Humidity        int       `json:"humidity"`
	WindSpeed       float64   `json:"windSpeed"`
	Condition       string    `json:"condition"`
	Description     string    `json:"description"`
	Icon            string    `json:"icon"`
	PrecipitationMm float64   `json:"precipitationMm"`
	CloudinessPct   int       `json:"cloudinessPct"`
}

// Forecast is a chronologically ordered sequence of 3-hour forecast entries.
type Forecast struct {
	Coordinate Coordinate      `json:"coordinate"`
	Entries    []ForecastEntry `json:"entries"`
	Source     Source          `json:"source"`
	FetchedAt  time.Time       `json:"fetchedAt"`
}

// RiskLevel is a coarse severity derived from temperature, humidity and
// pressure via fixed weighted thresholds.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

type PredictionDay struct {
	Date        time.Time `json:"date"`
	Temperature int       `json:"temperature"`
	Humidity    int       `json:"humidity"`
	Pressure    int       `json:"pressure"`
	Condition   string    `json:"condition"`
	Confidence  float64   `json:"confidence"`
	Risk        RiskLevel `json:"riskLevel"`
}

type PredictionResult struct {
	Coordinate        Coordinate      `json:"coordinate"`
	Days              []PredictionDay `json:"days"`
	ModelLabel        string          `json:"model"`
	ModelAccuracy     float64         `json:"modelAccuracy"`
	OverallConfidence float64         `json:"overallConfidence"`
	GeneratedAt       time.Time       `json:"generatedAt"`
}

// Location is a named query point for batch fetches.
type Location struct {
	ID   string  `json:"id,omitempty"`
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// BatchEntry is the per-location result of a batch fetch. Locations where any
// sub-fetch failed are omitted entirely from the batch result.
type BatchEntry struct {
	ID         string           `json:"id"`
	Location   Location         `json:"location"`
	Current    CurrentWeather   `json:"current"`
	Forecast   []ForecastEntry  `json:"forecast"`
	Prediction PredictionResult `json:"prediction"`
	FetchedAt  time.Time        `json:"fetchedAt"`
}

// GeocodeResult is one match returned by the geocoding collaborator.
type GeocodeResult struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}
