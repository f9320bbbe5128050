// Package export renders prediction results as downloadable CSV and JSON
// documents.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/atmoslabs/weather-prediction-service/internal/models"
)

// csvHeader is the column layout of a CSV export, one row per predicted day.
var csvHeader = []string{
	"Date", "Temperature (C)", "Humidity (%)", "Pressure (hPa)",
	"Condition", "Confidence", "Risk Level",
}

// Filename builds the attachment filename for an export, e.g.
// weather_prediction_40.7128_-74.0060_20260824.csv.
func Filename(result models.PredictionResult, format string) string {
	return fmt.Sprintf("weather_prediction_%.4f_%.4f_%s.%s",
		result.Coordinate.Lat,
		result.Coordinate.Lon,
		result.GeneratedAt.Format("20060102"),
		format,
	)
}

// CSV renders the prediction as a CSV document with a header row followed by
// one row per predicted day.
func CSV(result models.PredictionResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, day := range result.Days {
		row := []string{
			day.Date.Format("2006-01-02"),
			strconv.Itoa(day.Temperature),
			strconv.Itoa(day.Humidity),
			strconv.Itoa(day.Pressure),
			day.Condition,
			strconv.FormatFloat(day.Confidence, 'f', 2, 64),
			string(day.Risk),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

type jsonMetadata struct {
	GeneratedAt   string            `json:"generatedAt"`
	Model         string            `json:"model"`
	ModelAccuracy float64           `json:"modelAccuracy"`
	Coordinate    models.Coordinate `json:"coordinate"`
	Units         map[string]string `json:"units"`
}

type jsonSummary struct {
	TotalDays        int              `json:"totalDays"`
	HighRiskDays     int              `json:"highRiskDays"`
	MediumRiskDays   int              `json:"mediumRiskDays"`
	LowRiskDays      int              `json:"lowRiskDays"`
	OverallRiskLevel models.RiskLevel `json:"overallRiskLevel"`
}

type jsonDocument struct {
	Metadata jsonMetadata           `json:"metadata"`
	Days     []models.PredictionDay `json:"days"`
	Summary  jsonSummary            `json:"summary"`
}

// JSON renders the prediction as an indented JSON document with metadata and
// a risk summary alongside the per-day rows.
func JSON(result models.PredictionResult) ([]byte, error) {
	summary := jsonSummary{
		TotalDays:        len(result.Days),
		OverallRiskLevel: models.RiskLow,
	}
	for _, day := range result.Days {
		switch day.Risk {
		case models.RiskHigh:
			summary.HighRiskDays++
		case models.RiskMedium:
			summary.MediumRiskDays++
		default:
			summary.LowRiskDays++
		}
	}
	if summary.HighRiskDays > 0 {
		summary.OverallRiskLevel = models.RiskHigh
	} else if summary.MediumRiskDays > 0 {
		summary.OverallRiskLevel = models.RiskMedium
	}

	doc := jsonDocument{
		Metadata: jsonMetadata{
			GeneratedAt:   result.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
			Model:         result.ModelLabel,
			ModelAccuracy: result.ModelAccuracy,
			Coordinate:    result.Coordinate,
			Units: map[string]string{
				"temperature": "celsius",
				"humidity":    "percent",
				"pressure":    "hPa",
			},
		},
		Days:    result.Days,
		Summary: summary,
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}
	return out, nil
}
