package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/atmoslabs/weather-prediction-service/internal/models"
)

func sampleResult() models.PredictionResult {
	gen := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	return models.PredictionResult{
		Coordinate:        models.Coordinate{Lat: 40.7128, Lon: -74.0060},
		ModelLabel:        "Neural Weather Network v2.1",
		ModelAccuracy:     0.87,
		OverallConfidence: 0.9,
		GeneratedAt:       gen,
		Days: []models.PredictionDay{
			{Date: gen, Temperature: 22, Humidity: 55, Pressure: 1015, Condition: "Clear", Confidence: 0.91, Risk: models.RiskLow},
			{Date: gen.AddDate(0, 0, 1), Temperature: 31, Humidity: 85, Pressure: 998, Condition: "Rain", Confidence: 0.74, Risk: models.RiskMedium},
			{Date: gen.AddDate(0, 0, 2), Temperature: 37, Humidity: 92, Pressure: 975, Condition: "Storm", Confidence: 0.62, Risk: models.RiskHigh},
		},
	}
}

func TestFilename(t *testing.T) {
	got := Filename(sampleResult(), "csv")
	want := "weather_prediction_40.7128_-74.0060_20260824.csv"
	if got != want {
		t.Fatalf("Filename = %q, want %q", got, want)
	}
}

func TestCSV(t *testing.T) {
	out, err := CSV(sampleResult())
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}

	rows, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3 days", len(rows))
	}
	if rows[0][0] != "Date" || rows[0][6] != "Risk Level" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "2026-08-24" || rows[1][1] != "22" || rows[1][6] != "Low" {
		t.Errorf("first day row = %v", rows[1])
	}
	if rows[3][4] != "Storm" || rows[3][5] != "0.62" || rows[3][6] != "High" {
		t.Errorf("last day row = %v", rows[3])
	}
}

func TestJSON(t *testing.T) {
	out, err := JSON(sampleResult())
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var doc struct {
		Metadata struct {
			Model      string `json:"model"`
			Coordinate struct {
				Lat float64 `json:"lat"`
			} `json:"coordinate"`
		} `json:"metadata"`
		Days    []json.RawMessage `json:"days"`
		Summary struct {
			TotalDays        int    `json:"totalDays"`
			HighRiskDays     int    `json:"highRiskDays"`
			MediumRiskDays   int    `json:"mediumRiskDays"`
			LowRiskDays      int    `json:"lowRiskDays"`
			OverallRiskLevel string `json:"overallRiskLevel"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("parse output: %v", err)
	}

	if doc.Metadata.Model != "Neural Weather Network v2.1" {
		t.Errorf("model = %q", doc.Metadata.Model)
	}
	if doc.Metadata.Coordinate.Lat != 40.7128 {
		t.Errorf("lat = %v", doc.Metadata.Coordinate.Lat)
	}
	if len(doc.Days) != 3 || doc.Summary.TotalDays != 3 {
		t.Errorf("days = %d, summary total = %d", len(doc.Days), doc.Summary.TotalDays)
	}
	if doc.Summary.HighRiskDays != 1 || doc.Summary.MediumRiskDays != 1 || doc.Summary.LowRiskDays != 1 {
		t.Errorf("summary counts = %+v", doc.Summary)
	}
	if doc.Summary.OverallRiskLevel != "High" {
		t.Errorf("overall risk = %q, want High", doc.Summary.OverallRiskLevel)
	}
	if !strings.Contains(string(out), "\n  ") {
		t.Error("output is not indented")
	}
}

func TestJSON_OverallRiskLadder(t *testing.T) {
	res := sampleResult()

	res.Days = res.Days[:1]
	out, err := JSON(res)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.Contains(string(out), `"overallRiskLevel": "Low"`) {
		t.Error("all-Low days should yield Low overall risk")
	}

	res.Days = []models.PredictionDay{
		{Date: res.GeneratedAt, Risk: models.RiskLow},
		{Date: res.GeneratedAt, Risk: models.RiskMedium},
	}
	out, err = JSON(res)
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	if !strings.Contains(string(out), `"overallRiskLevel": "Medium"`) {
		t.Error("Medium day should raise overall risk to Medium")
	}
}
