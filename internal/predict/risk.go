package predict

import "github.com/atmoslabs/weather-prediction-service/internal/models"

// riskScore accumulates the weighted threshold contributions for a
// (temperature, humidity, pressure) triple. Pure and total: defined for all
// real inputs, extremes saturate.
func riskScore(temp, humidity, pressure float64) float64 {
	score := 0.0

	switch {
	case temp > 35 || temp < -10:
		score += 0.4
	case temp > 30 || temp < 0:
		score += 0.2
	}

	switch {
	case humidity > 90:
		score += 0.3
	case humidity > 80:
		score += 0.1
	}

	switch {
	case pressure < 980:
		score += 0.3
	case pressure < 1000:
		score += 0.1
	}

	return score
}

// Risk maps a weather triple to a coarse severity. Thresholds are strict:
// a score of exactly 0.7 is Medium, exactly 0.4 is Low.
func Risk(temp, humidity, pressure float64) models.RiskLevel {
	score := riskScore(temp, humidity, pressure)
	switch {
	case score > 0.7:
		return models.RiskHigh
	case score > 0.4:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
