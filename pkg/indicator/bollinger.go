package indicator

import (
	"math"

	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

// BollingerBands is a volatility envelope around the SMA
type BollingerBands struct {
	Upper     float64 `json:"upper"`
	Middle    float64 `json:"middle"`
	Lower     float64 `json:"lower"`
	Bandwidth float64 `json:"bandwidth"` // (upper - lower) / middle * 100
}

// Bollinger calculates Bollinger Bands over the last period closes.
// Middle is the last SMA value, the deviation is the population standard
// deviation (divisor period). Returns nil when the series is shorter than period.
func Bollinger(candles []models.Candlestick, period int, stdDevMultiplier float64) *BollingerBands {
	if period < 1 || len(candles) < period {
		return nil
	}

	middle, ok := lastValue(SMA(candles, period))
	if !ok {
		return nil
	}

	var variance float64
	for _, c := range candles[len(candles)-period:] {
		d := c.Close - middle
		variance += d * d
	}
	variance /= float64(period)

	spread := stdDevMultiplier * math.Sqrt(variance)
	upper := middle + spread
	lower := middle - spread

	var bandwidth float64
	if middle != 0 {
		bandwidth = (upper - lower) / middle * 100.0
	}

	return &BollingerBands{
		Upper:     upper,
		Middle:    middle,
		Lower:     lower,
		Bandwidth: bandwidth,
	}
}
