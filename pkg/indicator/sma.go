package indicator

import (
	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

// MovingAverage is one moving-average value at the end of a window
type MovingAverage struct {
	Period    int     `json:"period"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"` // Timestamp of the window's last candle
}

// SMA calculates the Simple Moving Average of close prices
// SMA = Sum of closes over period / period
//
// One value is produced per sliding window. A series shorter than period
// (or a non-positive period) yields an empty slice.
func SMA(candles []models.Candlestick, period int) []MovingAverage {
	if period < 1 || len(candles) < period {
		return []MovingAverage{}
	}

	result := make([]MovingAverage, 0, len(candles)-period+1)
	for end := period; end <= len(candles); end++ {
		window := candles[end-period : end]

		var sum float64
		for i := range window {
			sum += window[i].Close
		}

		result = append(result, MovingAverage{
			Period:    period,
			Value:     sum / float64(period),
			Timestamp: window[len(window)-1].Timestamp,
		})
	}

	return result
}

// lastValue returns the last value of a moving-average sequence
func lastValue(values []MovingAverage) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1].Value, true
}
