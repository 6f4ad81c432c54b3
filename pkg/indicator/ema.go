package indicator

import (
	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

// EMA calculates the Exponential Moving Average of close prices
// EMA = (Close - Previous EMA) * Multiplier + Previous EMA
// Multiplier = 2 / (Period + 1)
//
// The first value is the SMA of the first period closes and carries the
// timestamp of the period-th candle. A series shorter than period yields
// an empty slice.
func EMA(candles []models.Candlestick, period int) []MovingAverage {
	if period < 1 || len(candles) < period {
		return []MovingAverage{}
	}

	multiplier := 2.0 / float64(period+1)
	result := make([]MovingAverage, 0, len(candles)-period+1)

	var seed float64
	for i := 0; i < period; i++ {
		seed += candles[i].Close
	}
	seed /= float64(period)

	result = append(result, MovingAverage{
		Period:    period,
		Value:     seed,
		Timestamp: candles[period-1].Timestamp,
	})

	prev := seed
	for i := period; i < len(candles); i++ {
		value := (candles[i].Close-prev)*multiplier + prev
		result = append(result, MovingAverage{
			Period:    period,
			Value:     value,
			Timestamp: candles[i].Timestamp,
		})
		prev = value
	}

	return result
}
