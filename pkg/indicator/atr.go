package indicator

import (
	"math"

	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

// Volatility classifies an ATR reading relative to the last close
type Volatility string

const (
	VolatilityHigh   Volatility = "high"
	VolatilityMedium Volatility = "medium"
	VolatilityLow    Volatility = "low"
)

// ATRResult is an Average True Range reading
type ATRResult struct {
	Value      float64    `json:"value"`
	High       float64    `json:"high"` // Last candle's high
	Low        float64    `json:"low"`  // Last candle's low
	Volatility Volatility `json:"volatility"`
}

// ATR calculates the Average True Range using Wilder's smoothing
// TR = max(high - low, |high - prevClose|, |low - prevClose|)
// ATR = ((period - 1) * prevATR + TR) / period
//
// The seed is the mean of the first period true ranges. Returns nil when the
// series has fewer than period+1 candles.
func ATR(candles []models.Candlestick, period int) *ATRResult {
	if period < 1 || len(candles) < period+1 {
		return nil
	}

	trueRanges := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		trueRanges = append(trueRanges, trueRange(candles[i], candles[i-1].Close))
	}

	atr := mean(trueRanges[:period])
	p := float64(period)
	for _, tr := range trueRanges[period:] {
		atr = ((p-1)*atr + tr) / p
	}

	last := candles[len(candles)-1]

	return &ATRResult{
		Value:      atr,
		High:       last.High,
		Low:        last.Low,
		Volatility: classifyVolatility(atr, last.Close),
	}
}

func trueRange(c models.Candlestick, prevClose float64) float64 {
	return math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
}

// classifyVolatility evaluates high, then medium, then low
func classifyVolatility(atr, lastClose float64) Volatility {
	switch {
	case atr > lastClose*0.03:
		return VolatilityHigh
	case atr > lastClose*0.01:
		return VolatilityMedium
	default:
		return VolatilityLow
	}
}
