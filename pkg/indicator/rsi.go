package indicator

import (
	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

const (
	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// RSIResult is a Relative Strength Index reading
type RSIResult struct {
	Value      float64 `json:"value"`
	Overbought bool    `json:"overbought"`
	Oversold   bool    `json:"oversold"`
}

// RSI calculates the Relative Strength Index
// RSI = 100 - (100 / (1 + RS))
// where RS = Average Gain / Average Loss
//
// Gains and losses are summed across every close-to-close change of the
// whole series and divided by period; this is a single-shot reading, not a
// Wilder-smoothed rolling RSI. Returns nil when the series has fewer than
// period+1 candles. When there are no losses the reading saturates at 100.
func RSI(candles []models.Candlestick, period int) *RSIResult {
	if period < 1 || len(candles) < period+1 {
		return nil
	}

	var gains, losses float64
	for i := 1; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change // Loss is positive
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return &RSIResult{
			Value:      100.0,
			Overbought: true,
			Oversold:   false,
		}
	}

	rs := avgGain / avgLoss
	rsi := 100.0 - (100.0 / (1.0 + rs))

	return &RSIResult{
		Value:      rsi,
		Overbought: rsi >= rsiOverbought,
		Oversold:   rsi <= rsiOversold,
	}
}
