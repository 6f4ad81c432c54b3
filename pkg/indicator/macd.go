package indicator

import (
	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

// MACDResult is a Moving Average Convergence Divergence reading
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MACD calculates the 12/26 MACD with a simple signal line.
//
// The MACD line pairs EMA12 and EMA26 values by position in their
// sequences, not by timestamp. The signal line is the arithmetic mean of
// the last 9 MACD values. Returns nil for fewer than 34 candles.
func MACD(candles []models.Candlestick) *MACDResult {
	if len(candles) < macdMinCandles {
		return nil
	}

	fast := EMA(candles, macdFastPeriod)
	slow := EMA(candles, macdSlowPeriod)
	if len(fast) == 0 || len(slow) == 0 {
		return nil
	}

	n := len(slow)
	if len(fast) < n {
		n = len(fast)
	}
	line := make([]float64, n)
	for i := 0; i < n; i++ {
		line[i] = fast[i].Value - slow[i].Value
	}

	if len(line) < macdSignalPeriod {
		return nil
	}

	signal := mean(line[len(line)-macdSignalPeriod:])
	macd := line[len(line)-1]

	return &MACDResult{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}
}
