package indicator

import (
	"time"

	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

// PriceChangeResult is the absolute and percentage change of the close over a window
type PriceChangeResult struct {
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	From          float64 `json:"from"`
	To            float64 `json:"to"`
}

// PriceChange measures the move from the latest close at or before
// (last timestamp - window) to the last close. Returns nil when the series
// does not reach back far enough or the reference close is zero.
func PriceChange(candles []models.Candlestick, window time.Duration) *PriceChangeResult {
	if len(candles) < 2 || window <= 0 {
		return nil
	}

	last := candles[len(candles)-1]
	cutoff := last.Timestamp - int64(window/time.Second)

	ref := -1
	for i := len(candles) - 2; i >= 0; i-- {
		if candles[i].Timestamp <= cutoff {
			ref = i
			break
		}
	}
	if ref < 0 || candles[ref].Close == 0 {
		return nil
	}

	from := candles[ref].Close
	change := last.Close - from

	return &PriceChangeResult{
		Change:        change,
		ChangePercent: change / from * 100.0,
		From:          from,
		To:            last.Close,
	}
}
