package indicator

import (
	"math"
	"math/rand"

	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

const baseTimestamp = int64(1700000000)

// candlesFromCloses builds a one-minute series with open == close and a
// one-unit range on either side.
func candlesFromCloses(closes ...float64) []models.Candlestick {
	candles := make([]models.Candlestick, len(closes))
	for i, c := range closes {
		candles[i] = models.Candlestick{
			Timestamp:   baseTimestamp + int64(i)*60,
			Open:        c,
			High:        c + 1,
			Low:         c - 1,
			Close:       c,
			Volume:      1000,
			QuoteVolume: 1000 * c,
		}
	}
	return candles
}

func rising(n int, start, step float64) []models.Candlestick {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return candlesFromCloses(closes...)
}

// randomSeries builds a valid random-walk series from a fixed seed
func randomSeries(seed int64, n int) []models.Candlestick {
	rng := rand.New(rand.NewSource(seed))
	candles := make([]models.Candlestick, n)
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		closePrice := open * (1 + (rng.Float64()-0.5)*0.04)
		high := math.Max(open, closePrice) * (1 + rng.Float64()*0.01)
		low := math.Min(open, closePrice) * (1 - rng.Float64()*0.01)
		volume := rng.Float64() * 5000
		candles[i] = models.Candlestick{
			Timestamp:   baseTimestamp + int64(i)*3600,
			Open:        open,
			High:        high,
			Low:         low,
			Close:       closePrice,
			Volume:      volume,
			QuoteVolume: volume * (open + closePrice) / 2,
		}
		price = closePrice
	}
	return candles
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}
