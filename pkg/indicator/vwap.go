package indicator

import (
	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

// VWAPResult is a Volume Weighted Average Price reading
type VWAPResult struct {
	Value        float64 `json:"value"`
	TypicalPrice float64 `json:"typical_price"` // Last candle's (H+L+C)/3
	Volume       float64 `json:"volume"`        // Cumulative volume used
}

// VWAP calculates the Volume Weighted Average Price over the whole series
// VWAP = Sum(TypicalPrice * Volume) / Sum(Volume), TypicalPrice = (H+L+C)/3
//
// Returns nil when the series is empty or its total volume is zero.
func VWAP(candles []models.Candlestick) *VWAPResult {
	if len(candles) == 0 {
		return nil
	}

	var totalPriceVolume, totalVolume float64
	for i := range candles {
		totalPriceVolume += candles[i].TypicalPrice() * candles[i].Volume
		totalVolume += candles[i].Volume
	}

	if totalVolume == 0 {
		return nil
	}

	last := candles[len(candles)-1]

	return &VWAPResult{
		Value:        totalPriceVolume / totalVolume,
		TypicalPrice: last.TypicalPrice(),
		Volume:       totalVolume,
	}
}
