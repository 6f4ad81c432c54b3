package indicator

import (
	"time"

	"github.com/mohamedkhairy/kline-analyzer/internal/models"
	"github.com/sdcoffey/big"
	"github.com/sdcoffey/techan"
)

// toTimeSeries converts candles to a techan TimeSeries.
// Each candle gets a one-second span so any strictly ascending series is
// accepted regardless of its spacing. Returns false if techan rejects a candle.
func toTimeSeries(candles []models.Candlestick) (*techan.TimeSeries, bool) {
	series := techan.NewTimeSeries()
	for _, c := range candles {
		period := techan.NewTimePeriod(time.Unix(c.Timestamp, 0).UTC(), time.Second)
		candle := techan.NewCandle(period)
		candle.OpenPrice = big.NewDecimal(c.Open)
		candle.MaxPrice = big.NewDecimal(c.High)
		candle.MinPrice = big.NewDecimal(c.Low)
		candle.ClosePrice = big.NewDecimal(c.Close)
		candle.Volume = big.NewDecimal(c.Volume)

		if !series.AddCandle(candle) {
			return nil, false
		}
	}
	return series, true
}

// TextbookMACD calculates the 12/26/9 MACD where the signal line is a
// 9-period EMA of the MACD line, using techan. Same minimum length as MACD.
func TextbookMACD(candles []models.Candlestick) *MACDResult {
	if len(candles) < macdMinCandles {
		return nil
	}

	series, ok := toTimeSeries(candles)
	if !ok {
		return nil
	}

	closePrice := techan.NewClosePriceIndicator(series)
	macdLine := techan.NewMACDIndicator(closePrice, macdFastPeriod, macdSlowPeriod)
	histogram := techan.NewMACDHistogramIndicator(macdLine, macdSignalPeriod)

	last := series.LastIndex()
	macd := macdLine.Calculate(last).Float()
	hist := histogram.Calculate(last).Float()

	if isNaN(macd) || isNaN(hist) {
		return nil
	}

	return &MACDResult{
		MACD:      macd,
		Signal:    macd - hist,
		Histogram: hist,
	}
}

// isNaN checks if a float64 is NaN
func isNaN(f float64) bool {
	return f != f
}
