package api

import (
	"github.com/mohamedkhairy/kline-analyzer/internal/analysis"
	"github.com/mohamedkhairy/kline-analyzer/internal/kline"
	"github.com/mohamedkhairy/kline-analyzer/internal/models"
	"github.com/mohamedkhairy/kline-analyzer/pkg/indicator"
	"github.com/shopspring/decimal"
)

// Presenter rounds values for display. The engine and the cache always keep full precision.
type Presenter struct {
	places int32
}

// NewPresenter creates a presenter rounding to places decimals; a negative value disables rounding
func NewPresenter(places int32) *Presenter {
	return &Presenter{places: places}
}

func (p *Presenter) round(v float64) float64 {
	if p.places < 0 {
		return v
	}
	return decimal.NewFromFloat(v).Round(p.places).InexactFloat64()
}

// roundPercent keeps percentages and oscillator readings at two decimals
func roundPercent(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Candles returns a rounded copy of a series
func (p *Presenter) Candles(candles []models.Candlestick) []models.Candlestick {
	out := make([]models.Candlestick, len(candles))
	for i, c := range candles {
		out[i] = p.Candle(c)
	}
	return out
}

// Candle returns a rounded copy of one candle
func (p *Presenter) Candle(c models.Candlestick) models.Candlestick {
	return models.Candlestick{
		Timestamp:   c.Timestamp,
		Open:        p.round(c.Open),
		High:        p.round(c.High),
		Low:         p.round(c.Low),
		Close:       p.round(c.Close),
		Volume:      p.round(c.Volume),
		QuoteVolume: p.round(c.QuoteVolume),
	}
}

// Price returns a rounded copy of a price quote
func (p *Presenter) Price(price *kline.Price) *kline.Price {
	out := *price
	out.Price = p.round(price.Price)
	out.Change = p.round(price.Change)
	out.ChangePercent = roundPercent(price.ChangePercent)
	return &out
}

// Analysis returns a rounded copy of an analysis result
func (p *Presenter) Analysis(result *analysis.Result) *analysis.Result {
	out := *result
	out.LastClose = p.round(result.LastClose)
	if result.Analysis != nil {
		out.Analysis = p.technical(result.Analysis)
	}
	return &out
}

func (p *Presenter) technical(ta *indicator.TechnicalAnalysis) *indicator.TechnicalAnalysis {
	out := &indicator.TechnicalAnalysis{
		MA:     make([]indicator.MovingAverage, len(ta.MA)),
		Trend:  ta.Trend,
		Signal: ta.Signal,
	}
	for i, ma := range ta.MA {
		out.MA[i] = indicator.MovingAverage{Period: ma.Period, Value: p.round(ma.Value), Timestamp: ma.Timestamp}
	}
	if ta.RSI != nil {
		rsi := *ta.RSI
		rsi.Value = roundPercent(rsi.Value)
		out.RSI = &rsi
	}
	if ta.MACD != nil {
		out.MACD = &indicator.MACDResult{
			MACD:      p.round(ta.MACD.MACD),
			Signal:    p.round(ta.MACD.Signal),
			Histogram: p.round(ta.MACD.Histogram),
		}
	}
	if ta.Bollinger != nil {
		out.Bollinger = &indicator.BollingerBands{
			Upper:     p.round(ta.Bollinger.Upper),
			Middle:    p.round(ta.Bollinger.Middle),
			Lower:     p.round(ta.Bollinger.Lower),
			Bandwidth: roundPercent(ta.Bollinger.Bandwidth),
		}
	}
	if ta.VWAP != nil {
		out.VWAP = &indicator.VWAPResult{
			Value:        p.round(ta.VWAP.Value),
			TypicalPrice: p.round(ta.VWAP.TypicalPrice),
			Volume:       p.round(ta.VWAP.Volume),
		}
	}
	if ta.ATR != nil {
		atr := *ta.ATR
		atr.Value = p.round(atr.Value)
		atr.High = p.round(atr.High)
		atr.Low = p.round(atr.Low)
		out.ATR = &atr
	}
	return out
}
