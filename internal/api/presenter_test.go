package api

import (
	"testing"

	"github.com/mohamedkhairy/kline-analyzer/internal/analysis"
	"github.com/mohamedkhairy/kline-analyzer/internal/kline"
	"github.com/mohamedkhairy/kline-analyzer/internal/models"
	"github.com/mohamedkhairy/kline-analyzer/pkg/indicator"
)

func TestPresenter_Candle(t *testing.T) {
	p := NewPresenter(3)
	c := p.Candle(models.Candlestick{Timestamp: 60, Open: 1.23456, High: 2.0005, Low: 0.9994, Close: 1.5, Volume: 10.12345})

	if c.Timestamp != 60 {
		t.Errorf("Expected timestamp to be kept, got %d", c.Timestamp)
	}
	if c.Open != 1.235 || c.High != 2.001 || c.Low != 0.999 || c.Volume != 10.123 {
		t.Errorf("Unexpected rounding: %+v", c)
	}
}

func TestPresenter_NegativePlacesKeepsPrecision(t *testing.T) {
	p := NewPresenter(-1)
	if got := p.Candle(models.Candlestick{Close: 1.123456789}).Close; got != 1.123456789 {
		t.Errorf("Expected full precision, got %v", got)
	}
}

func TestPresenter_Price(t *testing.T) {
	p := NewPresenter(2)
	price := &kline.Price{Price: 2500.126, Change: -12.344, ChangePercent: -0.49321}

	out := p.Price(price)
	if out.Price != 2500.13 || out.Change != -12.34 || out.ChangePercent != -0.49 {
		t.Errorf("Unexpected rounding: %+v", out)
	}
	if price.Price != 2500.126 {
		t.Error("Expected the input to be left untouched")
	}
}

func TestPresenter_Analysis(t *testing.T) {
	p := NewPresenter(4)
	result := &analysis.Result{
		LastClose: 1.234567,
		Analysis: &indicator.TechnicalAnalysis{
			MA:        []indicator.MovingAverage{{Period: 5, Value: 1.111111, Timestamp: 300}},
			RSI:       &indicator.RSIResult{Value: 71.23456, Overbought: true},
			MACD:      &indicator.MACDResult{MACD: 0.000123456, Signal: 0.0001, Histogram: 0.000023456},
			Bollinger: &indicator.BollingerBands{Upper: 1.30001, Middle: 1.2, Lower: 1.09999, Bandwidth: 16.66678},
			Trend:     indicator.TrendBullish,
			Signal:    indicator.SignalStrongSell,
		},
	}

	out := p.Analysis(result)
	ta := out.Analysis

	if out.LastClose != 1.2346 {
		t.Errorf("Expected last close 1.2346, got %v", out.LastClose)
	}
	if ta.MA[0].Value != 1.1111 || ta.MA[0].Period != 5 || ta.MA[0].Timestamp != 300 {
		t.Errorf("Unexpected moving average: %+v", ta.MA[0])
	}
	if ta.RSI.Value != 71.23 || !ta.RSI.Overbought {
		t.Errorf("Unexpected RSI: %+v", ta.RSI)
	}
	if ta.MACD.MACD != 0.0001 {
		t.Errorf("Expected MACD 0.0001, got %v", ta.MACD.MACD)
	}
	if ta.Bollinger.Bandwidth != 16.67 || ta.Bollinger.Upper != 1.3 {
		t.Errorf("Unexpected Bollinger bands: %+v", ta.Bollinger)
	}
	if ta.VWAP != nil || ta.ATR != nil {
		t.Error("Expected missing results to stay nil")
	}
	if ta.Trend != indicator.TrendBullish || ta.Signal != indicator.SignalStrongSell {
		t.Error("Expected verdicts to be copied")
	}
	if result.Analysis.RSI.Value != 71.23456 {
		t.Error("Expected the input analysis to be left untouched")
	}
}
