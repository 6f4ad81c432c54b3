package indicator

import (
	"sync"

	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

// Trend is the qualitative direction derived from the short and medium SMA
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// Signal is the qualitative verdict derived from RSI and MACD
type Signal string

const (
	SignalStrongBuy  Signal = "strong_buy"
	SignalStrongSell Signal = "strong_sell"
	SignalBuy        Signal = "buy"
	SignalSell       Signal = "sell"
	SignalNeutral    Signal = "neutral"
)

// TechnicalAnalysis is the combined result of every calculator over one series
type TechnicalAnalysis struct {
	MA        []MovingAverage `json:"ma"` // SMA 5, then 20, then 50
	RSI       *RSIResult      `json:"rsi,omitempty"`
	MACD      *MACDResult     `json:"macd,omitempty"`
	Bollinger *BollingerBands `json:"bollinger,omitempty"`
	VWAP      *VWAPResult     `json:"vwap,omitempty"`
	ATR       *ATRResult      `json:"atr,omitempty"`
	Trend     Trend           `json:"trend"`
	Signal    Signal          `json:"signal"`
}

// Analyze runs every calculator with the default windows
func Analyze(candles []models.Candlestick) *TechnicalAnalysis {
	return AnalyzeWith(candles, DefaultOptions())
}

// AnalyzeWith runs every calculator with the default windows and the given options.
// The candles are only read; the caller keeps ownership.
func AnalyzeWith(candles []models.Candlestick, opts Options) *TechnicalAnalysis {
	var (
		ma5, ma20, ma50 []MovingAverage
		rsi             *RSIResult
		macd            *MACDResult
		bollinger       *BollingerBands
		vwap            *VWAPResult
		atr             *ATRResult
	)

	macdFn := MACD
	if opts.MACDMode == MACDTextbook {
		macdFn = TextbookMACD
	}

	branches := []func(){
		func() {
			ma5 = SMA(candles, DefaultShortSMAPeriod)
			ma20 = SMA(candles, DefaultMediumSMAPeriod)
			ma50 = SMA(candles, DefaultLongSMAPeriod)
		},
		func() { rsi = RSI(candles, DefaultRSIPeriod) },
		func() { macd = macdFn(candles) },
		func() { bollinger = Bollinger(candles, DefaultBollingerPeriod, DefaultBollingerStdDev) },
		func() { vwap = VWAP(candles) },
		func() { atr = ATR(candles, DefaultATRPeriod) },
	}

	if opts.Parallel {
		var wg sync.WaitGroup
		wg.Add(len(branches))
		for _, branch := range branches {
			go func(fn func()) {
				defer wg.Done()
				fn()
			}(branch)
		}
		wg.Wait()
	} else {
		for _, branch := range branches {
			branch()
		}
	}

	ma := make([]MovingAverage, 0, len(ma5)+len(ma20)+len(ma50))
	ma = append(ma, ma5...)
	ma = append(ma, ma20...)
	ma = append(ma, ma50...)

	return &TechnicalAnalysis{
		MA:        ma,
		RSI:       rsi,
		MACD:      macd,
		Bollinger: bollinger,
		VWAP:      vwap,
		ATR:       atr,
		Trend:     DeriveTrend(ma5, ma20),
		Signal:    DeriveSignal(rsi, macd),
	}
}

// DeriveTrend compares the last short and medium SMA values.
// Equal values count as bearish; an empty input is neutral.
func DeriveTrend(short, medium []MovingAverage) Trend {
	s, okShort := lastValue(short)
	m, okMedium := lastValue(medium)
	if !okShort || !okMedium {
		return TrendNeutral
	}
	if s > m {
		return TrendBullish
	}
	return TrendBearish
}

// DeriveSignal applies RSI extremes first, then MACD direction.
// MACD is only consulted while the signal is still neutral.
func DeriveSignal(rsi *RSIResult, macd *MACDResult) Signal {
	signal := SignalNeutral

	if rsi != nil {
		if rsi.Oversold {
			signal = SignalStrongBuy
		} else if rsi.Overbought {
			signal = SignalStrongSell
		}
	}

	if macd != nil && signal == SignalNeutral {
		if macd.Histogram > 0 {
			signal = SignalBuy
		} else if macd.Histogram < 0 {
			signal = SignalSell
		}
	}

	return signal
}
