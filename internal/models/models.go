package models

import (
	"fmt"
	"math"
	"strings"
)

// Candlestick represents one OHLCV sample
type Candlestick struct {
	Timestamp   int64   `json:"timestamp"` // Unix seconds, start of the candle
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	QuoteVolume float64 `json:"quote_volume"`
}

// Validate validates a single Candlestick
func (c *Candlestick) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidPrice
		}
	}
	if c.High < c.Low {
		return ErrInvalidCandle
	}
	if math.Min(c.Open, c.Close) < c.Low || math.Max(c.Open, c.Close) > c.High {
		return ErrInvalidCandle
	}
	if math.IsNaN(c.Volume) || math.IsInf(c.Volume, 0) || c.Volume < 0 {
		return ErrInvalidVolume
	}
	if math.IsNaN(c.QuoteVolume) || math.IsInf(c.QuoteVolume, 0) || c.QuoteVolume < 0 {
		return ErrInvalidVolume
	}
	return nil
}

// TypicalPrice returns (high + low + close) / 3
func (c *Candlestick) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3.0
}

// ValidateSeries checks every candle and the strict timestamp ordering of a series.
// The error names the index of the first offending candle.
func ValidateSeries(candles []Candlestick) error {
	for i := range candles {
		if err := candles[i].Validate(); err != nil {
			return fmt.Errorf("candle %d: %w", i, err)
		}
		if i > 0 && candles[i].Timestamp <= candles[i-1].Timestamp {
			return fmt.Errorf("candle %d: %w", i, ErrInvalidTimestamp)
		}
	}
	return nil
}

// TradingPair identifies a market
type TradingPair struct {
	Base    string `json:"base"`
	Quote   string `json:"quote"`
	Chain   string `json:"chain"`
	Address string `json:"address,omitempty"`
}

// NewTradingPair normalizes symbols to upper case and the chain to lower case
func NewTradingPair(base, quote, chain string) TradingPair {
	if chain == "" {
		chain = DefaultChain
	}
	return TradingPair{
		Base:  strings.ToUpper(strings.TrimSpace(base)),
		Quote: strings.ToUpper(strings.TrimSpace(quote)),
		Chain: strings.ToLower(strings.TrimSpace(chain)),
	}
}

// DefaultChain is used when a pair is requested without a chain
const DefaultChain = "ethereum"

// Validate validates a TradingPair
func (p TradingPair) Validate() error {
	if p.Base == "" || p.Quote == "" {
		return ErrInvalidSymbol
	}
	if p.Base == p.Quote {
		return ErrInvalidSymbol
	}
	return nil
}

// String returns BASE-QUOTE@chain
func (p TradingPair) String() string {
	return fmt.Sprintf("%s-%s@%s", p.Base, p.Quote, p.Chain)
}

// TimePeriod is the width of one candlestick
type TimePeriod string

const (
	OneMinute      TimePeriod = "1m"
	FiveMinutes    TimePeriod = "5m"
	FifteenMinutes TimePeriod = "15m"
	OneHour        TimePeriod = "1h"
	FourHours      TimePeriod = "4h"
	OneDay         TimePeriod = "1d"
	OneWeek        TimePeriod = "1w"
)

var periodSeconds = map[TimePeriod]int64{
	OneMinute:      60,
	FiveMinutes:    300,
	FifteenMinutes: 900,
	OneHour:        3600,
	FourHours:      14400,
	OneDay:         86400,
	OneWeek:        604800,
}

// ParseTimePeriod parses "1m", "5m", "15m", "1h", "4h", "1d" or "1w"
func ParseTimePeriod(s string) (TimePeriod, error) {
	p := TimePeriod(s)
	if _, ok := periodSeconds[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return p, nil
}

// Seconds returns the period width in seconds, 0 for an unknown period
func (p TimePeriod) Seconds() int64 {
	return periodSeconds[p]
}

// TimePeriods returns all supported periods, shortest first
func TimePeriods() []TimePeriod {
	return []TimePeriod{OneMinute, FiveMinutes, FifteenMinutes, OneHour, FourHours, OneDay, OneWeek}
}
