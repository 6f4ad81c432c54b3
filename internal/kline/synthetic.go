package kline

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

// basePrices are the reference USD prices the synthetic source oscillates around
var basePrices = map[string]float64{
	"ETH":   2500.0,
	"BTC":   62500.0,
	"WBTC":  62500.0,
	"USDC":  1.0,
	"USDT":  1.0,
	"DAI":   1.0,
	"SOL":   120.0,
	"UNI":   8.5,
	"AAVE":  85.0,
	"LINK":  15.0,
	"MATIC": 0.85,
	"ARB":   1.1,
	"OP":    2.5,
	"BNB":   580.0,
}

const defaultBasePrice = 100.0

// BasePrice returns the reference USD price for a symbol
func BasePrice(symbol string) float64 {
	if p, ok := basePrices[strings.ToUpper(symbol)]; ok {
		return p
	}
	return defaultBasePrice
}

// SyntheticSource generates reproducible candles for development.
// A candle depends only on the seed, the pair, the period and its timestamp,
// so overlapping requests agree on the candles they share.
type SyntheticSource struct {
	seed int64
	now  func() time.Time
}

// NewSyntheticSource creates a source anchored to the wall clock
func NewSyntheticSource(seed int64) *SyntheticSource {
	return &SyntheticSource{seed: seed, now: time.Now}
}

// NewSyntheticSourceAt creates a source anchored to a fixed instant
func NewSyntheticSourceAt(seed int64, at time.Time) *SyntheticSource {
	return &SyntheticSource{seed: seed, now: func() time.Time { return at }}
}

// Fetch returns limit candles ending at the period boundary at or before now
func (s *SyntheticSource) Fetch(ctx context.Context, pair models.TradingPair, period models.TimePeriod, limit int) ([]models.Candlestick, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	step := period.Seconds()
	if step == 0 {
		return nil, models.ErrInvalidPeriod
	}
	if limit <= 0 {
		return []models.Candlestick{}, nil
	}

	last := s.now().Unix() / step * step
	ref := BasePrice(pair.Base) / BasePrice(pair.Quote)
	phase := float64(s.hash(pair.String(), string(period), 0)%1000) / 1000.0 * 2 * math.Pi

	candles := make([]models.Candlestick, limit)
	for i := 0; i < limit; i++ {
		ts := last - int64(limit-1-i)*step
		candles[i] = s.candle(pair, period, ts, step, ref, phase)
	}
	return candles, nil
}

// candle builds one candle around a slowly oscillating level
func (s *SyntheticSource) candle(pair models.TradingPair, period models.TimePeriod, ts, step int64, ref, phase float64) models.Candlestick {
	rng := rand.New(rand.NewSource(int64(s.hash(pair.String(), string(period), ts))))

	k := float64(ts / step)
	level := ref * (1 + 0.03*math.Sin(k/17.0+phase) + 0.015*math.Sin(k/5.3+2*phase))

	open := level * (1 + rng.Float64()*0.02 - 0.01)
	high := open * (1 + rng.Float64()*0.02)
	low := open * (1 - rng.Float64()*0.02)

	var closePrice float64
	if rng.Float64() > 0.5 {
		closePrice = low + (high-low)*rng.Float64()
	} else {
		closePrice = open + open*0.005*(rng.Float64()-0.5)
	}
	closePrice = math.Min(math.Max(closePrice, low), high)

	volume := 1000.0 + rng.Float64()*10000.0

	return models.Candlestick{
		Timestamp:   ts,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closePrice,
		Volume:      volume,
		QuoteVolume: volume * (open + closePrice) / 2.0,
	}
}

func (s *SyntheticSource) hash(pair, period string, ts int64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(uint64(s.seed) >> (8 * i))
	}
	h.Write(buf[:])
	h.Write([]byte(pair))
	h.Write([]byte(period))
	for i := 0; i < 8; i++ {
		buf[i] = byte(uint64(ts) >> (8 * i))
	}
	h.Write(buf[:])
	return h.Sum64()
}
