package kline

import (
	"context"
	"errors"
	"sync"

	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

var (
	// ErrInvalidSeries marks a series from a source that breaks candle or ordering invariants
	ErrInvalidSeries = errors.New("invalid candlestick series")
	// ErrNoData is returned when a source has no candles for the pair and period
	ErrNoData = errors.New("no candlestick data")
)

// Source fetches the most recent candles for a pair, oldest first.
// Implementations may return fewer than limit candles.
type Source interface {
	Fetch(ctx context.Context, pair models.TradingPair, period models.TimePeriod, limit int) ([]models.Candlestick, error)
}

// MemorySource serves fixed series from memory
type MemorySource struct {
	mu     sync.RWMutex
	series map[string][]models.Candlestick
	err    error
}

// NewMemorySource creates an empty MemorySource
func NewMemorySource() *MemorySource {
	return &MemorySource{series: make(map[string][]models.Candlestick)}
}

func seriesKey(pair models.TradingPair, period models.TimePeriod) string {
	return pair.String() + "/" + string(period)
}

// Put replaces the series for a pair and period. The slice is stored as given.
func (m *MemorySource) Put(pair models.TradingPair, period models.TimePeriod, candles []models.Candlestick) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.series[seriesKey(pair, period)] = candles
}

// FailWith makes every subsequent Fetch return err
func (m *MemorySource) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Fetch returns a copy of the last limit candles
func (m *MemorySource) Fetch(ctx context.Context, pair models.TradingPair, period models.TimePeriod, limit int) ([]models.Candlestick, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	all := m.series[seriesKey(pair, period)]
	start := len(all) - limit
	if start < 0 {
		start = 0
	}
	out := make([]models.Candlestick, len(all)-start)
	copy(out, all[start:])
	return out, nil
}
