package kline

import (
	"context"
	"fmt"
	"time"

	"github.com/mohamedkhairy/kline-analyzer/internal/config"
	"github.com/mohamedkhairy/kline-analyzer/internal/models"
	"github.com/mohamedkhairy/kline-analyzer/pkg/indicator"
	"github.com/mohamedkhairy/kline-analyzer/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kline_fetch_total",
			Help: "Total number of candle fetches by outcome",
		},
		[]string{"status"}, // "ok", "error", "invalid"
	)

	fetchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kline_fetch_latency_seconds",
			Help:    "Candle fetch latency in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
	)
)

const (
	// ChangeWindow is the window for the price change figure
	ChangeWindow = 24 * time.Hour
	// pricePeriod and priceLimit cover ChangeWindow with one spare candle
	pricePeriod = models.OneHour
	priceLimit  = 25
)

// Price is the latest close of a pair with its change over ChangeWindow
type Price struct {
	Pair          models.TradingPair `json:"pair"`
	Price         float64            `json:"price"`
	Change        float64            `json:"change_24h"`
	ChangePercent float64            `json:"change_percent_24h"`
	Timestamp     int64              `json:"timestamp"`
}

// Service validates requests and candle data between a Source and its callers
type Service struct {
	source       Source
	maxCandles   int
	defaultLimit int
}

// NewService creates a KLine service
func NewService(source Source, cfg config.KLineConfig) *Service {
	maxCandles := cfg.MaxCandles
	if maxCandles <= 0 {
		maxCandles = 1000
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 || defaultLimit > maxCandles {
		defaultLimit = maxCandles
	}
	return &Service{
		source:       source,
		maxCandles:   maxCandles,
		defaultLimit: defaultLimit,
	}
}

// MaxCandles returns the per-request candle cap
func (s *Service) MaxCandles() int {
	return s.maxCandles
}

// ClampLimit maps a requested limit onto [1, MaxCandles], using the default for 0 or less
func (s *Service) ClampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxCandles {
		return s.maxCandles
	}
	return limit
}

// GetCandlesticks returns up to limit validated candles, oldest first
func (s *Service) GetCandlesticks(ctx context.Context, pair models.TradingPair, period models.TimePeriod, limit int) ([]models.Candlestick, error) {
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	if period.Seconds() == 0 {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidPeriod, period)
	}
	limit = s.ClampLimit(limit)

	start := time.Now()
	candles, err := s.source.Fetch(ctx, pair, period, limit)
	fetchLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		fetchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to fetch candles for %s %s: %w", pair, period, err)
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	if err := models.ValidateSeries(candles); err != nil {
		fetchTotal.WithLabelValues("invalid").Inc()
		logger.Warn("Source returned an invalid series",
			logger.String("pair", pair.String()),
			logger.String("period", string(period)),
			logger.ErrorField(err),
		)
		return nil, fmt.Errorf("%w for %s %s: %w", ErrInvalidSeries, pair, period, err)
	}

	fetchTotal.WithLabelValues("ok").Inc()
	return candles, nil
}

// GetLatest returns the most recent candle
func (s *Service) GetLatest(ctx context.Context, pair models.TradingPair, period models.TimePeriod) (models.Candlestick, error) {
	candles, err := s.GetCandlesticks(ctx, pair, period, 1)
	if err != nil {
		return models.Candlestick{}, err
	}
	if len(candles) == 0 {
		return models.Candlestick{}, fmt.Errorf("%w for %s %s", ErrNoData, pair, period)
	}
	return candles[len(candles)-1], nil
}

// GetPrice returns the latest close and the change over ChangeWindow.
// The change is zero when the source does not reach back far enough.
func (s *Service) GetPrice(ctx context.Context, pair models.TradingPair) (*Price, error) {
	candles, err := s.GetCandlesticks(ctx, pair, pricePeriod, priceLimit)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, pair)
	}

	last := candles[len(candles)-1]
	price := &Price{
		Pair:      pair,
		Price:     last.Close,
		Timestamp: last.Timestamp,
	}
	if change := indicator.PriceChange(candles, ChangeWindow); change != nil {
		price.Change = change.Change
		price.ChangePercent = change.ChangePercent
	}
	return price, nil
}
