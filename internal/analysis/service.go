package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/mohamedkhairy/kline-analyzer/internal/config"
	"github.com/mohamedkhairy/kline-analyzer/internal/kline"
	"github.com/mohamedkhairy/kline-analyzer/internal/models"
	"github.com/mohamedkhairy/kline-analyzer/internal/storage"
	"github.com/mohamedkhairy/kline-analyzer/pkg/indicator"
	"github.com/mohamedkhairy/kline-analyzer/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "Time spent computing a technical analysis",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"macd_mode"},
	)

	analysisCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_cache_total",
			Help: "Analysis cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	analysisSignals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_signals_total",
			Help: "Computed analyses by signal",
		},
		[]string{"signal"},
	)
)

// Request identifies one analysis
type Request struct {
	Pair     models.TradingPair
	Period   models.TimePeriod
	Limit    int
	MACDMode indicator.MACDMode // empty means the service default
}

// Result is an analysis with the context it was computed in
type Result struct {
	Pair       models.TradingPair           `json:"pair"`
	Period     models.TimePeriod            `json:"period"`
	Candles    int                          `json:"candles"`
	MACDMode   indicator.MACDMode           `json:"macd_mode"`
	LastClose  float64                      `json:"last_close"`
	Timestamp  int64                        `json:"timestamp"` // timestamp of the last candle
	Analysis   *indicator.TechnicalAnalysis `json:"analysis"`
	AnalyzedAt time.Time                    `json:"analyzed_at"`
	Cached     bool                         `json:"cached"`
}

// Service fetches candles, runs the engine and caches results in Redis
type Service struct {
	klines      *kline.Service
	cache       storage.RedisClient
	ttl         time.Duration
	defaultMode indicator.MACDMode
	parallel    bool
	now         func() time.Time
}

// NewService creates an analysis service. cache may be nil, which disables caching.
func NewService(klines *kline.Service, cache storage.RedisClient, cfg config.AnalysisConfig) *Service {
	mode, ok := indicator.ParseMACDMode(cfg.MACDMode)
	if !ok {
		mode = indicator.MACDSimple
	}
	return &Service{
		klines:      klines,
		cache:       cache,
		ttl:         cfg.CacheTTL,
		defaultMode: mode,
		parallel:    cfg.Parallel,
		now:         time.Now,
	}
}

// CacheKey returns analysis:{pair}:{period}:{limit}:{mode}
func CacheKey(pair models.TradingPair, period models.TimePeriod, limit int, mode indicator.MACDMode) string {
	return fmt.Sprintf("analysis:%s:%s:%d:%s", pair, period, limit, mode)
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

// Analyze returns the technical analysis for a request, from cache when fresh
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	mode := req.MACDMode
	if mode == "" {
		mode = s.defaultMode
	}
	limit := s.klines.ClampLimit(req.Limit)
	key := CacheKey(req.Pair, req.Period, limit, mode)
	log := logger.WithContext(ctx)

	if s.cacheEnabled() {
		var cached Result
		found, err := s.cache.GetJSON(ctx, key, &cached)
		switch {
		case err != nil:
			analysisCache.WithLabelValues("error").Inc()
			log.Warn("Analysis cache read failed", logger.String("key", key), logger.ErrorField(err))
		case found:
			analysisCache.WithLabelValues("hit").Inc()
			cached.Cached = true
			return &cached, nil
		default:
			analysisCache.WithLabelValues("miss").Inc()
		}
	}

	candles, err := s.klines.GetCandlesticks(ctx, req.Pair, req.Period, limit)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ta := indicator.AnalyzeWith(candles, indicator.Options{MACDMode: mode, Parallel: s.parallel})
	analysisDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	analysisSignals.WithLabelValues(string(ta.Signal)).Inc()

	result := &Result{
		Pair:       req.Pair,
		Period:     req.Period,
		Candles:    len(candles),
		MACDMode:   mode,
		Analysis:   ta,
		AnalyzedAt: s.now().UTC(),
	}
	if n := len(candles); n > 0 {
		result.LastClose = candles[n-1].Close
		result.Timestamp = candles[n-1].Timestamp
	}

	log.Debug("Computed analysis",
		logger.String("pair", req.Pair.String()),
		logger.String("period", string(req.Period)),
		logger.Int("candles", len(candles)),
		logger.String("trend", string(ta.Trend)),
		logger.String("signal", string(ta.Signal)),
	)

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
			log.Warn("Analysis cache write failed", logger.String("key", key), logger.ErrorField(err))
		}
	}

	return result, nil
}

// Invalidate drops every cached analysis of a pair and period for the given limits and both MACD modes
func (s *Service) Invalidate(ctx context.Context, pair models.TradingPair, period models.TimePeriod, limits ...int) error {
	if s.cache == nil {
		return nil
	}
	for _, limit := range limits {
		for _, mode := range []indicator.MACDMode{indicator.MACDSimple, indicator.MACDTextbook} {
			if err := s.cache.Delete(ctx, CacheKey(pair, period, s.klines.ClampLimit(limit), mode)); err != nil {
				return fmt.Errorf("failed to invalidate analysis cache: %w", err)
			}
		}
	}
	return nil
}
