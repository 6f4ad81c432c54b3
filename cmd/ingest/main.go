package main

import (
	"cmp"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/mohamedkhairy/kline-analyzer/internal/analysis"
	"github.com/mohamedkhairy/kline-analyzer/internal/config"
	"github.com/mohamedkhairy/kline-analyzer/internal/kline"
	"github.com/mohamedkhairy/kline-analyzer/internal/models"
	"github.com/mohamedkhairy/kline-analyzer/internal/pubsub"
	"github.com/mohamedkhairy/kline-analyzer/internal/storage"
	"github.com/mohamedkhairy/kline-analyzer/pkg/logger"
)

func main() {
	base := flag.String("base", "", "base symbol, e.g. ETH")
	quote := flag.String("quote", "", "quote symbol, e.g. USDC")
	chain := flag.String("chain", models.DefaultChain, "chain the pair trades on")
	period := flag.String("period", string(models.OneHour), "candle period")
	file := flag.String("file", "-", "JSON array of candles, - for stdin")
	ensureSchema := flag.Bool("ensure-schema", true, "create the candles table if missing")
	invalidate := flag.Bool("invalidate", true, "drop cached analyses of the pair after writing")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	pair := models.NewTradingPair(*base, *quote, *chain)
	if err := pair.Validate(); err != nil {
		logger.Fatal("Invalid pair", logger.String("base", *base), logger.String("quote", *quote), logger.ErrorField(err))
	}
	tp, err := models.ParseTimePeriod(*period)
	if err != nil {
		logger.Fatal("Invalid period", logger.ErrorField(err))
	}

	candles, err := readCandlesFrom(*file)
	if err != nil {
		logger.Fatal("Failed to read candles", logger.ErrorField(err))
	}

	logger.Info("Starting candle ingest",
		logger.String("pair", pair.String()),
		logger.String("period", string(tp)),
		logger.Int("candles", len(candles)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewTimescaleDBClient(cfg.Database, storage.DefaultWriteConfig())
	if err != nil {
		logger.Fatal("Failed to initialize TimescaleDB client", logger.ErrorField(err))
	}
	defer db.Close()

	if *ensureSchema {
		if err := db.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to create schema", logger.ErrorField(err))
		}
	}

	start := time.Now()
	if err := db.WriteCandles(ctx, pair, tp, candles); err != nil {
		logger.Fatal("Failed to write candles", logger.ErrorField(err))
	}
	logger.Info("Candles written",
		logger.Int("count", len(candles)),
		logger.Duration("duration", time.Since(start)),
	)

	if *invalidate && cfg.Analysis.CacheTTL > 0 {
		invalidateCache(ctx, cfg, db, pair, tp)
	}
}

// invalidateCache drops cached analyses for the default and maximum limits.
// Entries for other limits expire with the cache TTL.
func invalidateCache(ctx context.Context, cfg *config.Config, db *storage.TimescaleDBClient, pair models.TradingPair, period models.TimePeriod) {
	redisClient, err := pubsub.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, skipping cache invalidation", logger.ErrorField(err))
		return
	}
	defer redisClient.Close()

	svc := analysis.NewService(kline.NewService(db, cfg.KLine), redisClient, cfg.Analysis)
	if err := svc.Invalidate(ctx, pair, period, 0, cfg.KLine.MaxCandles); err != nil {
		logger.Warn("Cache invalidation failed", logger.ErrorField(err))
		return
	}
	logger.Info("Analysis cache invalidated", logger.String("pair", pair.String()), logger.String("period", string(period)))
}

func readCandlesFrom(path string) ([]models.Candlestick, error) {
	if path == "-" {
		return readCandles(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readCandles(f)
}

// readCandles decodes a JSON array of candles and checks the series.
// Input may be in any order; it is sorted by timestamp before validation.
func readCandles(r io.Reader) ([]models.Candlestick, error) {
	var candles []models.Candlestick
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&candles); err != nil {
		return nil, fmt.Errorf("decode candles: %w", err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles in input")
	}
	slices.SortFunc(candles, func(a, b models.Candlestick) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	if err := models.ValidateSeries(candles); err != nil {
		return nil, err
	}
	return candles, nil
}
