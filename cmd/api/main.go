package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mohamedkhairy/kline-analyzer/internal/analysis"
	"github.com/mohamedkhairy/kline-analyzer/internal/api"
	"github.com/mohamedkhairy/kline-analyzer/internal/config"
	"github.com/mohamedkhairy/kline-analyzer/internal/kline"
	"github.com/mohamedkhairy/kline-analyzer/internal/pubsub"
	"github.com/mohamedkhairy/kline-analyzer/internal/storage"
	"github.com/mohamedkhairy/kline-analyzer/pkg/logger"
)

func main() {
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

	logger.Info("Starting REST API service",
		logger.Int("port", cfg.API.Port),
		logger.String("source", cfg.KLine.Source),
		logger.Int("rate_limit_rps", cfg.API.RateLimitRPS),
		logger.Bool("auth_enabled", cfg.API.JWTSecret != ""),
	)

	checks := make(map[string]api.ReadinessCheck)

	// Candlestick source
	var source kline.Source
	switch cfg.KLine.Source {
	case "timescale":
		db, err := storage.NewTimescaleDBClient(cfg.Database, storage.DefaultWriteConfig())
		if err != nil {
			logger.Fatal("Failed to initialize TimescaleDB client",
				logger.ErrorField(err),
			)
		}
		defer db.Close()
		source = db
		checks["database"] = db.Ping
	default:
		source = kline.NewSyntheticSource(cfg.KLine.SyntheticSeed)
	}
	klines := kline.NewService(source, cfg.KLine)

	// Redis is only needed for the analysis cache; run uncached when it is unreachable
	var cache storage.RedisClient
	if cfg.Analysis.CacheTTL > 0 {
		redisClient, err := pubsub.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, analysis cache disabled",
				logger.ErrorField(err),
			)
		} else {
			defer redisClient.Close()
			cache = redisClient
			checks["redis"] = redisClient.Ping
		}
	}
	analyzer := analysis.NewService(klines, cache, cfg.Analysis)

	// Initialize handlers
	market := api.NewMarketHandler(klines, analyzer, api.NewPresenter(cfg.API.PricePrecision))

	handler := api.NewRouter(market, api.RouterConfig{
		Auth:         api.NewAuthManager(cfg.API.JWTSecret),
		RateLimitRPS: cfg.API.RateLimitRPS,
		CORSOrigins:  cfg.API.CORSOrigins,
		Checks:       checks,
	})

	// Start HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server",
			logger.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server",
				logger.ErrorField(err),
			)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down REST API service")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down HTTP server",
			logger.ErrorField(err),
		)
	}

	logger.Info("REST API service stopped")
}
