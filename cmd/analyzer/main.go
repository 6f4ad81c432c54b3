package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohamedkhairy/kline-analyzer/internal/analysis"
	"github.com/mohamedkhairy/kline-analyzer/internal/config"
	"github.com/mohamedkhairy/kline-analyzer/internal/kline"
	"github.com/mohamedkhairy/kline-analyzer/internal/pubsub"
	"github.com/mohamedkhairy/kline-analyzer/internal/scheduler"
	"github.com/mohamedkhairy/kline-analyzer/internal/storage"
	"github.com/mohamedkhairy/kline-analyzer/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	logger.Info("Starting analyzer service",
		logger.String("schedule", cfg.Analyzer.Schedule),
		logger.String("watchlist", cfg.Analyzer.WatchlistFile),
		logger.String("stream", cfg.Analyzer.StreamName),
		logger.String("source", cfg.KLine.Source),
	)

	watchlist, err := scheduler.LoadWatchlist(cfg.Analyzer.WatchlistFile)
	if err != nil {
		logger.Fatal("Failed to load watchlist",
			logger.ErrorField(err),
		)
	}
	targets, err := watchlist.Targets()
	if err != nil {
		logger.Fatal("Invalid watchlist",
			logger.ErrorField(err),
		)
	}
	if len(targets) == 0 {
		logger.Fatal("Watchlist has no pairs")
	}

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
	default:
		source = kline.NewSyntheticSource(cfg.KLine.SyntheticSeed)
	}

	// Initialize Redis client
	redisClient, err := pubsub.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to initialize Redis client",
			logger.ErrorField(err),
		)
	}
	defer redisClient.Close()

	// Scheduled runs bypass the cache so every tick publishes fresh results
	analyzer := analysis.NewService(kline.NewService(source, cfg.KLine), nil, cfg.Analysis)

	// Initialize stream publisher
	publisher := pubsub.NewStreamPublisher(redisClient, pubsub.DefaultStreamPublisherConfig(cfg.Analyzer.StreamName))
	publisher.Start()
	defer publisher.Close()

	sched := scheduler.NewScheduler(analyzer, publisher, targets, cfg.Analyzer.Workers)
	if err := sched.Register(cfg.Analyzer.Schedule); err != nil {
		logger.Fatal("Failed to register schedule",
			logger.ErrorField(err),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Analyzer.RunOnStart {
		go sched.RunNow(ctx)
	}
	sched.Start()

	healthServer := startHealthServer(cfg.Analyzer.MetricsPort, sched, publisher)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutting down analyzer service")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sched.Stop(shutdownCtx)
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down health server",
			logger.ErrorField(err),
		)
	}

	logger.Info("Analyzer service stopped")
}

// startHealthServer starts the HTTP server for health checks and metrics
func startHealthServer(port int, sched *scheduler.Scheduler, publisher *pubsub.StreamPublisher) *http.Server {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"targets":   sched.Targets(),
			"publisher": map[string]interface{}{
				"batch_size": publisher.GetBatchSize(),
			},
		}
		if last, ok := sched.LastRun(); ok {
			health["last_run"] = map[string]interface{}{
				"finished_at": last.FinishedAt,
				"succeeded":   last.Succeeded,
				"failed":      last.Failed,
				"duration_ms": last.Duration.Milliseconds(),
			}
			if last.Targets > 0 && last.Succeeded == 0 {
				health["status"] = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health["status"] != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(health)
	}).Methods("GET")

	router.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("alive"))
	}).Methods("GET")

	// Metrics endpoint
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Starting health check server",
			logger.Int("port", port),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Health check server failed",
				logger.ErrorField(err),
			)
		}
	}()

	return server
}
