package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohamedkhairy/kline-analyzer/internal/analysis"
	"github.com/mohamedkhairy/kline-analyzer/internal/kline"
	"github.com/mohamedkhairy/kline-analyzer/internal/pubsub"
	"github.com/mohamedkhairy/kline-analyzer/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Watchlist runs by trigger",
		},
		[]string{"trigger"}, // "cron" or "manual"
	)

	targetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_targets_total",
			Help: "Analyzed watchlist targets by outcome",
		},
		[]string{"status"}, // "ok", "analyze_error", "no_data", "publish_error"
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_run_duration_seconds",
			Help:    "Wall time of one watchlist run",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

// Analyzer computes one analysis
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Publisher delivers analysis events
type Publisher interface {
	Publish(event *pubsub.AnalysisEvent) error
}

// RunSummary reports the outcome of one run
type RunSummary struct {
	Targets    int
	Succeeded  int
	Failed     int
	Skipped    bool // another run was still in progress
	Duration   time.Duration
	FinishedAt time.Time
}

// Scheduler runs the watchlist on a cron schedule
type Scheduler struct {
	cron      *cron.Cron
	analyzer  Analyzer
	publisher Publisher
	targets   []Target
	workers   int
	running   atomic.Bool
	last      atomic.Pointer[RunSummary]
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a scheduler. Cron specs carry a leading seconds field.
func NewScheduler(analyzer Analyzer, publisher Publisher, targets []Target, workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds(), cron.WithLogger(newCronLogger())),
		analyzer:  analyzer,
		publisher: publisher,
		targets:   targets,
		workers:   workers,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Register adds the watchlist run to the cron schedule
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		s.run(s.ctx, "cron")
	}); err != nil {
		return fmt.Errorf("register analyzer schedule %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Scheduler started", logger.Int("targets", len(s.targets)), logger.Int("workers", s.workers))
}

// Stop stops the cron scheduler and waits for a running job to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Warn("Scheduler stop timed out, cancelling the running job")
	}
	s.cancel()
	logger.Info("Scheduler stopped")
}

// RunNow executes the watchlist immediately (manual trigger and run-on-start)
func (s *Scheduler) RunNow(ctx context.Context) RunSummary {
	return s.run(ctx, "manual")
}

// LastRun returns the summary of the most recent completed run
func (s *Scheduler) LastRun() (RunSummary, bool) {
	last := s.last.Load()
	if last == nil {
		return RunSummary{}, false
	}
	return *last, true
}

// Targets returns the number of watchlist targets
func (s *Scheduler) Targets() int {
	return len(s.targets)
}

func (s *Scheduler) run(ctx context.Context, trigger string) RunSummary {
	if !s.running.CompareAndSwap(false, true) {
		logger.Warn("Skipping watchlist run, previous run still in progress", logger.String("trigger", trigger))
		return RunSummary{Targets: len(s.targets), Skipped: true}
	}
	defer s.running.Store(false)

	runsTotal.WithLabelValues(trigger).Inc()
	start := time.Now()
	traceID := logger.NewTraceID()
	ctx = logger.WithTraceID(ctx, traceID)
	log := logger.WithContext(ctx)

	var succeeded, failed atomic.Int64
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for _, target := range s.targets {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(target Target) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.analyzeTarget(ctx, target, traceID); err != nil {
				failed.Add(1)
				log.Warn("Watchlist target failed",
					logger.String("pair", target.Pair.String()),
					logger.String("period", string(target.Period)),
					logger.ErrorField(err),
				)
				return
			}
			succeeded.Add(1)
		}(target)
	}
	wg.Wait()

	summary := RunSummary{
		Targets:    len(s.targets),
		Succeeded:  int(succeeded.Load()),
		Failed:     int(failed.Load()),
		Duration:   time.Since(start),
		FinishedAt: time.Now().UTC(),
	}
	runDuration.Observe(summary.Duration.Seconds())
	s.last.Store(&summary)

	log.Info("Watchlist run finished",
		logger.String("trigger", trigger),
		logger.Int("targets", summary.Targets),
		logger.Int("succeeded", summary.Succeeded),
		logger.Int("failed", summary.Failed),
		logger.Duration("duration", summary.Duration),
	)
	return summary
}

func (s *Scheduler) analyzeTarget(ctx context.Context, target Target, traceID string) error {
	result, err := s.analyzer.Analyze(ctx, analysis.Request{
		Pair:     target.Pair,
		Period:   target.Period,
		Limit:    target.Limit,
		MACDMode: target.MACDMode,
	})
	if err != nil {
		targetsTotal.WithLabelValues("analyze_error").Inc()
		return fmt.Errorf("analyze: %w", err)
	}
	if result.Candles == 0 {
		targetsTotal.WithLabelValues("no_data").Inc()
		return fmt.Errorf("%w for %s %s", kline.ErrNoData, target.Pair, target.Period)
	}

	event := &pubsub.AnalysisEvent{
		Pair:       result.Pair,
		Period:     result.Period,
		Candles:    result.Candles,
		MACDMode:   result.MACDMode,
		LastClose:  result.LastClose,
		Analysis:   result.Analysis,
		AnalyzedAt: result.AnalyzedAt,
		TraceID:    traceID,
	}
	if err := s.publisher.Publish(event); err != nil {
		targetsTotal.WithLabelValues("publish_error").Inc()
		return fmt.Errorf("publish: %w", err)
	}

	targetsTotal.WithLabelValues("ok").Inc()
	return nil
}

// cronLogger routes cron's internal logging through zap
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func newCronLogger() cron.Logger {
	return cronLogger{sugar: logger.Get().Named("cron").Sugar()}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
