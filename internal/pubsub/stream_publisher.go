package pubsub

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/kline-analyzer/internal/models"
	"github.com/mohamedkhairy/kline-analyzer/internal/storage"
	"github.com/mohamedkhairy/kline-analyzer/pkg/indicator"
	"github.com/mohamedkhairy/kline-analyzer/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Metrics for stream publishing
	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_publish_total",
			Help: "Total number of messages published to streams",
		},
		[]string{"stream", "partition"},
	)

	publishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_publish_errors_total",
			Help: "Total number of publish errors",
		},
		[]string{"stream", "partition"},
	)

	publishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stream_publish_latency_seconds",
			Help:    "Publish latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"stream", "partition"},
	)

	batchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stream_publish_batch_size",
			Help:    "Batch size for stream publishing",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"stream"},
	)
)

// AnalysisEvent is one analysis result as written to the stream
type AnalysisEvent struct {
	Pair       models.TradingPair           `json:"pair"`
	Period     models.TimePeriod            `json:"period"`
	Candles    int                          `json:"candles"`
	MACDMode   indicator.MACDMode           `json:"macd_mode"`
	LastClose  float64                      `json:"last_close"`
	Analysis   *indicator.TechnicalAnalysis `json:"analysis"`
	AnalyzedAt time.Time                    `json:"analyzed_at"`
	TraceID    string                       `json:"trace_id,omitempty"`
}

// Validate rejects events that cannot be routed
func (e *AnalysisEvent) Validate() error {
	if err := e.Pair.Validate(); err != nil {
		return err
	}
	if e.Period.Seconds() == 0 {
		return fmt.Errorf("%w: %q", models.ErrInvalidPeriod, e.Period)
	}
	if e.Analysis == nil {
		return fmt.Errorf("analysis cannot be nil")
	}
	return nil
}

// StreamPublisherConfig holds configuration for the stream publisher
type StreamPublisherConfig struct {
	StreamName    string
	BatchSize     int
	BatchTimeout  time.Duration
	Partitions    int // Number of partitions (0 = no partitioning)
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultStreamPublisherConfig returns default configuration
func DefaultStreamPublisherConfig(streamName string) StreamPublisherConfig {
	return StreamPublisherConfig{
		StreamName:    streamName,
		BatchSize:     50,
		BatchTimeout:  500 * time.Millisecond,
		Partitions:    0,
		RetryAttempts: 3,
		RetryDelay:    100 * time.Millisecond,
	}
}

// StreamPublisher publishes analysis events to Redis streams with batching and partitioning
type StreamPublisher struct {
	config  StreamPublisherConfig
	redis   storage.RedisClient
	batch   []*AnalysisEvent
	batchMu sync.Mutex
	ticker  *time.Ticker
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewStreamPublisher creates a new stream publisher
func NewStreamPublisher(redis storage.RedisClient, config StreamPublisherConfig) *StreamPublisher {
	if config.BatchSize < 1 {
		config.BatchSize = 1
	}
	if config.RetryAttempts < 1 {
		config.RetryAttempts = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &StreamPublisher{
		config: config,
		redis:  redis,
		batch:  make([]*AnalysisEvent, 0, config.BatchSize),
		ticker: time.NewTicker(config.BatchTimeout),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the batch publishing loop
func (p *StreamPublisher) Start() {
	p.wg.Add(1)
	go p.batchLoop()
}

// Publish adds an event to the batch, flushing when the batch is full
func (p *StreamPublisher) Publish(event *AnalysisEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid analysis event: %w", err)
	}

	p.batchMu.Lock()
	p.batch = append(p.batch, event)
	shouldFlush := len(p.batch) >= p.config.BatchSize
	p.batchMu.Unlock()

	if shouldFlush {
		return p.flush()
	}

	return nil
}

// batchLoop periodically flushes the batch
func (p *StreamPublisher) batchLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			p.flush()
			return
		case <-p.ticker.C:
			p.flush()
		}
	}
}

// flush publishes the current batch to Redis streams
func (p *StreamPublisher) flush() error {
	p.batchMu.Lock()
	if len(p.batch) == 0 {
		p.batchMu.Unlock()
		return nil
	}

	batch := make([]*AnalysisEvent, len(p.batch))
	copy(batch, p.batch)
	p.batch = p.batch[:0]
	p.batchMu.Unlock()

	batchSize.WithLabelValues(p.config.StreamName).Observe(float64(len(batch)))

	if p.config.Partitions > 0 {
		return p.publishPartitioned(batch)
	}

	return p.publishBatch(batch, p.config.StreamName, "")
}

// publishPartitioned groups events by pair hash so one pair always lands on one stream
func (p *StreamPublisher) publishPartitioned(events []*AnalysisEvent) error {
	partitions := make(map[int][]*AnalysisEvent)
	for _, event := range events {
		partition := p.getPartition(event.Pair.String())
		partitions[partition] = append(partitions[partition], event)
	}

	var lastErr error
	for partition, partitionEvents := range partitions {
		streamName := p.GetPartitionStreamName(partition)
		if err := p.publishBatch(partitionEvents, streamName, fmt.Sprintf("%d", partition)); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// publishBatch publishes a batch of events to one stream
func (p *StreamPublisher) publishBatch(events []*AnalysisEvent, streamName string, partition string) error {
	startTime := time.Now()

	messages := make([]map[string]interface{}, 0, len(events))
	for _, event := range events {
		eventJSON, marshalErr := json.Marshal(event)
		if marshalErr != nil {
			logger.Error("Failed to marshal analysis event",
				logger.ErrorField(marshalErr),
				logger.String("pair", event.Pair.String()),
			)
			continue
		}
		messages = append(messages, map[string]interface{}{
			"pair":     event.Pair.String(),
			"period":   string(event.Period),
			"analysis": string(eventJSON),
		})
	}

	if len(messages) == 0 {
		return nil
	}

	// The final flush runs after p.ctx is cancelled, so writes get their own deadline
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	for attempt := 0; attempt < p.config.RetryAttempts; attempt++ {
		err = p.redis.PublishBatchToStream(ctx, streamName, messages)
		if err == nil {
			break
		}

		if attempt < p.config.RetryAttempts-1 {
			logger.Warn("Failed to publish batch, retrying",
				logger.ErrorField(err),
				logger.String("stream", streamName),
				logger.Int("attempt", attempt+1),
				logger.Int("count", len(messages)),
			)
			time.Sleep(p.config.RetryDelay * time.Duration(attempt+1))
		}
	}

	if err != nil {
		publishErrors.WithLabelValues(streamName, partition).Add(float64(len(messages)))
		logger.Error("Failed to publish batch after retries",
			logger.ErrorField(err),
			logger.String("stream", streamName),
			logger.Int("count", len(messages)),
		)
		return err
	}

	publishTotal.WithLabelValues(streamName, partition).Add(float64(len(messages)))
	publishLatency.WithLabelValues(streamName, partition).Observe(time.Since(startTime).Seconds())

	logger.Debug("Published batch to stream",
		logger.String("stream", streamName),
		logger.Int("count", len(messages)),
		logger.Duration("latency", time.Since(startTime)),
	)

	return nil
}

// getPartition hashes a key onto [0, Partitions)
func (p *StreamPublisher) getPartition(key string) int {
	if p.config.Partitions == 0 {
		return 0
	}

	hash := sha256.Sum256([]byte(key))
	hashInt := int(hash[0])<<24 | int(hash[1])<<16 | int(hash[2])<<8 | int(hash[3])
	if hashInt < 0 {
		hashInt = -hashInt
	}
	return hashInt % p.config.Partitions
}

// GetPartitionStreamName returns the stream name for a given partition
func (p *StreamPublisher) GetPartitionStreamName(partition int) string {
	if p.config.Partitions == 0 {
		return p.config.StreamName
	}
	return fmt.Sprintf("%s.p%d", p.config.StreamName, partition)
}

// Flush forces an immediate flush of the current batch
func (p *StreamPublisher) Flush() error {
	return p.flush()
}

// Close stops the publisher and flushes remaining events
func (p *StreamPublisher) Close() error {
	p.cancel()
	p.ticker.Stop()
	p.wg.Wait()
	return p.flush()
}

// GetBatchSize returns the number of buffered events
func (p *StreamPublisher) GetBatchSize() int {
	p.batchMu.Lock()
	defer p.batchMu.Unlock()
	return len(p.batch)
}
