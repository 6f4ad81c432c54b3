package pubsub

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mohamedkhairy/kline-analyzer/internal/models"
	"github.com/mohamedkhairy/kline-analyzer/internal/storage"
	"github.com/mohamedkhairy/kline-analyzer/pkg/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(base string) *AnalysisEvent {
	return &AnalysisEvent{
		Pair:       models.NewTradingPair(base, "USDC", ""),
		Period:     models.OneHour,
		Candles:    100,
		MACDMode:   indicator.MACDSimple,
		LastClose:  2500,
		Analysis:   &indicator.TechnicalAnalysis{Trend: indicator.TrendBullish, Signal: indicator.SignalBuy},
		AnalyzedAt: time.Unix(1700000000, 0).UTC(),
	}
}

func TestStreamPublisher_Publish(t *testing.T) {
	mockRedis := storage.NewMockRedisClient()
	config := DefaultStreamPublisherConfig("test-stream")
	config.BatchSize = 10
	config.BatchTimeout = 50 * time.Millisecond

	publisher := NewStreamPublisher(mockRedis, config)
	publisher.Start()
	defer publisher.Close()

	require.NoError(t, publisher.Publish(testEvent("ETH")))

	// Wait for batch timeout
	assert.Eventually(t, func() bool {
		return len(mockRedis.Messages("test-stream")) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, publisher.GetBatchSize())

	msg := mockRedis.Messages("test-stream")[0]
	assert.Equal(t, "ETH-USDC@ethereum", msg.Values["pair"])
	assert.Equal(t, "1h", msg.Values["period"])

	var decoded AnalysisEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Values["analysis"].(string)), &decoded))
	assert.Equal(t, indicator.SignalBuy, decoded.Analysis.Signal)
	assert.Equal(t, 100, decoded.Candles)
}

func TestStreamPublisher_BatchFlush(t *testing.T) {
	mockRedis := storage.NewMockRedisClient()
	config := DefaultStreamPublisherConfig("test-stream")
	config.BatchSize = 3
	config.BatchTimeout = time.Hour

	publisher := NewStreamPublisher(mockRedis, config)
	publisher.Start()
	defer publisher.Close()

	for _, base := range []string{"ETH", "BTC", "SOL"} {
		require.NoError(t, publisher.Publish(testEvent(base)))
	}

	// Batch is flushed synchronously when full
	assert.Equal(t, 0, publisher.GetBatchSize())
	assert.Len(t, mockRedis.Messages("test-stream"), 3)
}

func TestStreamPublisher_Partitioning(t *testing.T) {
	mockRedis := storage.NewMockRedisClient()
	config := DefaultStreamPublisherConfig("test-stream")
	config.BatchSize = 100
	config.BatchTimeout = time.Hour
	config.Partitions = 4

	publisher := NewStreamPublisher(mockRedis, config)
	publisher.Start()
	defer publisher.Close()

	bases := []string{"ETH", "BTC", "SOL", "UNI", "AAVE", "LINK"}
	for _, base := range bases {
		require.NoError(t, publisher.Publish(testEvent(base)))
	}
	require.NoError(t, publisher.Flush())

	total := 0
	for _, msg := range mockRedis.StreamData {
		assert.True(t, strings.HasPrefix(msg.Stream, "test-stream.p"), msg.Stream)
		total++
	}
	assert.Equal(t, len(bases), total)

	// The same pair always maps to the same partition
	key := models.NewTradingPair("ETH", "USDC", "").String()
	assert.Equal(t, publisher.getPartition(key), publisher.getPartition(key))
}

func TestStreamPublisher_InvalidEvent(t *testing.T) {
	publisher := NewStreamPublisher(storage.NewMockRedisClient(), DefaultStreamPublisherConfig("test-stream"))
	publisher.Start()
	defer publisher.Close()

	assert.Error(t, publisher.Publish(nil))

	noAnalysis := testEvent("ETH")
	noAnalysis.Analysis = nil
	assert.Error(t, publisher.Publish(noAnalysis))

	badPeriod := testEvent("ETH")
	badPeriod.Period = "2h"
	assert.ErrorIs(t, publisher.Publish(badPeriod), models.ErrInvalidPeriod)

	badPair := testEvent("USDC")
	assert.ErrorIs(t, publisher.Publish(badPair), models.ErrInvalidSymbol)
}

func TestStreamPublisher_Close(t *testing.T) {
	mockRedis := storage.NewMockRedisClient()
	config := DefaultStreamPublisherConfig("test-stream")
	config.BatchSize = 100
	config.BatchTimeout = time.Hour

	publisher := NewStreamPublisher(mockRedis, config)
	publisher.Start()

	require.NoError(t, publisher.Publish(testEvent("ETH")))
	assert.Equal(t, 1, publisher.GetBatchSize())

	// Close should flush remaining items
	require.NoError(t, publisher.Close())
	assert.Equal(t, 0, publisher.GetBatchSize())
	assert.Len(t, mockRedis.Messages("test-stream"), 1)
}

func TestStreamPublisher_GetPartitionStreamName(t *testing.T) {
	config := DefaultStreamPublisherConfig("test-stream")
	config.Partitions = 4
	publisher := NewStreamPublisher(storage.NewMockRedisClient(), config)

	assert.Equal(t, "test-stream.p0", publisher.GetPartitionStreamName(0))
	assert.Equal(t, "test-stream.p3", publisher.GetPartitionStreamName(3))

	unpartitioned := NewStreamPublisher(storage.NewMockRedisClient(), DefaultStreamPublisherConfig("test-stream"))
	assert.Equal(t, "test-stream", unpartitioned.GetPartitionStreamName(0))
}

func TestStreamPublisher_RetryOnError(t *testing.T) {
	mockRedis := storage.NewMockRedisClient()
	mockRedis.PublishErr = assert.AnError

	config := DefaultStreamPublisherConfig("test-stream")
	config.BatchSize = 1
	config.RetryAttempts = 2
	config.RetryDelay = time.Millisecond

	publisher := NewStreamPublisher(mockRedis, config)
	publisher.Start()
	defer publisher.Close()

	// A full batch flushes inline, so the failure surfaces from Publish
	err := publisher.Publish(testEvent("ETH"))
	require.ErrorIs(t, err, assert.AnError)
}

func TestDefaultStreamPublisherConfig(t *testing.T) {
	config := DefaultStreamPublisherConfig("analysis")

	assert.Equal(t, "analysis", config.StreamName)
	assert.Equal(t, 50, config.BatchSize)
	assert.Equal(t, 500*time.Millisecond, config.BatchTimeout)
	assert.Equal(t, 0, config.Partitions)
	assert.Equal(t, 3, config.RetryAttempts)
	assert.Equal(t, 100*time.Millisecond, config.RetryDelay)
}
