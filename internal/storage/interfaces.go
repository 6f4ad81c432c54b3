package storage

import (
	"context"
	"time"

	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

// CandleStore defines the interface for candle storage operations
type CandleStore interface {
	// WriteCandles upserts candles for a pair and period
	WriteCandles(ctx context.Context, pair models.TradingPair, period models.TimePeriod, candles []models.Candlestick) error

	// GetLatestCandles retrieves the latest N candles, oldest first
	GetLatestCandles(ctx context.Context, pair models.TradingPair, period models.TimePeriod, limit int) ([]models.Candlestick, error)

	// Close closes the storage connection
	Close() error
}

// RedisClient defines the interface for Redis operations
type RedisClient interface {
	// Stream operations
	PublishToStream(ctx context.Context, stream string, key string, value interface{}) error
	PublishBatchToStream(ctx context.Context, stream string, messages []map[string]interface{}) error

	// Key-value operations
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	Delete(ctx context.Context, key string) error

	// Ping checks connectivity
	Ping(ctx context.Context) error

	// Close closes the Redis connection
	Close() error
}

// StreamMessage represents a message written to a Redis stream
type StreamMessage struct {
	ID     string
	Stream string
	Values map[string]interface{}
}
