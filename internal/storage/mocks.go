package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mohamedkhairy/kline-analyzer/internal/models"
)

// MockCandleStore is a mock implementation of CandleStore for testing
type MockCandleStore struct {
	mu        sync.Mutex
	Candles   map[string][]models.Candlestick
	WriteErr  error
	LatestErr error
}

// NewMockCandleStore creates an empty MockCandleStore
func NewMockCandleStore() *MockCandleStore {
	return &MockCandleStore{Candles: make(map[string][]models.Candlestick)}
}

func candleKey(pair models.TradingPair, period models.TimePeriod) string {
	return pair.String() + "/" + string(period)
}

func (m *MockCandleStore) WriteCandles(ctx context.Context, pair models.TradingPair, period models.TimePeriod, candles []models.Candlestick) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := candleKey(pair, period)
	m.Candles[key] = append(m.Candles[key], candles...)
	return nil
}

func (m *MockCandleStore) GetLatestCandles(ctx context.Context, pair models.TradingPair, period models.TimePeriod, limit int) ([]models.Candlestick, error) {
	if m.LatestErr != nil {
		return nil, m.LatestErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.Candles[candleKey(pair, period)]
	start := len(all) - limit
	if start < 0 {
		start = 0
	}
	result := make([]models.Candlestick, len(all)-start)
	copy(result, all[start:])
	return result, nil
}

func (m *MockCandleStore) Fetch(ctx context.Context, pair models.TradingPair, period models.TimePeriod, limit int) ([]models.Candlestick, error) {
	return m.GetLatestCandles(ctx, pair, period, limit)
}

func (m *MockCandleStore) Close() error {
	return nil
}

// MockRedisClient is a mock implementation of RedisClient for testing
type MockRedisClient struct {
	mu         sync.Mutex
	Data       map[string]string
	TTLs       map[string]time.Duration
	StreamData []StreamMessage
	PublishErr error
	GetErr     error
	SetErr     error
	PingErr    error
	seq        int
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		Data: make(map[string]string),
		TTLs: make(map[string]time.Duration),
	}
}

func (m *MockRedisClient) nextID() string {
	m.seq++
	return fmt.Sprintf("0-%d", m.seq)
}

func (m *MockRedisClient) PublishToStream(ctx context.Context, stream string, key string, value interface{}) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StreamData = append(m.StreamData, StreamMessage{
		ID:     m.nextID(),
		Stream: stream,
		Values: map[string]interface{}{key: string(jsonData)},
	})
	return nil
}

func (m *MockRedisClient) PublishBatchToStream(ctx context.Context, stream string, messages []map[string]interface{}) error {
	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		m.StreamData = append(m.StreamData, StreamMessage{
			ID:     m.nextID(),
			Stream: stream,
			Values: msg,
		})
	}
	return nil
}

// Messages returns a snapshot of everything published to a stream
func (m *MockRedisClient) Messages(stream string) []StreamMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []StreamMessage
	for _, msg := range m.StreamData {
		if msg.Stream == stream {
			result = append(result, msg)
		}
	}
	return result
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	// Marshal to JSON like the real implementation
	jsonData, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = string(jsonData)
	m.TTLs[key] = ttl
	return nil
}

func (m *MockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetErr != nil {
		return "", m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Data[key], nil
}

func (m *MockRedisClient) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if m.GetErr != nil {
		return false, m.GetErr
	}
	m.mu.Lock()
	value, exists := m.Data[key]
	m.mu.Unlock()
	if !exists {
		return false, nil
	}
	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MockRedisClient) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
	delete(m.TTLs, key)
	return nil
}

func (m *MockRedisClient) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockRedisClient) Close() error {
	return nil
}
