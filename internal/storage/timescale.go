package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/mohamedkhairy/kline-analyzer/internal/config"
	"github.com/mohamedkhairy/kline-analyzer/internal/models"
	"github.com/mohamedkhairy/kline-analyzer/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Metrics for TimescaleDB operations
	timescaleWriteTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timescale_candles_written_total",
			Help: "Total number of candles written to TimescaleDB",
		},
		[]string{"status"}, // "success" or "error"
	)

	timescaleLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timescale_latency_seconds",
			Help:    "TimescaleDB operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
		[]string{"operation"},
	)

	timescaleBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timescale_batch_size",
			Help:    "Number of candles per TimescaleDB operation",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"operation"},
	)
)

// Schema creates the candles hypertable. Running it twice is harmless.
const Schema = `
CREATE TABLE IF NOT EXISTS candles (
	chain        TEXT             NOT NULL,
	base         TEXT             NOT NULL,
	quote        TEXT             NOT NULL,
	period       TEXT             NOT NULL,
	timestamp    BIGINT           NOT NULL,
	open         DOUBLE PRECISION NOT NULL,
	high         DOUBLE PRECISION NOT NULL,
	low          DOUBLE PRECISION NOT NULL,
	close        DOUBLE PRECISION NOT NULL,
	volume       DOUBLE PRECISION NOT NULL,
	quote_volume DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (chain, base, quote, period, timestamp)
);
`

// WriteConfig holds configuration for write operations
type WriteConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultWriteConfig returns the retry policy used by the binaries
func DefaultWriteConfig() WriteConfig {
	return WriteConfig{
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
	}
}

// TimescaleDBClient implements CandleStore for TimescaleDB
type TimescaleDBClient struct {
	db          *sql.DB
	dbConfig    config.DatabaseConfig
	writeConfig WriteConfig
}

// ConnString builds the lib/pq connection string
func ConnString(dbConfig config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Database,
		dbConfig.SSLMode,
	)
}

// NewTimescaleDBClient creates a new TimescaleDB client
func NewTimescaleDBClient(dbConfig config.DatabaseConfig, writeConfig WriteConfig) (*TimescaleDBClient, error) {
	db, err := sql.Open("postgres", ConnString(dbConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to TimescaleDB",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return newTimescaleDBClient(db, dbConfig, writeConfig), nil
}

func newTimescaleDBClient(db *sql.DB, dbConfig config.DatabaseConfig, writeConfig WriteConfig) *TimescaleDBClient {
	if writeConfig.MaxRetries < 1 {
		writeConfig.MaxRetries = 1
	}
	return &TimescaleDBClient{
		db:          db,
		dbConfig:    dbConfig,
		writeConfig: writeConfig,
	}
}

// EnsureSchema creates the candles table if it does not exist
func (t *TimescaleDBClient) EnsureSchema(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create candles table: %w", err)
	}
	return nil
}

// Ping checks the database connection
func (t *TimescaleDBClient) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// WriteCandles validates the series and upserts it in one transaction, retrying with backoff
func (t *TimescaleDBClient) WriteCandles(ctx context.Context, pair models.TradingPair, period models.TimePeriod, candles []models.Candlestick) error {
	if len(candles) == 0 {
		return nil
	}
	if err := pair.Validate(); err != nil {
		return err
	}
	if err := models.ValidateSeries(candles); err != nil {
		return fmt.Errorf("refusing to store invalid series for %s: %w", pair, err)
	}

	startTime := time.Now()
	timescaleBatchSize.WithLabelValues("write").Observe(float64(len(candles)))

	var err error
	for attempt := 0; attempt < t.writeConfig.MaxRetries; attempt++ {
		err = t.insertCandles(ctx, pair, period, candles)
		if err == nil {
			break
		}

		if attempt < t.writeConfig.MaxRetries-1 {
			delay := t.writeConfig.RetryDelay * time.Duration(1<<uint(attempt)) // Exponential backoff
			logger.Warn("Failed to write candles, retrying",
				logger.ErrorField(err),
				logger.Int("attempt", attempt+1),
				logger.Int("candles_count", len(candles)),
				logger.Duration("delay", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	timescaleLatency.WithLabelValues("write").Observe(time.Since(startTime).Seconds())

	if err != nil {
		timescaleWriteTotal.WithLabelValues("error").Add(float64(len(candles)))
		return fmt.Errorf("failed to write candles after %d attempts: %w", t.writeConfig.MaxRetries, err)
	}

	timescaleWriteTotal.WithLabelValues("success").Add(float64(len(candles)))
	logger.Debug("Wrote candles to TimescaleDB",
		logger.String("pair", pair.String()),
		logger.String("period", string(period)),
		logger.Int("count", len(candles)),
		logger.Duration("latency", time.Since(startTime)),
	)
	return nil
}

// insertCandles inserts candles using a prepared statement inside a transaction
func (t *TimescaleDBClient) insertCandles(ctx context.Context, pair models.TradingPair, period models.TimePeriod, candles []models.Candlestick) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (chain, base, quote, period, timestamp, open, high, low, close, volume, quote_volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (chain, base, quote, period, timestamp) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			quote_volume = EXCLUDED.quote_volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx,
			pair.Chain,
			pair.Base,
			pair.Quote,
			string(period),
			c.Timestamp,
			c.Open,
			c.High,
			c.Low,
			c.Close,
			c.Volume,
			c.QuoteVolume,
		)
		if err != nil {
			return fmt.Errorf("failed to insert candle %d: %w", c.Timestamp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetLatestCandles retrieves the latest N candles, oldest first
func (t *TimescaleDBClient) GetLatestCandles(ctx context.Context, pair models.TradingPair, period models.TimePeriod, limit int) ([]models.Candlestick, error) {
	startTime := time.Now()
	defer func() {
		timescaleLatency.WithLabelValues("read").Observe(time.Since(startTime).Seconds())
	}()

	query := `
		SELECT timestamp, open, high, low, close, volume, quote_volume
		FROM candles
		WHERE chain = $1 AND base = $2 AND quote = $3 AND period = $4
		ORDER BY timestamp DESC
		LIMIT $5
	`

	rows, err := t.db.QueryContext(ctx, query, pair.Chain, pair.Base, pair.Quote, string(period), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest candles: %w", err)
	}
	defer rows.Close()

	candles := make([]models.Candlestick, 0, limit)
	for rows.Next() {
		var c models.Candlestick
		if err := rows.Scan(
			&c.Timestamp,
			&c.Open,
			&c.High,
			&c.Low,
			&c.Close,
			&c.Volume,
			&c.QuoteVolume,
		); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	// Reverse to get chronological order
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	timescaleBatchSize.WithLabelValues("read").Observe(float64(len(candles)))
	return candles, nil
}

// Fetch lets the store act as a candle source for the KLine service
func (t *TimescaleDBClient) Fetch(ctx context.Context, pair models.TradingPair, period models.TimePeriod, limit int) ([]models.Candlestick, error) {
	return t.GetLatestCandles(ctx, pair, period, limit)
}

// Close closes the database connection
func (t *TimescaleDBClient) Close() error {
	if err := t.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	logger.Info("TimescaleDB client closed")
	return nil
}
