package metricstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	// Addresses are the ClickHouse server addresses (host:port).
	Addresses []string

	// Database is the ClickHouse database name.
	Database string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// DialTimeout is the connection timeout.
	DialTimeout time.Duration

	// QueryTimeout bounds individual metric queries.
	QueryTimeout time.Duration

	// Compression enables LZ4 compression.
	Compression bool

	// RetentionDays is the TTL in days for metric retention.
	RetentionDays int
}

// ClickHouseStore implements Store over a ClickHouse metrics table.
type ClickHouseStore struct {
	config *ClickHouseConfig
	db     *sql.DB
}

// NewClickHouseStore creates a new ClickHouse-backed metric store.
func NewClickHouseStore(config *ClickHouseConfig) *ClickHouseStore {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 5
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.QueryTimeout == 0 {
		config.QueryTimeout = 10 * time.Second
	}
	if config.RetentionDays == 0 {
		config.RetentionDays = 90
	}

	return &ClickHouseStore{config: config}
}

// Open initializes the ClickHouse connection.
func (s *ClickHouseStore) Open() error {
	opts := &clickhouse.Options{
		Addr: s.config.Addresses,
		Auth: clickhouse.Auth{
			Database: s.config.Database,
			Username: s.config.Username,
			Password: s.config.Password,
		},
		DialTimeout:  s.config.DialTimeout,
		MaxOpenConns: s.config.MaxOpenConns,
		MaxIdleConns: s.config.MaxIdleConns,
	}

	if s.config.Compression {
		opts.Compression = &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		}
	}

	db := clickhouse.OpenDB(opts)

	ctx, cancel := context.WithTimeout(context.Background(), s.config.DialTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping clickhouse: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *ClickHouseStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the metrics table if it doesn't exist.
func (s *ClickHouseStore) Migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS metrics (
			workspace_id LowCardinality(String),
			metric_type LowCardinality(String),
			timestamp DateTime64(3, 'UTC'),
			value Float64,
			_date Date DEFAULT toDate(timestamp)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (workspace_id, metric_type, timestamp)
		TTL _date + INTERVAL %d DAY DELETE
		SETTINGS index_granularity = 8192
	`, s.config.RetentionDays)

	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create metrics table: %w", err)
	}
	return nil
}

// CurrentValue returns the most recent sample value for the series.
func (s *ClickHouseStore) CurrentValue(ctx context.Context, workspaceID, metricType string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	query := `
		SELECT value FROM metrics
		WHERE workspace_id = ? AND metric_type = ?
		ORDER BY timestamp DESC LIMIT 1
	`
	var value float64
	err := s.db.QueryRowContext(ctx, query, workspaceID, metricType).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, ErrNoData
	}
	if err != nil {
		return 0, fmt.Errorf("query current value: %w", err)
	}
	return value, nil
}

// ValueAt returns the sample value closest to the given instant.
func (s *ClickHouseStore) ValueAt(ctx context.Context, workspaceID, metricType string, at time.Time, tolerance time.Duration) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	query := `
		SELECT value FROM metrics
		WHERE workspace_id = ? AND metric_type = ?
			AND timestamp >= ? AND timestamp <= ?
		ORDER BY abs(toUnixTimestamp64Milli(timestamp) - ?) ASC
		LIMIT 1
	`
	var value float64
	err := s.db.QueryRowContext(ctx, query,
		workspaceID, metricType,
		at.Add(-tolerance), at.Add(tolerance), at.UnixMilli(),
	).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, ErrNoData
	}
	if err != nil {
		return 0, fmt.Errorf("query value at: %w", err)
	}
	return value, nil
}

// Samples returns samples in [from, to) ordered by timestamp ascending.
func (s *ClickHouseStore) Samples(ctx context.Context, workspaceID, metricType string, from, to time.Time, limit int) ([]Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	query := `
		SELECT timestamp, value FROM metrics
		WHERE workspace_id = ? AND metric_type = ?
			AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
	`
	args := []interface{}{workspaceID, metricType, from, to}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var sample Sample
		if err := rows.Scan(&sample.Timestamp, &sample.Value); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}
