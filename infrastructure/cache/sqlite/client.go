// ABOUTME: SQLite-based cache implementation for persistent caching
// ABOUTME: Keeps AI results and feed validators across restarts on a single node

package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"digests-pipeline/core/errors"
	"digests-pipeline/core/interfaces"
)

var _ interfaces.Cache = (*Client)(nil)

const (
	// DefaultCleanupInterval is how often expired rows are purged
	DefaultCleanupInterval = 5 * time.Minute

	maxKeyLength   = 1024
	maxValueLength = 1024 * 1024
)

const schema = `
	CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expiry INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cache_expiry ON cache(expiry);
`

// Client implements the Cache interface using SQLite.
// An expiry of 0 marks an entry that never expires.
type Client struct {
	db       *sql.DB
	filePath string
	logger   interfaces.Logger
	now      func() time.Time
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Client
type Option func(*Client)

// WithLogger reports rejected writes and failed cleanups
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used for expiry
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithCleanupInterval sets the purge period; zero or less disables the purge loop
func WithCleanupInterval(d time.Duration) Option {
	return func(c *Client) { c.interval = d }
}

// NewSQLiteCache opens (or creates) the cache database at filePath
func NewSQLiteCache(filePath string, opts ...Option) (*Client, error) {
	if filePath == "" {
		filePath = "cache.db"
	}

	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if filePath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	c := &Client{
		db:       db,
		filePath: filePath,
		logger:   interfaces.NopLogger{},
		now:      time.Now,
		interval: DefaultCleanupInterval,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.interval > 0 {
		go c.cleanupRoutine()
	}
	return c, nil
}

// Get retrieves a live value; missing and expired keys are cache misses
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	query, args, err := sq.Select("value").
		From("cache").
		Where(sq.Eq{"key": key}).
		Where(sq.Or{sq.Eq{"expiry": 0}, sq.Gt{"expiry": c.now().UnixMilli()}}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var value []byte
	err = c.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get value: %w", err)
	}
	return value, nil
}

// Set stores a value; a ttl of zero or less never expires
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if len(value) > maxValueLength {
		c.logger.Warn("Rejected oversized cache value", map[string]interface{}{
			"key":  key,
			"size": len(value),
		})
		return &errors.ValidationError{Field: "value", Message: fmt.Sprintf("exceeds %d bytes", maxValueLength)}
	}

	var expiry int64
	if ttl > 0 {
		expiry = c.now().Add(ttl).UnixMilli()
	}
	if value == nil {
		value = []byte{}
	}

	return c.exec(ctx, sq.Replace("cache").
		Columns("key", "value", "expiry").
		Values(key, value, expiry))
}

// Delete removes a value from the cache
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return c.exec(ctx, sq.Delete("cache").Where(sq.Eq{"key": key}))
}

// Clear removes all values from the cache
func (c *Client) Clear(ctx context.Context) error {
	return c.exec(ctx, sq.Delete("cache"))
}

// Purge removes expired entries and reports how many were dropped
func (c *Client) Purge(ctx context.Context) (int64, error) {
	query, args, err := sq.Delete("cache").
		Where(sq.Gt{"expiry": 0}).
		Where(sq.LtOrEq{"expiry": c.now().UnixMilli()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired entries: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns cache statistics
func (c *Client) Stats(ctx context.Context) (map[string]interface{}, error) {
	total, err := c.count(ctx, sq.Select("COUNT(*)").From("cache"))
	if err != nil {
		return nil, err
	}
	expired, err := c.count(ctx, sq.Select("COUNT(*)").From("cache").
		Where(sq.Gt{"expiry": 0}).
		Where(sq.LtOrEq{"expiry": c.now().UnixMilli()}))
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"total_entries":   total,
		"expired_entries": expired,
		"file_path":       c.filePath,
	}, nil
}

// Close stops the purge loop and closes the database
func (c *Client) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return c.db.Close()
}

func (c *Client) cleanupRoutine() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if _, err := c.Purge(context.Background()); err != nil {
				c.logger.Warn("Cache purge failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

func (c *Client) count(ctx context.Context, q sq.SelectBuilder) (int, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}
	var n int
	if err := c.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

func (c *Client) exec(ctx context.Context, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}

func validateKey(key string) error {
	if key == "" {
		return &errors.ValidationError{Field: "key", Message: "cannot be empty"}
	}
	if len(key) > maxKeyLength {
		return &errors.ValidationError{Field: "key", Message: fmt.Sprintf("exceeds %d characters", maxKeyLength)}
	}
	return nil
}
