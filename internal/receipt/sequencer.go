package receipt

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Sequencer hands out strictly increasing numbers per (school, year).
// Implementations must be safe under concurrent callers and never return a value twice.
type Sequencer interface {
	Next(ctx context.Context, schoolID int64, year int) (int64, error)
}

// =============================================================================
// POSTGRES SEQUENCER
// One row per (school, year); the upsert takes a row lock so concurrent
// transactions queue on it
// =============================================================================

// PostgresSequencer stores counters in the receipt_sequences table
type PostgresSequencer struct {
	db *sqlx.DB
}

// NewPostgresSequencer creates a postgres-backed sequencer
func NewPostgresSequencer(db *sqlx.DB) *PostgresSequencer {
	return &PostgresSequencer{db: db}
}

// Next increments and returns the counter
func (s *PostgresSequencer) Next(ctx context.Context, schoolID int64, year int) (int64, error) {
	query := `
		INSERT INTO receipt_sequences (school_id, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (school_id, year)
		DO UPDATE SET last_value = receipt_sequences.last_value + 1
		RETURNING last_value
	`

	var next int64
	if err := s.db.QueryRowxContext(ctx, query, schoolID, year).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to advance receipt sequence: %w", err)
	}
	return next, nil
}

// =============================================================================
// REDIS SEQUENCER
// INCR is atomic on the server
// =============================================================================

// RedisSequencer keeps counters under receipt:seq:{school}:{year}
type RedisSequencer struct {
	client *redis.Client
}

// NewRedisSequencer creates a redis-backed sequencer
func NewRedisSequencer(client *redis.Client) *RedisSequencer {
	return &RedisSequencer{client: client}
}

// Key returns the redis key for a school's yearly counter
func (s *RedisSequencer) Key(schoolID int64, year int) string {
	return fmt.Sprintf("receipt:seq:%d:%d", schoolID, year)
}

// Next increments and returns the counter
func (s *RedisSequencer) Next(ctx context.Context, schoolID int64, year int) (int64, error) {
	next, err := s.client.Incr(ctx, s.Key(schoolID, year)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to advance receipt sequence: %w", err)
	}
	return next, nil
}

// =============================================================================
// MEMORY SEQUENCER
// =============================================================================

type sequenceKey struct {
	schoolID int64
	year     int
}

// MemorySequencer keeps counters in process
type MemorySequencer struct {
	mu       sync.Mutex
	counters map[sequenceKey]int64
}

// NewMemorySequencer creates an in-process sequencer
func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{counters: make(map[sequenceKey]int64)}
}

// Next increments and returns the counter
func (s *MemorySequencer) Next(ctx context.Context, schoolID int64, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sequenceKey{schoolID, year}
	s.counters[key]++
	return s.counters[key], nil
}
