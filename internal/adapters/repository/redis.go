package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/gradelens/internal/domain/table"
	"github.com/okian/gradelens/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "gradelens:table:"
	defaultRedisTTL  = time.Hour
	scanBatch        = 256
)

// RedisStore keeps tables in Redis as CSV text, so they survive restarts and
// can be shared by several service instances.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	closed atomic.Bool
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. The store owns the client and
// closes it on Close.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    defaultRedisTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return s.client.Ping(ctx).Err()
}

// Save stores t under id with the configured TTL.
func (s *RedisStore) Save(ctx context.Context, id string, t *table.Table) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("save", sinceMs(start)) }()

	if s.closed.Load() {
		return ErrClosed
	}
	if id == "" {
		return ErrInvalidID
	}
	if t == nil {
		return fmt.Errorf("%w: %s", ErrNilTable, id)
	}
	data, err := t.EncodeCSV()
	if err != nil {
		return fmt.Errorf("encode table %s: %w", id, err)
	}
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		metrics.RecordErrorByComponent("repository", "redis_set")
		return fmt.Errorf("redis set %s: %w", id, err)
	}
	return nil
}

// Get loads and parses the table stored under id.
func (s *RedisStore) Get(ctx context.Context, id string) (*table.Table, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("get", sinceMs(start)) }()

	if s.closed.Load() {
		return nil, ErrClosed
	}
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		metrics.RecordErrorByComponent("repository", "redis_get")
		return nil, fmt.Errorf("redis get %s: %w", id, err)
	}
	t, err := table.ParseCSV(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode table %s: %w", id, err)
	}
	return t, nil
}

// Delete removes the table stored under id.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		metrics.RecordErrorByComponent("repository", "redis_del")
		return fmt.Errorf("redis del %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Count scans the key space under the prefix. It returns 0 when Redis is
// unreachable.
func (s *RedisStore) Count(ctx context.Context) int {
	if s.closed.Load() {
		return 0
	}
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			metrics.RecordErrorByComponent("repository", "redis_scan")
			return total
		}
		total += len(keys)
		if next == 0 {
			return total
		}
		cursor = next
	}
}

// Close closes the client.
func (s *RedisStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return s.client.Close()
}
