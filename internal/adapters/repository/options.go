package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithMaxTables bounds the store; the oldest table is evicted when full.
// Zero or negative means unbounded.
func WithMaxTables(n int) Option {
	return func(s *MemoryStore) {
		s.maxTables = n
	}
}

// WithTTL expires tables d after they were saved. Zero disables expiry.
func WithTTL(d time.Duration) Option {
	return func(s *MemoryStore) {
		if d >= 0 {
			s.ttl = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix sets the key prefix for stored tables.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRedisTTL sets the expiry applied to every stored table. Zero keeps
// tables until deleted.
func WithRedisTTL(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d >= 0 {
			s.ttl = d
		}
	}
}
