package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/gradelens/internal/domain/table"
	"github.com/okian/gradelens/pkg/metrics"
)

const defaultMaxTables = 256

// node is one entry of the insertion-ordered list. head is the newest.
type node struct {
	id      string
	table   *table.Table
	savedAt time.Time
	prev    *node
	next    *node
}

// MemoryStore keeps tables in process memory. When bounded it evicts the
// oldest saved table first; with a TTL, expired tables are dropped lazily.
type MemoryStore struct {
	mu        sync.Mutex
	byID      map[string]*node
	head      *node // newest
	tail      *node // oldest
	maxTables int
	ttl       time.Duration
	now       func() time.Time
	closed    bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:      make(map[string]*node),
		maxTables: defaultMaxTables,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores t under id, replacing and refreshing any previous entry.
func (s *MemoryStore) Save(ctx context.Context, id string, t *table.Table) error {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("save", sinceMs(start)) }()

	if id == "" {
		return ErrInvalidID
	}
	if t == nil {
		return fmt.Errorf("%w: %s", ErrNilTable, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if old, ok := s.byID[id]; ok {
		s.unlink(old)
		delete(s.byID, id)
	}
	s.expireLocked()
	if s.maxTables > 0 {
		for len(s.byID) >= s.maxTables {
			s.evictOldest("capacity")
		}
	}

	n := &node{id: id, table: t, savedAt: s.now()}
	s.pushFront(n)
	s.byID[id] = n
	metrics.UpdateStoreTables(len(s.byID))
	return nil
}

// Get returns the table stored under id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*table.Table, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLatency("get", sinceMs(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	n, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.expired(n) {
		s.remove(n, "expired")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n.table, nil
}

// Delete drops the table stored under id.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	n, ok := s.byID[id]
	if !ok || s.expired(n) {
		if ok {
			s.remove(n, "expired")
		}
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.unlink(n)
	delete(s.byID, id)
	metrics.UpdateStoreTables(len(s.byID))
	return nil
}

// Count returns the number of live tables.
func (s *MemoryStore) Count(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return len(s.byID)
}

// Close drops every table.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.byID = make(map[string]*node)
	s.head, s.tail = nil, nil
	metrics.UpdateStoreTables(0)
	return nil
}

func (s *MemoryStore) expired(n *node) bool {
	return s.ttl > 0 && s.now().Sub(n.savedAt) >= s.ttl
}

// expireLocked drops expired tables from the old end. Entries are ordered
// by save time, so the walk stops at the first live one.
func (s *MemoryStore) expireLocked() {
	for s.tail != nil && s.expired(s.tail) {
		s.remove(s.tail, "expired")
	}
}

func (s *MemoryStore) evictOldest(reason string) {
	if s.tail == nil {
		return
	}
	s.remove(s.tail, reason)
}

func (s *MemoryStore) remove(n *node, reason string) {
	s.unlink(n)
	delete(s.byID, n.id)
	metrics.RecordStoreEviction(reason)
	metrics.UpdateStoreTables(len(s.byID))
}

func (s *MemoryStore) pushFront(n *node) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

func (s *MemoryStore) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		s.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
}
