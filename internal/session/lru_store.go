package session

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type lruEntry struct {
	record    Record
	expiresAt time.Time
}

// LRUStore keeps guest sessions in a bounded in-memory cache.
type LRUStore struct {
	lru   *lru.Cache[string, *lruEntry]
	ttl   time.Duration
	clock clock
}

var _ Store = (*LRUStore)(nil)

func NewLRUStore(size int, ttl time.Duration) (*LRUStore, error) {
	cache, err := lru.New[string, *lruEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating LRU cache: %w", err)
	}
	return &LRUStore{lru: cache, ttl: ttl, clock: realClock{}}, nil
}

func (s *LRUStore) Load(_ context.Context, key string) (*Record, error) {
	entry, ok := s.lru.Get(key)
	if !ok {
		return nil, nil
	}
	if !s.clock.Now().Before(entry.expiresAt) {
		// Entry expired, remove it
		s.lru.Remove(key)
		return nil, nil
	}
	record := entry.record
	return &record, nil
}

func (s *LRUStore) Save(_ context.Context, key string, record Record) error {
	record.Key = key
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid session record: %w", err)
	}

	now := s.clock.Now()
	record.LastUpdated = now.Unix()
	record.TTL = now.Add(s.ttl).Unix()
	s.lru.Add(key, &lruEntry{record: record, expiresAt: now.Add(s.ttl)})
	return nil
}

func (s *LRUStore) Len() int {
	return s.lru.Len()
}
