package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"tianji-hq/oracle/pkg/ledger"
)

// MemoryStore keeps records in memory. It is meant for tests and for
// running without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*ledger.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*ledger.Record)}
}

// Store writes a copy of record.
func (s *MemoryStore) Store(_ context.Context, record *ledger.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc := *record
	s.records[record.ID] = &rc
	return nil
}

// Query returns matching records, newest first.
func (s *MemoryStore) Query(_ context.Context, q *ledger.Query) ([]*ledger.Record, error) {
	matched := s.matching(q)

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].StartedAt.Equal(matched[j].StartedAt) {
			return matched[i].StartedAt.After(matched[j].StartedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	limit := 100
	if q.Limit > 0 {
		limit = q.Limit
	}
	if q.Offset >= len(matched) {
		return []*ledger.Record{}, nil
	}
	matched = matched[q.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// Count returns the number of matching records.
func (s *MemoryStore) Count(_ context.Context, q *ledger.Query) (int64, error) {
	return int64(len(s.matching(q))), nil
}

// DeleteBefore removes records started before cutoff.
func (s *MemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.records {
		if r.StartedAt.Before(cutoff) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) matching(q *ledger.Query) []*ledger.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Record
	for _, r := range s.records {
		if matches(r, q) {
			rc := *r
			out = append(out, &rc)
		}
	}
	return out
}

func matches(r *ledger.Record, q *ledger.Query) bool {
	if q.StartTime != nil && r.StartedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && r.StartedAt.After(*q.EndTime) {
		return false
	}
	if q.UserID != "" && r.UserID != q.UserID {
		return false
	}
	if q.Provider != "" && r.Provider != q.Provider {
		return false
	}
	if q.Transport != "" && r.Transport != q.Transport {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	return true
}
