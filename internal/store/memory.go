package store

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memKey struct {
	bucket string
	key    LocationKey
}

// MemoryStore keeps records in process. Used by tests and the memory driver.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[memKey][]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[memKey][]Record)}
}

func (s *MemoryStore) Read(_ context.Context, bucketStart time.Time, key LocationKey) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.records[memKey{bucket: bucketKey(bucketStart), key: key}]
	out := make([]Record, len(recs))
	for i, r := range recs {
		r.Instants = slices.Clone(r.Instants)
		out[i] = r
	}
	return out, nil
}

func (s *MemoryStore) Write(_ context.Context, rec Record) error {
	rec.Instants = slices.Clone(rec.Instants)

	s.mu.Lock()
	defer s.mu.Unlock()

	k := memKey{bucket: bucketKey(rec.BucketStart), key: rec.Key}
	s.records[k] = append(s.records[k], rec)
	return nil
}

// Len returns the total number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, recs := range s.records {
		n += len(recs)
	}
	return n
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
