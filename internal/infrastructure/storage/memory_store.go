package storage

import (
	"context"
	"sync"
	"time"

	"AptScanner/internal/domain"
	"AptScanner/internal/ports"
)

// MemoryStore is a process-local seen-set for dry runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]domain.SeenRecord
}

var (
	_ ports.SeenStore     = (*MemoryStore)(nil)
	_ ports.ExpiringStore = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]domain.SeenRecord{}}
}

// SeenIDs returns ids that expire after now.
func (m *MemoryStore) SeenIDs(_ context.Context, now time.Time) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make(map[string]struct{}, len(m.records))
	for id, rec := range m.records {
		if rec.ExpiresAt.After(now) {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// Put stores the record unless the id is already present.
func (m *MemoryStore) Put(_ context.Context, record domain.SeenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[record.PostID]; !ok {
		m.records[record.PostID] = record
	}
	return nil
}

// PurgeExpired drops records whose expiry is at or before now.
func (m *MemoryStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, rec := range m.records {
		if !rec.ExpiresAt.After(now) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

// Record returns a stored record by id.
func (m *MemoryStore) Record(id string) (domain.SeenRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	return rec, ok
}
