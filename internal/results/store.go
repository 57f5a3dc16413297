// Package results stores computed estimate results keyed by a caller-supplied
// callback id, so an asynchronous CRM workflow can fetch the outcome later.
// It replaces the process-wide map the original integration grew around:
// entries always expire, and the store is injected rather than global.
package results

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Record is a stored estimate result. The payload is kept as raw JSON so this
// package stays independent of the estimate transport types.
type Record struct {
	CallbackID string          `json:"callbackId"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Store persists estimate results for later retrieval by callback id.
type Store interface {
	Put(ctx context.Context, record Record) error
	// Get returns the record and true, or false when the id is unknown or
	// the entry has expired.
	Get(ctx context.Context, callbackID string) (Record, bool, error)
}

// maxMemoryEntries bounds the in-memory store; the oldest entries are evicted
// first when the cap is hit.
const maxMemoryEntries = 10000

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

// MemoryStore is a bounded in-memory TTL store, used when redis is not
// configured. Single-process only; results are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a memory store with the given entry TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores the record, evicting expired entries and, if still over the cap,
// the oldest live ones.
func (s *MemoryStore) Put(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}

	for len(s.entries) >= maxMemoryEntries {
		var oldestID string
		var oldest time.Time
		for id, e := range s.entries {
			if oldestID == "" || e.record.CreatedAt.Before(oldest) {
				oldestID = id
				oldest = e.record.CreatedAt
			}
		}
		delete(s.entries, oldestID)
	}

	s.entries[record.CallbackID] = memoryEntry{
		record:    record,
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

// Get returns the stored record if present and not expired.
func (s *MemoryStore) Get(_ context.Context, callbackID string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[callbackID]
	if !ok {
		return Record{}, false, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, callbackID)
		return Record{}, false, nil
	}
	return e.record, true, nil
}
