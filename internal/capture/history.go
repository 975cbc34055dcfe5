package capture

import "sync"

// HistoryStore is a fixed-capacity, most-recent-first record set.
// It is the only mutable state shared by every request task; a single
// mutex serializes access, which is fine at 100 entries.
type HistoryStore struct {
	mu       sync.RWMutex
	capacity int
	records  []ExchangeRecord
}

// NewHistoryStore creates an empty store holding at most capacity records.
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = 1
	}
	return &HistoryStore{
		capacity: capacity,
		records:  make([]ExchangeRecord, 0, capacity),
	}
}

// Insert adds a record at the front, evicting the oldest when full.
func (h *HistoryStore) Insert(rec ExchangeRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) == h.capacity {
		h.records = h.records[:h.capacity-1]
	}
	h.records = append([]ExchangeRecord{rec}, h.records...)
}

// List returns all held records, most recent first.
func (h *HistoryStore) List() []ExchangeRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ExchangeRecord, len(h.records))
	copy(out, h.records)
	return out
}

// GetByID returns the record with the given id. The second return is
// false when no such record is held; a miss is an expected outcome,
// not an error.
func (h *HistoryStore) GetByID(id string) (ExchangeRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, rec := range h.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return ExchangeRecord{}, false
}

// Len returns the number of records currently held.
func (h *HistoryStore) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Capacity returns the fixed capacity.
func (h *HistoryStore) Capacity() int { return h.capacity }
