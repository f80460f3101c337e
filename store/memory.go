package store

import (
	"context"
	"sync"
)

// DefaultMemoryCapacity is the number of records a Memory keeps when no
// capacity is given.
const DefaultMemoryCapacity = 1024

// Memory is a Recorder that keeps the latest records in a ring.
type Memory struct {
	mu       sync.Mutex
	records  []Record
	next     int
	capacity int
}

// NewMemory creates a Memory holding up to capacity records.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &Memory{capacity: capacity}
}

// Record saves r, evicting the oldest record when full.
func (m *Memory) Record(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.records) < m.capacity {
		m.records = append(m.records, r)
		return nil
	}

	m.records[m.next] = r
	m.next = (m.next + 1) % m.capacity
	return nil
}

// Recent returns up to limit records, newest first.
func (m *Memory) Recent(_ context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.records)
	if limit > n {
		limit = n
	}
	if limit < 0 {
		limit = 0
	}

	out := make([]Record, 0, limit)
	for i := 0; i < limit; i++ {
		// The newest record sits just before next.
		idx := (m.next - 1 - i + 2*n) % n
		out = append(out, m.records[idx])
	}

	return out, nil
}

// Close does nothing.
func (m *Memory) Close() error {
	return nil
}
