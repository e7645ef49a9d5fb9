package store

import (
	"context"
	"sync"

	"github.com/osa030/xiamibox/internal/domain/track"
)

// Memory keeps records in a map. Contents are lost on exit.
type Memory struct {
	mu      sync.RWMutex
	records map[string]track.Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]track.Record),
	}
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, id string, rec track.Record) error {
	if id == "" {
		return ErrEmptyID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = rec
	return nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, id string) (track.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[id], nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}
