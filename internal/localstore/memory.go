package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is a process-local Slots. It is used when no redis is configured
// and in tests.
type Memory struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemory creates an empty in-memory slot store.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, slot string, dst any) error {
	m.mu.RLock()
	data, ok := m.slots[slot]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode slot %s: %w", slot, err)
	}
	return nil
}

func (m *Memory) Set(_ context.Context, slot string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode slot %s: %w", slot, err)
	}
	m.mu.Lock()
	m.slots[slot] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, slot string) error {
	m.mu.Lock()
	delete(m.slots, slot)
	m.mu.Unlock()
	return nil
}
