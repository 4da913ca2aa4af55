package staging

import (
	"context"
	"sync"
	"time"

	"go-retail-catalog/internal/importer"
)

// Memory is an in-process Store. It is not shared between server instances.
type Memory struct {
	mu      sync.Mutex
	batches map[string]*importer.Batch
	now     func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{batches: make(map[string]*importer.Batch), now: now}
}

func (m *Memory) Get(_ context.Context, id string) (*importer.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[id]
	if !ok || b.Expired(m.now()) {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) Put(_ context.Context, batch *importer.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *batch
	m.batches[batch.ID] = &cp
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.batches, id)
	return nil
}

func (m *Memory) SweepExpired(_ context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []string
	for id, b := range m.batches {
		if b.Expired(now) {
			expired = append(expired, id)
			delete(m.batches, id)
		}
	}
	return expired, nil
}
