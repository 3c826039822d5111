package repository

import (
	"context"
	"sync"
	"time"

	"github.com/docgate/docgate/internal/document"
	"github.com/google/uuid"
)

// MemoryRepo keeps collections in process memory. It backs unit tests, the
// rules test harness and dev mode when no MongoDB is configured.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]map[string]*document.Document // collection -> id -> doc
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]map[string]*document.Document)}
}

func (m *MemoryRepo) Get(_ context.Context, collection, id string) (*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.store[collection][id]; ok {
		return d.Clone(), nil
	}
	return nil, document.ErrNotFound
}

func (m *MemoryRepo) List(_ context.Context, collection string, q *document.Query) ([]*document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*document.Document, 0, len(m.store[collection]))
	for _, d := range m.store[collection] {
		if !q.Matches(d) {
			continue
		}
		out = append(out, d.Clone())
		if q != nil && q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryRepo) Set(_ context.Context, d *document.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	stored := d.Clone()
	if prev, ok := m.store[d.Collection][d.ID]; ok {
		stored.CreatedAt = prev.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	if m.store[d.Collection] == nil {
		m.store[d.Collection] = make(map[string]*document.Document)
	}
	m.store[d.Collection][stored.ID] = stored
	d.CreatedAt = stored.CreatedAt
	d.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *MemoryRepo) Update(_ context.Context, collection, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[collection][id]
	if !ok {
		return document.ErrNotFound
	}
	if d.Fields == nil {
		d.Fields = make(map[string]interface{}, len(fields))
	}
	for k, v := range fields {
		d.Fields[k] = v
	}
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryRepo) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[collection][id]; !ok {
		return document.ErrNotFound
	}
	delete(m.store[collection], id)
	return nil
}

func (m *MemoryRepo) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]map[string]*document.Document)
	return nil
}
