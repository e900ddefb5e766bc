package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-process DocumentStore used by tests and local
// development.  It implements the same merge and version semantics as the
// MySQL backend so the allocation engine can be exercised without a
// database.
type Memory struct {
	mu   sync.Mutex
	docs map[string]*memoryDoc
}

type memoryDoc struct {
	data    json.RawMessage
	version uint64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]*memoryDoc)}
}

// Len reports how many documents the store holds.  Handy in tests.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// Get returns a copy of the stored document so callers can never mutate
// the store's own bytes.
func (m *Memory) Get(ctx context.Context, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	data := make(json.RawMessage, len(d.data))
	copy(data, d.data)
	return Document{ID: id, Data: data, Version: d.version}, nil
}

// Put stores data under id at version 1.
func (m *Memory) Put(ctx context.Context, id string, data json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = &memoryDoc{data: append(json.RawMessage(nil), data...), version: 1}
	return nil
}

// BatchPut validates every document before touching the map, so a bad
// entry leaves the store unchanged (all-or-nothing, matching the MySQL
// transaction).
func (m *Memory) BatchPut(ctx context.Context, docs map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, data := range docs {
		if !json.Valid(data) {
			return fmt.Errorf("batch put %s: invalid json", id)
		}
	}
	for id, data := range docs {
		m.docs[id] = &memoryDoc{data: append(json.RawMessage(nil), data...), version: 1}
	}
	return nil
}

// Update overlays the given top-level fields onto the stored document and
// bumps the version, provided the caller's version still matches.
func (m *Memory) Update(ctx context.Context, id string, fields map[string]any, version uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return ErrNotFound
	}
	if d.version != version {
		return ErrVersionConflict
	}
	var doc map[string]any
	if err := json.Unmarshal(d.data, &doc); err != nil {
		return fmt.Errorf("update %s: decode stored document: %w", id, err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("update %s: encode merged document: %w", id, err)
	}
	d.data = merged
	d.version++
	return nil
}
