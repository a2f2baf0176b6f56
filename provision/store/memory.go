// Package store provides Store implementations.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/austral/provision-engine/provision"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]json.RawMessage)}
}

func (m *Memory) Get(_ context.Context, path string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.docs[path]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

func (m *Memory) List(_ context.Context, prefix string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]json.RawMessage)
	withSlash := prefix + "/"
	for path, raw := range m.docs {
		if path == prefix || strings.HasPrefix(path, withSlash) {
			out[path] = raw
		}
	}
	return out, nil
}

// Apply marshals every value before touching the map, so a marshal failure
// leaves the store unchanged.
func (m *Memory) Apply(_ context.Context, batch provision.Batch) error {
	encoded := make(map[string]json.RawMessage, len(batch))
	deletes := make([]string, 0)
	for path, v := range batch {
		if v == nil {
			deletes = append(deletes, path)
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", path, err)
		}
		encoded[path] = raw
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, path := range deletes {
		delete(m.docs, path)
	}
	for path, raw := range encoded {
		m.docs[path] = raw
	}
	return nil
}

func (m *Memory) NewKey() string { return uuid.NewString() }

// Len reports the number of stored documents, for test assertions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
