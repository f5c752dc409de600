package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/aquemenida/caliope-ai-studio/internal/common"
)

// MemoryStore keeps documents in process. It backs tests and offline runs
// and counts writes so callers can assert that nothing was stored.
type MemoryStore struct {
	mu     sync.Mutex
	data   map[string]map[string]Document
	writes int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]map[string]Document{}}
}

func (m *MemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.data[collection][id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return deepCopy(doc)
}

func (m *MemoryStore) Set(_ context.Context, collection, id string, doc Document) error {
	norm, err := deepCopy(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[collection] == nil {
		m.data[collection] = map[string]Document{}
	}
	m.data[collection][id] = strip(norm)
	m.writes++
	return nil
}

func (m *MemoryStore) Update(_ context.Context, collection, id string, u Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.data[collection][id]
	if !ok {
		return common.ErrNotFound
	}
	if err := apply(doc, u); err != nil {
		return err
	}
	m.writes++
	return nil
}

func (m *MemoryStore) List(_ context.Context, collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data[collection]))
	for id := range m.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		doc, err := deepCopy(m.data[collection][id])
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (m *MemoryStore) Close(context.Context) error { return nil }

// Writes reports how many Set and Update calls succeeded.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func deepCopy(doc Document) (Document, error) {
	v, err := normalize(doc)
	if err != nil {
		return nil, err
	}
	out, _ := v.(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
