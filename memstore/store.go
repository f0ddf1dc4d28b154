// Package memstore is an in-memory flowchart.Store for tests and for
// servers that do not need persistence.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/meikuraledutech/flowchart"
)

// Store implements flowchart.Store in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]flowchart.Document
	mu   sync.RWMutex
}

var _ flowchart.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		data: make(map[string]flowchart.Document),
	}
}

// Save stores a copy of doc.
func (s *Store) Save(ctx context.Context, id string, doc *flowchart.Document) error {
	c := clone(doc)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = c
	return nil
}

// Load returns a copy of the document saved under id.
func (s *Store) Load(ctx context.Context, id string) (*flowchart.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[id]
	if !ok {
		return nil, flowchart.ErrDocumentNotFound
	}
	c := clone(&doc)
	return &c, nil
}

// Delete removes the document. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored ids in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func clone(doc *flowchart.Document) flowchart.Document {
	c := flowchart.Document{
		Version:     doc.Version,
		Nodes:       slices.Clone(doc.Nodes),
		Connections: slices.Clone(doc.Connections),
		Groups:      slices.Clone(doc.Groups),
	}
	for i := range c.Groups {
		c.Groups[i].Members = slices.Clone(c.Groups[i].Members)
	}
	return c
}
