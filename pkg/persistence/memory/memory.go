// Package memory provides an in-memory completion record store for
// development and tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// Store keeps completion records in process memory. Safe for concurrent
// use; contents are lost on restart.
type Store struct {
	mu      sync.RWMutex
	nextID  int
	records map[int]map[string]any
}

// NewStore creates an empty in-memory record store.
func NewStore() *Store {
	return &Store{
		nextID:  1,
		records: make(map[int]map[string]any),
	}
}

// ListRecords returns copies of every record of one (product, phase) pair.
func (s *Store) ListRecords(ctx context.Context, productID, phaseID int) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []map[string]any

	for _, id := range s.sortedIDs() {
		record := s.records[id]
		if intField(record, "productoId") == productID && intField(record, "faseId") == phaseID {
			result = append(result, maps.Clone(record))
		}
	}

	return result, nil
}

// CreateRecord stores a copy of the record and returns it with the
// assigned id.
func (s *Store) CreateRecord(ctx context.Context, record map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := maps.Clone(record)
	stored["id"] = s.nextID
	s.records[s.nextID] = stored
	s.nextID++

	return maps.Clone(stored), nil
}

// UpdateRecord replaces the stored record. Unknown ids are created, which
// keeps seeding test fixtures simple.
func (s *Store) UpdateRecord(ctx context.Context, id int, record map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := maps.Clone(record)
	stored["id"] = id
	s.records[id] = stored

	if id >= s.nextID {
		s.nextID = id + 1
	}

	return nil
}

// Close releases the store. Present to mirror the other backends.
func (s *Store) Close(ctx context.Context) error {
	return nil
}

func (s *Store) sortedIDs() []int {
	return slices.Sorted(maps.Keys(s.records))
}

func intField(record map[string]any, key string) int {
	switch v := record[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
