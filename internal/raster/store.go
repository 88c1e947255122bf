package raster

import (
	"sort"
	"sync"

	"github.com/rotisserie/eris"
)

// Store is the raster collaborator: it hands out grids by logical role name
// (land, water, natural, infrastructure, population, base, aggregation, mask)
// and accepts derived grids back. Implementations own file formats and
// projections; the core never sees either.
type Store interface {
	Grid(name string) (*Grid, error)
	PutGrid(name string, g *Grid) error
	Names() []string
}

// MemStore is the in-process Store used by the CLI after boundary loading,
// and by tests.
type MemStore struct {
	mu    sync.RWMutex
	grids map[string]*Grid
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{grids: make(map[string]*Grid)}
}

// Grid returns the grid registered under name.
func (s *MemStore) Grid(name string) (*Grid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grids[name]
	if !ok {
		return nil, eris.Errorf("raster: no grid named %q", name)
	}
	return g, nil
}

// PutGrid registers g under name, replacing any previous grid.
func (s *MemStore) PutGrid(name string, g *Grid) error {
	if g == nil {
		return eris.Errorf("raster: nil grid for %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids[name] = g
	return nil
}

// Names lists registered grid names in sorted order.
func (s *MemStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.grids))
	for name := range s.grids {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
