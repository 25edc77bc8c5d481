// Package catalog holds the in-memory read model of patched fixtures and groups.
package catalog

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// UniverseSize is the number of addressable channels, 0-based addresses 0..511.
const UniverseSize = 512

// Channel is one DMX channel of a fixture.
type Channel struct {
	Type       string `json:"type" yaml:"type"`
	DMXAddress *int   `json:"dmxAddress,omitempty" yaml:"dmxAddress,omitempty"` // 1-based, optional
}

// Fixture is a patched device occupying DMX channels from StartAddress.
type Fixture struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	StartAddress int       `json:"startAddress"` // 1-based
	Channels     []Channel `json:"channels"`
}

// Address returns the 0-based DMX address of channel i and whether it is addressable.
func (f Fixture) Address(i int) (int, bool) {
	if i < 0 || i >= len(f.Channels) {
		return 0, false
	}
	var addr int
	if a := f.Channels[i].DMXAddress; a != nil {
		addr = *a - 1
	} else {
		addr = f.StartAddress + i - 1
	}
	if addr < 0 || addr >= UniverseSize {
		return 0, false
	}
	return addr, true
}

// Group is a named set of fixtures referenced by catalog index.
type Group struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	FixtureIndices []int  `json:"fixtureIndices"`
}

// Source loads the catalog contents.
type Source interface {
	LoadCatalog(ctx context.Context) ([]Fixture, []Group, error)
}

// Store serves catalog snapshots. Snapshots are replaced whole, never mutated in place.
type Store struct {
	mu       sync.RWMutex
	fixtures []Fixture
	groups   []Group
	onChange []func()
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Snapshot returns the current fixtures and groups in catalog order.
func (s *Store) Snapshot() ([]Fixture, []Group) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fixtures, s.groups
}

// Fixtures returns the current fixtures in catalog order.
func (s *Store) Fixtures() []Fixture {
	f, _ := s.Snapshot()
	return f
}

// Groups returns the current groups.
func (s *Store) Groups() []Group {
	_, g := s.Snapshot()
	return g
}

// Replace swaps in a new catalog.
func (s *Store) Replace(fixtures []Fixture, groups []Group) {
	f := make([]Fixture, len(fixtures))
	copy(f, fixtures)
	g := make([]Group, len(groups))
	copy(g, groups)

	s.mu.Lock()
	s.fixtures = f
	s.groups = g
	listeners := append([]func(){}, s.onChange...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// OnChange registers a callback invoked after every Replace.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Reload replaces the catalog with the contents of src.
func (s *Store) Reload(ctx context.Context, src Source) error {
	fixtures, groups, err := src.LoadCatalog(ctx)
	if err != nil {
		return err
	}
	s.Replace(fixtures, groups)
	log.Infof("💡 Catalog loaded: %d fixtures, %d groups", len(fixtures), len(groups))
	return nil
}
