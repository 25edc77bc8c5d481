package selection

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/bbernstein/lacylights-control/internal/services/catalog"
)

// Catalog provides catalog snapshots.
type Catalog interface {
	Snapshot() ([]catalog.Fixture, []catalog.Group)
}

// State owns the current selection and resolves it against the live catalog.
type State struct {
	mu sync.RWMutex

	catalog  Catalog
	resolver Resolver
	current  Selection

	// Navigation cursors for next/previous actions
	fixtureCursor int
	groupCursor   int

	onChange func(Selection)
}

// NewState creates a State with an empty fixtures-mode selection.
func NewState(c Catalog, resolver Resolver) *State {
	return &State{
		catalog:       c,
		resolver:      resolver,
		current:       Selection{Mode: ModeFixtures},
		fixtureCursor: -1,
		groupCursor:   -1,
	}
}

// SetChangeCallback sets the callback invoked after the selection changes.
func (s *State) SetChangeCallback(fn func(Selection)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Get returns a copy of the current selection.
func (s *State) Get() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.current)
}

// Set replaces the selection. An unknown mode keeps the previous mode.
func (s *State) Set(sel Selection) {
	s.mu.Lock()
	if !sel.Mode.Valid() {
		log.Warnf("selection: ignoring unknown mode %q", sel.Mode)
		sel.Mode = s.current.Mode
	}
	s.current = clone(sel)
	s.mu.Unlock()
	s.emit()
}

// SetMode switches the active mode, keeping the per-mode state.
func (s *State) SetMode(m Mode) {
	if !m.Valid() {
		return
	}
	s.mu.Lock()
	s.current.Mode = m
	s.mu.Unlock()
	s.emit()
}

// Affected resolves the current selection against the current catalog.
func (s *State) Affected() []AffectedFixture {
	fixtures, groups := s.catalog.Snapshot()
	return s.resolver.Resolve(s.Get(), fixtures, groups)
}

// Capabilities derives the capability list from the current catalog.
func (s *State) Capabilities() []Capability {
	fixtures, _ := s.catalog.Snapshot()
	return s.resolver.Capabilities(fixtures)
}

// NextFixture selects the single next fixture in catalog order.
func (s *State) NextFixture() { s.stepFixture(1) }

// PrevFixture selects the single previous fixture in catalog order.
func (s *State) PrevFixture() { s.stepFixture(-1) }

// NextGroup selects the single next group.
func (s *State) NextGroup() { s.stepGroup(1) }

// PrevGroup selects the single previous group.
func (s *State) PrevGroup() { s.stepGroup(-1) }

func (s *State) stepFixture(delta int) {
	fixtures, _ := s.catalog.Snapshot()
	if len(fixtures) == 0 {
		return
	}
	s.mu.Lock()
	s.fixtureCursor = step(s.fixtureCursor, delta, len(fixtures))
	s.current.Mode = ModeFixtures
	s.current.FixtureIDs = []string{fixtures[s.fixtureCursor].ID}
	s.mu.Unlock()
	s.emit()
}

func (s *State) stepGroup(delta int) {
	_, groups := s.catalog.Snapshot()
	if len(groups) == 0 {
		return
	}
	s.mu.Lock()
	s.groupCursor = step(s.groupCursor, delta, len(groups))
	s.current.Mode = ModeGroups
	s.current.GroupIDs = []string{groups[s.groupCursor].ID}
	s.mu.Unlock()
	s.emit()
}

// step moves a wrapping cursor. A fresh cursor (-1) lands on the first or last entry.
func step(cursor, delta, n int) int {
	if cursor < 0 || cursor >= n {
		if delta > 0 {
			return 0
		}
		return n - 1
	}
	return ((cursor+delta)%n + n) % n
}

func (s *State) emit() {
	s.mu.RLock()
	fn := s.onChange
	sel := clone(s.current)
	s.mu.RUnlock()
	if fn != nil {
		fn(sel)
	}
}

func clone(sel Selection) Selection {
	return Selection{
		Mode:         sel.Mode,
		Channels:     append([]int(nil), sel.Channels...),
		FixtureIDs:   append([]string(nil), sel.FixtureIDs...),
		GroupIDs:     append([]string(nil), sel.GroupIDs...),
		Capabilities: append([]string(nil), sel.Capabilities...),
	}
}
