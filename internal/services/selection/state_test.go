package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bbernstein/lacylights-control/internal/services/catalog"
)

func newTestState() *State {
	store := catalog.NewStore()
	store.Replace(testFixtures(), testGroups())
	return NewState(store, Resolver{})
}

func TestState_DefaultIsEmpty(t *testing.T) {
	s := newTestState()
	assert.Equal(t, ModeFixtures, s.Get().Mode)
	assert.Empty(t, s.Affected())
}

func TestState_SetAndAffected(t *testing.T) {
	s := newTestState()
	var seen []Selection
	s.SetChangeCallback(func(sel Selection) { seen = append(seen, sel) })

	s.Set(Selection{Mode: ModeFixtures, FixtureIDs: []string{"f3"}})
	assert.Equal(t, []string{"f3"}, ids(s.Affected()))

	s.SetMode(ModeChannels)
	assert.Empty(t, s.Affected(), "channels mode has no state yet")

	s.SetMode(ModeFixtures)
	assert.Equal(t, []string{"f3"}, ids(s.Affected()), "per-mode state retained")

	assert.Len(t, seen, 3)
}

func TestState_SetUnknownModeKeepsMode(t *testing.T) {
	s := newTestState()
	s.Set(Selection{Mode: ModeGroups})
	s.Set(Selection{Mode: "weird", GroupIDs: []string{"g-wash"}})
	assert.Equal(t, ModeGroups, s.Get().Mode)
	assert.Equal(t, []string{"f2"}, ids(s.Affected()))
}

func TestState_GetReturnsCopy(t *testing.T) {
	s := newTestState()
	s.Set(Selection{Mode: ModeFixtures, FixtureIDs: []string{"f1"}})
	sel := s.Get()
	sel.FixtureIDs[0] = "f2"
	assert.Equal(t, []string{"f1"}, s.Get().FixtureIDs)
}

func TestState_FixtureNavigation(t *testing.T) {
	s := newTestState()

	s.NextFixture()
	assert.Equal(t, []string{"f1"}, s.Get().FixtureIDs)
	s.NextFixture()
	assert.Equal(t, []string{"f2"}, s.Get().FixtureIDs)
	s.PrevFixture()
	s.PrevFixture()
	assert.Equal(t, []string{"f4"}, s.Get().FixtureIDs, "wraps backwards")
	s.NextFixture()
	assert.Equal(t, []string{"f1"}, s.Get().FixtureIDs, "wraps forwards")
}

func TestState_GroupNavigation(t *testing.T) {
	s := newTestState()
	s.PrevGroup()
	assert.Equal(t, ModeGroups, s.Get().Mode)
	assert.Equal(t, []string{"g-wash"}, s.Get().GroupIDs)
	s.NextGroup()
	assert.Equal(t, []string{"g-spots"}, s.Get().GroupIDs)
}

func TestState_NavigationEmptyCatalog(t *testing.T) {
	s := NewState(catalog.NewStore(), Resolver{})
	s.NextFixture()
	s.NextGroup()
	assert.Equal(t, ModeFixtures, s.Get().Mode)
	assert.Empty(t, s.Get().FixtureIDs)
}

func TestState_Capabilities(t *testing.T) {
	s := newTestState()
	assert.NotEmpty(t, s.Capabilities())
}
