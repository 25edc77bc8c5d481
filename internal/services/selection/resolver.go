// Package selection resolves the active fixture selection into per-fixture control address maps.
package selection

import (
	"sort"

	"github.com/bbernstein/lacylights-control/internal/services/catalog"
	"github.com/bbernstein/lacylights-control/internal/services/channeltype"
)

// Mode identifies how fixtures are selected.
type Mode string

const (
	ModeChannels     Mode = "channels"
	ModeFixtures     Mode = "fixtures"
	ModeGroups       Mode = "groups"
	ModeCapabilities Mode = "capabilities"
)

// DefaultMinCapabilityFixtures is how many fixtures must share a control before it counts as a capability.
const DefaultMinCapabilityFixtures = 2

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeChannels, ModeFixtures, ModeGroups, ModeCapabilities:
		return true
	}
	return false
}

// Selection is the selection state. Only the field for Mode is consulted.
type Selection struct {
	Mode         Mode     `json:"mode"`
	Channels     []int    `json:"channels"` // 0-based DMX addresses
	FixtureIDs   []string `json:"fixtureIds"`
	GroupIDs     []string `json:"groupIds"`
	Capabilities []string `json:"capabilities"`
}

// AffectedFixture is a fixture touched by the selection with its control→address map.
type AffectedFixture struct {
	Fixture  catalog.Fixture             `json:"fixture"`
	Channels map[channeltype.Control]int `json:"channels"`
}

// Capability is a control carried by several fixtures.
type Capability struct {
	Type       channeltype.Control `json:"type"`
	FixtureIDs []string            `json:"fixtureIds"`
}

// Resolver turns a selection into affected fixtures.
type Resolver struct {
	// MinCapabilityFixtures is the capability threshold; values below 1 mean the default.
	MinCapabilityFixtures int
}

// Resolve returns the affected fixtures in catalog order. An empty selection yields nothing.
func (r Resolver) Resolve(sel Selection, fixtures []catalog.Fixture, groups []catalog.Group) []AffectedFixture {
	switch sel.Mode {
	case ModeChannels:
		return resolveChannels(sel.Channels, fixtures)
	case ModeFixtures:
		ids := toSet(sel.FixtureIDs)
		return collect(fixtures, func(i int, f catalog.Fixture) bool { return ids[f.ID] })
	case ModeGroups:
		indices := groupIndices(sel.GroupIDs, groups)
		return collect(fixtures, func(i int, _ catalog.Fixture) bool { return indices[i] })
	case ModeCapabilities:
		return r.resolveCapabilities(sel.Capabilities, fixtures)
	}
	return nil
}

// Capabilities derives the capability list from the catalog, sorted by control.
func (r Resolver) Capabilities(fixtures []catalog.Fixture) []Capability {
	owners := make(map[channeltype.Control][]string)
	for _, f := range fixtures {
		for c := range ControlMap(f) {
			owners[c] = append(owners[c], f.ID)
		}
	}

	var caps []Capability
	for c, ids := range owners {
		if len(ids) >= r.minFixtures() {
			caps = append(caps, Capability{Type: c, FixtureIDs: ids})
		}
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i].Type < caps[j].Type })
	return caps
}

func (r Resolver) minFixtures() int {
	if r.MinCapabilityFixtures < 1 {
		return DefaultMinCapabilityFixtures
	}
	return r.MinCapabilityFixtures
}

func (r Resolver) resolveCapabilities(selected []string, fixtures []catalog.Fixture) []AffectedFixture {
	if len(selected) == 0 {
		return nil
	}
	wanted := make(map[channeltype.Control]bool)
	for _, raw := range selected {
		if c, ok := channeltype.Normalize(raw); ok {
			wanted[c] = true
		}
	}

	valid := make(map[channeltype.Control]bool)
	for _, c := range r.Capabilities(fixtures) {
		if wanted[c.Type] {
			valid[c.Type] = true
		}
	}
	if len(valid) == 0 {
		return nil
	}

	return collect(fixtures, func(_ int, f catalog.Fixture) bool {
		for c := range ControlMap(f) {
			if valid[c] {
				return true
			}
		}
		return false
	})
}

func resolveChannels(selected []int, fixtures []catalog.Fixture) []AffectedFixture {
	if len(selected) == 0 {
		return nil
	}
	addrs := make(map[int]bool, len(selected))
	for _, a := range selected {
		addrs[a] = true
	}

	var out []AffectedFixture
	for _, f := range fixtures {
		channels := controlMap(f, func(addr int) bool { return addrs[addr] })
		if hasSelectedAddress(f, addrs) {
			out = append(out, AffectedFixture{Fixture: f, Channels: channels})
		}
	}
	return out
}

func hasSelectedAddress(f catalog.Fixture, addrs map[int]bool) bool {
	for i := range f.Channels {
		if addr, ok := f.Address(i); ok && addrs[addr] {
			return true
		}
	}
	return false
}

func groupIndices(ids []string, groups []catalog.Group) map[int]bool {
	indices := make(map[int]bool)
	if len(ids) == 0 {
		return indices
	}
	wanted := toSet(ids)
	for _, g := range groups {
		if !wanted[g.ID] {
			continue
		}
		for _, i := range g.FixtureIndices {
			indices[i] = true
		}
	}
	return indices
}

func collect(fixtures []catalog.Fixture, keep func(i int, f catalog.Fixture) bool) []AffectedFixture {
	var out []AffectedFixture
	for i, f := range fixtures {
		if keep(i, f) {
			out = append(out, AffectedFixture{Fixture: f, Channels: ControlMap(f)})
		}
	}
	return out
}

// ControlMap maps every normalizable, addressable channel of f to its 0-based address.
func ControlMap(f catalog.Fixture) map[channeltype.Control]int {
	return controlMap(f, func(int) bool { return true })
}

// controlMap builds the control map for channels whose address passes include.
// An exact-name channel beats an alias match for the same control; otherwise the first channel wins.
func controlMap(f catalog.Fixture, include func(addr int) bool) map[channeltype.Control]int {
	out := make(map[channeltype.Control]int)
	exact := make(map[channeltype.Control]bool)
	for i, ch := range f.Channels {
		addr, ok := f.Address(i)
		if !ok || !include(addr) {
			continue
		}
		c, ok := channeltype.Normalize(ch.Type)
		if !ok {
			continue
		}
		isExact := channeltype.Exact(ch.Type)
		if _, seen := out[c]; seen && (exact[c] || !isExact) {
			continue
		}
		out[c] = addr
		exact[c] = isExact
	}
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
