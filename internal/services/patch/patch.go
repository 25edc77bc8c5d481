// Package patch imports the fixture patch from a YAML file and keeps it in sync.
package patch

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/bbernstein/lacylights-control/internal/database/models"
)

// File is the on-disk patch layout.
//
//	fixtures:
//	  - name: Spot 1
//	    startAddress: 1
//	    channels:
//	      - type: pan
//	      - type: tilt
//	        dmxAddress: 40
//	groups:
//	  - name: spots
//	    fixtures: [0, "Spot 1"]
type File struct {
	Fixtures []FixtureEntry `yaml:"fixtures"`
	Groups   []GroupEntry   `yaml:"groups"`
}

// FixtureEntry is one fixture. Addresses are kept raw so a bad value only spoils its fixture.
type FixtureEntry struct {
	ID           string      `yaml:"id"`
	Name         string      `yaml:"name"`
	StartAddress interface{} `yaml:"startAddress"`
	Channels     interface{} `yaml:"channels"`
}

// GroupEntry lists member fixtures by catalog index or by name.
type GroupEntry struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name"`
	Fixtures []interface{} `yaml:"fixtures"`
}

// Patch is a parsed file ready for import.
type Patch struct {
	Fixtures []models.Fixture
	Groups   []models.FixtureGroup
}

// Parse decodes a patch file. Malformed fixtures are kept with no channels.
func Parse(data []byte) (*Patch, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse patch: %w", err)
	}

	p := &Patch{}
	byName := make(map[string]int)
	for i, entry := range f.Fixtures {
		p.Fixtures = append(p.Fixtures, buildFixture(i, entry))
		if entry.Name != "" {
			if _, seen := byName[entry.Name]; !seen {
				byName[entry.Name] = i
			}
		}
	}

	for _, entry := range f.Groups {
		indices := []int{}
		for _, member := range entry.Fixtures {
			idx, ok := memberIndex(member, byName, len(p.Fixtures))
			if !ok {
				log.Warnf("⚠️ Group %s: unknown fixture %v", entry.Name, member)
				continue
			}
			indices = append(indices, idx)
		}
		encoded, _ := json.Marshal(indices)
		p.Groups = append(p.Groups, models.FixtureGroup{
			ID:             entry.ID,
			Name:           entry.Name,
			FixtureIndices: string(encoded),
		})
	}
	return p, nil
}

// Load reads and parses a patch file.
func Load(path string) (*Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patch file: %w", err)
	}
	return Parse(data)
}

func buildFixture(i int, entry FixtureEntry) models.Fixture {
	name := entry.Name
	if name == "" {
		name = fmt.Sprintf("Fixture %d", i+1)
	}
	f := models.Fixture{ID: entry.ID, Name: name}

	start, ok := address(entry.StartAddress)
	if !ok {
		log.Warnf("⚠️ Fixture %s has a malformed start address %v; patched without channels", name, entry.StartAddress)
		return f
	}
	f.StartAddress = start

	raw, ok := entry.Channels.([]interface{})
	if !ok {
		if entry.Channels != nil {
			log.Warnf("⚠️ Fixture %s has malformed channels; patched without channels", name)
		}
		return f
	}

	channels := make([]models.FixtureChannel, 0, len(raw))
	for _, item := range raw {
		ch, ok := buildChannel(item)
		if !ok {
			log.Warnf("⚠️ Fixture %s has a malformed channel %v; patched without channels", name, item)
			return f
		}
		channels = append(channels, ch)
	}
	f.Channels = channels
	return f
}

// buildChannel accepts either a bare type string or a {type, name, dmxAddress} map.
func buildChannel(item interface{}) (models.FixtureChannel, bool) {
	switch v := item.(type) {
	case string:
		return models.FixtureChannel{Type: v, Name: v}, true
	case map[string]interface{}:
		t, _ := v["type"].(string)
		ch := models.FixtureChannel{Type: t, Name: t}
		if n, ok := v["name"].(string); ok && n != "" {
			ch.Name = n
		}
		if raw, present := v["dmxAddress"]; present && raw != nil {
			addr, ok := address(raw)
			if !ok {
				return ch, false
			}
			ch.DMXAddress = &addr
		}
		return ch, true
	}
	return models.FixtureChannel{}, false
}

// address converts a YAML scalar to a 1-based address. Missing means 1.
func address(v interface{}) (int, bool) {
	switch a := v.(type) {
	case nil:
		return 1, true
	case int:
		return a, true
	case float64:
		if a != math.Trunc(a) {
			return 0, false
		}
		return int(a), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func memberIndex(member interface{}, byName map[string]int, count int) (int, bool) {
	switch m := member.(type) {
	case int:
		return m, m >= 0 && m < count
	case string:
		idx, ok := byName[m]
		return idx, ok
	}
	return 0, false
}

// Store persists an imported patch.
type Store interface {
	ReplaceAll(ctx context.Context, fixtures []models.Fixture, groups []models.FixtureGroup) error
}

// Importer writes patch files into the store and notifies on success.
type Importer struct {
	store      Store
	onImported func()
}

// NewImporter creates an Importer. onImported may be nil.
func NewImporter(store Store, onImported func()) *Importer {
	return &Importer{store: store, onImported: onImported}
}

// Import loads path and replaces the stored patch with it.
func (im *Importer) Import(ctx context.Context, path string) error {
	p, err := Load(path)
	if err != nil {
		return err
	}
	if err := im.store.ReplaceAll(ctx, p.Fixtures, p.Groups); err != nil {
		return fmt.Errorf("failed to store patch: %w", err)
	}
	log.Infof("📋 Imported patch %s: %d fixtures, %d groups", path, len(p.Fixtures), len(p.Groups))
	if im.onImported != nil {
		im.onImported()
	}
	return nil
}
