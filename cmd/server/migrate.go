package main

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/lucsky/cuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/bbernstein/lacylights-control/internal/database/models"
)

// legacyMappingsKey is the settings row older installs kept their MIDI mappings in.
const legacyMappingsKey = "midiMappings"

// legacyMapping is one entry of the legacy mappings object, keyed by control id.
type legacyMapping struct {
	Channel    int    `json:"channel"`
	Note       *int   `json:"note,omitempty"`
	Controller *int   `json:"controller,omitempty"`
	Min        *int   `json:"min,omitempty"`
	Max        *int   `json:"max,omitempty"`
	OSCAddress string `json:"oscAddress,omitempty"`
}

// migrateLegacyMappings moves mappings stored as a JSON settings value into the
// bindings table and removes the setting. Control ids that already have a binding
// are left alone. A value that is not valid JSON is kept for inspection.
func migrateLegacyMappings(db *gorm.DB) error {
	migrator := db.Migrator()
	if !migrator.HasTable("settings") || !migrator.HasTable("bindings") {
		return nil
	}

	var setting models.Setting
	result := db.Where("key = ?", legacyMappingsKey).Limit(1).Find(&setting)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return nil
	}

	var legacy map[string]legacyMapping
	if err := json.Unmarshal([]byte(setting.Value), &legacy); err != nil {
		log.Warnf("⚠️ Skipping legacy mappings, invalid JSON: %v", err)
		return nil
	}

	ids := make([]string, 0, len(legacy))
	for id := range legacy {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	imported := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			controlID := strings.TrimSpace(id)
			if controlID == "" {
				continue
			}
			var existing int64
			if err := tx.Model(&models.Binding{}).Where("control_id = ?", controlID).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				continue
			}
			if err := tx.Create(legacyBinding(controlID, legacy[id])).Error; err != nil {
				return err
			}
			imported++
		}
		return tx.Where("key = ?", legacyMappingsKey).Delete(&models.Setting{}).Error
	})
	if err != nil {
		return err
	}

	log.Infof("🔄 Imported %d legacy mappings", imported)
	return nil
}

func legacyBinding(controlID string, m legacyMapping) *models.Binding {
	b := &models.Binding{
		ID:         cuid.New(),
		ControlID:  controlID,
		Channel:    clamp(m.Channel, 0, 15),
		Controller: m.Controller,
		MinValue:   0,
		MaxValue:   255,
		Curve:      1,
	}
	// A mapping carrying both keeps the controller
	if b.Controller == nil {
		b.Note = m.Note
	}
	if m.Min != nil {
		b.MinValue = clamp(*m.Min, 0, 255)
	}
	if m.Max != nil {
		b.MaxValue = clamp(*m.Max, 0, 255)
	}
	if m.OSCAddress != "" {
		addr := m.OSCAddress
		b.OSCAddress = &addr
	}
	return b
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
