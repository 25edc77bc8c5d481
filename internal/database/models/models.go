// Package models contains the database model definitions.
// These models map directly to the SQLite database tables.
package models

import (
	"time"
)

// Fixture represents a patched fixture.
// Table: fixtures
type Fixture struct {
	ID           string    `gorm:"column:id;primaryKey"`
	Name         string    `gorm:"column:name"`
	StartAddress int       `gorm:"column:start_address"` // 1-based
	SortOrder    int       `gorm:"column:sort_order;index"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`

	// Relations
	Channels []FixtureChannel `gorm:"foreignKey:FixtureID"`
}

func (Fixture) TableName() string { return "fixtures" }

// FixtureChannel represents one channel of a fixture.
// Table: fixture_channels
type FixtureChannel struct {
	ID         string `gorm:"column:id;primaryKey"`
	FixtureID  string `gorm:"column:fixture_id;index"`
	Offset     int    `gorm:"column:channel_offset"`
	Name       string `gorm:"column:name"`
	Type       string `gorm:"column:type"`        // Free text, normalized at dispatch time
	DMXAddress *int   `gorm:"column:dmx_address"` // Optional explicit 1-based address
}

func (FixtureChannel) TableName() string { return "fixture_channels" }

// FixtureGroup represents a named set of fixtures referenced by catalog index.
// Table: fixture_groups
type FixtureGroup struct {
	ID             string    `gorm:"column:id;primaryKey"`
	Name           string    `gorm:"column:name"`
	FixtureIndices string    `gorm:"column:fixture_indices;default:[]"` // JSON array of int
	SortOrder      int       `gorm:"column:sort_order;index"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (FixtureGroup) TableName() string { return "fixture_groups" }

// Binding represents a MIDI/OSC control binding.
// Table: bindings
type Binding struct {
	ID         string    `gorm:"column:id;primaryKey"`
	ControlID  string    `gorm:"column:control_id;uniqueIndex"`
	Channel    int       `gorm:"column:channel;default:0"`
	Controller *int      `gorm:"column:controller"`
	Note       *int      `gorm:"column:note"`
	MinValue   int       `gorm:"column:min_value"`
	MaxValue   int       `gorm:"column:max_value"`
	OSCAddress *string   `gorm:"column:osc_address"`
	Curve      float64   `gorm:"column:curve;default:1"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Binding) TableName() string { return "bindings" }

// Setting represents a system setting.
// Table: settings
type Setting struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex"`
	Value     string    `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string { return "settings" }

// All lists every model for auto-migration.
func All() []interface{} {
	return []interface{}{
		&Fixture{},
		&FixtureChannel{},
		&FixtureGroup{},
		&Binding{},
		&Setting{},
	}
}
