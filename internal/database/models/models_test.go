package models

import "testing"

func TestTableNames(t *testing.T) {
	tests := []struct {
		name      string
		model     interface{ TableName() string }
		tableName string
	}{
		{"Fixture", Fixture{}, "fixtures"},
		{"FixtureChannel", FixtureChannel{}, "fixture_channels"},
		{"FixtureGroup", FixtureGroup{}, "fixture_groups"},
		{"Binding", Binding{}, "bindings"},
		{"Setting", Setting{}, "settings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.model.TableName(); got != tt.tableName {
				t.Errorf("%s.TableName() = %q, want %q", tt.name, got, tt.tableName)
			}
		})
	}
}

func TestAllCoversEveryTable(t *testing.T) {
	if got := len(All()); got != 5 {
		t.Errorf("All() returned %d models, want 5", got)
	}
}
