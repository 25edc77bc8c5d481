package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bbernstein/lacylights-control/internal/database/models"
	"github.com/bbernstein/lacylights-control/internal/database/repositories"
)

func connectMemory(t *testing.T) {
	t.Helper()
	DB = nil
	db, err := Connect(Config{URL: ":memory:"})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func TestPath(t *testing.T) {
	tests := map[string]string{
		"file:./control.db":  "./control.db",
		"/var/lib/ll/ctl.db": "/var/lib/ll/ctl.db",
		":memory:":           ":memory:",
		"":                   ":memory:",
		" file:x.db ":        "x.db",
	}
	for in, want := range tests {
		if got := Path(in); got != want {
			t.Errorf("Path(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDSN(t *testing.T) {
	mem := dsn(":memory:")
	if strings.Contains(mem, "journal_mode") {
		t.Errorf("In-memory DSN should not request WAL: %s", mem)
	}
	if !strings.Contains(mem, "busy_timeout(5000)") {
		t.Errorf("Expected busy timeout in %s", mem)
	}

	file := dsn("control.db")
	if !strings.HasPrefix(file, "control.db?") || !strings.Contains(file, "journal_mode(WAL)") {
		t.Errorf("Unexpected file DSN: %s", file)
	}
}

func TestMigrate_CreatesControlTables(t *testing.T) {
	connectMemory(t)

	for _, table := range []string{"fixtures", "fixture_channels", "fixture_groups", "bindings", "settings"} {
		if !DB.Migrator().HasTable(table) {
			t.Errorf("Expected table %s after migration", table)
		}
	}
	if !DB.Migrator().HasColumn(&models.FixtureChannel{}, "channel_offset") {
		t.Error("Expected fixture_channels.channel_offset column")
	}

	// Re-running against an existing schema is a no-op
	if err := Migrate(DB); err != nil {
		t.Errorf("Second Migrate failed: %v", err)
	}
}

func TestMigrate_LoadCatalog(t *testing.T) {
	connectMemory(t)
	ctx := context.Background()
	repo := repositories.NewFixtureRepository(DB)

	addr := 40
	fixtures := []models.Fixture{
		{Name: "Spot", StartAddress: 1, Channels: []models.FixtureChannel{
			{Offset: 0, Type: "Intensity"}, {Offset: 1, Type: "Pan"}, {Offset: 2, Type: "Tilt"},
		}},
		{Name: "Wash", StartAddress: 10, Channels: []models.FixtureChannel{
			{Offset: 0, Type: "Red"}, {Offset: 1, Type: "Green", DMXAddress: &addr},
		}},
	}
	groups := []models.FixtureGroup{{Name: "Front", FixtureIndices: "[0,1]"}}
	if err := repo.ReplaceAll(ctx, fixtures, groups); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	gotFixtures, gotGroups, err := repo.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(gotFixtures) != 2 || gotFixtures[0].Name != "Spot" || gotFixtures[1].Name != "Wash" {
		t.Fatalf("Unexpected fixtures: %+v", gotFixtures)
	}
	if len(gotFixtures[0].Channels) != 3 || gotFixtures[0].Channels[1].Type != "Pan" {
		t.Errorf("Unexpected Spot channels: %+v", gotFixtures[0].Channels)
	}
	green := gotFixtures[1].Channels[1]
	if green.DMXAddress == nil || *green.DMXAddress != 40 {
		t.Errorf("Expected explicit address 40 on Green, got %v", green.DMXAddress)
	}
	if len(gotGroups) != 1 || len(gotGroups[0].FixtureIndices) != 2 {
		t.Errorf("Unexpected groups: %+v", gotGroups)
	}
}

func TestMigrate_BindingsAndSettingsPersist(t *testing.T) {
	connectMemory(t)
	ctx := context.Background()

	bindings := repositories.NewBindingRepository(DB)
	if err := bindings.Upsert(ctx, &models.Binding{ControlID: "dimmer", MinValue: 255, MaxValue: 0, Curve: 1}); err != nil {
		t.Fatalf("Upsert binding failed: %v", err)
	}
	settings := repositories.NewSettingRepository(DB)
	if err := settings.SaveSetting(ctx, "autopilot", `{"shape":"circle"}`); err != nil {
		t.Fatalf("SaveSetting failed: %v", err)
	}

	all, err := bindings.FindAll(ctx)
	if err != nil || len(all) != 1 || all[0].MaxValue != 0 {
		t.Errorf("Unexpected bindings: %+v (err %v)", all, err)
	}
	v, ok, err := settings.LoadSetting(ctx, "autopilot")
	if err != nil || !ok || v != `{"shape":"circle"}` {
		t.Errorf("LoadSetting = %q, %v, %v", v, ok, err)
	}
}

func TestConnect_FileCreatesDirectory(t *testing.T) {
	DB = nil
	dbPath := filepath.Join(t.TempDir(), "state", "control.db")

	db, err := Connect(Config{URL: "file:" + dbPath, MaxIdleConn: 1, MaxOpenConn: 2, Debug: true})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if err := Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("Expected database file at %s: %v", dbPath, err)
	}
	if DB != nil {
		t.Error("Expected Close to clear the global connection")
	}
}

func TestClose_WithoutConnect(t *testing.T) {
	DB = nil
	if err := Close(); err != nil {
		t.Errorf("Close without a connection should be a no-op, got %v", err)
	}
}
