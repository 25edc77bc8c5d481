// Package testutil provides shared test utilities for integration tests.
package testutil

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/lucsky/cuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bbernstein/lacylights-control/internal/database/models"
	"github.com/bbernstein/lacylights-control/internal/database/repositories"
)

// TestDB holds the test database and repositories.
type TestDB struct {
	DB          *gorm.DB
	FixtureRepo *repositories.FixtureRepository
	BindingRepo *repositories.BindingRepository
	SettingRepo *repositories.SettingRepository
}

// SetupTestDB creates an in-memory SQLite database for testing.
// It returns a TestDB with all repositories initialized and a cleanup function.
func SetupTestDB(t *testing.T) (*TestDB, func()) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	testDB := &TestDB{
		DB:          db,
		FixtureRepo: repositories.NewFixtureRepository(db),
		BindingRepo: repositories.NewBindingRepository(db),
		SettingRepo: repositories.NewSettingRepository(db),
	}

	cleanup := func() {
		_ = sqlDB.Close()
	}

	return testDB, cleanup
}

// SeedStagePatch stores a small rig: a moving head (1-6), an RGB wash (10-13)
// and a hazer with no channels, plus a "movers" group.
func (tdb *TestDB) SeedStagePatch(t *testing.T) {
	t.Helper()

	fixtures := []models.Fixture{
		{Name: UniqueFixtureName("Mover"), StartAddress: 1, Channels: []models.FixtureChannel{
			{Type: "Dimmer"}, {Type: "Pan"}, {Type: "Tilt"}, {Type: "Red"}, {Type: "Green"}, {Type: "Blue"},
		}},
		{Name: UniqueFixtureName("Wash"), StartAddress: 10, Channels: []models.FixtureChannel{
			{Type: "Intensity"}, {Type: "R"}, {Type: "G"}, {Type: "B"},
		}},
		{Name: UniqueFixtureName("Hazer"), StartAddress: 40},
	}
	groups := []models.FixtureGroup{{Name: "movers", FixtureIndices: "[0]"}}

	if err := tdb.FixtureRepo.ReplaceAll(context.Background(), fixtures, groups); err != nil {
		t.Fatalf("Failed to seed patch: %v", err)
	}
}

// UniqueFixtureName generates a unique fixture name for testing.
func UniqueFixtureName(prefix string) string {
	return prefix + "-" + cuid.New()[:8]
}
