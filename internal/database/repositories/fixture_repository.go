package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lucsky/cuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/bbernstein/lacylights-control/internal/database/models"
	"github.com/bbernstein/lacylights-control/internal/services/catalog"
)

// FixtureRepository handles fixture and group data access.
type FixtureRepository struct {
	db *gorm.DB
}

// NewFixtureRepository creates a new FixtureRepository.
func NewFixtureRepository(db *gorm.DB) *FixtureRepository {
	return &FixtureRepository{db: db}
}

// FindAll returns all fixtures with their channels, in catalog order.
func (r *FixtureRepository) FindAll(ctx context.Context) ([]models.Fixture, error) {
	var fixtures []models.Fixture
	result := r.db.WithContext(ctx).
		Preload("Channels", func(db *gorm.DB) *gorm.DB { return db.Order("channel_offset ASC") }).
		Order("sort_order ASC, id ASC").
		Find(&fixtures)
	return fixtures, result.Error
}

// FindByID returns a fixture with its channels by ID.
func (r *FixtureRepository) FindByID(ctx context.Context, id string) (*models.Fixture, error) {
	var fixture models.Fixture
	result := r.db.WithContext(ctx).
		Preload("Channels", func(db *gorm.DB) *gorm.DB { return db.Order("channel_offset ASC") }).
		First(&fixture, "id = ?", id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &fixture, nil
}

// FindAllGroups returns all groups in catalog order.
func (r *FixtureRepository) FindAllGroups(ctx context.Context) ([]models.FixtureGroup, error) {
	var groups []models.FixtureGroup
	result := r.db.WithContext(ctx).
		Order("sort_order ASC, id ASC").
		Find(&groups)
	return groups, result.Error
}

// Count returns the number of fixtures.
func (r *FixtureRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Fixture{}).Count(&count)
	return count, result.Error
}

// CreateWithChannels creates a fixture and its channels in a transaction.
func (r *FixtureRepository) CreateWithChannels(ctx context.Context, fixture *models.Fixture, channels []models.FixtureChannel) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createFixture(tx, fixture, channels)
	})
}

// Delete deletes a fixture and its channels.
func (r *FixtureRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.FixtureChannel{}, "fixture_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Fixture{}, "id = ?", id).Error
	})
}

// ReplaceAll swaps the whole patch for the given fixtures and groups in one transaction.
// Sort order follows slice order.
func (r *FixtureRepository) ReplaceAll(ctx context.Context, fixtures []models.Fixture, groups []models.FixtureGroup) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		global := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, m := range []interface{}{&models.FixtureChannel{}, &models.Fixture{}, &models.FixtureGroup{}} {
			if err := global.Delete(m).Error; err != nil {
				return fmt.Errorf("failed to clear patch: %w", err)
			}
		}

		for i := range fixtures {
			f := fixtures[i]
			f.SortOrder = i
			channels := f.Channels
			f.Channels = nil
			if err := createFixture(tx, &f, channels); err != nil {
				return fmt.Errorf("failed to create fixture %q: %w", f.Name, err)
			}
		}

		for i := range groups {
			g := groups[i]
			if g.ID == "" {
				g.ID = cuid.New()
			}
			if g.FixtureIndices == "" {
				g.FixtureIndices = "[]"
			}
			g.SortOrder = i
			if err := tx.Create(&g).Error; err != nil {
				return fmt.Errorf("failed to create group %q: %w", g.Name, err)
			}
		}
		return nil
	})
}

// LoadCatalog reads the patch as catalog fixtures and groups.
func (r *FixtureRepository) LoadCatalog(ctx context.Context) ([]catalog.Fixture, []catalog.Group, error) {
	rows, err := r.FindAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load fixtures: %w", err)
	}
	groupRows, err := r.FindAllGroups(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load groups: %w", err)
	}

	fixtures := make([]catalog.Fixture, 0, len(rows))
	for _, row := range rows {
		f := catalog.Fixture{ID: row.ID, Name: row.Name, StartAddress: row.StartAddress}
		for _, ch := range row.Channels {
			f.Channels = append(f.Channels, catalog.Channel{Type: ch.Type, DMXAddress: ch.DMXAddress})
		}
		fixtures = append(fixtures, f)
	}

	groups := make([]catalog.Group, 0, len(groupRows))
	for _, row := range groupRows {
		g := catalog.Group{ID: row.ID, Name: row.Name}
		if err := json.Unmarshal([]byte(row.FixtureIndices), &g.FixtureIndices); err != nil {
			log.Warnf("⚠️ Group %s has malformed fixture indices: %v", row.Name, err)
			g.FixtureIndices = nil
		}
		groups = append(groups, g)
	}
	return fixtures, groups, nil
}

func createFixture(tx *gorm.DB, fixture *models.Fixture, channels []models.FixtureChannel) error {
	if fixture.ID == "" {
		fixture.ID = cuid.New()
	}
	if err := tx.Omit("Channels").Create(fixture).Error; err != nil {
		return err
	}
	if len(channels) == 0 {
		return nil
	}
	for i := range channels {
		if channels[i].ID == "" {
			channels[i].ID = cuid.New()
		}
		channels[i].FixtureID = fixture.ID
		channels[i].Offset = i
	}
	if err := tx.Create(&channels).Error; err != nil {
		return err
	}
	fixture.Channels = channels
	return nil
}
