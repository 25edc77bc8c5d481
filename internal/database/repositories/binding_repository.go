package repositories

import (
	"context"

	"github.com/lucsky/cuid"
	"gorm.io/gorm"

	"github.com/bbernstein/lacylights-control/internal/database/models"
)

// BindingRepository handles control binding data access.
type BindingRepository struct {
	db *gorm.DB
}

// NewBindingRepository creates a new BindingRepository.
func NewBindingRepository(db *gorm.DB) *BindingRepository {
	return &BindingRepository{db: db}
}

// FindAll returns all bindings ordered by control id.
func (r *BindingRepository) FindAll(ctx context.Context) ([]models.Binding, error) {
	var bindings []models.Binding
	result := r.db.WithContext(ctx).
		Order("control_id ASC").
		Find(&bindings)
	return bindings, result.Error
}

// FindByControlID returns the binding for a control, or nil.
func (r *BindingRepository) FindByControlID(ctx context.Context, controlID string) (*models.Binding, error) {
	var binding models.Binding
	result := r.db.WithContext(ctx).First(&binding, "control_id = ?", controlID)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &binding, nil
}

// Upsert creates or replaces the binding for b.ControlID.
func (r *BindingRepository) Upsert(ctx context.Context, b *models.Binding) error {
	existing, err := r.FindByControlID(ctx, b.ControlID)
	if err != nil {
		return err
	}
	if existing == nil {
		if b.ID == "" {
			b.ID = cuid.New()
		}
		return r.db.WithContext(ctx).Create(b).Error
	}

	b.ID = existing.ID
	b.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(b).Error
}

// DeleteByControlID deletes the binding for a control.
func (r *BindingRepository) DeleteByControlID(ctx context.Context, controlID string) error {
	return r.db.WithContext(ctx).Delete(&models.Binding{}, "control_id = ?", controlID).Error
}

// DeleteAll deletes every binding.
func (r *BindingRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.Binding{}).Error
}
