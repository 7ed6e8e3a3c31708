package repository

import (
	"context"

	"JamLoop/model"

	"gorm.io/gorm"
)

// MixdownRepository is the mixdown data access interface.
type MixdownRepository interface {
	Create(ctx context.Context, mixdown *model.Mixdown) error
	ListByUser(ctx context.Context, userID int64) ([]*model.Mixdown, error)
	ListByRoom(ctx context.Context, roomID string) ([]*model.Mixdown, error)
}

type gormMixdownRepository struct {
	db *gorm.DB
}

// NewGormMixdownRepository creates a GORM-backed mixdown repository.
func NewGormMixdownRepository(db *gorm.DB) MixdownRepository {
	return &gormMixdownRepository{db: db}
}

func (r *gormMixdownRepository) Create(ctx context.Context, mixdown *model.Mixdown) error {
	return r.db.WithContext(ctx).Create(mixdown).Error
}

func (r *gormMixdownRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Mixdown, error) {
	var mixdowns []*model.Mixdown
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&mixdowns).Error
	return mixdowns, err
}

func (r *gormMixdownRepository) ListByRoom(ctx context.Context, roomID string) ([]*model.Mixdown, error) {
	var mixdowns []*model.Mixdown
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Find(&mixdowns).Error
	return mixdowns, err
}
