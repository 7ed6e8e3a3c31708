package repository

import (
	"context"

	"JamLoop/model"

	"gorm.io/gorm"
)

// RoomRepository is the room data access interface.
type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id string) (*model.Room, error)
	GetByCode(ctx context.Context, code string) (*model.Room, error)
	Update(ctx context.Context, room *model.Room) error
	ListPublic(ctx context.Context, limit, offset int) ([]*model.Room, error)
	ListByHost(ctx context.Context, hostID int64) ([]*model.Room, error)
	CodeExists(ctx context.Context, code string) (bool, error)
}

type gormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a GORM-backed room repository.
func NewGormRoomRepository(db *gorm.DB) RoomRepository {
	return &gormRoomRepository{db: db}
}

func (r *gormRoomRepository) Create(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *gormRoomRepository) GetByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&room).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *gormRoomRepository) GetByCode(ctx context.Context, code string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&room).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &room, nil
}

func (r *gormRoomRepository) Update(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Save(room).Error
}

func (r *gormRoomRepository) ListPublic(ctx context.Context, limit, offset int) ([]*model.Room, error) {
	var rooms []*model.Room
	err := r.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&rooms).Error
	return rooms, err
}

func (r *gormRoomRepository) ListByHost(ctx context.Context, hostID int64) ([]*model.Room, error) {
	var rooms []*model.Room
	err := r.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("created_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *gormRoomRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Room{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}
