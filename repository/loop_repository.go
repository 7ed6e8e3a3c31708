package repository

import (
	"context"

	"JamLoop/model"

	"gorm.io/gorm"
)

// LoopRepository is the loop data access interface.
type LoopRepository interface {
	Create(ctx context.Context, loop *model.Loop) error
	GetByID(ctx context.Context, id string) (*model.Loop, error)
	Update(ctx context.Context, loop *model.Loop) error
	Delete(ctx context.Context, id string) error
	// ListByRoom returns a room's loops in display order with owners joined in.
	ListByRoom(ctx context.Context, roomID string) ([]*model.LoopWithUser, error)
	// ListEnabledByRoom returns only the loops that take part in a mixdown,
	// in display order.
	ListEnabledByRoom(ctx context.Context, roomID string) ([]*model.Loop, error)
	// ListByUser returns a user's loops across rooms, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*model.LoopWithUser, error)
	CountByRoom(ctx context.Context, roomID string) (int64, error)
}

type gormLoopRepository struct {
	db *gorm.DB
}

// NewGormLoopRepository creates a GORM-backed loop repository.
func NewGormLoopRepository(db *gorm.DB) LoopRepository {
	return &gormLoopRepository{db: db}
}

func (r *gormLoopRepository) Create(ctx context.Context, loop *model.Loop) error {
	return r.db.WithContext(ctx).Create(loop).Error
}

func (r *gormLoopRepository) GetByID(ctx context.Context, id string) (*model.Loop, error) {
	var loop model.Loop
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&loop).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &loop, nil
}

func (r *gormLoopRepository) Update(ctx context.Context, loop *model.Loop) error {
	return r.db.WithContext(ctx).Save(loop).Error
}

func (r *gormLoopRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Loop{}).Error
}

func (r *gormLoopRepository) ListByRoom(ctx context.Context, roomID string) ([]*model.LoopWithUser, error) {
	var loops []*model.Loop
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("sort_order ASC").
		Find(&loops).Error
	if err != nil {
		return nil, err
	}
	return r.attachUsers(ctx, loops)
}

func (r *gormLoopRepository) ListEnabledByRoom(ctx context.Context, roomID string) ([]*model.Loop, error) {
	var loops []*model.Loop
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND enabled = ?", roomID, true).
		Order("sort_order ASC").
		Find(&loops).Error
	return loops, err
}

func (r *gormLoopRepository) ListByUser(ctx context.Context, userID int64) ([]*model.LoopWithUser, error) {
	var loops []*model.Loop
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&loops).Error
	if err != nil {
		return nil, err
	}
	return r.attachUsers(ctx, loops)
}

func (r *gormLoopRepository) CountByRoom(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Loop{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

// attachUsers resolves owner names for a batch of loops in one query.
func (r *gormLoopRepository) attachUsers(ctx context.Context, loops []*model.Loop) ([]*model.LoopWithUser, error) {
	result := make([]*model.LoopWithUser, 0, len(loops))
	if len(loops) == 0 {
		return result, nil
	}

	ids := make([]int64, 0, len(loops))
	seen := make(map[int64]bool)
	for _, l := range loops {
		if !seen[l.UserID] {
			seen[l.UserID] = true
			ids = append(ids, l.UserID)
		}
	}

	var users []*model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	for _, l := range loops {
		result = append(result, &model.LoopWithUser{
			Loop: *l,
			User: model.UserRef{ID: l.UserID, Name: names[l.UserID]},
		})
	}
	return result, nil
}
