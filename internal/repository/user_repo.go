package repository

import (
	"context"

	"langbuddy/internal/model"

	"gorm.io/gorm"
)

// UserRepository is the gorm-backed implementation of the user directory
// the discovery pipeline consumes. Account management (registration,
// credentials, profile editing) lives in a separate system; this side only
// reads.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.User, error)
	SearchUsers(ctx context.Context, keyword string, limit int) ([]model.User, error)
	RecommendUsers(ctx context.Context, viewerID string, limit int) ([]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var users []model.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// SearchUsers searches active users by keyword (name, username)
func (r *userRepository) SearchUsers(ctx context.Context, keyword string, limit int) ([]model.User, error) {
	var users []model.User
	searchPattern := "%" + keyword + "%"

	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("full_name ILIKE ? OR username ILIKE ?", searchPattern, searchPattern).
		Order("full_name ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	return users, nil
}

// RecommendUsers returns active users other than the viewer, most recently
// joined first. Ordering beyond recency is out of scope; the discovery
// pipeline applies attribute filters and friend exclusion on top.
func (r *userRepository) RecommendUsers(ctx context.Context, viewerID string, limit int) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("id <> ?", viewerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	return users, nil
}
