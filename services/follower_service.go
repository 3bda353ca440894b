package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/noddit/models"
)

// FollowerService manages follow edges between users.
type FollowerService struct {
	db *gorm.DB
}

// NewFollowerService creates a new FollowerService instance.
func NewFollowerService(db *gorm.DB) *FollowerService {
	return &FollowerService{db: db}
}

// Follow makes followerID follow username. Following twice is a no-op.
func (s *FollowerService) Follow(ctx context.Context, followerID uint, username string) (*models.User, error) {
	if err := requireActiveUser(s.db.WithContext(ctx), followerID); err != nil {
		return nil, err
	}
	target, err := s.target(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == followerID {
		return nil, invalid("users cannot follow themselves")
	}

	edge := models.Follower{FollowerID: followerID, FolloweeID: target.ID}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
		return nil, fmt.Errorf("follow: %w", err)
	}
	return target, nil
}

// Unfollow removes the edge from followerID to username if present.
func (s *FollowerService) Unfollow(ctx context.Context, followerID uint, username string) (*models.User, error) {
	target, err := s.target(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, target.ID).
		Delete(&models.Follower{}).Error; err != nil {
		return nil, fmt.Errorf("unfollow: %w", err)
	}
	return target, nil
}

// IsFollowing reports whether followerID follows followeeID.
func (s *FollowerService) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Follower{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&n).Error
	return n > 0, err
}

// Followers lists the users following userID, most recent first.
func (s *FollowerService) Followers(ctx context.Context, userID uint, page Page) ([]models.User, int64, error) {
	return s.list(ctx, "followee_id", "follower_id", userID, page)
}

// Following lists the users userID follows, most recent first.
func (s *FollowerService) Following(ctx context.Context, userID uint, page Page) ([]models.User, int64, error) {
	return s.list(ctx, "follower_id", "followee_id", userID, page)
}

func (s *FollowerService) list(ctx context.Context, matchColumn, userColumn string, userID uint, page Page) ([]models.User, int64, error) {
	page = page.normalize()
	query := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN followers ON followers."+userColumn+" = users.id").
		Where("followers."+matchColumn+" = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count follow edges: %w", err)
	}
	users := []models.User{}
	if err := query.Order("followers.created_at DESC").Order("followers.id DESC").
		Offset(page.offset()).Limit(page.PageSize).
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list follow edges: %w", err)
	}
	return users, total, nil
}

func (s *FollowerService) target(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFoundOr("user", err)
	}
	return &user, nil
}
