package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/noddit/models"
	"github.com/cppla/noddit/utils"
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 8
	// MaxBioLength bounds profile bios in runes.
	MaxBioLength = 500
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// ProfileUpdate carries optional profile replacements; nil fields are left unchanged.
type ProfileUpdate struct {
	Bio       *string
	AvatarURL *string
}

// UserProfile is the public view of a user with activity counters.
type UserProfile struct {
	models.User
	Karma          int64 `json:"karma"`
	PostCount      int64 `json:"post_count"`
	CommentCount   int64 `json:"comment_count"`
	FollowerCount  int64 `json:"follower_count"`
	FollowingCount int64 `json:"following_count"`
}

// UserService manages accounts.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new UserService instance.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// ValidUsername reports whether name is 3-32 letters, digits, '_' or '-'.
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// Register creates an account with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if !ValidUsername(username) {
		return nil, invalid("username must be 3-32 letters, digits, '_' or '-'")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, invalid("email address is not valid")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, invalid("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := utils.HashPassword(in.Password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return nil, invalid("password is too long")
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{Username: username, Email: email, PasswordHash: hash}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// soft-deleted accounts keep their unique username and email
		var taken int64
		if err := tx.Unscoped().Model(&models.User{}).
			Where("LOWER(username) = ? OR email = ?", strings.ToLower(username), email).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("username or email already registered: %w", ErrConflict)
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate checks a password against the account named by username or email.
func (s *UserService) Authenticate(ctx context.Context, login, password string) (*models.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetByID loads an active user.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr("user", err)
	}
	return &user, nil
}

// GetByUsername loads an active user by exact username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		return nil, notFoundOr("user", err)
	}
	return &user, nil
}

// Profile returns the public profile of username with its counters.
func (s *UserService) Profile(ctx context.Context, username string) (*UserProfile, error) {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	p := &UserProfile{User: *user}

	var postPoints, commentPoints int64
	steps := []func() error{
		func() error { return db.Model(&models.Post{}).Where("user_id = ?", user.ID).Count(&p.PostCount).Error },
		func() error {
			return db.Model(&models.Comment{}).Where("user_id = ? AND deleted = ?", user.ID, false).Count(&p.CommentCount).Error
		},
		func() error {
			return db.Model(&models.Follower{}).Where("followee_id = ?", user.ID).Count(&p.FollowerCount).Error
		},
		func() error {
			return db.Model(&models.Follower{}).Where("follower_id = ?", user.ID).Count(&p.FollowingCount).Error
		},
		func() error {
			return db.Model(&models.Post{}).Where("user_id = ?", user.ID).Select("COALESCE(SUM(points), 0)").Scan(&postPoints).Error
		},
		func() error {
			return db.Model(&models.Comment{}).Where("user_id = ?", user.ID).Select("COALESCE(SUM(points), 0)").Scan(&commentPoints).Error
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("load profile counters: %w", err)
		}
	}
	p.Karma = postPoints + commentPoints
	return p, nil
}

// UpdateProfile edits the bio and avatar of userID.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*models.User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if in.Bio != nil {
		bio := utils.Sanitize(*in.Bio)
		if len([]rune(bio)) > MaxBioLength {
			return nil, invalid("bio exceeds %d characters", MaxBioLength)
		}
		changes["bio"] = bio
	}
	if in.AvatarURL != nil {
		avatar := strings.TrimSpace(*in.AvatarURL)
		if avatar != "" {
			u, err := url.Parse(avatar)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return nil, invalid("avatar_url must be an http or https URL")
			}
		}
		changes["avatar_url"] = avatar
	}
	if len(changes) == 0 {
		return user, nil
	}
	if err := s.db.WithContext(ctx).Model(user).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetByID(ctx, userID)
}

// SoftDelete marks userID deleted and drops its follow edges. Posts and comments are kept.
func (s *UserService) SoftDelete(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, userID)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return tx.Where("follower_id = ? OR followee_id = ?", userID, userID).Delete(&models.Follower{}).Error
	})
}
