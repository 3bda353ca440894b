package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/noddit/models"
	"github.com/cppla/noddit/utils"
)

// MaxDescriptionLength bounds subnoddit descriptions in runes.
const MaxDescriptionLength = 1000

var subnodditNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,21}$`)

// SubnodditService manages communities.
type SubnodditService struct {
	db *gorm.DB
}

// NewSubnodditService creates a new SubnodditService instance.
func NewSubnodditService(db *gorm.DB) *SubnodditService {
	return &SubnodditService{db: db}
}

// ValidSubnodditName reports whether name is 3-21 letters, digits or underscores.
func ValidSubnodditName(name string) bool {
	return subnodditNamePattern.MatchString(name)
}

// Create registers a new subnoddit owned by userID. Names are unique regardless of case.
func (s *SubnodditService) Create(ctx context.Context, userID uint, name, description string) (*models.Subnoddit, error) {
	name = strings.TrimSpace(name)
	if !ValidSubnodditName(name) {
		return nil, invalid("name must be 3-21 letters, digits or underscores")
	}
	desc, err := cleanDescription(description)
	if err != nil {
		return nil, err
	}

	sub := models.Subnoddit{Name: name, Description: desc, UserID: userID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActiveUser(tx, userID); err != nil {
			return err
		}
		var taken int64
		if err := tx.Model(&models.Subnoddit{}).Where("LOWER(name) = ?", strings.ToLower(name)).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("subnoddit %q: %w", name, ErrConflict)
		}
		return tx.Create(&sub).Error
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByName looks a subnoddit up by name, ignoring case.
func (s *SubnodditService) GetByName(ctx context.Context, name string) (*models.Subnoddit, error) {
	return findSubnoddit(s.db.WithContext(ctx), name)
}

// List returns one page of subnoddits ordered by name, optionally filtered by a name fragment.
func (s *SubnodditService) List(ctx context.Context, search string, page Page) ([]models.Subnoddit, int64, error) {
	page = page.normalize()
	query := s.db.WithContext(ctx).Model(&models.Subnoddit{})
	if term := strings.TrimSpace(search); term != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count subnoddits: %w", err)
	}
	subs := []models.Subnoddit{}
	if err := query.Order("name ASC").Offset(page.offset()).Limit(page.PageSize).Find(&subs).Error; err != nil {
		return nil, 0, fmt.Errorf("list subnoddits: %w", err)
	}
	return subs, total, nil
}

// UpdateDescription changes the description of a subnoddit owned by userID.
func (s *SubnodditService) UpdateDescription(ctx context.Context, userID uint, name, description string) (*models.Subnoddit, error) {
	desc, err := cleanDescription(description)
	if err != nil {
		return nil, err
	}
	sub, err := s.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, fmt.Errorf("edit subnoddit %q: %w", sub.Name, ErrForbidden)
	}
	if err := s.db.WithContext(ctx).Model(sub).Update("description", desc).Error; err != nil {
		return nil, fmt.Errorf("update subnoddit: %w", err)
	}
	sub.Description = desc
	return sub, nil
}

// Delete removes an empty subnoddit. Only the owner or an admin may do it.
func (s *SubnodditService) Delete(ctx context.Context, userID uint, name string, isAdmin bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := findSubnoddit(tx, name)
		if err != nil {
			return err
		}
		if sub.UserID != userID && !isAdmin {
			return fmt.Errorf("delete subnoddit %q: %w", sub.Name, ErrForbidden)
		}
		var posts int64
		if err := tx.Model(&models.Post{}).Where("subnoddit_id = ?", sub.ID).Count(&posts).Error; err != nil {
			return err
		}
		if posts > 0 {
			return fmt.Errorf("subnoddit %q still has %d posts: %w", sub.Name, posts, ErrConflict)
		}
		return tx.Delete(sub).Error
	})
}

func findSubnoddit(db *gorm.DB, name string) (*models.Subnoddit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("subnoddit name is required")
	}
	var sub models.Subnoddit
	if err := db.Where("LOWER(name) = ?", strings.ToLower(name)).First(&sub).Error; err != nil {
		return nil, notFoundOr("subnoddit", err)
	}
	return &sub, nil
}

func cleanDescription(raw string) (string, error) {
	desc := utils.SanitizePlain(raw)
	if len([]rune(desc)) > MaxDescriptionLength {
		return "", invalid("description exceeds %d characters", MaxDescriptionLength)
	}
	return desc, nil
}
