package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/noddit/models"
)

// Sentinel errors returned (wrapped) by every service. Callers match them with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// notFoundOr maps gorm.ErrRecordNotFound to ErrNotFound and wraps anything else.
func notFoundOr(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// Sort orders understood by listings.
const (
	SortTop = "top"
	SortNew = "new"
	SortOld = "old"
	SortHot = "hot"
)

// MaxPageSize bounds every paginated query.
const MaxPageSize = 100

// Page is a 1-based page request.
type Page struct {
	Page     int
	PageSize int
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 10
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.PageSize
}

// requireActiveUser fails with ErrNotFound when userID is unknown or soft-deleted.
func requireActiveUser(db *gorm.DB, userID uint) error {
	var user models.User
	if err := db.Select("id").First(&user, userID).Error; err != nil {
		return notFoundOr("user", err)
	}
	return nil
}
