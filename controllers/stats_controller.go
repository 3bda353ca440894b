package controllers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/noddit/models"
	"github.com/cppla/noddit/services"
	"github.com/cppla/noddit/utils"
)

// StatsController provides forum statistics such as counts and daily views.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the forum.
func (s *StatsController) GetStats(ctx *gin.Context) {
	db := s.db.WithContext(ctx.Request.Context())
	var userCount, postCount, commentCount, subnodditCount, viewsToday int64

	// Counters fall back to 0 instead of failing the whole endpoint
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		userCount = 0
	}
	if err := db.Model(&models.Post{}).Count(&postCount).Error; err != nil {
		postCount = 0
	}
	if err := db.Model(&models.Comment{}).Where("deleted = ?", false).Count(&commentCount).Error; err != nil {
		commentCount = 0
	}
	if err := db.Model(&models.Subnoddit{}).Count(&subnodditCount).Error; err != nil {
		subnodditCount = 0
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if err := db.Model(&models.PostView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&viewsToday).Error; err != nil {
		viewsToday = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":      userCount,
		"post_count":      postCount,
		"comment_count":   commentCount,
		"subnoddit_count": subnodditCount,
		"views_today":     viewsToday,
	})
}

// GetPostStats returns total views and comment count for a given post id.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id", familyPost)
	if !ok {
		return
	}
	db := s.db.WithContext(ctx.Request.Context())

	var exists int64
	if err := db.Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
		respondServiceError(ctx, familyPost, err)
		return
	}
	if exists == 0 {
		respondServiceError(ctx, familyPost, fmt.Errorf("post %d: %w", postID, services.ErrNotFound))
		return
	}

	var views int64
	if err := db.Model(&models.PostView{}).
		Where("post_id = ?", postID).
		Select("COALESCE(SUM(count),0)").
		Scan(&views).Error; err != nil {
		views = 0
	}

	var commentsCount int64
	if err := db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&commentsCount).Error; err != nil {
		commentsCount = 0
	}

	utils.Success(ctx, gin.H{
		"views":          views,
		"comments_count": commentsCount,
	})
}
