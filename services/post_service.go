package services

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/noddit/models"
	"github.com/cppla/noddit/utils"
)

const (
	// MaxTitleLength bounds post titles in runes.
	MaxTitleLength = 300
	// HotWindow is how many of the most recent matching posts are ranked for the hot sort.
	HotWindow = 1000
)

// PostInput carries the writable fields of a post.
type PostInput struct {
	Subnoddit string
	Title     string
	Text      string
	Link      string
}

// PostUpdate carries optional replacements; nil fields are left unchanged.
type PostUpdate struct {
	Title *string
	Text  *string
	Link  *string
}

// PostFilter narrows a post listing.
type PostFilter struct {
	Subnoddit  string
	AuthorID   uint
	FollowedBy uint
	Search     string
	Sort       string
	Page
}

// PostService manages posts and their listings.
type PostService struct {
	db *gorm.DB
}

// NewPostService creates a new PostService instance.
func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db}
}

// Create stores a new post by userID in the named subnoddit.
func (s *PostService) Create(ctx context.Context, userID uint, in PostInput) (*models.Post, error) {
	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	link, err := cleanLink(in.Link)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := requireActiveUser(db, userID); err != nil {
		return nil, err
	}
	sub, err := findSubnoddit(db, in.Subnoddit)
	if err != nil {
		return nil, err
	}

	post := models.Post{
		UserID:      userID,
		SubnodditID: sub.ID,
		Title:       title,
		Text:        utils.Sanitize(in.Text),
		Link:        link,
	}
	if err := db.Create(&post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return s.load(ctx, post.ID)
}

// Get loads a post with its author and subnoddit.
func (s *PostService) Get(ctx context.Context, postID uint) (*models.Post, error) {
	var cached models.Post
	if utils.CacheGetJSON(postCacheKey(postID), &cached) {
		return &cached, nil
	}
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	utils.CacheSetJSON(postCacheKey(postID), post, 0)
	return post, nil
}

func (s *PostService) load(ctx context.Context, postID uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Preload("User").Preload("Subnoddit").First(&post, postID).Error; err != nil {
		return nil, notFoundOr("post", err)
	}
	return &post, nil
}

// Update edits a post owned by userID.
func (s *PostService) Update(ctx context.Context, userID, postID uint, in PostUpdate) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		return nil, notFoundOr("post", err)
	}
	if post.UserID != userID {
		return nil, fmt.Errorf("edit post %d: %w", postID, ErrForbidden)
	}

	changes := map[string]interface{}{}
	if in.Title != nil {
		title, err := cleanTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		changes["title"] = title
	}
	if in.Text != nil {
		changes["text"] = utils.Sanitize(*in.Text)
	}
	if in.Link != nil {
		link, err := cleanLink(*in.Link)
		if err != nil {
			return nil, err
		}
		changes["link"] = link
	}
	if len(changes) > 0 {
		if err := s.db.WithContext(ctx).Model(&post).Updates(changes).Error; err != nil {
			return nil, fmt.Errorf("update post: %w", err)
		}
		utils.InvalidateByPrefix(postCacheKey(postID))
	}
	return s.load(ctx, postID)
}

// Delete removes a post with its comments, votes and view counters. Only the author or an admin may do it.
func (s *PostService) Delete(ctx context.Context, userID, postID uint, isAdmin bool) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, postID).Error; err != nil {
			return notFoundOr("post", err)
		}
		if post.UserID != userID && !isAdmin {
			return fmt.Errorf("delete post %d: %w", postID, ErrForbidden)
		}

		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.PostVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.PostView{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		return err
	}
	utils.InvalidateByPrefix(postCacheKey(postID))
	utils.InvalidateByPrefix(commentsCacheKey(postID))
	return nil
}

// List returns one page of posts matching f and the number of matching posts.
func (s *PostService) List(ctx context.Context, f PostFilter) ([]models.Post, int64, error) {
	mode := strings.ToLower(strings.TrimSpace(f.Sort))
	switch mode {
	case "":
		mode = SortNew
	case SortNew, SortTop, SortHot:
	default:
		return nil, 0, invalid("unknown post sort %q", f.Sort)
	}
	page := f.Page.normalize()

	query := s.db.WithContext(ctx).Model(&models.Post{})
	if f.Subnoddit != "" {
		sub, err := findSubnoddit(s.db.WithContext(ctx), f.Subnoddit)
		if err != nil {
			return nil, 0, err
		}
		query = query.Where("subnoddit_id = ?", sub.ID)
	}
	if f.AuthorID != 0 {
		query = query.Where("user_id = ?", f.AuthorID)
	}
	if f.FollowedBy != 0 {
		followees := s.db.Model(&models.Follower{}).Select("followee_id").Where("follower_id = ?", f.FollowedBy)
		query = query.Where("user_id IN (?)", followees)
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(text) LIKE ?", like, like)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	posts := []models.Post{}
	listing := query.Preload("User").Preload("Subnoddit")
	switch mode {
	case SortTop:
		listing = listing.Order("points DESC").Order("created_at DESC").Order("id DESC").
			Offset(page.offset()).Limit(page.PageSize)
	case SortHot:
		listing = listing.Order("created_at DESC").Order("id DESC").Limit(HotWindow)
	default:
		listing = listing.Order("created_at DESC").Order("id DESC").
			Offset(page.offset()).Limit(page.PageSize)
	}
	if err := listing.Find(&posts).Error; err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	if mode == SortHot {
		RankHot(posts, time.Now())
		if total > HotWindow {
			total = HotWindow
		}
		start := page.offset()
		if start >= len(posts) {
			return []models.Post{}, total, nil
		}
		end := start + page.PageSize
		if end > len(posts) {
			end = len(posts)
		}
		posts = posts[start:end]
	}
	return posts, total, nil
}

// Feed lists posts written by users that userID follows.
func (s *PostService) Feed(ctx context.Context, userID uint, sortMode string, page Page) ([]models.Post, int64, error) {
	return s.List(ctx, PostFilter{FollowedBy: userID, Sort: sortMode, Page: page})
}

// HotScore ranks a post by points decayed over its age in hours.
func HotScore(points int, createdAt, now time.Time) float64 {
	age := now.Sub(createdAt).Hours()
	if age < 0 {
		age = 0
	}
	return float64(points) / math.Pow(age+2, 1.5)
}

// RankHot orders posts by HotScore, newest first on ties.
func RankHot(posts []models.Post, now time.Time) {
	sort.SliceStable(posts, func(i, j int) bool {
		si := HotScore(posts[i].Points, posts[i].CreatedAt, now)
		sj := HotScore(posts[j].Points, posts[j].CreatedAt, now)
		if si != sj {
			return si > sj
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}

func cleanTitle(raw string) (string, error) {
	title := utils.SanitizePlain(raw)
	if title == "" {
		return "", invalid("title cannot be empty")
	}
	if len([]rune(title)) > MaxTitleLength {
		return "", invalid("title exceeds %d characters", MaxTitleLength)
	}
	return title, nil
}

func cleanLink(raw string) (string, error) {
	link := strings.TrimSpace(raw)
	if link == "" {
		return "", nil
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", invalid("link must be an http or https URL")
	}
	return u.String(), nil
}

func postCacheKey(postID uint) string {
	return fmt.Sprintf("%s%d:", utils.CachePostPrefix, postID)
}
