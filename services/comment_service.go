package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/noddit/models"
	"github.com/cppla/noddit/utils"
)

// MaxCommentLength bounds comment text in runes.
const MaxCommentLength = 10000

// CommentNode is a comment with its nested replies.
type CommentNode struct {
	models.Comment
	UserVote int            `json:"user_vote"`
	Replies  []*CommentNode `json:"replies"`
}

// CommentTree is one page of top-level comments of a post.
type CommentTree struct {
	Comments []*CommentNode `json:"comments"`
	Total    int64          `json:"total"`
}

// TreeOptions controls ordering and pagination of a comment tree.
type TreeOptions struct {
	Sort string
	Page
}

// Walk visits every node of the forest depth-first.
func Walk(nodes []*CommentNode, fn func(*CommentNode)) {
	for _, n := range nodes {
		fn(n)
		Walk(n.Replies, fn)
	}
}

// CommentService owns threaded comments.
type CommentService struct {
	db *gorm.DB
}

// NewCommentService creates a new CommentService instance.
func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

// Create adds a comment to postID, optionally as a reply to parentID.
func (s *CommentService) Create(ctx context.Context, userID, postID uint, parentID *uint, text string) (*models.Comment, error) {
	body, err := cleanCommentText(text)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{PostID: postID, UserID: userID, ParentID: parentID, Text: body}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActiveUser(tx, userID); err != nil {
			return err
		}
		var post models.Post
		if err := tx.Select("id").First(&post, postID).Error; err != nil {
			return notFoundOr("post", err)
		}
		if parentID != nil {
			var parent models.Comment
			if err := tx.Select("id", "post_id").First(&parent, *parentID).Error; err != nil {
				return notFoundOr("parent comment", err)
			}
			if parent.PostID != postID {
				return invalid("parent comment belongs to another post")
			}
		}
		if err := tx.Create(&comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InvalidateByPrefix(commentsCacheKey(postID))
	utils.InvalidateByPrefix(postCacheKey(postID))
	s.db.WithContext(ctx).Preload("User").First(&comment, comment.ID)
	return &comment, nil
}

// Get loads a single comment with its author.
func (s *CommentService) Get(ctx context.Context, commentID uint) (*models.Comment, error) {
	var c models.Comment
	if err := s.db.WithContext(ctx).Preload("User").First(&c, commentID).Error; err != nil {
		return nil, notFoundOr("comment", err)
	}
	return &c, nil
}

// Update replaces the text of a comment owned by userID.
func (s *CommentService) Update(ctx context.Context, userID, commentID uint, text string) (*models.Comment, error) {
	body, err := cleanCommentText(text)
	if err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("edit comment %d: %w", commentID, ErrForbidden)
	}
	if c.Deleted {
		return nil, invalid("comment was deleted")
	}

	c.Text = body
	if err := s.db.WithContext(ctx).Model(c).Updates(map[string]interface{}{"text": body}).Error; err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	utils.InvalidateByPrefix(commentsCacheKey(c.PostID))
	return c, nil
}

// Delete removes a comment. A comment that still has replies is blanked instead so the thread stays intact.
// Removing the last reply of a blanked comment removes that comment too.
// It reports whether the row was physically removed.
func (s *CommentService) Delete(ctx context.Context, userID, commentID uint, isAdmin bool) (bool, error) {
	var removed bool
	var postID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Comment
		if err := tx.First(&c, commentID).Error; err != nil {
			return notFoundOr("comment", err)
		}
		if c.UserID != userID && !isAdmin {
			return fmt.Errorf("delete comment %d: %w", commentID, ErrForbidden)
		}
		postID = c.PostID

		var replies int64
		if err := tx.Model(&models.Comment{}).Where("parent_id = ?", c.ID).Count(&replies).Error; err != nil {
			return err
		}
		if replies > 0 {
			return tx.Model(&c).Updates(map[string]interface{}{
				"text":    models.DeletedCommentText,
				"deleted": true,
			}).Error
		}

		if err := removeComment(tx, &c); err != nil {
			return err
		}
		removed = true
		return pruneTombstones(tx, c.ParentID)
	})
	if err != nil {
		return false, err
	}
	utils.InvalidateByPrefix(commentsCacheKey(postID))
	if removed {
		utils.InvalidateByPrefix(postCacheKey(postID))
	}
	return removed, nil
}

// removeComment drops c with its votes and decrements the post's comment_count.
func removeComment(tx *gorm.DB, c *models.Comment) error {
	if err := tx.Where("comment_id = ?", c.ID).Delete(&models.CommentVote{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(c).Error; err != nil {
		return err
	}
	return tx.Model(&models.Post{}).Where("id = ? AND comment_count > 0", c.PostID).
		UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
}

// pruneTombstones walks up from parentID removing deleted comments left without replies.
func pruneTombstones(tx *gorm.DB, parentID *uint) error {
	for parentID != nil {
		var parent models.Comment
		err := tx.First(&parent, *parentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !parent.Deleted {
			return nil
		}
		var replies int64
		if err := tx.Model(&models.Comment{}).Where("parent_id = ?", parent.ID).Count(&replies).Error; err != nil {
			return err
		}
		if replies > 0 {
			return nil
		}
		if err := removeComment(tx, &parent); err != nil {
			return err
		}
		parentID = parent.ParentID
	}
	return nil
}

// Tree returns one page of top-level comments of postID, each with every nested reply.
func (s *CommentService) Tree(ctx context.Context, postID uint, opts TreeOptions) (*CommentTree, error) {
	mode, err := normalizeCommentSort(opts.Sort)
	if err != nil {
		return nil, err
	}
	page := opts.Page.normalize()

	cacheKey := fmt.Sprintf("%ssort=%s:page=%d:size=%d", commentsCacheKey(postID), mode, page.Page, page.PageSize)
	var cached CommentTree
	if utils.CacheGetJSON(cacheKey, &cached) {
		return &cached, nil
	}

	var post models.Post
	if err := s.db.WithContext(ctx).Select("id").First(&post, postID).Error; err != nil {
		return nil, notFoundOr("post", err)
	}

	var comments []models.Comment
	if err := s.db.WithContext(ctx).Preload("User").
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}

	roots := BuildForest(comments, mode)
	tree := &CommentTree{Total: int64(len(roots)), Comments: []*CommentNode{}}
	if start := page.offset(); start < len(roots) {
		end := start + page.PageSize
		if end > len(roots) {
			end = len(roots)
		}
		tree.Comments = roots[start:end]
	}

	utils.CacheSetJSON(cacheKey, tree, 0)
	return tree, nil
}

// Subtree returns commentID with all of its nested replies.
func (s *CommentService) Subtree(ctx context.Context, commentID uint, sortMode string) (*CommentNode, error) {
	mode, err := normalizeCommentSort(sortMode)
	if err != nil {
		return nil, err
	}

	root, err := s.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}

	var comments []models.Comment
	if err := s.db.WithContext(ctx).Preload("User").
		Where("post_id = ?", root.PostID).
		Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}

	var found *CommentNode
	Walk(BuildForest(comments, mode), func(n *CommentNode) {
		if n.ID == commentID {
			found = n
		}
	})
	if found == nil {
		return nil, fmt.Errorf("comment %d: %w", commentID, ErrNotFound)
	}
	return found, nil
}

// BuildForest links comments by parent id and sorts every sibling list.
// Comments whose parent is missing are treated as top level.
func BuildForest(comments []models.Comment, mode string) []*CommentNode {
	nodes := make(map[uint]*CommentNode, len(comments))
	for i := range comments {
		nodes[comments[i].ID] = &CommentNode{Comment: comments[i], Replies: []*CommentNode{}}
	}

	roots := []*CommentNode{}
	for i := range comments {
		n := nodes[comments[i].ID]
		if pid := comments[i].ParentID; pid != nil && *pid != n.ID {
			if parent, ok := nodes[*pid]; ok {
				parent.Replies = append(parent.Replies, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	sortForest(roots, mode)
	return roots
}

func sortForest(nodes []*CommentNode, mode string) {
	less := commentLess(mode)
	sort.SliceStable(nodes, func(i, j int) bool { return less(nodes[i], nodes[j]) })
	for _, n := range nodes {
		sortForest(n.Replies, mode)
	}
}

func commentLess(mode string) func(a, b *CommentNode) bool {
	switch mode {
	case SortNew:
		return func(a, b *CommentNode) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
	case SortOld:
		return func(a, b *CommentNode) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		}
	default:
		return func(a, b *CommentNode) bool {
			if a.Points != b.Points {
				return a.Points > b.Points
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		}
	}
}

func normalizeCommentSort(mode string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", SortTop:
		return SortTop, nil
	case SortNew:
		return SortNew, nil
	case SortOld:
		return SortOld, nil
	default:
		return "", invalid("unknown comment sort %q", mode)
	}
}

func cleanCommentText(text string) (string, error) {
	body := utils.Sanitize(text)
	if body == "" {
		return "", invalid("comment text cannot be empty")
	}
	if len([]rune(body)) > MaxCommentLength {
		return "", invalid("comment text exceeds %d characters", MaxCommentLength)
	}
	return body, nil
}

func commentsCacheKey(postID uint) string {
	return fmt.Sprintf("%s%d:", utils.CacheCommentsPrefix, postID)
}
