package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/noddit/models"
	"github.com/cppla/noddit/utils"
)

// VoteResult is the state of a target after a vote was cast.
type VoteResult struct {
	TargetID  uint `json:"target_id"`
	Direction int  `json:"direction"`
	Points    int  `json:"points"`
}

// VoteService applies toggle votes and keeps the cached points of posts and comments in sync.
type VoteService struct {
	db *gorm.DB
}

// NewVoteService creates a new VoteService instance.
func NewVoteService(db *gorm.DB) *VoteService {
	return &VoteService{db: db}
}

// voteTarget describes one votable table and its vote table.
type voteTarget struct {
	label     string
	table     string
	voteTable string
	fkColumn  string
	newVote   func(userID, targetID uint, dir int) interface{}
}

var (
	postTarget = voteTarget{
		label:     "post",
		table:     "posts",
		voteTable: "post_votes",
		fkColumn:  "post_id",
		newVote: func(userID, targetID uint, dir int) interface{} {
			return &models.PostVote{UserID: userID, PostID: targetID, Direction: dir}
		},
	}
	commentTarget = voteTarget{
		label:     "comment",
		table:     "comments",
		voteTable: "comment_votes",
		fkColumn:  "comment_id",
		newVote: func(userID, targetID uint, dir int) interface{} {
			return &models.CommentVote{UserID: userID, CommentID: targetID, Direction: dir}
		},
	}
)

// NextDirection returns the direction stored after requesting dir while holding current.
// Repeating the held direction resets the vote; 0 always clears it.
func NextDirection(current, dir int) int {
	if dir == models.DirectionNone || current == dir {
		return models.DirectionNone
	}
	return dir
}

// VotePost casts dir (1, -1, or 0 to clear) on a post.
func (s *VoteService) VotePost(ctx context.Context, userID, postID uint, dir int) (VoteResult, error) {
	res, err := s.cast(ctx, postTarget, userID, postID, dir)
	if err != nil {
		return res, err
	}
	utils.InvalidateByPrefix(postCacheKey(postID))
	return res, nil
}

// VoteComment casts dir (1, -1, or 0 to clear) on a comment.
func (s *VoteService) VoteComment(ctx context.Context, userID, commentID uint, dir int) (VoteResult, error) {
	res, err := s.cast(ctx, commentTarget, userID, commentID, dir)
	if err != nil {
		return res, err
	}
	var postIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", commentID).Pluck("post_id", &postIDs).Error; err == nil && len(postIDs) > 0 {
		utils.InvalidateByPrefix(commentsCacheKey(postIDs[0]))
	}
	return res, nil
}

func (s *VoteService) cast(ctx context.Context, t voteTarget, userID, targetID uint, dir int) (VoteResult, error) {
	if dir < models.DirectionDown || dir > models.DirectionUp {
		return VoteResult{}, invalid("direction must be 1, -1 or 0")
	}

	var res VoteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireActiveUser(tx, userID); err != nil {
			return err
		}
		var exists int64
		if err := tx.Table(t.table).Where("id = ?", targetID).Count(&exists).Error; err != nil {
			return fmt.Errorf("load %s: %w", t.label, err)
		}
		if exists == 0 {
			return fmt.Errorf("%s %d: %w", t.label, targetID, ErrNotFound)
		}

		var held []int
		if err := tx.Table(t.voteTable).
			Where("user_id = ? AND "+t.fkColumn+" = ?", userID, targetID).
			Limit(1).
			Pluck("direction", &held).Error; err != nil {
			return fmt.Errorf("load %s vote: %w", t.label, err)
		}
		current := models.DirectionNone
		if len(held) > 0 {
			current = held[0]
		}
		next := NextDirection(current, dir)

		// the unique (user, target) index makes concurrent first votes converge on one row
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: t.fkColumn}},
			DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
		}).Create(t.newVote(userID, targetID, next)).Error; err != nil {
			return fmt.Errorf("save %s vote: %w", t.label, err)
		}

		points, err := sumDirections(tx, t, targetID)
		if err != nil {
			return err
		}
		if err := tx.Table(t.table).Where("id = ?", targetID).UpdateColumn("points", points).Error; err != nil {
			return fmt.Errorf("update %s points: %w", t.label, err)
		}

		res = VoteResult{TargetID: targetID, Direction: next, Points: points}
		return nil
	})
	return res, err
}

func sumDirections(tx *gorm.DB, t voteTarget, targetID uint) (int, error) {
	var points int
	if err := tx.Table(t.voteTable).
		Where(t.fkColumn+" = ?", targetID).
		Select("COALESCE(SUM(direction), 0)").
		Scan(&points).Error; err != nil {
		return 0, fmt.Errorf("sum %s votes: %w", t.label, err)
	}
	return points, nil
}

// UserVotesForPosts returns the caller's non-zero vote per post id.
func (s *VoteService) UserVotesForPosts(ctx context.Context, userID uint, postIDs []uint) (map[uint]int, error) {
	return s.userVotes(ctx, postTarget, userID, postIDs)
}

// UserVotesForComments returns the caller's non-zero vote per comment id.
func (s *VoteService) UserVotesForComments(ctx context.Context, userID uint, commentIDs []uint) (map[uint]int, error) {
	return s.userVotes(ctx, commentTarget, userID, commentIDs)
}

func (s *VoteService) userVotes(ctx context.Context, t voteTarget, userID uint, ids []uint) (map[uint]int, error) {
	out := make(map[uint]int, len(ids))
	if userID == 0 || len(ids) == 0 {
		return out, nil
	}

	var rows []struct {
		TargetID  uint
		Direction int
	}
	if err := s.db.WithContext(ctx).Table(t.voteTable).
		Select(t.fkColumn+" AS target_id, direction").
		Where("user_id = ? AND "+t.fkColumn+" IN ? AND direction <> 0", userID, ids).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load %s votes: %w", t.label, err)
	}
	for _, r := range rows {
		out[r.TargetID] = r.Direction
	}
	return out, nil
}

// ReconcilePoints rewrites points on every post and comment whose cache drifted from its vote rows.
// It returns the number of corrected rows.
func (s *VoteService) ReconcilePoints(ctx context.Context) (int64, error) {
	var fixed int64
	for _, t := range []voteTarget{postTarget, commentTarget} {
		sum := gorm.Expr(fmt.Sprintf("(SELECT COALESCE(SUM(v.direction), 0) FROM %s v WHERE v.%s = %s.id)", t.voteTable, t.fkColumn, t.table))
		res := s.db.WithContext(ctx).Table(t.table).
			Where("points <> ?", sum).
			UpdateColumn("points", sum)
		if res.Error != nil {
			return fixed, fmt.Errorf("reconcile %s points: %w", t.label, res.Error)
		}
		fixed += res.RowsAffected
	}
	return fixed, nil
}
