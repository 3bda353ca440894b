package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/noddit/middleware"
	"github.com/cppla/noddit/services"
	"github.com/cppla/noddit/utils"
)

// CommentController serves threaded comments and comment votes.
type CommentController struct {
	comments *services.CommentService
	votes    *services.VoteService
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(comments *services.CommentService, votes *services.VoteService) *CommentController {
	return &CommentController{comments: comments, votes: votes}
}

// ListComments returns a page of top-level comments of a post with all nested replies.
func (c *CommentController) ListComments(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id", familyComment)
	if !ok {
		return
	}
	page := pageFromQuery(ctx)
	tree, err := c.comments.Tree(ctx.Request.Context(), postID, services.TreeOptions{
		Sort: ctx.Query("sort"),
		Page: page,
	})
	if err != nil {
		respondServiceError(ctx, familyComment, err)
		return
	}
	if err := c.annotate(ctx, tree.Comments); err != nil {
		respondServiceError(ctx, familyComment, err)
		return
	}
	utils.Success(ctx, paginated(tree.Comments, page, tree.Total))
}

// GetComment returns one comment with its nested replies.
func (c *CommentController) GetComment(ctx *gin.Context) {
	commentID, ok := parseIDParam(ctx, "id", familyComment)
	if !ok {
		return
	}
	node, err := c.comments.Subtree(ctx.Request.Context(), commentID, ctx.Query("sort"))
	if err != nil {
		respondServiceError(ctx, familyComment, err)
		return
	}
	if err := c.annotate(ctx, []*services.CommentNode{node}); err != nil {
		respondServiceError(ctx, familyComment, err)
		return
	}
	utils.Success(ctx, gin.H{"comment": node})
}

// CreateComment adds a comment to a post, optionally replying to parent_id.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id", familyComment)
	if !ok {
		return
	}
	var req struct {
		Text     string `json:"text" binding:"required"`
		ParentID *uint  `json:"parent_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, familyComment, "invalid request payload")
		return
	}
	userID, ok := requireUser(ctx, familyComment)
	if !ok {
		return
	}

	comment, err := c.comments.Create(ctx.Request.Context(), userID, postID, req.ParentID, req.Text)
	if err != nil {
		respondServiceError(ctx, familyComment, err)
		return
	}
	utils.Created(ctx, gin.H{"comment": comment})
}

// UpdateComment replaces the text of the caller's comment.
func (c *CommentController) UpdateComment(ctx *gin.Context) {
	commentID, ok := parseIDParam(ctx, "id", familyComment)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, familyComment, "invalid request payload")
		return
	}
	userID, ok := requireUser(ctx, familyComment)
	if !ok {
		return
	}

	comment, err := c.comments.Update(ctx.Request.Context(), userID, commentID, req.Text)
	if err != nil {
		respondServiceError(ctx, familyComment, err)
		return
	}
	utils.Success(ctx, gin.H{"comment": comment})
}

// DeleteComment removes the caller's comment; admins may remove any comment.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	commentID, ok := parseIDParam(ctx, "id", familyComment)
	if !ok {
		return
	}
	userID, ok := requireUser(ctx, familyComment)
	if !ok {
		return
	}

	removed, err := c.comments.Delete(ctx.Request.Context(), userID, commentID, isAdmin(ctx))
	if err != nil {
		respondServiceError(ctx, familyComment, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "comment deleted", "removed": removed})
}

// VoteComment toggles the caller's vote on a comment.
func (c *CommentController) VoteComment(ctx *gin.Context) {
	commentID, ok := parseIDParam(ctx, "id", familyVote)
	if !ok {
		return
	}
	var req voteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, familyVote, "direction must be 1, -1 or 0")
		return
	}
	userID, ok := requireUser(ctx, familyVote)
	if !ok {
		return
	}

	res, err := c.votes.VoteComment(ctx.Request.Context(), userID, commentID, *req.Direction)
	if err != nil {
		respondServiceError(ctx, familyVote, err)
		return
	}
	middleware.RecordVote("comment", res.Direction)
	utils.Success(ctx, res)
}

func (c *CommentController) annotate(ctx *gin.Context, nodes []*services.CommentNode) error {
	userID, ok := getUserID(ctx)
	if !ok || len(nodes) == 0 {
		return nil
	}
	var ids []uint
	services.Walk(nodes, func(n *services.CommentNode) { ids = append(ids, n.ID) })

	votes, err := c.votes.UserVotesForComments(ctx.Request.Context(), userID, ids)
	if err != nil {
		return err
	}
	services.Walk(nodes, func(n *services.CommentNode) { n.UserVote = votes[n.ID] })
	return nil
}
