package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/noddit/middleware"
	"github.com/cppla/noddit/models"
	"github.com/cppla/noddit/services"
	"github.com/cppla/noddit/utils"
)

// PostController manages CRUD operations, listings and votes for posts.
type PostController struct {
	posts *services.PostService
	votes *services.VoteService
	users *services.UserService
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService, votes *services.VoteService, users *services.UserService) *PostController {
	return &PostController{posts: posts, votes: votes, users: users}
}

// postResponse is a post annotated with the caller's vote.
type postResponse struct {
	models.Post
	UserVote int `json:"user_vote"`
}

type postRequest struct {
	Subnoddit string `json:"subnoddit"`
	Title     string `json:"title" binding:"required"`
	Text      string `json:"text"`
	Link      string `json:"link"`
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, familyPost, "invalid request payload")
		return
	}
	userID, ok := requireUser(ctx, familyPost)
	if !ok {
		return
	}
	p.create(ctx, userID, req)
}

// CreateSubnodditPost creates a post in the subnoddit named by the path.
func (p *PostController) CreateSubnodditPost(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, familyPost, "invalid request payload")
		return
	}
	userID, ok := requireUser(ctx, familyPost)
	if !ok {
		return
	}
	req.Subnoddit = ctx.Param("name")
	p.create(ctx, userID, req)
}

func (p *PostController) create(ctx *gin.Context, userID uint, req postRequest) {
	post, err := p.posts.Create(ctx.Request.Context(), userID, services.PostInput{
		Subnoddit: req.Subnoddit,
		Title:     req.Title,
		Text:      req.Text,
		Link:      req.Link,
	})
	if err != nil {
		respondServiceError(ctx, familyPost, err)
		return
	}
	utils.Created(ctx, gin.H{"post": postResponse{Post: *post}})
}

// ListPosts returns paginated posts filtered by subnoddit, author and search term.
func (p *PostController) ListPosts(ctx *gin.Context) {
	filter := services.PostFilter{
		Subnoddit: strings.TrimSpace(ctx.Query("subnoddit")),
		Search:    strings.TrimSpace(ctx.Query("search")),
		Sort:      ctx.Query("sort"),
		Page:      pageFromQuery(ctx),
	}
	if author := strings.TrimSpace(ctx.Query("author")); author != "" {
		user, err := p.users.GetByUsername(ctx.Request.Context(), author)
		if err != nil {
			respondServiceError(ctx, familyPost, err)
			return
		}
		filter.AuthorID = user.ID
	}
	p.list(ctx, filter)
}

// ListSubnodditPosts lists posts of the subnoddit named by the path.
func (p *PostController) ListSubnodditPosts(ctx *gin.Context) {
	p.list(ctx, services.PostFilter{
		Subnoddit: ctx.Param("name"),
		Search:    strings.TrimSpace(ctx.Query("search")),
		Sort:      ctx.Query("sort"),
		Page:      pageFromQuery(ctx),
	})
}

// Feed lists posts by users the caller follows.
func (p *PostController) Feed(ctx *gin.Context) {
	userID, ok := requireUser(ctx, familyPost)
	if !ok {
		return
	}
	p.list(ctx, services.PostFilter{FollowedBy: userID, Sort: ctx.Query("sort"), Page: pageFromQuery(ctx)})
}

func (p *PostController) list(ctx *gin.Context, filter services.PostFilter) {
	posts, total, err := p.posts.List(ctx.Request.Context(), filter)
	if err != nil {
		respondServiceError(ctx, familyPost, err)
		return
	}
	items, err := p.annotate(ctx, posts)
	if err != nil {
		respondServiceError(ctx, familyPost, err)
		return
	}
	utils.Success(ctx, paginated(items, filter.Page, total))
}

// GetPost returns a single post.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id", familyPost)
	if !ok {
		return
	}
	post, err := p.posts.Get(ctx.Request.Context(), postID)
	if err != nil {
		respondServiceError(ctx, familyPost, err)
		return
	}
	items, err := p.annotate(ctx, []models.Post{*post})
	if err != nil {
		respondServiceError(ctx, familyPost, err)
		return
	}
	utils.Success(ctx, gin.H{"post": items[0]})
}

// UpdatePost edits title, text or link of the caller's post.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id", familyPost)
	if !ok {
		return
	}
	var req struct {
		Title *string `json:"title"`
		Text  *string `json:"text"`
		Link  *string `json:"link"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, familyPost, "invalid request payload")
		return
	}
	userID, ok := requireUser(ctx, familyPost)
	if !ok {
		return
	}

	post, err := p.posts.Update(ctx.Request.Context(), userID, postID, services.PostUpdate{
		Title: req.Title,
		Text:  req.Text,
		Link:  req.Link,
	})
	if err != nil {
		respondServiceError(ctx, familyPost, err)
		return
	}
	utils.Success(ctx, gin.H{"post": postResponse{Post: *post}})
}

// DeletePost removes the caller's post; admins may remove any post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id", familyPost)
	if !ok {
		return
	}
	userID, ok := requireUser(ctx, familyPost)
	if !ok {
		return
	}
	if err := p.posts.Delete(ctx.Request.Context(), userID, postID, isAdmin(ctx)); err != nil {
		respondServiceError(ctx, familyPost, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "post deleted"})
}

type voteRequest struct {
	Direction *int `json:"direction" binding:"required"`
}

// VotePost toggles the caller's vote on a post.
func (p *PostController) VotePost(ctx *gin.Context) {
	postID, ok := parseIDParam(ctx, "id", familyVote)
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

	res, err := p.votes.VotePost(ctx.Request.Context(), userID, postID, *req.Direction)
	if err != nil {
		respondServiceError(ctx, familyVote, err)
		return
	}
	middleware.RecordVote("post", res.Direction)
	utils.Success(ctx, res)
}

func (p *PostController) annotate(ctx *gin.Context, posts []models.Post) ([]postResponse, error) {
	out := make([]postResponse, len(posts))
	for i := range posts {
		out[i] = postResponse{Post: posts[i]}
	}
	userID, ok := getUserID(ctx)
	if !ok || len(posts) == 0 {
		return out, nil
	}

	votes, err := p.votes.UserVotesForPosts(ctx.Request.Context(), userID, postIDs(posts))
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].UserVote = votes[out[i].ID]
	}
	return out, nil
}

// postIDs returns the distinct ids of posts in listing order.
func postIDs(posts []models.Post) []uint {
	seen := make(map[uint]struct{}, len(posts))
	ids := make([]uint, 0, len(posts))
	for _, post := range posts {
		if _, dup := seen[post.ID]; dup {
			continue
		}
		seen[post.ID] = struct{}{}
		ids = append(ids, post.ID)
	}
	return ids
}
