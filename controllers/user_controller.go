package controllers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/cppla/noddit/models"
	"github.com/cppla/noddit/services"
	"github.com/cppla/noddit/utils"
)

// UserController serves public profiles and follow edges.
type UserController struct {
	users     *services.UserService
	followers *services.FollowerService
}

// NewUserController creates a new UserController instance.
func NewUserController(users *services.UserService, followers *services.FollowerService) *UserController {
	return &UserController{users: users, followers: followers}
}

// GetProfile returns the public profile of :username. Authenticated callers also get is_following.
func (u *UserController) GetProfile(ctx *gin.Context) {
	profile, err := u.users.Profile(ctx.Request.Context(), ctx.Param("username"))
	if err != nil {
		respondServiceError(ctx, familyUser, err)
		return
	}

	resp := gin.H{"user": profile}
	if callerID, ok := getUserID(ctx); ok && callerID != profile.ID {
		following, err := u.followers.IsFollowing(ctx.Request.Context(), callerID, profile.ID)
		if err != nil {
			respondServiceError(ctx, familyUser, err)
			return
		}
		resp["is_following"] = following
	}
	utils.Success(ctx, resp)
}

// ListFollowers returns users following :username.
func (u *UserController) ListFollowers(ctx *gin.Context) {
	u.listEdges(ctx, u.followers.Followers)
}

// ListFollowing returns users :username follows.
func (u *UserController) ListFollowing(ctx *gin.Context) {
	u.listEdges(ctx, u.followers.Following)
}

type edgeLister func(ctx context.Context, userID uint, page services.Page) ([]models.User, int64, error)

func (u *UserController) listEdges(ctx *gin.Context, list edgeLister) {
	user, err := u.users.GetByUsername(ctx.Request.Context(), ctx.Param("username"))
	if err != nil {
		respondServiceError(ctx, familyFollow, err)
		return
	}
	page := pageFromQuery(ctx)
	users, total, err := list(ctx.Request.Context(), user.ID, page)
	if err != nil {
		respondServiceError(ctx, familyFollow, err)
		return
	}
	utils.Success(ctx, paginated(users, page, total))
}

// Follow makes the caller follow :username.
func (u *UserController) Follow(ctx *gin.Context) {
	userID, ok := requireUser(ctx, familyFollow)
	if !ok {
		return
	}
	target, err := u.followers.Follow(ctx.Request.Context(), userID, ctx.Param("username"))
	if err != nil {
		respondServiceError(ctx, familyFollow, err)
		return
	}
	utils.Success(ctx, gin.H{"user": target, "following": true})
}

// Unfollow removes the caller's follow edge to :username.
func (u *UserController) Unfollow(ctx *gin.Context) {
	userID, ok := requireUser(ctx, familyFollow)
	if !ok {
		return
	}
	target, err := u.followers.Unfollow(ctx.Request.Context(), userID, ctx.Param("username"))
	if err != nil {
		respondServiceError(ctx, familyFollow, err)
		return
	}
	utils.Success(ctx, gin.H{"user": target, "following": false})
}
