package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/noddit/config"
	"github.com/cppla/noddit/middleware"
	"github.com/cppla/noddit/models"
	"github.com/cppla/noddit/services"
	"github.com/cppla/noddit/utils"
)

// AuthController handles registration, login and the caller's own account.
type AuthController struct {
	users *services.UserService
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{users: users}
}

// Register handles local account registration with bcrypt hashing.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, familyAuth, "invalid request payload")
		return
	}

	// Anti-abuse: cooldown and per-IP daily limit
	ip := ctx.ClientIP()
	if !utils.RegistrationCooldownTry(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many attempts, try again later")
		return
	}
	if !utils.RegistrationDailyLimitCheck(ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily registration limit reached")
		return
	}

	user, err := a.users.Register(ctx.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(ctx, familyAuth, err)
		return
	}
	utils.RegistrationDailyIncrement(ip)

	token, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{
		"token": token,
		"user":  privateUserResponse(*user),
	})
}

// Login verifies user credentials and issues a JWT. The login field accepts a username or an email.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Login    string `json:"login"`
		Username string `json:"username"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, familyAuth, "invalid request payload")
		return
	}
	login := req.Login
	if login == "" {
		login = req.Username
	}

	user, err := a.users.Authenticate(ctx.Request.Context(), login, req.Password)
	if err != nil {
		respondServiceError(ctx, familyAuth, err)
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{
		"token": token,
		"user":  privateUserResponse(*user),
	})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	revokeCurrentToken(ctx)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := requireUser(ctx, familyAuth)
	if !ok {
		return
	}
	user, err := a.users.GetByID(ctx.Request.Context(), userID)
	if err != nil {
		respondServiceError(ctx, familyAuth, err)
		return
	}
	utils.Success(ctx, privateUserResponse(*user))
}

// UpdateProfile allows the authenticated user to update bio and avatar.
func (a *AuthController) UpdateProfile(ctx *gin.Context) {
	userID, ok := requireUser(ctx, familyAuth)
	if !ok {
		return
	}
	var req struct {
		Bio       *string `json:"bio"`
		AvatarURL *string `json:"avatar_url"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, familyAuth, "invalid request payload")
		return
	}

	user, err := a.users.UpdateProfile(ctx.Request.Context(), userID, services.ProfileUpdate{
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		respondServiceError(ctx, familyAuth, err)
		return
	}
	utils.Success(ctx, privateUserResponse(*user))
}

// DeleteAccount soft-deletes the caller and revokes the token used for the request.
func (a *AuthController) DeleteAccount(ctx *gin.Context) {
	userID, ok := requireUser(ctx, familyAuth)
	if !ok {
		return
	}
	if err := a.users.SoftDelete(ctx.Request.Context(), userID); err != nil {
		respondServiceError(ctx, familyAuth, err)
		return
	}
	revokeCurrentToken(ctx)
	utils.Success(ctx, gin.H{"message": "account deleted"})
}

func revokeCurrentToken(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		return
	}
	expiresAt := time.Now().Add(utils.TokenTTL())
	if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
}

// privateUserResponse includes the fields only the account owner may see.
func privateUserResponse(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"bio":        user.Bio,
		"avatar_url": user.AvatarURL,
		"created_at": user.CreatedAt,
		"is_admin":   config.Get().IsAdmin(strings.TrimSpace(user.Username)),
	}
}
