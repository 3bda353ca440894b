package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/noddit/services"
	"github.com/cppla/noddit/utils"
)

// SubnodditController manages communities.
type SubnodditController struct {
	subs *services.SubnodditService
}

// NewSubnodditController creates a new SubnodditController instance.
func NewSubnodditController(subs *services.SubnodditService) *SubnodditController {
	return &SubnodditController{subs: subs}
}

// ListSubnoddits returns subnoddits ordered by name, optionally filtered by ?search=.
func (s *SubnodditController) ListSubnoddits(ctx *gin.Context) {
	page := pageFromQuery(ctx)
	subs, total, err := s.subs.List(ctx.Request.Context(), strings.TrimSpace(ctx.Query("search")), page)
	if err != nil {
		respondServiceError(ctx, familySubnoddit, err)
		return
	}
	utils.Success(ctx, paginated(subs, page, total))
}

// GetSubnoddit returns a subnoddit by name.
func (s *SubnodditController) GetSubnoddit(ctx *gin.Context) {
	sub, err := s.subs.GetByName(ctx.Request.Context(), ctx.Param("name"))
	if err != nil {
		respondServiceError(ctx, familySubnoddit, err)
		return
	}
	utils.Success(ctx, gin.H{"subnoddit": sub})
}

// CreateSubnoddit registers a new subnoddit owned by the caller.
func (s *SubnodditController) CreateSubnoddit(ctx *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, familySubnoddit, "invalid request payload")
		return
	}
	userID, ok := requireUser(ctx, familySubnoddit)
	if !ok {
		return
	}

	sub, err := s.subs.Create(ctx.Request.Context(), userID, req.Name, req.Description)
	if err != nil {
		respondServiceError(ctx, familySubnoddit, err)
		return
	}
	utils.Created(ctx, gin.H{"subnoddit": sub})
}

// UpdateSubnoddit changes the description of a subnoddit owned by the caller.
func (s *SubnodditController) UpdateSubnoddit(ctx *gin.Context) {
	var req struct {
		Description string `json:"description"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, familySubnoddit, "invalid request payload")
		return
	}
	userID, ok := requireUser(ctx, familySubnoddit)
	if !ok {
		return
	}

	sub, err := s.subs.UpdateDescription(ctx.Request.Context(), userID, ctx.Param("name"), req.Description)
	if err != nil {
		respondServiceError(ctx, familySubnoddit, err)
		return
	}
	utils.Success(ctx, gin.H{"subnoddit": sub})
}

// DeleteSubnoddit removes an empty subnoddit owned by the caller.
func (s *SubnodditController) DeleteSubnoddit(ctx *gin.Context) {
	userID, ok := requireUser(ctx, familySubnoddit)
	if !ok {
		return
	}
	if err := s.subs.Delete(ctx.Request.Context(), userID, ctx.Param("name"), isAdmin(ctx)); err != nil {
		respondServiceError(ctx, familySubnoddit, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "subnoddit deleted"})
}
