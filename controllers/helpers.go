package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/noddit/config"
	"github.com/cppla/noddit/middleware"
	"github.com/cppla/noddit/services"
	"github.com/cppla/noddit/utils"
)

// Endpoint families. Error codes are HTTP status * 100 + family, e.g. 40420 for a missing post.
const (
	familyAuth      = 1
	familyPost      = 20
	familyComment   = 30
	familySubnoddit = 40
	familyUser      = 50
	familyVote      = 60
	familyFollow    = 70
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 {
		pageSize = min(s, services.MaxPageSize)
	}
	return page, pageSize
}

func pageFromQuery(ctx *gin.Context) services.Page {
	page, size := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	return services.Page{Page: page, PageSize: size}
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func isAdmin(ctx *gin.Context) bool {
	unameVal, exists := ctx.Get(middleware.ContextUsernameKey)
	if !exists {
		return false
	}
	uname, _ := unameVal.(string)
	return config.Get().IsAdmin(strings.TrimSpace(uname))
}

// requireUser writes a 401 and reports false when the request has no identity.
func requireUser(ctx *gin.Context, family int) (uint, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, http.StatusUnauthorized*100+family, "unauthorized")
		return 0, false
	}
	return userID, true
}

// parseIDParam reads a positive numeric path parameter, answering 400 when it is malformed.
func parseIDParam(ctx *gin.Context, name string, family int) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, http.StatusBadRequest*100+family, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func badRequest(ctx *gin.Context, family int, message string) {
	utils.Error(ctx, http.StatusBadRequest, http.StatusBadRequest*100+family, message)
}

// respondServiceError maps service sentinel errors onto the response envelope.
func respondServiceError(ctx *gin.Context, family int, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		utils.Sugar.Errorw("request failed", "path", ctx.FullPath(), "error", err)
		message = "internal server error"
	}
	utils.Error(ctx, status, status*100+family, message)
}

func paginated(items interface{}, page services.Page, total int64) gin.H {
	return gin.H{
		"items":      items,
		"pagination": utils.NewPagination(page.Page, page.PageSize, total),
	}
}
