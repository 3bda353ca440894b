package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/noddit/config"
	"github.com/cppla/noddit/middleware"
	"github.com/cppla/noddit/models"
	"github.com/cppla/noddit/services"
	"github.com/cppla/noddit/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{
		JWTSecret:                  "test-secret",
		AdminUsernames:             []string{"root"},
		RegisterAttemptCooldownSec: -1,
		RegisterMaxPerIPPerDay:     -1,
	})
	os.Exit(m.Run())
}

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	users  *services.UserService
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel:    "silent",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	users := services.NewUserService(db)
	posts := services.NewPostService(db)
	votes := services.NewVoteService(db)
	followers := services.NewFollowerService(db)

	authC := NewAuthController(users)
	userC := NewUserController(users, followers)
	postC := NewPostController(posts, votes, users)
	commentC := NewCommentController(services.NewCommentService(db), votes)
	subC := NewSubnodditController(services.NewSubnodditService(db))
	statsC := NewStatsController(db)

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/auth/register", authC.Register)
	api.POST("/auth/login", authC.Login)
	api.POST("/auth/logout", middleware.AuthRequired(), authC.Logout)
	api.GET("/auth/me", middleware.AuthRequired(), authC.Me)
	api.PATCH("/auth/profile", middleware.AuthRequired(), authC.UpdateProfile)
	api.DELETE("/auth/account", middleware.AuthRequired(), authC.DeleteAccount)

	pub := api.Group("", middleware.OptionalAuth())
	pub.GET("/users/:username", userC.GetProfile)
	pub.GET("/users/:username/followers", userC.ListFollowers)
	pub.GET("/users/:username/following", userC.ListFollowing)
	pub.GET("/subnoddits", subC.ListSubnoddits)
	pub.GET("/subnoddits/:name", subC.GetSubnoddit)
	pub.GET("/subnoddits/:name/posts", postC.ListSubnodditPosts)
	pub.GET("/posts", postC.ListPosts)
	pub.GET("/posts/:id", middleware.PostViewRecorder(db), postC.GetPost)
	pub.GET("/posts/:id/comments", commentC.ListComments)
	pub.GET("/posts/:id/stats", statsC.GetPostStats)
	pub.GET("/comments/:id", commentC.GetComment)
	pub.GET("/stats", statsC.GetStats)

	prot := api.Group("", middleware.AuthRequired())
	prot.GET("/feed", postC.Feed)
	prot.POST("/users/:username/follow", userC.Follow)
	prot.DELETE("/users/:username/follow", userC.Unfollow)
	prot.POST("/subnoddits", subC.CreateSubnoddit)
	prot.PATCH("/subnoddits/:name", subC.UpdateSubnoddit)
	prot.DELETE("/subnoddits/:name", subC.DeleteSubnoddit)
	prot.POST("/subnoddits/:name/posts", postC.CreateSubnodditPost)
	prot.POST("/posts", postC.CreatePost)
	prot.PUT("/posts/:id", postC.UpdatePost)
	prot.DELETE("/posts/:id", postC.DeletePost)
	prot.POST("/posts/:id/vote", postC.VotePost)
	prot.POST("/posts/:id/comments", commentC.CreateComment)
	prot.PUT("/comments/:id", commentC.UpdateComment)
	prot.DELETE("/comments/:id", commentC.DeleteComment)
	prot.POST("/comments/:id/vote", commentC.VoteComment)

	return &testEnv{db: db, router: r, users: users}
}

// signup creates an account directly and returns it with a valid token.
func (e *testEnv) signup(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	user, err := e.users.Register(context.Background(), services.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	token, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTTL())
	require.NoError(t, err)
	return user, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// makePost creates a subnoddit owned by the token holder and a post inside it.
func (e *testEnv) makePost(t *testing.T, token, sub, title string) uint {
	t.Helper()
	w, _ := e.do(t, http.MethodPost, "/api/v1/subnoddits", token, gin.H{"name": sub})
	require.Contains(t, []int{http.StatusCreated, http.StatusConflict}, w.Code)

	w, env := e.do(t, http.MethodPost, "/api/v1/posts", token, gin.H{"subnoddit": sub, "title": title, "text": "body"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode[struct {
		Post struct {
			ID uint `json:"id"`
		} `json:"post"`
	}](t, env.Data)
	return out.Post.ID
}

type listPage[T any] struct {
	Items      []T              `json:"items"`
	Pagination utils.Pagination `json:"pagination"`
}
