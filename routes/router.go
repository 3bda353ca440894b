package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/noddit/config"
	"github.com/cppla/noddit/controllers"
	"github.com/cppla/noddit/middleware"
	"github.com/cppla/noddit/services"
	"github.com/cppla/noddit/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if gl, err := accessLogger(cfg); err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", middleware.MetricsHandler())

	userService := services.NewUserService(db)
	postService := services.NewPostService(db)
	commentService := services.NewCommentService(db)
	subService := services.NewSubnodditService(db)
	voteService := services.NewVoteService(db)
	followerService := services.NewFollowerService(db)

	authController := controllers.NewAuthController(userService)
	userController := controllers.NewUserController(userService, followerService)
	postController := controllers.NewPostController(postService, voteService, userService)
	commentController := controllers.NewCommentController(commentService, voteService)
	subController := controllers.NewSubnodditController(subService)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware("auth"))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)
	authGroup.DELETE("/account", middleware.AuthRequired(), authController.DeleteAccount)

	// Public reads; identity is attached when a valid token is sent
	public := api.Group("")
	public.Use(middleware.OptionalAuth())
	public.GET("/users/:username", userController.GetProfile)
	public.GET("/users/:username/followers", userController.ListFollowers)
	public.GET("/users/:username/following", userController.ListFollowing)
	public.GET("/subnoddits", subController.ListSubnoddits)
	public.GET("/subnoddits/:name", subController.GetSubnoddit)
	public.GET("/subnoddits/:name/posts", postController.ListSubnodditPosts)
	public.GET("/posts", postController.ListPosts)
	public.GET("/posts/:id", middleware.PostViewRecorder(db), postController.GetPost)
	public.GET("/posts/:id/comments", commentController.ListComments)
	public.GET("/posts/:id/stats", statsController.GetPostStats)
	public.GET("/comments/:id", commentController.GetComment)
	public.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware("api"))
	protected.GET("/feed", postController.Feed)
	protected.POST("/users/:username/follow", userController.Follow)
	protected.DELETE("/users/:username/follow", userController.Unfollow)
	protected.POST("/subnoddits", subController.CreateSubnoddit)
	protected.PATCH("/subnoddits/:name", subController.UpdateSubnoddit)
	protected.DELETE("/subnoddits/:name", subController.DeleteSubnoddit)
	protected.POST("/subnoddits/:name/posts", postController.CreateSubnodditPost)
	protected.POST("/posts", postController.CreatePost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/posts/:id/vote", postController.VotePost)
	protected.POST("/posts/:id/comments", commentController.CreateComment)
	protected.PUT("/comments/:id", commentController.UpdateComment)
	protected.DELETE("/comments/:id", commentController.DeleteComment)
	protected.POST("/comments/:id/vote", commentController.VoteComment)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

// accessLogger returns the gin access logger. GinPath "stdout" shares the application logger.
func accessLogger(cfg config.AppConfig) (*zap.Logger, error) {
	if cfg.GinPath == "stdout" {
		return utils.Logger, nil
	}
	return utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
}
