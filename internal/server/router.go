package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/handlers"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/middleware"
)

type RouterConfig struct {
	AuthHandler     *handlers.AuthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	UserHandler     *handlers.UserHandler
	PhotoHandler    *handlers.PhotoHandler
	SearchHandler   *handlers.SearchHandler
	TimelineHandler *handlers.TimelineHandler
	AdminHandler    *handlers.AdminHandler
	SSEHandler      *handlers.SSEHandler

	CORSOrigins []string
	// LocalUploadDir, when set, is served under /uploads for local media storage.
	LocalUploadDir string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	router.POST("/refresh", cfg.AuthHandler.Refresh)

	if strings.TrimSpace(cfg.LocalUploadDir) != "" {
		router.Static("/uploads", cfg.LocalUploadDir)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// User
	protected.GET("/user", cfg.UserHandler.GetMe)
	// SSE
	protected.GET("/sse/stream", cfg.SSEHandler.Stream)

	api := protected.Group("/api")
	{
		// Photos
		api.POST("/photos", cfg.PhotoHandler.Upload)
		api.GET("/photos", cfg.PhotoHandler.List)
		api.GET("/photos/:id", cfg.PhotoHandler.Get)
		api.DELETE("/photos/:id", cfg.PhotoHandler.Delete)
		api.POST("/photos/:id/retag", cfg.PhotoHandler.Retag)
		api.GET("/emotions", cfg.PhotoHandler.Emotions)
		// Read side
		api.GET("/search", cfg.SearchHandler.Search)
		api.GET("/timeline", cfg.TimelineHandler.Timeline)
		// Admin
		api.GET("/admin/usage", cfg.AdminHandler.Usage)
	}

	return router
}
