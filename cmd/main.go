package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/db"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/handlers"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/logger"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/media"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/middleware"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/repos"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/server"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/services"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/sse"
	"github.com/boyeaalhagie/AI-Personal-Memory-Bank/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	photoRepo := repos.NewPhotoRepo(thePG, log)
	usageLogRepo := repos.NewUsageLogRepo(thePG, log)
	aiCallLogRepo := repos.NewAICallLogRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)

	// Media storage
	mediaStore, err := media.New(log)
	if err != nil {
		log.Error("Could not init media store", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	emojiMap, err := services.LoadEmojiMap(log)
	if err != nil {
		log.Error("Could not load emoji map", "error", err)
		os.Exit(1)
	}
	usageService := services.NewUsageService(log, usageLogRepo)
	taggingService, err := services.NewTaggingService(log, photoRepo, aiCallLogRepo, usageService, mediaStore, openaiClient, emojiMap, sseHub)
	if err != nil {
		log.Error("Could not init TaggingService", "error", err)
		os.Exit(1)
	}
	photoService, err := services.NewPhotoService(log, photoRepo, usageService, mediaStore, taggingService, emojiMap, sseHub)
	if err != nil {
		log.Error("Could not init PhotoService", "error", err)
		os.Exit(1)
	}
	searchService, err := services.NewSearchService(log, photoRepo, usageService)
	if err != nil {
		log.Error("Could not init SearchService", "error", err)
		os.Exit(1)
	}
	timelineService, err := services.NewTimelineService(log, photoRepo, usageService)
	if err != nil {
		log.Error("Could not init TimelineService", "error", err)
		os.Exit(1)
	}
	adminService, err := services.NewAdminService(log, usageLogRepo, usageService)
	if err != nil {
		log.Error("Could not init AdminService", "error", err)
		os.Exit(1)
	}
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	userService := services.NewUserService(log, userRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	photoHandler := handlers.NewPhotoHandler(photoService)
	searchHandler := handlers.NewSearchHandler(searchService)
	timelineHandler := handlers.NewTimelineHandler(timelineService)
	adminHandler := handlers.NewAdminHandler(adminService)
	sseHandler := handlers.NewSSEHandler(sseHub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	localUploadDir := ""
	if strings.ToLower(utils.GetEnv("MEDIA_STORAGE", "local", log)) == "local" {
		localUploadDir = utils.GetEnv("UPLOAD_DIR", "uploads", log)
	}
	var corsOrigins []string
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				corsOrigins = append(corsOrigins, o)
			}
		}
	}
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:     authHandler,
		AuthMiddleware:  authMiddleware,
		UserHandler:     userHandler,
		PhotoHandler:    photoHandler,
		SearchHandler:   searchHandler,
		TimelineHandler: timelineHandler,
		AdminHandler:    adminHandler,
		SSEHandler:      sseHandler,
		CORSOrigins:     corsOrigins,
		LocalUploadDir:  localUploadDir,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
