package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"carelistings/internal/api/middleware"
	"carelistings/internal/auth"
	"carelistings/internal/listings"
	"carelistings/internal/realtime"
	"carelistings/internal/storage"
)

// RegisterRoutes 注册 API 路由。公开读取与管理端写入共用同一套端点，
// 写入由访问令牌守护；不存在绕开 API 的写路径。
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient redis.UniversalClient,
	logger *slog.Logger,
	storageClient *storage.Client,
	clamdAddr string,
	publicReadTimeout time.Duration,
	allowedOrigins []string,
) {
	feed := realtime.NewPublisher(redisClient, logger)
	jobsHandler := NewJobsHandler(listings.NewJobRepository(db, feed, logger), asynqClient)
	trainingsHandler := NewTrainingsHandler(listings.NewTrainingRepository(db, feed, logger), asynqClient)
	authHandler := NewAuthHandler(db, authService, redisClient, logger)
	wsHandler := NewWsHandler(redisClient, authService, logger, allowedOrigins)
	assetHandler := NewAssetHandler(storageClient, logger, clamdAddr)
	authMiddleware := middleware.AuthMiddleware(authService)
	readTimeout := middleware.TimeoutMiddleware(publicReadTimeout)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/ws", wsHandler.HandleConnection)

		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		jobs := apiGroup.Group("/jobs")
		{
			jobs.GET("", readTimeout, jobsHandler.ListJobs)
			jobs.GET("/:id", readTimeout, jobsHandler.GetJob)
			jobs.POST("", authMiddleware, jobsHandler.CreateJob)
			jobs.PUT("/:id", authMiddleware, jobsHandler.UpdateJob)
			jobs.DELETE("/:id", authMiddleware, jobsHandler.DeleteJob)
		}

		trainings := apiGroup.Group("/trainings")
		{
			trainings.GET("", readTimeout, trainingsHandler.ListTrainings)
			trainings.GET("/:id", readTimeout, trainingsHandler.GetTraining)
			trainings.POST("", authMiddleware, trainingsHandler.CreateTraining)
			trainings.PUT("/:id", authMiddleware, trainingsHandler.UpdateTraining)
			trainings.DELETE("/:id", authMiddleware, trainingsHandler.DeleteTraining)
		}

		assets := apiGroup.Group("/assets")
		assets.Use(authMiddleware)
		{
			assets.POST("/upload", assetHandler.UploadAsset)
			assets.GET("", assetHandler.ListAssets)
			assets.GET("/view", assetHandler.GetAssetURL)
			assets.DELETE("", assetHandler.DeleteAsset)
		}
	}
}
