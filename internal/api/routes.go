package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"mainsite/internal/api/middleware"
	"mainsite/internal/auth"
	"mainsite/internal/blog"
	"mainsite/internal/config"
	"mainsite/internal/gate"
	"mainsite/internal/mailer"
	"mainsite/internal/storage"
	"mainsite/internal/visit"
)

// RegisterRoutes wires every endpoint of the site onto the router.
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	cfg *config.Config,
	storageClient *storage.Client,
	dispatcher mailer.Dispatcher,
	aggregator *visit.Aggregator,
	imageService *blog.ImageService,
	authService *auth.AuthService,
	redisClient redis.UniversalClient,
	logger *slog.Logger,
) {
	accessGate := gate.New(db, logger)

	visitHandler := NewVisitHandler(db, aggregator)
	trackHandler := NewTrackHandler(db, dispatcher, storageClient)
	resumeHandler := NewResumeHandler(db, storageClient)
	contactHandler := NewContactHandler(db, dispatcher)
	blogHandler := NewBlogHandler(db, imageService, redisClient, cfg.Upload.MaxBytes, cfg.Upload.MaxPerDay, cfg.Upload.ClamdAddr)
	authHandler := NewAuthHandler(db, authService, redisClient)
	adminHandler := NewAdminHandler(db, storageClient, imageService)
	authMiddleware := middleware.AuthMiddleware(authService)

	router.GET("/web/", middleware.RequireLicense(accessGate, "web"), visitHandler.RecordVisit)

	router.GET("/job/track/", trackHandler.Open)
	router.GET("/job/resume/", trackHandler.Resume)

	router.GET("/resume/", resumeHandler.Serve)
	router.POST("/email/", contactHandler.Submit)

	router.GET("/blog/:slug/", blogHandler.Get)
	router.POST("/upload_image/", blogHandler.UploadImage)

	router.GET("/copy_page/:id/", authMiddleware, CopyPage)

	admin := router.Group("/admin")
	{
		admin.POST("/login", authHandler.Login)
		admin.POST("/refresh", authHandler.Refresh)
		admin.POST("/logout", authHandler.Logout)

		protected := admin.Group("")
		protected.Use(authMiddleware)
		{
			protected.POST("/licenses", adminHandler.CreateLicense)
			protected.PATCH("/licenses/:key", adminHandler.UpdateLicense)

			protected.POST("/websites", adminHandler.CreateWebsite)

			protected.POST("/tracks", adminHandler.CreateTrack)
			protected.DELETE("/tracks/:id", adminHandler.DeleteTrack)
			protected.POST("/tracks/:id/resume", adminHandler.AttachTrackResume)

			protected.POST("/resumes", adminHandler.CreateResume)
			protected.DELETE("/resumes/:id", adminHandler.DeleteResume)

			protected.POST("/blogs", adminHandler.CreateBlog)
			protected.PUT("/blogs/:id", adminHandler.UpdateBlog)
			protected.DELETE("/blogs/:id", adminHandler.DeleteBlog)
		}
	}
}
