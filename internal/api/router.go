package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/taskmatrix/core/internal/api/handlers"
	"github.com/taskmatrix/core/internal/api/middleware"
	"github.com/taskmatrix/core/internal/config"
	"github.com/taskmatrix/core/internal/services"
	"gorm.io/gorm"
)

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *middleware.AuthManager, error) {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     splitOrigins(cfg.CORSOrigins),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authManager, err := middleware.NewAuthManager(cfg.DataDir, cfg.JWTSecret, middleware.DefaultTokenExpiry)
	if err != nil {
		return nil, nil, err
	}

	// Initialize services
	logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
	userService := services.NewUserService(db)
	taskService := services.NewTaskService(db)
	categoryService := services.NewCategoryService(db)
	notificationService := services.NewNotificationService(db, logService)

	// Start the reminder scheduler
	reminderScheduler := services.NewReminderScheduler(db, taskService, notificationService, logService, cfg.ReminderInterval())
	reminderScheduler.Start()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, authManager.JWTManager, logService)
	userHandler := handlers.NewUserHandler(userService, logService, cfg.InboundDomain)
	taskHandler := handlers.NewTaskHandler(taskService, logService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, logService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	inboundHandler := handlers.NewInboundHandler(userService, taskService, notificationService, logService)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := router.Group("/api")
	{
		// Apply API key middleware to all API routes
		api.Use(middleware.APIKeyMiddleware(authManager.APIKeyManager))

		// Auth routes (API key required, but no JWT required)
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}

		// Inbound email webhook. Mail providers authenticate with the API
		// key only; there is no user session on this path.
		inbound := api.Group("/inbound")
		{
			inbound.POST("/email", inboundHandler.ReceiveEmail)
		}

		// Protected routes (API key + JWT required)
		protected := api.Group("")
		protected.Use(middleware.JWTMiddleware(authManager.JWTManager))
		{
			// Auth routes that require authentication
			protected.POST("/auth/refresh", authHandler.RefreshToken)
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/me", authHandler.GetCurrentUser)

			// User routes
			userGroup := protected.Group("/user")
			{
				userGroup.GET("/profile", userHandler.GetProfile)
				userGroup.PUT("/profile", userHandler.UpdateProfile)
				userGroup.PUT("/inbox-alias", userHandler.SetInboxAlias)
				userGroup.PUT("/password", userHandler.ChangePassword)
			}

			// Task routes
			tasks := protected.Group("/tasks")
			{
				tasks.GET("", taskHandler.ListTasks)
				tasks.GET("/matrix", taskHandler.GetMatrix) // must be before /:id routes
				tasks.POST("", taskHandler.CreateTask)
				tasks.GET("/:id", taskHandler.GetTask)
				tasks.PUT("/:id", taskHandler.UpdateTask)
				tasks.DELETE("/:id", taskHandler.DeleteTask)
				tasks.PUT("/:id/complete", taskHandler.CompleteTask)
				tasks.PUT("/:id/reopen", taskHandler.ReopenTask)
			}

			// Category routes
			categories := protected.Group("/categories")
			{
				categories.GET("", categoryHandler.ListCategories)
				categories.POST("", categoryHandler.CreateCategory)
				categories.PUT("/:id", categoryHandler.UpdateCategory)
				categories.DELETE("/:id", categoryHandler.DeleteCategory)
			}

			// Push subscription routes
			notifications := protected.Group("/notifications")
			{
				notifications.GET("/subscriptions", notificationHandler.ListSubscriptions)
				notifications.POST("/subscriptions", notificationHandler.Subscribe)
				notifications.DELETE("/subscriptions/:id", notificationHandler.Unsubscribe)
			}
		}
	}

	return router, authManager, nil
}

func splitOrigins(origins string) []string {
	if origins == "" || origins == "*" {
		return []string{"*"}
	}
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
