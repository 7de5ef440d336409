package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/receipto/console/config"
	"github.com/receipto/console/handler"
	"github.com/receipto/console/middleware"
	"github.com/receipto/console/pkg/logger"
	"github.com/receipto/console/service"
)

func main() {
	// Load .env overrides if present, then configuration
	_ = godotenv.Load()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully", "backend", cfg.Backend.APIURL)

	// Initialize services
	backendSvc := service.NewBackendService(&cfg.Backend)

	broadcaster := service.NewBroadcaster()
	notifier := service.MultiNotifier{service.LogNotifier{}, broadcaster}

	queue := service.NewUploadQueue(backendSvc, notifier, cfg.CleanupDelay())
	defer queue.Close()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	uploadHandler := handler.NewUploadHandler(queue, &cfg.Upload)
	settingsHandler := handler.NewSettingsHandler(backendSvc)
	categoryHandler := handler.NewCategoryHandler(backendSvc)
	eventsHandler := handler.NewEventsHandler(broadcaster)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Public routes
	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	// Protected routes
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)

		protected.POST("/queue/files", uploadHandler.AddFiles)
		protected.GET("/queue", uploadHandler.ListQueue)
		protected.DELETE("/queue/files/:id", uploadHandler.RemoveFile)
		protected.POST("/queue/submit", uploadHandler.Submit)
		protected.GET("/events", eventsHandler.Stream)

		protected.GET("/settings", settingsHandler.GetSettings)
		protected.PATCH("/settings", settingsHandler.UpdateSettings)
		protected.PATCH("/settings/api-keys", settingsHandler.UpdateAPIKeys)
		protected.PATCH("/settings/llm", settingsHandler.UpdateLLMConfig)
		protected.GET("/llm/models", settingsHandler.GetLLMModels)

		protected.GET("/categories", categoryHandler.List)
		protected.POST("/categories", categoryHandler.Create)
		protected.GET("/categories/:id", categoryHandler.Get)
		protected.PATCH("/categories/:id", categoryHandler.Update)
		protected.DELETE("/categories/:id", categoryHandler.Delete)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second, // long enough for the event stream to flush
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
