package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"incident-feed-service/config"
	"incident-feed-service/database"
	"incident-feed-service/feed"
	"incident-feed-service/geocoder"
	"incident-feed-service/handlers"
	"incident-feed-service/observability"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set log level
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to the database and make sure the schema exists
	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// Wire the feed service
	metrics := observability.NewMetrics()
	nominatim := geocoder.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderTimeout, cfg.GeocoderInterval)
	resolver := geocoder.NewResolver(nominatim, db, metrics)
	svc := feed.NewService(db, resolver, metrics, cfg.DefaultRadiusMiles)

	// Setup HTTP server
	router := setupRouter(handlers.NewHandlers(svc))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}

func setupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	// Add gzip compression middleware
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// API routes
	api := router.Group("/api/v1")
	{
		// Report submission and retrieval
		api.POST("/report", h.SubmitReport)
		api.GET("/reports", h.GetReports)
		api.GET("/reports/:id", h.GetReport)
		api.DELETE("/reports/:id", h.DeleteReport)

		// Proximity queries
		api.POST("/feed", h.Feed)
		api.POST("/reports/nearby", h.Nearby)
		api.GET("/map", h.MapPins)

		// Votes and moderation
		api.POST("/reports/:id/vote", h.Vote)
		api.POST("/reports/:id/verify", h.VerifyReport)
		api.POST("/reports/:id/status", h.SetStatus)
	}

	// Root health check and Prometheus metrics
	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
