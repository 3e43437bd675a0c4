package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"skatt-service/internal/config"
	"skatt-service/internal/database"
	"skatt-service/internal/events"
	"skatt-service/internal/handlers"
	"skatt-service/internal/repository"
	"skatt-service/internal/services"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Connect to database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("✓ Connected to database")

	// Run automated database migrations (schema + seed data)
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis client (optional - graceful degradation if Redis unavailable)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Failed to parse Redis URL: %v", err)
			log.Println("Continuing without Redis caching...")
		} else {
			redisClient = redis.NewClient(opt)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Printf("Warning: Failed to connect to Redis: %v", err)
				log.Println("Continuing without Redis caching...")
				redisClient = nil
			} else {
				log.Println("✓ Connected to Redis for caching")
			}
		}
	} else {
		log.Println("REDIS_URL not configured, caching disabled")
	}

	// Initialize repository
	rateRepo := repository.NewRateRepository(db, redisClient)

	// Initialize NATS events (non-blocking)
	eventLogger := logrus.New()
	eventLogger.SetFormatter(&logrus.JSONFormatter{})
	eventLogger.SetLevel(logrus.InfoLevel)
	go func() {
		if err := events.InitPublisher(eventLogger); err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (events won't be published)", err)
		} else {
			log.Println("✓ NATS events publisher initialized")
		}

		subscriber, err := events.NewSubscriber(rateRepo, eventLogger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events subscriber: %v (rate updates won't be received)", err)
			return
		}
		if err := subscriber.Start(); err != nil {
			log.Printf("WARNING: Failed to start events subscriber: %v", err)
			return
		}
		log.Println("✓ NATS events subscriber started")
	}()

	// Initialize services
	cacheTTL := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	taxCalculator := services.NewTaxCalculator(rateRepo, cacheTTL)

	// Initialize handlers
	taxHandler := handlers.NewTaxHandler(taxCalculator, rateRepo)

	// Setup router
	router := setupRouter(taxHandler, db)

	// Start server
	log.Printf("Skatt Service starting on port %s (env: %s)", cfg.Port, cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// setupRouter configures the HTTP router
func setupRouter(taxHandler *handlers.TaxHandler, db *gorm.DB) *gin.Engine {
	router := gin.Default()

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Health checks
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "skatt-service",
		})
	})

	// Liveness probe - simple check that the service is running
	router.GET("/livez", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Readiness probe - check that DB is accessible
	router.GET("/readyz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(503, gin.H{"status": "error", "message": "database not available"})
			return
		}
		if err := sqlDB.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "error", "message": "database ping failed"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		tax := v1.Group("/tax")
		{
			tax.POST("/calculate", taxHandler.CalculateTax)
			tax.POST("/compare", taxHandler.CompareEntityTypes)
		}

		rates := v1.Group("/rates")
		{
			rates.GET("/defaults", taxHandler.GetDefaultRates)
		}

		municipalities := v1.Group("/municipalities")
		{
			municipalities.GET("", taxHandler.ListMunicipalities)
			municipalities.GET("/:id", taxHandler.GetMunicipality)
			municipalities.POST("", taxHandler.CreateMunicipality)
			municipalities.PUT("/:id", taxHandler.UpdateMunicipality)
			municipalities.DELETE("/:id", taxHandler.DeleteMunicipality)
		}
	}

	return router
}
