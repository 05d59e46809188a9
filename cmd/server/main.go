package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"stripe_order_bridge/internal/handlers"
	"stripe_order_bridge/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis (optional; configuration reads fall through to the
	// database without it)
	var cache services.Cache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisCache, err := services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
		} else {
			defer redisCache.Close()
			cache = redisCache
		}
	} else {
		log.Println("Warning: REDIS_URL not set, configuration caching disabled")
	}

	// Initialize services
	stripeService := services.NewStripeService()
	eventLog := services.NewEventLogService(db)
	settings := services.NewSettingsService(db, cache)
	paymentOptions := services.NewPaymentOptionService(db, cache)
	orders := services.NewOrderService(db)
	history := services.NewWebhookHistoryService(db)

	// Capture fires as a pre-save interceptor, so every order write sees the
	// prior persisted status.
	captureService := services.NewCaptureService(settings, paymentOptions, stripeService, eventLog)
	orders.RegisterInterceptor(captureService)

	webhookService := services.NewWebhookService(stripeService, orders, paymentOptions, history, eventLog)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Initialize handlers
	stripeHandler := handlers.NewStripeHandler(webhookService, orders, stripeService, settings)

	// Routes
	e.POST("/webhooks/stripe", stripeHandler.HandleWebhook)
	e.POST("/checkout/:orderID", stripeHandler.CreateCheckoutSession)
	e.POST("/admin/settings/capture-status", stripeHandler.SetCaptureStatus)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
