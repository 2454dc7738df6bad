package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"kodisha_app/internal/handlers"
	appMiddleware "kodisha_app/internal/middleware"
	"kodisha_app/internal/services"
	"kodisha_app/internal/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis (optional; dashboard caching and callback dedup)
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer cache.Close()
	} else {
		log.Println("Warning: REDIS_URL not set, caching disabled")
	}

	// Payment subsystem: gateway variant is chosen here, at construction
	gateway := services.NewGatewayFromEnv()
	paymentStore := store.NewPaymentStore(db)
	paymentService := services.NewPaymentService(paymentStore, gateway)

	reconcileDelay := 45 * time.Second
	if v := os.Getenv("RECONCILE_DELAY_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			reconcileDelay = d
		}
	}
	reconciler := services.NewReconciler(paymentService, reconcileDelay)
	defer reconciler.Close()
	paymentService.AttachReconciler(reconciler)

	// Create Echo instance
	e := echo.New()
	e.HTTPErrorHandler = appMiddleware.CustomErrorHandler

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(db, paymentService, cache)
	propertyHandler := handlers.NewPropertyHandler(db)
	tenantHandler := handlers.NewTenantHandler(db)
	complaintHandler := handlers.NewComplaintHandler(db)
	dashboardHandler := handlers.NewDashboardHandler(db, cache)

	api := e.Group("/api")

	// Payments
	api.POST("/payments", paymentHandler.Initiate)
	api.POST("/payments/callback", paymentHandler.Callback)
	api.GET("/payments", paymentHandler.List)
	api.GET("/payments/:reference", paymentHandler.Status)
	api.POST("/payments/:reference/refund", paymentHandler.Refund)

	// Properties
	api.GET("/properties", propertyHandler.List)
	api.POST("/properties", propertyHandler.Create)
	api.GET("/properties/:id", propertyHandler.Get)
	api.PUT("/properties/:id", propertyHandler.Update)
	api.DELETE("/properties/:id", propertyHandler.Delete)

	// Tenants
	api.GET("/tenants", tenantHandler.List)
	api.POST("/tenants", tenantHandler.Create)
	api.GET("/tenants/:id", tenantHandler.Get)
	api.PUT("/tenants/:id", tenantHandler.Update)
	api.DELETE("/tenants/:id", tenantHandler.Delete)

	// Complaints
	api.GET("/complaints", complaintHandler.List)
	api.POST("/complaints", complaintHandler.Create)
	api.POST("/complaints/:id/resolve", complaintHandler.Resolve)

	// Dashboard
	api.GET("/dashboard", dashboardHandler.Dashboard)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
