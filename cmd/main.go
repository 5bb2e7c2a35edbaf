package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"order-tracker/internal/config"
	"order-tracker/internal/events"
	"order-tracker/internal/handlers"
	"order-tracker/internal/middleware"
	"order-tracker/internal/models"
	"order-tracker/internal/repository"
	"order-tracker/internal/services"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/rbac"
	"github.com/Tesseract-Nexus/go-shared/tracing"
)

const (
	serviceName    = "order-tracker"
	serviceVersion = "1.0.0"
)

// @title Order Tracker API
// @version 1.0
// @description Order lifecycle, tracking and returns for the storefront and the admin console

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := newLogger(cfg)

	if err := cfg.ValidateAuth(); err != nil {
		logger.WithError(err).Fatal("Invalid auth configuration")
	}

	// Initialize database
	db, err := initDatabase(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}

	// Auto-migrate database schema
	if err := models.Migrate(db); err != nil {
		logger.WithError(err).Fatal("Failed to migrate database")
	}

	// Initialize Redis client (optional - graceful degradation if Redis unavailable)
	redisClient := initRedis(cfg, logger)

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(db, redisClient, cfg.App.CacheTTL)
	returnRepo := repository.NewReturnRepository(db)

	// Initialize NATS events publisher (optional)
	var publisher services.EventPublisher
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize NATS events publisher, continuing without lifecycle events")
		} else {
			publisher = eventsPublisher
			logger.Info("✓ NATS events publisher initialized")
		}
	} else {
		logger.Info("NATS_URL not configured, lifecycle events disabled")
	}

	// Initialize OpenTelemetry tracing
	var tracerProvider *tracing.TracerProvider
	if cfg.IsProduction() {
		tracerProvider, err = tracing.InitTracer(tracing.ProductionConfig(serviceName))
	} else {
		tracerProvider, err = tracing.InitTracer(tracing.DefaultConfig(serviceName))
	}
	if err != nil {
		logger.WithError(err).Warn("Failed to initialize tracing, continuing without tracing")
	} else {
		logger.Info("✓ OpenTelemetry tracing initialized")
	}

	// Initialize Prometheus metrics
	metrics := gosharedmw.InitGlobalMetrics("tesseract", "order_tracker")

	// Initialize RBAC middleware
	rbacMiddleware := rbac.NewMiddlewareWithURL(cfg.App.StaffURL, nil)

	// Initialize services
	orderService := services.NewOrderService(orderRepo, returnRepo, publisher, cfg.Checkout, logger)
	returnService := services.NewReturnService(returnRepo, orderRepo, publisher, logger)
	slipService := services.NewSlipService(cfg.App.StoreName)
	exportService := services.NewExportService(returnRepo, logger)

	// Initialize handlers
	orderHandler := handlers.NewOrderHandler(orderService, logger)
	returnHandler := handlers.NewReturnHandlers(returnService, slipService, exportService, logger)
	healthHandler := handlers.NewHealthHandler(orderRepo, serviceName, serviceVersion)

	router := setupRouter(cfg, logger, orderHandler, returnHandler, healthHandler, metrics, rbacMiddleware)

	srv := &http.Server{
		Addr:    cfg.GetServerAddress(),
		Handler: router,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("Starting Order Tracker")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down Order Tracker...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	if eventsPublisher != nil {
		eventsPublisher.Close()
		logger.Info("✓ Events publisher closed")
	}
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Error shutting down tracer provider")
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("Order Tracker stopped")
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// initDatabase initializes the database connection
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func initRedis(cfg *config.Config, logger *logrus.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not configured, caching disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse Redis URL, continuing without Redis caching")
		return nil
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Failed to connect to Redis, continuing without Redis caching")
		_ = client.Close()
		return nil
	}

	logger.Info("✓ Connected to Redis for caching")
	return client
}

// setupRouter configures the Gin router with middleware and routes
func setupRouter(cfg *config.Config, logger *logrus.Logger, orderHandler *handlers.OrderHandler, returnHandler *handlers.ReturnHandlers, healthHandler *handlers.HealthHandler, metrics *gosharedmw.Metrics, rbacMw *rbac.Middleware) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
	router.Use(gosharedmw.SecurityHeaders())
	router.Use(gosharedmw.RateLimit())
	router.Use(middleware.SetupCORS(cfg.App.AllowedOrigins))

	// Add observability middleware (metrics + tracing)
	router.Use(metrics.Middleware())
	router.Use(tracing.GinMiddleware(serviceName))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gosharedmw.Handler())
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// =============================================================================
	// STOREFRONT ENDPOINTS (customer JWT)
	// =============================================================================
	storefront := router.Group("/api/v1")
	storefront.Use(middleware.RequireTenantID())
	storefront.Use(middleware.CustomerAuth(cfg.App.JWTSecret))
	{
		orders := storefront.Group("/orders")
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListCustomerOrders)
			orders.GET("/:id", orderHandler.GetCustomerOrder)
			orders.GET("/:id/tracking", orderHandler.GetOrderTracking)
			orders.GET("/:id/return-eligibility", orderHandler.CheckReturnEligibility)
			orders.POST("/:id/cancel", orderHandler.CancelCustomerOrder)
		}

		returns := storefront.Group("/returns")
		{
			returns.POST("", returnHandler.CreateReturn)
			returns.GET("", returnHandler.ListCustomerReturns)
			returns.GET("/:id", returnHandler.GetCustomerReturn)
			returns.GET("/:id/slip", returnHandler.GetReturnSlip)
		}
	}

	// =============================================================================
	// ADMIN ENDPOINTS (Istio JWT claims + RBAC)
	// =============================================================================
	admin := router.Group("/api/v1/admin")
	admin.Use(gosharedmw.IstioAuth(gosharedmw.IstioAuthConfig{
		RequireAuth:        true,
		AllowLegacyHeaders: false,
	}))
	admin.Use(middleware.RequireTenantID())
	{
		orders := admin.Group("/orders")
		{
			orders.GET("", rbacMw.RequirePermission(rbac.PermissionOrdersRead), orderHandler.ListOrders)
			orders.GET("/:id", rbacMw.RequirePermission(rbac.PermissionOrdersRead), orderHandler.GetOrder)
			orders.GET("/:id/valid-transitions", rbacMw.RequirePermission(rbac.PermissionOrdersRead), orderHandler.GetValidStatusTransitions)
			orders.PATCH("/:id/status", rbacMw.RequirePermission(rbac.PermissionOrdersUpdate), orderHandler.UpdateOrderStatus)
			orders.PATCH("/:id/payment-status", rbacMw.RequirePermission(rbac.PermissionOrdersUpdate), orderHandler.UpdatePaymentStatus)
			orders.PUT("/:id/tracking", rbacMw.RequirePermission(rbac.PermissionOrdersShip), orderHandler.SetTrackingNumber)
		}

		returns := admin.Group("/returns")
		{
			returns.GET("", rbacMw.RequirePermission(rbac.PermissionReturnsRead), returnHandler.ListReturns)
			returns.GET("/stats", rbacMw.RequirePermission(rbac.PermissionReturnsRead), returnHandler.GetReturnStats)
			returns.GET("/export", rbacMw.RequirePermission(rbac.PermissionReturnsRead), returnHandler.ExportReturns)
			returns.GET("/:id", rbacMw.RequirePermission(rbac.PermissionReturnsRead), returnHandler.GetReturn)
			returns.PATCH("/:id/status", rbacMw.RequirePermission(rbac.PermissionReturnsApprove), returnHandler.UpdateReturnStatus)
		}
	}

	return router
}
