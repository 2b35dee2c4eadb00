package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"Omerix_API_Informes/internal/api/handlers"
	"Omerix_API_Informes/internal/api/middleware"
	"Omerix_API_Informes/internal/api/routes"
	"Omerix_API_Informes/internal/config"
	dsmongo "Omerix_API_Informes/internal/datasource/mongodb"
	"Omerix_API_Informes/internal/export"
	"Omerix_API_Informes/internal/informes/catalog"
	"Omerix_API_Informes/internal/informes/engine"
	"Omerix_API_Informes/internal/informes/validator"
	repomongo "Omerix_API_Informes/internal/repository/mongodb"
	"Omerix_API_Informes/internal/services"
	"Omerix_API_Informes/internal/utils"
	"Omerix_API_Informes/pkg/aiclient"
	"Omerix_API_Informes/pkg/cache"
	"Omerix_API_Informes/pkg/database"
	"Omerix_API_Informes/pkg/jwt"
	"Omerix_API_Informes/pkg/logger"
)

const version = "1.0.0"

var startTime = time.Now()

func main() {
	cfg := config.Load()

	appLogger := logger.New(cfg.LogLevel, cfg.Environment)
	defer appLogger.Sync()
	appLogger.Info("Starting Omerix API Informes", "version", version, "environment", cfg.Environment)

	// Conectar a MongoDB
	appLogger.Info("Connecting to MongoDB...")
	mongoClient, err := database.NewMongoConnection(cfg.MongoURI, cfg.MongoConnectTimeout)
	if err != nil {
		appLogger.Fatal("Failed to connect to MongoDB", "error", err)
	}
	defer func() {
		if err := database.DisconnectMongoDB(mongoClient); err != nil {
			appLogger.Error("Error disconnecting from MongoDB", "error", err)
		}
	}()
	appLogger.Info("Connected to MongoDB successfully", "tenant_db_prefix", cfg.MongoTenantDBPrefix)

	// Conectar a Redis; sin Redis el servicio funciona sin caché
	var cacheService cache.CacheService = cache.NewNoopCacheService()
	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		appLogger.Info("Connecting to Redis...")
		redisClient, err = database.NewRedisConnection(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			appLogger.Warn("Redis unavailable, running without cache", "error", err)
		} else {
			cacheService = cache.NewRedisCacheService(redisClient, cfg.GetCacheConfig(), appLogger.Named("cache"))
			appLogger.Info("Connected to Redis successfully")
		}
	}
	defer func() {
		if err := cacheService.Close(); err != nil {
			appLogger.Error("Error closing cache", "error", err)
		}
	}()

	jwtService := jwt.NewJWTService(jwt.Config{
		SecretKey:      cfg.JWTSecret,
		AccessTokenTTL: cfg.JWTAccessTTL,
		Issuer:         cfg.JWTIssuer,
	})

	// Núcleo de informes
	informeValidator := validator.New(catalog.Default())
	executionEngine := engine.New(appLogger.Named("engine"),
		engine.WithRetryPolicy(cfg.RetryPolicy()),
		engine.WithTimeout(cfg.Informes.ExecutionTimeout))

	informeService := services.NewInformeService(
		repomongo.NewInformeStore(mongoClient, cfg.MongoTenantDBPrefix, appLogger.Zap()),
		dsmongo.NewProvider(mongoClient, cfg.MongoTenantDBPrefix, appLogger.Zap()),
		informeValidator,
		executionEngine,
		export.Default(),
		cacheService,
		cfg.InformeServiceConfig(),
		appLogger.Zap(),
	)

	requestValidator := utils.NewValidator()
	routeConfig := &routes.RouteConfig{
		InformeHandler: handlers.NewInformeHandler(informeService, requestValidator, appLogger.Zap()),
		AuthMiddleware: middleware.NewAuthMiddleware(jwtService, appLogger.Zap()),
		Logger:         appLogger.Zap(),
	}

	var aiClient *aiclient.Client
	if cfg.AIEnabled() {
		aiClient = aiclient.NewClient(aiclient.ClientConfig{
			BaseURL:   cfg.AI.ServiceURL,
			Token:     cfg.AI.ServiceToken,
			Timeout:   cfg.AI.Timeout,
			UserAgent: "omerix-informes/" + version,
		})
		aiService := services.NewAIIntakeService(aiClient, informeValidator, informeService, cacheService, cfg.AIIntakeConfig(), appLogger.Zap())
		routeConfig.IAHandler = handlers.NewIAHandler(aiService, requestValidator, appLogger.Zap())
	} else {
		appLogger.Info("AI service not configured, /informes/ia disabled")
	}

	if err := routes.ValidateRouteConfig(routeConfig); err != nil {
		appLogger.Fatal("Invalid route configuration", "error", err)
	}

	app := fiber.New(fiber.Config{
		ServerHeader:          "Omerix-API-Informes",
		AppName:               "Omerix API Informes v" + version,
		ErrorHandler:          customErrorHandler(appLogger),
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          cfg.Informes.ExecutionTimeout + 30*time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: cfg.IsProduction(),
	})

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowCredentials = cfg.CORSAllowCredentials
	middleware.SetupMiddleware(app, appLogger, corsConfig)

	app.Get("/health", func(c *fiber.Ctx) error {
		return healthCheckHandler(c, mongoClient, redisClient, aiClient, cfg)
	})
	routes.SetupRoutes(app, routeConfig)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.ServerPort)
		appLogger.Info("Starting HTTP server",
			"address", addr,
			"environment", cfg.Environment,
			"execution_timeout", cfg.Informes.ExecutionTimeout.String(),
			"retry_max_attempts", cfg.Informes.RetryMaxAttempts,
			"ai_enabled", cfg.AIEnabled(),
		)

		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", "error", err)
		}
	}()

	<-sigChan
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited successfully")
}

// healthCheckHandler comprueba MongoDB, Redis y el servicio de IA
func healthCheckHandler(c *fiber.Ctx, mongoClient *mongo.Client, redisClient *redis.Client, aiClient *aiclient.Client, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]interface{}{
		"status":      "ok",
		"timestamp":   time.Now().UTC(),
		"version":     version,
		"environment": cfg.Environment,
		"uptime":      time.Since(startTime).String(),
	}

	check := func(name string, err error, disabled bool) {
		switch {
		case disabled:
			healthStatus[name] = map[string]interface{}{"status": "disabled"}
		case err != nil:
			healthStatus[name] = map[string]interface{}{"status": "error", "error": err.Error()}
			healthStatus["status"] = "degraded"
		default:
			healthStatus[name] = map[string]interface{}{"status": "ok"}
		}
	}

	check("mongodb", mongoClient.Ping(ctx, nil), false)

	var redisErr error
	if redisClient != nil {
		redisErr = redisClient.Ping(ctx).Err()
	}
	check("redis", redisErr, redisClient == nil)

	// el servicio de IA es opcional y no degrada el estado general
	if aiClient != nil {
		if err := aiClient.Health(ctx); err != nil {
			healthStatus["ai"] = map[string]interface{}{"status": "error", "error": err.Error()}
		} else {
			healthStatus["ai"] = map[string]interface{}{"status": "ok"}
		}
	} else {
		healthStatus["ai"] = map[string]interface{}{"status": "disabled"}
	}

	statusCode := fiber.StatusOK
	if healthStatus["status"] == "degraded" {
		statusCode = fiber.StatusServiceUnavailable
	}
	return c.Status(statusCode).JSON(healthStatus)
}

// customErrorHandler respuestas uniformes para errores no gestionados por los handlers
func customErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return utils.ErrorResponse(c, fe.Code, fe.Message, "")
		}

		log.Error("Unhandled error",
			"error", err,
			"path", c.Path(),
			"request_id", middleware.RequestIDFrom(c))
		return utils.HandleError(c, err)
	}
}
