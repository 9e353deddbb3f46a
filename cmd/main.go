package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/franciscosanchezn/gin-entitlement-auth/docs" // Import generated docs
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/auth"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/config"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/controllers"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/database"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/entitlement"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/middleware"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/services"
	"github.com/franciscosanchezn/gin-entitlement-auth/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

var (
	db            *gorm.DB
	configuration *config.Config
	dependencies  controllers.Dependencies
)

// @title Entitlement Auth API
// @version 1.0
// @description OAuth2 authorization server with PKCE and signed application entitlements
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and an access token.
func main() {
	// Load environment variables
	loadDotenvFile()

	// Initialize logger
	setUpLogger()

	// Load configuration
	configuration = loadConfig()
	configureLogOutput(configuration)

	// Initialize database connection
	setupDatabase(configuration)

	// Initialize stores, services and signing keys
	dependencies = setupDependencies(configuration)

	// Initialize Gin router
	var router *gin.Engine = setupRouter(configuration)

	// Start the server
	runServer(router, configuration)
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment
func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(config.LevelForEnvironment(config.GetEnvWithDefault("APP_ENV", "development")))
}

// configureLogOutput applies LOG_LEVEL and LOG_FILE once the configuration is known
func configureLogOutput(conf *config.Config) {
	if os.Getenv("LOG_LEVEL") != "" {
		level, err := log.ParseLevel(conf.LogLevel)
		if err != nil {
			log.WithError(err).Warnf("Ignoring invalid LOG_LEVEL %q", conf.LogLevel)
		} else {
			log.SetLevel(level)
		}
	}

	if conf.LogFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   conf.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotating))
		log.WithField("log_file", conf.LogFile).Info("Logging to rotating file")
	}
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	log.Info("Loading configuration from environment variables")
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	log.Infof("Configuration loaded: %s", conf)
	return conf
}

// setupDatabase initializes the database connection and migrates the schema
// The application catalog is seeded outside production
func setupDatabase(conf *config.Config) *gorm.DB {
	var err error
	db, err = database.InitDatabase(database.DatabaseConfig{
		Driver:   conf.DBDriver,
		Host:     conf.DBHost,
		Port:     conf.DBPort,
		User:     conf.DBUser,
		Password: conf.DBPassword,
		Name:     conf.DBName,
		SSLMode:  conf.DBSSLMode,
		URL:      conf.DatabaseURL,
		Path:     conf.DBPath,
	})
	checkPanicErr(err)

	// Migrate the schema
	checkPanicErr(database.Migrate(db))

	if !conf.IsProduction() {
		log.Info("Seeding development application catalog")
		checkPanicErr(database.SeedApplications(context.Background(), db, database.DevelopmentApplications))
	}
	return db
}

// setupCodeStore selects where authorization codes live between consent and redemption
func setupCodeStore(conf *config.Config) auth.CodeStore {
	if conf.CodeStore != "redis" {
		return auth.NewGormCodeStore(db)
	}

	opts, err := redis.ParseURL(conf.RedisURL)
	checkPanicErr(err)
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	checkPanicErr(client.Ping(ctx).Err())

	log.WithField("redis_addr", opts.Addr).Info("Authorization codes stored in Redis")
	return auth.NewRedisCodeStore(client, "")
}

// setupDependencies builds the stores and services behind the HTTP surface
func setupDependencies(conf *config.Config) controllers.Dependencies {
	userService := services.NewUserService(db)
	clientService := services.NewClientService(db)

	tokenService := auth.NewTokenService(auth.NewGormTokenStore(db), userService, auth.NewOpaqueAccessGenerate(), conf.AccessTokenTTL)
	oauthService := auth.NewOAuthService(clientService, userService, setupCodeStore(conf), tokenService, auth.Config{
		CodeTTL: conf.AuthCodeTTL,
	})

	keys, err := entitlement.NewKeyring(conf.EntitlementSigningKeys...)
	checkPanicErr(err)
	ledger := entitlement.NewLedger(services.NewPurchaseService(db))

	if conf.PaymentWebhookSecret == "" {
		log.Warn("PAYMENT_WEBHOOK_SECRET not set, payment webhooks will be rejected")
	}

	return controllers.Dependencies{
		OAuth:        oauthService,
		Users:        userService,
		Clients:      clientService,
		Applications: services.NewApplicationService(db),
		Issuer:       entitlement.NewIssuer(keys, ledger, conf.EntitlementIssuer),
		Ledger:       ledger,
		Webhook:      webhook.NewVerifier(conf.PaymentWebhookSecret, conf.WebhookTolerance),
		TokenLimiter: middleware.NewIPRateLimiter(conf.TokenRateLimit, conf.TokenRateBurst),
	}
}

// setupRouter initializes the Gin router and sets up the routes
// It returns the configured router
func setupRouter(conf *config.Config) *gin.Engine {
	if conf.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log.StandardLogger()))
	router.Use(middleware.CORS(conf.CORSAllowedOrigins))

	// Define routes
	setupRoutes(router)

	return router
}

// setupRoutes defines the routes for the Gin router
func setupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", healthCheckHandler)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// OAuth2, resource and webhook endpoints
	controllers.RegisterRoutes(router, dependencies)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// runServer serves until SIGINT or SIGTERM, then drains in-flight requests
func runServer(router *gin.Engine, conf *config.Config) {
	server := &http.Server{
		Addr:              fmt.Sprintf("%v:%d", conf.Host, conf.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Forced shutdown")
	}
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "gin-entitlement-auth",
	})
}
