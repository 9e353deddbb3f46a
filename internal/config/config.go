package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Create a new instance of the logger
// Configure it to log at the desired level
// and format it as JSON for structured logging
var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(LevelForEnvironment(GetEnvWithDefault("APP_ENV", "development")))
}

// LevelForEnvironment maps APP_ENV to a default log level.
func LevelForEnvironment(environment string) logrus.Level {
	switch environment {
	case "development":
		return logrus.DebugLevel
	case "production":
		return logrus.ErrorLevel
	default:
		// Default to info level for other environments
		return logrus.InfoLevel
	}
}

// Development signing key, refused in production.
const devSigningKey = "development-only-entitlement-signing-key"

// Config used for the application configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Environment string `json:"environment"`
	Port        int    `json:"port"`
	Host        string `json:"host"`

	// Database configuration
	DBDriver    string `json:"db_driver"`
	DBPath      string `json:"db_path"`
	DBHost      string `json:"db_host"`
	DBPort      string `json:"db_port"`
	DBName      string `json:"db_name"`
	DBUser      string `json:"db_user"`
	DBPassword  string `json:"db_password"`
	DBSSLMode   string `json:"db_sslmode"`
	DatabaseURL string `json:"database_url"`

	// Authorization code storage: "database" or "redis"
	CodeStore string `json:"code_store"`
	RedisURL  string `json:"redis_url"`

	// Logging configuration
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// OAuth2 configuration
	AccessTokenTTL time.Duration `json:"access_token_ttl"`
	AuthCodeTTL    time.Duration `json:"auth_code_ttl"`

	// Entitlement configuration
	EntitlementSigningKeys []string `json:"-"`
	EntitlementIssuer      string   `json:"entitlement_issuer"`

	// Payment webhook configuration
	PaymentWebhookSecret string        `json:"-"`
	WebhookTolerance     time.Duration `json:"webhook_tolerance"`

	// HTTP edge configuration
	CORSAllowedOrigins []string `json:"cors_allowed_origins"`
	TokenRateLimit     float64  `json:"token_rate_limit"`
	TokenRateBurst     int      `json:"token_rate_burst"`
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Environment: %s, Port: %d, Host: %s, DBDriver: %s, DBHost: %s, DBName: %s, DBUser: %s, DBPassword: [REDACTED], DatabaseURL: %s, CodeStore: %s, RedisURL: %s, LogLevel: %s, AccessTokenTTL: %s, AuthCodeTTL: %s, EntitlementSigningKeys: [%d REDACTED], PaymentWebhookSecret: [REDACTED], CORSAllowedOrigins: %v}",
		c.Environment, c.Port, c.Host, c.DBDriver, c.DBHost, c.DBName, c.DBUser, maskDatabaseURL(c.DatabaseURL),
		c.CodeStore, maskDatabaseURL(c.RedisURL), c.LogLevel, c.AccessTokenTTL, c.AuthCodeTTL,
		len(c.EntitlementSigningKeys), c.CORSAllowedOrigins)
}

// maskDatabaseURL masks password in database URL
func maskDatabaseURL(dbURL string) string {
	if dbURL == "" {
		return ""
	}

	parsed, err := url.Parse(dbURL)
	if err != nil {
		return "[REDACTED_INVALID_URL]"
	}

	if parsed.User != nil {
		// Replace password with [REDACTED]
		parsed.User = url.UserPassword(parsed.User.Username(), "[REDACTED]")
	}

	return parsed.String()
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// It also validates formats like DatabaseURL and RedisURL
// Returns an error if any required environment variable is missing or invalid
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config := &Config{
		Environment:          GetEnvWithDefault("APP_ENV", "development"),
		Port:                 port,
		Host:                 GetEnvWithDefault("APP_HOST", "localhost"),
		DBDriver:             strings.ToLower(GetEnvWithDefault("DB_DRIVER", "sqlite")),
		DBPath:               GetEnvWithDefault("DB_PATH", "entitlement-auth.db"),
		DBHost:               GetEnvWithDefault("DB_HOST", "localhost"),
		DBPort:               GetEnvWithDefault("DB_PORT", "5432"),
		DBName:               GetEnvWithDefault("DB_NAME", "entitlement_auth"),
		DBUser:               GetEnvWithDefault("DB_USER", "user"),
		DBPassword:           GetEnvWithDefault("DB_PASSWORD", "password"),
		DBSSLMode:            GetEnvWithDefault("DB_SSLMODE", "disable"),
		DatabaseURL:          GetEnvWithDefault("DATABASE_URL", ""),
		CodeStore:            strings.ToLower(GetEnvWithDefault("CODE_STORE", "database")),
		RedisURL:             GetEnvWithDefault("REDIS_URL", ""),
		LogLevel:             GetEnvWithDefault("LOG_LEVEL", "info"),
		LogFile:              GetEnvWithDefault("LOG_FILE", ""),
		AccessTokenTTL:       time.Duration(GetEnvAsType("ACCESS_TOKEN_TTL", 3600)) * time.Second,
		AuthCodeTTL:          time.Duration(GetEnvAsType("AUTH_CODE_TTL", 300)) * time.Second,
		EntitlementIssuer:    GetEnvWithDefault("ENTITLEMENT_ISSUER", "gin-entitlement-auth"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		WebhookTolerance:     time.Duration(GetEnvAsType("WEBHOOK_TOLERANCE", 300)) * time.Second,
		CORSAllowedOrigins:   splitList(GetEnvWithDefault("CORS_ALLOWED_ORIGINS", "")),
		TokenRateLimit:       GetEnvAsType("TOKEN_RATE_LIMIT", 10.0),
		TokenRateBurst:       GetEnvAsType("TOKEN_RATE_BURST", 20),
	}
	config.EntitlementSigningKeys = splitList(os.Getenv("ENTITLEMENT_SIGNING_KEYS"))

	if err := config.validate(); err != nil {
		return nil, err
	}

	if len(config.EntitlementSigningKeys) == 0 {
		log.Warn("ENTITLEMENT_SIGNING_KEYS not set, using the development signing key")
		config.EntitlementSigningKeys = []string{devSigningKey}
	}

	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (supported: postgres, sqlite)", c.DBDriver)
	}

	if c.DatabaseURL != "" {
		// validate URL with net/url
		if _, err := url.ParseRequestURI(c.DatabaseURL); err != nil {
			return fmt.Errorf("invalid DATABASE_URL format: %w", err)
		}
	}

	switch c.CodeStore {
	case "database":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when CODE_STORE=redis")
		}
	default:
		return fmt.Errorf("unsupported CODE_STORE %q (supported: database, redis)", c.CodeStore)
	}

	if c.AccessTokenTTL <= 0 || c.AuthCodeTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL and AUTH_CODE_TTL must be positive")
	}
	if c.AuthCodeTTL > 10*time.Minute {
		return errors.New("AUTH_CODE_TTL must not exceed 600 seconds")
	}
	if c.TokenRateLimit <= 0 || c.TokenRateBurst <= 0 {
		return errors.New("TOKEN_RATE_LIMIT and TOKEN_RATE_BURST must be positive")
	}

	if c.IsProduction() {
		if len(c.EntitlementSigningKeys) == 0 {
			return errors.New("ENTITLEMENT_SIGNING_KEYS environment variable is required in production")
		}
		if c.PaymentWebhookSecret == "" {
			return errors.New("PAYMENT_WEBHOOK_SECRET environment variable is required in production")
		}
	}
	return nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default value: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case float64:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return defaultValue
		}
		return any(floatValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}
