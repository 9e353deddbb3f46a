package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestGetEnvWithDefault(t *testing.T) {
	testCases := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		expected     string
	}{
		{
			name:         "should return env value when set",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "from_env",
			expected:     "from_env",
		},
		{
			name:         "should return default when env not set",
			key:          "MISSING_KEY",
			defaultValue: "default_value",
			envValue:     "",
			expected:     "default_value",
		},
		{
			name:         "should return empty string default",
			key:          "EMPTY_KEY",
			defaultValue: "",
			envValue:     "",
			expected:     "",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			// Setup: set environment variable if provided
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key) // cleanup after test
			} else {
				os.Unsetenv(tt.key) // ensure it's not set
			}

			// Execute
			result := GetEnvWithDefault(tt.key, tt.defaultValue)

			// Assert
			if result != tt.expected {
				t.Errorf("GetEnvWithDefault() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	// Helper function to set multiple env vars
	setTestEnv := func() {
		os.Setenv("APP_PORT", "9000")
		os.Setenv("APP_HOST", "0.0.0.0")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("ACCESS_TOKEN_TTL", "600")
		os.Setenv("ENTITLEMENT_SIGNING_KEYS", "first-key-0123456789abcdefghijklmnop, second-key-0123456789abcdefghijklmno")
		os.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
		os.Setenv("TOKEN_RATE_LIMIT", "2.5")
	}

	// Helper function to cleanup env vars
	cleanupTestEnv := func() {
		vars := []string{
			"APP_ENV", "APP_PORT", "APP_HOST", "LOG_LEVEL", "ACCESS_TOKEN_TTL", "AUTH_CODE_TTL",
			"ENTITLEMENT_SIGNING_KEYS", "PAYMENT_WEBHOOK_SECRET", "CORS_ALLOWED_ORIGINS",
			"TOKEN_RATE_LIMIT", "TOKEN_RATE_BURST", "CODE_STORE", "REDIS_URL", "DB_DRIVER", "DATABASE_URL",
		}
		for _, v := range vars {
			os.Unsetenv(v)
		}
	}

	t.Run("successful config load with all env vars", func(t *testing.T) {
		setTestEnv()
		defer cleanupTestEnv()

		config, err := LoadConfig()

		// Should not return error
		if err != nil {
			t.Fatalf("LoadConfig() returned error: %v", err)
		}

		// Verify all values
		if config.Port != 9000 {
			t.Errorf("Port = %d, expected 9000", config.Port)
		}
		if config.Host != "0.0.0.0" {
			t.Errorf("Host = %s, expected 0.0.0.0", config.Host)
		}
		if config.LogLevel != "debug" {
			t.Errorf("LogLevel = %s, expected debug", config.LogLevel)
		}
		if config.AccessTokenTTL != 10*time.Minute {
			t.Errorf("AccessTokenTTL = %s, expected 10m", config.AccessTokenTTL)
		}
		if len(config.EntitlementSigningKeys) != 2 {
			t.Errorf("EntitlementSigningKeys has %d keys, expected 2", len(config.EntitlementSigningKeys))
		}
		if len(config.CORSAllowedOrigins) != 2 {
			t.Errorf("CORSAllowedOrigins = %v, expected two origins", config.CORSAllowedOrigins)
		}
		if config.TokenRateLimit != 2.5 {
			t.Errorf("TokenRateLimit = %v, expected 2.5", config.TokenRateLimit)
		}
		if strings.Contains(config.String(), "first-key") {
			t.Error("String() must not expose signing keys")
		}
	})

	t.Run("should fail with invalid port", func(t *testing.T) {
		cleanupTestEnv()
		os.Setenv("APP_PORT", "not_a_number")
		defer cleanupTestEnv()

		config, err := LoadConfig()

		if err == nil {
			t.Error("LoadConfig() should return error when APP_PORT is invalid")
		}
		if config != nil {
			t.Error("Config should be nil when error occurs")
		}
	})

	t.Run("should use defaults when optional env vars not set", func(t *testing.T) {
		cleanupTestEnv()
		defer cleanupTestEnv()

		config, err := LoadConfig()

		if err != nil {
			t.Fatalf("LoadConfig() returned unexpected error: %v", err)
		}

		// Check defaults
		if config.Port != 8080 {
			t.Errorf("Port = %d, expected default 8080", config.Port)
		}
		if config.Host != "localhost" {
			t.Errorf("Host = %s, expected default localhost", config.Host)
		}
		if config.LogLevel != "info" {
			t.Errorf("LogLevel = %s, expected default info", config.LogLevel)
		}
		if config.AccessTokenTTL != time.Hour || config.AuthCodeTTL != 5*time.Minute {
			t.Errorf("unexpected TTL defaults: %s, %s", config.AccessTokenTTL, config.AuthCodeTTL)
		}
		if config.CodeStore != "database" || config.DBDriver != "sqlite" {
			t.Errorf("unexpected store defaults: %s, %s", config.CodeStore, config.DBDriver)
		}
		if len(config.EntitlementSigningKeys) != 1 {
			t.Errorf("expected the development signing key, got %d keys", len(config.EntitlementSigningKeys))
		}
	})

	t.Run("production requires secrets", func(t *testing.T) {
		cleanupTestEnv()
		os.Setenv("APP_ENV", "production")
		defer cleanupTestEnv()

		if _, err := LoadConfig(); err == nil {
			t.Error("LoadConfig() should fail in production without signing keys")
		}

		os.Setenv("ENTITLEMENT_SIGNING_KEYS", "prod-key-0123456789abcdefghijklmnopqr")
		if _, err := LoadConfig(); err == nil {
			t.Error("LoadConfig() should fail in production without a webhook secret")
		}

		os.Setenv("PAYMENT_WEBHOOK_SECRET", "whsec_prod")
		if _, err := LoadConfig(); err != nil {
			t.Errorf("LoadConfig() returned unexpected error: %v", err)
		}
	})

	t.Run("redis code store needs a url", func(t *testing.T) {
		cleanupTestEnv()
		os.Setenv("CODE_STORE", "redis")
		defer cleanupTestEnv()

		if _, err := LoadConfig(); err == nil {
			t.Error("LoadConfig() should fail when REDIS_URL is missing")
		}
	})

	t.Run("token rate limit must be positive", func(t *testing.T) {
		for _, env := range []struct{ key, value string }{
			{"TOKEN_RATE_LIMIT", "0"},
			{"TOKEN_RATE_LIMIT", "-1.5"},
			{"TOKEN_RATE_BURST", "0"},
		} {
			cleanupTestEnv()
			os.Setenv(env.key, env.value)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("LoadConfig() should fail with %s=%s", env.key, env.value)
			}
		}
		cleanupTestEnv()
	})

	t.Run("should fail with an unknown database driver", func(t *testing.T) {
		cleanupTestEnv()
		os.Setenv("DB_DRIVER", "oracle")
		defer cleanupTestEnv()

		if _, err := LoadConfig(); err == nil {
			t.Error("LoadConfig() should fail with an unknown DB_DRIVER")
		}
	})
}

func TestLevelForEnvironment(t *testing.T) {
	if LevelForEnvironment("development") != logrus.DebugLevel {
		t.Error("development should log at debug level")
	}
	if LevelForEnvironment("production") != logrus.ErrorLevel {
		t.Error("production should log at error level")
	}
	if LevelForEnvironment("staging") != logrus.InfoLevel {
		t.Error("other environments should log at info level")
	}
}

// Benchmark tests (optional but good practice)
func BenchmarkGetEnvWithDefault(b *testing.B) {
	os.Setenv("BENCH_KEY", "test_value")
	defer os.Unsetenv("BENCH_KEY")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GetEnvWithDefault("BENCH_KEY", "default")
	}
}
