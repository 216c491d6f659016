package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	// Server
	ListenAddr     string
	MetricsAddr    string
	MetricsEnabled bool
	CORSOrigins    []string

	// Database
	DBPath string

	// Google OAuth application credentials
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	JWTSecret string

	// Optional shared history-ID cache; empty means SQLite-backed.
	ValkeyAddr string

	// Optional Pub/Sub topic for mailbox watch registration.
	PubSubTopic string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	jwtSecret, err := getEnvRequiredMinLength("JWT_SECRET", 32)
	if err != nil {
		return nil, fmt.Errorf("security configuration error: %w", err)
	}

	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}

	cfg := &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr:        getEnv("METRICS_ADDR", ":9090"),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		DBPath:             getEnv("DB_PATH", "./data/arc-messenger.db"),
		GoogleClientID:     clientID,
		GoogleClientSecret: clientSecret,
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/callback"),
		JWTSecret:          jwtSecret,
		ValkeyAddr:         os.Getenv("VALKEY_ADDR"),
		PubSubTopic:        os.Getenv("PUBSUB_TOPIC"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvRequiredMinLength returns an error if the environment variable is
// not set or shorter than the minimum required length.
func getEnvRequiredMinLength(key string, minLength int) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s environment variable is required but not set", key)
	}
	if len(value) < minLength {
		return "", fmt.Errorf("%s must be at least %d characters (got %d)", key, minLength, len(value))
	}
	return value, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
