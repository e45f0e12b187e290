package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	DatabaseType   string // sqlite (default), postgres, mysql
	DatabasePath   string // sqlite file path
	DatabaseURL    string // postgres/mysql connection string
	MigrationsPath string

	// HS256 signing secret for bearer tokens
	TokenSecret   string
	TokenDuration time.Duration

	// Operator alerts (SES); disabled when AlertFrom is empty
	AWSRegion     string
	AlertFrom     string
	AlertTo       string
	AlertFromName string

	// Retry budget for transactions on hot wallet/session rows
	TxMaxRetries int
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		ServerPort:     getEnv("PORT", "8080"),
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./goodbodybucks.db"),
		DatabaseURL:    getEnv("DB_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		TokenSecret:    getEnv("TOKEN_SECRET", ""),
		TokenDuration:  getEnvDuration("TOKEN_DURATION", 24*time.Hour),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AlertFrom:      getEnv("SES_FROM_EMAIL", ""),
		AlertTo:        getEnv("ALERT_EMAIL", ""),
		AlertFromName:  getEnv("SES_FROM_NAME", "GoodBody Bucks"),
		TxMaxRetries:   getEnvInt("TX_MAX_RETRIES", 5),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
