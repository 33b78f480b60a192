package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// HTTP Server
	Port       string
	CORSOrigin string

	// Snapshot store
	DBPath        string
	FlushInterval time.Duration

	// Authentication
	JWTSecret    string
	JWTExpiresIn time.Duration
	BcryptCost   int
}

func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", "3009"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		DBPath:        getEnv("FINANCE_DB_PATH", "./data/finance.sqlite"),
		FlushInterval: getEnvDuration("FLUSH_INTERVAL", 5*time.Second),

		JWTSecret:    getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
		JWTExpiresIn: getEnvDuration("JWT_EXPIRES_IN", time.Hour),
		BcryptCost:   getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// The snapshot directory is created by the store on open; validation
	// only reports problems.
	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	}

	if c.FlushInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid flush interval %v: must be at least 1 second", c.FlushInterval))
	} else if c.FlushInterval > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid flush interval %v: must be at most 1 hour", c.FlushInterval))
	}

	if c.JWTSecret == "" {
		errors = append(errors, "JWT secret cannot be empty")
	}

	if c.JWTExpiresIn < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid JWT expiry %v: must be at least 1 minute", c.JWTExpiresIn))
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errors = append(errors, fmt.Sprintf("invalid bcrypt cost %d: must be between %d and %d", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
