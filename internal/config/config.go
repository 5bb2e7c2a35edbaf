package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tesseract-Nexus/go-shared/secrets"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Checkout CheckoutConfig
	RedisURL string
	NATSURL  string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxIdleConns int
	MaxOpenConns int
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment    string
	LogLevel       string
	JWTSecret      string
	CacheTTL       time.Duration
	AllowedOrigins []string
	StaffURL       string
	StoreName      string
}

// CheckoutConfig holds the shipping charge rule applied at checkout
type CheckoutConfig struct {
	ShippingCharge        float64
	FreeShippingThreshold float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     secrets.GetDBPassword(), // GCP Secret Manager when enabled, env otherwise
			DBName:       getEnv("DB_NAME", "order_tracker"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
		},
		App: AppConfig{
			Environment:    getEnv("APP_ENV", "development"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			JWTSecret:      secrets.GetJWTSecret(),
			CacheTTL:       time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 600)) * time.Second,
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			StaffURL:       getEnv("STAFF_SERVICE_URL", "http://staff-service:8080"),
			StoreName:      getEnv("STORE_NAME", "Order Tracker"),
		},
		Checkout: CheckoutConfig{
			ShippingCharge:        getEnvAsFloat("SHIPPING_CHARGE", 99),
			FreeShippingThreshold: getEnvAsFloat("FREE_SHIPPING_THRESHOLD", 999),
		},
		RedisURL: getEnv("REDIS_URL", ""),
		NATSURL:  getEnv("NATS_URL", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	}
	if c.Checkout.ShippingCharge < 0 || c.Checkout.FreeShippingThreshold < 0 {
		return fmt.Errorf("shipping charge and free shipping threshold must not be negative")
	}
	return nil
}

// ValidateAuth requires a JWT secret in every environment
func (c *Config) ValidateAuth() error {
	if strings.TrimSpace(c.App.JWTSecret) == "" {
		return fmt.Errorf("JWT secret is required: set JWT_SECRET or JWT_SECRET_NAME")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
