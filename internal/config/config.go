package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Payment  PaymentConfig
	Booking  BookingConfig
	Events   EventsConfig
	CORS     CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	RefreshSecret      string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

// AdminConfig holds the fleet administrator credentials.
// PasswordHash is a bcrypt hash, never the plain password.
type AdminConfig struct {
	Email        string
	PasswordHash string
}

// PaymentConfig holds Razorpay gateway configuration
type PaymentConfig struct {
	KeyID          string
	KeySecret      string // SECRET - used for API auth and signature verification
	APIURL         string
	Currency       string
	OrderAttempts  int
	RetryBaseDelay time.Duration
	RefundSpeed    string // "normal" or "optimum"
	Timeout        time.Duration
}

// BookingConfig holds booking workflow tunables
type BookingConfig struct {
	CancelWindow     time.Duration
	StrictBoarding   bool
	SeatHoldsEnabled bool
	SeatHoldTTL      time.Duration
	Timezone         string // IANA name, empty means server local time
}

// EventsConfig holds RabbitMQ configuration for booking lifecycle events
type EventsConfig struct {
	AMQPURL  string // empty disables publishing
	Exchange string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		Admin: AdminConfig{
			Email:        getEnv("ADMIN_EMAIL", ""),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Payment: PaymentConfig{
			KeyID:          getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret:      getEnv("RAZORPAY_KEY_SECRET", ""),
			APIURL:         getEnv("RAZORPAY_API_URL", "https://api.razorpay.com/v1"),
			Currency:       getEnv("PAYMENT_CURRENCY", "INR"),
			OrderAttempts:  getEnvAsInt("PAYMENT_ORDER_MAX_ATTEMPTS", 3),
			RetryBaseDelay: time.Duration(getEnvAsInt("PAYMENT_ORDER_RETRY_BASE_MS", 200)) * time.Millisecond,
			RefundSpeed:    getEnv("PAYMENT_REFUND_SPEED", "normal"),
			Timeout:        time.Duration(getEnvAsInt("PAYMENT_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Booking: BookingConfig{
			CancelWindow:     time.Duration(getEnvAsInt("BOOKING_CANCEL_WINDOW_MINUTES", 30)) * time.Minute,
			StrictBoarding:   getEnvAsBool("BOOKING_STRICT_BOARDING", false),
			SeatHoldsEnabled: getEnvAsBool("BOOKING_SEAT_HOLDS_ENABLED", false),
			SeatHoldTTL:      time.Duration(getEnvAsInt("BOOKING_SEAT_HOLD_TTL_MINUTES", 10)) * time.Minute,
			Timezone:         getEnv("BOOKING_TIMEZONE", ""),
		},
		Events: EventsConfig{
			AMQPURL:  getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "bookings"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.JWT.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	if c.Admin.Email == "" || c.Admin.PasswordHash == "" {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD_HASH are required")
	}

	// The gateway may stay unconfigured only while developing locally
	if c.Server.Environment != "development" {
		if c.Payment.KeyID == "" || c.Payment.KeySecret == "" {
			return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required in %s", c.Server.Environment)
		}
	}

	if c.Payment.RefundSpeed != "normal" && c.Payment.RefundSpeed != "optimum" {
		return fmt.Errorf("invalid PAYMENT_REFUND_SPEED: %s (must be 'normal' or 'optimum')", c.Payment.RefundSpeed)
	}

	if c.Payment.OrderAttempts < 1 {
		return fmt.Errorf("PAYMENT_ORDER_MAX_ATTEMPTS must be at least 1")
	}

	if c.Booking.CancelWindow <= 0 {
		return fmt.Errorf("BOOKING_CANCEL_WINDOW_MINUTES must be positive")
	}

	if c.Booking.SeatHoldsEnabled && c.Booking.SeatHoldTTL <= 0 {
		return fmt.Errorf("BOOKING_SEAT_HOLD_TTL_MINUTES must be positive when seat holds are enabled")
	}

	if _, err := c.Booking.Location(); err != nil {
		return err
	}

	return nil
}

// Location resolves the timezone used for "today" in boarding checks
func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_TIMEZONE %q: %w", b.Timezone, err)
	}
	return loc, nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
