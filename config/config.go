package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Port          string
	Env           string
	LogLevel      string
	ServiceName   string
	JWTSecret     string
	AllowedOrigin string
	FrontendURL   string
	// Storage
	StoreDriver    string
	DBUrl          string
	MigrationsPath string
	AutoMigrate    bool
	// DB Config
	DBMaxConns        int32
	DBMinConns        int32
	DBMaxConnIdleTime time.Duration
	// R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2BucketName      string
	R2PublicURL       string
	// Cache
	CacheProductTTL time.Duration
	CacheSitemapTTL time.Duration
	// Upload Configuration
	MaxUploadSizeMB int64
	R2UploadTimeout time.Duration
	// Side channels; empty disables them
	RedisURL     string
	RabbitMQURL  string
	OTLPEndpoint string
	// Business Rules
	MaxCartQuantity      int
	RestockOnCancel      bool
	LoyaltyPointsPerUnit int
	LoyaltySilver        int
	LoyaltyGold          int
	LoyaltyPlatinum      int
}

func LoadConfig() *Config {
	// 1. Check if a specific config file is requested via env var
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("Warning: Failed to load config file '%s': %v", configFile, err)
		} else {
			log.Printf("Loaded configuration from %s", configFile)
		}
	} else {
		// 2. Default fallback: .env for local dev; containers rely on real env vars
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading it, relying on system env vars")
		}
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}
	if cfg.JWTSecret == defaultJWTSecret {
		log.Println("WARNING: Using default JWT secret. Setting up for failure in production.")
	}
	return cfg
}

const defaultJWTSecret = "default_secret_CHANGE_ME"

// FromEnv reads the process environment without loading any file.
func FromEnv() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		ServiceName:   getEnv("SERVICE_NAME", "motoparts-backend"),
		JWTSecret:     getEnv("JWT_SECRET", defaultJWTSecret),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),

		StoreDriver:    getEnv("STORE_DRIVER", StoreDriverPostgres),
		DBUrl:          getEnv("DB_DSN", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		AutoMigrate:    getBoolEnv("AUTO_MIGRATE", true),

		DBMaxConns:        getInt32Env("DB_MAX_CONNS", 50),
		DBMinConns:        getInt32Env("DB_MIN_CONNS", 10),
		DBMaxConnIdleTime: getDurationEnv("DB_MAX_CONN_IDLE_TIME", time.Minute*15),

		// R2 Storage
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		CacheProductTTL: getDurationEnv("CACHE_PRODUCT_TTL", 10*time.Minute),
		CacheSitemapTTL: getDurationEnv("CACHE_SITEMAP_TTL", time.Hour),

		// Upload defaults: 10MB max, 30s timeout
		MaxUploadSizeMB: getInt64Env("MAX_UPLOAD_SIZE_MB", 10),
		R2UploadTimeout: getDurationEnv("R2_UPLOAD_TIMEOUT", 30*time.Second),

		RedisURL:     getEnv("REDIS_URL", ""),
		RabbitMQURL:  getEnv("RABBITMQ_URL", ""),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		MaxCartQuantity:      getIntEnv("MAX_CART_QUANTITY", 1000),
		RestockOnCancel:      getBoolEnv("RESTOCK_ON_CANCEL", false),
		LoyaltyPointsPerUnit: getIntEnv("LOYALTY_POINTS_PER_UNIT", 1),
		LoyaltySilver:        getIntEnv("LOYALTY_SILVER", 500),
		LoyaltyGold:          getIntEnv("LOYALTY_GOLD", 2000),
		LoyaltyPlatinum:      getIntEnv("LOYALTY_PLATINUM", 5000),
	}
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DBUrl == "" {
			return errors.New("DB_DSN environment variable is required for the postgres store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.MaxCartQuantity <= 0 {
		return errors.New("MAX_CART_QUANTITY must be positive")
	}
	if c.LoyaltyPointsPerUnit < 0 {
		return errors.New("LOYALTY_POINTS_PER_UNIT must not be negative")
	}
	if c.LoyaltySilver <= 0 || c.LoyaltyGold <= c.LoyaltySilver || c.LoyaltyPlatinum <= c.LoyaltyGold {
		return errors.New("LOYALTY_SILVER < LOYALTY_GOLD < LOYALTY_PLATINUM must be positive and ascending")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s, using fallback", key)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
		log.Printf("Invalid int for %s, using fallback", key)
	}
	return fallback
}

func getInt64Env(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
		log.Printf("Invalid int64 for %s, using fallback", key)
	}
	return fallback
}
