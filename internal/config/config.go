package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds all application configuration
type Config struct {
	// Environment name: development, staging, production
	Env string

	// Server configuration
	Server ServerConfig

	// Store selection and connection settings
	Store    StoreConfig
	Database DatabaseConfig
	Mongo    MongoConfig

	// Authentication configuration
	Auth AuthConfig

	// Import configuration
	Import ImportConfig

	// Per-IP request limits
	RateLimit RateLimitConfig

	// Event publishing
	NATS NATSConfig

	// Public card domains
	Domains DomainConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigin      string
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver         string
	MigrationsPath string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// AuthConfig holds token and password settings
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// ImportConfig holds import settings
type ImportConfig struct {
	MaxUploadSize int64 // in bytes
}

// RateLimitConfig holds request rate limits
type RateLimitConfig struct {
	RequestsPerMinute int // 0 disables limiting
}

// NATSConfig holds event broker settings
type NATSConfig struct {
	URL           string
	Token         string
	SubjectPrefix string
}

// DomainConfig holds the origins cards are published under
type DomainConfig struct {
	AI   string
	Main string
	Dev  string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from a .env file, if present, and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := FromEnv()

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv builds the configuration from environment variables only
func FromEnv() *Config {
	return &Config{
		Env: getEnv("ENV", "development"),
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
		},
		Store: StoreConfig{
			Driver:         getEnv("STORE_DRIVER", DriverPostgres),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "digital_cards"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017/digital_cards?replicaSet=rs0"),
			Database:       getEnv("MONGODB_DATABASE", ""),
			ConnectTimeout: getDurationEnv("MONGODB_CONNECT_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			TokenTTL:   getDurationEnv("JWT_TTL", 7*24*time.Hour),
			BcryptCost: getIntEnv("BCRYPT_COST", 10),
		},
		Import: ImportConfig{
			MaxUploadSize: getInt64Env("IMPORT_MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 120),
		},
		NATS: NATSConfig{
			URL:           getEnv("NATS_URL", ""),
			Token:         getEnv("NATS_TOKEN", ""),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", ""),
		},
		Domains: DomainConfig{
			AI:   getEnv("DOMAIN_AI", "https://card.vns.ai.vn"),
			Main: getEnv("DOMAIN_MAIN", "https://card.vnsky.vn"),
			Dev:  getEnv("DOMAIN_DEV", "http://localhost:3000"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGODB_URI is required")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want %s or %s)", c.Store.Driver, DriverPostgres, DriverMongo)
	}

	if c.Auth.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET is required outside development")
		}
		c.Auth.JWTSecret = "dev-secret-change-me"
	}
	if c.Import.MaxUploadSize <= 0 {
		return fmt.Errorf("IMPORT_MAX_UPLOAD_SIZE must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
