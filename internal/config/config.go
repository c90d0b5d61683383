package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// WebSocket configuration
	WebSocket WebSocketConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig

	// Analytics computation and arbitration
	Analytics AnalyticsConfig

	// Redis result cache
	Redis RedisConfig

	// CORS for browser clients of the dashboard
	CORS CORSConfig

	// Role is the binary this configuration was loaded for
	Role Role
}

// Role selects which binary's requirements Validate enforces.
type Role string

const (
	RoleAPI       Role = "api"
	RoleDashboard Role = "dashboard"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// StatementTimeout bounds every read issued by the ticket store
	StatementTimeout time.Duration
	AutoMigrate      bool
	MigrationsPath   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	ServiceTokenTTL time.Duration
	ServiceSubject  string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// AnalyticsConfig holds KPI computation and source arbitration settings
type AnalyticsConfig struct {
	RemoteURL               string
	RemoteTimeout           time.Duration
	DebounceWindow          time.Duration
	BacklogThresholdDays    int
	Timezone                string
	SnapshotRefreshInterval time.Duration
}

// Location resolves Timezone, falling back to UTC.
func (a AnalyticsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil || a.Timezone == "" {
		return time.UTC
	}
	return loc
}

// RedisConfig holds the metrics cache connection. An empty Addr disables
// the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// CORSConfig holds cross-origin settings
type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         int
}

// Load loads configuration from environment variables for the given role
func Load(role Role) (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", defaultPort(role)),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:              os.Getenv("DATABASE_URL"),
			MaxOpenConns:     getIntOrDefault("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime:  getDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			StatementTimeout: getDurationOrDefault("DB_STATEMENT_TIMEOUT", 10*time.Second),
			AutoMigrate:      getBoolOrDefault("DB_AUTO_MIGRATE", false),
			MigrationsPath:   getEnvOrDefault("DB_MIGRATIONS_PATH", "migrations"),
		},
		JWT: JWTConfig{
			Secret:          os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  getDurationOrDefault("JWT_ACCESS_TOKEN_TTL", 1*time.Hour),
			ServiceTokenTTL: getDurationOrDefault("JWT_SERVICE_TOKEN_TTL", 5*time.Minute),
			ServiceSubject:  getEnvOrDefault("JWT_SERVICE_SUBJECT", "dashboard"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  getStringSliceOrDefault("WS_ALLOWED_ORIGINS", []string{}),
			ReadBufferSize:  getIntOrDefault("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getIntOrDefault("WS_WRITE_BUFFER_SIZE", 1024),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "service-desk-analytics-"+string(role)),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
		Analytics: AnalyticsConfig{
			RemoteURL:               os.Getenv("ANALYTICS_REMOTE_URL"),
			RemoteTimeout:           getDurationOrDefault("ANALYTICS_REMOTE_TIMEOUT", 5*time.Second),
			DebounceWindow:          getDurationOrDefault("ANALYTICS_DEBOUNCE_WINDOW", 175*time.Millisecond),
			BacklogThresholdDays:    getIntOrDefault("ANALYTICS_BACKLOG_THRESHOLD_DAYS", 7),
			Timezone:                getEnvOrDefault("ANALYTICS_TIMEZONE", "UTC"),
			SnapshotRefreshInterval: getDurationOrDefault("ANALYTICS_SNAPSHOT_REFRESH", time.Minute),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getIntOrDefault("REDIS_DB", 0),
			TTL:      getDurationOrDefault("REDIS_METRICS_TTL", 30*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getStringSliceOrDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			MaxAge:         getIntOrDefault("CORS_MAX_AGE", 300),
		},
		Role: role,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	// Required fields
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}

	// Security validations
	if c.App.Environment == "production" {
		if len(c.JWT.Secret) < 32 {
			errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
		}

		if c.Role == RoleDashboard && len(c.WebSocket.AllowedOrigins) == 0 {
			errs = append(errs, "WS_ALLOWED_ORIGINS must be set in production")
		}
	}

	// Logical validations
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		errs = append(errs, "DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}

	if c.Analytics.BacklogThresholdDays <= 0 {
		errs = append(errs, "ANALYTICS_BACKLOG_THRESHOLD_DAYS must be positive")
	}

	if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("ANALYTICS_TIMEZONE %q is not a known time zone", c.Analytics.Timezone))
	}

	switch c.Role {
	case RoleAPI:
		if c.Redis.Enabled() && c.Redis.TTL <= 0 {
			errs = append(errs, "REDIS_METRICS_TTL must be positive")
		}
	case RoleDashboard:
		if c.Analytics.RemoteURL == "" {
			errs = append(errs, "ANALYTICS_REMOTE_URL is required for the dashboard")
		}
		if c.Analytics.RemoteTimeout <= 0 {
			errs = append(errs, "ANALYTICS_REMOTE_TIMEOUT must be positive")
		}
		if c.Analytics.DebounceWindow <= 0 {
			errs = append(errs, "ANALYTICS_DEBOUNCE_WINDOW must be positive")
		}
		if c.Analytics.SnapshotRefreshInterval <= 0 {
			errs = append(errs, "ANALYTICS_SNAPSHOT_REFRESH must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown role %q", c.Role))
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func defaultPort(role Role) string {
	if role == RoleDashboard {
		return ":8081"
	}
	return ":8080"
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Role: %s, Server: %s, DB: %s, JWT: [REDACTED], Redis: %s, Remote: %s, RateLimit: %v, Environment: %s}",
		c.Role,
		c.Server.Port,
		redactURL(c.Database.URL),
		c.Redis.Addr,
		c.Analytics.RemoteURL,
		c.RateLimit.Enabled,
		c.App.Environment,
	)
}

// redactURL redacts sensitive parts of a database URL
func redactURL(url string) string {
	if url == "" {
		return ""
	}
	// Very basic redaction - in production you'd want something more robust
	if idx := strings.Index(url, "@"); idx > 0 {
		return "[REDACTED]" + url[idx:]
	}
	return "[REDACTED]"
}
