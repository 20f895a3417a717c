// internal/config/config.go

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultTokenSecret = "change-me-in-production"

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Storage     StorageConfig
	NATS        NATSConfig
	Feed        FeedConfig
	Identity    IdentityConfig
	Log         LogConfig
	Metrics     MetricsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds Postgres configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// DSN renders the Postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// StorageConfig selects the post store backend
type StorageConfig struct {
	Driver     string // postgres or sqlite
	SQLitePath string
}

// NATSConfig holds NATS configuration. An empty URL selects the in-process bus.
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// FeedConfig holds feed service configuration
type FeedConfig struct {
	MaxPostLength    int
	PostRate         float64 // posts per second per identity
	PostBurst        int
	EventsTopic      string
	LexiconPath      string
	DefaultListLimit int
	MaxListLimit     int
}

// IdentityConfig holds identity service configuration
type IdentityConfig struct {
	TokenSecret string
	TokenIssuer string
	TokenExpiry time.Duration
	AdminEmail  string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig holds Prometheus exposure configuration
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "peerhive"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),
			SQLitePath: getEnv("SQLITE_PATH", "peerhive.db"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", ""),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Feed: FeedConfig{
			MaxPostLength:    getEnvAsInt("FEED_MAX_POST_LENGTH", 1000),
			PostRate:         getEnvAsFloat("FEED_POST_RATE", 0.2),
			PostBurst:        getEnvAsInt("FEED_POST_BURST", 5),
			EventsTopic:      getEnv("FEED_EVENTS_TOPIC", "feed"),
			LexiconPath:      getEnv("LEXICON_PATH", ""),
			DefaultListLimit: getEnvAsInt("FEED_DEFAULT_LIST_LIMIT", 50),
			MaxListLimit:     getEnvAsInt("FEED_MAX_LIST_LIMIT", 500),
		},
		Identity: IdentityConfig{
			TokenSecret: getEnv("IDENTITY_TOKEN_SECRET", defaultTokenSecret),
			TokenIssuer: getEnv("IDENTITY_TOKEN_ISSUER", "peerhive"),
			TokenExpiry: getEnvAsDuration("IDENTITY_TOKEN_EXPIRY", 24*time.Hour),
			AdminEmail:  getEnv("ADMIN_EMAIL", "admin@peerhive.io"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "text")),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	var errs []error

	if config.Identity.TokenSecret == defaultTokenSecret && config.Environment != "development" {
		errs = append(errs, fmt.Errorf("token secret must be set in non-development environments"))
	}
	if strings.TrimSpace(config.Identity.AdminEmail) == "" {
		errs = append(errs, fmt.Errorf("admin email must not be empty"))
	}

	switch config.Storage.Driver {
	case "postgres":
	case "sqlite":
		if config.Storage.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("sqlite path must be set when storage driver is sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", config.Storage.Driver))
	}

	if config.Log.Format != "json" && config.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("unknown log format %q", config.Log.Format))
	}

	if config.Feed.MaxPostLength <= 0 {
		errs = append(errs, fmt.Errorf("max post length must be positive"))
	}
	if config.Feed.PostRate <= 0 || config.Feed.PostBurst <= 0 {
		errs = append(errs, fmt.Errorf("post rate and burst must be positive"))
	}
	if config.Feed.DefaultListLimit <= 0 || config.Feed.MaxListLimit < config.Feed.DefaultListLimit {
		errs = append(errs, fmt.Errorf("list limits must be positive and max >= default"))
	}

	return errors.Join(errs...)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
