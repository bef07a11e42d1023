package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sourcetrace/internal/domain/tracking"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Twitter     TwitterConfig
	Trace       TraceConfig
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

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	EventsTopic    string
}

// TwitterConfig holds Twitter API credentials
type TwitterConfig struct {
	BearerToken       string
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

// TraceConfig holds tracing engine configuration
type TraceConfig struct {
	Budget              int
	SimThreshold        float64
	HashtagSimThreshold float64
	MinClusterSize      int
	TimelineSize        int
	SearchSize          int
	RateLimitCount      int
	RateLimitWindow     time.Duration
}

// TrackingConfig converts the trace section into an engine config,
// keeping the default scoring weights
func (c TraceConfig) TrackingConfig() tracking.Config {
	cfg := tracking.DefaultConfig()
	cfg.Budget = c.Budget
	cfg.SimThreshold = c.SimThreshold
	cfg.HashtagSimThreshold = c.HashtagSimThreshold
	cfg.MinClusterSize = c.MinClusterSize
	cfg.TimelineSize = c.TimelineSize
	cfg.SearchSize = c.SearchSize
	cfg.RateLimit = tracking.RateLimitConfig{
		Count:  c.RateLimitCount,
		Window: c.RateLimitWindow,
	}
	return cfg
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "sourcetrace"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			EventsTopic:    getEnv("NATS_EVENTS_TOPIC", "trace"),
		},
		Twitter: TwitterConfig{
			BearerToken:       getEnv("TWITTER_BEARER_TOKEN", ""),
			APIKey:            getEnv("TWITTER_API_KEY", ""),
			APISecret:         getEnv("TWITTER_API_SECRET", ""),
			AccessToken:       getEnv("TWITTER_ACCESS_TOKEN", ""),
			AccessTokenSecret: getEnv("TWITTER_ACCESS_TOKEN_SECRET", ""),
		},
		Trace: TraceConfig{
			Budget:              getEnvAsInt("TRACE_BUDGET", 50),
			SimThreshold:        getEnvAsFloat("TRACE_SIM_THRESHOLD", 0.7),
			HashtagSimThreshold: getEnvAsFloat("TRACE_HASHTAG_SIM_THRESHOLD", 0.6),
			MinClusterSize:      getEnvAsInt("TRACE_MIN_CLUSTER_SIZE", 2),
			TimelineSize:        getEnvAsInt("TRACE_TIMELINE_SIZE", 20),
			SearchSize:          getEnvAsInt("TRACE_SEARCH_SIZE", 10),
			RateLimitCount:      getEnvAsInt("TRACE_RATE_LIMIT_COUNT", 100),
			RateLimitWindow:     getEnvAsDuration("TRACE_RATE_LIMIT_WINDOW", 15*time.Minute),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Trace.Budget <= 0 {
		return fmt.Errorf("trace budget must be positive")
	}
	if config.Trace.SimThreshold < 0 || config.Trace.SimThreshold > 1 {
		return fmt.Errorf("similarity threshold must be between 0 and 1")
	}
	if config.Twitter.BearerToken == "" && config.Environment != "development" {
		return fmt.Errorf("twitter bearer token must be set in non-development environments")
	}

	return nil
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
	return strings.Split(valueStr, ",")
}
