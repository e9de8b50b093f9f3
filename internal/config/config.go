// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Aggregator  AggregatorConfig
	Hunt        HuntConfig
	LLM         LLMConfig
	Sources     SourcesConfig
	Cache       CacheConfig
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

// NATSConfig holds NATS configuration. Events are optional; leave Enabled
// false to run without a broker.
type NATSConfig struct {
	Enabled        bool
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// AggregatorConfig holds parallel fetch configuration
type AggregatorConfig struct {
	MaxWorkers    int
	SourceTimeout time.Duration
}

// HuntConfig holds discovery pipeline configuration
type HuntConfig struct {
	BatchSize      int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	BackoffFactor  float64
	DefaultLimit   int
}

// LLMConfig holds classifier API configuration
type LLMConfig struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// SourcesConfig holds per-source credentials and toggles
type SourcesConfig struct {
	Enabled         []string
	GitHubToken     string
	TwitterToken    string
	RedditSubs      []string
	RedditUserAgent string
}

// CacheConfig holds analysis cache configuration
type CacheConfig struct {
	Size int
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "problemhunter"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			Enabled:        getEnvAsBool("NATS_ENABLED", false),
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Aggregator: AggregatorConfig{
			MaxWorkers:    getEnvAsInt("AGGREGATOR_MAX_WORKERS", 5),
			SourceTimeout: getEnvAsDuration("AGGREGATOR_SOURCE_TIMEOUT", 30*time.Second),
		},
		Hunt: HuntConfig{
			BatchSize:      getEnvAsInt("HUNT_BATCH_SIZE", 5),
			BackoffInitial: getEnvAsDuration("HUNT_BACKOFF_INITIAL", 1*time.Second),
			BackoffMax:     getEnvAsDuration("HUNT_BACKOFF_MAX", 30*time.Second),
			BackoffFactor:  getEnvAsFloat("HUNT_BACKOFF_FACTOR", 2.0),
			DefaultLimit:   getEnvAsInt("HUNT_DEFAULT_LIMIT", 25),
		},
		LLM: LLMConfig{
			Endpoint: getEnv("LLM_ENDPOINT", ""),
			Model:    getEnv("LLM_MODEL", "gemini-2.0-flash"),
			APIKey:   getEnv("LLM_API_KEY", ""),
			Timeout:  getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Sources: SourcesConfig{
			Enabled:         getEnvAsSlice("SOURCES_ENABLED", []string{"hackernews", "reddit_rss"}),
			GitHubToken:     getEnv("GITHUB_TOKEN", ""),
			TwitterToken:    getEnv("TWITTER_BEARER_TOKEN", ""),
			RedditSubs:      getEnvAsSlice("REDDIT_SUBREDDITS", nil),
			RedditUserAgent: getEnv("REDDIT_USER_AGENT", "problemhunter/1.0"),
		},
		Cache: CacheConfig{
			Size: getEnvAsInt("CACHE_SIZE", 2048),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.LLM.APIKey == "" && config.Environment != "development" {
		return fmt.Errorf("LLM API key must be set in non-development environments")
	}

	for _, name := range config.Sources.Enabled {
		if name == "twitter" && config.Sources.TwitterToken == "" {
			return fmt.Errorf("twitter source enabled but TWITTER_BEARER_TOKEN is not set")
		}
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
	return strings.Split(valueStr, ",")
}
