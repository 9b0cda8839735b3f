package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	OpenAI    OpenAIConfig
	YouTube   YouTubeConfig
	Email     EmailConfig
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	APIKey          string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// StorageConfig holds blob storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// OpenAIConfig holds embedding + LLM provider configuration
type OpenAIConfig struct {
	APIKey         string
	EmbeddingModel string
	ChatModel      string
}

// YouTubeConfig holds video metadata + transcript provider configuration
type YouTubeConfig struct {
	APIKey  string
	BaseURL string
}

// EmailConfig holds email provider configuration. An empty API key disables
// completion notifications.
type EmailConfig struct {
	APIKey  string
	BaseURL string
	From    string
}

// PipelineConfig holds ingestion tunables
type PipelineConfig struct {
	ChannelVideoLimit int
	VideoLockTTL      int
	ChannelLockTTL    int
}

// RateLimitConfig holds per-class per-action caps, loaded via envconfig so
// operators can override individual windows. A cap of -1 disables that window.
type RateLimitConfig struct {
	AnonChatHourly       int `envconfig:"RATELIMIT_ANON_CHAT_HOURLY" default:"10"`
	AnonChatDaily        int `envconfig:"RATELIMIT_ANON_CHAT_DAILY" default:"30"`
	AnonVideoHourly      int `envconfig:"RATELIMIT_ANON_VIDEO_HOURLY" default:"2"`
	AnonVideoDaily       int `envconfig:"RATELIMIT_ANON_VIDEO_DAILY" default:"5"`
	AnonChannelHourly    int `envconfig:"RATELIMIT_ANON_CHANNEL_HOURLY" default:"1"`
	AnonChannelDaily     int `envconfig:"RATELIMIT_ANON_CHANNEL_DAILY" default:"2"`
	UserChatHourly       int `envconfig:"RATELIMIT_USER_CHAT_HOURLY" default:"5"`
	UserChatDaily        int `envconfig:"RATELIMIT_USER_CHAT_DAILY" default:"100"`
	UserVideoHourly      int `envconfig:"RATELIMIT_USER_VIDEO_HOURLY" default:"10"`
	UserVideoDaily       int `envconfig:"RATELIMIT_USER_VIDEO_DAILY" default:"30"`
	UserChannelHourly    int `envconfig:"RATELIMIT_USER_CHANNEL_HOURLY" default:"3"`
	UserChannelDaily     int `envconfig:"RATELIMIT_USER_CHANNEL_DAILY" default:"10"`
	PremiumChatHourly    int `envconfig:"RATELIMIT_PREMIUM_CHAT_HOURLY" default:"-1"`
	PremiumChatDaily     int `envconfig:"RATELIMIT_PREMIUM_CHAT_DAILY" default:"1000"`
	PremiumVideoHourly   int `envconfig:"RATELIMIT_PREMIUM_VIDEO_HOURLY" default:"50"`
	PremiumVideoDaily    int `envconfig:"RATELIMIT_PREMIUM_VIDEO_DAILY" default:"200"`
	PremiumChannelHourly int `envconfig:"RATELIMIT_PREMIUM_CHANNEL_HOURLY" default:"10"`
	PremiumChannelDaily  int `envconfig:"RATELIMIT_PREMIUM_CHANNEL_DAILY" default:"30"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", getEnv("NODE_ENV", "development")),
			AllowedOrigins:  strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
			APIKey:          getEnv("BACKEND_API_KEY", ""),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "tubechat"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "transcripts"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			ChatModel:      getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		},
		YouTube: YouTubeConfig{
			APIKey:  getEnv("YOUTUBE_API_KEY", ""),
			BaseURL: getEnv("YOUTUBE_API_URL", "https://www.googleapis.com/youtube/v3"),
		},
		Email: EmailConfig{
			APIKey:  getEnv("EMAIL_API_KEY", ""),
			BaseURL: getEnv("EMAIL_API_URL", "https://api.resend.com"),
			From:    getEnv("EMAIL_FROM", "notifications@tubechat.app"),
		},
		Pipeline: PipelineConfig{
			ChannelVideoLimit: getEnvAsInt("CHANNEL_VIDEO_LIMIT", 20),
			VideoLockTTL:      getEnvAsInt("VIDEO_LOCK_TTL", 600),
			ChannelLockTTL:    getEnvAsInt("CHANNEL_LOCK_TTL", 3600),
		},
	}

	if err := envconfig.Process("", &config.RateLimit); err != nil {
		return nil, fmt.Errorf("failed to load rate limit config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.APIKey == "" {
		return fmt.Errorf("BACKEND_API_KEY is required")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.YouTube.APIKey == "" {
		return fmt.Errorf("YOUTUBE_API_KEY is required")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
// Gates stack-trace inclusion in error responses.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// EmailEnabled reports whether completion notifications can be sent.
func (c *Config) EmailEnabled() bool {
	return c.Email.APIKey != ""
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
