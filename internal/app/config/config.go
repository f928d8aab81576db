package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string
	LogLevel      string
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Storage       StorageConfig
	Supabase      SupabaseConfig
	Notifications NotificationConfig
	Documents     DocumentConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type DatabaseConfig struct {
	URL     string
	TestURL string
}

type RedisConfig struct {
	URL     string
	Enabled bool
}

// JWTConfig verifies Supabase-issued access tokens locally
type JWTConfig struct {
	Secret   string
	Audience string
}

type StorageConfig struct {
	// Type is local, supabase or s3
	Type          string
	Path          string
	PublicBaseURL string
	SigningSecret string
	FetchTimeout  time.Duration

	S3Endpoint string
	S3Bucket   string
	S3Region   string
	S3UseSSL   bool
	AccessKey  string
	SecretKey  string
}

type SupabaseConfig struct {
	URL        string
	APIKey     string
	ServiceKey string
	Bucket     string
	JWTSecret  string
}

type NotificationConfig struct {
	// Backend is memory, redis or postgres
	Backend string
}

type DocumentConfig struct {
	MaxFileSize  int64
	SignedURLTTL time.Duration
	EnforceLocks bool
}

// Load configuration from environment variables
func Load() (*Config, error) {
	// Load .env file in non-production environments
	env := os.Getenv("ENVIRONMENT")
	if env != "production" {
		if err := godotenv.Load(); err != nil {
			// .env file is optional
		}
	}

	port := getEnv("PORT", "8080")
	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:           getEnv("HOST", "localhost"),
			Port:           port,
			AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
			ReadTimeout:    parseDuration(getEnv("SERVER_READ_TIMEOUT", "30s")),
			WriteTimeout:   parseDuration(getEnv("SERVER_WRITE_TIMEOUT", "120s")),
			IdleTimeout:    parseDuration(getEnv("SERVER_IDLE_TIMEOUT", "120s")),
		},
		Database: DatabaseConfig{
			URL:     getEnv("DATABASE_URL", ""),
			TestURL: getEnv("DATABASE_URL_TEST", ""),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", "redis://localhost:6379"),
			Enabled: parseBool(getEnv("REDIS_ENABLED", "true")),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", getEnv("SUPABASE_JWT_SECRET", "")),
			Audience: getEnv("JWT_AUDIENCE", "authenticated"),
		},
		Storage: StorageConfig{
			Type:          getEnv("STORAGE_TYPE", "local"),
			Path:          getEnv("STORAGE_PATH", "./uploads"),
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),
			SigningSecret: getEnv("STORAGE_SIGNING_SECRET", ""),
			FetchTimeout:  parseDuration(getEnv("STORAGE_FETCH_TIMEOUT", "30s")),
			S3Endpoint:    getEnv("S3_ENDPOINT", ""),
			S3Bucket:      getEnv("S3_BUCKET", ""),
			S3Region:      getEnv("S3_REGION", "us-west-2"),
			S3UseSSL:      parseBool(getEnv("S3_USE_SSL", "true")),
			AccessKey:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey:     getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Supabase: SupabaseConfig{
			URL:        getEnv("SUPABASE_URL", ""),
			APIKey:     getEnv("SUPABASE_API_KEY", ""),
			ServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
			Bucket:     getEnv("SUPABASE_BUCKET", "documents"),
			JWTSecret:  getEnv("SUPABASE_JWT_SECRET", ""),
		},
		Notifications: NotificationConfig{
			Backend: getEnv("NOTIFICATIONS_BACKEND", "memory"),
		},
		Documents: DocumentConfig{
			MaxFileSize:  parseInt64(getEnv("MAX_FILE_SIZE", "104857600")),
			SignedURLTTL: parseDuration(getEnv("SIGNED_URL_TTL", "60s")),
			EnforceLocks: parseBool(getEnv("DOCUMENTS_ENFORCE_LOCKS", "false")),
		},
	}

	if config.Storage.SigningSecret == "" {
		config.Storage.SigningSecret = config.JWT.Secret
	}

	// Validate required configuration
	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// GetDatabaseURL returns the appropriate database URL based on environment
func (c *Config) GetDatabaseURL() string {
	if c.Environment == "test" && c.Database.TestURL != "" {
		return c.Database.TestURL
	}
	return c.Database.URL
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsTest returns true if running in test environment
func (c *Config) IsTest() bool {
	return c.Environment == "test"
}

func validate(config *Config) error {
	// Database URL is optional for development
	if config.IsProduction() && config.GetDatabaseURL() == "" {
		return fmt.Errorf("DATABASE_URL is required in production")
	}
	if config.JWT.Secret == "" && config.Supabase.URL == "" {
		return fmt.Errorf("JWT_SECRET or SUPABASE_URL is required")
	}

	switch config.Storage.Type {
	case "local":
		if config.Storage.SigningSecret == "" {
			return fmt.Errorf("STORAGE_SIGNING_SECRET is required for local storage")
		}
	case "supabase":
		if config.Supabase.URL == "" || config.Supabase.ServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for supabase storage")
		}
	case "s3":
		if config.Storage.S3Endpoint == "" || config.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_ENDPOINT and S3_BUCKET are required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", config.Storage.Type)
	}

	switch config.Notifications.Backend {
	case "memory":
	case "redis":
		if !config.Redis.Enabled {
			return fmt.Errorf("redis notifications require REDIS_ENABLED")
		}
	case "postgres":
		if strings.HasPrefix(config.GetDatabaseURL(), "file:") || config.GetDatabaseURL() == "" {
			return fmt.Errorf("postgres notifications require a PostgreSQL DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown NOTIFICATIONS_BACKEND %q", config.Notifications.Backend)
	}

	if config.Documents.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if config.Documents.SignedURLTTL <= 0 {
		return fmt.Errorf("SIGNED_URL_TTL must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt64(value string) int64 {
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	return 0
}

func parseBool(value string) bool {
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return false
}

func parseDuration(value string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return 0
}
