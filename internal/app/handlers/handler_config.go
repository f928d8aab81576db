package handlers

import (
	"os"
	"time"
)

// HandlerConfig provides environment-aware configuration for handlers
type HandlerConfig struct {
	// File upload settings
	MaxFileSize int64 `json:"max_file_size"`

	// Error handling settings
	EnableDebugErrors bool `json:"enable_debug_errors"`

	// Stream settings
	StreamHeartbeat time.Duration `json:"stream_heartbeat"`

	// Environment
	Environment string `json:"environment"`
}

// NewHandlerConfig creates a handler configuration with environment-specific defaults
func NewHandlerConfig(environment string, maxFileSize int64) *HandlerConfig {
	config := &HandlerConfig{
		MaxFileSize:       maxFileSize,
		EnableDebugErrors: false,
		StreamHeartbeat:   25 * time.Second,
		Environment:       environment,
	}

	config.applyEnvironmentDefaults()

	if val := os.Getenv("ENABLE_DEBUG_ERRORS"); val != "" {
		config.EnableDebugErrors = val == "true"
	}

	return config
}

// applyEnvironmentDefaults applies environment-specific default values
func (c *HandlerConfig) applyEnvironmentDefaults() {
	switch c.Environment {
	case "development", "dev", "test", "testing":
		c.EnableDebugErrors = true
	case "production", "prod", "staging", "stage":
		c.EnableDebugErrors = false
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 << 20
	}
}

// IsProduction returns true if running in production environment
func (c *HandlerConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// uploadLimit bounds the multipart body: the file plus room for the form fields
func (c *HandlerConfig) uploadLimit() int64 {
	return c.MaxFileSize + 1<<20
}
