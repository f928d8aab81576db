package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/sitedocs")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "secret", cfg.Storage.SigningSecret)
	assert.Equal(t, "memory", cfg.Notifications.Backend)
	assert.Equal(t, int64(100<<20), cfg.Documents.MaxFileSize)
	assert.Equal(t, 60*time.Second, cfg.Documents.SignedURLTTL)
	assert.False(t, cfg.Documents.EnforceLocks)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DOCUMENTS_ENFORCE_LOCKS", "true")
	t.Setenv("SIGNED_URL_TTL", "2m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("NOTIFICATIONS_BACKEND", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Documents.EnforceLocks)
	assert.Equal(t, 2*time.Minute, cfg.Documents.SignedURLTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "postgres", cfg.Notifications.Backend)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"production without database", map[string]string{"DATABASE_URL": ""}},
		{"no way to verify tokens", map[string]string{"JWT_SECRET": ""}},
		{"unknown storage", map[string]string{"STORAGE_TYPE": "ftp"}},
		{"s3 without bucket", map[string]string{"STORAGE_TYPE": "s3", "S3_ENDPOINT": "localhost:9000"}},
		{"supabase without key", map[string]string{"STORAGE_TYPE": "supabase", "SUPABASE_URL": "https://x.supabase.co"}},
		{"unknown notifications", map[string]string{"NOTIFICATIONS_BACKEND": "kafka"}},
		{"postgres notifications on sqlite", map[string]string{"NOTIFICATIONS_BACKEND": "postgres", "DATABASE_URL": "file:test.db"}},
		{"redis notifications without redis", map[string]string{"NOTIFICATIONS_BACKEND": "redis", "REDIS_ENABLED": "false"}},
		{"zero ttl", map[string]string{"SIGNED_URL_TTL": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
