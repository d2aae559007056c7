package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"HTTP_ADDR", "NOTIFY_TIMEOUT", "CORS_ALLOW_ORIGINS", "ADMIN_EMAILS", "RUN_MIGRATIONS", "JWT_SECRET"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.Empty(t, cfg.AdminEmails)
	assert.Empty(t, cfg.JWTSecret)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("NOTIFY_TIMEOUT", "3s")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("ADMIN_EMAILS", " a@example.com, ,b@example.com ")
	t.Setenv("REQUEST_TIMEOUT", "garbage")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.NotifyTimeout)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.AdminEmails)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TELEGRAM_CHAT_ID=-100200\nHTTP_ADDR=:7000\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("HTTP_ADDR", ":7001")
	t.Setenv("TELEGRAM_CHAT_ID", "")
	os.Unsetenv("TELEGRAM_CHAT_ID")

	cfg := Load()
	assert.Equal(t, "-100200", cfg.TelegramChatID)
	// real environment wins over .env
	assert.Equal(t, ":7001", cfg.HTTPAddr)
}
