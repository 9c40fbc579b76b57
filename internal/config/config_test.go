package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points ENV_FILE at an empty temp dir so a developer's .env
// does not leak into the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	t.Setenv("DB_DSN", "postgres://localhost/alerts")
	t.Setenv("EMAIL_SMTP_SERVER", "smtp.example.com")
	t.Setenv("EMAIL_USERNAME", "bot@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.API.Port)
	assert.Equal(t, "/api/v0", cfg.API.BasePath)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
	assert.Equal(t, 3, cfg.Email.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Email.RetryDelay)
	assert.Equal(t, "task_completed", cfg.Kafka.Topic)
	assert.Equal(t, 10*time.Minute, cfg.Redis.TTL)
	assert.False(t, cfg.Alerts.MetadataFallback)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "bot@example.com", cfg.Sender())
}

func TestLoad_MissingRequired(t *testing.T) {
	isolate(t)
	t.Setenv("DB_DSN", "")
	t.Setenv("EMAIL_SMTP_SERVER", "")
	t.Setenv("EMAIL_USERNAME", "")
	t.Setenv("EMAIL_FROM_ADDRESS", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required configurations")
	assert.Contains(t, err.Error(), "DB_DSN")
	assert.Contains(t, err.Error(), "EMAIL_SMTP_SERVER")
}

func TestLoad_SendGrid(t *testing.T) {
	isolate(t)
	t.Setenv("DB_DSN", "postgres://localhost/alerts")
	t.Setenv("EMAIL_PROVIDER", "sendgrid")
	t.Setenv("SENDGRID_API_KEY", "")
	t.Setenv("EMAIL_FROM_ADDRESS", "alerts@example.com")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SENDGRID_API_KEY")

	t.Setenv("SENDGRID_API_KEY", "SG.key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EmailProviderSendGrid, cfg.Email.Provider)
}

func TestLoad_UnknownProvider(t *testing.T) {
	isolate(t)
	t.Setenv("DB_DSN", "postgres://localhost/alerts")
	t.Setenv("EMAIL_PROVIDER", "pigeon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported EMAIL_PROVIDER")
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "DB_DSN=postgres://file/alerts\nEMAIL_SMTP_SERVER=smtp.file\nEMAIL_FROM_ADDRESS=a@file\nALERTS_METADATA_FALLBACK=true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Cleanup(func() {
		for _, k := range []string{"DB_DSN", "EMAIL_SMTP_SERVER", "EMAIL_FROM_ADDRESS", "ALERTS_METADATA_FALLBACK"} {
			_ = os.Unsetenv(k)
		}
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://file/alerts", cfg.DB.DSN)
	assert.True(t, cfg.Alerts.MetadataFallback)
}
