package config_test

import (
	"bugpilot/internal/config"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setKeyPaths(t *testing.T) {
	for _, key := range []string{"PORT", "PUBLIC_BASE_URL", "LOG_LEVEL", "JWT_TOKEN_TTL", "OTP_TTL", "STORE_DRIVER",
		"MIGRATIONS_PATH", "UPLOAD_DIR", "SMTP_HOST", "METRICS_ALLOWED_IPS", "CORS_ALLOWED_ORIGINS", "TRACING_ENABLED", "BCRYPT_COST", "DATABASE_URL"} {
		t.Setenv(key, "")
	}
	t.Setenv("VAULT_ADDR", "")
	t.Setenv("JWT_PRIVATE_KEY_PATH", "/keys/private.pem")
	t.Setenv("JWT_PUBLIC_KEY_PATH", "/keys/public.pem")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults test", func(t *testing.T) {
		setKeyPaths(t)

		cfg, err := config.LoadConfig()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 168*time.Hour, cfg.JWTTokenTTL)
		assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
		assert.Equal(t, config.StoreDriverMySQL, cfg.StoreDriver)
		assert.Equal(t, "file://migrations", cfg.MigrationsPath)
		assert.Equal(t, "uploads", cfg.UploadDir)
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
		assert.Equal(t, []string{"127.0.0.1", "::1"}, cfg.MetricsAllowedIPs)
		assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
		assert.Equal(t, 10, cfg.BcryptCost)
		assert.False(t, cfg.UseVault())
	})

	t.Run("invalid duration test", func(t *testing.T) {
		setKeyPaths(t)
		t.Setenv("JWT_TOKEN_TTL", "sieben Tage")

		_, err := config.LoadConfig()
		assert.ErrorContains(t, err, "JWT_TOKEN_TTL")
	})

	t.Run("bcrypt cost range test", func(t *testing.T) {
		setKeyPaths(t)
		t.Setenv("BCRYPT_COST", "3")

		_, err := config.LoadConfig()
		assert.ErrorContains(t, err, "BCRYPT_COST")
	})

	t.Run("unknown store driver test", func(t *testing.T) {
		setKeyPaths(t)
		t.Setenv("STORE_DRIVER", "mongo")

		_, err := config.LoadConfig()
		assert.ErrorContains(t, err, "STORE_DRIVER")
	})

	t.Run("vault requires approle test", func(t *testing.T) {
		t.Setenv("VAULT_ADDR", "http://vault:8200")
		t.Setenv("BUGPILOT_APPROLE_ROLE_ID", "")

		_, err := config.LoadConfig()
		assert.ErrorContains(t, err, "BUGPILOT_APPROLE_ROLE_ID")
	})

	t.Run("missing key material test", func(t *testing.T) {
		t.Setenv("VAULT_ADDR", "")
		t.Setenv("JWT_PRIVATE_KEY_PATH", "")

		_, err := config.LoadConfig()
		assert.ErrorContains(t, err, "JWT_PRIVATE_KEY_PATH")
	})

	t.Run("public base url trailing slash test", func(t *testing.T) {
		setKeyPaths(t)
		t.Setenv("PUBLIC_BASE_URL", "https://bugs.example.com/")

		cfg, err := config.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "https://bugs.example.com", cfg.PublicBaseURL)
	})

	t.Run("list values test", func(t *testing.T) {
		setKeyPaths(t)
		t.Setenv("METRICS_ALLOWED_IPS", "10.0.0.1, 10.0.0.2,")
		t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")

		cfg, err := config.LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.MetricsAllowedIPs)
		assert.Equal(t, []string{"https://app.example.com"}, cfg.CORSAllowedOrigins)
	})
}
