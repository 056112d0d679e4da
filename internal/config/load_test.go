package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validAccessSecret  = "access-secret-0123456789abcdefghijkl"
	validRefreshSecret = "refresh-secret-0123456789abcdefghijk"
)

// setSecrets は必須の署名鍵を環境変数に設定する。
func setSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("STOREFRONT_AUTH_ACCESS_TOKEN_SECRET", validAccessSecret)
	t.Setenv("STOREFRONT_AUTH_REFRESH_TOKEN_SECRET", validRefreshSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setSecrets(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.App.Env)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 2*time.Second, cfg.Auth.RevocationTimeout)
	assert.Equal(t, "storefront.db", cfg.Database.Path)
	assert.False(t, cfg.CORS.Permissive)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	setSecrets(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STOREFRONT_APP_ENV", "production")
	t.Setenv("STOREFRONT_AUTH_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("STOREFRONT_CORS_ALLOWED_ORIGINS", "https://shop.example.com,https://admin.example.com")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, []string{"https://shop.example.com", "https://admin.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_PrefixedEnvWinsOverAlias(t *testing.T) {
	setSecrets(t)
	t.Setenv("STOREFRONT_SERVER_PORT", "7000")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoad_NodeEnvAlias(t *testing.T) {
	t.Run("NODE_ENVで実行環境を指定できること", func(t *testing.T) {
		setSecrets(t)
		t.Setenv("STOREFRONT_APP_ENV", "")
		t.Setenv("APP_ENV", "")
		t.Setenv("NODE_ENV", "production")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, EnvProduction, cfg.App.Env)
		assert.True(t, cfg.IsProduction())
	})

	t.Run("APP_ENVがNODE_ENVより優先されること", func(t *testing.T) {
		setSecrets(t)
		t.Setenv("STOREFRONT_APP_ENV", "")
		t.Setenv("APP_ENV", "development")
		t.Setenv("NODE_ENV", "production")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, EnvDevelopment, cfg.App.Env)
	})
}

func TestLoad_ConfigFile(t *testing.T) {
	setSecrets(t)

	path := filepath.Join(t.TempDir(), "storefront.yaml")
	content := `
server:
  port: 3500
  log_level: debug
database:
  path: /tmp/shop.db
cors:
  allowed_origins:
    - https://shop.example.com
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3500, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "/tmp/shop.db", cfg.Database.Path)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("署名鍵が無い場合はエラーになること", func(t *testing.T) {
		t.Setenv("STOREFRONT_AUTH_ACCESS_TOKEN_SECRET", "")
		t.Setenv("STOREFRONT_AUTH_REFRESH_TOKEN_SECRET", "")

		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("短すぎる署名鍵はエラーになること", func(t *testing.T) {
		t.Setenv("STOREFRONT_AUTH_ACCESS_TOKEN_SECRET", "short")
		t.Setenv("STOREFRONT_AUTH_REFRESH_TOKEN_SECRET", validRefreshSecret)

		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("アクセスとリフレッシュで同じ鍵はエラーになること", func(t *testing.T) {
		t.Setenv("STOREFRONT_AUTH_ACCESS_TOKEN_SECRET", validAccessSecret)
		t.Setenv("STOREFRONT_AUTH_REFRESH_TOKEN_SECRET", validAccessSecret)

		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("本番環境で寛容なCORSはエラーになること", func(t *testing.T) {
		setSecrets(t)
		t.Setenv("STOREFRONT_APP_ENV", "production")
		t.Setenv("STOREFRONT_CORS_PERMISSIVE", "true")

		_, err := Load("")
		assert.ErrorContains(t, err, "cors.permissive")
	})

	t.Run("未知の実行環境はエラーになること", func(t *testing.T) {
		setSecrets(t)
		t.Setenv("STOREFRONT_APP_ENV", "staging")

		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("存在しない設定ファイルはエラーになること", func(t *testing.T) {
		setSecrets(t)

		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
