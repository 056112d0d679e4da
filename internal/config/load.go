package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix は環境変数の接頭辞。
const envPrefix = "STOREFRONT"

// envAliases は接頭辞なしでも受け付ける環境変数。
// PaaSが注入するPORTや、既存の.envとの互換のために使う。
var envAliases = map[string][]string{
	"server.port":               {"PORT"},
	"app.env":                   {"APP_ENV", "NODE_ENV"},
	"database.path":             {"DATABASE_PATH"},
	"auth.access_token_secret":  {"ACCESS_TOKEN_SECRET"},
	"auth.refresh_token_secret": {"REFRESH_TOKEN_SECRET"},
	"redis.addr":                {"REDIS_ADDR"},
}

// setDefaults はすべての設定キーのデフォルト値を登録する。
// viperはUnmarshal時に既知のキーしか環境変数から読まないため、空値も登録しておく。
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("app.frontend_dir", "frontend/dist")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.read_header_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.max_body_bytes", int64(1<<20))

	v.SetDefault("database.path", "storefront.db")

	v.SetDefault("auth.access_token_secret", "")
	v.SetDefault("auth.refresh_token_secret", "")
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_token_ttl", 24*time.Hour)
	v.SetDefault("auth.issuer", "storefront")
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.revocation_timeout", 2*time.Second)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("cors.permissive", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// Load は設定を読み込み、検証済みのConfigを返す。
// pathが空の場合はカレントディレクトリの storefront.yaml を探し、無ければ読み飛ばす。
// カレントディレクトリに .env があれば、既存の環境変数を上書きしない形で先に読み込む。
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".envファイルの読み込みに失敗: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	} else {
		v.SetConfigName("storefront")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, aliases := range envAliases {
		names := append([]string{envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, aliases...)
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("環境変数 %s のバインドに失敗: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の変換に失敗: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定値を検証する。
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("設定の検証に失敗: %w", err)
	}
	if cfg.IsProduction() && cfg.CORS.Permissive {
		return errors.New("設定の検証に失敗: cors.permissive は本番環境では使用できません")
	}
	return nil
}
