// Package config はサーバーの設定を読み込む。
//
// 設定は起動時に一度だけ読み込まれ、以降は変更されない。
// 優先順位は 環境変数 > 設定ファイル > .envファイル > デフォルト値。
package config

import (
	"strconv"
	"time"
)

// 実行環境。
const (
	// EnvDevelopment は開発環境を表す。
	EnvDevelopment = "development"
	// EnvProduction は本番環境を表す。フロントエンドの静的配信が有効になる。
	EnvProduction = "production"
)

// Config はアプリケーション全体の設定。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// AppConfig はアプリケーションの実行モードに関する設定。
type AppConfig struct {
	// Env は実行環境（development / production）。
	Env string `mapstructure:"env" validate:"required,oneof=development production"`
	// FrontendDir は本番環境で配信するフロントエンドのビルド成果物のディレクトリ。
	FrontendDir string `mapstructure:"frontend_dir"`
}

// ServerConfig はHTTPサーバーの設定。
type ServerConfig struct {
	// Port はリッスンポート。
	Port int `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	// LogLevel はログレベル（debug / info / warn / error）。
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ReadHeaderTimeout はリクエストヘッダー読み込みのタイムアウト。
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"gt=0"`
	// ShutdownTimeout はグレースフルシャットダウンの待ち時間。
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// MaxBodyBytes はリクエストボディの最大サイズ。
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" validate:"gt=0"`
}

// DatabaseConfig はデータベースの設定。
type DatabaseConfig struct {
	// Path はSQLiteのファイルパス。":memory:"も指定できる。
	Path string `mapstructure:"path" validate:"required"`
}

// AuthConfig は認証・認可の設定。
type AuthConfig struct {
	// AccessTokenSecret はアクセストークンの署名鍵。
	AccessTokenSecret string `mapstructure:"access_token_secret" validate:"required,min=32"`
	// RefreshTokenSecret はリフレッシュトークンの署名鍵。
	RefreshTokenSecret string `mapstructure:"refresh_token_secret" validate:"required,min=32,nefield=AccessTokenSecret"`
	// AccessTokenTTL はアクセストークンの有効期間。
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl" validate:"gt=0"`
	// RefreshTokenTTL はリフレッシュトークンの有効期間。
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl" validate:"gt=0"`
	// Issuer はトークンの発行者。
	Issuer string `mapstructure:"issuer" validate:"required"`
	// CookieSecure はリフレッシュトークンのCookieにSecure属性を付けるか。
	CookieSecure bool `mapstructure:"cookie_secure"`
	// RevocationTimeout は失効確認ストアへの問い合わせのタイムアウト。
	RevocationTimeout time.Duration `mapstructure:"revocation_timeout" validate:"gt=0"`
	// BcryptCost はパスワードハッシュのコスト。
	BcryptCost int `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// CORSConfig はクロスオリジン設定。
type CORSConfig struct {
	// AllowedOrigins は資格情報付きアクセスを許可するオリジンの一覧。
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"dive,url"`
	// Permissive は任意のオリジンを許可する開発用モード。本番環境では使用できない。
	Permissive bool `mapstructure:"permissive"`
}

// RedisConfig はトークン失効ストアとして使うRedisの設定。
type RedisConfig struct {
	// Addr はRedisのアドレス。空の場合はメモリストアを使う。
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	// Password はRedisのパスワード。
	Password string `mapstructure:"password"`
	// DB はRedisのDB番号。
	DB int `mapstructure:"db" validate:"gte=0"`
}

// IsProduction は本番環境かを返す。
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// Addr はHTTPサーバーのリッスンアドレスを返す。
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}
