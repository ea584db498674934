// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// セッションストアの種別
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// セッション設定
	SessionSecret            string // セッションクッキー署名用の秘密鍵
	SessionEncryptionKey     string // セッションクッキー暗号化キー（任意、16/24/32バイト）
	SessionCookieName        string // セッションクッキー名
	SessionMaxAgeSeconds     int    // クッキーの MaxAge（秒）
	SessionCookieSecure      bool   // Secure 属性を付与するか（デフォルトは付与しない）
	SessionSaveUninitialized bool   // 初回アクセス時に匿名セッションを保存するか
	SessionStore             string // memory または redis
	SessionRedisURL          string // SESSION_STORE=redis 時の接続URL
	SessionIdleMinutes       int    // 無操作でセッションを破棄するまでの分数（0 で無効）

	// 認証設定
	BcryptCost             int  // bcrypt のコストパラメータ
	EnforceUniqueUsernames bool // ユーザー名の一意制約をストア側で保証するか

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り、空なら無効）

	// イベント/キュー設定
	QueueRedisURL    string // Asynq用Redis接続URL（空ならプロセス内で反映）
	ActivityTTLHours int    // アクティビティ記録の保持時間

	// ログ設定
	LogLevel  string // debug, info, warn, error
	LogFormat string // text または json
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "3000"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// セッション設定
		SessionSecret:            getEnv("SESSION_SECRET", ""),
		SessionEncryptionKey:     getEnv("SESSION_ENCRYPTION_KEY", ""),
		SessionCookieName:        getEnv("SESSION_COOKIE_NAME", "login_session"),
		SessionMaxAgeSeconds:     getEnvAsInt("SESSION_MAX_AGE_SECONDS", 86400), // 1日
		SessionCookieSecure:      getEnvAsBool("SESSION_COOKIE_SECURE", false),
		SessionSaveUninitialized: getEnvAsBool("SESSION_SAVE_UNINITIALIZED", true),
		SessionStore:             strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
		SessionRedisURL:          getEnv("SESSION_REDIS_URL", ""),
		SessionIdleMinutes:       getEnvAsInt("SESSION_IDLE_TIMEOUT_MINUTES", 0),

		// 認証設定
		BcryptCost:             getEnvAsInt("BCRYPT_COST", bcrypt.DefaultCost),
		EnforceUniqueUsernames: getEnvAsBool("ENFORCE_UNIQUE_USERNAMES", true),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),

		// イベント/キュー設定
		QueueRedisURL:    getEnv("QUEUE_REDIS_URL", ""),
		ActivityTTLHours: getEnvAsInt("ACTIVITY_TTL_HOURS", 720), // 30日

		// ログ設定
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.SessionCookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}

	switch c.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.SessionRedisURL == "" {
			return fmt.Errorf("SESSION_REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreMemory, SessionStoreRedis, c.SessionStore)
	}

	if n := len(c.SessionEncryptionKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return fmt.Errorf("SESSION_ENCRYPTION_KEY must be 16, 24 or 32 bytes, got %d", n)
	}

	// ローカル開発では署名鍵は任意（起動ごとにランダム生成する）
	// 本番環境では厳格にチェックする
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
	}

	return nil
}

// AllowedOrigins は CORS 許可オリジンを配列で返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します。
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
