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

// devSessionSecret はローカル開発専用のセッション署名鍵です。release モードでは使用できません。
const devSessionSecret = "recipe-share-dev-session-secret-change-me"

// minSessionSecretLength は release モードで要求する署名鍵の最小バイト数です。
const minSessionSecretLength = 32

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// セッション設定
	SessionSecret string // セッション署名用の秘密鍵
	CSRFEnabled   bool   // X-CSRF-Token ヘッダーの検証を行うか

	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// 永続化設定
	DatabasePath string // SQLiteファイルのパス（":memory:" も可）
	RedisURL     string // ログイン試行制限用のRedis接続URL（空ならメモリ上で管理）

	// ログ設定
	LogLevel  string // zerolog のレベル (debug, info, warn, error)
	LogFormat string // console または json

	// パスワード設定
	BcryptCost int // bcryptのコスト
}

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		SessionSecret: getEnv("SESSION_SECRET", ""),
		CSRFEnabled:   getEnvAsBool("CSRF_ENABLED", false),

		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		DatabasePath: getEnv("DATABASE_PATH", "app.db"),
		RedisURL:     getEnv("REDIS_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		BcryptCost: getEnvAsInt("BCRYPT_COST", bcrypt.DefaultCost),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// 開発時は署名鍵が未設定でも起動できるようにする
	if config.SessionSecret == "" {
		config.SessionSecret = devSessionSecret
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
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be console or json")
	}
	if len(c.AllowedOrigins()) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS must contain at least one origin")
	}

	// 本番環境では署名鍵を厳格にチェックする
	if c.GinMode == "release" {
		if c.SessionSecret == "" {
			return fmt.Errorf("SESSION_SECRET is required in release mode")
		}
		if len(c.SessionSecret) < minSessionSecretLength {
			return fmt.Errorf("SESSION_SECRET must be at least %d bytes in release mode", minSessionSecretLength)
		}
	}

	return nil
}

// AllowedOrigins はカンマ区切りの CORS 許可オリジンを配列にして返します。
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
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
