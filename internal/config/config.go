// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// JWT
	JWTSecret   string
	JWTValidity time.Duration

	// Token lifecycle
	TokenTTL      time.Duration // OTP・リセットトークンの有効期間
	SweepInterval time.Duration // 期限切れトークン掃除の実行間隔

	// SMTP
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPass          string
	MailFromVerify    string
	MailFromSecurity  string
	ResetPasswordBase string // リセットフォームURLのベース（フロントエンド側）

	// Rate Limit
	RateLimitGeneral  int // 認証済みAPI全般（req/min/user）
	RateLimitIssuance int // トークン発行系（req/min/IP）

	// Server
	ServerPort string
	BaseURL    string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.JWTValidity = getEnvDuration("JWT_VALIDITY", 7*24*time.Hour)
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", time.Hour)
	cfg.SweepInterval = getEnvDuration("SWEEP_INTERVAL", 10*time.Minute)
	cfg.SMTPHost = getEnvString("SMTP_HOST", "")
	cfg.SMTPPort = getEnvInt("SMTP_PORT", 587)
	cfg.SMTPUser = getEnvString("SMTP_USER", "")
	cfg.SMTPPass = getEnvString("SMTP_PASS", "")
	cfg.MailFromVerify = getEnvString("MAIL_FROM_VERIFY", "verification@filmnote.app")
	cfg.MailFromSecurity = getEnvString("MAIL_FROM_SECURITY", "security@filmnote.app")
	cfg.ResetPasswordBase = getEnvString("RESET_PASSWORD_BASE", cfg.BaseURL+"/auth/reset-password")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitIssuance = getEnvInt("RATE_LIMIT_ISSUANCE", 5)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
