// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// defaultAdminEmail は単一管理者運用のデフォルトアイデンティティ。
const defaultAdminEmail = "admin@newsdaily.com"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Identity Provider
	IdentityProviderURL    string
	IdentityProviderAPIKey string
	ProviderTimeout        time.Duration
	SessionPollInterval    time.Duration

	// Auth
	AdminEmails []string

	// Rate Limit
	RateLimitGeneral    int
	RateLimitAdminWrite int

	// Server
	ServerPort string

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

	cfg.IdentityProviderURL = os.Getenv("IDENTITY_PROVIDER_URL")
	if cfg.IdentityProviderURL == "" {
		missing = append(missing, "IDENTITY_PROVIDER_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.IdentityProviderAPIKey = getEnvString("IDENTITY_PROVIDER_API_KEY", "")
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second)
	cfg.SessionPollInterval = getEnvDuration("SESSION_POLL_INTERVAL", time.Minute)
	cfg.AdminEmails = getEnvEmails("ADMIN_EMAILS", []string{defaultAdminEmail})
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAdminWrite = getEnvInt("RATE_LIMIT_ADMIN_WRITE", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

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

// getEnvEmails はカンマ区切りのメールアドレス一覧を読み込む。
// 空要素は除外される。
func getEnvEmails(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var emails []string
	for _, raw := range strings.Split(v, ",") {
		if email := strings.TrimSpace(raw); email != "" {
			emails = append(emails, email)
		}
	}
	if len(emails) == 0 {
		return defaultVal
	}
	return emails
}
