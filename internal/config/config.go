package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DatabaseURL      string // あれば最優先で使う接続文字列
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ArchiveRetention     time.Duration // completedのままこの期間を過ぎたらarchived
	ArchiveInterval      time.Duration // アーカイブ実行間隔
	ArchiveRetryInterval time.Duration // 失敗時のリトライ間隔
}

// DSN はgormに渡す接続文字列を組み立てる。
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Loadは環境変数から読む。
func Load() (Config, error) {
	retentionDays, err := intOr("ARCHIVE_RETENTION_DAYS", 30)
	if err != nil {
		return Config{}, err
	}
	if retentionDays < 0 {
		return Config{}, fmt.Errorf("ARCHIVE_RETENTION_DAYS must be >= 0")
	}

	interval, err := durationOr("ARCHIVE_INTERVAL", time.Hour)
	if err != nil {
		return Config{}, err
	}
	retry, err := durationOr("ARCHIVE_RETRY_INTERVAL", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	if interval <= 0 || retry <= 0 {
		return Config{}, fmt.Errorf("archive intervals must be positive")
	}

	cfg := Config{
		Port:  os.Getenv("PORT"),
		GoEnv: os.Getenv("GO_ENV"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getenv("POSTGRES_PORT", "5432"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "ecommerce"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		ArchiveRetention:     time.Duration(retentionDays) * 24 * time.Hour,
		ArchiveInterval:      interval,
		ArchiveRetryInterval: retry,
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.GoEnv == "" {
		cfg.GoEnv = "dev"
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func intOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration (e.g. 1h, 30s): %w", key, err)
	}
	return d, nil
}
