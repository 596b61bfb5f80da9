package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	MaxRetries  int
	DialTimeout int
	Timeout     int
	Prefix      string
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
	Prefix          string
	URLTTL          time.Duration
}

// StorageConfig selects where generated notices and exports are kept.
// Driver is "local" or "s3".
type StorageConfig struct {
	Driver       string
	Dir          string
	PublicPrefix string
	ExternalURL  string
	MaxAge       time.Duration
}

type SESConfig struct {
	Enabled bool
	Region  string
	Sender  string
}

type LogConfig struct {
	Level  string
	Format string
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

type NoticeConfig struct {
	OrganizationName string
	Archive          bool
}

type AppConfig struct {
	Port           string
	Version        string
	AllowedOrigins []string
	Postgres       PostgresConfig
	Redis          RedisConfig
	S3             S3Config
	Storage        StorageConfig
	SES            SESConfig
	Log            LogConfig
	RateLimit      RateLimitConfig
	Notice         NoticeConfig
	ExportPrefix   string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int value %q: %v", s, err)
	}
	return i
}

func mustBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		log.Fatalf("invalid bool value %q: %v", s, err)
	}
	return b
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("invalid duration value %q: %v", s, err)
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func Load() AppConfig {
	return AppConfig{
		Port:    getenv("APP_PORT", "8010"),
		Version: getenv("APP_VERSION", "1.0.0"),
		Postgres: PostgresConfig{
			Host:     getenv("PG_HOST", "127.0.0.1"),
			Port:     mustAtoi(getenv("PG_PORT", "5432")),
			User:     getenv("PG_USER", "yesod"),
			Password: getenv("PG_PASSWORD", "yesod"),
			DBName:   getenv("PG_DB", "yesod"),
			SSLMode:  getenv("PG_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:        getenv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    getenv("REDIS_PASSWORD", ""),
			DB:          mustAtoi(getenv("REDIS_DB", "0")),
			MaxRetries:  mustAtoi(getenv("REDIS_MAX_RETRIES", "5")),
			DialTimeout: mustAtoi(getenv("REDIS_DIAL_TIMEOUT", "10")),
			Timeout:     mustAtoi(getenv("REDIS_TIMEOUT", "5")),
			Prefix:      getenv("REDIS_PREFIX", "yesod_"),
		},
		S3: S3Config{
			Endpoint:        getenv("S3_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getenv("S3_ACCESS_KEY", "minio"),
			SecretAccessKey: getenv("S3_SECRET_KEY", "minio123"),
			Bucket:          getenv("S3_BUCKET", "notices"),
			Region:          getenv("S3_REGION", "eu-west-3"),
			UseSSL:          mustBool(getenv("S3_USE_SSL", "false")),
			Prefix:          getenv("S3_PREFIX", ""),
			URLTTL:          mustDuration(getenv("S3_URL_TTL", "15m")),
		},
		Storage: StorageConfig{
			Driver:       getenv("STORAGE_DRIVER", "local"),
			Dir:          getenv("STORAGE_DIR", "./storage"),
			PublicPrefix: getenv("FILES_PUBLIC_PREFIX", "/files"),
			ExternalURL:  getenv("EXTERNAL_URL", ""),
			MaxAge:       mustDuration(getenv("STORAGE_MAX_AGE", "720h")),
		},
		SES: SESConfig{
			Enabled: mustBool(getenv("SES_ENABLED", "false")),
			Region:  getenv("SES_REGION", "eu-west-1"),
			Sender:  getenv("SES_SENDER", "contact@yesod.fr"),
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: mustAtoi(getenv("RATE_LIMIT_MAX", "100")),
			Window:      mustDuration(getenv("RATE_LIMIT_WINDOW", "15m")),
		},
		Notice: NoticeConfig{
			OrganizationName: getenv("NOTICE_ORG_NAME", "YESOD"),
			Archive:          mustBool(getenv("NOTICE_ARCHIVE", "true")),
		},
		ExportPrefix:   getenv("EXPORT_CACHE_PREFIX", "exports:"),
		AllowedOrigins: splitList(getenv("CORS_ORIGINS", "")),
	}
}
