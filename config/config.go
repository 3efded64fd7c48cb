package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	AWS       AWSConfig
	Recording RecordingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings. Redis carries the
// call-control command/event channels and the media transfer queue.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds service-token signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the recordings bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	RecordingsBucket     string
	PresignExpireMinutes int
}

// RecordingConfig holds platform recording policy: defaults applied to
// incoming recording commands and the default-storage policy flag.
type RecordingConfig struct {
	DefaultExtension    string // mp3 or wav
	DefaultTimeLimitSec int
	MaxTimeLimitSec     int // <= 0 means no cap configured (unbounded)
	StoreRecordings     bool
	MediaOriginURL      string // base URL the media layer serves captured media from
}

// DefaultFormatExtension returns the configured default recording extension.
func (c RecordingConfig) DefaultFormatExtension() string { return c.DefaultExtension }

// DefaultTimeLimit returns the default recording time limit in seconds.
func (c RecordingConfig) DefaultTimeLimit() int { return c.DefaultTimeLimitSec }

// MaxTimeLimit returns the platform cap on recording time limits in seconds.
func (c RecordingConfig) MaxTimeLimit() int { return c.MaxTimeLimitSec }

// ShouldStoreRecordings reports whether platform-default storage is enabled.
func (c RecordingConfig) ShouldStoreRecordings() bool { return c.StoreRecordings }

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			ReadTimeout: getEnvInt("READ_TIMEOUT_SEC", 30),
			// Start commands hold the connection for the life of the
			// session, so writes are not bounded by default.
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 0),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/telephony?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "telephony"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			RecordingsBucket:     getEnv("AWS_S3_RECORDINGS_BUCKET", "telephony-recordings-bucket"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Recording: RecordingConfig{
			DefaultExtension:    getEnv("RECORDING_DEFAULT_EXTENSION", "mp3"),
			DefaultTimeLimitSec: getEnvInt("RECORDING_DEFAULT_TIME_LIMIT_SEC", 600),
			MaxTimeLimitSec:     getEnvInt("RECORDING_MAX_TIME_LIMIT_SEC", 3600),
			StoreRecordings:     getEnvBool("RECORDING_STORE_RECORDINGS", true),
			MediaOriginURL:      getEnv("RECORDING_MEDIA_ORIGIN_URL", "http://localhost:9090/media"),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
