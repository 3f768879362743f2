package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret string

	// Observability (optional)
	SentryDSN string

	// Storage backend selection: "local" or "s3"
	StorageDriver string

	// Local backend: files land under LocalPath and are served at LocalBaseURL
	LocalPath    string
	LocalBaseURL string

	// S3-compatible backend (AWS S3, MinIO, Cloudflare R2, DO Spaces, etc.)
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3Endpoint     string // Optional: for non-AWS providers
	S3PublicURL    string // Base URL assets are served from (CDN or bucket endpoint)
	S3UsePathStyle bool

	// Video processing
	FFmpegPath       string
	FFprobePath      string
	TranscodeTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		AppName: envString("APP_NAME", "hk-media"),
		AppEnv:  envString("APP_ENV", "development"),
		Port:    envString("PORT", "8090"),

		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/media.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		JWTSecret: envRequired("JWT_SECRET"),

		SentryDSN: envString("SENTRY_DSN", ""),

		StorageDriver: envString("STORAGE_DRIVER", "local"),
		LocalPath:     envString("LOCAL_STORAGE_PATH", "public/uploads"),
		LocalBaseURL:  envString("LOCAL_STORAGE_BASE_URL", "/uploads"),

		S3Region:       envString("S3_REGION", "auto"),
		S3Bucket:       envString("S3_BUCKET", ""),
		S3AccessKey:    envString("S3_ACCESS_KEY", ""),
		S3SecretKey:    envString("S3_SECRET_KEY", ""),
		S3Endpoint:     envString("S3_ENDPOINT", ""),
		S3PublicURL:    envString("S3_PUBLIC_URL", ""),
		S3UsePathStyle: envBool("S3_USE_PATH_STYLE", true),

		FFmpegPath:       envString("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:      envString("FFPROBE_PATH", "ffprobe"),
		TranscodeTimeout: envDuration("TRANSCODE_TIMEOUT", 120*time.Second),
	}

	if cfg.StorageDriver == "s3" {
		validateS3(cfg)
	}

	return cfg
}

// validateS3 ensures the S3 backend has everything it needs before the first upload fails.
func validateS3(cfg *Config) {
	for key, val := range map[string]string{
		"S3_BUCKET":     cfg.S3Bucket,
		"S3_ACCESS_KEY": cfg.S3AccessKey,
		"S3_SECRET_KEY": cfg.S3SecretKey,
	} {
		if val == "" {
			slog.Error("config required env var missing for STORAGE_DRIVER=s3", "key", key)
			os.Exit(1)
		}
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
