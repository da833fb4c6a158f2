package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	StoreDriver string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Admin
	AdminEmails  string
	AdminUserIDs string

	// Assets
	AssetDriver        string
	AssetDir           string
	AssetBaseURL       string
	GCSBucket          string
	GCSCredentialsJSON string
	AssetMaxBytes      int64
	AssetMaxDimension  int

	// Events / locks
	RedisAddress  string
	RedisPassword string
	EventsChannel string

	// Reports
	Buildings []string

	// Logging
	LogRetentionDays int

	// Server
	Port        string
	CORSOrigins string
	BodyLimitMB int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "fixreport"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),
		StoreDriver: getEnv("STORE_DRIVER", "postgres"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m")),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h")),

		AdminEmails:  getEnv("ADMIN_EMAILS", ""),
		AdminUserIDs: getEnv("ADMIN_USER_IDS", ""),

		AssetDriver:        getEnv("ASSET_DRIVER", "local"),
		AssetDir:           getEnv("ASSET_DIR", "uploads"),
		AssetBaseURL:       getEnv("ASSET_BASE_URL", "/api/assets"),
		GCSBucket:          getEnv("GCS_BUCKET", ""),
		GCSCredentialsJSON: getEnv("GCS_CREDENTIALS_JSON", ""),
		AssetMaxBytes:      int64(parseInt(getEnv("ASSET_MAX_BYTES", "5242880"), 5<<20)),
		AssetMaxDimension:  parseInt(getEnv("ASSET_MAX_DIMENSION", "1920"), 1920),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		EventsChannel: getEnv("EVENTS_CHANNEL", "fixreport:report-events"),

		Buildings: ParseCSV(getEnv("REPORT_BUILDINGS", "")),

		LogRetentionDays: parseInt(getEnv("LOG_RETENTION_DAYS", "30"), 30),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		BodyLimitMB: parseInt(getEnv("BODY_LIMIT_MB", "8"), 8),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// ParseCSV splits a comma-separated list, dropping blanks.
func ParseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
