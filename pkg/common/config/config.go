package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	DatabaseDriver   string
	SQLitePath       string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	ReportCacheTTL time.Duration

	// Kafka
	KafkaBrokers        []string
	KafkaGroupID        string
	KafkaDiagnosisTopic string
	EventsEnabled       bool

	// OIDC
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string

	// Intake
	CatalogPath     string
	ImageStore      string
	ImageExtensions []string
	UploadDir       string
	S3Bucket        string
	AWSRegion       string

	// Reporting
	ReportPlaceholders bool

	// Alerts
	AlertServicePort string
	AlertMaxLevel    int

	// Gateway
	RateLimitRPS   int
	RateLimitBurst int

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 16*1024*1024)),

		DatabaseDriver:   strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		SQLitePath:       getEnv("SQLITE_PATH", "tib_ai.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "triage"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "triage123"),
		PostgresDB:       getEnv("POSTGRES_DB", "triage"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:      getEnv("REDIS_HOST", ""),
		RedisPort:      getEnv("REDIS_PORT", "6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getIntEnv("REDIS_DB", 0),
		ReportCacheTTL: getDuration("REPORT_CACHE_TTL", time.Minute),

		KafkaBrokers:        getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:        getEnv("KAFKA_GROUP_ID", "triage-alerts"),
		KafkaDiagnosisTopic: getEnv("KAFKA_DIAGNOSIS_TOPIC", "patient-diagnosed"),
		EventsEnabled:       getBoolEnv("EVENTS_ENABLED", false),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),

		CatalogPath:     getEnv("CATALOG_PATH", ""),
		ImageStore:      strings.ToLower(getEnv("IMAGE_STORE", "local")),
		ImageExtensions: getStringSliceEnv("ALLOWED_IMAGE_EXTENSIONS", []string{"png", "jpg", "jpeg"}),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		S3Bucket:        getEnv("S3_BUCKET_NAME", ""),
		AWSRegion:       getEnv("AWS_REGION", ""),

		ReportPlaceholders: getBoolEnv("REPORT_PLACEHOLDERS", true),

		AlertServicePort: getEnv("ALERT_SERVICE_PORT", "5001"),
		AlertMaxLevel:    getIntEnv("ALERT_MAX_LEVEL", 2),

		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}
}

// RedisAddr returns the redis address or an empty string when redis is not configured.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
