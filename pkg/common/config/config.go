package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort      string
	ServerHost      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxRequestBody  int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string
	AutoMigrate      bool

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers          []string
	SubmissionEventsTopic string

	// Bot verification
	TurnstileSecret    string
	TurnstileVerifyURL string
	TurnstileTimeout   time.Duration

	// Fan-out
	DeliveryTimeout time.Duration
	FanoutAwait     bool
	TelegramBaseURL string
	NotionBaseURL   string
	NotionVersion   string

	// Email
	EmailAPIKey       string
	EmailBaseURL      string
	EmailFrom         string
	MailTemplatesPath string
}

func Load() *Config {
	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		ServerHost:      getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxRequestBody:  int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "formrelay"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "formrelay"),
		PostgresDB:       getEnv("POSTGRES_DB", "formrelay"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		AutoMigrate:      getBoolEnv("DB_AUTO_MIGRATE", false),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:          getStringSliceEnv("KAFKA_BROKERS", nil),
		SubmissionEventsTopic: getEnv("SUBMISSION_EVENTS_TOPIC", "submissions.created"),

		TurnstileSecret:    getEnv("TURNSTILE_SECRET_KEY", ""),
		TurnstileVerifyURL: getEnv("TURNSTILE_VERIFY_URL", "https://challenges.cloudflare.com/turnstile/v0/siteverify"),
		TurnstileTimeout:   getDuration("TURNSTILE_TIMEOUT", 5*time.Second),

		DeliveryTimeout: getDuration("DELIVERY_TIMEOUT", 10*time.Second),
		FanoutAwait:     getBoolEnv("FANOUT_AWAIT", false),
		TelegramBaseURL: getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
		NotionBaseURL:   getEnv("NOTION_API_BASE_URL", "https://api.notion.com/v1"),
		NotionVersion:   getEnv("NOTION_API_VERSION", "2022-06-28"),

		EmailAPIKey:       getEnv("EMAIL_API_KEY", ""),
		EmailBaseURL:      getEnv("EMAIL_API_BASE_URL", "https://api.resend.com"),
		EmailFrom:         getEnv("EMAIL_FROM", "FormRelay <notifications@formrelay.dev>"),
		MailTemplatesPath: getEnv("MAIL_TEMPLATES_PATH", ""),
	}
}

func (c *Config) PostgresDSN() string {
	return "host=" + c.PostgresHost +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" port=" + c.PostgresPort +
		" sslmode=" + c.PostgresSSLMode
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
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getStringSliceEnv splits a comma-separated value, dropping blanks.
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
