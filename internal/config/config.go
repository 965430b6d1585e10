package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	// Zone names resolve even on hosts without a system tz database.
	_ "time/tzdata"
)

type Config struct {
	// HTTP server
	Port        string
	CORSOrigins []string

	// Database
	DBPath string

	// Logging
	LogLevel  string
	LogFormat string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// Dashboard "today"
	Timezone string

	// Email
	PostmarkToken string
	FromEmail     string
	FromName      string

	// Notification delivery. Empty AMQPURL means in-process workers.
	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string
	NotifyWorkers int
	NotifyBuffer  int

	// Backups to S3-compatible storage
	S3Endpoint       string
	S3Bucket         string
	S3Region         string
	S3AccessKey      string
	S3SecretKey      string
	S3Prefix         string
	BackupPassphrase string
	BackupRetention  time.Duration
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("LANDLORD_PORT", "8080"),
		CORSOrigins: getEnvList("LANDLORD_CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),

		DBPath: getEnv("LANDLORD_DB_PATH", "landlord.db"),

		LogLevel:  getEnv("LANDLORD_LOG_LEVEL", "info"),
		LogFormat: getEnv("LANDLORD_LOG_FORMAT", "text"),

		JWTSecret: getEnv("LANDLORD_JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("LANDLORD_TOKEN_TTL", 24*time.Hour),

		Timezone: getEnv("LANDLORD_TIMEZONE", ""),

		PostmarkToken: getEnv("LANDLORD_POSTMARK_TOKEN", ""),
		FromEmail:     getEnv("LANDLORD_FROM_EMAIL", ""),
		FromName:      getEnv("LANDLORD_FROM_NAME", "Murithi Rentals"),

		AMQPURL:       getEnv("LANDLORD_AMQP_URL", ""),
		AMQPExchange:  getEnv("LANDLORD_AMQP_EXCHANGE", "landlord"),
		AMQPQueue:     getEnv("LANDLORD_AMQP_QUEUE", "notifications"),
		NotifyWorkers: getEnvInt("LANDLORD_NOTIFY_WORKERS", 2),
		NotifyBuffer:  getEnvInt("LANDLORD_NOTIFY_BUFFER", 100),

		S3Endpoint:       getEnv("LANDLORD_S3_ENDPOINT", ""),
		S3Bucket:         getEnv("LANDLORD_S3_BUCKET", ""),
		S3Region:         getEnv("LANDLORD_S3_REGION", "us-east-1"),
		S3AccessKey:      getEnv("LANDLORD_S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("LANDLORD_S3_SECRET_KEY", ""),
		S3Prefix:         getEnv("LANDLORD_S3_PREFIX", "landlord/"),
		BackupPassphrase: getEnv("LANDLORD_BACKUP_PASSPHRASE", ""),
		BackupRetention:  getEnvDuration("LANDLORD_BACKUP_RETENTION", 30*24*time.Hour),
	}
}

// Location resolves Timezone. Empty means the process's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Validate checks the settings every command needs and reports all
// problems at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		problems = append(problems, "database path cannot be empty")
	}

	if c.TokenTTL <= 0 {
		problems = append(problems, "token TTL must be positive")
	}

	if _, err := c.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.PostmarkToken != "" && c.FromEmail == "" {
		problems = append(problems, "from email is required when a Postmark token is set")
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" || c.AMQPQueue == "" {
			problems = append(problems, "AMQP exchange and queue names are required when an AMQP URL is set")
		}
	}

	if c.NotifyWorkers < 1 {
		problems = append(problems, fmt.Sprintf("notify workers must be at least 1, got %d", c.NotifyWorkers))
	}
	if c.NotifyBuffer < 1 {
		problems = append(problems, fmt.Sprintf("notify buffer must be at least 1, got %d", c.NotifyBuffer))
	}

	if c.BackupRetention <= 0 {
		problems = append(problems, "backup retention must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// ValidateServe adds the checks only the HTTP server needs.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("configuration validation failed:\n  - LANDLORD_JWT_SECRET must be at least 16 characters")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
