package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends selectable with STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Port     string
	LogLevel string

	// Storage
	StoreBackend string
	DBConn       string
	SQLitePath   string

	// Auth
	JWTSecret     string
	SessionTTL    time.Duration
	IdleTimeout   time.Duration
	EncryptionKey string

	// Rate provider
	CBRURL      string
	RateMargin  float64
	DefaultRate float64

	// AMQP; events are disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// SMTP
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	SenderEmail   string
	NotifyEnabled bool
}

// NewConfig loads configuration from the environment, reading a .env file
// first when one exists.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend: getEnv("STORE_BACKEND", BackendPostgres),
		DBConn:       getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=smartbank sslmode=disable"),
		SQLitePath:   getEnv("SQLITE_PATH", "./data/smartbank.db"),

		JWTSecret:     getEnv("JWT_SECRET", "secret"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		IdleTimeout:   getEnvDuration("IDLE_TIMEOUT", 30*time.Minute),
		EncryptionKey: getEnv("ENCRYPTION_KEY", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"),

		CBRURL:      getEnv("CBR_URL", "https://www.cbr.ru/DailyInfoWebServ/DailyInfo.asmx"),
		RateMargin:  getEnvFloat("RATE_MARGIN", 5.0),
		DefaultRate: getEnvFloat("DEFAULT_RATE", 4.0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "smartbank"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		SMTPHost:      getEnv("SMTP_HOST", "localhost"),
		SMTPPort:      getEnv("SMTP_PORT", "25"),
		SMTPUsername:  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SenderEmail:   getEnv("SENDER_EMAIL", "noreply@smartbank.local"),
		NotifyEnabled: getEnvBool("NOTIFY_ENABLED", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.StoreBackend {
	case BackendPostgres:
		if c.DBConn == "" {
			errs = append(errs, "DB_CONN is required for the postgres backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, "SQLITE_PATH is required for the sqlite backend")
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Sprintf("invalid store backend '%s': must be one of postgres, sqlite, memory", c.StoreBackend))
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid session TTL %v: must be positive", c.SessionTTL))
	}
	if c.IdleTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("invalid idle timeout %v: must be positive", c.IdleTimeout))
	}
	if _, err := c.EncryptionKeyBytes(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.DefaultRate < 0 {
		errs = append(errs, fmt.Sprintf("invalid default rate %v: must not be negative", c.DefaultRate))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.NotifyEnabled && c.SMTPHost == "" {
		errs = append(errs, "SMTP_HOST is required when notifications are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// EncryptionKeyBytes decodes the hex AES-256 key.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.EncryptionKey)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters")
	}
	return key, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}
