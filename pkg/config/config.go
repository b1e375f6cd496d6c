package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Auth           AuthConfig
	Observability  ObservabilityConfig
	AI             AIConfig
	Categorization CategorizationConfig
	Reports        ReportsConfig
	Cron           CronConfig
}

// AIConfig configures the hosted classifier used for expense categorization.
// An empty APIKey disables the classifier and every note goes to keyword matching.
type AIConfig struct {
	APIKey             string
	Model              string
	Endpoint           string
	MaxTokens          int
	Timeout            time.Duration
	RateLimitPerSecond float64
	RateLimitBurst     int
}

type CategorizationConfig struct {
	// KeywordTablePath points to a JSON keyword table. Empty means the built-in table.
	KeywordTablePath string
}

type ReportsConfig struct {
	Timezone string
	Currency string
}

type CronConfig struct {
	Enabled         bool
	CatalogSchedule string
}

type ServerConfig struct {
	Host               string
	Port               int
	BaseURL            string
	RateLimitPerSecond int
	RateLimitBurst     int
	AllowedOrigins     []string
	ShutdownTimeout    time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	LogLevel       string
	LogFormat      string
}

// Load reads configuration from environment variables, after loading .env when present.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "localhost"),
			Port:               getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
			RateLimitPerSecond: getEnvAsInt("SERVER_RATE_LIMIT_PER_SECOND", 100),
			RateLimitBurst:     getEnvAsInt("SERVER_RATE_LIMIT_BURST", 200),
			AllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "expenses-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
		},
		AI: AIConfig{
			APIKey:             getEnv("ANTHROPIC_API_KEY", ""),
			Model:              getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
			Endpoint:           getEnv("ANTHROPIC_ENDPOINT", "https://api.anthropic.com/v1/messages"),
			MaxTokens:          getEnvAsInt("ANTHROPIC_MAX_TOKENS", 16),
			Timeout:            getEnvAsDuration("AI_CLASSIFIER_TIMEOUT", 3*time.Second),
			RateLimitPerSecond: getEnvAsFloat("AI_CLASSIFIER_RATE_PER_SECOND", 5),
			RateLimitBurst:     getEnvAsInt("AI_CLASSIFIER_RATE_BURST", 10),
		},
		Categorization: CategorizationConfig{
			KeywordTablePath: getEnv("KEYWORD_TABLE_PATH", ""),
		},
		Reports: ReportsConfig{
			Timezone: getEnv("REPORTS_TIMEZONE", "Asia/Kolkata"),
			Currency: getEnv("REPORTS_CURRENCY", "INR"),
		},
		Cron: CronConfig{
			Enabled:         getEnvAsBool("CRON_ENABLED", true),
			CatalogSchedule: getEnv("CRON_CATALOG_SCHEDULE", "0 3 * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI_CLASSIFIER_TIMEOUT must be positive, got %s", c.AI.Timeout)
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("ANTHROPIC_MAX_TOKENS must be positive, got %d", c.AI.MaxTokens)
	}
	if _, err := time.LoadLocation(c.Reports.Timezone); err != nil {
		return fmt.Errorf("invalid REPORTS_TIMEZONE %q: %w", c.Reports.Timezone, err)
	}
	return nil
}

// Location returns the time zone "today" is evaluated in for named report ranges.
func (r ReportsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
