package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Tink       TinkConfig
	Encryption EncryptionConfig
	Session    SessionConfig
	Scheduler  SchedulerConfig
	Telemetry  TelemetryConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// TinkConfig holds credentials and defaults for the bank aggregation provider.
type TinkConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	DefaultMarket string
	DefaultLocale string
	TestMode      bool
	PageSize      int
}

type EncryptionConfig struct {
	Key string
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

type SchedulerConfig struct {
	Enabled       bool
	ScheduleTimes []string
	WorkerCount   int
	JobDelay      time.Duration
	QueueSize     int
	RunOnStartup  bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
}

func Load() (*Config, error) {
	// Best-effort .env loading for local development.
	_ = godotenv.Load()

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	schedulerWorkers, err := strconv.Atoi(getEnv("SCHEDULER_WORKERS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_WORKERS: %w", err)
	}
	schedulerJobDelay, err := time.ParseDuration(getEnv("SCHEDULER_JOB_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_JOB_DELAY: %w", err)
	}
	schedulerQueueSize, err := strconv.Atoi(getEnv("SCHEDULER_QUEUE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_QUEUE_SIZE: %w", err)
	}

	sessionTTL, err := time.ParseDuration(getEnv("CONNECT_SESSION_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONNECT_SESSION_TTL: %w", err)
	}

	pageSize, err := strconv.Atoi(getEnv("TINK_PAGE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid TINK_PAGE_SIZE: %w", err)
	}

	var allowedHosts []string
	for _, host := range strings.Split(getEnv("ALLOWED_HOSTS", ""), ",") {
		host = strings.TrimSpace(host)
		if host != "" {
			allowedHosts = append(allowedHosts, host)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: allowedHosts,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "zzpboek"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "zzpboek"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Tink: TinkConfig{
			ClientID:      getEnv("TINK_CLIENT_ID", ""),
			ClientSecret:  getEnv("TINK_CLIENT_SECRET", ""),
			RedirectURL:   getEnv("TINK_REDIRECT_URL", ""),
			DefaultMarket: getEnv("TINK_DEFAULT_MARKET", "NL"),
			DefaultLocale: getEnv("TINK_DEFAULT_LOCALE", "nl_NL"),
			TestMode:      getBoolEnv("TINK_TEST_MODE", false),
			PageSize:      pageSize,
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Session: SessionConfig{
			Secret: getEnv("CONNECT_SESSION_SECRET", ""),
			TTL:    sessionTTL,
		},
		Scheduler: SchedulerConfig{
			Enabled:       getBoolEnv("SCHEDULER_ENABLED", true),
			ScheduleTimes: strings.Split(getEnv("SCHEDULER_TIMES", "06:00,12:00,18:00"), ","),
			WorkerCount:   schedulerWorkers,
			JobDelay:      schedulerJobDelay,
			QueueSize:     schedulerQueueSize,
			RunOnStartup:  getBoolEnv("SCHEDULER_RUN_ON_STARTUP", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "zzpboek-api"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
		},
	}

	if cfg.Encryption.Key == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(cfg.Encryption.Key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}
	if cfg.Session.Secret == "" {
		return nil, fmt.Errorf("CONNECT_SESSION_SECRET is required")
	}
	if cfg.Tink.PageSize <= 0 {
		return nil, fmt.Errorf("TINK_PAGE_SIZE must be positive")
	}

	// Provider credentials are validated by the Tink client on first use, but
	// a configured client id without a redirect URL is always a mistake.
	if cfg.Tink.ClientID != "" && cfg.Tink.RedirectURL == "" {
		return nil, fmt.Errorf("TINK_REDIRECT_URL is required when TINK_CLIENT_ID is set")
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
