package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	MySQL    MySQLConfig
	Log      LogConfig
	Gateway  GatewayConfig
	Webhook  WebhookConfig
	Payments PaymentsConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
	AdminSecret string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type GatewayConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

type WebhookConfig struct {
	SharedKey                 string
	SigningSecret             string
	SignatureToleranceSeconds int64
}

type PaymentsConfig struct {
	StuckSessionAfter      time.Duration
	MonitorBatchSize       int32
	MonitorAssumeCompleted bool
	ReconcileWindow        time.Duration
	NotifyMaxAttempts      int32
	NotifyBatchSize        int32
	NotifyRetryInterval    time.Duration
	NotifyHTTPTimeout      time.Duration
	NotificationURL        string
	AdminRecipient         string
}

type JobsConfig struct {
	MonitorInterval        time.Duration
	NotifyDispatchInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "momo-payments"),
			APIKey:      getEnv("APP_API_KEY", ""),
			AdminSecret: getEnv("APP_ADMIN_SECRET", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Gateway: GatewayConfig{
			BaseURL:     getEnv("GATEWAY_BASE_URL", "https://api.clickpesa.com"),
			APIKey:      getEnv("GATEWAY_API_KEY", ""),
			HTTPTimeout: getSecondsEnv("GATEWAY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Webhook: WebhookConfig{
			SharedKey:                 getEnv("WEBHOOK_SHARED_KEY", ""),
			SigningSecret:             getEnv("WEBHOOK_SIGNING_SECRET", ""),
			SignatureToleranceSeconds: int64(getIntEnv("WEBHOOK_SIGNATURE_TOLERANCE_SECONDS", 300)),
		},
		Payments: PaymentsConfig{
			StuckSessionAfter:      getMinutesEnv("PAYMENTS_STUCK_SESSION_AFTER_MINUTES", 10*time.Minute),
			MonitorBatchSize:       int32(getIntEnv("PAYMENTS_MONITOR_BATCH_SIZE", 10)),
			MonitorAssumeCompleted: getBoolEnv("PAYMENTS_MONITOR_ASSUME_COMPLETED", false),
			ReconcileWindow:        getMinutesEnv("PAYMENTS_RECONCILE_WINDOW_MINUTES", 5*time.Minute),
			NotifyMaxAttempts:      int32(getIntEnv("PAYMENTS_NOTIFY_MAX_ATTEMPTS", 10)),
			NotifyBatchSize:        int32(getIntEnv("PAYMENTS_NOTIFY_BATCH_SIZE", 100)),
			NotifyRetryInterval:    getMinutesEnv("PAYMENTS_NOTIFY_RETRY_INTERVAL_MINUTES", 5*time.Minute),
			NotifyHTTPTimeout:      getSecondsEnv("PAYMENTS_NOTIFY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			NotificationURL:        getEnv("PAYMENTS_NOTIFICATION_URL", ""),
			AdminRecipient:         getEnv("PAYMENTS_ADMIN_RECIPIENT", ""),
		},
		Jobs: JobsConfig{
			MonitorInterval:        getMinutesEnv("PAYMENTS_MONITOR_INTERVAL_MINUTES", 5*time.Minute),
			NotifyDispatchInterval: getMinutesEnv("PAYMENTS_NOTIFY_DISPATCH_INTERVAL_MINUTES", time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
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

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
