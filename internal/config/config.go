// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/scalecommerce/internal/repository"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	LogLevel string

	DBDriver       string
	Postgres       repository.Credentials
	SQLitePath     string
	MigrationsPath string

	HTTPPort           string
	GRPCPort           string
	MetricsPort        string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	// Empty runs the simulated gateway in-process.
	PaymentGatewayAddr string
	GatewayLatency     time.Duration
	GatewayTimeout     time.Duration

	// No brokers means an in-memory queue with workers inside the api process.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string
	Workers      int
	QueueBuffer  int
	OutboxTick   time.Duration

	RedisAddr string
	AMQPURL   string
}

func Load() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
		SQLitePath: getEnv("SQLITE_PATH", "./checkout.db"),

		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCPort:           getEnv("GRPC_PORT", "50054"),
		MetricsPort:        getEnv("METRICS_PORT", "9090"),
		MaxRequestBodySize: 1 << 20,

		PaymentGatewayAddr: getEnv("PAYMENT_GATEWAY_ADDR", ""),

		KafkaBrokers: splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "checkout-jobs"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "checkout-workers"),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		AMQPURL:   getEnv("AMQP_URL", ""),
	}

	var err error
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.GatewayLatency, err = getEnvDuration("GATEWAY_LATENCY", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.GatewayTimeout, err = getEnvDuration("GATEWAY_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.OutboxTick, err = getEnvDuration("OUTBOX_TICK", time.Second); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getEnvInt("WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.QueueBuffer, err = getEnvInt("QUEUE_BUFFER", 256); err != nil {
		return nil, err
	}

	switch cfg.DBDriver {
	case DriverPostgres:
		port, err := getEnvInt("DB_PORT", 5432)
		if err != nil {
			return nil, err
		}
		cfg.Postgres = repository.Credentials{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     port,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ecommerce"),
		}
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want %s or %s", cfg.DBDriver, DriverPostgres, DriverSQLite)
	}
	cfg.MigrationsPath = getEnv("MIGRATIONS_PATH", "./internal/repository/migrations/"+cfg.DBDriver)
	cfg.Postgres.MigrationsDirPath = cfg.MigrationsPath

	if cfg.Workers < 1 {
		return nil, fmt.Errorf("invalid WORKERS %d: must be positive", cfg.Workers)
	}
	return cfg, nil
}

// InProcessQueue reports whether jobs run inside the api process.
func (c *Config) InProcessQueue() bool {
	return len(c.KafkaBrokers) == 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
