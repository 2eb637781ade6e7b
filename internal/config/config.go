package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/septivank/activity-anomaly-worker/internal/anomaly"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Validation  ValidationConfig
	Detection   anomaly.Config
	Logging     LoggingConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL      string
	MaxConns int
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL               string
	IngestExchange    string
	IngestQueue       string
	IngestRoutingKey  string
	WorkerExchange    string
	WorkerRoutingKey  string
	SummaryRoutingKey string
	DLQQueue          string
	PrefetchCount     int
}

// ValidationConfig holds log line validation settings
type ValidationConfig struct {
	TimestampToleranceMinutes int
}

// LoggingConfig holds log level and optional file rotation settings
type LoggingConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg, err := LoadBase()
	if err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}

	return cfg, nil
}

// LoadBase loads configuration without requiring the worker's external
// services, for one-shot command line runs
func LoadBase() (*Config, error) {
	detection, err := loadDetection()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "activity-anomaly-worker"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8081),
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvAsInt("DATABASE_MAX_CONNS", 10),
		},
		RabbitMQ: RabbitMQConfig{
			URL:               getEnv("RABBITMQ_URL", ""),
			IngestExchange:    getEnv("RABBITMQ_INGEST_EXCHANGE", "activity-logs.ingest.exchange"),
			IngestQueue:       getEnv("RABBITMQ_INGEST_QUEUE", "activity-logs.ingest.queue"),
			IngestRoutingKey:  getEnv("RABBITMQ_INGEST_ROUTING_KEY", "activity.log.batch"),
			WorkerExchange:    getEnv("RABBITMQ_WORKER_EXCHANGE", "activity-logs.anomalies.exchange"),
			WorkerRoutingKey:  getEnv("RABBITMQ_WORKER_ROUTING_KEY", "activity.anomaly.detected"),
			SummaryRoutingKey: getEnv("RABBITMQ_SUMMARY_ROUTING_KEY", "activity.run.completed"),
			DLQQueue:          getEnv("RABBITMQ_DLQ_QUEUE", "activity-logs.ingest.dlq"),
			PrefetchCount:     getEnvAsInt("RABBITMQ_PREFETCH", 10),
		},
		Validation: ValidationConfig{
			TimestampToleranceMinutes: getEnvAsInt("VALIDATION_TIMESTAMP_TOLERANCE_MINUTES", 0),
		},
		Detection: detection,
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 30),
		},
	}

	return cfg, nil
}

// loadDetection layers the optional DETECTION_CONFIG_FILE and then
// DETECTION_* variables over the detection defaults
func loadDetection() (anomaly.Config, error) {
	values := map[string]any{}

	if path := getEnv("DETECTION_CONFIG_FILE", ""); path != "" {
		fromFile, err := LoadDetectionFile(path)
		if err != nil {
			return anomaly.Config{}, err
		}
		values = fromFile
	}

	for _, key := range []string{
		anomaly.KeySpikeWindowSeconds,
		anomaly.KeySpikeThreshold,
		anomaly.KeyGapMinutes,
		anomaly.KeyBusinessStartHour,
		anomaly.KeyBusinessEndHour,
		anomaly.KeyCriticalEvents,
	} {
		if v := os.Getenv("DETECTION_" + strings.ToUpper(key)); v != "" {
			values[key] = v
		}
	}

	cfg, err := anomaly.ConfigFromMap(values)
	if err != nil {
		return anomaly.Config{}, fmt.Errorf("failed to load detection config: %w", err)
	}
	return cfg, nil
}

// LoadDetectionFile reads a YAML file of detection options into a plain
// key/value map. Options may sit at the top level or under "detection".
func LoadDetectionFile(path string) (map[string]any, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read detection config %s: %w", path, err)
	}

	if k.Exists("detection") {
		k = k.Cut("detection")
	}
	return k.Raw(), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
