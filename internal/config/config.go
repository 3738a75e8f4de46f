package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backend names accepted by DATA_BACKEND and MIRROR_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendDynamo = "dynamo"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendDynamo}

type Config struct {
	// HTTP Server
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Timezone used to interpret dates without an offset
	Timezone string

	// Backend selection
	DataBackend   string
	MirrorBackend string

	// Memory backend seed directory
	DataDir string

	// Database
	SQLiteDBPath string

	// DynamoDB
	DynamoTable string
	AWSRegion   string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Persistence retries
	PersistMaxRetries   int
	PersistRetryBackoff time.Duration

	// Last known good snapshot cache
	SnapshotCacheSize int
	SnapshotCacheTTL  time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		Timezone: getEnv("TIMEZONE", "Asia/Tokyo"),

		DataBackend:   getEnv("DATA_BACKEND", BackendMemory),
		MirrorBackend: getEnv("MIRROR_BACKEND", ""),
		DataDir:       getEnv("DATA_DIR", "data"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fanrevenue.db"),

		DynamoTable: getEnv("DYNAMO_TABLE", "fanrevenue-buckets"),
		AWSRegion:   getEnv("AWS_REGION", "ap-northeast-1"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fanrevenue"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "bucket_events"),

		PersistMaxRetries:   getEnvInt("PERSIST_MAX_RETRIES", 3),
		PersistRetryBackoff: getEnvDuration("PERSIST_RETRY_BACKOFF", 200*time.Millisecond),

		SnapshotCacheSize: getEnvInt("SNAPSHOT_CACHE_SIZE", 256),
		SnapshotCacheTTL:  getEnvDuration("SNAPSHOT_CACHE_TTL", 24*time.Hour),
	}

	return cfg
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s'", c.Timezone))
	}

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.MirrorBackend != "" {
		if !slices.Contains(validBackends, c.MirrorBackend) {
			errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be one of %v", c.MirrorBackend, validBackends))
		} else if c.MirrorBackend == c.DataBackend {
			errors = append(errors, fmt.Sprintf("mirror backend '%s' must differ from data backend", c.MirrorBackend))
		}
	}

	if c.uses(BackendSQLite) {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.uses(BackendDynamo) {
		if c.DynamoTable == "" {
			errors = append(errors, "DynamoDB table name is required when using dynamo backend")
		}
		if c.AWSRegion == "" {
			errors = append(errors, "AWS region is required when using dynamo backend")
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.PersistMaxRetries < 0 || c.PersistMaxRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid persist max retries %d: must be between 0 and 10", c.PersistMaxRetries))
	}
	if c.PersistRetryBackoff < 10*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid persist retry backoff %v: must be at least 10ms", c.PersistRetryBackoff))
	} else if c.PersistRetryBackoff > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid persist retry backoff %v: must be at most 1 minute", c.PersistRetryBackoff))
	}

	if c.SnapshotCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid snapshot cache size %d: must be at least 1", c.SnapshotCacheSize))
	} else if c.SnapshotCacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid snapshot cache size %d: must be at most 10000", c.SnapshotCacheSize))
	}
	if c.SnapshotCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid snapshot cache ttl %v: must be at least 1 second", c.SnapshotCacheTTL))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func (c *Config) uses(backend string) bool {
	return c.DataBackend == backend || c.MirrorBackend == backend
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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
