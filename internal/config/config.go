package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Provider ProviderConfig
	Sync     SyncConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds database configuration. Driver is either
// "postgres" or "sqlite"; Path is only used by sqlite.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string
}

// KafkaConfig holds Kafka configuration. An empty broker list disables
// both the sync event producer and the symbol event consumer.
type KafkaConfig struct {
	Brokers     []string
	Topic       string
	SymbolTopic string
	GroupID     string
}

// RedisConfig holds the run lock configuration. An empty Addr disables it.
// Per-symbol runs refresh the lock before each symbol, so LockTTL only has
// to cover fetching and inserting a single symbol.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// ProviderConfig holds the historical data provider endpoints
type ProviderConfig struct {
	RowEndpoint   string
	BatchEndpoint string
	BatchEnv      string
}

// SyncConfig holds sync orchestration settings
type SyncConfig struct {
	VendorID       int
	ShortRangeDays int
	BackfillDays   int
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string
	JSON  bool
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "securities_master"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_PATH", "securities_master.db"),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvList("KAFKA_BROKERS"),
			Topic:       getEnv("KAFKA_TOPIC", "price-sync-events"),
			SymbolTopic: getEnv("KAFKA_SYMBOL_TOPIC", "symbol-events"),
			GroupID:     getEnv("KAFKA_GROUP_ID", "price-sync"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			LockTTL:  getEnvDuration("REDIS_LOCK_TTL", 2*time.Hour),
		},
		Provider: ProviderConfig{
			RowEndpoint:   getEnv("PROVIDER_ROW_ENDPOINT", "http://ichart.finance.yahoo.com/table.csv"),
			BatchEndpoint: getEnv("PROVIDER_BATCH_ENDPOINT", "http://query.yahooapis.com/v1/public/yql"),
			BatchEnv:      getEnv("PROVIDER_BATCH_ENV", "store://datatables.org/alltableswithkeys"),
		},
		Sync: SyncConfig{
			VendorID:       getEnvInt("SYNC_VENDOR_ID", 1),
			ShortRangeDays: getEnvInt("SYNC_SHORT_RANGE_DAYS", 30),
			BackfillDays:   getEnvInt("SYNC_BACKFILL_DAYS", 365),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			JSON:  getEnvBool("LOG_JSON", false),
		},
	}
}

// ConnectionString returns the data source name for the configured driver
func (d *DatabaseConfig) ConnectionString() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Enabled reports whether any Kafka brokers are configured
func (k *KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
