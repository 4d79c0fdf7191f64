package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Observ    ObservabilityConfig
	Dashboard DashboardConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type DataConfig struct {
	File string
}

// DatabaseConfig enables RFM snapshots when URL is set
type DatabaseConfig struct {
	URL string
}

// RedisConfig enables the dashboard cache when Addr is set
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// KafkaConfig enables dataset events when Brokers is non-empty
type KafkaConfig struct {
	Brokers       []string
	TopicDataset  string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

type DashboardConfig struct {
	HistogramBins      int
	TopN               int
	RecentWindowMonths int
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB := getEnvInt("REDIS_DB", 0)
	cacheTTL := getEnvInt("CACHE_TTL_SECONDS", 300)

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Env:      getEnv("ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", ""),
		},
		Data: DataConfig{
			File: getEnv("DATA_FILE", "data/cleaned_data.csv"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			CacheTTL: time.Duration(cacheTTL) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "")),
			TopicDataset:  getEnv("KAFKA_TOPIC_DATASET_EVENTS", "dataset-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "order-analytics-group"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		},
		Dashboard: DashboardConfig{
			HistogramBins:      getEnvInt("HISTOGRAM_BINS", 50),
			TopN:               getEnvInt("TOP_N", 5),
			RecentWindowMonths: getEnvInt("RECENT_WINDOW_MONTHS", 6),
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, data=%s", cfg.Server.Env, cfg.Server.Port, cfg.Data.File)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt falls back to defaultVal for unset or malformed values
func getEnvInt(key string, defaultVal int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultVal)))
	if err != nil {
		log.Printf("Invalid integer for %s, using %d", key, defaultVal)
		return defaultVal
	}
	return v
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
