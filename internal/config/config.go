package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Registry holds the dual-source retrieval parameters shared by the API
// and the worker. Missing Zefix credentials are not an error: the pipeline
// silently runs on the search-derived source only.
type Registry struct {
	ZefixBaseURL  string
	ZefixUser     string
	ZefixPassword string
	SearchBaseURL string
	SearchAPIKey  string
	RecencyMonths int
}

// Worker holds configuration for the discovery -> Elasticsearch/Kafka worker.
type Worker struct {
	Common
	Registry
	KafkaBrokers   []string
	KafkaTopic     string
	Interval       time.Duration
	LookbackDays   int
	DedupeCapacity int
	DedupeTTL      time.Duration
	MetricsAddr    string
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Registry
	BindAddr    string
	DefaultPage int
	MaxPage     int
}

// Retention configures the signal cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "registry_signals"),
	}
}

func loadRegistry() Registry {
	return Registry{
		ZefixBaseURL:  getEnv("ZEFIX_BASE_URL", "https://www.zefix.admin.ch/ZefixPublicREST"),
		ZefixUser:     os.Getenv("ZEFIX_USER"),
		ZefixPassword: os.Getenv("ZEFIX_PASSWORD"),
		SearchBaseURL: getEnv("SEARCH_API_URL", "https://api.search.brave.com"),
		SearchAPIKey:  os.Getenv("SEARCH_API_KEY"),
		RecencyMonths: getInt("RECENCY_MONTHS", 3),
	}
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common:         loadCommon(),
		Registry:       loadRegistry(),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "registry_signals"),
		Interval:       getDuration("WORKER_INTERVAL", "6h"),
		LookbackDays:   getInt("WORKER_LOOKBACK_DAYS", 3),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "720h"),
		MetricsAddr:    getEnv("WORKER_METRICS_ADDR", ":9091"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("WORKER_INTERVAL must be positive")
	}
	if c.LookbackDays <= 0 {
		return nil, fmt.Errorf("WORKER_LOOKBACK_DAYS must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.RecencyMonths <= 0 {
		return nil, fmt.Errorf("RECENCY_MONTHS must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common:      loadCommon(),
		Registry:    loadRegistry(),
		BindAddr:    getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultPage: getInt("API_PAGE_SIZE", 20),
		MaxPage:     getInt("API_MAX_PAGE_SIZE", 100),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}
	if c.RecencyMonths <= 0 {
		return nil, fmt.Errorf("RECENCY_MONTHS must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_INTERVAL", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "2160h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_INTERVAL must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
