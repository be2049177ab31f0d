package config

import (
	"errors"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Cache backends.
const (
	CacheBackendFS     = "fs"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

const (
	defaultCSVURL     = "https://raw.githubusercontent.com/owid/co2-data/master/owid-co2-data.csv"
	defaultJSONURLs   = "https://raw.githubusercontent.com/owid/co2-data/master/owid-co2-data.json,https://github.com/owid/co2-data/raw/master/owid-co2-data.json"
	defaultKafkaTopic = "co2-region-series"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// OWID source configuration.
	CSVURL       string
	JSONURLs     []string
	FetchTimeout time.Duration

	// Artifact cache configuration.
	CacheBackend string
	CacheDir     string
	RedisURL     string

	// Snapshot publication; disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// KafkaEnabled reports whether the normalized table is published after a build.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FETCH_TIMEOUT", "30s"))
	if err != nil || fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		CSVURL:       strings.TrimSpace(sharedcfg.EnvOrDefault("OWID_CSV_URL", defaultCSVURL)),
		JSONURLs:     splitList(sharedcfg.EnvOrDefault("OWID_JSON_URLS", defaultJSONURLs)),
		FetchTimeout: fetchTimeout,

		CacheBackend: strings.ToLower(sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheBackendFS)),
		CacheDir:     sharedcfg.EnvOrDefault("CACHE_DIR", "data"),
		RedisURL:     os.Getenv("REDIS_URL"),

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", defaultKafkaTopic),
	}

	switch cfg.CacheBackend {
	case CacheBackendFS, CacheBackendMemory:
	case CacheBackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("CACHE_BACKEND is redis but REDIS_URL is not set")
		}
	default:
		return nil, errors.New("CACHE_BACKEND must be one of fs, redis, memory")
	}
	if cfg.CSVURL == "" && len(cfg.JSONURLs) == 0 {
		return nil, errors.New("OWID_CSV_URL or OWID_JSON_URLS is required")
	}
	if cfg.KafkaEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
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
