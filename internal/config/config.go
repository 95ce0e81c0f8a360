package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"golang.org/x/time/rate"
)

// Config holds all client and relay settings, populated from environment variables.
type Config struct {
	// Platform API.
	APIBaseURL string
	APITimeout time.Duration
	APIToken   string

	// ExpiryWindow applies to records whose celestial body has no validity time.
	ExpiryWindow time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaBrokers       []string
	KafkaReportTopic   string
	KafkaActivityTopic string
	KafkaGroupID       string
	ActivityEnabled    bool

	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Catalog cache. An empty RedisURL disables it.
	RedisURL        string
	CatalogCacheTTL time.Duration

	SubmissionLogPath string
	SubmitRate        rate.Limit
	SubmitBurst       int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parsePositiveDuration("API_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	expiryWindow, err := parsePositiveDuration("OBSERVATION_EXPIRY_WINDOW", "6h")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	catalogTTL, err := parsePositiveDuration("CATALOG_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}

	submitRate, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("SUBMIT_RATE", "2"), 64)
	if err != nil || submitRate <= 0 {
		return nil, errors.New("invalid SUBMIT_RATE")
	}
	submitBurst, err := strconv.Atoi(sharedcfg.EnvOrDefault("SUBMIT_BURST", "1"))
	if err != nil || submitBurst < 1 {
		return nil, errors.New("invalid SUBMIT_BURST")
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		APIBaseURL:   sharedcfg.EnvOrDefault("API_BASE_URL", "http://localhost:8080"),
		APITimeout:   apiTimeout,
		APIToken:     os.Getenv("API_TOKEN"),
		ExpiryWindow: expiryWindow,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":9090"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaReportTopic:   sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "observation-reports"),
		KafkaActivityTopic: sharedcfg.EnvOrDefault("KAFKA_ACTIVITY_TOPIC", "observation-activity"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "observatory-relay"),
		ActivityEnabled:    sharedcfg.EnvOrDefault("ACTIVITY_ENABLED", "true") == "true",

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		RedisURL:        os.Getenv("REDIS_URL"),
		CatalogCacheTTL: catalogTTL,

		SubmissionLogPath: sharedcfg.EnvOrDefault("SUBMISSION_LOG_PATH", "data/submissions.db"),
		SubmitRate:        rate.Limit(submitRate),
		SubmitBurst:       submitBurst,
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("API_BASE_URL is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_REPORT_TOPIC is required")
	}
	if cfg.ActivityEnabled && cfg.KafkaActivityTopic == "" {
		return nil, errors.New("ACTIVITY_ENABLED is true but KAFKA_ACTIVITY_TOPIC is not set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
