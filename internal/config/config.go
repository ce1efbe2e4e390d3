package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Air-quality provider.
	WAQIToken      string
	WAQIBaseURL    string
	WAQITimeout    time.Duration
	WAQIRateLimit  float64
	WAQIMaxRetries int

	// Run scope.
	Bounds     domain.BoundingBox
	Scope      domain.Scope
	CityMarker string
	FilePrefix string
	OutputDir  string

	// Alert synthesis.
	AlertThreshold      float64
	EnrichmentThreshold float64
	EnrichmentEnabled   bool
	AnthropicAPIKey     string
	AnthropicModel      string
	EnrichmentTimeout   time.Duration
	EnrichmentMaxTokens int64

	// Optional sinks.
	KafkaBrokers    []string
	KafkaAlertTopic string
	DatabaseURL     string

	RunInterval     time.Duration
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honoured if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	bounds, err := domain.ParseBoundingBox(sharedcfg.EnvOrDefault("BOUNDS", "13.4963,100.3270,13.9876,100.9378"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOUNDS: %w", err)
	}

	waqiTimeout, err := parsePositiveDuration("WAQI_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	enrichmentTimeout, err := parsePositiveDuration("ENRICHMENT_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	runInterval, err := parseDuration("RUN_INTERVAL", "0")
	if err != nil {
		return nil, err
	}

	rateLimit, err := parseFloat("WAQI_RATE_LIMIT", "5")
	if err != nil {
		return nil, err
	}
	if rateLimit <= 0 {
		return nil, errors.New("WAQI_RATE_LIMIT must be positive")
	}
	maxRetries, err := parseInt("WAQI_MAX_RETRIES", "2")
	if err != nil {
		return nil, err
	}
	if maxRetries < 0 {
		return nil, errors.New("WAQI_MAX_RETRIES must not be negative")
	}
	maxTokens, err := parseInt("ENRICHMENT_MAX_TOKENS", "8192")
	if err != nil {
		return nil, err
	}
	if maxTokens <= 0 {
		return nil, errors.New("ENRICHMENT_MAX_TOKENS must be positive")
	}

	alertThreshold, err := parseThreshold("ALERT_THRESHOLD", "50")
	if err != nil {
		return nil, err
	}
	enrichmentThreshold, err := parseThreshold("ENRICHMENT_THRESHOLD", strconv.FormatFloat(alertThreshold, 'f', -1, 64))
	if err != nil {
		return nil, err
	}

	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	enrichmentEnabled := anthropicKey != ""
	if v := os.Getenv("ENRICHMENT_ENABLED"); v != "" {
		enrichmentEnabled = v == "true"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	scopeLabel := sharedcfg.EnvOrDefault("SCOPE_LABEL", "Bangkok")

	cfg := &Config{
		WAQIToken:      os.Getenv("AQI_API_KEY"),
		WAQIBaseURL:    strings.TrimRight(sharedcfg.EnvOrDefault("WAQI_BASE_URL", "https://api.waqi.info"), "/"),
		WAQITimeout:    waqiTimeout,
		WAQIRateLimit:  rateLimit,
		WAQIMaxRetries: maxRetries,

		Bounds:     bounds,
		Scope:      domain.Scope{Label: scopeLabel, Type: sharedcfg.EnvOrDefault("SCOPE_TYPE", "city")},
		CityMarker: sharedcfg.EnvOrDefault("CITY_MARKER", scopeLabel),
		FilePrefix: sharedcfg.EnvOrDefault("FILE_PREFIX", strings.ToLower(strings.ReplaceAll(scopeLabel, " ", "_"))),
		OutputDir:  sharedcfg.EnvOrDefault("OUTPUT_DIR", "output"),

		AlertThreshold:      alertThreshold,
		EnrichmentThreshold: enrichmentThreshold,
		EnrichmentEnabled:   enrichmentEnabled,
		AnthropicAPIKey:     anthropicKey,
		AnthropicModel:      sharedcfg.EnvOrDefault("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		EnrichmentTimeout:   enrichmentTimeout,
		EnrichmentMaxTokens: int64(maxTokens),

		KafkaBrokers:    brokers,
		KafkaAlertTopic: sharedcfg.EnvOrDefault("KAFKA_ALERT_TOPIC", "air-quality-alerts"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),

		RunInterval:     runInterval,
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.WAQIToken == "" {
		return nil, errors.New("AQI_API_KEY is required")
	}
	if cfg.Scope.Type != "city" && cfg.Scope.Type != "country" {
		return nil, fmt.Errorf("SCOPE_TYPE must be city or country, got %q", cfg.Scope.Type)
	}
	if cfg.FilePrefix == "" {
		return nil, errors.New("FILE_PREFIX must not be empty")
	}
	if cfg.EnrichmentEnabled && cfg.AnthropicAPIKey == "" {
		return nil, errors.New("ENRICHMENT_ENABLED is true but ANTHROPIC_API_KEY is not set")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// KafkaEnabled reports whether alert publication is configured.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// PostgresEnabled reports whether the reading history sink is configured.
func (c *Config) PostgresEnabled() bool { return c.DatabaseURL != "" }

// LoopMode reports whether the process should poll instead of running once.
func (c *Config) LoopMode() bool { return c.RunInterval > 0 }

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := parseDuration(key, fallback)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key, fallback string) (float64, error) {
	f, err := strconv.ParseFloat(sharedcfg.EnvOrDefault(key, fallback), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func parseThreshold(key, fallback string) (float64, error) {
	f, err := parseFloat(key, fallback)
	if err != nil {
		return 0, err
	}
	if f < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return f, nil
}

func parseInt(key, fallback string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
