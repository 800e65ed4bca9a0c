package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	AutoMigrate        bool
	MaxBodyBytes       int64
	HSTSMaxAge         int

	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration

	VATRate         decimal.Decimal
	CurrencyCode    string
	SessionTTL      time.Duration
	CatalogCacheTTL time.Duration
	IdempotencyTTL  time.Duration

	LockTTL          time.Duration
	LockRetryBackoff time.Duration
	LockMaxWait      time.Duration

	RateLimit         string
	RateLimitStrategy string

	QueueName        string
	QueueConcurrency int
	QueueMaxRetry    int

	LogFormat        string
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	TracingSampling  float64
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	vatRate, err := parseVATRate(k.String("POS_VAT_RATE"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		AutoMigrate:        parseBool(k.String("DB_AUTO_MIGRATE"), true),
		MaxBodyBytes:       int64(parseInt(k.String("HTTP_MAX_BODY_BYTES"), 64<<10)),
		HSTSMaxAge:         parseInt(k.String("HSTS_MAX_AGE"), 0),

		JWTSecret:      k.String("JWT_SECRET"),
		JWTIssuer:      valueOrDefault(k.String("JWT_ISSUER"), "backend-pos"),
		JWTAudience:    valueOrDefault(k.String("JWT_AUDIENCE"), "pos-terminal"),
		AccessTokenTTL: parseDuration(k.String("ACCESS_TOKEN_TTL"), "12h"),

		VATRate:         vatRate,
		CurrencyCode:    strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "SAR")),
		SessionTTL:      parseDuration(k.String("SESSION_TTL"), "12h"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		LockTTL:          parseDuration(k.String("LOCK_TTL"), "5s"),
		LockRetryBackoff: parseDuration(k.String("LOCK_RETRY_BACKOFF"), "25ms"),
		LockMaxWait:      parseDuration(k.String("LOCK_MAX_WAIT"), "2s"),

		RateLimit:         valueOrDefault(k.String("RATE_LIMIT"), "600-M"),
		RateLimitStrategy: strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_STRATEGY"), "fixed")),

		QueueName:        valueOrDefault(k.String("QUEUE_NAME"), "kitchen"),
		QueueConcurrency: parseInt(k.String("QUEUE_CONCURRENCY"), 4),
		QueueMaxRetry:    parseInt(k.String("QUEUE_MAX_RETRY"), 5),

		LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsEnabled:   parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "pos"),
		MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING"), false),
		TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		OTLPEndpoint:     k.String("OBS_OTLP_ENDPOINT"),
		TracingSampling:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	switch cfg.RateLimitStrategy {
	case "fixed", "sliding":
	default:
		return nil, fmt.Errorf("RATE_LIMIT_STRATEGY must be fixed or sliding, got %q", cfg.RateLimitStrategy)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func parseVATRate(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	if value == "" {
		return decimal.NewFromInt(15), nil
	}
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("POS_VAT_RATE: %w", err)
	}
	if rate.IsNegative() {
		return decimal.Decimal{}, errors.New("POS_VAT_RATE must not be negative")
	}
	return rate, nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return n
	}
	return fallback
}

func parseFloat(value string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return f
	}
	return fallback
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests sets the given variables, loads, and restores the previous
// environment. An empty value unsets the variable for the duration of the load.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]*string, len(env))
	for key, value := range env {
		if prev, ok := os.LookupEnv(key); ok {
			original[key] = &prev
		} else {
			original[key] = nil
		}
		if err := setEnvVar(key, value); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]*string) error {
	var errs []error
	for key, value := range values {
		var err error
		if value == nil {
			err = os.Unsetenv(key)
		} else {
			err = os.Setenv(key, *value)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %w", errors.Join(errs...))
	}
	return nil
}
