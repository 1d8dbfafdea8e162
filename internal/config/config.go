// Package config resolves gateway settings from defaults, an optional YAML
// file and HUNT_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvHTTPAddr        = "HUNT_HTTP_ADDR"
	EnvDBDriver        = "HUNT_DB_DRIVER"
	EnvDBDSN           = "HUNT_DB_DSN"
	EnvProvider        = "HUNT_PROVIDER"
	EnvModel           = "HUNT_MODEL"
	EnvGeminiAPIKey    = "HUNT_GEMINI_API_KEY"
	EnvOpenAIAPIKey    = "HUNT_OPENAI_API_KEY"
	EnvOpenAIBaseURL   = "HUNT_OPENAI_BASE_URL"
	EnvExchangeTimeout = "HUNT_EXCHANGE_TIMEOUT"
	EnvMaxTokens       = "HUNT_MAX_TOKENS"
	EnvWebhookURLs     = "HUNT_WEBHOOK_URLS"
	EnvWebhookEvents   = "HUNT_WEBHOOK_EVENTS"
	EnvWebhookToken    = "HUNT_WEBHOOK_TOKEN"
	EnvCORSOrigins     = "HUNT_CORS_ORIGINS"
	EnvLogLevel        = "HUNT_LOG_LEVEL"
	EnvSeed            = "HUNT_SEED"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

const (
	DefaultHTTPAddr        = ":8080"
	DefaultDBDriver        = "sqlite"
	DefaultDBDSN           = "hunt.db"
	DefaultProvider        = ProviderGemini
	DefaultModel           = "gemini-2.5-flash"
	DefaultExchangeTimeout = 60 * time.Second
	DefaultMaxTokens       = 2048
	DefaultLogLevel        = "info"
)

type Config struct {
	HTTPAddr        string
	DBDriver        string
	DBDSN           string
	Provider        string
	Model           string
	GeminiAPIKey    string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	ExchangeTimeout time.Duration
	MaxTokens       int
	Temperature     float64
	WebhookURLs     []string
	WebhookEvents   []string
	WebhookToken    string
	CORSOrigins     []string
	LogLevel        string
	Seed            bool
}

func Default() Config {
	return Config{
		HTTPAddr:        DefaultHTTPAddr,
		DBDriver:        DefaultDBDriver,
		DBDSN:           DefaultDBDSN,
		Provider:        DefaultProvider,
		Model:           DefaultModel,
		ExchangeTimeout: DefaultExchangeTimeout,
		MaxTokens:       DefaultMaxTokens,
		LogLevel:        DefaultLogLevel,
		Seed:            true,
	}
}

// FromEnv applies only environment overrides to the defaults.
func FromEnv() (Config, error) {
	cfg := Default()
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load layers the config file, when one is found, and the environment over
// the defaults.
func Load() (Config, error) {
	cfg := Default()

	fileCfg, err := loadFileConfig()
	if err != nil {
		return Config{}, err
	}
	if err := applyYAML(&cfg, fileCfg); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTPAddr = envOrDefault(EnvHTTPAddr, cfg.HTTPAddr)
	cfg.DBDriver = strings.ToLower(envOrDefault(EnvDBDriver, cfg.DBDriver))
	cfg.DBDSN = envOrDefault(EnvDBDSN, cfg.DBDSN)
	cfg.Provider = strings.ToLower(envOrDefault(EnvProvider, cfg.Provider))
	cfg.Model = envOrDefault(EnvModel, cfg.Model)
	cfg.GeminiAPIKey = envOrDefault(EnvGeminiAPIKey, cfg.GeminiAPIKey)
	cfg.OpenAIAPIKey = envOrDefault(EnvOpenAIAPIKey, cfg.OpenAIAPIKey)
	cfg.OpenAIBaseURL = envOrDefault(EnvOpenAIBaseURL, cfg.OpenAIBaseURL)
	cfg.WebhookToken = envOrDefault(EnvWebhookToken, cfg.WebhookToken)
	cfg.LogLevel = strings.ToLower(envOrDefault(EnvLogLevel, cfg.LogLevel))
	cfg.Seed = parseBoolEnv(EnvSeed, cfg.Seed)

	timeout, err := parseOptionalDuration(envString(EnvExchangeTimeout), cfg.ExchangeTimeout, EnvExchangeTimeout)
	if err != nil {
		return err
	}
	cfg.ExchangeTimeout = timeout

	if raw := envString(EnvMaxTokens); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxTokens, raw, err)
		}
		cfg.MaxTokens = parsed
	}
	if list := splitList(envString(EnvWebhookURLs)); len(list) > 0 {
		cfg.WebhookURLs = list
	}
	if list := splitList(envString(EnvWebhookEvents)); len(list) > 0 {
		cfg.WebhookEvents = list
	}
	if list := splitList(envString(EnvCORSOrigins)); len(list) > 0 {
		cfg.CORSOrigins = list
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("%s must not be empty", EnvHTTPAddr)
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%s must not be empty", EnvModel)
	}
	switch c.Provider {
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("%s is required for provider %s", EnvGeminiAPIKey, ProviderGemini)
		}
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			return fmt.Errorf("%s is required for provider %s", EnvOpenAIAPIKey, ProviderOpenAI)
		}
	default:
		return fmt.Errorf("%s must be %s or %s", EnvProvider, ProviderGemini, ProviderOpenAI)
	}
	if c.ExchangeTimeout <= 0 {
		return fmt.Errorf("%s must be > 0", EnvExchangeTimeout)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%s must be > 0", EnvMaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s must be debug, info, warn or error", EnvLogLevel)
	}
	return nil
}

// ValidateStore checks only the database settings, for commands that never
// call an agent.
func (c Config) ValidateStore() error {
	switch strings.ToLower(strings.TrimSpace(c.DBDriver)) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%s must be sqlite or postgres", EnvDBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return fmt.Errorf("%s must not be empty", EnvDBDSN)
	}
	return nil
}

func envString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func envOrDefault(key, fallback string) string {
	if value := envString(key); value != "" {
		return value
	}
	return fallback
}

func parseBoolEnv(key string, fallback bool) bool {
	switch strings.ToLower(envString(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseOptionalDuration(raw string, fallback time.Duration, field string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration %q: %w", field, value, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be > 0", field)
	}
	return parsed, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
