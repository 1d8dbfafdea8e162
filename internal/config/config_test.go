package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDBDSN, "postgres://env/override")
	t.Setenv(EnvOpenAIAPIKey, "env-openai")
	t.Setenv(EnvCORSOrigins, "https://a.example, https://b.example")

	t.Setenv(EnvConfigFile, writeConfigFile(t, `
version: 1
http_addr: "127.0.0.1:7070"
db_driver: "Postgres"
db_dsn: "postgres://yaml/db"
agent:
  provider: openai
  model: gpt-4.1-mini
  openai_api_key: yaml-openai
  openai_base_url: http://localhost:9999/v1
  exchange_timeout: 30s
  max_tokens: 512
  temperature: 0.4
webhooks:
  - https://reports.example/hooks
webhook_events: [transcript.submitted, scenario.authored]
webhook_token: " reports-token "
cors_origins:
  - https://yaml.example
log_level: DEBUG
seed: false
`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:7070" {
		t.Fatalf("unexpected HTTP addr %q", cfg.HTTPAddr)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("unexpected db driver %q", cfg.DBDriver)
	}
	if cfg.DBDSN != "postgres://env/override" {
		t.Fatalf("expected env DB DSN override, got %q", cfg.DBDSN)
	}
	if cfg.Provider != ProviderOpenAI || cfg.Model != "gpt-4.1-mini" {
		t.Fatalf("unexpected agent %s/%s", cfg.Provider, cfg.Model)
	}
	if cfg.OpenAIAPIKey != "env-openai" {
		t.Fatalf("expected env openai key override, got %q", cfg.OpenAIAPIKey)
	}
	if cfg.OpenAIBaseURL != "http://localhost:9999/v1" {
		t.Fatalf("unexpected openai base url %q", cfg.OpenAIBaseURL)
	}
	if cfg.ExchangeTimeout != 30*time.Second {
		t.Fatalf("unexpected exchange timeout %s", cfg.ExchangeTimeout)
	}
	if cfg.MaxTokens != 512 || cfg.Temperature != 0.4 {
		t.Fatalf("unexpected max tokens/temperature %d/%v", cfg.MaxTokens, cfg.Temperature)
	}
	if len(cfg.WebhookURLs) != 1 || cfg.WebhookURLs[0] != "https://reports.example/hooks" {
		t.Fatalf("unexpected webhooks %v", cfg.WebhookURLs)
	}
	if strings.Join(cfg.WebhookEvents, "|") != "transcript.submitted|scenario.authored" || cfg.WebhookToken != "reports-token" {
		t.Fatalf("unexpected webhook filter %v / token %q", cfg.WebhookEvents, cfg.WebhookToken)
	}
	if strings.Join(cfg.CORSOrigins, "|") != "https://a.example|https://b.example" {
		t.Fatalf("expected env cors override, got %v", cfg.CORSOrigins)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level %q", cfg.LogLevel)
	}
	if cfg.Seed {
		t.Fatalf("expected seed=false from yaml")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigFile, writeConfigFile(t, `
agent:
  exchange_timeout: "soon"
`))

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "agent.exchange_timeout") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != DefaultHTTPAddr || cfg.DBDriver != DefaultDBDriver || cfg.DBDSN != DefaultDBDSN {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Provider != ProviderGemini || cfg.Model != DefaultModel {
		t.Fatalf("unexpected agent defaults %s/%s", cfg.Provider, cfg.Model)
	}
	if cfg.ExchangeTimeout != DefaultExchangeTimeout || cfg.MaxTokens != DefaultMaxTokens {
		t.Fatalf("unexpected exchange defaults %s/%d", cfg.ExchangeTimeout, cfg.MaxTokens)
	}
	if !cfg.Seed {
		t.Fatalf("expected seeding on by default")
	}
}

func TestLoadPrefersLocalConfigOverHome(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	work := t.TempDir()
	chdir(t, work)

	writeConfigFileAt(t, filepath.Join(home, ".hunt", "config.yml"), "http_addr: \":9001\"\n")
	writeConfigFileAt(t, filepath.Join(work, ".hunt", "config.yaml"), "http_addr: \":9002\"\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != ":9002" {
		t.Fatalf("expected local config, got %q", cfg.HTTPAddr)
	}
}

func TestLoadFallsBackToHomeConfig(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	writeConfigFileAt(t, filepath.Join(home, ".hunt", "config.yml"), "http_addr: \":9001\"\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != ":9001" {
		t.Fatalf("expected home config, got %q", cfg.HTTPAddr)
	}
}

func TestFromEnvRejectsBadMaxTokens(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMaxTokens, "lots")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.GeminiAPIKey = "key"
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := map[string]func(*Config){
		"driver":      func(c *Config) { c.DBDriver = "mysql" },
		"dsn":         func(c *Config) { c.DBDSN = " " },
		"provider":    func(c *Config) { c.Provider = "claude" },
		"gemini key":  func(c *Config) { c.GeminiAPIKey = "" },
		"openai key":  func(c *Config) { c.Provider = ProviderOpenAI },
		"timeout":     func(c *Config) { c.ExchangeTimeout = 0 },
		"max tokens":  func(c *Config) { c.MaxTokens = -1 },
		"temperature": func(c *Config) { c.Temperature = 3 },
		"log level":   func(c *Config) { c.LogLevel = "verbose" },
		"model":       func(c *Config) { c.Model = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateStoreIgnoresAgentSettings(t *testing.T) {
	cfg := Default()
	cfg.GeminiAPIKey = ""
	if err := cfg.ValidateStore(); err != nil {
		t.Fatalf("expected store settings to validate, got %v", err)
	}
	cfg.DBDriver = "mysql"
	if err := cfg.ValidateStore(); err == nil {
		t.Fatalf("expected driver error")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvConfigFile, EnvHTTPAddr, EnvDBDriver, EnvDBDSN, EnvProvider, EnvModel,
		EnvGeminiAPIKey, EnvOpenAIAPIKey, EnvOpenAIBaseURL, EnvExchangeTimeout,
		EnvMaxTokens, EnvWebhookURLs, EnvWebhookEvents, EnvWebhookToken, EnvCORSOrigins, EnvLogLevel, EnvSeed,
	} {
		t.Setenv(key, "")
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	original, err := os.Getwd()
	if err != nil {
		t.Fatalf("get cwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(original) })
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfigFileAt(t, path, content)
	return path
}

func writeConfigFileAt(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimLeft(content, "\n")), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
