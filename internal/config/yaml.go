package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigFile           = "HUNT_CONFIG_FILE"
	configDirName           = ".hunt"
	defaultConfigFileName   = "config.yaml"
	alternateConfigFileName = "config.yml"
)

type fileConfig struct {
	Version     int       `yaml:"version"`
	HTTPAddr    string    `yaml:"http_addr"`
	DBDriver    string    `yaml:"db_driver"`
	DBDSN       string    `yaml:"db_dsn"`
	Agent       fileAgent `yaml:"agent"`
	Webhooks    []string  `yaml:"webhooks"`
	CORSOrigins []string  `yaml:"cors_origins"`
	LogLevel    string    `yaml:"log_level"`
	Seed        *bool     `yaml:"seed"`

	WebhookEvents []string `yaml:"webhook_events"`
	WebhookToken  string   `yaml:"webhook_token"`
}

type fileAgent struct {
	Provider        string   `yaml:"provider"`
	Model           string   `yaml:"model"`
	GeminiAPIKey    string   `yaml:"gemini_api_key"`
	OpenAIAPIKey    string   `yaml:"openai_api_key"`
	OpenAIBaseURL   string   `yaml:"openai_base_url"`
	ExchangeTimeout string   `yaml:"exchange_timeout"`
	MaxTokens       int      `yaml:"max_tokens"`
	Temperature     *float64 `yaml:"temperature"`
}

func applyYAML(cfg *Config, source fileConfig) error {
	if value := strings.TrimSpace(source.HTTPAddr); value != "" {
		cfg.HTTPAddr = value
	}
	if value := strings.TrimSpace(source.DBDriver); value != "" {
		cfg.DBDriver = strings.ToLower(value)
	}
	if value := strings.TrimSpace(source.DBDSN); value != "" {
		cfg.DBDSN = value
	}
	if value := strings.TrimSpace(source.Agent.Provider); value != "" {
		cfg.Provider = strings.ToLower(value)
	}
	if value := strings.TrimSpace(source.Agent.Model); value != "" {
		cfg.Model = value
	}
	if value := strings.TrimSpace(source.Agent.GeminiAPIKey); value != "" {
		cfg.GeminiAPIKey = value
	}
	if value := strings.TrimSpace(source.Agent.OpenAIAPIKey); value != "" {
		cfg.OpenAIAPIKey = value
	}
	if value := strings.TrimSpace(source.Agent.OpenAIBaseURL); value != "" {
		cfg.OpenAIBaseURL = value
	}

	timeout, err := parseOptionalDuration(source.Agent.ExchangeTimeout, cfg.ExchangeTimeout, "agent.exchange_timeout")
	if err != nil {
		return err
	}
	cfg.ExchangeTimeout = timeout

	if source.Agent.MaxTokens != 0 {
		cfg.MaxTokens = source.Agent.MaxTokens
	}
	if source.Agent.Temperature != nil {
		cfg.Temperature = *source.Agent.Temperature
	}
	if list := trimList(source.Webhooks); len(list) > 0 {
		cfg.WebhookURLs = list
	}
	if list := trimList(source.WebhookEvents); len(list) > 0 {
		cfg.WebhookEvents = list
	}
	if value := strings.TrimSpace(source.WebhookToken); value != "" {
		cfg.WebhookToken = value
	}
	if list := trimList(source.CORSOrigins); len(list) > 0 {
		cfg.CORSOrigins = list
	}
	if value := strings.TrimSpace(source.LogLevel); value != "" {
		cfg.LogLevel = strings.ToLower(value)
	}
	if source.Seed != nil {
		cfg.Seed = *source.Seed
	}
	return nil
}

func trimList(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func loadFileConfig() (fileConfig, error) {
	path, ok, err := resolveConfigFilePath()
	if err != nil {
		return fileConfig{}, err
	}
	if !ok {
		return fileConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return cfg, nil
}

func resolveConfigFilePath() (string, bool, error) {
	if explicit := envString(EnvConfigFile); explicit != "" {
		resolved, err := expandPath(explicit)
		if err != nil {
			return "", false, fmt.Errorf("resolve %s: %w", EnvConfigFile, err)
		}
		info, err := os.Stat(resolved)
		if err != nil {
			return "", false, fmt.Errorf("config file %s: %w", resolved, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config file %s is a directory", resolved)
		}
		return resolved, true, nil
	}

	candidates := []string{
		filepath.Join(configDirName, defaultConfigFileName),
		filepath.Join(configDirName, alternateConfigFileName),
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, configDirName, defaultConfigFileName),
			filepath.Join(home, configDirName, alternateConfigFileName),
		)
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", false, fmt.Errorf("config path %s is a directory", candidate)
			}
			return candidate, true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat config file %s: %w", candidate, err)
		}
	}
	return "", false, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(trimmed, "~")), nil
	}
	return trimmed, nil
}
