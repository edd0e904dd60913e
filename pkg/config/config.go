package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Therapist TherapistConfig `json:"therapist"`
	Memory    MemoryConfig    `json:"memory"`
	Provider  ProviderConfig  `json:"provider"`
	Store     StoreConfig     `json:"store"`
	Telemetry TelemetryConfig `json:"telemetry"`
	Checkin   CheckinConfig   `json:"checkin"`
	mu        sync.RWMutex
}

// TherapistConfig controls the dialogue-facing model.
type TherapistConfig struct {
	Model           string `json:"model" env:"THERAPIST_MODEL"`
	MaxOutputTokens int    `json:"max_output_tokens" env:"THERAPIST_MAX_OUTPUT_TOKENS"`
	ReasoningEffort string `json:"reasoning_effort" env:"REASONING_EFFORT"`
	Verbosity       string `json:"verbosity" env:"VERBOSITY"`
}

// MemoryConfig controls the extraction/retrieval model.
type MemoryConfig struct {
	Model           string `json:"model" env:"MEMORY_MODEL"`
	ReasoningEffort string `json:"reasoning_effort" env:"MEMORY_REASONING_EFFORT"`
	Verbosity       string `json:"verbosity" env:"MEMORY_VERBOSITY"`
	// FallbackSessions is how many recent sessions are recalled when the
	// retrieval call fails.
	FallbackSessions int `json:"fallback_sessions" env:"MEMORY_FALLBACK_SESSIONS"`
}

type ProviderConfig struct {
	APIKey         string `json:"api_key" env:"OPENAI_API_KEY"`
	APIBase        string `json:"api_base" env:"OPENAI_API_BASE"`
	OAuthTokenFile string `json:"oauth_token_file,omitempty" env:"OPENAI_OAUTH_TOKEN_FILE"`
	Proxy          string `json:"proxy,omitempty" env:"OPENAI_PROXY"`
}

type StoreConfig struct {
	Root string `json:"root" env:"THERAPIST_DATA_DIR"`
}

type TelemetryConfig struct {
	Enabled bool   `json:"enabled" env:"THERAPIST_TELEMETRY_ENABLED"`
	Path    string `json:"path" env:"THERAPIST_TELEMETRY_PATH"`
}

// CheckinConfig holds an optional cron expression for recurring check-ins.
type CheckinConfig struct {
	Schedule string `json:"schedule,omitempty" env:"THERAPIST_CHECKIN_SCHEDULE"`
}

func DefaultConfig() *Config {
	return &Config{
		Therapist: TherapistConfig{
			Model:           "gpt-5",
			MaxOutputTokens: 500,
			ReasoningEffort: "minimal",
			Verbosity:       "medium",
		},
		Memory: MemoryConfig{
			Model:            "gpt-5-mini",
			ReasoningEffort:  "low",
			Verbosity:        "medium",
			FallbackSessions: 2,
		},
		Provider: ProviderConfig{
			APIBase: "https://api.openai.com/v1",
		},
		Store: StoreConfig{
			Root: "~/.therapist/clients",
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			Path:    "~/.therapist/state/telemetry.db",
		},
		Checkin: CheckinConfig{},
	}
}

// LoadConfig reads the config file at path (missing file is fine), then
// applies environment overrides on top.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfigPath is where the CLI looks for config unless overridden.
func DefaultConfigPath() string {
	return ExpandHome("~/.therapist/config.json")
}

func (c *Config) StoreRoot() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Store.Root)
}

func (c *Config) TelemetryPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ExpandHome(c.Telemetry.Path)
}

func (c *Config) APIBase() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Provider.APIBase != "" {
		return c.Provider.APIBase
	}
	return "https://api.openai.com/v1"
}

func ExpandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
