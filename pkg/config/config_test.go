package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gpt-5", cfg.Therapist.Model)
	assert.Equal(t, 500, cfg.Therapist.MaxOutputTokens)
	assert.Equal(t, "minimal", cfg.Therapist.ReasoningEffort)
	assert.Equal(t, "gpt-5-mini", cfg.Memory.Model)
	assert.Equal(t, 2, cfg.Memory.FallbackSessions)
	assert.Equal(t, "https://api.openai.com/v1", cfg.APIBase())
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))

	require.NoError(t, err)
	assert.Equal(t, "gpt-5", cfg.Therapist.Model)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"therapist": {"model": "gpt-5-mini", "max_output_tokens": 200},
		"memory": {"fallback_sessions": 5},
		"store": {"root": "/data/clients"}
	}`), 0o600))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "gpt-5-mini", cfg.Therapist.Model)
	assert.Equal(t, 200, cfg.Therapist.MaxOutputTokens)
	assert.Equal(t, 5, cfg.Memory.FallbackSessions)
	assert.Equal(t, "/data/clients", cfg.StoreRoot())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"therapist": {"model": "gpt-5-mini"}}`), 0o600))

	t.Setenv("THERAPIST_MODEL", "gpt-5")
	t.Setenv("MEMORY_MODEL", "gpt-5-nano")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("THERAPIST_DATA_DIR", "/env/clients")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "gpt-5", cfg.Therapist.Model)
	assert.Equal(t, "gpt-5-nano", cfg.Memory.Model)
	assert.Equal(t, "sk-from-env", cfg.Provider.APIKey)
	assert.Equal(t, "/env/clients", cfg.StoreRoot())
}

func TestLoadConfig_MalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.Therapist.Model = "gpt-5-mini"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-5-mini", loaded.Therapist.Model)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home+"/.therapist", ExpandHome("~/.therapist"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "", ExpandHome(""))
}
