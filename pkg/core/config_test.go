package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solace-labs/companion-go/pkg/core"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("ENABLE_STT", "")
	t.Setenv("ENABLE_TTS", "")
	t.Setenv("HISTORY_WINDOW", "")
	t.Setenv("HISTORY_CHAR_BUDGET", "")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", config.Storage.Provider)
	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", config.LLM.Model)
	assert.Equal(t, core.DefaultHistoryWindow, config.History.Window)
	assert.Equal(t, core.DefaultCharBudget, config.History.CharBudget)
	assert.Nil(t, config.Speech)
}

func TestLoadConfigFromEnv_Postgres(t *testing.T) {
	t.Setenv("DATABASE_PROVIDER", "postgres")
	t.Setenv("POSTGRES_HOST", "db.example.com")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_USER", "companion")
	t.Setenv("POSTGRES_DATABASE", "companion_prod")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", config.Storage.Provider)
	assert.Equal(t, "db.example.com", config.Storage.Config["host"])
	assert.Equal(t, 5433, config.Storage.Config["port"])
	assert.Equal(t, "companion", config.Storage.Config["user"])
	assert.Equal(t, "companion_prod", config.Storage.Config["db_name"])
}

func TestLoadConfigFromEnv_Ollama(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("OLLAMA_LLM_BASE_URL", "")
	t.Setenv("LLM_MODEL", "")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, "llama3.1:8b", config.LLM.Model)
}

func TestLoadConfigFromEnv_APIKeyFallback(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sk-fallback", config.LLM.APIKey)

	t.Setenv("LLM_API_KEY", "sk-primary")
	config, err = core.LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "sk-primary", config.LLM.APIKey)
}

func TestLoadConfigFromEnv_Speech(t *testing.T) {
	t.Setenv("ENABLE_STT", "true")
	t.Setenv("ENABLE_TTS", "false")
	t.Setenv("STT_MODEL", "whisper-1")
	t.Setenv("TTS_VOICE", "nova")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	require.NotNil(t, config.Speech)
	assert.True(t, config.Speech.TranscriptionEnabled)
	assert.False(t, config.Speech.SynthesisEnabled)
	assert.Equal(t, "whisper-1", config.Speech.TranscribeModel)
	assert.Equal(t, "nova", config.Speech.Voice)
}

func TestLoadConfigFromEnv_HistoryOverrides(t *testing.T) {
	t.Setenv("HISTORY_WINDOW", "30")
	t.Setenv("HISTORY_CHAR_BUDGET", "9000")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 30, config.History.Window)
	assert.Equal(t, 9000, config.History.CharBudget)
}

func TestConfig_Validate(t *testing.T) {
	config := &core.Config{
		Storage: core.StorageConfig{Provider: "sqlite"},
		LLM:     core.LLMConfig{Provider: "openai"},
	}
	assert.NoError(t, config.Validate())

	config.Storage.Provider = ""
	assert.Error(t, config.Validate())

	config.Storage.Provider = "sqlite"
	config.LLM.Provider = ""
	assert.Error(t, config.Validate())
}
