package core

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Default history bounds for the conversation pipeline.
const (
	// DefaultHistoryWindow is the number of recent messages loaded per chat.
	DefaultHistoryWindow = 18

	// DefaultCharBudget is the total character budget for clamped history.
	DefaultCharBudget = 6000
)

// Config contains the complete configuration for a companion client.
//
// It includes settings for:
//   - Profile storage (SQLite, PostgreSQL, or MySQL)
//   - Completion provider (OpenAI or Ollama)
//   - Optional speech conversion (transcription and synthesis)
//   - History bounds (window size and character budget)
type Config struct {
	// Storage contains profile store configuration.
	Storage StorageConfig `json:"storage"`

	// LLM contains completion provider configuration.
	LLM LLMConfig `json:"llm"`

	// Speech contains speech conversion configuration (optional).
	Speech *SpeechConfig `json:"speech,omitempty"`

	// History contains history bounds for the conversation pipeline.
	History HistoryConfig `json:"history"`
}

// StorageConfig contains configuration for the profile store.
//
// Supported providers: sqlite, postgres, mysql
type StorageConfig struct {
	// Provider is the profile store provider name (sqlite, postgres, mysql).
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For SQLite: db_path
	// For PostgreSQL: host, port, user, password, db_name, ssl_mode
	// For MySQL: host, port, user, password, db_name
	Config map[string]interface{} `json:"config"`
}

// LLMConfig contains configuration for the completion provider.
//
// Supported providers: openai, ollama
type LLMConfig struct {
	// Provider is the completion provider name (openai, ollama).
	Provider string `json:"provider"`

	// APIKey is the API key for the provider.
	APIKey string `json:"api_key"`

	// Model is the model name to use (e.g., "gpt-4o-mini").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, provider default if empty).
	BaseURL string `json:"base_url,omitempty"`
}

// SpeechConfig contains configuration for the speech adapters.
//
// Transcription and synthesis are independently switchable; either can be
// off while the other is on.
type SpeechConfig struct {
	// TranscriptionEnabled turns voice message transcription on.
	TranscriptionEnabled bool `json:"transcription_enabled"`

	// SynthesisEnabled turns reply synthesis on.
	SynthesisEnabled bool `json:"synthesis_enabled"`

	// APIKey is the API key for the speech provider.
	APIKey string `json:"api_key"`

	// BaseURL is the base URL for the API (optional).
	BaseURL string `json:"base_url,omitempty"`

	// TranscribeModel is the speech-to-text model name (optional).
	TranscribeModel string `json:"transcribe_model,omitempty"`

	// SpeechModel is the text-to-speech model name (optional).
	SpeechModel string `json:"speech_model,omitempty"`

	// Voice is the synthesis voice name (optional).
	Voice string `json:"voice,omitempty"`
}

// HistoryConfig contains history bounds for the conversation pipeline.
type HistoryConfig struct {
	// Window is the number of recent messages loaded per chat (default 18).
	Window int `json:"window"`

	// CharBudget is the total character budget for clamped history
	// (default 6000).
	CharBudget int `json:"char_budget"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for a .env file (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - DATABASE_PROVIDER (sqlite, postgres, mysql; default sqlite)
//   - SQLITE_PATH
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_SSLMODE
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE
//   - LLM_PROVIDER (openai, ollama; default openai)
//   - LLM_API_KEY (falls back to OPENAI_API_KEY), LLM_MODEL, LLM_BASE_URL
//   - ENABLE_STT, ENABLE_TTS ("true" to enable), STT_MODEL, TTS_MODEL,
//     TTS_VOICE, OPENAI_BASE_URL
//   - HISTORY_WINDOW, HISTORY_CHAR_BUDGET
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnv() (*Config, error) {
	// Use FindEnvFile to locate .env file (supports upward search)
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("DATABASE_PROVIDER", "sqlite")

	storageConfig := make(map[string]interface{})

	switch provider {
	case "sqlite":
		storageConfig = map[string]interface{}{
			"db_path": getEnvOrDefault("SQLITE_PATH", "./companion.db"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))

		storageConfig = map[string]interface{}{
			"host":     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":     port,
			"user":     getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password": os.Getenv("POSTGRES_PASSWORD"),
			"db_name":  getEnvOrDefault("POSTGRES_DATABASE", "companion"),
			"ssl_mode": getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))

		storageConfig = map[string]interface{}{
			"host":     getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
			"port":     port,
			"user":     getEnvOrDefault("MYSQL_USER", "root"),
			"password": os.Getenv("MYSQL_PASSWORD"),
			"db_name":  getEnvOrDefault("MYSQL_DATABASE", "companion"),
		}
	}

	// The LLM provider determines the default model and base URL.
	llmProvider := getEnvOrDefault("LLM_PROVIDER", "openai")
	var llmBaseURL string
	var defaultModel string

	switch llmProvider {
	case "ollama":
		llmBaseURL = os.Getenv("OLLAMA_LLM_BASE_URL")
		if llmBaseURL == "" {
			llmBaseURL = "http://localhost:11434"
		}
		defaultModel = "llama3.1:8b"
	default:
		llmBaseURL = os.Getenv("LLM_BASE_URL")
		defaultModel = "gpt-4o-mini"
	}

	llmAPIKey := os.Getenv("LLM_API_KEY")
	if llmAPIKey == "" {
		llmAPIKey = os.Getenv("OPENAI_API_KEY")
	}

	window, _ := strconv.Atoi(getEnvOrDefault("HISTORY_WINDOW", strconv.Itoa(DefaultHistoryWindow)))
	budget, _ := strconv.Atoi(getEnvOrDefault("HISTORY_CHAR_BUDGET", strconv.Itoa(DefaultCharBudget)))

	config := &Config{
		Storage: StorageConfig{
			Provider: provider,
			Config:   storageConfig,
		},
		LLM: LLMConfig{
			Provider: llmProvider,
			APIKey:   llmAPIKey,
			Model:    getEnvOrDefault("LLM_MODEL", defaultModel),
			BaseURL:  llmBaseURL,
		},
		History: HistoryConfig{
			Window:     window,
			CharBudget: budget,
		},
	}

	// Speech configuration (optional)
	sttEnabled := os.Getenv("ENABLE_STT") == "true"
	ttsEnabled := os.Getenv("ENABLE_TTS") == "true"
	if sttEnabled || ttsEnabled {
		config.Speech = &SpeechConfig{
			TranscriptionEnabled: sttEnabled,
			SynthesisEnabled:     ttsEnabled,
			APIKey:               llmAPIKey,
			BaseURL:              os.Getenv("OPENAI_BASE_URL"),
			TranscribeModel:      os.Getenv("STT_MODEL"),
			SpeechModel:          os.Getenv("TTS_MODEL"),
			Voice:                os.Getenv("TTS_VOICE"),
		}
	}

	return config, nil
}

// Validate validates the configuration.
//
// Checks that all required fields are set:
//   - Storage provider must be specified
//   - LLM provider must be specified
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.Storage.Provider == "" {
		return NewCompanionError("Validate", ErrInvalidConfig)
	}
	if c.LLM.Provider == "" {
		return NewCompanionError("Validate", ErrInvalidConfig)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for a .env file.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
