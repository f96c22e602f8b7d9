package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/solace-labs/companion-go/pkg/history"
	"github.com/solace-labs/companion-go/pkg/llm"
	ollamaLLM "github.com/solace-labs/companion-go/pkg/llm/ollama"
	openaiLLM "github.com/solace-labs/companion-go/pkg/llm/openai"
	"github.com/solace-labs/companion-go/pkg/prompt"
	"github.com/solace-labs/companion-go/pkg/storage"
	mysqlStore "github.com/solace-labs/companion-go/pkg/storage/mysql"
	postgresStore "github.com/solace-labs/companion-go/pkg/storage/postgres"
	sqliteStore "github.com/solace-labs/companion-go/pkg/storage/sqlite"
)

// Client is the conversation orchestrator.
//
// It coordinates one request/response exchange per inbound message: load
// profile, select and clamp recent history, compose the system prompt, call
// the completion provider, and persist the exchange.
//
// The client is safe for concurrent use from multiple goroutines. Exchanges
// for different users run concurrently; exchanges for the same user are
// serialized by a per-user lock held across the whole
// read-history/complete/append sequence, so the stored log always reflects
// causal order.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	reply, err := client.Chat(ctx, "user_001", "Hi!")
type Client struct {
	// config contains the client configuration.
	config *Config

	// store is the profile store for persistence.
	store storage.ProfileStore

	// llm is the completion provider.
	llm llm.Provider

	// registry holds the persona and mode registries.
	registry *prompt.Registry

	// composer renders system prompts from the registry.
	composer *prompt.Composer

	// historyWindow is the number of recent messages loaded per chat.
	historyWindow int

	// charBudget is the character budget for clamped history.
	charBudget int

	// mu guards userLocks.
	mu sync.Mutex

	// userLocks serializes exchanges per user.
	userLocks map[string]*sync.Mutex
}

// Option is a function type for configuring a Client at construction time.
type Option func(*Client)

// WithStore overrides the profile store built from the configuration.
// Useful for tests and for callers that manage their own store lifecycle.
func WithStore(store storage.ProfileStore) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithProvider overrides the completion provider built from the configuration.
func WithProvider(provider llm.Provider) Option {
	return func(c *Client) {
		c.llm = provider
	}
}

// WithRegistry overrides the default persona/mode registry.
func WithRegistry(registry *prompt.Registry) Option {
	return func(c *Client) {
		c.registry = registry
	}
}

// NewClient creates a new companion client.
//
// The client is initialized with:
//   - Profile store (SQLite, PostgreSQL, or MySQL)
//   - Completion provider (OpenAI or Ollama)
//   - The built-in persona/mode registry (unless overridden)
//
// Parameters:
//   - cfg: Configuration containing storage, LLM, and history settings
//   - opts: Optional overrides (store, provider, registry)
//
// Returns a new Client instance, or an error if initialization fails.
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	client := &Client{
		config:    cfg,
		userLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(client)
	}

	// Initialize storage (unless injected)
	if client.store == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		store, err := initStorage(cfg.Storage)
		if err != nil {
			return nil, err
		}
		client.store = store
	}

	// Initialize LLM (unless injected)
	if client.llm == nil {
		provider, err := initLLM(cfg.LLM)
		if err != nil {
			return nil, err
		}
		client.llm = provider
	}

	if client.registry == nil {
		client.registry = prompt.DefaultRegistry()
	}
	client.composer = prompt.NewComposer(client.registry)

	client.historyWindow = cfg.History.Window
	if client.historyWindow <= 0 {
		client.historyWindow = DefaultHistoryWindow
	}
	client.charBudget = cfg.History.CharBudget
	if client.charBudget <= 0 {
		client.charBudget = DefaultCharBudget
	}

	return client, nil
}

// Chat runs one conversation exchange for a user and returns the reply.
//
// The pipeline is a straight line:
//  1. Load the profile (creating it on first contact)
//  2. Load recent history and clamp it to the character budget
//  3. Compose the system prompt from persona, mode, and name
//  4. Call the completion provider
//  5. Persist the user message, then the assistant reply
//
// If the completion call fails, nothing is persisted and the error wraps
// ErrCompletionFailed: the caller shows a transient error to the user and
// the stored history stays clean. Storage failures wrap ErrStorageOperation
// and abort the exchange.
func (c *Client) Chat(ctx context.Context, userID, text string) (string, error) {
	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	profile, err := c.store.GetProfile(ctx, userID)
	if err != nil {
		return "", storageError("Chat", err)
	}

	recent, err := c.store.RecentMessages(ctx, userID, c.historyWindow)
	if err != nil {
		return "", storageError("Chat", err)
	}
	clamped := history.Clamp(recent, c.charBudget)

	systemPrompt := c.composer.Compose(profile.Persona, profile.Mode, profile.Name)

	messages := make([]llm.Message, 0, len(clamped)+2)
	messages = append(messages, llm.Message{Role: string(storage.RoleSystem), Content: systemPrompt})
	for _, m := range clamped {
		// Only user and assistant turns are forwarded as history; the
		// system prompt is passed separately.
		if m.Role != storage.RoleUser && m.Role != storage.RoleAssistant {
			continue
		}
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: string(storage.RoleUser), Content: text})

	reply, err := c.llm.Complete(ctx, messages)
	if err != nil {
		return "", NewCompanionError("Chat", fmt.Errorf("%w: %s", ErrCompletionFailed, err))
	}

	// User message first, then the reply, so log order equals causal order.
	if err := c.store.AppendMessage(ctx, userID, storage.RoleUser, text); err != nil {
		return "", storageError("Chat", err)
	}
	if err := c.store.AppendMessage(ctx, userID, storage.RoleAssistant, reply); err != nil {
		return "", storageError("Chat", err)
	}

	return reply, nil
}

// Profile returns the user's profile, creating a default one on first
// contact. It never fails with "not found".
func (c *Client) Profile(ctx context.Context, userID string) (*storage.Profile, error) {
	profile, err := c.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, storageError("Profile", err)
	}
	return profile, nil
}

// SetPersona validates the persona key against the registry and updates the
// profile. Unknown keys are rejected with a ValidationError listing the
// valid options; the store is not touched in that case.
func (c *Client) SetPersona(ctx context.Context, userID, persona string) error {
	if !c.registry.HasPersona(persona) {
		return &ValidationError{Kind: ErrUnknownPersona, Key: persona, Valid: c.registry.Personas()}
	}
	if err := c.store.SetPersona(ctx, userID, persona); err != nil {
		return storageError("SetPersona", err)
	}
	return nil
}

// SetMode validates the mode key against the registry and updates the
// profile. Unknown keys are rejected with a ValidationError listing the
// valid options; the store is not touched in that case.
func (c *Client) SetMode(ctx context.Context, userID, mode string) error {
	if !c.registry.HasMode(mode) {
		return &ValidationError{Kind: ErrUnknownMode, Key: mode, Valid: c.registry.Modes()}
	}
	if err := c.store.SetMode(ctx, userID, mode); err != nil {
		return storageError("SetMode", err)
	}
	return nil
}

// SetName stores the user's display name. Names are free text and are not
// validated.
func (c *Client) SetName(ctx context.Context, userID, name string) error {
	if err := c.store.SetName(ctx, userID, strings.TrimSpace(name)); err != nil {
		return storageError("SetName", err)
	}
	return nil
}

// Reset deletes the user's conversation history. The profile row, including
// persona, mode, and name, is left untouched.
//
// Reset takes the same per-user lock as Chat, so it cannot interleave with
// an in-flight exchange for the same user.
func (c *Client) Reset(ctx context.Context, userID string) error {
	lock := c.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := c.store.ClearMessages(ctx, userID); err != nil {
		return storageError("Reset", err)
	}
	return nil
}

// Personas returns the registered persona keys in sorted order.
func (c *Client) Personas() []string {
	return c.registry.Personas()
}

// Modes returns the registered mode keys in sorted order.
func (c *Client) Modes() []string {
	return c.registry.Modes()
}

// Close closes the store and the completion provider.
func (c *Client) Close() error {
	var firstErr error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			firstErr = err
		}
	}
	if c.llm != nil {
		if err := c.llm.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// userLock returns the mutex serializing exchanges for userID, creating it
// on first use.
func (c *Client) userLock(userID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		c.userLocks[userID] = lock
	}
	return lock
}

// storageError wraps a store failure with the operation name and the
// ErrStorageOperation sentinel.
func storageError(op string, err error) error {
	return NewCompanionError(op, fmt.Errorf("%w: %s", ErrStorageOperation, err))
}

// initStorage creates a profile store from the configuration.
func initStorage(cfg StorageConfig) (storage.ProfileStore, error) {
	switch cfg.Provider {
	case "sqlite":
		return sqliteStore.NewClient(&sqliteStore.Config{
			DBPath: configString(cfg.Config, "db_path", "./companion.db"),
		})
	case "postgres":
		return postgresStore.NewClient(&postgresStore.Config{
			Host:     configString(cfg.Config, "host", "localhost"),
			Port:     configInt(cfg.Config, "port", 5432),
			User:     configString(cfg.Config, "user", "postgres"),
			Password: configString(cfg.Config, "password", ""),
			DBName:   configString(cfg.Config, "db_name", "companion"),
			SSLMode:  configString(cfg.Config, "ssl_mode", "disable"),
		})
	case "mysql":
		return mysqlStore.NewClient(&mysqlStore.Config{
			Host:     configString(cfg.Config, "host", "127.0.0.1"),
			Port:     configInt(cfg.Config, "port", 3306),
			User:     configString(cfg.Config, "user", "root"),
			Password: configString(cfg.Config, "password", ""),
			DBName:   configString(cfg.Config, "db_name", "companion"),
		})
	default:
		return nil, NewCompanionError("initStorage",
			fmt.Errorf("%w: unsupported storage provider %q", ErrInvalidConfig, cfg.Provider))
	}
}

// initLLM creates a completion provider from the configuration.
func initLLM(cfg LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return openaiLLM.NewClient(&openaiLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case "ollama":
		return ollamaLLM.NewClient(&ollamaLLM.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	default:
		return nil, NewCompanionError("initLLM",
			fmt.Errorf("%w: unsupported llm provider %q", ErrInvalidConfig, cfg.Provider))
	}
}

// configString reads a string value from a provider config map.
func configString(m map[string]interface{}, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

// configInt reads an int value from a provider config map.
func configInt(m map[string]interface{}, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		// JSON configs decode numbers as float64.
		return int(v)
	}
	return def
}
