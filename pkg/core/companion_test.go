package core_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solace-labs/companion-go/pkg/core"
	"github.com/solace-labs/companion-go/pkg/llm"
	"github.com/solace-labs/companion-go/pkg/storage"
	sqliteStore "github.com/solace-labs/companion-go/pkg/storage/sqlite"
)

// fakeProvider returns a canned reply and records the last message list it
// was called with.
type fakeProvider struct {
	reply    string
	err      error
	calls    int
	lastSeen []llm.Message
}

func (f *fakeProvider) Complete(_ context.Context, messages []llm.Message, _ ...llm.GenerateOption) (string, error) {
	f.calls++
	f.lastSeen = messages
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeProvider) Close() error { return nil }

func setupClient(t *testing.T, provider llm.Provider) (*core.Client, storage.ProfileStore) {
	t.Helper()

	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "companion_test.db"),
	})
	require.NoError(t, err)

	client, err := core.NewClient(&core.Config{},
		core.WithStore(store),
		core.WithProvider(provider),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, store
}

func TestChat_FirstContact(t *testing.T) {
	provider := &fakeProvider{reply: "Hello there!"}
	client, store := setupClient(t, provider)
	ctx := context.Background()

	reply, err := client.Chat(ctx, "new_user", "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", reply)

	// A default profile was created.
	profile, err := client.Profile(ctx, "new_user")
	require.NoError(t, err)
	assert.Equal(t, storage.DefaultPersona, profile.Persona)
	assert.Equal(t, storage.DefaultPersona, profile.Mode)

	// The provider saw the system prompt first, then the new user turn.
	require.NotEmpty(t, provider.lastSeen)
	system := provider.lastSeen[0]
	assert.Equal(t, string(storage.RoleSystem), system.Role)
	assert.Contains(t, system.Content, "warm, supportive friend")
	assert.Contains(t, system.Content, "The user's name is unknown.")
	last := provider.lastSeen[len(provider.lastSeen)-1]
	assert.Equal(t, string(storage.RoleUser), last.Role)
	assert.Equal(t, "Hi", last.Content)

	// Both turns were persisted in causal order.
	messages, err := store.RecentMessages(ctx, "new_user", 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, storage.RoleUser, messages[0].Role)
	assert.Equal(t, "Hi", messages[0].Content)
	assert.Equal(t, storage.RoleAssistant, messages[1].Role)
	assert.Equal(t, "Hello there!", messages[1].Content)
}

func TestChat_HistoryForwarded(t *testing.T) {
	provider := &fakeProvider{reply: "reply"}
	client, _ := setupClient(t, provider)
	ctx := context.Background()

	_, err := client.Chat(ctx, "user_1", "first")
	require.NoError(t, err)
	_, err = client.Chat(ctx, "user_1", "second")
	require.NoError(t, err)

	// Second call: system prompt + prior exchange + new turn.
	require.Len(t, provider.lastSeen, 4)
	assert.Equal(t, "first", provider.lastSeen[1].Content)
	assert.Equal(t, string(storage.RoleUser), provider.lastSeen[1].Role)
	assert.Equal(t, "reply", provider.lastSeen[2].Content)
	assert.Equal(t, string(storage.RoleAssistant), provider.lastSeen[2].Role)
	assert.Equal(t, "second", provider.lastSeen[3].Content)
}

func TestChat_CompletionFailurePersistsNothing(t *testing.T) {
	provider := &fakeProvider{err: errors.New("upstream unavailable")}
	client, store := setupClient(t, provider)
	ctx := context.Background()

	_, err := client.Chat(ctx, "user_1", "Hi")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCompletionFailed))

	// The failed exchange left no trace in the history.
	messages, err := store.RecentMessages(ctx, "user_1", 10)
	require.NoError(t, err)
	assert.Empty(t, messages)

	// The next exchange starts from a clean log.
	provider.err = nil
	provider.reply = "recovered"
	reply, err := client.Chat(ctx, "user_1", "Hi again")
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply)
	require.Len(t, provider.lastSeen, 2)
}

func TestSetPersona_UnknownKeyRejected(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	client, _ := setupClient(t, provider)
	ctx := context.Background()

	err := client.SetPersona(ctx, "user_1", "grumpy")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownPersona))

	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "grumpy", vErr.Key)
	assert.Equal(t, []string{"coach", "friendly", "romantic"}, vErr.Valid)
	assert.Contains(t, err.Error(), "coach, friendly, romantic")

	// The profile keeps its previous persona.
	profile, err := client.Profile(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, storage.DefaultPersona, profile.Persona)
}

func TestSetMode_UnknownKeyRejected(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	client, _ := setupClient(t, provider)
	ctx := context.Background()

	err := client.SetMode(ctx, "user_1", "midnight")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownMode))

	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, []string{"evening", "friendly", "motivational"}, vErr.Valid)
}

func TestSetPersona_ChangesPrompt(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	client, _ := setupClient(t, provider)
	ctx := context.Background()

	require.NoError(t, client.SetPersona(ctx, "user_1", "coach"))
	require.NoError(t, client.SetMode(ctx, "user_1", "motivational"))
	require.NoError(t, client.SetName(ctx, "user_1", "Alex"))

	_, err := client.Chat(ctx, "user_1", "Hi")
	require.NoError(t, err)

	system := provider.lastSeen[0].Content
	assert.Contains(t, system, "motivating coach")
	assert.Contains(t, system, "The user's name is Alex.")
}

func TestReset_ClearsHistoryKeepsProfile(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	client, store := setupClient(t, provider)
	ctx := context.Background()

	require.NoError(t, client.SetPersona(ctx, "user_1", "romantic"))
	_, err := client.Chat(ctx, "user_1", "Hi")
	require.NoError(t, err)

	require.NoError(t, client.Reset(ctx, "user_1"))

	messages, err := store.RecentMessages(ctx, "user_1", 10)
	require.NoError(t, err)
	assert.Empty(t, messages)

	profile, err := client.Profile(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, "romantic", profile.Persona)

	// The next exchange starts fresh but keeps the persona.
	_, err = client.Chat(ctx, "user_1", "Hello again")
	require.NoError(t, err)
	require.Len(t, provider.lastSeen, 2)
	assert.Contains(t, provider.lastSeen[0].Content, "romantic, caring companion")
}

func TestChat_UsersIsolated(t *testing.T) {
	provider := &fakeProvider{reply: "ok"}
	client, store := setupClient(t, provider)
	ctx := context.Background()

	_, err := client.Chat(ctx, "user_a", "from a")
	require.NoError(t, err)
	_, err = client.Chat(ctx, "user_b", "from b")
	require.NoError(t, err)

	messages, err := store.RecentMessages(ctx, "user_a", 10)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "from a", messages[0].Content)
}

func TestChat_HistoryWindowApplied(t *testing.T) {
	provider := &fakeProvider{reply: strings.Repeat("r", 10)}

	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "companion_test.db"),
	})
	require.NoError(t, err)

	client, err := core.NewClient(&core.Config{
		History: core.HistoryConfig{Window: 4, CharBudget: 6000},
	},
		core.WithStore(store),
		core.WithProvider(provider),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := client.Chat(ctx, "user_1", "turn")
		require.NoError(t, err)
	}

	// Window of 4 plus the system prompt and the new turn.
	assert.Len(t, provider.lastSeen, 6)
}

func TestNewClient_InvalidProviders(t *testing.T) {
	store, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "companion_test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = core.NewClient(&core.Config{
		LLM: core.LLMConfig{Provider: "no_such_provider"},
	}, core.WithStore(store))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))

	_, err = core.NewClient(&core.Config{
		Storage: core.StorageConfig{Provider: "no_such_store"},
		LLM:     core.LLMConfig{Provider: "openai", APIKey: "key"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidConfig))
}
