package history_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solace-labs/companion-go/pkg/history"
	"github.com/solace-labs/companion-go/pkg/storage"
)

func makeMessages(contents ...string) []*storage.Message {
	messages := make([]*storage.Message, len(contents))
	for i, content := range contents {
		messages[i] = &storage.Message{
			ID:      int64(i + 1),
			UserID:  "test_user",
			Role:    storage.RoleUser,
			Content: content,
		}
	}
	return messages
}

func TestClamp_EmptyInput(t *testing.T) {
	result := history.Clamp(nil, 1000)
	assert.Empty(t, result)

	result = history.Clamp([]*storage.Message{}, 1000)
	assert.Empty(t, result)
}

func TestClamp_ZeroBudget(t *testing.T) {
	messages := makeMessages("hello", "world")

	result := history.Clamp(messages, 0)
	assert.Empty(t, result)
}

func TestClamp_AllFit(t *testing.T) {
	messages := makeMessages("one", "two", "three")

	result := history.Clamp(messages, 1000)
	assert.Equal(t, messages, result)
}

func TestClamp_KeepsNewestSuffix(t *testing.T) {
	messages := makeMessages(
		strings.Repeat("a", 100),
		strings.Repeat("b", 100),
		strings.Repeat("c", 100),
	)

	// Budget for two messages only; the oldest is dropped.
	result := history.Clamp(messages, 250)
	require.Len(t, result, 2)
	assert.Equal(t, int64(2), result[0].ID)
	assert.Equal(t, int64(3), result[1].ID)
}

func TestClamp_StopsAtFirstOverflow(t *testing.T) {
	// The old, large message blocks everything before it, even though
	// the very first message alone would fit the remaining budget.
	messages := makeMessages(
		"tiny",
		strings.Repeat("x", 500),
		strings.Repeat("y", 50),
	)

	result := history.Clamp(messages, 100)
	require.Len(t, result, 1)
	assert.Equal(t, int64(3), result[0].ID)
}

func TestClamp_SingleOversizedMessage(t *testing.T) {
	messages := makeMessages(strings.Repeat("z", 200))

	result := history.Clamp(messages, 100)
	assert.Empty(t, result)
}

func TestClamp_ExactBudget(t *testing.T) {
	messages := makeMessages(
		strings.Repeat("a", 50),
		strings.Repeat("b", 50),
	)

	result := history.Clamp(messages, 100)
	assert.Len(t, result, 2)
}

func TestClamp_CountsRunesNotBytes(t *testing.T) {
	// 10 multi-byte runes, 30 bytes.
	messages := makeMessages(strings.Repeat("я", 10))

	result := history.Clamp(messages, 10)
	assert.Len(t, result, 1)
}

func TestClamp_TwentyLargeMessages(t *testing.T) {
	contents := make([]string, 20)
	for i := range contents {
		contents[i] = strings.Repeat("m", 500)
	}
	messages := makeMessages(contents...)

	// 6000 / 500 = 12 newest messages fit.
	result := history.Clamp(messages, 6000)
	require.Len(t, result, 12)
	assert.Equal(t, int64(9), result[0].ID)
	assert.Equal(t, int64(20), result[len(result)-1].ID)
}

func TestClamp_DoesNotMutateInput(t *testing.T) {
	messages := makeMessages("one", "two", "three")

	result := history.Clamp(messages, 6)
	require.Len(t, result, 2)

	// The input slice is untouched.
	assert.Len(t, messages, 3)
	assert.Equal(t, int64(1), messages[0].ID)
}
