package prompt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solace-labs/companion-go/pkg/prompt"
)

func TestNewRegistry_RequiresFallback(t *testing.T) {
	_, err := prompt.NewRegistry(
		map[string]string{"pirate": "Arr."},
		map[string]string{"friendly": "Warm."},
	)
	assert.Error(t, err)

	_, err = prompt.NewRegistry(
		map[string]string{"friendly": "Warm."},
		map[string]string{"evening": "Calm."},
	)
	assert.Error(t, err)

	reg, err := prompt.NewRegistry(
		map[string]string{"friendly": "Warm."},
		map[string]string{"friendly": "Warm talk."},
	)
	require.NoError(t, err)
	assert.NotNil(t, reg)
}

func TestNewRegistry_CopiesMaps(t *testing.T) {
	personas := map[string]string{"friendly": "Warm."}
	modes := map[string]string{"friendly": "Warm talk."}

	reg, err := prompt.NewRegistry(personas, modes)
	require.NoError(t, err)

	personas["sneaky"] = "added later"
	assert.False(t, reg.HasPersona("sneaky"))
}

func TestRegistry_SortedKeys(t *testing.T) {
	reg := prompt.DefaultRegistry()

	assert.Equal(t, []string{"coach", "friendly", "romantic"}, reg.Personas())
	assert.Equal(t, []string{"evening", "friendly", "motivational"}, reg.Modes())
}

func TestRegistry_FallbackLookup(t *testing.T) {
	reg := prompt.DefaultRegistry()

	assert.Equal(t, reg.PersonaText("friendly"), reg.PersonaText("no_such_persona"))
	assert.Equal(t, reg.ModeText("friendly"), reg.ModeText("no_such_mode"))
	assert.NotEqual(t, reg.PersonaText("friendly"), reg.PersonaText("coach"))
}

func TestCompose_Deterministic(t *testing.T) {
	composer := prompt.NewComposer(prompt.DefaultRegistry())

	first := composer.Compose("romantic", "evening", "Dana")
	second := composer.Compose("romantic", "evening", "Dana")
	assert.Equal(t, first, second)
}

func TestCompose_ContainsAllParts(t *testing.T) {
	reg := prompt.DefaultRegistry()
	composer := prompt.NewComposer(reg)

	result := composer.Compose("coach", "motivational", "Alex")

	assert.Contains(t, result, reg.PersonaText("coach"))
	assert.Contains(t, result, "Mode: "+reg.ModeText("motivational"))
	assert.Contains(t, result, "The user's name is Alex.")
}

func TestCompose_UnknownKeysFallBack(t *testing.T) {
	composer := prompt.NewComposer(prompt.DefaultRegistry())

	withUnknown := composer.Compose("no_such_persona", "no_such_mode", "")
	withFallback := composer.Compose("friendly", "friendly", "")
	assert.Equal(t, withFallback, withUnknown)
}

func TestCompose_UnknownName(t *testing.T) {
	composer := prompt.NewComposer(prompt.DefaultRegistry())

	result := composer.Compose("friendly", "friendly", "")
	assert.Contains(t, result, "The user's name is unknown.")
	assert.NotContains(t, result, "The user's name is .")
}

func TestCompose_DistinctProfilesDistinctPrompts(t *testing.T) {
	composer := prompt.NewComposer(prompt.DefaultRegistry())

	prompts := map[string]bool{}
	for _, persona := range []string{"friendly", "romantic", "coach"} {
		for _, mode := range []string{"friendly", "motivational", "evening"} {
			prompts[composer.Compose(persona, mode, "")] = true
		}
	}
	assert.Len(t, prompts, 9)
}

func TestCompose_SingleLinePerSection(t *testing.T) {
	composer := prompt.NewComposer(prompt.DefaultRegistry())

	result := composer.Compose("friendly", "friendly", "Sam")
	lines := strings.Split(result, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "The user's name is Sam.", lines[3])
}
