// Package prompt provides persona/mode registries and system prompt composition.
//
// Registries are immutable after construction and are injected into the
// Composer rather than accessed as package globals, so tests can swap in
// alternate persona sets.
package prompt

import (
	"fmt"
	"sort"
)

// FallbackKey is the registry entry used for unrecognized persona or mode
// keys. Every registry must contain it, which makes lookups total.
const FallbackKey = "friendly"

// Registry is an immutable mapping from persona and mode keys to the
// descriptive text fragments used inside the system prompt.
type Registry struct {
	personas map[string]string
	modes    map[string]string
}

// NewRegistry creates a registry from the given persona and mode maps.
//
// The maps are copied, so later mutation of the arguments does not affect
// the registry. Both maps must contain the "friendly" fallback entry;
// otherwise an error is returned.
func NewRegistry(personas, modes map[string]string) (*Registry, error) {
	if _, ok := personas[FallbackKey]; !ok {
		return nil, fmt.Errorf("NewRegistry: personas missing %q fallback entry", FallbackKey)
	}
	if _, ok := modes[FallbackKey]; !ok {
		return nil, fmt.Errorf("NewRegistry: modes missing %q fallback entry", FallbackKey)
	}

	p := make(map[string]string, len(personas))
	for k, v := range personas {
		p[k] = v
	}
	m := make(map[string]string, len(modes))
	for k, v := range modes {
		m[k] = v
	}

	return &Registry{personas: p, modes: m}, nil
}

// DefaultRegistry returns the built-in persona and mode registry.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(
		map[string]string{
			"friendly": "You are a warm, supportive friend. You speak plainly, with empathy and without judgment.",
			"romantic": "You are a romantic, caring companion. You speak softly, with light flirtation, but always respectfully and ethically.",
			"coach":    "You are a motivating coach. You encourage, ask questions, help the user take action, and keep them focused.",
		},
		map[string]string{
			"friendly":     "Warm, friendly conversation: support the user and take interest in how their day is going.",
			"motivational": "Inspire small steps and suggest a concrete next action.",
			"evening":      "A calm evening tone: reflect on the day, relax, and wind down toward sleep.",
		},
	)
	if err != nil {
		// The built-in maps always contain the fallback entry.
		panic(err)
	}
	return reg
}

// PersonaText returns the descriptive text for a persona key, falling back
// to the "friendly" entry for unrecognized keys.
func (r *Registry) PersonaText(key string) string {
	if text, ok := r.personas[key]; ok {
		return text
	}
	return r.personas[FallbackKey]
}

// ModeText returns the descriptive text for a mode key, falling back to the
// "friendly" entry for unrecognized keys.
func (r *Registry) ModeText(key string) string {
	if text, ok := r.modes[key]; ok {
		return text
	}
	return r.modes[FallbackKey]
}

// HasPersona reports whether key is a registered persona.
func (r *Registry) HasPersona(key string) bool {
	_, ok := r.personas[key]
	return ok
}

// HasMode reports whether key is a registered mode.
func (r *Registry) HasMode(key string) bool {
	_, ok := r.modes[key]
	return ok
}

// Personas returns the registered persona keys in sorted order.
func (r *Registry) Personas() []string {
	return sortedKeys(r.personas)
}

// Modes returns the registered mode keys in sorted order.
func (r *Registry) Modes() []string {
	return sortedKeys(r.modes)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
