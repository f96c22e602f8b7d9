package prompt

import (
	"fmt"
	"strings"
)

// framing is the fixed role-framing sentence that opens every system prompt.
const framing = "You are a virtual friend and emotional companion."

// policy is the fixed closing clause appended to every system prompt.
const policy = "Speak naturally, concisely, and to the point; ask clarifying questions when helpful. " +
	"Do not give medical or legal diagnoses. Avoid toxicity and manipulation."

// Composer renders deterministic system prompts from a registry.
type Composer struct {
	registry *Registry
}

// NewComposer creates a Composer over the given registry.
func NewComposer(registry *Registry) *Composer {
	return &Composer{registry: registry}
}

// Compose renders the system instruction for a persona key, mode key, and
// optional display name (empty means unknown).
//
// Unrecognized persona or mode keys fall back to the "friendly" registry
// entries, so Compose is total. The same inputs always produce the same
// exact output string.
func (c *Composer) Compose(persona, mode, name string) string {
	nameClause := "The user's name is unknown."
	if name != "" {
		nameClause = fmt.Sprintf("The user's name is %s.", name)
	}

	var b strings.Builder
	b.WriteString(framing)
	b.WriteString("\n")
	b.WriteString(c.registry.PersonaText(persona))
	b.WriteString("\n")
	b.WriteString("Mode: ")
	b.WriteString(c.registry.ModeText(mode))
	b.WriteString("\n")
	b.WriteString(nameClause)
	b.WriteString("\n")
	b.WriteString(policy)
	return b.String()
}
