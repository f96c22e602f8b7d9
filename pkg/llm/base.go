// Package llm provides interfaces and utilities for completion providers.
//
// It defines the Provider interface that all completion implementations must
// satisfy, along with message types and generation options.
package llm

import "context"

// Provider defines the interface for completion providers.
//
// All implementations (OpenAI, Ollama) must satisfy this interface.
type Provider interface {
	// Complete generates a reply from a conversation.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - messages: Full conversation (system prompt first, then history,
	//     then the new user message)
	//   - opts: Optional generation parameters (temperature, max tokens, etc.)
	//
	// Returns the generated reply text and any error. Callers decide how a
	// failed completion surfaces to the user; providers just return the error.
	Complete(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)

	// Close closes the provider and releases resources.
	Close() error
}

// Message represents a single message in a conversation.
type Message struct {
	// Role is the message role: "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message content text.
	Content string `json:"content"`
}

// GenerateOptions contains options for reply generation.
type GenerateOptions struct {
	// Temperature controls randomness (0.0-2.0). Higher = more random.
	Temperature float64

	// MaxTokens limits the maximum number of tokens in the reply.
	MaxTokens int

	// TopP controls nucleus sampling (0.0-1.0). Higher = more diverse.
	TopP float64
}

// GenerateOption is a function type for configuring generation options.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the temperature for reply generation.
func WithTemperature(temp float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Temperature = temp
	}
}

// WithMaxTokens sets the maximum number of tokens in the reply.
func WithMaxTokens(max int) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.MaxTokens = max
	}
}

// WithTopP sets the top-p (nucleus sampling) parameter.
func WithTopP(topP float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.TopP = topP
	}
}

// ApplyGenerateOptions applies a slice of GenerateOption functions to create
// GenerateOptions.
//
// This is a helper used internally by provider implementations.
// Default values: Temperature=0.8, MaxTokens=500, TopP=1.0, tuned for
// short, lively companion replies.
func ApplyGenerateOptions(opts []GenerateOption) *GenerateOptions {
	options := &GenerateOptions{
		Temperature: 0.8,
		MaxTokens:   500,
		TopP:        1.0,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
