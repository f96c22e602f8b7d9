// Package speech provides interfaces for speech-to-text and text-to-speech
// adapters.
//
// Speech is an optional collaborator: when a transcription or synthesis call
// fails, the transport degrades to text-only rather than aborting the
// conversation pipeline.
package speech

import "context"

// MaxSynthesisChars is the maximum input length for synthesis. Longer texts
// are truncated before being sent to the provider.
const MaxSynthesisChars = 500

// Transcriber converts recorded audio into text.
type Transcriber interface {
	// Transcribe converts audio bytes (OGG/Opus voice note) to text.
	// Returns the recognized text, or an error if recognition fails or
	// yields nothing usable.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer converts text into spoken audio.
type Synthesizer interface {
	// Synthesize converts text to audio, truncating the input to
	// MaxSynthesisChars first.
	// Returns audio bytes, a MIME type (e.g. "audio/mpeg"), and any error.
	Synthesize(ctx context.Context, text string) ([]byte, string, error)
}
