// Package openai implements speech-to-text and text-to-speech over the
// OpenAI audio endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/solace-labs/companion-go/pkg/speech"
)

// Client implements speech.Transcriber and speech.Synthesizer using the
// OpenAI audio/transcriptions and audio/speech APIs.
type Client struct {
	client          *http.Client
	apiKey          string
	baseURL         string
	transcribeModel string
	speechModel     string
	voice           string
}

// Config is the configuration for the OpenAI speech client.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL defaults to "https://api.openai.com/v1".
	BaseURL string

	// TranscribeModel defaults to "whisper-1".
	TranscribeModel string

	// SpeechModel defaults to "tts-1".
	SpeechModel string

	// Voice defaults to "alloy".
	Voice string

	// HTTPClient overrides the default client (120s timeout).
	HTTPClient *http.Client
}

// NewClient creates a new OpenAI speech client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("speech: API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	transcribeModel := cfg.TranscribeModel
	if transcribeModel == "" {
		transcribeModel = "whisper-1"
	}
	speechModel := cfg.SpeechModel
	if speechModel == "" {
		speechModel = "tts-1"
	}
	voice := cfg.Voice
	if voice == "" {
		voice = "alloy"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	return &Client{
		client:          client,
		apiKey:          cfg.APIKey,
		baseURL:         baseURL,
		transcribeModel: transcribeModel,
		speechModel:     speechModel,
		voice:           voice,
	}, nil
}

// Transcribe converts a voice note to text using the transcriptions API.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "voice.ogg")
	if err != nil {
		return "", fmt.Errorf("stt: build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("stt: build form: %w", err)
	}
	if err := writer.WriteField("model", c.transcribeModel); err != nil {
		return "", fmt.Errorf("stt: build form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("stt: build form: %w", err)
	}

	url := c.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("stt: creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt: API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("stt: API returned %d: %s", resp.StatusCode, string(errBody))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("stt: decode response: %w", err)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", errors.New("stt: empty transcription")
	}
	return text, nil
}

// Synthesize converts text to MP3 audio using the speech API.
// Input is truncated to speech.MaxSynthesisChars before synthesis.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	runes := []rune(text)
	if len(runes) > speech.MaxSynthesisChars {
		text = string(runes[:speech.MaxSynthesisChars])
	}

	payload := map[string]any{
		"model":  c.speechModel,
		"input":  text,
		"voice":  c.voice,
		"format": "mp3",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("tts: marshal request: %w", err)
	}

	url := c.baseURL + "/audio/speech"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("tts: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tts: API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", fmt.Errorf("tts: API returned %d: %s", resp.StatusCode, string(errBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("tts: reading audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, "", errors.New("tts: empty audio response")
	}

	return audio, "audio/mpeg", nil
}
