// Command companiond runs the Telegram companion bot.
//
// Configuration comes from environment variables (a .env file is picked
// up automatically). TELEGRAM_BOT_TOKEN is required; see
// core.LoadConfigFromEnv for the rest.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/solace-labs/companion-go/pkg/core"
	"github.com/solace-labs/companion-go/pkg/speech"
	speechOpenAI "github.com/solace-labs/companion-go/pkg/speech/openai"
	"github.com/solace-labs/companion-go/pkg/telegram"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := core.LoadConfigFromEnv()
	if err != nil {
		logger.Error("loading configuration failed", "error", err)
		os.Exit(1)
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		logger.Error("TELEGRAM_BOT_TOKEN is not set")
		os.Exit(1)
	}

	companion, err := core.NewClient(cfg)
	if err != nil {
		logger.Error("creating companion client failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = companion.Close() }()

	transcriber, synthesizer, err := buildSpeech(cfg.Speech)
	if err != nil {
		logger.Error("creating speech client failed", "error", err)
		os.Exit(1)
	}

	bot, err := telegram.NewBot(&telegram.Config{
		Token:       token,
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		Logger:      logger,
	}, companion)
	if err != nil {
		logger.Error("creating bot failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("companiond starting",
		"storage", cfg.Storage.Provider,
		"llm", cfg.LLM.Provider,
		"model", cfg.LLM.Model)

	if err := bot.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("bot stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("companiond stopped")
}

// buildSpeech creates the optional speech adapters. One client backs
// both directions; each is handed out only when its switch is on.
func buildSpeech(cfg *core.SpeechConfig) (speech.Transcriber, speech.Synthesizer, error) {
	if cfg == nil || (!cfg.TranscriptionEnabled && !cfg.SynthesisEnabled) {
		return nil, nil, nil
	}

	client, err := speechOpenAI.NewClient(&speechOpenAI.Config{
		APIKey:          cfg.APIKey,
		BaseURL:         cfg.BaseURL,
		TranscribeModel: cfg.TranscribeModel,
		SpeechModel:     cfg.SpeechModel,
		Voice:           cfg.Voice,
	})
	if err != nil {
		return nil, nil, err
	}

	var transcriber speech.Transcriber
	var synthesizer speech.Synthesizer
	if cfg.TranscriptionEnabled {
		transcriber = client
	}
	if cfg.SynthesisEnabled {
		synthesizer = client
	}
	return transcriber, synthesizer, nil
}
