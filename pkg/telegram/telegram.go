// Package telegram implements a Telegram Bot API transport for the
// companion client using long polling. It depends only on net/http and
// the standard library; no bot framework is required for the handful of
// API methods it uses.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/solace-labs/companion-go/pkg/core"
	"github.com/solace-labs/companion-go/pkg/speech"
)

const (
	// pollTimeout is the long-poll timeout in seconds for getUpdates.
	pollTimeout = 30

	// maxCaptionChars bounds the caption attached to synthesized audio.
	// Telegram rejects captions longer than 1024 characters.
	maxCaptionChars = 1000
)

// errorReply is shown when an exchange fails. The failure is transient
// from the user's point of view; nothing is persisted for the exchange.
const errorReply = "Sorry, I'm having trouble thinking right now. Please try again in a moment."

// Config is the configuration for the Telegram bot.
type Config struct {
	// Token is the bot token from @BotFather (required).
	Token string

	// Transcriber converts voice notes to text. Voice messages are
	// rejected with a hint when nil.
	Transcriber speech.Transcriber

	// Synthesizer converts replies to audio. Replies are text-only
	// when nil.
	Synthesizer speech.Synthesizer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Bot polls the Telegram Bot API and routes messages to the companion
// client.
type Bot struct {
	companion   *core.Client
	transcriber speech.Transcriber
	synthesizer speech.Synthesizer
	client      *http.Client
	baseURL     string
	fileURL     string
	logger      *slog.Logger
}

// NewBot creates a new Telegram bot over the given companion client.
func NewBot(cfg *Config, companion *core.Client) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: bot token is required")
	}
	if companion == nil {
		return nil, errors.New("telegram: companion client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Bot{
		companion:   companion,
		transcriber: cfg.Transcriber,
		synthesizer: cfg.Synthesizer,
		client:      &http.Client{Timeout: 60 * time.Second},
		baseURL:     "https://api.telegram.org/bot" + cfg.Token,
		fileURL:     "https://api.telegram.org/file/bot" + cfg.Token,
		logger:      logger.With("component", "telegram"),
	}, nil
}

// Run polls for updates until the context is canceled. Each message is
// handled in its own goroutine; ordering per user is enforced by the
// companion client, not by the transport.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("starting long polling",
		"stt", b.transcriber != nil,
		"tts", b.synthesizer != nil)

	var offset int64
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stopping")
			return ctx.Err()
		default:
		}

		updates, err := b.getUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Error("getUpdates failed", "error", err)
			time.Sleep(3 * time.Second)
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if u.Message == nil || u.Message.From == nil {
				continue
			}
			go b.handleMessage(ctx, u.Message)
		}
	}
}

// handleMessage dispatches one incoming message to the matching handler.
func (b *Bot) handleMessage(ctx context.Context, msg *message) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	switch {
	case msg.Voice != nil:
		b.handleVoice(ctx, chatID, userID, msg.Voice)
	case strings.HasPrefix(msg.Text, "/"):
		b.handleCommand(ctx, chatID, userID, msg.Text)
	case strings.TrimSpace(msg.Text) != "":
		b.handleText(ctx, chatID, userID, msg.Text)
	}
}

// handleCommand routes slash commands.
func (b *Bot) handleCommand(ctx context.Context, chatID int64, userID, text string) {
	command, args := parseCommand(text)
	b.logger.Info("command", "user_id", userID, "command", command)

	switch command {
	case "start":
		b.reply(ctx, chatID, b.welcomeText())
	case "help":
		b.reply(ctx, chatID, b.helpText())
	case "persona":
		b.handlePersona(ctx, chatID, userID, args)
	case "mode":
		b.handleMode(ctx, chatID, userID, args)
	case "name":
		b.handleName(ctx, chatID, userID, args)
	case "reset":
		b.handleReset(ctx, chatID, userID)
	default:
		b.reply(ctx, chatID, "I don't know that command.\n\n"+b.helpText())
	}
}

func (b *Bot) handlePersona(ctx context.Context, chatID int64, userID, args string) {
	key := strings.ToLower(strings.TrimSpace(args))
	if key == "" {
		profile, err := b.companion.Profile(ctx, userID)
		if err != nil {
			b.logger.Error("profile lookup failed", "user_id", userID, "error", err)
			b.reply(ctx, chatID, errorReply)
			return
		}
		b.reply(ctx, chatID, fmt.Sprintf(
			"Current persona: %s\nAvailable: %s\n\nExample: /persona friendly",
			profile.Persona, strings.Join(b.companion.Personas(), ", ")))
		return
	}

	if err := b.companion.SetPersona(ctx, userID, key); err != nil {
		var vErr *core.ValidationError
		if errors.As(err, &vErr) {
			b.reply(ctx, chatID, fmt.Sprintf(
				"I don't have a persona called %q. Available: %s",
				vErr.Key, strings.Join(vErr.Valid, ", ")))
			return
		}
		b.logger.Error("set persona failed", "user_id", userID, "error", err)
		b.reply(ctx, chatID, errorReply)
		return
	}
	b.reply(ctx, chatID, "Done! Persona changed to: "+key)
}

func (b *Bot) handleMode(ctx context.Context, chatID int64, userID, args string) {
	key := strings.ToLower(strings.TrimSpace(args))
	if key == "" {
		profile, err := b.companion.Profile(ctx, userID)
		if err != nil {
			b.logger.Error("profile lookup failed", "user_id", userID, "error", err)
			b.reply(ctx, chatID, errorReply)
			return
		}
		b.reply(ctx, chatID, fmt.Sprintf(
			"Current mode: %s\nAvailable: %s\n\nExample: /mode evening",
			profile.Mode, strings.Join(b.companion.Modes(), ", ")))
		return
	}

	if err := b.companion.SetMode(ctx, userID, key); err != nil {
		var vErr *core.ValidationError
		if errors.As(err, &vErr) {
			b.reply(ctx, chatID, fmt.Sprintf(
				"I don't have a mode called %q. Available: %s",
				vErr.Key, strings.Join(vErr.Valid, ", ")))
			return
		}
		b.logger.Error("set mode failed", "user_id", userID, "error", err)
		b.reply(ctx, chatID, errorReply)
		return
	}
	b.reply(ctx, chatID, "Done! Mode changed to: "+key)
}

func (b *Bot) handleName(ctx context.Context, chatID int64, userID, args string) {
	name := strings.TrimSpace(args)
	if name == "" {
		b.reply(ctx, chatID, "Tell me what to call you, for example: /name Alex")
		return
	}
	if err := b.companion.SetName(ctx, userID, name); err != nil {
		b.logger.Error("set name failed", "user_id", userID, "error", err)
		b.reply(ctx, chatID, errorReply)
		return
	}
	b.reply(ctx, chatID, "Nice to meet you, "+name+"!")
}

func (b *Bot) handleReset(ctx context.Context, chatID int64, userID string) {
	if err := b.companion.Reset(ctx, userID); err != nil {
		b.logger.Error("reset failed", "user_id", userID, "error", err)
		b.reply(ctx, chatID, errorReply)
		return
	}
	b.reply(ctx, chatID, "Our conversation is cleared. What shall we talk about?")
}

// handleText runs one text exchange and replies, optionally with
// synthesized audio.
func (b *Bot) handleText(ctx context.Context, chatID int64, userID, text string) {
	b.sendTyping(ctx, chatID)

	reply, err := b.companion.Chat(ctx, userID, text)
	if err != nil {
		b.logger.Error("chat failed", "user_id", userID, "error", err)
		b.reply(ctx, chatID, errorReply)
		return
	}

	if b.synthesizer != nil {
		if b.replyWithAudio(ctx, chatID, reply) {
			return
		}
		// Fall back to text when synthesis fails.
	}
	b.reply(ctx, chatID, reply)
}

// handleVoice downloads and transcribes a voice note, then runs the
// exchange on the transcript.
func (b *Bot) handleVoice(ctx context.Context, chatID int64, userID string, v *voice) {
	if b.transcriber == nil {
		b.reply(ctx, chatID, "Voice recognition is turned off. Send me a text message instead.")
		return
	}

	b.sendTyping(ctx, chatID)

	audio, err := b.downloadVoice(ctx, v.FileID)
	if err != nil {
		b.logger.Error("voice download failed", "user_id", userID, "error", err)
		b.reply(ctx, chatID, "I couldn't fetch that voice message. Could you try again?")
		return
	}

	transcript, err := b.transcriber.Transcribe(ctx, audio)
	if err != nil {
		b.logger.Error("transcription failed", "user_id", userID, "error", err)
		b.reply(ctx, chatID, "I couldn't make out that voice message. Could you type it instead?")
		return
	}

	reply, err := b.companion.Chat(ctx, userID, transcript)
	if err != nil {
		b.logger.Error("chat failed", "user_id", userID, "error", err)
		b.reply(ctx, chatID, errorReply)
		return
	}

	b.reply(ctx, chatID, fmt.Sprintf("Heard: %s\n\n%s", transcript, reply))
}

// replyWithAudio synthesizes the reply and sends it as an audio message
// with the reply text as a truncated caption. Returns false when
// synthesis or upload failed and the caller should fall back to text.
func (b *Bot) replyWithAudio(ctx context.Context, chatID int64, reply string) bool {
	audio, _, err := b.synthesizer.Synthesize(ctx, reply)
	if err != nil {
		b.logger.Warn("synthesis failed", "error", err)
		return false
	}

	caption := reply
	if runes := []rune(caption); len(runes) > maxCaptionChars {
		caption = string(runes[:maxCaptionChars])
	}

	if err := b.sendAudio(ctx, chatID, audio, "reply.mp3", caption); err != nil {
		b.logger.Warn("sendAudio failed", "error", err)
		return false
	}
	return true
}

// reply sends a text message, logging the failure if it cannot be
// delivered.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.sendMessage(ctx, chatID, text); err != nil {
		b.logger.Error("sendMessage failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) welcomeText() string {
	return "Hi! I'm your virtual companion. Tell me your name and what's on your mind today.\n\n" + b.helpText()
}

func (b *Bot) helpText() string {
	return fmt.Sprintf(
		"Commands:\n"+
			"/persona <key> - choose my personality (%s)\n"+
			"/mode <key> - choose a conversation style (%s)\n"+
			"/name <name> - tell me your name\n"+
			"/reset - clear our conversation\n"+
			"/help - show this message",
		strings.Join(b.companion.Personas(), ", "),
		strings.Join(b.companion.Modes(), ", "))
}

// parseCommand splits "/persona romantic" into ("persona", "romantic"),
// stripping an optional @botname suffix from the command.
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	command, args, _ := strings.Cut(text, " ")
	command = strings.TrimPrefix(command, "/")
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	return strings.ToLower(command), strings.TrimSpace(args)
}
