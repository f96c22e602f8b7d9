package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
)

// update is one entry from getUpdates.
type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message"`
}

// message is an incoming Telegram message.
type message struct {
	MessageID int64  `json:"message_id"`
	From      *user  `json:"from"`
	Chat      chat   `json:"chat"`
	Text      string `json:"text"`
	Voice     *voice `json:"voice"`
}

type user struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
}

type chat struct {
	ID int64 `json:"id"`
}

type voice struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
}

// apiResponse is the envelope every Bot API call returns.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// call performs a Bot API method with a JSON payload and decodes the result
// into out (which may be nil when the result is not needed).
func (b *Bot) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram: %s: %s", method, envelope.Description)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("telegram: decode %s result: %w", method, err)
		}
	}
	return nil
}

// getUpdates long-polls for new updates past offset.
func (b *Bot) getUpdates(ctx context.Context, offset int64, timeout int) ([]update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message"},
	}

	var updates []update
	if err := b.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// sendMessage sends a plain-text message to a chat.
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	return b.call(ctx, "sendMessage", payload, nil)
}

// sendTyping sends a "typing..." chat action.
func (b *Bot) sendTyping(ctx context.Context, chatID int64) {
	payload := map[string]any{
		"chat_id": chatID,
		"action":  "typing",
	}
	// Best effort; a failed typing indicator is not worth surfacing.
	if err := b.call(ctx, "sendChatAction", payload, nil); err != nil {
		b.logger.Debug("sendChatAction failed", "error", err)
	}
}

// downloadVoice fetches the raw bytes of a voice note via getFile.
func (b *Bot) downloadVoice(ctx context.Context, fileID string) ([]byte, error) {
	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := b.call(ctx, "getFile", map[string]any{"file_id": fileID}, &file); err != nil {
		return nil, err
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("telegram: getFile returned no path")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.fileURL+"/"+file.FilePath, nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: creating download request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: file download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram: file download returned %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram: reading file: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("telegram: empty file download")
	}
	return audio, nil
}

// sendAudio uploads an audio reply with a caption via multipart form data.
func (b *Bot) sendAudio(ctx context.Context, chatID int64, audio []byte, filename, caption string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("telegram: build audio form: %w", err)
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return fmt.Errorf("telegram: build audio form: %w", err)
		}
	}
	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		return fmt.Errorf("telegram: build audio form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return fmt.Errorf("telegram: build audio form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("telegram: build audio form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/sendAudio", &body)
	if err != nil {
		return fmt.Errorf("telegram: creating sendAudio request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: sendAudio request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram: decode sendAudio response: %w", err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram: sendAudio: %s", envelope.Description)
	}
	return nil
}
