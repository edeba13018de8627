package telegram

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal Telegram Bot API client.
type Client struct {
	apiBase    string
	fileBase   string
	httpClient *http.Client
}

// NewClient creates a Telegram client. apiBase is the bot method base
// (e.g. "https://api.telegram.org/bot<token>"), fileBase the download
// base (e.g. "https://api.telegram.org/file/bot<token>").
func NewClient(apiBase, fileBase string, requestTimeout time.Duration) *Client {
	return &Client{
		apiBase:  apiBase,
		fileBase: fileBase,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Response is the generic Telegram API response wrapper.
type Response struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
}

// Update is one incoming event from getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is an incoming chat message with the fields the bot cares
// about: author, forward metadata, text or media content.
type Message struct {
	MessageID       int64        `json:"message_id"`
	From            *User        `json:"from,omitempty"`
	Chat            Chat         `json:"chat"`
	Date            int64        `json:"date"`
	Text            string       `json:"text,omitempty"`
	Caption         string       `json:"caption,omitempty"`
	Voice           *Voice       `json:"voice,omitempty"`
	Photo           []PhotoSize  `json:"photo,omitempty"`
	Video           *Video       `json:"video,omitempty"`
	ForwardFrom     *User        `json:"forward_from,omitempty"`
	ForwardFromChat *ForwardChat `json:"forward_from_chat,omitempty"`
}

// User identifies a Telegram account.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// DisplayName renders the user's full name, falling back to the
// username and then a fixed placeholder.
func (u *User) DisplayName() string {
	if u == nil {
		return "Unknown participant"
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = "Unknown participant"
	}
	return name
}

// Chat identifies a conversation.
type Chat struct {
	ID int64 `json:"id"`
}

// ForwardChat identifies the channel or group a message was forwarded
// from.
type ForwardChat struct {
	ID       int64  `json:"id"`
	Title    string `json:"title,omitempty"`
	Username string `json:"username,omitempty"`
}

// DisplayName renders the source channel's name.
func (c *ForwardChat) DisplayName() string {
	if c == nil {
		return "Unknown channel"
	}
	if c.Title != "" {
		return c.Title
	}
	if c.Username != "" {
		return c.Username
	}
	return "Unknown channel"
}

// Voice is a voice note attachment.
type Voice struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
	MimeType string `json:"mime_type,omitempty"`
}

// PhotoSize is one size variant of a photo attachment.
type PhotoSize struct {
	FileID string `json:"file_id"`
}

// Video is a video attachment.
type Video struct {
	FileID string `json:"file_id"`
}

// GetUpdates calls the getUpdates API with long polling.
func (c *Client) GetUpdates(offset int64, timeout int) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(timeout))

	resp, err := c.httpClient.Get(c.apiBase + "/getUpdates?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("telegram getUpdates request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read getUpdates response: %w", err)
	}

	var tgResp Response
	if err := json.Unmarshal(body, &tgResp); err != nil {
		return nil, fmt.Errorf("failed to parse getUpdates response: %w", err)
	}
	if !tgResp.OK {
		return nil, nil
	}

	var updates []Update
	if err := json.Unmarshal(tgResp.Result, &updates); err != nil {
		return nil, fmt.Errorf("failed to parse getUpdates result: %w", err)
	}
	return updates, nil
}

// SendMessage sends a text message to the given chat.
func (c *Client) SendMessage(chatID int64, text string) error {
	limited := truncate(text, 3900)
	payload := fmt.Sprintf(`{"chat_id":%d,"text":%s}`, chatID, jsonString(limited))

	resp, err := c.httpClient.Post(
		c.apiBase+"/sendMessage",
		"application/json",
		strings.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("telegram sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.ReadAll(resp.Body) // drain
	return nil
}

// SendChatAction reports a bot status such as "typing" to the chat.
func (c *Client) SendChatAction(chatID int64, action string) error {
	payload := fmt.Sprintf(`{"chat_id":%d,"action":%s}`, chatID, jsonString(action))

	resp, err := c.httpClient.Post(
		c.apiBase+"/sendChatAction",
		"application/json",
		strings.NewReader(payload),
	)
	if err != nil {
		return fmt.Errorf("telegram sendChatAction request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.ReadAll(resp.Body)
	return nil
}

// FileURL resolves a file_id into a direct download URL via getFile.
func (c *Client) FileURL(fileID string) (string, error) {
	params := url.Values{}
	params.Set("file_id", fileID)

	resp, err := c.httpClient.Get(c.apiBase + "/getFile?" + params.Encode())
	if err != nil {
		return "", fmt.Errorf("telegram getFile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read getFile response: %w", err)
	}

	var tgResp Response
	if err := json.Unmarshal(body, &tgResp); err != nil {
		return "", fmt.Errorf("failed to parse getFile response: %w", err)
	}
	if !tgResp.OK {
		return "", fmt.Errorf("telegram getFile rejected file_id %s", fileID)
	}

	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal(tgResp.Result, &file); err != nil {
		return "", fmt.Errorf("failed to parse getFile result: %w", err)
	}
	if file.FilePath == "" {
		return "", fmt.Errorf("telegram getFile returned no file_path")
	}
	return c.fileBase + "/" + file.FilePath, nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
