package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storybot/internal/generate"
)

const apiVersion = "2023-06-01"

// Client is a minimal Anthropic messages API client.
type Client struct {
	apiKey     string
	url        string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewClient creates an Anthropic client.
func NewClient(apiKey, url, model string, maxTokens int, timeout time.Duration) *Client {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Client{
		apiKey:    apiKey,
		url:       url,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate sends one generation request and returns the generated text.
// Rate-limit and oversized-payload responses map to the typed errors in
// the generate package; no retries happen here.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	reqBody := messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: prompt}},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read anthropic response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("anthropic status=%d: %w", resp.StatusCode, generate.ErrRateLimited)
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusRequestEntityTooLarge:
		return "", fmt.Errorf("anthropic status=%d: %w", resp.StatusCode, generate.ErrPayloadTooLarge)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		truncated := truncate(string(body), 400)
		return "", fmt.Errorf("anthropic non-success status=%d body=%s", resp.StatusCode, truncated)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		truncated := truncate(string(body), 400)
		return "", fmt.Errorf("parse anthropic response: %s", truncated)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", fmt.Errorf("anthropic returned no text content")
	}
	return out, nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
