package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to the history sidecar service over HTTP. The bot API
// cannot read chat history, so a separate service with a full client
// session exposes it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a history client for the given sidecar base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchHistory requests up to limit historical messages for the chat.
func (c *Client) FetchHistory(ctx context.Context, chatID int64, limit int) ([]RawItem, error) {
	endpoint := fmt.Sprintf("%s/chats/%d/history?limit=%s",
		c.baseURL, chatID, url.QueryEscape(strconv.Itoa(limit)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create history request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read history response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history non-success status=%d", resp.StatusCode)
	}

	var items []RawItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("parse history response: %w", err)
	}
	return items, nil
}

// ResolveDisplayName looks up a user's display name.
func (c *Client) ResolveDisplayName(ctx context.Context, userID int64) (string, error) {
	endpoint := fmt.Sprintf("%s/users/%d", c.baseURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create user lookup request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("user lookup failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read user lookup response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user lookup non-success status=%d", resp.StatusCode)
	}

	var parsed struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse user lookup response: %w", err)
	}
	if parsed.DisplayName == "" {
		return "", fmt.Errorf("user %d has no display name", userID)
	}
	return parsed.DisplayName, nil
}
