package history

import (
	"context"
	"errors"
)

// DefaultPageSize is the provider-default number of historical messages
// requested per backfill.
const DefaultPageSize = 100

// ErrNoHistory is reported when the provider has nothing for the chat.
var ErrNoHistory = errors.New("history provider returned no items")

// Author kinds as exposed by the provider. Only user-authored entries
// are merged; bot and system entries are skipped.
const (
	AuthorUser   = "user"
	AuthorBot    = "bot"
	AuthorSystem = "system"
)

// Forward carries the forward metadata of a relayed history item:
// a reference to the original author when the provider has one, and an
// optional display label the forwarder attached.
type Forward struct {
	FromID   int64  `json:"from_id,omitempty"`
	FromName string `json:"from_name,omitempty"`
}

// RawItem is one entry returned by the external history provider.
type RawItem struct {
	ID       int64    `json:"id"`
	Date     int64    `json:"date"` // unix seconds
	FromKind string   `json:"from_kind"`
	FromID   int64    `json:"from_id"`
	Text     string   `json:"text,omitempty"`
	Caption  string   `json:"caption,omitempty"`
	Media    string   `json:"media,omitempty"` // "", audio, photo, video, other
	Forward  *Forward `json:"forward,omitempty"`
}

// Provider is the external chat-history collaborator.
type Provider interface {
	FetchHistory(ctx context.Context, chatID int64, limit int) ([]RawItem, error)
	ResolveDisplayName(ctx context.Context, userID int64) (string, error)
}
