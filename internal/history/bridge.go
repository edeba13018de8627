package history

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storybot/internal/store"
)

// Placeholder bodies for history items without derivable text. Audio
// from history cannot be downloaded for transcription in this pass, so
// it always gets the fixed placeholder.
const (
	audioPlaceholder = "[audio message from history]"
	mediaPlaceholder = "[media content]"
	unknownSource    = "unknown source"
)

// Bridge pulls messages from the history provider, normalizes them into
// log entries and merges them in. Retention sweeps stay the log's job.
type Bridge struct {
	provider Provider
	log      *store.Log
	pageSize int
	logger   *zap.Logger
}

// NewBridge creates a bridge. A pageSize of 0 falls back to DefaultPageSize.
func NewBridge(provider Provider, log *store.Log, pageSize int, logger *zap.Logger) *Bridge {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{provider: provider, log: log, pageSize: pageSize, logger: logger}
}

// Backfill fetches up to a page of history for the chat and merges the
// normalizable items. It returns the number merged. A transport failure
// or an empty result is a soft failure; a single bad item never aborts
// the rest of the batch.
func (b *Bridge) Backfill(ctx context.Context, chatID int64) (int, error) {
	items, err := b.provider.FetchHistory(ctx, chatID, b.pageSize)
	if err != nil {
		return 0, fmt.Errorf("fetch history for chat %d: %w", chatID, err)
	}
	if len(items) == 0 {
		return 0, ErrNoHistory
	}

	merged := 0
	for _, item := range items {
		msg, ok, err := b.normalize(ctx, item)
		if err != nil {
			b.logger.Warn("skipping history item",
				zap.Int64("chat_id", chatID), zap.Int64("item_id", item.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		b.log.Merge(chatID, msg)
		merged++
	}

	b.logger.Info("history backfill merged",
		zap.Int64("chat_id", chatID), zap.Int("fetched", len(items)), zap.Int("merged", merged))
	return merged, nil
}

// normalize maps a raw item to a log message. ok=false means the item
// is silently skipped (non-user author, no derivable content); an error
// means the item is malformed or a lookup failed.
func (b *Bridge) normalize(ctx context.Context, item RawItem) (store.Message, bool, error) {
	if item.FromKind != AuthorUser {
		return store.Message{}, false, nil
	}
	if item.Text == "" && item.Caption == "" && item.Media == "" {
		return store.Message{}, false, nil
	}

	sender, err := b.provider.ResolveDisplayName(ctx, item.FromID)
	if err != nil {
		return store.Message{}, false, fmt.Errorf("resolve sender %d: %w", item.FromID, err)
	}

	msg := store.Message{
		Sender:    sender,
		Timestamp: time.Unix(item.Date, 0),
	}

	if item.Forward != nil {
		// The immediate sender is the relayer; attribution goes to the
		// original author when resolvable.
		msg.IsForwarded = true
		msg.ForwardedBy = sender
		msg.Sender = b.resolveForwardAuthor(ctx, item.Forward)
	}

	switch {
	case item.Media == "audio":
		msg.Kind = store.KindAudio
		msg.Body = audioPlaceholder
	case item.Text != "":
		msg.Kind = store.KindText
		msg.Body = item.Text
	default:
		msg.Kind = mediaKind(item.Media)
		msg.Body = item.Caption
		if msg.Body == "" {
			msg.Body = mediaPlaceholder
		}
	}
	return msg, true, nil
}

// resolveForwardAuthor picks the attributed author of a forwarded item:
// the resolved original author, else the forwarder-provided label, else
// the unknown-source placeholder.
func (b *Bridge) resolveForwardAuthor(ctx context.Context, fwd *Forward) string {
	if fwd.FromID != 0 {
		name, err := b.provider.ResolveDisplayName(ctx, fwd.FromID)
		if err == nil && name != "" {
			return name
		}
		b.logger.Debug("forward author lookup failed",
			zap.Int64("from_id", fwd.FromID), zap.Error(err))
	}
	if fwd.FromName != "" {
		return fwd.FromName
	}
	return unknownSource
}

func mediaKind(media string) store.Kind {
	switch media {
	case "photo":
		return store.KindPhoto
	case "video":
		return store.KindVideo
	default:
		return store.KindOther
	}
}
