package main

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"storybot/internal/orchestrator"
	"storybot/internal/speech"
	"storybot/internal/store"
	"storybot/internal/telegram"
)

const (
	welcomeText = "Hi! I listen to this chat and, on request, retell the recent conversation as a short story. Say the magic word or use the command when you want one."
	helpText    = "Send the trigger word (or its /command form) and I will compile the messages from the last hours into a story. I keep messages for a limited time only, and each message is used in at most one story."

	mediaPlaceholder = "[media content]"
)

type sender interface {
	SendMessage(chatID int64, text string) error
	SendChatAction(chatID int64, action string) error
}

type fileResolver interface {
	FileURL(fileID string) (string, error)
}

type triggerer interface {
	Trigger(ctx context.Context, chatID int64) orchestrator.Result
}

type bot struct {
	tg          sender
	files       fileResolver
	log         *store.Log
	orch        triggerer
	transcriber speech.Transcriber
	trigger     string
	logger      *zap.Logger
}

func (b *bot) handle(ctx context.Context, msg *telegram.Message) {
	text := strings.TrimSpace(msg.Text)
	chatID := msg.Chat.ID

	switch {
	case isCommand(text, "start"):
		b.reply(chatID, welcomeText)
		return
	case isCommand(text, "help"):
		b.reply(chatID, helpText)
		return
	}

	b.ingest(ctx, msg)

	if b.isTrigger(text) {
		go b.runTrigger(ctx, chatID)
	}
}

func (b *bot) runTrigger(ctx context.Context, chatID int64) {
	if err := b.tg.SendChatAction(chatID, "typing"); err != nil {
		b.logger.Debug("sendChatAction failed", zap.Error(err))
	}
	result := b.orch.Trigger(ctx, chatID)
	b.reply(chatID, result.Reply)
}

// ingest converts an incoming update into a retained message. Updates
// without usable content are dropped.
func (b *bot) ingest(ctx context.Context, msg *telegram.Message) {
	body, kind, ok := b.extractContent(ctx, msg)
	if !ok {
		return
	}

	stored := store.Message{
		Sender: msg.From.DisplayName(),
		Body:   body,
		Kind:   kind,
	}
	if msg.ForwardFrom != nil {
		stored.IsForwarded = true
		stored.ForwardedBy = msg.From.DisplayName()
		stored.Sender = msg.ForwardFrom.DisplayName()
	} else if msg.ForwardFromChat != nil {
		stored.IsForwarded = true
		stored.ForwardedBy = msg.From.DisplayName()
		stored.Sender = msg.ForwardFromChat.DisplayName()
	}

	b.log.Ingest(msg.Chat.ID, stored)
}

func (b *bot) extractContent(ctx context.Context, msg *telegram.Message) (string, store.Kind, bool) {
	switch {
	case msg.Voice != nil:
		return b.transcribeVoice(ctx, msg.Voice.FileID), store.KindAudio, true
	case msg.Text != "":
		return msg.Text, store.KindText, true
	case len(msg.Photo) > 0:
		return captionOrPlaceholder(msg.Caption), store.KindPhoto, true
	case msg.Video != nil:
		return captionOrPlaceholder(msg.Caption), store.KindVideo, true
	case msg.Caption != "":
		return msg.Caption, store.KindOther, true
	default:
		return "", "", false
	}
}

// transcribeVoice never fails ingestion: any error along the way yields
// a placeholder body instead.
func (b *bot) transcribeVoice(ctx context.Context, fileID string) string {
	if b.transcriber == nil {
		return speech.UnavailablePlaceholder
	}
	fileURL, err := b.files.FileURL(fileID)
	if err != nil {
		b.logger.Warn("voice file resolve failed", zap.Error(err))
		return speech.UnavailablePlaceholder
	}
	text, err := b.transcriber.Transcribe(ctx, fileURL)
	if err != nil {
		b.logger.Warn("voice transcription failed", zap.Error(err))
		return speech.UnavailablePlaceholder
	}
	return text
}

func (b *bot) isTrigger(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	t := strings.ToLower(b.trigger)
	return lower == t || lower == "/"+t || strings.HasPrefix(lower, "/"+t+"@")
}

func isCommand(text, name string) bool {
	lower := strings.ToLower(text)
	return lower == "/"+name || strings.HasPrefix(lower, "/"+name+"@")
}

func captionOrPlaceholder(caption string) string {
	if caption != "" {
		return caption
	}
	return mediaPlaceholder
}

func (b *bot) reply(chatID int64, text string) {
	if err := b.tg.SendMessage(chatID, text); err != nil {
		b.logger.Warn("sendMessage failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
