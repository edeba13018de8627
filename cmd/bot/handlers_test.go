package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storybot/internal/orchestrator"
	"storybot/internal/store"
	"storybot/internal/telegram"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []string
	actions  []string
	sent     chan struct{}
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(chan struct{}, 16)}
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	f.mu.Lock()
	f.messages = append(f.messages, text)
	f.mu.Unlock()
	f.sent <- struct{}{}
	return nil
}

func (f *fakeSender) SendChatAction(chatID int64, action string) error {
	f.mu.Lock()
	f.actions = append(f.actions, action)
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) lastMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

func (f *fakeSender) waitForMessage(t *testing.T) {
	t.Helper()
	select {
	case <-f.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a reply")
	}
}

type fakeResolver struct {
	url string
	err error
}

func (f *fakeResolver) FileURL(fileID string) (string, error) {
	return f.url, f.err
}

type fakeTriggerer struct {
	mu     sync.Mutex
	calls  int
	result orchestrator.Result
}

func (f *fakeTriggerer) Trigger(ctx context.Context, chatID int64) orchestrator.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result
}

func (f *fakeTriggerer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, fileURL string) (string, error) {
	return f.text, f.err
}

func newTestBot(t *testing.T) (*bot, *fakeSender, *fakeTriggerer, *store.Log) {
	t.Helper()
	log := store.NewLog(store.DefaultRetention, zap.NewNop())
	tg := newFakeSender()
	orch := &fakeTriggerer{result: orchestrator.Result{Outcome: orchestrator.Delivered, Reply: "a story"}}
	b := &bot{
		tg:      tg,
		files:   &fakeResolver{url: "https://files.example/voice.oga"},
		log:     log,
		orch:    orch,
		trigger: "wtf",
		logger:  zap.NewNop(),
	}
	return b, tg, orch, log
}

func textMessage(chatID int64, name, text string) *telegram.Message {
	return &telegram.Message{
		From: &telegram.User{FirstName: name},
		Chat: telegram.Chat{ID: chatID},
		Text: text,
	}
}

func TestHandle_IngestsPlainText(t *testing.T) {
	b, _, orch, log := newTestBot(t)

	b.handle(context.Background(), textMessage(5, "Alice", "hello everyone"))

	msgs := log.List(5)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Alice", msgs[0].Sender)
	assert.Equal(t, "hello everyone", msgs[0].Body)
	assert.Equal(t, store.KindText, msgs[0].Kind)
	assert.False(t, msgs[0].IsForwarded)
	assert.Equal(t, 0, orch.callCount())
}

func TestHandle_TriggerStoresMessageAndReplies(t *testing.T) {
	b, tg, orch, log := newTestBot(t)

	b.handle(context.Background(), textMessage(5, "Alice", "wtf"))
	tg.waitForMessage(t)

	assert.Equal(t, 1, orch.callCount())
	assert.Equal(t, "a story", tg.lastMessage())
	assert.Contains(t, tg.actions, "typing")

	// The trigger message itself is retained; the compiler filters it
	// out later as noise.
	require.Len(t, log.List(5), 1)
}

func TestIsTrigger_Variants(t *testing.T) {
	b, _, _, _ := newTestBot(t)

	assert.True(t, b.isTrigger("wtf"))
	assert.True(t, b.isTrigger("WTF"))
	assert.True(t, b.isTrigger("/wtf"))
	assert.True(t, b.isTrigger("/wtf@storybot"))
	assert.False(t, b.isTrigger("wtf happened here"))
	assert.False(t, b.isTrigger("/wtfoo"))
}

func TestHandle_StartAndHelpDoNotIngest(t *testing.T) {
	b, tg, _, log := newTestBot(t)

	b.handle(context.Background(), textMessage(5, "Alice", "/start"))
	tg.waitForMessage(t)
	assert.Equal(t, welcomeText, tg.lastMessage())

	b.handle(context.Background(), textMessage(5, "Alice", "/help@storybot"))
	tg.waitForMessage(t)
	assert.Equal(t, helpText, tg.lastMessage())

	assert.Equal(t, 0, log.Count(5))
}

func TestIngest_ForwardFromUser(t *testing.T) {
	b, _, _, log := newTestBot(t)

	msg := textMessage(5, "Alice", "check this out")
	msg.ForwardFrom = &telegram.User{FirstName: "Bob"}
	b.handle(context.Background(), msg)

	msgs := log.List(5)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Bob", msgs[0].Sender)
	assert.Equal(t, "Alice", msgs[0].ForwardedBy)
	assert.True(t, msgs[0].IsForwarded)
}

func TestIngest_ForwardFromChannel(t *testing.T) {
	b, _, _, log := newTestBot(t)

	msg := textMessage(5, "Alice", "breaking news")
	msg.ForwardFromChat = &telegram.ForwardChat{Title: "News Channel"}
	b.handle(context.Background(), msg)

	msgs := log.List(5)
	require.Len(t, msgs, 1)
	assert.Equal(t, "News Channel", msgs[0].Sender)
	assert.Equal(t, "Alice", msgs[0].ForwardedBy)
}

func TestIngest_PhotoUsesCaptionOrPlaceholder(t *testing.T) {
	b, _, _, log := newTestBot(t)

	withCaption := &telegram.Message{
		From:    &telegram.User{FirstName: "Alice"},
		Chat:    telegram.Chat{ID: 5},
		Photo:   []telegram.PhotoSize{{FileID: "p1"}},
		Caption: "sunset",
	}
	b.handle(context.Background(), withCaption)

	bare := &telegram.Message{
		From:  &telegram.User{FirstName: "Bob"},
		Chat:  telegram.Chat{ID: 5},
		Photo: []telegram.PhotoSize{{FileID: "p2"}},
	}
	b.handle(context.Background(), bare)

	msgs := log.List(5)
	require.Len(t, msgs, 2)
	assert.Equal(t, "sunset", msgs[0].Body)
	assert.Equal(t, store.KindPhoto, msgs[0].Kind)
	assert.Equal(t, mediaPlaceholder, msgs[1].Body)
}

func TestIngest_VoiceTranscribed(t *testing.T) {
	b, _, _, log := newTestBot(t)
	b.transcriber = &fakeTranscriber{text: "spoken words"}

	msg := &telegram.Message{
		From:  &telegram.User{FirstName: "Alice"},
		Chat:  telegram.Chat{ID: 5},
		Voice: &telegram.Voice{FileID: "v1"},
	}
	b.handle(context.Background(), msg)

	msgs := log.List(5)
	require.Len(t, msgs, 1)
	assert.Equal(t, "spoken words", msgs[0].Body)
	assert.Equal(t, store.KindAudio, msgs[0].Kind)
}

func TestIngest_VoiceFailuresFallBackToPlaceholder(t *testing.T) {
	voiceMsg := func() *telegram.Message {
		return &telegram.Message{
			From:  &telegram.User{FirstName: "Alice"},
			Chat:  telegram.Chat{ID: 5},
			Voice: &telegram.Voice{FileID: "v1"},
		}
	}

	// No transcriber configured.
	b, _, _, log := newTestBot(t)
	b.transcriber = nil
	b.handle(context.Background(), voiceMsg())

	// Transcription error.
	b.transcriber = &fakeTranscriber{err: errors.New("quota exceeded")}
	b.handle(context.Background(), voiceMsg())

	// File resolution error.
	b.transcriber = &fakeTranscriber{text: "unreachable"}
	b.files = &fakeResolver{err: errors.New("file too big")}
	b.handle(context.Background(), voiceMsg())

	msgs := log.List(5)
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.Equal(t, "[transcription unavailable]", m.Body)
		assert.Equal(t, store.KindAudio, m.Kind)
	}
}

func TestIngest_SkipsEmptyUpdates(t *testing.T) {
	b, _, _, log := newTestBot(t)

	b.handle(context.Background(), &telegram.Message{
		From: &telegram.User{FirstName: "Alice"},
		Chat: telegram.Chat{ID: 5},
	})

	assert.Equal(t, 0, log.Count(5))
}
