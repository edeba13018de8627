package telegram

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUpdates_ParsesMessageFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getUpdates" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true,"result":[
			{"update_id":11,"message":{"message_id":1,"chat":{"id":123},"date":1700000000,
				"from":{"id":7,"first_name":"Alice","last_name":"Smith"},
				"text":"hello",
				"forward_from":{"id":9,"first_name":"Bob"}}},
			{"update_id":12,"message":{"message_id":2,"chat":{"id":123},"date":1700000001,
				"from":{"id":8,"first_name":"Carol"},
				"voice":{"file_id":"voice-1","duration":3}}}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL+"/file", 2*time.Second)
	updates, err := c.GetUpdates(0, 0)
	require.NoError(t, err)
	require.Len(t, updates, 2)

	first := updates[0].Message
	require.NotNil(t, first)
	assert.Equal(t, "hello", first.Text)
	assert.Equal(t, "Alice Smith", first.From.DisplayName())
	require.NotNil(t, first.ForwardFrom)
	assert.Equal(t, "Bob", first.ForwardFrom.DisplayName())

	second := updates[1].Message
	require.NotNil(t, second)
	require.NotNil(t, second.Voice)
	assert.Equal(t, "voice-1", second.Voice.FileID)
}

func TestSendMessage_TruncatesLongText(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sendMessage" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = io.WriteString(w, `{"ok":true,"result":{}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL+"/file", 2*time.Second)
	require.NoError(t, c.SendMessage(123, strings.Repeat("x", 5000)))

	assert.Contains(t, gotBody, `"chat_id":123`)
	assert.Less(t, len(gotBody), 4500, "payload must carry the truncated text")
}

func TestSendChatAction(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sendChatAction" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL+"/file", 2*time.Second)
	require.NoError(t, c.SendChatAction(123, "typing"))
	assert.Contains(t, gotBody, `"action":"typing"`)
}

func TestFileURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getFile" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "voice-1", r.URL.Query().Get("file_id"))
		_, _ = io.WriteString(w, `{"ok":true,"result":{"file_path":"voice/file_1.oga"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "https://files.example/bot", 2*time.Second)
	url, err := c.FileURL("voice-1")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/bot/voice/file_1.oga", url)
}

func TestFileURL_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ok":false}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.URL, 2*time.Second)
	_, err := c.FileURL("bad")
	assert.Error(t, err)
}

func TestUserDisplayName_Fallbacks(t *testing.T) {
	assert.Equal(t, "Unknown participant", (*User)(nil).DisplayName())
	assert.Equal(t, "alice99", (&User{Username: "alice99"}).DisplayName())
	assert.Equal(t, "Unknown participant", (&User{}).DisplayName())
	assert.Equal(t, "Main Channel", (&ForwardChat{Title: "Main Channel"}).DisplayName())
	assert.Equal(t, "chan", (&ForwardChat{Username: "chan"}).DisplayName())
	assert.Equal(t, "Unknown channel", (*ForwardChat)(nil).DisplayName())
}
