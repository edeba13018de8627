package store

import "time"

// Kind classifies message content.
type Kind string

const (
	KindText  Kind = "text"
	KindAudio Kind = "audio"
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
	KindOther Kind = "other"
)

// Message is one chat utterance held by the log.
//
// Sender is the attributed author, never the relayer: for forwarded
// messages ForwardedBy carries the relayer's name and IsForwarded is true.
// Body is always populated; non-text content gets a caption or a
// kind-specific placeholder at ingestion time.
type Message struct {
	Sender      string    `json:"sender"`
	ForwardedBy string    `json:"forwardedBy,omitempty"`
	IsForwarded bool      `json:"isForwarded,omitempty"`
	Body        string    `json:"body"`
	Kind        Kind      `json:"kind,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Processed   bool      `json:"processed"`
}
