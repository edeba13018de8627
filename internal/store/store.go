package store

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRetention is how long a message survives in the log.
const DefaultRetention = 12 * time.Hour

// Log keeps an ordered message sequence per chat. It is the single owner
// of message state: callers read copies via List and mutate through
// MarkProcessed/MarkAllProcessed only.
type Log struct {
	mu        sync.Mutex
	retention time.Duration
	chats     map[int64][]Message
	logger    *zap.Logger
	now       func() time.Time
}

// NewLog creates an empty log with the given retention window.
// A retention of 0 falls back to DefaultRetention.
func NewLog(retention time.Duration, logger *zap.Logger) *Log {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		retention: retention,
		chats:     make(map[int64][]Message),
		logger:    logger,
		now:       time.Now,
	}
}

// Ingest appends a live message. Timestamp is set to now and Processed
// to false regardless of what the caller passed in. No eviction happens
// on ingest.
func (l *Log) Ingest(chatID int64, msg Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg.Timestamp = l.now()
	msg.Processed = false
	l.chats[chatID] = append(l.chats[chatID], msg)
}

// Merge inserts a backfilled message, keeping the provider's timestamp.
// The insertion position preserves chronological order relative to
// existing entries; equal timestamps keep insertion order.
func (l *Log) Merge(chatID int64, msg Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	msg.Processed = false
	seq := l.chats[chatID]
	i := sort.Search(len(seq), func(i int) bool {
		return seq[i].Timestamp.After(msg.Timestamp)
	})
	seq = append(seq, Message{})
	copy(seq[i+1:], seq[i:])
	seq[i] = msg
	l.chats[chatID] = seq
}

// List returns a copy of the chat's messages in insertion order.
// Unknown chats yield an empty slice.
func (l *Log) List(chatID int64) []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	seq := l.chats[chatID]
	out := make([]Message, len(seq))
	copy(out, seq)
	return out
}

// Count returns the total number of messages for the chat.
func (l *Log) Count(chatID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chats[chatID])
}

// UnprocessedCount returns how many messages have not been consumed by a
// generation pass yet.
func (l *Log) UnprocessedCount(chatID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.chats[chatID] {
		if !m.Processed {
			n++
		}
	}
	return n
}

// MarkProcessed sets Processed on the given positions and returns the
// number of messages actually mutated. Positions outside the sequence
// are ignored; unknown chats are a no-op.
func (l *Log) MarkProcessed(chatID int64, positions []int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	seq, ok := l.chats[chatID]
	if !ok {
		return 0
	}
	count := 0
	for _, i := range positions {
		if i < 0 || i >= len(seq) {
			continue
		}
		if !seq[i].Processed {
			seq[i].Processed = true
			count++
		}
	}
	l.logger.Info("marked messages processed",
		zap.Int64("chat_id", chatID), zap.Int("count", count))
	return count
}

// MarkAllProcessed sets Processed on every message in the chat.
func (l *Log) MarkAllProcessed(chatID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	seq, ok := l.chats[chatID]
	if !ok {
		return 0
	}
	count := 0
	for i := range seq {
		if !seq[i].Processed {
			seq[i].Processed = true
			count++
		}
	}
	l.logger.Info("marked all messages processed",
		zap.Int64("chat_id", chatID), zap.Int("count", count))
	return count
}

// SweepExpired drops messages older than the retention window and
// returns how many were removed. A message exactly at the boundary
// survives. Idempotent; safe on unknown chats.
func (l *Log) SweepExpired(chatID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweepLocked(chatID)
}

// SweepAll applies SweepExpired to every known chat.
func (l *Log) SweepAll() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for chatID := range l.chats {
		total += l.sweepLocked(chatID)
	}
	return total
}

func (l *Log) sweepLocked(chatID int64) int {
	seq, ok := l.chats[chatID]
	if !ok {
		return 0
	}
	cutoff := l.now().Add(-l.retention)
	kept := seq[:0]
	for _, m := range seq {
		if !m.Timestamp.Before(cutoff) {
			kept = append(kept, m)
		}
	}
	removed := len(seq) - len(kept)
	l.chats[chatID] = kept
	if removed > 0 {
		l.logger.Info("swept expired messages",
			zap.Int64("chat_id", chatID), zap.Int("removed", removed))
	}
	return removed
}

// Export returns a deep copy of the full state for snapshotting.
func (l *Log) Export() map[int64][]Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[int64][]Message, len(l.chats))
	for chatID, seq := range l.chats {
		cp := make([]Message, len(seq))
		copy(cp, seq)
		out[chatID] = cp
	}
	return out
}

// Import replaces the full state, typically from a snapshot restore.
// The caller is expected to run SweepAll right after.
func (l *Log) Import(chats map[int64][]Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chats = make(map[int64][]Message, len(chats))
	for chatID, seq := range chats {
		cp := make([]Message, len(seq))
		copy(cp, seq)
		l.chats[chatID] = cp
	}
}
