package snapshot

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"storybot/internal/store"
)

// Store is the durable snapshot collaborator. Read reports absent via
// ok=false; failures on either side are non-fatal to the caller.
type Store interface {
	Read() (data []byte, ok bool, err error)
	Write(data []byte) error
}

// Encode serializes the full log state. Chat IDs become JSON object keys;
// messages keep all their attributes.
func Encode(chats map[int64][]store.Message) ([]byte, error) {
	data, err := json.Marshal(chats)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot back into log state. Missing optional fields
// (forwardedBy, kind, processed) unmarshal to their zero values.
func Decode(data []byte) (map[int64][]store.Message, error) {
	var chats map[int64][]store.Message
	if err := json.Unmarshal(data, &chats); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if chats == nil {
		chats = make(map[int64][]store.Message)
	}
	return chats, nil
}

// Restore loads the snapshot into the log and runs a retention sweep.
// Any read or parse failure is reported and leaves the log empty;
// startup never fails on a bad snapshot.
func Restore(st Store, log *store.Log, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	data, ok, err := st.Read()
	if err != nil {
		logger.Warn("snapshot read failed, starting empty", zap.Error(err))
		return
	}
	if !ok {
		logger.Info("no snapshot found, starting empty")
		return
	}
	chats, err := Decode(data)
	if err != nil {
		logger.Warn("snapshot parse failed, starting empty", zap.Error(err))
		return
	}
	log.Import(chats)
	removed := log.SweepAll()
	logger.Info("snapshot restored",
		zap.Int("chats", len(chats)), zap.Int("expired", removed))
}

// Persist writes the current log state to the store.
func Persist(st Store, log *store.Log) error {
	data, err := Encode(log.Export())
	if err != nil {
		return err
	}
	if err := st.Write(data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
