package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the snapshot in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store, ensuring the parent
// directory exists.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot directory %s: %w", dir, err)
		}
	}
	return &FileStore{path: path}, nil
}

// Read returns the snapshot contents, or ok=false when no file exists.
func (s *FileStore) Read() ([]byte, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot file %s: %w", s.path, err)
	}
	return data, true, nil
}

// Write replaces the snapshot file. The write goes through a temp file
// and rename so a crash mid-write never leaves a truncated snapshot.
func (s *FileStore) Write(data []byte) error {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot file %s: %w", s.path, err)
	}
	return nil
}
