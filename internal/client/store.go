package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xiaot623/leetmentor/internal/domain"
)

// DefaultKey names the persisted record.
const DefaultKey = "leetcodeHelperSession"

// State is the client-side mirror of a session. Director turns never
// appear in it.
type State struct {
	SessionID   string        `json:"sessionId"`
	Messages    []domain.Turn `json:"messages"`
	LeetCodeURL string        `json:"leetCodeUrl"`
}

// Persistence is an opaque key-value store for the mirror.
type Persistence interface {
	// Load returns nil, nil when nothing is saved.
	Load() (*State, error)
	Save(State) error
	Clear() error
}

// FileStore keeps the mirror as one JSON file named after the key.
type FileStore struct {
	path string
}

// NewFileStore creates a store under dir.
func NewFileStore(dir, key string) *FileStore {
	if key == "" {
		key = DefaultKey
	}
	return &FileStore{path: filepath.Join(dir, key+".json")}
}

// Path returns the file backing the store.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load() (*State, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", f.path, err)
	}
	return &st, nil
}

// Save replaces the record atomically.
func (f *FileStore) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
