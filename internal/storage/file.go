package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"repo-pulse/internal/history"
)

var (
	// ErrEmpty means the backend holds no document.
	ErrEmpty = errors.New("storage: empty document")
	// ErrCorrupt means the stored document exists but cannot be decoded.
	ErrCorrupt = errors.New("storage: corrupt document")
)

// FileBackend keeps History as one indented JSON document on disk.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Path() string { return b.path }

func (b *FileBackend) Load(_ context.Context) (history.History, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	return decode(data)
}

func (b *FileBackend) Save(_ context.Context, h history.History) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, err := encode(h)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if err := os.WriteFile(b.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", b.path, err)
	}
	return nil
}

func encode(h history.History) ([]byte, error) {
	if h == nil {
		h = history.New()
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (history.History, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}
	var h history.History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(h) == 0 {
		return nil, ErrEmpty
	}
	return h, nil
}
