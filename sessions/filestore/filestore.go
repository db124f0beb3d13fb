// Package filestore persists the session record as a small JSON document,
// the terminal equivalent of browser local storage.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	porterrors "github.com/jrsteele09/go-portal-client/internal/errors"
	"github.com/jrsteele09/go-portal-client/sessions"
)

var _ sessions.Store = (*Store)(nil)

const filePerm = 0o600

// Store keeps the record in a single file. Writes go to a temp file in the
// same directory and are renamed over the target, so a reader in another
// process never sees a half-written record.
type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("[filestore.New] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load(_ context.Context) (sessions.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return sessions.Record{}, nil
	}
	if err != nil {
		return sessions.Record{}, fmt.Errorf("failed to read session file: %w", err)
	}
	if len(data) == 0 {
		return sessions.Record{}, nil
	}

	var record sessions.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return sessions.Record{}, fmt.Errorf("%w: %v", porterrors.ErrCorruptRecord, err)
	}
	return record, nil
}

func (s *Store) Save(_ context.Context, record sessions.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.IsEmpty() {
		return s.remove()
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.writeAtomic(data)
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove()
}

func (s *Store) remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

func (s *Store) writeAtomic(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) // no-op after a successful rename
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set session file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}
