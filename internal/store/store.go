// Package store persists conversation transcripts and per-conversation
// configuration as JSON files.
//
// Layout, per store root:
//
//	<root>/<id>/config.json     - merge-saved conversation config
//	<root>/history/<id>.json    - JSON array of {type, content} turns
//
// A service runs one Store per conversation kind (chat, ascii), so parallel
// independent domains never share a directory.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tsassistant/chat-backend/internal/apperr"
)

type Store struct {
	root string
	log  *slog.Logger
}

// New returns a store rooted at dir. Directories are created lazily on
// write, so constructing a store never touches disk.
func New(dir string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{root: dir, log: log}
}

func (s *Store) configPath(id string) string {
	return filepath.Join(s.root, id, "config.json")
}

func (s *Store) historyPath(id string) string {
	return filepath.Join(s.root, "history", id+".json")
}

// Delete removes a conversation's config directory and history file.
// It reports apperr.NotFoundError only when neither artifact existed; a
// conversation with only one of the two still deletes successfully.
func (s *Store) Delete(id string) error {
	deleted := false

	dir := filepath.Join(s.root, id)
	if _, err := os.Stat(dir); err == nil {
		if err := os.RemoveAll(dir); err != nil {
			return &apperr.PersistenceError{Op: "remove", Path: dir, Err: err}
		}
		deleted = true
	}

	hp := s.historyPath(id)
	if _, err := os.Stat(hp); err == nil {
		if err := os.Remove(hp); err != nil {
			return &apperr.PersistenceError{Op: "remove", Path: hp, Err: err}
		}
		deleted = true
	}

	if !deleted {
		return &apperr.NotFoundError{Resource: "conversation", ID: id}
	}
	return nil
}

// writeFileAtomic writes data via a temp file in the target directory and
// renames it into place, creating parent directories as needed. Readers
// never observe a partial write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func notExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func readFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if notExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}
