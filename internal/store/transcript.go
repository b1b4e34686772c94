package store

import (
	"encoding/json"

	"github.com/tsassistant/chat-backend/internal/apperr"
	"github.com/tsassistant/chat-backend/memory"
)

// LoadTranscript reads the persisted transcript for id, oldest turn first.
// A missing file is apperr.NotFoundError; unparseable JSON is
// apperr.CorruptDataError (chat callers proceed with a fresh window).
func (s *Store) LoadTranscript(id string) ([]memory.Turn, error) {
	path := s.historyPath(id)
	b, err := readFile(path)
	if err != nil {
		if notExist(err) {
			return nil, &apperr.NotFoundError{Resource: "conversation", ID: id}
		}
		return nil, err
	}
	var turns []memory.Turn
	if err := json.Unmarshal(b, &turns); err != nil {
		return nil, &apperr.CorruptDataError{Path: path, Err: err}
	}
	return turns, nil
}

// SaveTranscript rewrites the full transcript file for id and returns its
// path. The transcript is append-only in content but rewritten whole on each
// save (load-all, append, save-all).
func (s *Store) SaveTranscript(id string, turns []memory.Turn) (string, error) {
	if turns == nil {
		turns = []memory.Turn{}
	}
	b, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return "", err
	}
	path := s.historyPath(id)
	if err := writeFileAtomic(path, b); err != nil {
		return "", &apperr.PersistenceError{Op: "write", Path: path, Err: err}
	}
	return path, nil
}
