package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// Summary is one row of the conversation listing.
type Summary struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Title           *string  `json:"title"`
	LastMessageTime *float64 `json:"last_message_time"`
}

// List returns summaries of all conversations under the store root, newest
// last-message first. Conversations without a recorded timestamp fall back
// to the history file's modification time, then sort as oldest. Entries
// whose names are not UUIDs are foreign/legacy data and are skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if notExist(err) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("list %s: %w", s.root, err)
	}

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || uuid.Validate(e.Name()) != nil {
			continue
		}
		id := e.Name()
		sum := Summary{ID: id, Name: "Chat " + id[:8]}

		if b, err := os.ReadFile(s.configPath(id)); err == nil {
			if t := gjson.GetBytes(b, "title"); t.Exists() && t.String() != "" {
				title := t.String()
				sum.Title = &title
				sum.Name = title
			}
			if ts := gjson.GetBytes(b, "last_message_time"); ts.Exists() {
				v := ts.Float()
				sum.LastMessageTime = &v
			}
		} else if !notExist(err) {
			s.log.Warn("skipping unreadable conversation config", "id", id, "err", err)
			continue
		}

		if sum.LastMessageTime == nil {
			if fi, err := os.Stat(s.historyPath(id)); err == nil {
				v := float64(fi.ModTime().Unix())
				sum.LastMessageTime = &v
			}
		}

		out = append(out, sum)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return tsOrZero(out[i].LastMessageTime) > tsOrZero(out[j].LastMessageTime)
	})
	return out, nil
}

func tsOrZero(t *float64) float64 {
	if t == nil {
		return 0
	}
	return *t
}

// Root returns the store's base directory (used by tests and diagnostics).
func (s *Store) Root() string { return s.root }

// HistoryDir returns the directory holding transcript files.
func (s *Store) HistoryDir() string { return filepath.Join(s.root, "history") }
