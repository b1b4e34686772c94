// Package settings persists application-wide settings: the central model
// used for internal calls (title generation), an optional stored API key,
// and an optional custom title prompt template.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/sjson"

	"github.com/tsassistant/chat-backend/internal/apperr"
)

// Short names accepted for the central model, mapped to full model ids.
var centralModelIDs = map[string]string{
	"claude-3.5-haiku":  "anthropic/claude-3.5-haiku",
	"claude-3.7-sonnet": "anthropic/claude-3.7-sonnet",
}

const defaultCentralModel = "claude-3.5-haiku"

// Settings is the parsed content of app_settings.json.
type Settings struct {
	CentralModel          string  `json:"central_model"`
	APIKey                *string `json:"api_key,omitempty"`
	TitleGenerationPrompt *string `json:"title_generation_prompt,omitempty"`
}

// View is what the API returns: the key itself is never echoed back.
type View struct {
	CentralModel          string  `json:"central_model"`
	APIKeyConfigured      bool    `json:"api_key_configured"`
	TitleGenerationPrompt *string `json:"title_generation_prompt"`
}

// Update is a partial settings write. A nil APIKey leaves the stored key
// untouched.
type Update struct {
	CentralModel          string  `json:"central_model"`
	APIKey                *string `json:"api_key,omitempty"`
	TitleGenerationPrompt *string `json:"title_generation_prompt,omitempty"`
}

// Store reads and merge-writes the settings file under dir.
type Store struct {
	path string
}

func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "app_settings.json")}
}

// Load returns the current settings, falling back to defaults when the file
// is missing or unreadable.
func (s *Store) Load() Settings {
	def := Settings{CentralModel: defaultCentralModel}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return def
	}
	var got Settings
	if err := json.Unmarshal(b, &got); err != nil {
		return def
	}
	if got.CentralModel == "" {
		got.CentralModel = defaultCentralModel
	}
	return got
}

// Get returns the safe external view of the settings.
func (s *Store) Get() View {
	got := s.Load()
	return View{
		CentralModel:          got.CentralModel,
		APIKeyConfigured:      got.APIKey != nil && *got.APIKey != "",
		TitleGenerationPrompt: got.TitleGenerationPrompt,
	}
}

// Save applies upd with read-merge-write semantics: only provided fields
// move, everything else in the file survives.
func (s *Store) Save(upd Update) error {
	if _, ok := centralModelIDs[upd.CentralModel]; !ok {
		allowed := make([]string, 0, len(centralModelIDs))
		for k := range centralModelIDs {
			allowed = append(allowed, k)
		}
		return &apperr.ValidationError{Field: "central_model", Value: upd.CentralModel, Allowed: allowed}
	}

	doc := []byte("{}")
	if b, err := os.ReadFile(s.path); err == nil && json.Valid(b) {
		doc = b
	}

	var err error
	if doc, err = sjson.SetBytes(doc, "central_model", upd.CentralModel); err != nil {
		return err
	}
	if upd.APIKey != nil && *upd.APIKey != "" {
		if doc, err = sjson.SetBytes(doc, "api_key", *upd.APIKey); err != nil {
			return err
		}
	}
	if upd.TitleGenerationPrompt != nil {
		if doc, err = sjson.SetBytes(doc, "title_generation_prompt", *upd.TitleGenerationPrompt); err != nil {
			return err
		}
	}

	if err := writeFileAtomic(s.path, doc); err != nil {
		return &apperr.PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

// writeFileAtomic writes via a temp file renamed into place, same as the
// conversation store: a crash mid-save never leaves a torn settings file.
// 0600 because the file may hold an API key.
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
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// CentralModelID maps the configured central-model short name to its full
// model id, defaulting when the name is unknown.
func (s *Store) CentralModelID() string {
	got := s.Load()
	if id, ok := centralModelIDs[got.CentralModel]; ok {
		return id
	}
	return centralModelIDs[defaultCentralModel]
}

// TitleTemplate returns the custom title generation prompt, if one is set.
func (s *Store) TitleTemplate() (string, bool) {
	got := s.Load()
	if got.TitleGenerationPrompt != nil && *got.TitleGenerationPrompt != "" {
		return *got.TitleGenerationPrompt, true
	}
	return "", false
}

// String implements fmt.Stringer for debug logs without leaking the key.
func (s *Store) String() string {
	v := s.Get()
	return fmt.Sprintf("settings{central_model=%s key_configured=%t}", v.CentralModel, v.APIKeyConfigured)
}
