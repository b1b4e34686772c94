package store

import (
	"encoding/json"

	"github.com/tidwall/sjson"

	"github.com/tsassistant/chat-backend/internal/apperr"
)

// Config is the persisted per-conversation configuration. All fields except
// the id are optional on disk; absent fields fall through to global defaults
// at resolve time.
type Config struct {
	ConversationID  string   `json:"conversation_id,omitempty"`
	ModelName       string   `json:"model_name,omitempty"`
	SystemDirective *string  `json:"system_directive,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	LastMessageTime *float64 `json:"last_message_time,omitempty"`
	Title           string   `json:"title,omitempty"`
	LastTitleUpdate *float64 `json:"last_title_update,omitempty"`
}

// Patch is a partial config update. Nil fields are left untouched on disk,
// which is what lets the title endpoint and the settings endpoint write the
// same file without clobbering each other.
type Patch struct {
	ModelName       *string
	SystemDirective *string
	Temperature     *float64
	LastMessageTime *float64
	Title           *string
	LastTitleUpdate *float64
}

// LoadConfig reads the persisted config for id. Missing file is
// apperr.NotFoundError; unparseable JSON is apperr.CorruptDataError (callers
// fall back to defaults and log, never failing the request).
func (s *Store) LoadConfig(id string) (*Config, error) {
	path := s.configPath(id)
	b, err := readFile(path)
	if err != nil {
		if notExist(err) {
			return nil, &apperr.NotFoundError{Resource: "conversation config", ID: id}
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, &apperr.CorruptDataError{Path: path, Err: err}
	}
	cfg.ConversationID = id
	return &cfg, nil
}

// SaveConfig applies patch to the conversation's config file with
// read-merge-write semantics: existing keys, including ones this build does
// not know about, survive unless the patch explicitly overwrites them.
func (s *Store) SaveConfig(id string, patch Patch) error {
	path := s.configPath(id)

	doc := []byte("{}")
	if b, err := readFile(path); err == nil {
		if json.Valid(b) {
			doc = b
		} else {
			// Unreadable config is replaced rather than failing the save.
			s.log.Warn("replacing corrupt conversation config", "path", path)
		}
	} else if !notExist(err) {
		return err
	}

	var err error
	if doc, err = sjson.SetBytes(doc, "conversation_id", id); err != nil {
		return err
	}
	set := func(key string, val any) {
		if err != nil {
			return
		}
		doc, err = sjson.SetBytes(doc, key, val)
	}
	if patch.ModelName != nil {
		set("model_name", *patch.ModelName)
	}
	if patch.SystemDirective != nil {
		set("system_directive", *patch.SystemDirective)
	}
	if patch.Temperature != nil {
		set("temperature", *patch.Temperature)
	}
	if patch.LastMessageTime != nil {
		set("last_message_time", *patch.LastMessageTime)
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.LastTitleUpdate != nil {
		set("last_title_update", *patch.LastTitleUpdate)
	}
	if err != nil {
		return err
	}

	var pretty []byte
	{
		var v map[string]any
		if e := json.Unmarshal(doc, &v); e == nil {
			if p, e := json.MarshalIndent(v, "", "  "); e == nil {
				pretty = p
			}
		}
	}
	if pretty == nil {
		pretty = doc
	}

	if err := writeFileAtomic(path, pretty); err != nil {
		return &apperr.PersistenceError{Op: "write", Path: path, Err: err}
	}
	return nil
}
