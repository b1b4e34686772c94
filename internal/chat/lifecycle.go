package chat

import (
	"errors"

	"github.com/google/uuid"

	"github.com/tsassistant/chat-backend/internal/apperr"
	"github.com/tsassistant/chat-backend/internal/store"
	"github.com/tsassistant/chat-backend/memory"
)

// Create mints a new conversation identifier. Nothing is written to disk;
// artifacts appear on the first chat or config save, so abandoned ids leave
// no residue.
func (s *Service) Create() string {
	id := uuid.NewString()
	s.log.Info("conversation created", "kind", s.kind, "id", id)
	return id
}

// Delete removes the conversation's live session and persisted artifacts.
// It returns apperr.NotFoundError only when no artifacts existed at all.
func (s *Service) Delete(id string) error {
	s.sessions.Evict(id)
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.log.Info("conversation deleted", "kind", s.kind, "id", id)
	return nil
}

// List returns summaries of all persisted conversations, most recently
// active first.
func (s *Service) List() ([]store.Summary, error) {
	return s.store.List()
}

// Messages returns the full persisted transcript, oldest first. A
// conversation with no transcript is apperr.NotFoundError; corrupt history
// is logged and reported as not found so the client sees a consistent 404
// rather than a broken payload.
func (s *Service) Messages(id string) ([]memory.Turn, error) {
	turns, err := s.store.LoadTranscript(id)
	if err != nil {
		var corrupt *apperr.CorruptDataError
		if errors.As(err, &corrupt) {
			s.log.Warn("transcript unreadable", "kind", s.kind, "id", id, "err", err)
			return nil, &apperr.NotFoundError{Resource: "conversation", ID: id}
		}
		return nil, err
	}
	return turns, nil
}

// ConfigView is the resolved per-conversation configuration returned by the
// fetch endpoint: persisted values where present, global defaults otherwise.
type ConfigView struct {
	ConversationID  string   `json:"conversation_id"`
	ModelName       string   `json:"model_name"`
	SystemDirective string   `json:"system_directive"`
	Temperature     float64  `json:"temperature"`
	Title           string   `json:"title,omitempty"`
	LastMessageTime *float64 `json:"last_message_time,omitempty"`
}

// GetConfig returns the resolved configuration for id. Unknown ids resolve
// to defaults rather than erroring, matching the create-on-first-chat
// lifecycle where a fresh id has no artifacts yet.
func (s *Service) GetConfig(id string) (ConfigView, error) {
	eff, err := s.Resolve(id, Overrides{})
	if err != nil {
		return ConfigView{}, err
	}
	view := ConfigView{
		ConversationID:  id,
		ModelName:       eff.Model,
		SystemDirective: eff.Directive,
		Temperature:     eff.Temperature,
	}
	if persisted := s.persistedConfig(id); persisted != nil {
		view.Title = persisted.Title
		view.LastMessageTime = persisted.LastMessageTime
	}
	return view, nil
}

// ConfigUpdate is the partial per-conversation config write accepted by the
// save endpoint. Nil fields leave the persisted values untouched.
type ConfigUpdate struct {
	ModelName       *string  `json:"model_name"`
	SystemDirective *string  `json:"system_directive"`
	Temperature     *float64 `json:"temperature"`
}

// SaveConfig validates and persists a partial config update for id. The
// model must be known to the catalog and the temperature is clamped to its
// valid range before the merge write.
func (s *Service) SaveConfig(id string, upd ConfigUpdate) error {
	if upd.ModelName != nil && s.catalog != nil && !s.catalog.Valid(*upd.ModelName) {
		return &apperr.ValidationError{
			Field:   "model_name",
			Value:   *upd.ModelName,
			Allowed: s.catalog.Allowed(),
		}
	}
	patch := store.Patch{
		ModelName:       upd.ModelName,
		SystemDirective: upd.SystemDirective,
	}
	if upd.Temperature != nil {
		t := clampTemperature(*upd.Temperature)
		patch.Temperature = &t
	}
	if err := s.store.SaveConfig(id, patch); err != nil {
		return err
	}
	s.log.Info("conversation config saved", "kind", s.kind, "id", id)
	return nil
}
