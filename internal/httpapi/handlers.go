package httpapi

import (
	"net/http"

	"github.com/tsassistant/chat-backend/internal/apperr"
	"github.com/tsassistant/chat-backend/internal/catalog"
	"github.com/tsassistant/chat-backend/internal/chat"
	"github.com/tsassistant/chat-backend/internal/settings"
	"github.com/tsassistant/chat-backend/memory"
)

// Wire roles differ from the persisted transcript vocabulary: clients speak
// user/assistant, the store speaks human/ai.
const (
	wireRoleUser      = "user"
	wireRoleAssistant = "assistant"
)

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toTurns(msgs []wireMessage) []memory.Turn {
	out := make([]memory.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := m.Role
		switch m.Role {
		case wireRoleUser:
			role = memory.RoleHuman
		case wireRoleAssistant:
			role = memory.RoleAssistant
		}
		out = append(out, memory.Turn{Role: role, Content: m.Content})
	}
	return out
}

func toWire(turns []memory.Turn) []wireMessage {
	out := make([]wireMessage, 0, len(turns))
	for _, t := range turns {
		role := t.Role
		switch t.Role {
		case memory.RoleHuman:
			role = wireRoleUser
		case memory.RoleAssistant:
			role = wireRoleAssistant
		}
		out = append(out, wireMessage{Role: role, Content: t.Content})
	}
	return out
}

type chatRequest struct {
	ConversationID  string        `json:"conversation_id"`
	Messages        []wireMessage `json:"messages"`
	ModelName       *string       `json:"model_name"`
	SystemDirective *string       `json:"system_directive"`
	Temperature     *float64      `json:"temperature"`
}

func (s *Server) handleChat(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		if req.ConversationID == "" {
			s.writeError(w, r, &apperr.InvalidRequestError{Reason: "conversation_id is required"})
			return
		}
		reply, err := svc.Chat(r.Context(), req.ConversationID, toTurns(req.Messages), chat.Overrides{
			Model:       req.ModelName,
			Directive:   req.SystemDirective,
			Temperature: req.Temperature,
		})
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, wireMessage{Role: wireRoleAssistant, Content: reply})
	}
}

func (s *Server) handleListConversations(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := svc.List()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, summaries)
	}
}

func (s *Server) handleCreateConversation(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"conversation_id": svc.Create()})
	}
}

func (s *Server) handleMessages(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		turns, err := svc.Messages(id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"conversation_id": id,
			"messages":        toWire(turns),
		})
	}
}

func (s *Server) handleGetConfig(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := svc.GetConfig(r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

type saveConfigRequest struct {
	ConversationID string `json:"conversation_id"`
	chat.ConfigUpdate
}

func (s *Server) handleSaveConfig(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveConfigRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		if req.ConversationID == "" {
			s.writeError(w, r, &apperr.InvalidRequestError{Reason: "conversation_id is required"})
			return
		}
		if err := svc.SaveConfig(req.ConversationID, req.ConfigUpdate); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

func (s *Server) handleDeleteConversation(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := svc.Delete(id); err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Conversation " + id + " deleted successfully",
		})
	}
}

func (s *Server) handleGenerateTitle(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GenerateTitle(r.Context(), r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.catalog.Models(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]catalog.Model{"models": models})
}

func (s *Server) handleRefreshModels(w http.ResponseWriter, r *http.Request) {
	s.catalog.Refresh()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Models cache cleared successfully"})
}

func (s *Server) handleFallbackModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.FallbackModels)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Get())
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var upd settings.Update
	if err := decodeJSON(r, &upd); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.settings.Save(upd); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Settings updated successfully",
	})
}
