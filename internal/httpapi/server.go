// Package httpapi exposes the conversation service over HTTP. It is a thin
// layer: JSON decode, delegate to the chat services, map the error taxonomy
// to status codes. All domain behavior lives below it.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/tsassistant/chat-backend/internal/catalog"
	"github.com/tsassistant/chat-backend/internal/chat"
	"github.com/tsassistant/chat-backend/internal/settings"
)

// Server holds the handler dependencies: one chat service per conversation
// kind plus the shared model catalog and settings store.
type Server struct {
	chat     *chat.Service
	ascii    *chat.Service
	catalog  *catalog.Catalog
	settings *settings.Store
	log      *slog.Logger
}

func NewServer(chatSvc, asciiSvc *chat.Service, cat *catalog.Catalog, set *settings.Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{chat: chatSvc, ascii: asciiSvc, catalog: cat, settings: set, log: log}
}

// Handler builds the route table. Method-qualified patterns make the mux
// return 405 for wrong-method hits on known paths.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)

	mux.HandleFunc("POST /api/chat", s.handleChat(s.chat))
	mux.HandleFunc("GET /api/conversations", s.handleListConversations(s.chat))
	mux.HandleFunc("POST /api/conversations/new", s.handleCreateConversation(s.chat))
	mux.HandleFunc("GET /api/conversations/{id}/messages", s.handleMessages(s.chat))
	mux.HandleFunc("GET /api/conversations/{id}/config", s.handleGetConfig(s.chat))
	mux.HandleFunc("POST /api/conversations/config", s.handleSaveConfig(s.chat))
	mux.HandleFunc("DELETE /api/conversations/{id}", s.handleDeleteConversation(s.chat))
	mux.HandleFunc("POST /api/conversations/{id}/generate-title", s.handleGenerateTitle(s.chat))

	mux.HandleFunc("POST /api/ascii-chat", s.handleChat(s.ascii))
	mux.HandleFunc("GET /api/ascii-conversations", s.handleListConversations(s.ascii))
	mux.HandleFunc("POST /api/ascii-conversations/new", s.handleCreateConversation(s.ascii))
	mux.HandleFunc("GET /api/ascii-conversations/{id}/messages", s.handleMessages(s.ascii))
	mux.HandleFunc("DELETE /api/ascii-conversations/{id}", s.handleDeleteConversation(s.ascii))
	mux.HandleFunc("POST /api/ascii-conversations/{id}/generate-title", s.handleGenerateTitle(s.ascii))

	mux.HandleFunc("GET /api/models", s.handleListModels)
	mux.HandleFunc("POST /api/models/refresh", s.handleRefreshModels)
	mux.HandleFunc("GET /api/models/fallback", s.handleFallbackModels)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("POST /api/settings", s.handleSaveSettings)

	return withRequestID(withCORS(mux))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "TSAssistant Chatbot API is running."})
}
