// Package chat implements the conversation service: resolving effective
// configuration, running completions against the provider, and managing the
// conversation lifecycle. One Service instance exists per conversation kind
// (standard chat, ascii); each owns its own store root and session cache so
// the kinds never share state.
package chat

import (
	"log/slog"

	"github.com/tsassistant/chat-backend/internal/catalog"
	"github.com/tsassistant/chat-backend/internal/config"
	"github.com/tsassistant/chat-backend/internal/provider"
	"github.com/tsassistant/chat-backend/internal/session"
	"github.com/tsassistant/chat-backend/internal/store"
	"github.com/tsassistant/chat-backend/memory"
)

// Options wires one Service. Everything except Settings and Catalog is
// required; a nil Catalog skips model validation and a nil Settings falls
// back to Config defaults for the central model.
type Options struct {
	Kind     string
	Config   *config.Config
	Store    *store.Store
	Provider provider.Provider
	Catalog  *catalog.Catalog
	Settings SettingsSource
	// DefaultDirective is the system directive used when neither the request
	// nor the persisted config provides one.
	DefaultDirective string
	Log              *slog.Logger
}

// SettingsSource is the slice of the settings store the service reads:
// which model internal calls use and the optional custom title prompt.
type SettingsSource interface {
	CentralModelID() string
	TitleTemplate() (string, bool)
}

// Service is the conversation engine for one kind.
type Service struct {
	kind      string
	cfg       *config.Config
	store     *store.Store
	sessions  *session.Cache
	provider  provider.Provider
	catalog   *catalog.Catalog
	settings  SettingsSource
	directive string
	log       *slog.Logger
}

// NewService builds a Service and its session cache. The cache hydrates
// lazily from the store; corrupt transcripts are logged and treated as
// absent so a damaged file never blocks new chats.
func NewService(o Options) *Service {
	log := o.Log
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		kind:      o.Kind,
		cfg:       o.Config,
		store:     o.Store,
		provider:  o.Provider,
		catalog:   o.Catalog,
		settings:  o.Settings,
		directive: o.DefaultDirective,
		log:       log,
	}
	s.sessions = session.NewCache(o.Config.MemoryWindowSize, s.loadForSession, log)
	return s
}

// Kind reports the conversation kind this service owns.
func (s *Service) Kind() string { return s.kind }

func (s *Service) loadForSession(id string) ([]memory.Turn, bool) {
	turns, err := s.store.LoadTranscript(id)
	if err != nil {
		if !isNotFound(err) {
			s.log.Warn("transcript unreadable, starting fresh", "kind", s.kind, "id", id, "err", err)
		}
		return nil, false
	}
	return turns, true
}

func (s *Service) defaultModel() string {
	if s.settings != nil {
		return s.settings.CentralModelID()
	}
	return s.cfg.DefaultModel
}
