// Package session owns the process-wide map from conversation identifier to
// its live memory window. Exactly one Session exists per (kind, id) at a
// time; hydration from the store happens once, and the session mutex
// serializes chat calls against one conversation while leaving other
// conversations fully parallel.
package session

import (
	"log/slog"
	"sync"

	"github.com/tsassistant/chat-backend/memory"
)

// Loader fetches the persisted transcript used to hydrate a new session.
// Returning ok=false means no usable history exists (missing or corrupt);
// the session starts fresh.
type Loader func(id string) (turns []memory.Turn, ok bool)

// Session is the live in-memory state of one conversation.
type Session struct {
	mu       sync.Mutex
	window   *memory.Window
	hydrated bool
}

// Lock acquires the per-conversation mutex. Callers hold it across the whole
// resolve/complete/commit cycle so concurrent chats on one id serialize.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the per-conversation mutex.
func (s *Session) Unlock() { s.mu.Unlock() }

// Window returns the session's memory window. Callers must hold the session
// lock while reading or mutating it.
func (s *Session) Window() *memory.Window { return s.window }

// Cache maps conversation identifiers to live sessions, lazily populated
// from the store on first access. Constructed once at process start.
type Cache struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	windowSize int
	load       Loader
	log        *slog.Logger
}

func NewCache(windowSize int, load Loader, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		sessions:   make(map[string]*Session),
		windowSize: windowSize,
		load:       load,
		log:        log,
	}
}

// GetOrCreate returns the live session for id, creating and hydrating it on
// first access. Two concurrent first-accesses observe the same instance and
// the transcript is loaded exactly once: the map lock only guards session
// creation, and hydration runs under the session lock so it cannot race a
// duplicate.
func (c *Cache) GetOrCreate(id string) *Session {
	c.mu.Lock()
	s, ok := c.sessions[id]
	if !ok {
		s = &Session{window: memory.NewWindow(c.windowSize)}
		c.sessions[id] = s
	}
	c.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hydrated {
		s.hydrated = true
		if turns, ok := c.load(id); ok {
			s.window.LoadFrom(turns)
			c.log.Debug("hydrated session from store", "id", id, "turns", len(turns))
		}
	}
	return s
}

// Evict drops the live session for id, if any. The next access re-hydrates
// from whatever is on disk.
func (c *Cache) Evict(id string) {
	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()
}

// Len reports the number of live sessions (diagnostics only).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}
