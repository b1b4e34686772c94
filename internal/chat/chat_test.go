package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tsassistant/chat-backend/internal/apperr"
	"github.com/tsassistant/chat-backend/internal/chat"
	"github.com/tsassistant/chat-backend/internal/config"
	"github.com/tsassistant/chat-backend/internal/provider"
	"github.com/tsassistant/chat-backend/internal/store"
	"github.com/tsassistant/chat-backend/internal/telemetry"
	"github.com/tsassistant/chat-backend/memory"
)

const testID = "33333333-3333-3333-3333-333333333333"

// stubProvider records the last request and plays back a canned reply or
// error.
type stubProvider struct {
	reply string
	err   error
	last  provider.Request
	calls int
}

func (p *stubProvider) Complete(_ context.Context, req provider.Request) (string, error) {
	p.last = req
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func (p *stubProvider) Name() string { return "stub" }

type stubSettings struct {
	model    string
	template string
}

func (s *stubSettings) CentralModelID() string { return s.model }

func (s *stubSettings) TitleTemplate() (string, bool) {
	return s.template, s.template != ""
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultModel:     "anthropic/claude-3.5-haiku",
		Temperature:      0.7,
		MemoryWindowSize: 10,
		RequestTimeout:   time.Minute,
	}
}

func newService(t *testing.T, prov provider.Provider) (*chat.Service, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir(), quietLog())
	svc := chat.NewService(chat.Options{
		Kind:             "chat",
		Config:           testConfig(),
		Store:            st,
		Provider:         prov,
		Settings:         &stubSettings{model: "anthropic/claude-3.5-haiku"},
		DefaultDirective: "You are a helpful assistant.",
		Log:              quietLog(),
	})
	return svc, st
}

func TestChat_CommitsPairAndTimestamp(t *testing.T) {
	prov := &stubProvider{reply: "  Hi there!  "}
	svc, st := newService(t, prov)

	reply, err := svc.Chat(context.Background(), testID, []memory.Turn{memory.Human("hello")}, chat.Overrides{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "Hi there!" {
		t.Fatalf("reply = %q, want trimmed %q", reply, "Hi there!")
	}
	if prov.last.Input != "hello" {
		t.Fatalf("provider input = %q, want %q", prov.last.Input, "hello")
	}
	if prov.last.System != "You are a helpful assistant." {
		t.Fatalf("provider system = %q", prov.last.System)
	}

	turns, err := st.LoadTranscript(testID)
	if err != nil {
		t.Fatalf("LoadTranscript: %v", err)
	}
	if len(turns) != 2 || turns[0].Role != memory.RoleHuman || turns[1].Role != memory.RoleAssistant {
		t.Fatalf("persisted turns = %+v", turns)
	}
	if turns[1].Content != "Hi there!" {
		t.Fatalf("persisted reply = %q", turns[1].Content)
	}

	cfg, err := st.LoadConfig(testID)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LastMessageTime == nil || *cfg.LastMessageTime == 0 {
		t.Fatalf("last_message_time not stamped: %+v", cfg)
	}
	if cfg.ModelName != "anthropic/claude-3.5-haiku" {
		t.Fatalf("model_name = %q", cfg.ModelName)
	}
}

func TestChat_HistoryReplayedOnSecondTurn(t *testing.T) {
	prov := &stubProvider{reply: "first"}
	svc, _ := newService(t, prov)

	if _, err := svc.Chat(context.Background(), testID, []memory.Turn{memory.Human("one")}, chat.Overrides{}); err != nil {
		t.Fatalf("first Chat: %v", err)
	}
	prov.reply = "second"
	if _, err := svc.Chat(context.Background(), testID, []memory.Turn{memory.Human("two")}, chat.Overrides{}); err != nil {
		t.Fatalf("second Chat: %v", err)
	}

	if len(prov.last.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(prov.last.History))
	}
	if prov.last.History[0].Content != "one" || prov.last.History[1].Content != "first" {
		t.Fatalf("history = %+v", prov.last.History)
	}
	if prov.last.Input != "two" {
		t.Fatalf("input = %q", prov.last.Input)
	}
}

func TestChat_ProviderFailureCommitsNothing(t *testing.T) {
	provErr := &apperr.CompletionError{Status: 429, Message: "rate limited"}
	prov := &stubProvider{err: provErr}
	svc, st := newService(t, prov)

	_, err := svc.Chat(context.Background(), testID, []memory.Turn{memory.Human("hello")}, chat.Overrides{})
	var ce *apperr.CompletionError
	if !errors.As(err, &ce) || ce.Status != 429 {
		t.Fatalf("err = %v, want CompletionError 429", err)
	}

	if _, err := st.LoadTranscript(testID); !errors.As(err, new(*apperr.NotFoundError)) {
		t.Fatalf("transcript should not exist after failure, got err=%v", err)
	}

	// Recovery: a later success writes exactly one exchange, no orphan.
	prov.err = nil
	prov.reply = "ok"
	if _, err := svc.Chat(context.Background(), testID, []memory.Turn{memory.Human("retry")}, chat.Overrides{}); err != nil {
		t.Fatalf("retry Chat: %v", err)
	}
	turns, err := st.LoadTranscript(testID)
	if err != nil {
		t.Fatalf("LoadTranscript: %v", err)
	}
	if len(turns) != 2 || turns[0].Content != "retry" {
		t.Fatalf("turns after recovery = %+v", turns)
	}
}

func TestChat_SaveFailureKeepsWindowClean(t *testing.T) {
	prov := &stubProvider{reply: "lost reply"}
	dir := t.TempDir()
	st := store.New(dir, quietLog())
	svc := chat.NewService(chat.Options{
		Kind:             "chat",
		Config:           testConfig(),
		Store:            st,
		Provider:         prov,
		Settings:         &stubSettings{model: "anthropic/claude-3.5-haiku"},
		DefaultDirective: "You are a helpful assistant.",
		Log:              quietLog(),
	})

	// Occupy the history directory path with a regular file so the
	// transcript write cannot land.
	blocker := filepath.Join(dir, "history")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed blocker: %v", err)
	}

	_, err := svc.Chat(context.Background(), testID, []memory.Turn{memory.Human("q1")}, chat.Overrides{})
	if !errors.As(err, new(*apperr.PersistenceError)) {
		t.Fatalf("err = %v, want PersistenceError", err)
	}

	// Unblock and retry. The failed exchange must not have stuck in the
	// live window: the retry replays empty history and the transcript ends
	// up with exactly the successful exchange.
	if err := os.Remove(blocker); err != nil {
		t.Fatalf("remove blocker: %v", err)
	}
	prov.reply = "second reply"
	if _, err := svc.Chat(context.Background(), testID, []memory.Turn{memory.Human("q2")}, chat.Overrides{}); err != nil {
		t.Fatalf("retry Chat: %v", err)
	}
	if len(prov.last.History) != 0 {
		t.Fatalf("history replayed after failed commit = %+v, want empty", prov.last.History)
	}

	turns, err := st.LoadTranscript(testID)
	if err != nil {
		t.Fatalf("LoadTranscript: %v", err)
	}
	if len(turns) != 2 || turns[0].Content != "q2" || turns[1].Content != "second reply" {
		t.Fatalf("turns = %+v", turns)
	}
	for _, turn := range turns {
		if turn.Content == "lost reply" || turn.Content == "q1" {
			t.Fatalf("failed chat leaked into transcript: %+v", turns)
		}
	}
}

func TestChat_EmitsTelemetryEvents(t *testing.T) {
	t.Setenv("CHATD_OBSERVE_JSON", "1")
	t.Chdir(t.TempDir())

	prov := &stubProvider{reply: "ok"}
	svc, _ := newService(t, prov)
	ctx := telemetry.WithRequestID(context.Background(), "req-42")

	if _, err := svc.Chat(ctx, testID, []memory.Turn{memory.Human("hi")}, chat.Overrides{}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	prov.err = &apperr.CompletionError{Status: 502, Message: "down"}
	if _, err := svc.Chat(ctx, testID, []memory.Turn{memory.Human("again")}, chat.Overrides{}); err == nil {
		t.Fatalf("want completion error")
	}
	if _, err := svc.GenerateTitle(ctx, testID); err != nil {
		t.Fatalf("GenerateTitle: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(".chatd", "events.jsonl"))
	if err != nil {
		t.Fatalf("read events: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d events, want 3: %s", len(lines), b)
	}

	events := make([]map[string]any, len(lines))
	for i, ln := range lines {
		if err := json.Unmarshal([]byte(ln), &events[i]); err != nil {
			t.Fatalf("event %d unparseable: %v", i, err)
		}
	}
	if events[0]["event"] != "chat.completion" || events[0]["request_id"] != "req-42" {
		t.Fatalf("completion event = %v", events[0])
	}
	if events[1]["event"] != "chat.completion_error" || events[1]["status"] != float64(502) {
		t.Fatalf("error event = %v", events[1])
	}
	if events[2]["event"] != "chat.title_generated" || events[2]["fallback"] != true {
		t.Fatalf("title event = %v", events[2])
	}
}

func TestChat_RejectsMissingUserMessage(t *testing.T) {
	prov := &stubProvider{reply: "unused"}
	svc, _ := newService(t, prov)

	cases := [][]memory.Turn{
		nil,
		{memory.Assistant("trailing assistant")},
		{memory.Human("q"), memory.Assistant("a")},
	}
	for _, msgs := range cases {
		_, err := svc.Chat(context.Background(), testID, msgs, chat.Overrides{})
		var ire *apperr.InvalidRequestError
		if !errors.As(err, &ire) {
			t.Fatalf("msgs=%+v: err = %v, want InvalidRequestError", msgs, err)
		}
	}
	if prov.calls != 0 {
		t.Fatalf("provider called %d times for invalid requests", prov.calls)
	}
}

func TestChat_StripsWrappingQuotes(t *testing.T) {
	prov := &stubProvider{reply: `"quoted reply"`}
	svc, _ := newService(t, prov)

	reply, err := svc.Chat(context.Background(), testID, []memory.Turn{memory.Human("hi")}, chat.Overrides{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "quoted reply" {
		t.Fatalf("reply = %q", reply)
	}
}
