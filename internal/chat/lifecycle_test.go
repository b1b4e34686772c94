package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tsassistant/chat-backend/internal/apperr"
	"github.com/tsassistant/chat-backend/internal/chat"
	"github.com/tsassistant/chat-backend/memory"
)

func TestCreate_MintsIDWithoutArtifacts(t *testing.T) {
	svc, st := newService(t, &stubProvider{})

	id := svc.Create()
	if err := uuid.Validate(id); err != nil {
		t.Fatalf("Create returned non-uuid %q: %v", id, err)
	}
	if _, err := st.LoadTranscript(id); !errors.As(err, new(*apperr.NotFoundError)) {
		t.Fatalf("fresh id should have no transcript, got err=%v", err)
	}
	summaries, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("fresh id appears in listing: %+v", summaries)
	}
}

func TestDelete_EvictsLiveSession(t *testing.T) {
	prov := &stubProvider{reply: "a"}
	svc, _ := newService(t, prov)

	if _, err := svc.Chat(context.Background(), testID, []memory.Turn{memory.Human("q")}, chat.Overrides{}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if err := svc.Delete(testID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	// A new chat on the same id starts from scratch: the replay history
	// must be empty, not the evicted window.
	prov.reply = "b"
	if _, err := svc.Chat(context.Background(), testID, []memory.Turn{memory.Human("again")}, chat.Overrides{}); err != nil {
		t.Fatalf("Chat after delete: %v", err)
	}
	if len(prov.last.History) != 0 {
		t.Fatalf("history after delete = %+v, want empty", prov.last.History)
	}
}

func TestDelete_UnknownIDIsNotFound(t *testing.T) {
	svc, _ := newService(t, &stubProvider{})
	err := svc.Delete(testID)
	if !errors.As(err, new(*apperr.NotFoundError)) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestMessages_UnknownConversationIsNotFound(t *testing.T) {
	svc, _ := newService(t, &stubProvider{})
	_, err := svc.Messages(testID)
	if !errors.As(err, new(*apperr.NotFoundError)) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
}

func TestMessages_ReturnsFullTranscript(t *testing.T) {
	prov := &stubProvider{reply: "a"}
	svc, _ := newService(t, prov)
	if _, err := svc.Chat(context.Background(), testID, []memory.Turn{memory.Human("q")}, chat.Overrides{}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	turns, err := svc.Messages(testID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(turns) != 2 || turns[0].Content != "q" || turns[1].Content != "a" {
		t.Fatalf("turns = %+v", turns)
	}
}

func TestGetConfig_DefaultsForUnknownConversation(t *testing.T) {
	svc, _ := newService(t, &stubProvider{})
	view, err := svc.GetConfig(testID)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if view.ConversationID != testID {
		t.Fatalf("id = %q", view.ConversationID)
	}
	if view.ModelName != "anthropic/claude-3.5-haiku" || view.Temperature != 0.7 {
		t.Fatalf("view = %+v, want global defaults", view)
	}
}

func TestSaveConfig_ClampsTemperatureAndRoundTrips(t *testing.T) {
	svc, st := newService(t, &stubProvider{})
	if err := svc.SaveConfig(testID, chat.ConfigUpdate{
		SystemDirective: ptr("be terse"),
		Temperature:     ptr(5.0),
	}); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	cfg, err := st.LoadConfig(testID)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 2.0 {
		t.Fatalf("temperature = %v, want clamped 2.0", cfg.Temperature)
	}

	view, err := svc.GetConfig(testID)
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if view.SystemDirective != "be terse" || view.Temperature != 2.0 {
		t.Fatalf("view = %+v", view)
	}
}
