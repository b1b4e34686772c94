package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tsassistant/chat-backend/internal/apperr"
	"github.com/tsassistant/chat-backend/internal/metrics"
	"github.com/tsassistant/chat-backend/internal/provider"
	"github.com/tsassistant/chat-backend/internal/store"
	"github.com/tsassistant/chat-backend/internal/telemetry"
	"github.com/tsassistant/chat-backend/memory"
)

// Chat runs one completion turn against the conversation id. The request
// transcript must end with a human turn; that turn is the new input, and the
// replay history comes from the server-side window, not the request body.
//
// The session lock is held across resolve, completion, and commit, so two
// concurrent chats on the same conversation serialize; chats on different
// conversations proceed in parallel. On provider failure nothing is
// committed: the window and the transcript file are untouched.
func (s *Service) Chat(ctx context.Context, id string, msgs []memory.Turn, ov Overrides) (string, error) {
	input, err := lastHumanInput(msgs)
	if err != nil {
		return "", err
	}

	sess := s.sessions.GetOrCreate(id)
	sess.Lock()
	defer sess.Unlock()

	eff, err := s.Resolve(id, ov)
	if err != nil {
		return "", err
	}

	history := provider.HistoryFromTurns(sess.Window().Snapshot())

	cctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	reply, err := s.provider.Complete(cctx, provider.Request{
		Model:       eff.Model,
		Temperature: eff.Temperature,
		System:      eff.Directive,
		History:     history,
		Input:       input,
	})
	if err != nil {
		var ce *apperr.CompletionError
		if errors.As(err, &ce) {
			s.log.Error("completion failed", "kind", s.kind, "id", id, "model", eff.Model, "status", ce.Status, "err", err)
		} else {
			s.log.Error("completion failed", "kind", s.kind, "id", id, "model", eff.Model, "err", err)
		}
		s.emitErrorEvent(ctx, id, eff, err, time.Since(start))
		return "", err
	}
	reply = stripWrappingQuotes(reply)

	// Persist first, append second: a failed write must leave the live
	// window at its last-known-good state, or the next successful chat
	// would commit a reply the client never received.
	human, assistant := memory.Human(input), memory.Assistant(reply)
	if _, err := s.store.SaveTranscript(id, append(sess.Window().Turns(), human, assistant)); err != nil {
		return "", err
	}
	sess.Window().Append(human, assistant)

	now := unixNow()
	if err := s.store.SaveConfig(id, store.Patch{
		ModelName:       &eff.Model,
		Temperature:     &eff.Temperature,
		LastMessageTime: &now,
	}); err != nil {
		// Transcript is committed; a failed timestamp merge only degrades
		// the listing order.
		s.log.Warn("config save failed after chat", "kind", s.kind, "id", id, "err", err)
	}

	s.emitChatEvent(ctx, id, eff, input, reply, time.Since(start))
	return reply, nil
}

func (s *Service) emitChatEvent(ctx context.Context, id string, eff Effective, input, reply string, elapsed time.Duration) {
	if !telemetry.ObserveEnabled() {
		return
	}
	in := metrics.CountFeatures(input)
	out := metrics.CountFeatures(reply)
	fields := map[string]any{
		"kind":              s.kind,
		"conversation_id":   id,
		"model":             eff.Model,
		"temperature":       eff.Temperature,
		"elapsed_ms":        elapsed.Milliseconds(),
		"input_runes":       in.Runes,
		"input_words":       in.Words,
		"input_tokens_est":  in.ApproxTokens,
		"output_runes":      out.Runes,
		"output_words":      out.Words,
		"output_lines":      out.Lines,
		"output_tokens_est": out.ApproxTokens,
	}
	if rid, ok := telemetry.RequestIDFromContext(ctx); ok {
		fields["request_id"] = rid
	}
	telemetry.Emit("chat.completion", fields)
}

func (s *Service) emitErrorEvent(ctx context.Context, id string, eff Effective, err error, elapsed time.Duration) {
	if !telemetry.ObserveEnabled() {
		return
	}
	fields := map[string]any{
		"kind":            s.kind,
		"conversation_id": id,
		"model":           eff.Model,
		"elapsed_ms":      elapsed.Milliseconds(),
		"error":           err.Error(),
	}
	var ce *apperr.CompletionError
	if errors.As(err, &ce) && ce.Status != 0 {
		fields["status"] = ce.Status
	}
	if rid, ok := telemetry.RequestIDFromContext(ctx); ok {
		fields["request_id"] = rid
	}
	telemetry.Emit("chat.completion_error", fields)
}

// lastHumanInput extracts the new user message from a request transcript.
func lastHumanInput(msgs []memory.Turn) (string, error) {
	if len(msgs) == 0 {
		return "", &apperr.InvalidRequestError{Reason: "no user message provided"}
	}
	last := msgs[len(msgs)-1]
	if last.Role != memory.RoleHuman {
		return "", &apperr.InvalidRequestError{Reason: "no user message provided"}
	}
	return last.Content, nil
}

// stripWrappingQuotes removes one pair of surrounding double quotes, which
// some models add around short answers.
func stripWrappingQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

func unixNow() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
