package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/tsassistant/chat-backend/internal/provider"
	"github.com/tsassistant/chat-backend/internal/store"
	"github.com/tsassistant/chat-backend/internal/telemetry"
	"github.com/tsassistant/chat-backend/memory"
)

const (
	// Turns sampled from the start of the conversation for titling.
	titleSampleTurns = 4
	// Hard cap on the displayed title length, in characters.
	titleMaxLen = 60
	// Titles are a handful of words; cap the spend accordingly.
	titleMaxTokens = 24
	// Low temperature keeps titles literal rather than creative.
	titleTemperature = 0.3

	defaultTitlePrompt = "Generate a short, concise title (3-7 words) summarizing this conversation. " +
		"Respond with the title only, no quotes and no prefix.\n\n{conversation}"
)

// TitleResult is the outcome of a title generation request. Detail is only
// set when the title fell back instead of being model-generated.
type TitleResult struct {
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// GenerateTitle produces and persists a display title for the conversation,
// derived from its opening turns via the central model. Failures degrade to
// a deterministic fallback title rather than erroring: a missing transcript
// skips the model call entirely, and a provider failure persists the
// fallback so the conversation still gets a stable name.
func (s *Service) GenerateTitle(ctx context.Context, id string) (TitleResult, error) {
	fallback := fallbackTitle(id)

	turns, err := s.store.LoadTranscript(id)
	if err != nil || len(turns) == 0 {
		return TitleResult{Title: fallback, Detail: "History not found for title generation."}, nil
	}

	prompt := s.titlePrompt(turns)

	cctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	title := fallback
	detail := ""
	raw, err := s.provider.Complete(cctx, provider.Request{
		Model:       s.defaultModel(),
		Temperature: titleTemperature,
		Input:       prompt,
		MaxTokens:   titleMaxTokens,
	})
	if err != nil {
		s.log.Warn("title generation failed, using fallback", "kind", s.kind, "id", id, "err", err)
		detail = "Title generation failed; a fallback title was applied."
	} else if cleaned := cleanTitle(raw); cleaned != "" {
		title = cleaned
	}

	now := unixNow()
	if err := s.store.SaveConfig(id, store.Patch{Title: &title, LastTitleUpdate: &now}); err != nil {
		return TitleResult{}, err
	}
	s.log.Info("conversation title updated", "kind", s.kind, "id", id, "title", title)
	if telemetry.ObserveEnabled() {
		fields := map[string]any{
			"kind":            s.kind,
			"conversation_id": id,
			"title_runes":     len([]rune(title)),
			"fallback":        detail != "",
		}
		if rid, ok := telemetry.RequestIDFromContext(ctx); ok {
			fields["request_id"] = rid
		}
		telemetry.Emit("chat.title_generated", fields)
	}
	return TitleResult{Title: title, Detail: detail}, nil
}

// titlePrompt renders the title instruction with the conversation's opening
// turns. A custom template from the settings file replaces the built-in one;
// the {conversation} placeholder marks where the transcript excerpt goes.
func (s *Service) titlePrompt(turns []memory.Turn) string {
	sample := turns
	if len(sample) > titleSampleTurns {
		sample = sample[:titleSampleTurns]
	}
	var b strings.Builder
	for _, t := range sample {
		speaker := "User"
		if t.Role == memory.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, t.Content)
	}
	excerpt := b.String()

	tmpl := defaultTitlePrompt
	if s.settings != nil {
		if custom, ok := s.settings.TitleTemplate(); ok {
			tmpl = custom
		}
	}
	if strings.Contains(tmpl, "{conversation}") {
		return strings.ReplaceAll(tmpl, "{conversation}", excerpt)
	}
	return tmpl + "\n\n" + excerpt
}

// cleanTitle normalizes raw model output into a display title: strips
// whitespace, a "Title:" prefix, wrapping quotes, and truncates long output.
func cleanTitle(raw string) string {
	t := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(strings.ToLower(t), "title:"); ok {
		// CutPrefix on the lowered copy only tells us the prefix is there;
		// slice the original to preserve the title's own casing.
		t = strings.TrimSpace(t[len(t)-len(rest):])
	}
	t = strings.Trim(t, `"'`)
	t = strings.TrimSpace(t)
	// Truncate on runes, not bytes: a multibyte title must never be cut
	// mid-character on its way into config.json.
	if r := []rune(t); len(r) > titleMaxLen {
		t = string(r[:titleMaxLen-3]) + "..."
	}
	return t
}

// fallbackTitle is the deterministic name used when generation cannot run.
func fallbackTitle(id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return "Chat " + short
}
