// Package provider abstracts the external completion API. The service talks
// to exactly one Provider chosen at startup; everything past this interface
// is network territory and the sole blocking point of a chat request.
package provider

import (
	"context"

	"github.com/tsassistant/chat-backend/memory"
)

// Message is one prior turn replayed to the model. Roles use the transcript
// vocabulary (memory.RoleHuman / memory.RoleAssistant).
type Message struct {
	Role    string
	Content string
}

// Request carries everything a completion call needs. History is the bounded
// window snapshot; Input is the new human message.
type Request struct {
	Model       string
	Temperature float64
	System      string
	History     []Message
	Input       string
	MaxTokens   int // 0 means the provider default
}

// Provider is the external completion collaborator. Complete returns the
// assistant text or an *apperr.CompletionError on non-2xx, network, timeout,
// or empty-response failures.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
}

// HistoryFromTurns converts a transcript snapshot to provider messages.
func HistoryFromTurns(turns []memory.Turn) []Message {
	out := make([]Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, Message{Role: t.Role, Content: t.Content})
	}
	return out
}
