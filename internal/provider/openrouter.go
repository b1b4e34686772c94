package provider

import (
	"context"
	"errors"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tsassistant/chat-backend/internal/apperr"
	"github.com/tsassistant/chat-backend/memory"
)

// OpenRouter completes chats through any OpenAI-compatible endpoint.
// OpenRouter is the default target, matching the service's model catalog.
type OpenRouter struct {
	client *openai.Client
}

// NewOpenRouter returns a provider for the given API key and base URL.
// An empty base URL means the upstream OpenAI default.
func NewOpenRouter(apiKey, baseURL string) *OpenRouter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenRouter{client: openai.NewClientWithConfig(cfg)}
}

func (p *OpenRouter) Name() string { return "openrouter" }

func (p *OpenRouter) Complete(ctx context.Context, req Request) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.History {
		role := openai.ChatMessageRoleUser
		if m.Role == memory.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Input,
	})

	// go-openai marshals Temperature with omitempty, so an exact 0.0 would
	// vanish from the body and the upstream default (1.0) would apply.
	// Substitute the smallest nonzero float so 0.0 survives the wire.
	temp := float32(req.Temperature)
	if temp == 0 {
		temp = math.SmallestNonzeroFloat32
	}
	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: temp,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", completionErr(err)
	}
	if len(resp.Choices) == 0 {
		return "", &apperr.CompletionError{Message: "empty response from completion API"}
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", &apperr.CompletionError{Message: "completion API returned no text"}
	}
	return text, nil
}

// completionErr maps go-openai failures onto the service taxonomy, keeping
// the upstream status code when one exists.
func completionErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &apperr.CompletionError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &apperr.CompletionError{Status: reqErr.HTTPStatusCode, Message: reqErr.Error(), Err: err}
	}
	return &apperr.CompletionError{Message: err.Error(), Err: err}
}
