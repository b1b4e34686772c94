// Package catalog knows which models the service will accept and what they
// cost. Validity is the union of a static fallback allow-list and the
// TTL-cached model listing fetched from the API; a fetch failure serves the
// last-known-good data rather than erroring.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// FallbackModels is the static allow-list used when the live catalog has not
// been fetched (or the API is down).
var FallbackModels = []string{
	"anthropic/claude-opus-4",
	"anthropic/claude-sonnet-4",
	"anthropic/claude-3.5-haiku",
	"openai/gpt-4.1",
	"openai/gpt-4.1-mini",
	"openai/gpt-4.1-nano",
	"x-ai/grok-3-mini-beta",
	"x-ai/grok-3-beta",
	"google/gemini-2.5-pro-preview",
	"google/gemini-2.5-flash-preview-05-20",
	"google/gemma-3-12b-it:free",
}

// Pricing carries raw per-token prices plus the per-million-token figures
// the UI sorts by.
type Pricing struct {
	Prompt               string  `json:"prompt"`
	Completion           string  `json:"completion"`
	PromptPerMillion     float64 `json:"prompt_per_million"`
	CompletionPerMillion float64 `json:"completion_per_million"`
}

// Model is one catalog entry, sorted cheapest-first in listings.
type Model struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	ContextLength int64   `json:"context_length"`
	Pricing       Pricing `json:"pricing"`
}

// Catalog caches the remote model listing with a TTL.
type Catalog struct {
	apiBase string
	apiKey  string
	client  *http.Client
	ttl     time.Duration
	log     *slog.Logger

	mu        sync.Mutex
	models    []Model
	fetchedAt time.Time
}

// New returns a catalog backed by {apiBase}/models with a 1-hour TTL.
func New(apiBase, apiKey string, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{
		apiBase: apiBase,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		ttl:     time.Hour,
		log:     log,
	}
}

// Models returns the cached listing, fetching when stale. On fetch failure
// it returns the last-known-good data if any exists.
func (c *Catalog) Models(ctx context.Context) ([]Model, error) {
	c.mu.Lock()
	if c.models != nil && time.Since(c.fetchedAt) < c.ttl {
		cached := c.models
		c.mu.Unlock()
		return cached, nil
	}
	stale := c.models
	c.mu.Unlock()

	fetched, err := c.fetch(ctx)
	if err != nil {
		if stale != nil {
			c.log.Warn("model catalog fetch failed, serving stale data", "err", err)
			return stale, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.models = fetched
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	return fetched, nil
}

// SetTTL overrides the cache lifetime (tests use 0 to force re-fetch).
func (c *Catalog) SetTTL(d time.Duration) {
	c.mu.Lock()
	c.ttl = d
	c.mu.Unlock()
}

// Refresh drops the cached listing so the next Models call hits the API.
func (c *Catalog) Refresh() {
	c.mu.Lock()
	c.models = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

// Valid reports whether model is in the fallback allow-list or the cached
// catalog. It never triggers a fetch; validation stays cheap and offline.
func (c *Catalog) Valid(model string) bool {
	for _, m := range FallbackModels {
		if m == model {
			return true
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.models {
		if m.ID == model {
			return true
		}
	}
	return false
}

// Allowed returns a sorted snapshot of every currently valid model id, used
// in validation error messages.
func (c *Catalog) Allowed() []string {
	seen := make(map[string]struct{}, len(FallbackModels))
	for _, m := range FallbackModels {
		seen[m] = struct{}{}
	}
	c.mu.Lock()
	for _, m := range c.models {
		seen[m.ID] = struct{}{}
	}
	c.mu.Unlock()

	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) fetch(ctx context.Context) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/models", nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch models: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("fetch models: invalid JSON body")
	}

	var models []Model
	for _, item := range gjson.GetBytes(body, "data").Array() {
		m := Model{
			ID:            item.Get("id").String(),
			Name:          item.Get("name").String(),
			Description:   item.Get("description").String(),
			ContextLength: item.Get("context_length").Int(),
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		m.Pricing = Pricing{
			Prompt:               item.Get("pricing.prompt").String(),
			Completion:           item.Get("pricing.completion").String(),
			PromptPerMillion:     perMillion(item.Get("pricing.prompt").String()),
			CompletionPerMillion: perMillion(item.Get("pricing.completion").String()),
		}
		models = append(models, m)
	}

	sort.SliceStable(models, func(i, j int) bool {
		ci := models[i].Pricing.PromptPerMillion + models[i].Pricing.CompletionPerMillion
		cj := models[j].Pricing.PromptPerMillion + models[j].Pricing.CompletionPerMillion
		if ci != cj {
			return ci < cj
		}
		return models[i].Name < models[j].Name
	})
	return models, nil
}

// perMillion converts a per-token price string (e.g. "0.000001") to a
// per-million-token cost rounded to cents.
func perMillion(price string) float64 {
	v, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return 0
	}
	return math.Round(v*1_000_000*100) / 100
}
