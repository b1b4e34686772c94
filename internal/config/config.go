// Package config loads the global service configuration from environment
// variables, with defaults matching a local development setup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Provider selection for the completion collaborator.
const (
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

// Config holds process-wide defaults. Per-conversation values persisted on
// disk and per-request overrides take precedence over these at resolve time.
type Config struct {
	// Completion provider wiring.
	Provider string // CHATD_PROVIDER: "openrouter" (default) or "anthropic"
	APIKey   string // OPENROUTER_API_KEY
	APIBase  string // OPENROUTER_API_BASE

	// Global defaults for the resolver.
	DefaultModel string  // CHATD_MODEL
	Temperature  float64 // CHATD_TEMPERATURE, clamped downstream to [0, 2]

	// Replay window size in exchanges.
	MemoryWindowSize int // CHATD_WINDOW_SIZE

	// Storage and transport.
	DataDir        string        // CHATD_DATA_DIR
	Addr           string        // CHATD_ADDR
	RequestTimeout time.Duration // CHATD_REQUEST_TIMEOUT_SECONDS

	// Candidate locations for the shared default system prompt.
	SystemPromptPaths []string
}

// Load reads configuration from the environment, applying defaults for
// anything unset. It never fails on absent optional values; the API key is
// checked by the caller because title generation degrades without it rather
// than erroring.
func Load() (*Config, error) {
	cfg := &Config{
		Provider:         envOr("CHATD_PROVIDER", ProviderOpenRouter),
		APIKey:           os.Getenv("OPENROUTER_API_KEY"),
		APIBase:          envOr("OPENROUTER_API_BASE", "https://openrouter.ai/api/v1"),
		DefaultModel:     envOr("CHATD_MODEL", "anthropic/claude-3.5-haiku"),
		Temperature:      0.7,
		MemoryWindowSize: 10,
		DataDir:          envOr("CHATD_DATA_DIR", "data"),
		Addr:             envOr("CHATD_ADDR", ":8000"),
		RequestTimeout:   120 * time.Second,
		SystemPromptPaths: []string{
			"backend/prompts/system_prompt.txt",
			"prompts/system_prompt.txt",
		},
	}

	if v := os.Getenv("CHATD_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid CHATD_TEMPERATURE %q: %w", v, err)
		}
		cfg.Temperature = t
	}
	if v := os.Getenv("CHATD_WINDOW_SIZE"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CHATD_WINDOW_SIZE %q: %w", v, err)
		}
		cfg.MemoryWindowSize = k
	}
	if v := os.Getenv("CHATD_REQUEST_TIMEOUT_SECONDS"); v != "" {
		s, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CHATD_REQUEST_TIMEOUT_SECONDS %q: %w", v, err)
		}
		cfg.RequestTimeout = time.Duration(s) * time.Second
	}

	switch cfg.Provider {
	case ProviderOpenRouter, ProviderAnthropic:
	default:
		return nil, fmt.Errorf("invalid CHATD_PROVIDER %q: want %q or %q", cfg.Provider, ProviderOpenRouter, ProviderAnthropic)
	}

	return cfg, nil
}

// SystemPrompt returns the content of the first readable system prompt file,
// or a minimal fallback directive when none exists.
func (c *Config) SystemPrompt() string {
	for _, p := range c.SystemPromptPaths {
		if b, err := os.ReadFile(p); err == nil {
			return string(b)
		}
	}
	return "You are a helpful assistant."
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
