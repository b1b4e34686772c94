// Command chatd runs the conversation backend: an HTTP API that proxies chat
// to a completion provider, keeps a bounded in-memory window per
// conversation, and persists transcripts and configuration as JSON files.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tsassistant/chat-backend/internal/catalog"
	"github.com/tsassistant/chat-backend/internal/chat"
	"github.com/tsassistant/chat-backend/internal/config"
	"github.com/tsassistant/chat-backend/internal/httpapi"
	"github.com/tsassistant/chat-backend/internal/provider"
	"github.com/tsassistant/chat-backend/internal/settings"
	"github.com/tsassistant/chat-backend/internal/store"
)

const asciiDirective = "You are an ASCII art assistant. Respond with plain " +
	"monospace ASCII art when asked to draw, and keep commentary minimal."

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	var prov provider.Provider
	switch cfg.Provider {
	case config.ProviderAnthropic:
		if os.Getenv("ANTHROPIC_API_KEY") == "" {
			return errors.New("missing ANTHROPIC_API_KEY; export it before running")
		}
		prov = provider.NewAnthropic()
	default:
		if cfg.APIKey == "" {
			return errors.New("missing OPENROUTER_API_KEY; export it before running")
		}
		prov = provider.NewOpenRouter(cfg.APIKey, cfg.APIBase)
	}

	set := settings.NewStore(filepath.Join(cfg.DataDir, "settings"))
	cat := catalog.New(cfg.APIBase, cfg.APIKey, log)

	chatSvc := chat.NewService(chat.Options{
		Kind:             "chat",
		Config:           cfg,
		Store:            store.New(filepath.Join(cfg.DataDir, "conversations"), log),
		Provider:         prov,
		Catalog:          cat,
		Settings:         set,
		DefaultDirective: cfg.SystemPrompt(),
		Log:              log,
	})
	asciiSvc := chat.NewService(chat.Options{
		Kind:             "ascii",
		Config:           cfg,
		Store:            store.New(filepath.Join(cfg.DataDir, "asciis"), log),
		Provider:         prov,
		Catalog:          cat,
		Settings:         set,
		DefaultDirective: asciiDirective,
		Log:              log,
	})

	api := httpapi.NewServer(chatSvc, asciiSvc, cat, set, log)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("chatd listening", "addr", cfg.Addr, "provider", prov.Name(), "data_dir", cfg.DataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
