// Package app wires configuration into the feed, store and engine shared
// by the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/internal/api/wingo"
	"github.com/Alias1177/SignalBot/internal/config"
	"github.com/Alias1177/SignalBot/internal/engine"
	"github.com/Alias1177/SignalBot/internal/storage"
)

// App holds the long-lived components
type App struct {
	Config *config.Config
	Feed   *wingo.Client
	Store  storage.Store
	Engine *engine.Engine
}

// New opens the configured store and builds the engine on top of it
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s state store: %w", cfg.StateBackend, err)
	}
	feed := wingo.NewClient(cfg.FeedOptions())

	log.Info().
		Str("backend", cfg.StateBackend).
		Str("feed", cfg.FeedBaseURL).
		Msg("Signal engine ready")

	return &App{
		Config: cfg,
		Feed:   feed,
		Store:  store,
		Engine: engine.New(feed, store),
	}, nil
}

// Close releases the store
func (a *App) Close() error {
	return a.Store.Close()
}
