package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/DamonFriedberg/Hydrus-Python-API/internal/adapters/diagnostics"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/adapters/sqlite"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/adapters/twitter"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/application"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/config"
	"github.com/DamonFriedberg/Hydrus-Python-API/internal/state"
)

// App holds all application dependencies
type App struct {
	Config   *config.Config
	Store    *sqlite.Store
	State    *state.State
	Journal  *diagnostics.Journal
	Upstream *twitter.Client

	Fetcher  *application.Fetcher
	CacheSvc *application.CacheService
}

// NewApp creates and wires up all dependencies
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}

	store, err := sqlite.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	st, err := state.New(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	journal, err := diagnostics.NewJournal(cfg.Logging.DiagnosticsPath)
	if err != nil {
		st.Close()
		store.Close()
		return nil, err
	}

	upstream := twitter.NewClient(twitter.Options{
		BaseURL:   cfg.Upstream.BaseURL,
		Timeout:   cfg.RequestTimeout(),
		UserAgent: cfg.Upstream.UserAgent,
		QueryIDs:  cfg.Upstream.QueryIDs,
	})

	itemCache := application.NewItemCache(st.Results, st.Recache)
	fetcher := application.NewFetcher(store, upstream, st.Suppression, itemCache, journal, cfg.RequestTimeout())
	cacheSvc := application.NewCacheService(store, store, st.Results, st.Recache)

	return &App{
		Config:   cfg,
		Store:    store,
		State:    st,
		Journal:  journal,
		Upstream: upstream,
		Fetcher:  fetcher,
		CacheSvc: cacheSvc,
	}, nil
}

// Close tears the application down in reverse construction order
func (a *App) Close() error {
	a.State.Close()
	return errors.Join(a.Journal.Close(), a.Store.Close())
}

var (
	globalConfig *config.Config
	globalApp    *App
)

// GetApp returns the global app instance, creating it if needed
func GetApp(ctx context.Context) (*App, error) {
	if globalApp == nil {
		if globalConfig == nil {
			return nil, fmt.Errorf("configuration not loaded")
		}
		app, err := NewApp(ctx, globalConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize: %w", err)
		}
		globalApp = app
	}
	return globalApp, nil
}

func closeApp() error {
	if globalApp == nil {
		return nil
	}
	err := globalApp.Close()
	globalApp = nil
	return err
}
