// Package app wires the configured stores, plugins, dispatcher and host
// together for the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/andrei-cloud/go_cmdhost/internal/authz"
	"github.com/andrei-cloud/go_cmdhost/internal/builtin/admin"
	_ "github.com/andrei-cloud/go_cmdhost/internal/builtin/minecraft"
	"github.com/andrei-cloud/go_cmdhost/internal/config"
	"github.com/andrei-cloud/go_cmdhost/internal/dispatch"
	"github.com/andrei-cloud/go_cmdhost/internal/host"
	"github.com/andrei-cloud/go_cmdhost/internal/plugins"
	"github.com/andrei-cloud/go_cmdhost/internal/settings"
)

// App is a loaded host.
type App struct {
	Config  *config.Config
	Router  *host.Router
	Auth    *authz.Store
	Plugins *plugins.PluginManager
	Host    *host.Host
	Results []plugins.LoadResult
}

// Open loads every plugin and returns a host ready to execute commands.
// Console replies, including load banners, are written to console.
func Open(ctx context.Context, cfg *config.Config, console io.Writer) (*App, error) {
	// Make sure plugin directory exists.
	if err := os.MkdirAll(cfg.Plugins.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plugin directory: %w", err)
	}

	store, err := OpenAuth(cfg)
	if err != nil {
		return nil, err
	}

	router := host.NewRouter(console)
	pm := plugins.NewPluginManager(
		plugins.WithSettingsStore(settings.NewStore(cfg.DataDir())),
		plugins.WithReplies(router),
		plugins.WithBuiltin(admin.ID, admin.New(store)),
	)

	results := pm.LoadAll(ctx, cfg.Plugins.Dir)

	log.Debug().Msg("Loaded plugins metadata:")
	for _, info := range pm.ListPlugins() {
		log.Debug().
			Str("plugin", info.ID).
			Str("source", info.Source).
			Str("version", info.Version).
			Str("description", info.Description).
			Str("author", info.Author).
			Strs("categories", info.Categories).
			Msg("plugin details")
	}

	d := dispatch.New(pm, router,
		dispatch.WithAuthorizer(authz.Chain{authz.NewStatic(cfg.Auth.Groups), store}),
		dispatch.WithTimeout(cfg.Dispatch.Timeout),
	)

	return &App{
		Config:  cfg,
		Router:  router,
		Auth:    store,
		Plugins: pm,
		Host:    host.New(d),
		Results: results,
	}, nil
}

// OpenAuth opens the membership store named by the configuration.
func OpenAuth(cfg *config.Config) (*authz.Store, error) {
	path := cfg.AuthDB()
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create auth directory: %w", err)
		}
	}
	store, err := authz.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open auth store: %w", err)
	}
	return store, nil
}

// Close disposes the plugins and closes the membership store.
func (a *App) Close() error {
	return errors.Join(a.Plugins.Close(), a.Auth.Close())
}
