package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/harbor/internal/config"
	"github.com/hpungsan/harbor/internal/db"
	"github.com/hpungsan/harbor/internal/ops"
	"github.com/hpungsan/harbor/internal/pgstore"
	"github.com/hpungsan/harbor/internal/preview"
	"github.com/hpungsan/harbor/internal/workspace"
)

// appEnv is the state shared by every command of one process.
type appEnv struct {
	baseDir   string
	db        *sql.DB // nil in ephemeral mode
	cfg       *config.Config
	store     workspace.Store
	workspace *workspace.Workspace
	previews  *preview.Registry
	gist      ops.GistEnv

	closers []func()
}

// openEnv opens the workspace store: Postgres when a database URL is
// configured, otherwise the SQLite database under baseDir. Ephemeral runs
// keep everything in memory and record no history.
func openEnv(ctx context.Context, baseDir string, cfg *config.Config, ephemeral bool) (*appEnv, error) {
	env := &appEnv{baseDir: baseDir, cfg: cfg}

	switch {
	case ephemeral:
		env.store = workspace.NewMemoryStore()
	default:
		database, err := db.Init(baseDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		db.ConfigurePool(database, cfg)
		env.db = database
		env.closers = append(env.closers, func() { database.Close() })
		env.store = db.NewKV(database)

		if cfg.DatabaseURL != "" {
			pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				env.Close()
				return nil, err
			}
			env.closers = append(env.closers, pg.Close)
			env.store = pg
		}
	}

	defaults := workspace.DefaultSettings().Overlay(cfg.EditorDefaults)
	ws, err := workspace.Open(ctx, env.store, workspace.WithDefaults(defaults))
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	env.workspace = ws

	env.previews = preview.NewRegistry(cfg.MaxPreviewHandles)
	env.closers = append(env.closers, env.previews.Close)

	env.gist = ops.GistEnv{
		BaseURL:  cfg.GistAPIURL,
		EnvToken: cfg.GistToken,
		Store:    env.store,
		DB:       env.db,
	}
	return env, nil
}

// Close releases resources in reverse order of acquisition.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}
