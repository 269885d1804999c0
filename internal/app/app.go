package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"spycats/internal/breed"
	"spycats/internal/config"
	"spycats/internal/db"
	"spycats/internal/engine"
	"spycats/internal/migrate"
)

// App bundles an open database with the engine built on it.
type App struct {
	DB     *sql.DB
	Engine engine.Engine
	Config *config.Config
}

// Open opens the workspace database, applies migrations and wires the engine
// with the breed validator the config selects.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	conn, err := db.Open(db.Config{Workspace: cfg.Database.Workspace, BusyTimeoutMS: cfg.Database.BusyTimeoutMS})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &App{
		DB:     conn,
		Engine: engine.New(conn, NewValidator(cfg.Breed, logger), logger),
		Config: cfg,
	}, nil
}

// NewValidator returns the static list when one is configured, the remote
// catalog client otherwise.
func NewValidator(cfg config.BreedConfig, logger *slog.Logger) breed.Validator {
	if len(cfg.Static) > 0 {
		return breed.NewStatic(cfg.Static...)
	}
	return breed.NewClient(breed.Config{
		URL:      cfg.URL,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.Timeout,
		CacheTTL: cfg.CacheTTL,
	}, logger)
}

func (a *App) Close() error {
	return a.DB.Close()
}
