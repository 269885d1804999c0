package engine

import (
	"context"
	"database/sql"
	"log/slog"

	"spycats/internal/breed"
	"spycats/internal/logging"
	"spycats/internal/metrics"
	"spycats/internal/repo"
)

// Engine enforces the cat and mission rules. Every mutating method runs in a
// single transaction.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Breeds breed.Validator
	Logger *slog.Logger
}

func New(db *sql.DB, breeds breed.Validator, logger *slog.Logger) Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Breeds: breeds,
		Logger: logger,
	}
}

func (e Engine) log() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logging.Discard()
}

// inTx runs fn inside a transaction and commits when it returns nil.
func (e Engine) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func transition(entity, name string) {
	metrics.Transitions.WithLabelValues(entity, name).Inc()
}
