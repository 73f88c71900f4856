// Package storage persists the append-only transaction ledger and the
// single shared credential. Two backends are available: SQLite for the
// default single-binary deployment and Postgres for hosted setups.
package storage

import (
	"context"
	"errors"
	"fmt"

	"stash/internal/config"
	"stash/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrNoUser means the shared password has never been set.
	ErrNoUser = errors.New("no user configured")
)

// LedgerStore is the append-only transaction ledger.
type LedgerStore interface {
	// AppendTransaction stores one entry and returns its ID.
	AppendTransaction(ctx context.Context, tx core.Transaction) (int64, error)
	// ListTransactions returns entries newest first, optionally filtered
	// to one account. limit <= 0 means no limit.
	ListTransactions(ctx context.Context, account string, limit int) ([]core.Transaction, error)
	// GetTransaction fetches a single entry by ID.
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
}

// UserStore holds the single shared-password credential.
type UserStore interface {
	PasswordHash(ctx context.Context) (string, error)
	SetPasswordHash(ctx context.Context, hash string) error
}

// Store is the full persistence surface.
type Store interface {
	LedgerStore
	UserStore
	Close() error
}

// Open creates the store selected by the configuration.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.DataBackend {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLiteDBPath)
	case "postgres":
		return NewPostgresStore(ctx, cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}
