package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"stash/internal/core"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore persists the ledger in Postgres via a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			account_name TEXT NOT NULL,
			transaction_type TEXT NOT NULL CHECK (transaction_type IN ('add', 'subtract')),
			amount NUMERIC(15,2) NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			transaction_date TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions (account_name);`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (transaction_date);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) AppendTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO transactions (account_name, transaction_type, amount, note, transaction_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		tx.AccountName, string(tx.Type), tx.Amount.String(), tx.Note, tx.Timestamp).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

const pgSelectTransaction = `
	SELECT id, account_name, transaction_type, amount::text, note, transaction_date, created_at
	FROM transactions`

func (s *PostgresStore) ListTransactions(ctx context.Context, account string, limit int) ([]core.Transaction, error) {
	query := pgSelectTransaction
	var args []any
	if account != "" {
		args = append(args, account)
		query += fmt.Sprintf(` WHERE account_name = $%d`, len(args))
	}
	query += ` ORDER BY transaction_date DESC, id DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanPostgresTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := s.pool.QueryRow(ctx, pgSelectTransaction+` WHERE id = $1`, id)
	tx, err := scanPostgresTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	return tx, err
}

func (s *PostgresStore) PasswordHash(ctx context.Context) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx, `SELECT password_hash FROM users ORDER BY id LIMIT 1`).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoUser
	}
	if err != nil {
		return "", fmt.Errorf("query password hash: %w", err)
	}
	return hash, nil
}

func (s *PostgresStore) SetPasswordHash(ctx context.Context, hash string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET password_hash = $1, updated_at = NOW()
		WHERE id = (SELECT id FROM users ORDER BY id LIMIT 1)`, hash)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `INSERT INTO users (password_hash) VALUES ($1)`, hash); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func scanPostgresTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		tx     core.Transaction
		typ    string
		amount string
	)
	if err := row.Scan(&tx.ID, &tx.AccountName, &typ, &amount, &tx.Note, &tx.Timestamp, &tx.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = core.TransactionType(typ)

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	tx.Amount = parsed
	return tx, nil
}
