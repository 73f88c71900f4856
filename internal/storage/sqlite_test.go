package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stash/internal/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "stash.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestSQLiteAppendAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	when := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	id, err := s.AppendTransaction(ctx, core.Transaction{
		AccountName: "PiggyVest",
		Type:        core.Deposit,
		Amount:      mustDecimal(t, "1500.50"),
		Note:        "march savings",
		Timestamp:   when,
	})
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	got, err := s.GetTransaction(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "PiggyVest", got.AccountName)
	assert.Equal(t, core.Deposit, got.Type)
	assert.True(t, got.Amount.Equal(mustDecimal(t, "1500.50")), "amount %s", got.Amount)
	assert.Equal(t, "march savings", got.Note)
	assert.True(t, got.Timestamp.Equal(when), "timestamp %s", got.Timestamp)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLiteAppendRejectsInvalid(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AppendTransaction(context.Background(), core.Transaction{
		AccountName: "",
		Type:        core.Deposit,
		Amount:      mustDecimal(t, "10"),
		Timestamp:   time.Now(),
	})
	require.ErrorIs(t, err, core.ErrEmptyAccountName)
}

func TestSQLiteGetTransactionNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetTransaction(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteListTransactions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	entries := []core.Transaction{
		{AccountName: "OPay", Type: core.Deposit, Amount: mustDecimal(t, "100"), Timestamp: base},
		{AccountName: "PiggyVest", Type: core.Deposit, Amount: mustDecimal(t, "200"), Timestamp: base.Add(time.Hour)},
		{AccountName: "OPay", Type: core.Withdrawal, Amount: mustDecimal(t, "50"), Timestamp: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		_, err := s.AppendTransaction(ctx, e)
		require.NoError(t, err)
	}

	t.Run("all newest first", func(t *testing.T) {
		txs, err := s.ListTransactions(ctx, "", 0)
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.Equal(t, core.Withdrawal, txs[0].Type)
		assert.Equal(t, "PiggyVest", txs[1].AccountName)
		assert.True(t, txs[2].Amount.Equal(mustDecimal(t, "100")))
	})

	t.Run("filtered by account", func(t *testing.T) {
		txs, err := s.ListTransactions(ctx, "OPay", 0)
		require.NoError(t, err)
		require.Len(t, txs, 2)
		for _, tx := range txs {
			assert.Equal(t, "OPay", tx.AccountName)
		}
	})

	t.Run("limited", func(t *testing.T) {
		txs, err := s.ListTransactions(ctx, "", 2)
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, core.Withdrawal, txs[0].Type)
	})

	t.Run("unknown account is empty", func(t *testing.T) {
		txs, err := s.ListTransactions(ctx, "Cooperative", 0)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})
}

func TestSQLitePasswordHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.PasswordHash(ctx)
	require.ErrorIs(t, err, ErrNoUser)

	require.NoError(t, s.SetPasswordHash(ctx, "hash-one"))
	hash, err := s.PasswordHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hash-one", hash)

	// A second set replaces the credential instead of adding a user.
	require.NoError(t, s.SetPasswordHash(ctx, "hash-two"))
	hash, err = s.PasswordHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hash-two", hash)
}
