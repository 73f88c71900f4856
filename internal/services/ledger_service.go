// Package services orchestrates ledger operations across storage and AMQP.
package services

import (
	"context"
	"fmt"
	"time"

	"stash/internal/core"
	"stash/internal/log"
	"stash/internal/storage"
)

// Publisher announces recorded transactions. Satisfied by *amqp.Client.
type Publisher interface {
	PublishTransactionRecorded(ctx context.Context, id int64) error
	Close() error
}

// LedgerService records transactions locally and notifies the export
// worker over AMQP. Publishing is best effort, the ledger write is the
// source of truth.
type LedgerService struct {
	store     storage.Store
	publisher Publisher
	logger    *log.Logger
}

func NewLedgerService(store storage.Store, publisher Publisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentLedger})
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

// RecordTransaction appends one entry and returns its ID.
func (s *LedgerService) RecordTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	id, err := s.store.AppendTransaction(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publishRecorded(ctx, id); err != nil {
		// Don't fail the request, the transaction is saved locally.
		s.logger.ErrorContext(ctx, "failed to publish transaction notification",
			log.FieldTxID, id, log.FieldError, err)
	}

	return id, nil
}

// History returns transactions newest first, optionally filtered to one
// account.
func (s *LedgerService) History(ctx context.Context, account string, limit int) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, account, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Snapshot aggregates the full ledger into per-account balances and
// monthly deposit stats as of now.
func (s *LedgerService) Snapshot(ctx context.Context, known []string, now time.Time) (core.Snapshot, error) {
	txs, err := s.store.ListTransactions(ctx, "", 0)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.Aggregate(known, txs, now), nil
}

func (s *LedgerService) publishRecorded(ctx context.Context, id int64) error {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping notification")
		return nil
	}
	return s.publisher.PublishTransactionRecorded(ctx, id)
}

// Close closes both the store and the AMQP connection.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}

	return nil
}
