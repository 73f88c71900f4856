// Package worker mirrors the transaction ledger into Google Sheets. New
// entries arrive over AMQP, a nightly cron job rewrites the whole sheet
// to recover from any missed messages.
package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"stash/internal/amqp"
	"stash/internal/log"
	"stash/internal/sheets"
	"stash/internal/storage"
)

// Consumer delivers transaction notifications. Satisfied by *amqp.Client.
type Consumer interface {
	ConsumeTransactionRecorded(ctx context.Context, handler func(*amqp.TransactionRecordedMessage) error) error
}

// ExportWorker exports ledger entries to an external sheet.
type ExportWorker struct {
	store    storage.LedgerStore
	writer   sheets.TransactionWriter
	exporter sheets.LedgerExporter
	logger   *log.Logger
}

func NewExportWorker(store storage.LedgerStore, writer sheets.TransactionWriter, exporter sheets.LedgerExporter, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentWorker})
	}
	return &ExportWorker{
		store:    store,
		writer:   writer,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleRecordedMessage fetches the transaction behind a notification and
// appends it to the sheet.
func (w *ExportWorker) HandleRecordedMessage(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	tx, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.writer.Append(ctx, tx)
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}

	w.logger.InfoContext(ctx, "exported transaction",
		log.FieldTxID, tx.ID,
		log.FieldAccount, tx.AccountName,
		"sheet_ref", ref)

	return nil
}

// FullExport rewrites the sheet from the complete ledger. Run nightly as
// a catch-up for notifications lost while the worker was down.
func (w *ExportWorker) FullExport(ctx context.Context) error {
	txs, err := w.store.ListTransactions(ctx, "", 0)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	if err := w.exporter.ReplaceAll(ctx, txs); err != nil {
		return fmt.Errorf("replace sheet contents: %w", err)
	}

	w.logger.InfoContext(ctx, "full export completed", "count", len(txs))
	return nil
}

// Run consumes notifications until the context is cancelled, with the
// full export scheduled on cronSpec (six fields, seconds first).
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer, cronSpec string) error {
	scheduler := cron.New(cron.WithSeconds())
	_, err := scheduler.AddFunc(cronSpec, func() {
		if err := w.FullExport(ctx); err != nil {
			w.logger.ErrorContext(ctx, "scheduled full export failed", log.FieldError, err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule full export: %w", err)
	}

	scheduler.Start()
	defer func() {
		<-scheduler.Stop().Done()
	}()

	return consumer.ConsumeTransactionRecorded(ctx, func(msg *amqp.TransactionRecordedMessage) error {
		return w.HandleRecordedMessage(ctx, msg)
	})
}
