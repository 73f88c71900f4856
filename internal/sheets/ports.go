package sheets

import (
	"context"

	"stash/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter appends a single ledger entry to the export target.
	TransactionWriter interface {
		Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// LedgerExporter replaces the export target with the full ledger.
	LedgerExporter interface {
		ReplaceAll(ctx context.Context, txs []core.Transaction) error
	}
)
