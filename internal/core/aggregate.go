package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Aggregate derives an account snapshot from an ordered-or-not transaction
// list. Every account in known appears in the result with a zero default;
// accounts present only in the data are kept under their own key, so the
// snapshot's account set is the union of both.
//
// Monthly stats are evaluated against now's calendar month and year. The
// function sorts an internal copy by timestamp descending, so the output is
// identical for any reordering of txs. The input is never mutated.
func Aggregate(known []string, txs []Transaction, now time.Time) Snapshot {
	snap := Snapshot{
		Balances: make(map[string]decimal.Decimal, len(known)),
		Total:    decimal.Zero,
		Monthly:  make(map[string]MonthlyStats),
	}
	for _, name := range known {
		snap.Balances[name] = decimal.Zero
	}

	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	for _, tx := range sorted {
		balance, ok := snap.Balances[tx.AccountName]
		if !ok {
			balance = decimal.Zero
		}
		snap.Balances[tx.AccountName] = balance.Add(tx.Signed())

		if tx.Type != Deposit {
			continue
		}
		stats := snap.Monthly[tx.AccountName]
		// First deposit seen in descending order is the most recent one.
		if stats.LastDeposit.IsZero() {
			stats.LastDeposit = tx.Timestamp
		}
		if tx.Timestamp.Year() == now.Year() && tx.Timestamp.Month() == now.Month() {
			stats.Deposits++
		}
		snap.Monthly[tx.AccountName] = stats
	}

	for _, balance := range snap.Balances {
		snap.Total = snap.Total.Add(balance)
	}
	return snap
}
