package core

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func tx(account string, typ TransactionType, amount string, ts time.Time) Transaction {
	return Transaction{AccountName: account, Type: typ, Amount: dec(amount), Timestamp: ts}
}

func TestAggregateEmpty(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	snap := Aggregate(DefaultAccounts, nil, now)

	if len(snap.Balances) != len(DefaultAccounts) {
		t.Fatalf("expected %d accounts, got %d", len(DefaultAccounts), len(snap.Balances))
	}
	for _, name := range DefaultAccounts {
		if !snap.Balances[name].IsZero() {
			t.Errorf("account %s: expected zero balance, got %s", name, snap.Balances[name])
		}
	}
	if !snap.Total.IsZero() {
		t.Errorf("expected zero total, got %s", snap.Total)
	}
	if len(snap.Monthly) != 0 {
		t.Errorf("expected no monthly stats, got %d", len(snap.Monthly))
	}
}

func TestAggregateBalances(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		txs       []Transaction
		account   string
		want      string
		wantTotal string
	}{
		{
			name: "deposit minus withdrawal",
			txs: []Transaction{
				tx("Cooperative", Deposit, "1000", now.Add(-48*time.Hour)),
				tx("Cooperative", Withdrawal, "300", now.Add(-24*time.Hour)),
			},
			account:   "Cooperative",
			want:      "700",
			wantTotal: "700",
		},
		{
			name: "multiple accounts sum into total",
			txs: []Transaction{
				tx("Cooperative", Deposit, "500.50", now.Add(-3*time.Hour)),
				tx("PiggyVest", Deposit, "1200", now.Add(-2*time.Hour)),
				tx("OPay", Withdrawal, "200", now.Add(-time.Hour)),
			},
			account:   "PiggyVest",
			want:      "1200",
			wantTotal: "1500.50",
		},
		{
			name: "withdrawal can drive balance negative",
			txs: []Transaction{
				tx("OPay", Withdrawal, "50", now.Add(-time.Hour)),
			},
			account:   "OPay",
			want:      "-50",
			wantTotal: "-50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Aggregate(DefaultAccounts, tt.txs, now)
			if got := snap.Balances[tt.account]; !got.Equal(dec(tt.want)) {
				t.Errorf("balance[%s] = %s, want %s", tt.account, got, tt.want)
			}
			if !snap.Total.Equal(dec(tt.wantTotal)) {
				t.Errorf("total = %s, want %s", snap.Total, tt.wantTotal)
			}
		})
	}
}

func TestAggregateTotalEqualsSumOfBalances(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	txs := []Transaction{
		tx("Cooperative", Deposit, "1000", now.Add(-72*time.Hour)),
		tx("PiggyVest", Deposit, "250.25", now.Add(-48*time.Hour)),
		tx("OPay", Withdrawal, "100", now.Add(-24*time.Hour)),
		tx("Sidebar", Deposit, "19.99", now.Add(-time.Hour)),
	}

	snap := Aggregate(DefaultAccounts, txs, now)
	sum := decimal.Zero
	for _, b := range snap.Balances {
		sum = sum.Add(b)
	}
	if !snap.Total.Equal(sum) {
		t.Errorf("total %s != sum of balances %s", snap.Total, sum)
	}
}

func TestAggregateUnknownAccountKept(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	txs := []Transaction{tx("Kuda", Deposit, "400", now.Add(-time.Hour))}

	snap := Aggregate(DefaultAccounts, txs, now)
	if got, ok := snap.Balances["Kuda"]; !ok || !got.Equal(dec("400")) {
		t.Errorf("unknown account dropped or wrong: %v %v", got, ok)
	}
	// Known accounts still present with zero balances.
	if _, ok := snap.Balances["Cooperative"]; !ok {
		t.Error("known account missing from snapshot")
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	txs := []Transaction{
		tx("Cooperative", Deposit, "1000", now.Add(-96*time.Hour)),
		tx("Cooperative", Deposit, "500", now.Add(-48*time.Hour)),
		tx("Cooperative", Withdrawal, "200", now.Add(-24*time.Hour)),
		tx("PiggyVest", Deposit, "750", now.Add(-12*time.Hour)),
	}
	want := Aggregate(DefaultAccounts, txs, now)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]Transaction, len(txs))
		copy(shuffled, txs)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		got := Aggregate(DefaultAccounts, shuffled, now)
		if !got.Total.Equal(want.Total) {
			t.Fatalf("shuffle %d: total = %s, want %s", i, got.Total, want.Total)
		}
		for name, b := range want.Balances {
			if !got.Balances[name].Equal(b) {
				t.Fatalf("shuffle %d: balance[%s] = %s, want %s", i, name, got.Balances[name], b)
			}
		}
		for name, stats := range want.Monthly {
			if got.Monthly[name] != stats {
				t.Fatalf("shuffle %d: monthly[%s] = %+v, want %+v", i, name, got.Monthly[name], stats)
			}
		}
	}
}

func TestAggregateMonthlyStats(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	lastMonth := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)
	lastYearSameMonth := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	newest := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)

	txs := []Transaction{
		tx("Cooperative", Deposit, "100", lastYearSameMonth),
		tx("Cooperative", Deposit, "100", lastMonth),
		tx("Cooperative", Deposit, "100", time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)),
		tx("Cooperative", Deposit, "100", newest),
		tx("Cooperative", Withdrawal, "50", time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)),
	}

	snap := Aggregate(DefaultAccounts, txs, now)
	stats := snap.Monthly["Cooperative"]
	if stats.Deposits != 2 {
		t.Errorf("deposits this month = %d, want 2 (same month last year must not count)", stats.Deposits)
	}
	if !stats.LastDeposit.Equal(newest) {
		t.Errorf("last deposit = %v, want %v", stats.LastDeposit, newest)
	}
	// Withdrawals never contribute to monthly deposit stats.
	if _, ok := snap.Monthly["PiggyVest"]; ok {
		t.Error("unexpected monthly stats for account with no deposits")
	}
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	txs := []Transaction{
		tx("OPay", Deposit, "10", now.Add(-2*time.Hour)),
		tx("OPay", Deposit, "20", now.Add(-time.Hour)),
	}
	first := txs[0]

	Aggregate(DefaultAccounts, txs, now)
	if txs[0].Timestamp != first.Timestamp || !txs[0].Amount.Equal(first.Amount) {
		t.Error("input slice was reordered or mutated")
	}
}
