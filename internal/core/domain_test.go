package core

import (
	"errors"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	now := time.Now()
	valid := tx("Cooperative", Deposit, "100", now)

	tests := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{name: "valid", mutate: func(*Transaction) {}, want: nil},
		{name: "blank account", mutate: func(x *Transaction) { x.AccountName = "  " }, want: ErrEmptyAccountName},
		{name: "bad type", mutate: func(x *Transaction) { x.Type = "transfer" }, want: ErrInvalidType},
		{name: "zero amount", mutate: func(x *Transaction) { x.Amount = dec("0") }, want: ErrInvalidAmount},
		{name: "negative amount", mutate: func(x *Transaction) { x.Amount = dec("-5") }, want: ErrInvalidAmount},
		{name: "oversized note", mutate: func(x *Transaction) {
			for len(x.Note) <= 500 {
				x.Note += "note "
			}
		}, want: ErrNoteTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := valid
			tt.mutate(&candidate)
			if err := candidate.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSigned(t *testing.T) {
	d := tx("OPay", Deposit, "75", time.Now())
	if !d.Signed().Equal(dec("75")) {
		t.Errorf("deposit Signed() = %s, want 75", d.Signed())
	}
	w := tx("OPay", Withdrawal, "75", time.Now())
	if !w.Signed().Equal(dec("-75")) {
		t.Errorf("withdrawal Signed() = %s, want -75", w.Signed())
	}
}
