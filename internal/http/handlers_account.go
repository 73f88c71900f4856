package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stash/internal/core"
	"stash/internal/log"
)

type updateRequest struct {
	AccountName     string `json:"accountName"`
	Amount          string `json:"amount"`
	TransactionType string `json:"transactionType"`
	Note            string `json:"note"`
	DateTime        string `json:"dateTime"`
}

type wireTransaction struct {
	ID              int64   `json:"id"`
	AccountName     string  `json:"account_name"`
	TransactionType string  `json:"transaction_type"`
	Amount          float64 `json:"amount"`
	Note            string  `json:"note"`
	TransactionDate string  `json:"transaction_date"`
	CreatedAt       string  `json:"created_at"`
}

// handleUpdate appends one transaction to the ledger.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.AccountName = strings.TrimSpace(req.AccountName)
	if req.AccountName == "" || strings.TrimSpace(req.Amount) == "" {
		writeError(w, http.StatusBadRequest, "Account name and amount are required")
		return
	}

	typ := core.TransactionType(req.TransactionType)
	if typ != core.Deposit && typ != core.Withdrawal {
		writeError(w, http.StatusBadRequest, "Transaction type must be 'add' or 'subtract'")
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	tx := core.Transaction{
		AccountName: req.AccountName,
		Type:        typ,
		Amount:      amount,
		Note:        strings.TrimSpace(req.Note),
		Timestamp:   parseDateTime(req.DateTime),
	}

	id, err := s.ledger.RecordTransaction(r.Context(), tx)
	if err != nil {
		if errors.Is(err, core.ErrNoteTooLong) {
			writeError(w, http.StatusBadRequest, "Note is too long")
			return
		}
		s.logger.ErrorContext(r.Context(), "failed to record transaction",
			log.FieldAccount, tx.AccountName,
			log.FieldTxType, string(tx.Type),
			log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Failed to record transaction")
		return
	}

	snap, err := s.ledger.Snapshot(r.Context(), s.accounts, time.Now())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to compute balance", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Failed to compute balance")
		return
	}

	s.logger.InfoContext(r.Context(), "transaction recorded",
		log.FieldTxID, id,
		log.FieldAccount, tx.AccountName,
		log.FieldTxType, string(tx.Type),
		log.FieldAmount, tx.Amount.String())

	newBalance, _ := snap.Balances[tx.AccountName].Float64()
	writeSuccess(w, "Transaction recorded", map[string]any{
		"newBalance": newBalance,
	})
}

// handleHistory returns recent transactions plus current balances.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	account := strings.TrimSpace(r.URL.Query().Get("account"))
	limit := s.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	txs, err := s.ledger.History(r.Context(), account, limit)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to load history", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	snap, err := s.ledger.Snapshot(r.Context(), s.accounts, time.Now())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to compute balances", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Failed to compute balances")
		return
	}

	wire := make([]wireTransaction, 0, len(txs))
	for _, tx := range txs {
		amount, _ := tx.Amount.Float64()
		wire = append(wire, wireTransaction{
			ID:              tx.ID,
			AccountName:     tx.AccountName,
			TransactionType: string(tx.Type),
			Amount:          amount,
			Note:            tx.Note,
			TransactionDate: tx.Timestamp.Format(time.RFC3339),
			CreatedAt:       tx.CreatedAt.Format(time.RFC3339),
		})
	}

	balances := make(map[string]float64, len(snap.Balances))
	for name, balance := range snap.Balances {
		balances[name], _ = balance.Float64()
	}
	total, _ := snap.Total.Float64()

	writeSuccess(w, "", map[string]any{
		"transactions":    wire,
		"accountBalances": balances,
		"totalBalance":    total,
	})
}

// parseDateTime accepts the formats browsers and clients send. Anything
// unparseable falls back to the current time.
func parseDateTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	// Some clients append a literal Z to a local timestamp.
	if trimmed := strings.TrimSuffix(raw, "Z"); trimmed != raw {
		for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t
			}
		}
	}
	return time.Now()
}
