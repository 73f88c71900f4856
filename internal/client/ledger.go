package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"stash/internal/core"
)

// ErrUnauthorized marks a protected ledger call the server refused with
// 401/403. The configured policy hook has already been notified by the
// time it is returned.
var ErrUnauthorized = errors.New("not authorized")

// History is the ledger read the aggregator consumes.
type History struct {
	Transactions    []core.Transaction
	AccountBalances map[string]decimal.Decimal
	TotalBalance    decimal.Decimal
}

// RecordResult reports an accepted ledger append.
type RecordResult struct {
	Message    string
	NewBalance decimal.Decimal
}

type wireTransaction struct {
	ID              int64           `json:"id"`
	AccountName     string          `json:"account_name"`
	TransactionType string          `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	Note            string          `json:"note"`
	TransactionDate string          `json:"transaction_date"`
	CreatedAt       string          `json:"created_at"`
}

type historyResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Transactions    []wireTransaction          `json:"transactions"`
		AccountBalances map[string]decimal.Decimal `json:"accountBalances"`
		TotalBalance    decimal.Decimal            `json:"totalBalance"`
	} `json:"data"`
	Message string `json:"message"`
}

type updateRequest struct {
	AccountName     string `json:"accountName"`
	Amount          string `json:"amount"`
	TransactionType string `json:"transactionType"`
	Note            string `json:"note"`
	DateTime        string `json:"dateTime"`
}

type updateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		NewBalance decimal.Decimal `json:"newBalance"`
	} `json:"data"`
}

// FetchHistory reads the transaction ledger, optionally filtered to one
// account. limit <= 0 leaves the server default in place.
func (c *Client) FetchHistory(ctx context.Context, account string, limit int) (History, error) {
	endpoint := c.url("/account/history")
	query := url.Values{}
	if account != "" {
		query.Set("account", account)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return History{}, fmt.Errorf("build history request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return History{}, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	c.protectedStatus(resp.StatusCode)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return History{}, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return History{}, fmt.Errorf("fetch history: %s", serverMessage(resp))
	}

	var wire historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return History{}, fmt.Errorf("decode history response: %w", err)
	}

	history := History{
		Transactions:    make([]core.Transaction, 0, len(wire.Data.Transactions)),
		AccountBalances: wire.Data.AccountBalances,
		TotalBalance:    wire.Data.TotalBalance,
	}
	for _, w := range wire.Data.Transactions {
		history.Transactions = append(history.Transactions, core.Transaction{
			ID:          w.ID,
			AccountName: w.AccountName,
			Type:        core.TransactionType(w.TransactionType),
			Amount:      w.Amount,
			Note:        w.Note,
			Timestamp:   parseWireTime(w.TransactionDate),
			CreatedAt:   parseWireTime(w.CreatedAt),
		})
	}
	return history, nil
}

// RecordTransaction appends one ledger entry. The amount travels as the
// user typed it; the server does the comma-stripping and validation.
func (c *Client) RecordTransaction(ctx context.Context, account, amount string, typ core.TransactionType, note string, at time.Time) (RecordResult, error) {
	payload := updateRequest{
		AccountName:     account,
		Amount:          amount,
		TransactionType: string(typ),
		Note:            note,
	}
	if !at.IsZero() {
		payload.DateTime = at.Format(time.RFC3339)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return RecordResult{}, fmt.Errorf("encode update request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/account/update"), bytes.NewReader(body))
	if err != nil {
		return RecordResult{}, fmt.Errorf("build update request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return RecordResult{}, fmt.Errorf("record transaction: %w", err)
	}
	defer resp.Body.Close()

	c.protectedStatus(resp.StatusCode)
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return RecordResult{}, ErrUnauthorized
	}

	var wire updateResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		if resp.StatusCode != http.StatusOK {
			return RecordResult{}, fmt.Errorf("record transaction: status %d", resp.StatusCode)
		}
		return RecordResult{}, fmt.Errorf("decode update response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !wire.Success {
		msg := wire.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return RecordResult{}, fmt.Errorf("record transaction: %s", msg)
	}
	return RecordResult{Message: wire.Message, NewBalance: wire.Data.NewBalance}, nil
}

func parseWireTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func serverMessage(resp *http.Response) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
