package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stash/internal/core"
	"stash/internal/session"
)

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func newTestClient(t *testing.T, srv *httptest.Server, onAuthRejected func()) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: srv.URL, OnAuthRejected: onAuthRejected})
	require.NoError(t, err)
	return c
}

func TestVerifyOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/verify", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	err := c.Verify(context.Background(), "wrong")
	assert.ErrorIs(t, err, session.ErrRejected)

	// Unreachable server: plain error, not a rejection.
	srv.Close()
	err = c.Verify(context.Background(), "whatever")
	require.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrRejected)
}

func TestVerifyKeepsSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "stash_session", Value: "tok", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	var gotCookie string
	mux.HandleFunc("/api/auth/status", func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("stash_session"); err == nil {
			gotCookie = cookie.Value
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "authenticated": true}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Verify(context.Background(), "pw"))

	ok, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", gotCookie, "session cookie must travel with protected calls")
}

func TestStatusNonOKFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	ok, err := c.Status(context.Background())
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestFetchHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/account/history", r.URL.Path)
		assert.Equal(t, "Cooperative", r.URL.Query().Get("account"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"data": {
				"transactions": [
					{"id": 2, "account_name": "Cooperative", "transaction_type": "subtract", "amount": 300, "note": "", "transaction_date": "2025-06-14T10:00:00", "created_at": "2025-06-14T10:00:01"},
					{"id": 1, "account_name": "Cooperative", "transaction_type": "add", "amount": 1000.50, "note": "salary", "transaction_date": "2025-06-01T09:00:00", "created_at": "2025-06-01T09:00:01"}
				],
				"accountBalances": {"Cooperative": 700.50},
				"totalBalance": 700.50
			}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	history, err := c.FetchHistory(context.Background(), "Cooperative", 10)
	require.NoError(t, err)

	require.Len(t, history.Transactions, 2)
	first := history.Transactions[0]
	assert.Equal(t, core.Withdrawal, first.Type)
	assert.True(t, first.Amount.Equal(decimalFromString(t, "300")))
	second := history.Transactions[1]
	assert.Equal(t, core.Deposit, second.Type)
	assert.Equal(t, "salary", second.Note)
	assert.Equal(t, 2025, second.Timestamp.Year())
	assert.True(t, history.TotalBalance.Equal(decimalFromString(t, "700.50")))
	assert.True(t, history.AccountBalances["Cooperative"].Equal(decimalFromString(t, "700.50")))
}

func TestFetchHistoryUnauthorizedTriggersPolicy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	rejected := false
	c := newTestClient(t, srv, func() { rejected = true })
	_, err := c.FetchHistory(context.Background(), "", 0)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, rejected, "401 must reach the policy hook")
}

func TestFetchHistoryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "message": "Failed to fetch history"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.FetchHistory(context.Background(), "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to fetch history")
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestRecordTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/account/update", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "message": "Money added to OPay successfully", "data": {"newBalance": 150}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	res, err := c.RecordTransaction(context.Background(), "OPay", "150", core.Deposit, "", time.Now())
	require.NoError(t, err)
	assert.True(t, res.NewBalance.Equal(decimalFromString(t, "150")))
	assert.Contains(t, res.Message, "OPay")
}

func TestRecordTransactionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success": false, "message": "Amount must be greater than zero"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.RecordTransaction(context.Background(), "OPay", "0", core.Deposit, "", time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greater than zero")
}

func TestGuardAgainstRealClient(t *testing.T) {
	// Wire the guard to a real HTTP round trip to cover the full login
	// path: wrong password, right password, logout.
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != "open sesame" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	guard := session.New(session.Config{Auth: c, CheckInterval: time.Hour})
	defer guard.Close()

	assert.False(t, guard.Login(context.Background(), "wrong"))
	assert.NotEmpty(t, guard.Err())
	assert.True(t, guard.Login(context.Background(), "open sesame"))
	assert.True(t, guard.Authenticated())
	guard.Logout(context.Background())
	assert.False(t, guard.Authenticated())
}
