package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer wires the real router against the in-memory store.
func newTestServer(t *testing.T) (*gin.Engine, *memStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ms := newMemStore()
	store = ms
	redisClient = nil
	cfg = Config{}
	return newRouter(), ms
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
}

// signup registers a user and returns a session token.
func signup(t *testing.T, r http.Handler, name, email string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{
		"name": name, "email": email, "password": "pass1234",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{
		"email": email, "password": "pass1234",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func createWallet(t *testing.T, r http.Handler, token string, balance, currency string) Wallet {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/wallets", token, gin.H{
		"balance": json.RawMessage(balance), "currency": currency,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var wallet Wallet
	decode(t, w, &wallet)
	return wallet
}

func walletBalance(t *testing.T, r http.Handler, token string, id int64) decimal.Decimal {
	t.Helper()
	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/wallets/%d", id), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var wallet Wallet
	decode(t, w, &wallet)
	return wallet.Balance
}

func listTransactions(t *testing.T, r http.Handler, token string) []Transaction {
	t.Helper()
	w := doJSON(t, r, http.MethodGet, "/api/transactions", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var txs []Transaction
	decode(t, w, &txs)
	return txs
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	r, ms := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{
		"name": "Jo Doe", "email": "jo@example.com", "password": "pass1234",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	w = doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{
		"name": "Impostor", "email": "jo@example.com", "password": "other",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, ms.users, 1, "failed registration must not create a user")
}

func TestRegisterRejectsMissingFields(t *testing.T) {
	r, ms := newTestServer(t)
	w := doJSON(t, r, http.MethodPost, "/api/register", "", gin.H{"email": "jo@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, ms.users)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r, _ := newTestServer(t)
	signup(t, r, "Jo Doe", "jo@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{
		"email": "jo@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{
		"email": "nobody@example.com", "password": "pass1234",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequired(t *testing.T) {
	r, ms := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/api/wallets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/wallets", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Expired sessions are rejected and dropped.
	ctx := context.Background()
	require.NoError(t, ms.CreateSession(ctx, Session{
		Token: "stale", UserID: 1, ExpiresAt: time.Now().Add(-time.Hour),
	}))
	w = doJSON(t, r, http.MethodGet, "/api/wallets", "stale", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	_, err := ms.GetSession(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWalletCRUD(t *testing.T) {
	r, _ := newTestServer(t)
	token := signup(t, r, "Jo Doe", "jo@example.com")

	wallet := createWallet(t, r, token, "1000", "EUR")
	assert.Equal(t, "EUR", wallet.Currency)
	assert.True(t, wallet.Balance.Equal(decimal.RequireFromString("1000")))

	w := doJSON(t, r, http.MethodGet, "/api/wallets", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var wallets []Wallet
	decode(t, w, &wallets)
	require.Len(t, wallets, 1)

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/wallets/%d", wallet.ID), token, gin.H{"currency": "USD"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated Wallet
	decode(t, w, &updated)
	assert.Equal(t, "USD", updated.Currency)
	assert.True(t, updated.Balance.Equal(wallet.Balance), "partial update must not clear the balance")

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/wallets/%d", wallet.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/wallets/%d", wallet.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransactionReconciliation(t *testing.T) {
	r, _ := newTestServer(t)
	token := signup(t, r, "Jo Doe", "jo@example.com")
	wallet := createWallet(t, r, token, "1000", "EUR")
	today := time.Now().Format(dateLayout)

	w := doJSON(t, r, http.MethodPost, "/api/transactions", token, gin.H{
		"name": "Groceries", "type": "shopping", "amount": -200, "date": today,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created Transaction
	decode(t, w, &created)

	// Stored running balance: opening 1000 + (-200).
	assert.True(t, walletBalance(t, r, token, wallet.ID).Equal(decimal.RequireFromString("800")))

	// Derived aggregates ignore the opening balance.
	w = doJSON(t, r, http.MethodGet, "/api/analytics?window=7d", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var analytics Analytics
	decode(t, w, &analytics)
	assert.True(t, analytics.Summary.TotalIncome.IsZero())
	assert.True(t, analytics.Summary.TotalSpending.Equal(decimal.RequireFromString("200")))
	assert.True(t, analytics.Summary.TotalBalance.Equal(decimal.RequireFromString("-200")))
	require.Len(t, analytics.Series, 7)

	// Deleting the entry reverts the wallet.
	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, walletBalance(t, r, token, wallet.ID).Equal(decimal.RequireFromString("1000")))
}

func TestTransactionUpdateAdjustsWallet(t *testing.T) {
	r, _ := newTestServer(t)
	token := signup(t, r, "Jo Doe", "jo@example.com")
	wallet := createWallet(t, r, token, "100", "USD")
	today := time.Now().Format(dateLayout)

	w := doJSON(t, r, http.MethodPost, "/api/transactions", token, gin.H{
		"name": "Gig", "type": "income", "amount": 50, "date": today,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created Transaction
	decode(t, w, &created)
	require.True(t, walletBalance(t, r, token, wallet.ID).Equal(decimal.RequireFromString("150")))

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/transactions/%d", created.ID), token, gin.H{"amount": 20})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, walletBalance(t, r, token, wallet.ID).Equal(decimal.RequireFromString("120")))
}

func TestTransactionWithoutWalletFails(t *testing.T) {
	r, ms := newTestServer(t)
	token := signup(t, r, "Jo Doe", "jo@example.com")

	w := doJSON(t, r, http.MethodPost, "/api/transactions", token, gin.H{
		"name": "Orphan", "type": "misc", "amount": 10, "date": time.Now().Format(dateLayout),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, ms.transactions, "ledger write must roll back with the wallet update")
}

func TestManualTransactionCannotDuplicateInvoiceLink(t *testing.T) {
	r, _ := newTestServer(t)
	token := signup(t, r, "Jo Doe", "jo@example.com")
	wallet := createWallet(t, r, token, "0", "USD")
	today := time.Now().Format(dateLayout)

	w := doJSON(t, r, http.MethodPost, "/api/invoices", token, gin.H{
		"clientName": "Acme", "orders": "Build", "amount": 500, "date": today, "status": "paid",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var invoice Invoice
	decode(t, w, &invoice)
	require.Len(t, listTransactions(t, r, token), 1)

	// The auto credit already links the invoice; a second link is rejected
	// without touching ledger or wallet.
	w = doJSON(t, r, http.MethodPost, "/api/transactions", token, gin.H{
		"name": "Acme again", "type": "credit", "amount": 500, "date": today, "invoiceId": invoice.ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Len(t, listTransactions(t, r, token), 1)
	assert.True(t, walletBalance(t, r, token, wallet.ID).Equal(decimal.RequireFromString("500")))

	// And the single entry still unwinds cleanly on paid -> pending.
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/invoices/%d", invoice.ID), token, gin.H{"status": "pending"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, listTransactions(t, r, token))
	assert.True(t, walletBalance(t, r, token, wallet.ID).IsZero())
}

func TestManualTransactionRejectsForeignInvoice(t *testing.T) {
	r, _ := newTestServer(t)
	alice := signup(t, r, "Alice A", "alice@example.com")
	bob := signup(t, r, "Bob B", "bob@example.com")
	createWallet(t, r, alice, "0", "USD")
	createWallet(t, r, bob, "0", "USD")
	today := time.Now().Format(dateLayout)

	w := doJSON(t, r, http.MethodPost, "/api/invoices", alice, gin.H{
		"clientName": "Acme", "orders": "Build", "amount": 100, "date": today,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var invoice Invoice
	decode(t, w, &invoice)

	w = doJSON(t, r, http.MethodPost, "/api/transactions", bob, gin.H{
		"name": "Hijack", "type": "credit", "amount": 100, "date": today, "invoiceId": invoice.ID,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, listTransactions(t, r, bob))
}

func TestInvoiceRepriceWhilePaidResyncsLedger(t *testing.T) {
	r, _ := newTestServer(t)
	token := signup(t, r, "Jo Doe", "jo@example.com")
	wallet := createWallet(t, r, token, "0", "USD")

	w := doJSON(t, r, http.MethodPost, "/api/invoices", token, gin.H{
		"clientName": "Acme", "orders": "Build", "amount": 500,
		"date": time.Now().Format(dateLayout), "status": "paid",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var invoice Invoice
	decode(t, w, &invoice)
	require.True(t, walletBalance(t, r, token, wallet.ID).Equal(decimal.RequireFromString("500")))

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/invoices/%d", invoice.ID), token, gin.H{"amount": 300})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	txs := listTransactions(t, r, token)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("300")), "entry follows the invoice amount")
	assert.True(t, walletBalance(t, r, token, wallet.ID).Equal(decimal.RequireFromString("300")))

	// Unwinding afterwards debits the repriced amount, not the original.
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/invoices/%d", invoice.ID), token, gin.H{"status": "unpaid"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, listTransactions(t, r, token))
	assert.True(t, walletBalance(t, r, token, wallet.ID).IsZero())
}

func TestInvoicePaidSync(t *testing.T) {
	r, _ := newTestServer(t)
	token := signup(t, r, "Jo Doe", "jo@example.com")
	wallet := createWallet(t, r, token, "0", "USD")
	today := time.Now().Format(dateLayout)

	w := doJSON(t, r, http.MethodPost, "/api/invoices", token, gin.H{
		"clientName": "Acme", "orders": "Website build", "amount": 500, "date": today, "status": "unpaid",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var invoice Invoice
	decode(t, w, &invoice)
	assert.Empty(t, listTransactions(t, r, token))

	// unpaid -> paid: exactly one credit entry, wallet credited.
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/invoices/%d", invoice.ID), token, gin.H{"status": "paid"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	txs := listTransactions(t, r, token)
	require.Len(t, txs, 1)
	assert.Equal(t, "Acme", txs[0].Name)
	assert.Equal(t, "credit", txs[0].Type)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("500")))
	require.NotNil(t, txs[0].Invoice)
	assert.Equal(t, invoice.ID, txs[0].Invoice.ID)
	assert.Equal(t, StatusPaid, txs[0].Invoice.Status)
	assert.True(t, walletBalance(t, r, token, wallet.ID).Equal(decimal.RequireFromString("500")))

	// paid -> paid: no duplicate entry, no double credit.
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/invoices/%d", invoice.ID), token, gin.H{"status": "paid"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, listTransactions(t, r, token), 1)
	assert.True(t, walletBalance(t, r, token, wallet.ID).Equal(decimal.RequireFromString("500")))

	// paid -> pending: entry removed, wallet debited back.
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/invoices/%d", invoice.ID), token, gin.H{"status": "pending"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, listTransactions(t, r, token))
	assert.True(t, walletBalance(t, r, token, wallet.ID).IsZero())
}

func TestInvoiceCreatedPaidSyncsImmediately(t *testing.T) {
	r, _ := newTestServer(t)
	token := signup(t, r, "Jo Doe", "jo@example.com")
	wallet := createWallet(t, r, token, "0", "USD")

	w := doJSON(t, r, http.MethodPost, "/api/invoices", token, gin.H{
		"clientName": "Globex", "orders": "Charts", "amount": 250,
		"date": time.Now().Format(dateLayout), "status": "paid",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.Len(t, listTransactions(t, r, token), 1)
	assert.True(t, walletBalance(t, r, token, wallet.ID).Equal(decimal.RequireFromString("250")))
}

func TestInvoiceValidation(t *testing.T) {
	r, _ := newTestServer(t)
	token := signup(t, r, "Jo Doe", "jo@example.com")
	createWallet(t, r, token, "0", "USD")
	today := time.Now().Format(dateLayout)

	for name, body := range map[string]gin.H{
		"negative amount": {"clientName": "Acme", "orders": "x", "amount": -5, "date": today},
		"bad status":      {"clientName": "Acme", "orders": "x", "amount": 5, "date": today, "status": "overdue"},
		"missing client":  {"orders": "x", "amount": 5, "date": today},
	} {
		w := doJSON(t, r, http.MethodPost, "/api/invoices", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
}

func TestInvoiceDeleteKeepsLedgerEntry(t *testing.T) {
	r, _ := newTestServer(t)
	token := signup(t, r, "Jo Doe", "jo@example.com")
	wallet := createWallet(t, r, token, "0", "USD")

	w := doJSON(t, r, http.MethodPost, "/api/invoices", token, gin.H{
		"clientName": "Acme", "orders": "Build", "amount": 300,
		"date": time.Now().Format(dateLayout), "status": "paid",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var invoice Invoice
	decode(t, w, &invoice)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/invoices/%d", invoice.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	txs := listTransactions(t, r, token)
	require.Len(t, txs, 1, "the recorded payment outlives its invoice")
	assert.Nil(t, txs[0].Invoice, "link is detached once the invoice is gone")
	assert.True(t, walletBalance(t, r, token, wallet.ID).Equal(decimal.RequireFromString("300")))
}

func TestCrossUserAccessIsNotFound(t *testing.T) {
	r, _ := newTestServer(t)
	alice := signup(t, r, "Alice A", "alice@example.com")
	bob := signup(t, r, "Bob B", "bob@example.com")
	createWallet(t, r, alice, "0", "USD")

	w := doJSON(t, r, http.MethodPost, "/api/invoices", alice, gin.H{
		"clientName": "Acme", "orders": "Build", "amount": 100, "date": time.Now().Format(dateLayout),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var invoice Invoice
	decode(t, w, &invoice)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/invoices/%d", invoice.ID), bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotContains(t, w.Body.String(), "Acme", "existence must not leak")

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/invoices/%d", invoice.ID), bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Empty(t, listTransactions(t, r, bob))
}

func TestUserProfile(t *testing.T) {
	r, _ := newTestServer(t)
	token := signup(t, r, "Ada Lovelace", "ada@example.com")

	w := doJSON(t, r, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var profile profileResponse
	decode(t, w, &profile)
	assert.Equal(t, "Ada", profile.FirstName)
	assert.Equal(t, "Lovelace", profile.LastName)

	w = doJSON(t, r, http.MethodPut, "/api/users/me", token, gin.H{
		"firstName": "Grace", "lastName": "Hopper", "mobile": "+1 555 0100", "password": "newpass99",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &profile)
	assert.Equal(t, "Grace Hopper", profile.Name)
	require.NotNil(t, profile.Mobile)
	assert.Equal(t, "+1 555 0100", *profile.Mobile)
	assert.NotContains(t, w.Body.String(), "password")

	// Credential update takes effect.
	w = doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{"email": "ada@example.com", "password": "pass1234"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{"email": "ada@example.com", "password": "newpass99"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteAccountCascades(t *testing.T) {
	r, ms := newTestServer(t)
	token := signup(t, r, "Jo Doe", "jo@example.com")
	createWallet(t, r, token, "100", "USD")
	w := doJSON(t, r, http.MethodPost, "/api/invoices", token, gin.H{
		"clientName": "Acme", "orders": "Build", "amount": 100,
		"date": time.Now().Format(dateLayout), "status": "paid",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Empty(t, ms.users)
	assert.Empty(t, ms.wallets)
	assert.Empty(t, ms.invoices)
	assert.Empty(t, ms.transactions)
	assert.Empty(t, ms.sessions)

	w = doJSON(t, r, http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnalyticsWindows(t *testing.T) {
	r, _ := newTestServer(t)
	token := signup(t, r, "Jo Doe", "jo@example.com")
	createWallet(t, r, token, "0", "USD")

	for window, days := range map[string]int{"7d": 7, "30d": 30, "365d": 365} {
		w := doJSON(t, r, http.MethodGet, "/api/analytics?window="+window, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var analytics Analytics
		decode(t, w, &analytics)
		assert.Len(t, analytics.Series, days, window)
	}

	w := doJSON(t, r, http.MethodGet, "/api/analytics?window=90d", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
