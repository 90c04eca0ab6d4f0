package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// getTransactions retrieves the caller's transactions with the invoice
// link resolved, with optional Redis caching.
func getTransactions(c *gin.Context) {
	userID := currentUserID(c)
	ctx := c.Request.Context()

	var cached []Transaction
	if cacheGet(ctx, transactionsCacheKey(userID), &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	transactions, err := store.ListTransactions(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Cache for 60 seconds
	cacheSet(ctx, transactionsCacheKey(userID), transactions, 60*time.Second)

	c.JSON(http.StatusOK, transactions)
}

// addTransaction records a manual ledger entry and applies its signed
// amount to the wallet.
func addTransaction(c *gin.Context) {
	var req struct {
		Name      string          `json:"name"`
		Type      string          `json:"type"`
		Amount    decimal.Decimal `json:"amount"`
		Date      Date            `json:"date"`
		InvoiceID *int64          `json:"invoiceId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" || req.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}
	if req.Date.IsZero() {
		req.Date = Date{Time: time.Now()}
	}

	userID := currentUserID(c)
	missing := "Wallet"
	var transaction Transaction
	err := store.WithTx(c.Request.Context(), func(tx Store) error {
		if req.InvoiceID != nil {
			// The link must point at the caller's own invoice, and an
			// invoice carries at most one ledger entry.
			missing = "Invoice"
			if _, err := tx.GetInvoice(c.Request.Context(), userID, *req.InvoiceID); err != nil {
				return err
			}
			missing = "Wallet"
			if _, err := tx.FindTransactionByInvoice(c.Request.Context(), userID, *req.InvoiceID); err == nil {
				return ErrInvoiceLinked
			} else if err != ErrNotFound {
				return err
			}
		}
		var err error
		transaction, err = recordTransaction(c.Request.Context(), tx, Transaction{
			UserID:    userID,
			Name:      req.Name,
			Type:      req.Type,
			Amount:    req.Amount,
			Date:      req.Date,
			InvoiceID: req.InvoiceID,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvoiceLinked) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invoice already has a linked transaction"})
			return
		}
		respondStoreError(c, err, missing)
		return
	}

	invalidateUserCache(c.Request.Context(), userID)
	c.JSON(http.StatusCreated, transaction)
}

// getTransaction retrieves one transaction by ID
func getTransaction(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	transaction, err := store.GetTransaction(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondStoreError(c, err, "Transaction")
		return
	}
	c.JSON(http.StatusOK, transaction)
}

// updateTransaction applies a partial update. An amount change adjusts the
// wallet by the difference so the running balance stays reconciled.
func updateTransaction(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID := currentUserID(c)

	var req struct {
		Name   *string          `json:"name"`
		Type   *string          `json:"type"`
		Amount *decimal.Decimal `json:"amount"`
		Date   *Date            `json:"date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var transaction Transaction
	err := store.WithTx(c.Request.Context(), func(tx Store) error {
		var err error
		transaction, err = tx.GetTransaction(c.Request.Context(), userID, id)
		if err != nil {
			return err
		}
		oldAmount := transaction.Amount
		if req.Name != nil {
			transaction.Name = *req.Name
		}
		if req.Type != nil {
			transaction.Type = *req.Type
		}
		if req.Amount != nil {
			transaction.Amount = *req.Amount
		}
		if req.Date != nil {
			transaction.Date = *req.Date
		}
		transaction, err = tx.UpdateTransaction(c.Request.Context(), transaction)
		if err != nil {
			return err
		}
		if delta := transaction.Amount.Sub(oldAmount); !delta.IsZero() {
			return tx.ApplyToWallet(c.Request.Context(), userID, delta)
		}
		return nil
	})
	if err != nil {
		respondStoreError(c, err, "Transaction")
		return
	}

	invalidateUserCache(c.Request.Context(), userID)
	c.JSON(http.StatusOK, transaction)
}

// deleteTransaction removes a ledger entry and reverts its amount from the
// wallet.
func deleteTransaction(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID := currentUserID(c)
	if err := removeTransaction(c.Request.Context(), store, userID, id); err != nil {
		respondStoreError(c, err, "Transaction")
		return
	}

	invalidateUserCache(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}
