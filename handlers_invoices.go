package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// getInvoices retrieves the caller's invoices
func getInvoices(c *gin.Context) {
	invoices, err := store.ListInvoices(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// addInvoice creates a new invoice. An invoice created directly as "paid"
// goes through the same ledger sync as a status update would.
func addInvoice(c *gin.Context) {
	var req struct {
		ClientName string          `json:"clientName"`
		Orders     string          `json:"orders"`
		Amount     decimal.Decimal `json:"amount"`
		Date       Date            `json:"date"`
		Status     string          `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status == "" {
		req.Status = StatusPending
	}
	if !validStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	if req.ClientName == "" || req.Orders == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing fields"})
		return
	}
	if req.Amount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must not be negative"})
		return
	}
	if req.Date.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	userID := currentUserID(c)
	var invoice Invoice
	err := store.WithTx(c.Request.Context(), func(tx Store) error {
		var err error
		invoice, err = tx.CreateInvoice(c.Request.Context(), Invoice{
			UserID:     userID,
			ClientName: req.ClientName,
			Orders:     req.Orders,
			Amount:     req.Amount,
			Date:       req.Date,
			Status:     req.Status,
		})
		if err != nil {
			return err
		}
		return syncInvoiceTransaction(c.Request.Context(), tx, invoice)
	})
	if err != nil {
		respondStoreError(c, err, "Wallet")
		return
	}

	invalidateUserCache(c.Request.Context(), userID)
	c.JSON(http.StatusCreated, invoice)
}

// getInvoice retrieves one invoice by ID
func getInvoice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	invoice, err := store.GetInvoice(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondStoreError(c, err, "Invoice")
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// updateInvoice applies a partial update. A status change creates or
// removes the linked ledger entry and reconciles the wallet, atomically.
func updateInvoice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID := currentUserID(c)

	var req struct {
		ClientName *string          `json:"clientName"`
		Orders     *string          `json:"orders"`
		Amount     *decimal.Decimal `json:"amount"`
		Date       *Date            `json:"date"`
		Status     *string          `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != nil && !validStatus(*req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	if req.Amount != nil && req.Amount.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must not be negative"})
		return
	}

	var invoice Invoice
	err := store.WithTx(c.Request.Context(), func(tx Store) error {
		var err error
		invoice, err = tx.GetInvoice(c.Request.Context(), userID, id)
		if err != nil {
			return err
		}
		if req.ClientName != nil {
			invoice.ClientName = *req.ClientName
		}
		if req.Orders != nil {
			invoice.Orders = *req.Orders
		}
		if req.Amount != nil {
			invoice.Amount = *req.Amount
		}
		if req.Date != nil {
			invoice.Date = *req.Date
		}
		if req.Status != nil {
			invoice.Status = *req.Status
		}
		invoice, err = tx.UpdateInvoice(c.Request.Context(), invoice)
		if err != nil {
			return err
		}
		return syncInvoiceTransaction(c.Request.Context(), tx, invoice)
	})
	if err != nil {
		respondStoreError(c, err, "Invoice")
		return
	}

	invalidateUserCache(c.Request.Context(), userID)
	c.JSON(http.StatusOK, invoice)
}

// deleteInvoice removes an invoice by ID. A linked transaction stays in
// the ledger, detached; the payment it records still happened.
func deleteInvoice(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID := currentUserID(c)
	if err := store.DeleteInvoice(c.Request.Context(), userID, id); err != nil {
		respondStoreError(c, err, "Invoice")
		return
	}

	invalidateUserCache(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted"})
}
