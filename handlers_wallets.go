package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// respondStoreError maps store failures onto the error taxonomy.
func respondStoreError(c *gin.Context, err error, what string) {
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// getWallets retrieves the caller's wallets
func getWallets(c *gin.Context) {
	wallets, err := store.ListWallets(c.Request.Context(), currentUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, wallets)
}

// addWallet creates a new wallet with an opening balance
func addWallet(c *gin.Context) {
	var req struct {
		Balance  decimal.Decimal `json:"balance"`
		Currency string          `json:"currency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	wallet, err := store.CreateWallet(c.Request.Context(), Wallet{
		UserID:   currentUserID(c),
		Balance:  req.Balance,
		Currency: req.Currency,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	invalidateUserCache(c.Request.Context(), wallet.UserID)
	c.JSON(http.StatusCreated, wallet)
}

// getWallet retrieves one wallet by ID
func getWallet(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	wallet, err := store.GetWallet(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondStoreError(c, err, "Wallet")
		return
	}
	c.JSON(http.StatusOK, wallet)
}

// updateWallet updates a wallet's balance or currency
func updateWallet(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID := currentUserID(c)

	wallet, err := store.GetWallet(c.Request.Context(), userID, id)
	if err != nil {
		respondStoreError(c, err, "Wallet")
		return
	}

	var req struct {
		Balance  *decimal.Decimal `json:"balance"`
		Currency *string          `json:"currency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Balance != nil {
		wallet.Balance = *req.Balance
	}
	if req.Currency != nil {
		wallet.Currency = *req.Currency
	}

	updated, err := store.UpdateWallet(c.Request.Context(), wallet)
	if err != nil {
		respondStoreError(c, err, "Wallet")
		return
	}

	invalidateUserCache(c.Request.Context(), userID)
	c.JSON(http.StatusOK, updated)
}

// deleteWallet removes a wallet by ID
func deleteWallet(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	userID := currentUserID(c)
	if err := store.DeleteWallet(c.Request.Context(), userID, id); err != nil {
		respondStoreError(c, err, "Wallet")
		return
	}

	invalidateUserCache(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"message": "Wallet deleted"})
}
